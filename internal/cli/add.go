package cli

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/jobpan/internal/config"
	"github.com/ppiankov/jobpan/internal/source"
)

var (
	addOPML   string
	addDryRun bool
)

var addCmd = &cobra.Command{
	Use:   "add [channel|feed-url]...",
	Short: "Add Telegram channels or RSS job feeds to config.yaml",
	Long: "add appends Telegram channels (@name or t.me links) and RSS feed URLs to config.yaml. " +
		"--opml also reads feed URLs from an OPML export. Entries that are already configured are skipped.",
	RunE: addAction,
}

func init() {
	addCmd.Flags().StringVar(&addOPML, "opml", "", "import RSS feed URLs from this OPML file")
	addCmd.Flags().BoolVar(&addDryRun, "dry-run", false, "show what would be added without modifying config")
	rootCmd.AddCommand(addCmd)
}

type opml struct {
	Body opmlBody `xml:"body"`
}

type opmlBody struct {
	Outlines []opmlOutline `xml:"outline"`
}

type opmlOutline struct {
	XMLURL   string        `xml:"xmlUrl,attr"`
	Text     string        `xml:"text,attr"`
	Outlines []opmlOutline `xml:"outline"`
}

type entryKind int

const (
	entryChannel entryKind = iota
	entryFeed
)

// channelName matches public Telegram usernames.
var channelName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{3,31}$`)

func addAction(_ *cobra.Command, args []string) error {
	if len(args) == 0 && addOPML == "" {
		return fmt.Errorf("nothing to add: pass channels, feed URLs or --opml")
	}

	var channels, feeds []string
	for _, arg := range args {
		kind, value, err := parseEntry(arg)
		if err != nil {
			return err
		}
		if kind == entryChannel {
			channels = append(channels, value)
		} else {
			feeds = append(feeds, value)
		}
	}

	if addOPML != "" {
		data, err := os.ReadFile(addOPML)
		if err != nil {
			return fmt.Errorf("read OPML: %w", err)
		}
		var doc opml
		if err := xml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse OPML: %w", err)
		}
		found := extractFeedURLs(doc.Body.Outlines)
		if len(found) == 0 {
			fmt.Println("No feed URLs found in OPML file.")
		}
		feeds = append(feeds, found...)
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	skipped := 0
	channels, n := newEntries(cfg.Sources.Telegram.Channels, channels, strings.ToLower)
	skipped += n
	feeds, n = newEntries(cfg.Sources.RSS.Feeds, feeds, func(s string) string { return s })
	skipped += n

	if len(channels) == 0 && len(feeds) == 0 {
		fmt.Printf("All %d entries already present, nothing to add.\n", skipped)
		return nil
	}

	if addDryRun {
		fmt.Printf("Would add %d channels and %d feeds (skipping %d already configured):\n",
			len(channels), len(feeds), skipped)
		for _, c := range channels {
			fmt.Printf("  + telegram %s\n", c)
		}
		for _, f := range feeds {
			fmt.Printf("  + rss %s\n", f)
		}
		return nil
	}

	configPath := filepath.Join(configDir, config.DefaultConfigFile)
	err = updateConfigLists(configPath, map[string][]string{
		"sources.telegram.channels": channels,
		"sources.rss.feeds":         feeds,
	})
	if err != nil {
		return fmt.Errorf("update config: %w", err)
	}

	fmt.Printf("Added %d channels and %d feeds, skipped %d already configured.\n",
		len(channels), len(feeds), skipped)
	return nil
}

// parseEntry tells a Telegram channel from an RSS feed URL. t.me links and
// bare usernames become "@name"; private invite links are refused.
func parseEntry(arg string) (entryKind, string, error) {
	s := strings.TrimSpace(arg)
	if s == "" {
		return 0, "", fmt.Errorf("empty entry")
	}

	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		u, err := url.Parse(s)
		if err != nil {
			return 0, "", fmt.Errorf("parse %q: %w", arg, err)
		}
		switch strings.ToLower(u.Host) {
		case "t.me", "telegram.me":
		default:
			return entryFeed, s, nil
		}
	}

	name := strings.TrimPrefix(source.NormalizeChannel(s), "@")
	if strings.HasPrefix(name, "+") || name == "joinchat" {
		return 0, "", fmt.Errorf("%q is a private invite link; add the channel by username", arg)
	}
	if !channelName.MatchString(name) {
		return 0, "", fmt.Errorf("%q is neither a feed URL nor a Telegram channel name", arg)
	}
	return entryChannel, "@" + name, nil
}

func extractFeedURLs(outlines []opmlOutline) []string {
	var urls []string
	for _, o := range outlines {
		u := strings.TrimSpace(o.XMLURL)
		if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
			urls = append(urls, u)
		}
		// folders nest outlines
		urls = append(urls, extractFeedURLs(o.Outlines)...)
	}
	return urls
}

// newEntries drops candidates already present in existing or repeated among
// themselves. key normalises values before comparison.
func newEntries(existing, candidates []string, key func(string) string) ([]string, int) {
	have := make(map[string]bool, len(existing))
	for _, e := range existing {
		have[key(e)] = true
	}

	var out []string
	skipped := 0
	for _, c := range candidates {
		k := key(c)
		if have[k] {
			skipped++
			continue
		}
		have[k] = true
		out = append(out, c)
	}
	return out, skipped
}

// updateConfigLists appends values to the dotted list paths of config.yaml.
// The file is edited as a yaml.Node tree so comments and key order survive.
func updateConfigLists(configPath string, lists map[string][]string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse config YAML: %w", err)
	}

	for path, values := range lists {
		if len(values) == 0 {
			continue
		}
		seq, err := ensureSeq(&doc, strings.Split(path, ".")...)
		if err != nil {
			return err
		}
		for _, v := range values {
			seq.Content = append(seq.Content, &yaml.Node{
				Kind:  yaml.ScalarNode,
				Tag:   "!!str",
				Value: v,
				Style: yaml.DoubleQuotedStyle,
			})
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(configPath, buf.Bytes(), 0o644)
}

// ensureSeq walks path from the document root, creating missing mappings and
// the final sequence.
func ensureSeq(doc *yaml.Node, path ...string) (*yaml.Node, error) {
	node := doc
	if node.Kind == yaml.DocumentNode || node.Kind == 0 {
		if len(node.Content) == 0 {
			node.Kind = yaml.DocumentNode
			node.Content = []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}
		}
		node = node.Content[0]
	}

	for i, key := range path {
		if node.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%s is not a mapping", pathName(path[:i]))
		}

		last := i == len(path)-1
		next := findMapValue(node, key)
		if next == nil {
			next = &yaml.Node{}
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, next)
		}
		if next.Kind == 0 || (next.Kind == yaml.ScalarNode && next.Tag == "!!null") {
			next.Value = ""
			next.Kind, next.Tag = yaml.MappingNode, "!!map"
			if last {
				next.Kind, next.Tag = yaml.SequenceNode, "!!seq"
			}
		}
		node = next
	}

	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%s is not a list", pathName(path))
	}
	if len(node.Content) == 0 {
		// "feeds: []" would stay in flow style
		node.Style = 0
	}
	return node, nil
}

func pathName(path []string) string {
	if len(path) == 0 {
		return "config root"
	}
	return strings.Join(path, ".")
}

func findMapValue(mapping *yaml.Node, key string) *yaml.Node {
	if mapping.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}
