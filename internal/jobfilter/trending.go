package jobfilter

import (
	"sort"

	"github.com/ppiankov/jobpan/internal/source"
)

// Classified pairs a post with its classification.
type Classified struct {
	Post   source.Post
	Result MatchResult
}

// Trend is a keyword or link that accepted postings share across channels.
type Trend struct {
	Keyword  string   // matched keyword or URL
	Channels []string // distinct channels, sorted
}

// FindTrending reports matched keywords and URLs that accepted posts from
// minChannels or more distinct channels have in common.
func FindTrending(items []Classified, minChannels int) []Trend {
	if minChannels < 2 {
		minChannels = 2
	}

	kwChannels := make(map[string]map[string]bool)
	urlChannels := make(map[string]map[string]bool)

	for _, it := range items {
		if !it.Result.Accepted {
			continue
		}
		ch := it.Post.Channel
		for _, kw := range it.Result.Analysis.MatchedKeywords {
			addChannel(kwChannels, kw, ch)
		}
		if it.Post.URL != "" {
			addChannel(urlChannels, it.Post.URL, ch)
		}
	}

	seen := make(map[string]bool)
	var trends []Trend
	for kw, chMap := range kwChannels {
		if len(chMap) < minChannels {
			continue
		}
		trends = append(trends, Trend{Keyword: kw, Channels: sortedKeys(chMap)})
		seen[kw] = true
	}
	for u, chMap := range urlChannels {
		if len(chMap) < minChannels || seen[u] {
			continue
		}
		trends = append(trends, Trend{Keyword: u, Channels: sortedKeys(chMap)})
	}

	// Most channels first, then alphabetical
	sort.Slice(trends, func(i, j int) bool {
		if len(trends[i].Channels) != len(trends[j].Channels) {
			return len(trends[i].Channels) > len(trends[j].Channels)
		}
		return trends[i].Keyword < trends[j].Keyword
	})

	return trends
}

func addChannel(m map[string]map[string]bool, key, channel string) {
	if m[key] == nil {
		m[key] = make(map[string]bool)
	}
	m[key][channel] = true
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
