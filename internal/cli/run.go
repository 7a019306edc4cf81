package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/jobpan/internal/config"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Pull, classify, then forward accepted postings",
	Long: "run pulls new posts, classifies them and forwards the accepted ones. " +
		"When output.method is none it prints the digest instead.",
	RunE: runAction,
}

var (
	runPullAction     = pullAction
	runClassifyAction = classifyAction
	runForwardAction  = forwardAction
	runDigestAction   = digestAction
	runOutputMethod   = func() (string, error) {
		cfg, err := config.Load(configDir)
		if err != nil {
			return "", fmt.Errorf("load config: %w", err)
		}
		return cfg.Output.Method, nil
	}
)

func runAction(cmd *cobra.Command, args []string) error {
	if err := runPullAction(cmd, args); err != nil {
		return err
	}
	if err := runClassifyAction(cmd, args); err != nil {
		return err
	}

	method, err := runOutputMethod()
	if err != nil {
		return err
	}
	if method == config.OutputNone {
		return runDigestAction(cmd, args)
	}
	return runForwardAction(cmd, args)
}
