package cmd

import (
	"fmt"

	"github.com/flanksource/commons/logger"
	"github.com/spf13/cobra"

	gritcache "github.com/grit-lang/gritql/grit/cache"
	"github.com/grit-lang/gritql/grit"
)

// matchStore adapts grit/cache.Store's (patternName, file, start, end)
// signature to grit.MatchResult values so match.go's loop doesn't have
// to know the storage schema.
type matchStore struct {
	store *gritcache.Store
}

func openStore(path string) (*matchStore, error) {
	s, err := gritcache.Open(path)
	if err != nil {
		return nil, err
	}
	return &matchStore{store: s}, nil
}

func (m *matchStore) close() { _ = m.store.Close() }

func (m *matchStore) recordMatch(patternName string, res grit.MatchResult) {
	for _, r := range res.Ranges {
		if err := m.store.RecordMatch(patternName, res.SourceFile, r.Start, r.End); err != nil {
			logger.Warnf("history: record match: %v", err)
		}
	}
}

func (m *matchStore) recordRewrite(patternName string, res grit.MatchResult) {
	start, end := 0, 0
	if len(res.Ranges) > 0 {
		start, end = res.Ranges[0].Start, res.Ranges[0].End
	}
	if err := m.store.RecordRewrite(patternName, res.SourceFile, res.Reason, start, end); err != nil {
		logger.Warnf("history: record rewrite: %v", err)
	}
}

var historyCmd = &cobra.Command{
	Use:   "history <file>",
	Short: "Print previously recorded matches/rewrites for a file from the --history store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cacheFlag == "" {
			return fmt.Errorf("--history <path> is required for the history subcommand")
		}
		store, err := openStore(cacheFlag)
		if err != nil {
			return err
		}
		defer store.close()

		rows, err := store.store.History(args[0])
		if err != nil {
			return err
		}
		for _, r := range rows {
			logger.Infof("%s %s [%d,%d) %s", r.Kind, r.PatternName, r.StartByte, r.EndByte, r.Message)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
