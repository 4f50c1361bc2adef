package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/flanksource/commons/logger"
	"github.com/spf13/cobra"

	"github.com/grit-lang/gritql/builtin"
	"github.com/grit-lang/gritql/grit"
)

var matchCmd = &cobra.Command{
	Use:   "match <pattern> [path]",
	Short: "Find every match of a GritQL pattern in a file or directory",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) == 2 {
			path = args[1]
		}
		return runMatchRewrite(args[0], path, false)
	},
}

var rewriteCmd = &cobra.Command{
	Use:   "rewrite <pattern> [path]",
	Short: "Find matches and apply the pattern's rewrite, printing the new content",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) == 2 {
			path = args[1]
		}
		return runMatchRewrite(args[0], path, true)
	},
}

var writeFlag bool

func init() {
	rewriteCmd.Flags().BoolVarP(&writeFlag, "write", "w", false, "write rewritten content back to each file instead of printing it")
}

func runMatchRewrite(source, path string, rewrite bool) error {
	language, err := resolveLanguage(languageFlag)
	if err != nil {
		return err
	}

	fc, err := loadFileConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	compiled, err := grit.Compile(source, language, nil, fc.toOptions())
	if err != nil {
		return err
	}
	for _, w := range compiled.Warnings {
		logger.Warnf("line %d, col %d: %s", w.Line, w.Column, w.Message)
	}

	files, err := walkFiles(path, language)
	if err != nil {
		return err
	}

	cb := grit.Callbacks{Builtins: builtin.Table(), Foreign: builtin.CELForeign}

	var store *matchStore
	if cacheFlag != "" {
		store, err = openStore(cacheFlag)
		if err != nil {
			return err
		}
		defer store.close()
	}

	matched := 0
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			logger.Errorf("read %s: %v", file, err)
			continue
		}
		for res := range grit.Execute(compiled, string(src), file, cb) {
			switch res.Kind {
			case grit.KindMatch:
				matched++
				printMatch(res)
				if store != nil {
					store.recordMatch(source, res)
				}
			case grit.KindRewrite:
				if rewrite {
					printRewrite(res)
					if writeFlag {
						if err := os.WriteFile(file, []byte(res.RewrittenContent), 0o644); err != nil {
							logger.Errorf("write %s: %v", file, err)
						}
					}
					if store != nil {
						store.recordRewrite(source, res)
					}
				}
			case grit.KindAnalysisLog:
				if res.Log != nil {
					logger.Debugf("%s: %s", res.Log.File, res.Log.Message)
				}
			}
		}
	}

	color.New(color.FgHiBlack).Printf("%d file(s) scanned, %d match(es)\n", len(files), matched)
	return nil
}

func printMatch(res grit.MatchResult) {
	bold := color.New(color.FgGreen, color.Bold)
	for _, r := range res.Ranges {
		bold.Printf("match ")
		fmt.Printf("%s [%d,%d)\n", res.SourceFile, r.Start, r.End)
	}
}

func printRewrite(res grit.MatchResult) {
	color.New(color.FgYellow, color.Bold).Printf("rewrite ")
	fmt.Println(res.SourceFile)
	if !writeFlag {
		fmt.Println(res.RewrittenContent)
	}
}
