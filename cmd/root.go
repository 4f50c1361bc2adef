// Package cmd is the thin ambient CLI front door onto the grit façade
// (SPEC_FULL.md §0, Non-goals: "a thin, ambient demonstration harness
// ... so the façade in §6 has a runnable front door"). It is not the
// CLI surface spec.md §1 excludes from scope — it exists purely so
// grit.Compile/grit.Execute have a runnable entry point, grounded on
// teacher's cmd/root.go cobra+viper wiring.
package cmd

import (
	"fmt"
	"os"

	"github.com/flanksource/commons/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile      string
	languageFlag string
	cacheFlag    string
)

var rootCmd = &cobra.Command{
	Use:   "grit",
	Short: "GritQL pattern engine",
	Long: `grit compiles and executes GritQL patterns against source files.

It matches declarative code patterns and, when a pattern carries a
rewrite, linearizes the accumulated effects into new file text.`,
}

// Execute runs the root command; main.go's sole responsibility is
// calling this.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.grit.yaml)")
	rootCmd.PersistentFlags().StringVarP(&languageFlag, "language", "l", "go", "target language of the files being matched (go, markdown)")
	rootCmd.PersistentFlags().StringVar(&cacheFlag, "history", "", "optional sqlite path to persist match/rewrite history (grit/cache.Store)")

	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(rewriteCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigType("yaml")
			viper.SetConfigName(".grit")
		}
	}
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil {
		logger.Infof("using config file: %s", viper.ConfigFileUsed())
	}
}
