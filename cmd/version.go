package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the grit version",
	Run: func(cmd *cobra.Command, args []string) {
		style := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
		fmt.Println(style.Render("grit") + fmt.Sprintf(" %s (%s)", Version, Commit))
	},
}
