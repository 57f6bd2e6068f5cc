package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jongik-sv/pptlib/pkg/layout"
	"github.com/jongik-sv/pptlib/pkg/presenter"
)

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Show where templates, registries and output live",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		l := projectLayout()
		presenter.Section("Project layout")
		showPairs(layoutPairs(l))
	},
}

var sessionCmd = &cobra.Command{
	Use:   "session [id]",
	Short: "Create the output directory of a session",
	Long: `Create the output directory of a session and print its path. Without an
id a random one is generated.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		id := ""
		if len(args) == 1 {
			id = args[0]
		}

		dir, err := projectLayout().EnsureOutputDir(id)
		if err != nil {
			presenter.Error(err, "Failed to create session directory")
			os.Exit(1)
		}
		fmt.Println(dir)
	},
}

func layoutPairs(l layout.Layout) [][2]string {
	return [][2]string{
		{"root", l.Root},
		{"templates", l.Templates},
		{"themes", l.Themes},
		{"contents", l.Contents},
		{"documents", l.Documents},
		{"assets", l.Assets},
		{"output", l.Output},
		{"themes registry", l.ThemesRegistry()},
		{"contents registry", l.ContentsRegistry()},
		{"assets registry", l.AssetsRegistry()},
	}
}
