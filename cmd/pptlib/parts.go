package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jongik-sv/pptlib/pkg/ooxml"
	"github.com/jongik-sv/pptlib/pkg/presenter"
)

var partsCmd = &cobra.Command{
	Use:   "parts <file.pptx>",
	Short: "List the members of a PPTX container",
	Long: `List the members of a PPTX container in archive order.

Examples:
  pptlib parts deck.pptx
  pptlib parts deck.pptx --prefix ppt/slideLayouts/
  pptlib parts deck.pptx --glob 'ppt/slides/_rels/*.rels'`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		prefix, _ := cmd.Flags().GetString("prefix")
		glob, _ := cmd.Flags().GetString("glob")

		names, err := listParts(cmd.Context(), args[0], prefix, glob)
		if err != nil {
			presenter.Error(err, "Failed to list parts")
			os.Exit(1)
		}
		presenter.List(names)
	},
}

var countCmd = &cobra.Command{
	Use:   "count <file.pptx>",
	Short: "Count slides, layouts, masters and themes",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		pairs, err := countFamilies(cmd.Context(), args[0])
		if err != nil {
			presenter.Error(err, "Failed to count parts")
			os.Exit(1)
		}
		showPairs(pairs)
	},
}

var namespacesCmd = &cobra.Command{
	Use:   "namespaces",
	Short: "Show the namespace prefixes used for PresentationML parts",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		showPairs(namespacePairs())
	},
}

func init() {
	partsCmd.Flags().String("prefix", "", "Only list members whose name starts with this prefix")
	partsCmd.Flags().String("glob", "", "Only list members matching this glob (supports **)")
}

// quietOutput receives data rows in quiet mode.
var quietOutput io.Writer = os.Stdout

// showPairs prints aligned rows, or plain key=value lines in quiet mode so
// scripts still get the data.
func showPairs(pairs [][2]string) {
	if presenter.IsQuiet() {
		writeQuietPairs(quietOutput, pairs)
		return
	}
	presenter.KeyValues(pairs)
}

func writeQuietPairs(w io.Writer, pairs [][2]string) {
	for _, pair := range pairs {
		fmt.Fprintf(w, "%s=%s\n", pair[0], pair[1])
	}
}

func listParts(ctx context.Context, container, prefix, glob string) ([]string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if prefix != "" && glob != "" {
		return nil, errors.New("--prefix and --glob are mutually exclusive")
	}
	if glob != "" {
		return ooxml.GlobParts(ctx, container, glob)
	}
	return ooxml.ListParts(ctx, container, prefix)
}

var countedFamilies = []struct {
	label  string
	family ooxml.Family
}{
	{"slides", ooxml.Slides},
	{"layouts", ooxml.SlideLayouts},
	{"masters", ooxml.SlideMasters},
	{"themes", ooxml.Themes},
}

func countFamilies(ctx context.Context, container string) ([][2]string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	pairs := make([][2]string, 0, len(countedFamilies))
	for _, c := range countedFamilies {
		n, err := ooxml.CountFamily(ctx, container, c.family)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, [2]string{c.label, fmt.Sprintf("%d", n)})
	}
	return pairs, nil
}

func namespacePairs() [][2]string {
	prefixes := []string{"a", "r", "p", "rel", "c"}
	pairs := make([][2]string, 0, len(prefixes))
	for _, prefix := range prefixes {
		if uri, ok := ooxml.Namespace(prefix); ok {
			pairs = append(pairs, [2]string{prefix, uri})
		}
	}
	return pairs
}
