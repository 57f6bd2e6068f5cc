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

type ExtractConfig struct {
	Family string
	Index  int
	Rels   bool
	Raw    bool
}

func NewExtractConfig() *ExtractConfig {
	return &ExtractConfig{
		Family: "",
		Index:  1,
		Rels:   false,
		Raw:    false,
	}
}

var extractCmd = &cobra.Command{
	Use:   "extract <file.pptx> [part-path]",
	Short: "Print one XML part of a PPTX container",
	Long: `Print one part of a PPTX container, pretty-printed unless --raw is given.

The part is either named by its internal path or selected with --family and
--index. A missing part prints nothing and exits successfully.

Examples:
  pptlib extract deck.pptx ppt/presentation.xml
  pptlib extract deck.pptx --family slide --index 3
  pptlib extract deck.pptx --family layout --index 1 --rels
  pptlib extract deck.pptx ppt/slides/slide1.xml --raw`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		config := getExtractConfigFromFlags(cmd)

		internalPath := ""
		if len(args) == 2 {
			internalPath = args[1]
		}

		if err := runExtract(cmd.Context(), os.Stdout, args[0], internalPath, config); err != nil {
			presenter.Error(err, "Failed to extract part")
			os.Exit(1)
		}
	},
}

func init() {
	defaults := NewExtractConfig()
	extractCmd.Flags().StringP("family", "f", defaults.Family, "Part family to select (slide, layout, master, theme)")
	extractCmd.Flags().IntP("index", "n", defaults.Index, "1-based index within the family")
	extractCmd.Flags().Bool("rels", defaults.Rels, "Select the relationships part instead of the primary part")
	extractCmd.Flags().Bool("raw", defaults.Raw, "Print the part exactly as stored")
}

func getExtractConfigFromFlags(cmd *cobra.Command) *ExtractConfig {
	config := NewExtractConfig()
	if family, err := cmd.Flags().GetString("family"); err == nil {
		config.Family = family
	}
	if index, err := cmd.Flags().GetInt("index"); err == nil {
		config.Index = index
	}
	if rels, err := cmd.Flags().GetBool("rels"); err == nil {
		config.Rels = rels
	}
	if raw, err := cmd.Flags().GetBool("raw"); err == nil {
		config.Raw = raw
	}
	return config
}

// resolvePartPath turns the positional path or the family selection into an
// internal part path.
func resolvePartPath(internalPath string, config *ExtractConfig) (string, error) {
	if internalPath != "" {
		if config.Family != "" {
			return "", errors.New("a part path and --family are mutually exclusive")
		}
		return internalPath, nil
	}

	if config.Family == "" {
		return "", errors.New("either a part path or --family is required")
	}
	if config.Index < 1 {
		return "", errors.Errorf("--index must be at least 1, got %d", config.Index)
	}

	family, err := ooxml.FamilyByName(config.Family)
	if err != nil {
		return "", err
	}
	if config.Rels {
		return family.RelsPath(config.Index), nil
	}
	return family.PartPath(config.Index), nil
}

func runExtract(ctx context.Context, w io.Writer, container, internalPath string, config *ExtractConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}

	partPath, err := resolvePartPath(internalPath, config)
	if err != nil {
		return err
	}

	part, err := ooxml.Extract(ctx, container, partPath, !config.Raw)
	if err != nil {
		return err
	}
	if !part.Found() {
		presenter.Warning(fmt.Sprintf("%s not found in %s", partPath, container))
		return nil
	}

	text := part.Text
	if len(text) > 0 && text[len(text)-1] != '\n' {
		text += "\n"
	}
	_, err = io.WriteString(w, text)
	return err
}
