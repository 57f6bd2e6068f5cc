package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jongik-sv/pptlib/pkg/layout"
	"github.com/jongik-sv/pptlib/pkg/logger"
	"github.com/jongik-sv/pptlib/pkg/presenter"
)

func init() {
	viper.SetEnvPrefix("PPTLIB")
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.pptlib")
	viper.AddConfigPath(".")

	viper.SetDefault("log_level", "warn")
	viper.SetDefault("log_format", logger.FormatText)

	// a missing config file is fine
	_ = viper.ReadInConfig()
}

var rootCmd = &cobra.Command{
	Use:   "pptlib",
	Short: "Inspect PPTX parts and manage template registries",
	Long: `pptlib extracts XML parts (slides, layouts, masters, themes and their
relationship files) from .pptx containers and maintains the YAML registries
that track templates, themes and assets of a presentation project.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := logger.Configure(viper.GetString("log_level"), viper.GetString("log_format")); err != nil {
			return err
		}
		presenter.SetQuiet(viper.GetBool("quiet"))
		return nil
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

// projectLayout resolves the project layout from flags, env and config.
func projectLayout() layout.Layout {
	l, err := layout.FromViper(viper.GetViper())
	if err != nil {
		presenter.Error(err, "Failed to resolve project layout")
		os.Exit(1)
	}
	return l
}

func main() {
	rootCmd.PersistentFlags().String("root", "", "Project root containing templates/ and output/ (defaults to the current directory)")
	rootCmd.PersistentFlags().String("output-dir", "", "Override the output directory")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", logger.FormatText, "Log format (text or json)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Only print requested data and errors")

	viper.BindPFlag(layout.KeyRoot, rootCmd.PersistentFlags().Lookup("root"))
	viper.BindPFlag(layout.KeyOutputDir, rootCmd.PersistentFlags().Lookup("output-dir"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(partsCmd)
	rootCmd.AddCommand(countCmd)
	rootCmd.AddCommand(namespacesCmd)
	rootCmd.AddCommand(registryCmd)
	rootCmd.AddCommand(layoutCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
