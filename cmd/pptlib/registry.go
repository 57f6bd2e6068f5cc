package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jongik-sv/pptlib/pkg/layout"
	"github.com/jongik-sv/pptlib/pkg/presenter"
	"github.com/jongik-sv/pptlib/pkg/registry"
)

// registryDefaults lists the keys each named registry always carries and the
// title written into its header.
var registryDefaults = map[string]struct {
	keys  []string
	title string
}{
	"themes":    {keys: []string{"themes"}, title: "Theme Registry"},
	"contents":  {keys: []string{"templates"}, title: "Content Template Registry"},
	"assets":    {keys: []string{"icons", "images"}, title: "Asset Registry"},
	"documents": {keys: []string{"templates"}, title: "Document Template Registry"},
}

type RegistryConfig struct {
	Keys  []string
	Title string
}

func NewRegistryConfig() *RegistryConfig {
	return &RegistryConfig{
		Keys:  nil,
		Title: "",
	}
}

// registryTarget is a resolved registry file together with its defaults.
type registryTarget struct {
	Path  string
	Keys  []string
	Title string
}

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect and update YAML registries",
	Long: `Inspect and update the YAML registries of a project.

A registry is addressed by name (themes, contents, assets), as
documents/<group>, or by a path to a YAML file.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var registryShowCmd = &cobra.Command{
	Use:   "show <registry>",
	Short: "Print a registry with its default keys filled in",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		target := mustResolveRegistry(args[0], getRegistryConfigFromFlags(cmd))

		doc, err := registry.LoadRegistry(target.Path, target.Keys...)
		if err != nil {
			presenter.Error(err, "Failed to load registry")
			os.Exit(1)
		}
		data, err := registry.Marshal(doc)
		if err != nil {
			presenter.Error(err, "Failed to render registry")
			os.Exit(1)
		}
		fmt.Print(string(data))
	},
}

var registryKeysCmd = &cobra.Command{
	Use:   "keys <registry>",
	Short: "Show the top-level keys of a registry and their entry counts",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		target := mustResolveRegistry(args[0], getRegistryConfigFromFlags(cmd))

		doc, err := registry.LoadRegistry(target.Path, target.Keys...)
		if err != nil {
			presenter.Error(err, "Failed to load registry")
			os.Exit(1)
		}
		presenter.Section(target.Path)
		showPairs(registrySummary(doc))
	},
}

var registryInitCmd = &cobra.Command{
	Use:   "init <registry>",
	Short: "Write a registry with its default keys, keeping existing entries",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		target := mustResolveRegistry(args[0], getRegistryConfigFromFlags(cmd))

		doc, err := registry.LoadRegistry(target.Path, target.Keys...)
		if err != nil {
			presenter.Error(err, "Failed to load registry")
			os.Exit(1)
		}
		if err := registry.SaveRegistry(target.Path, doc, target.Title); err != nil {
			presenter.Error(err, "Failed to save registry")
			os.Exit(1)
		}
		presenter.Success(fmt.Sprintf("Initialized %s", target.Path))
	},
}

var registryAddCmd = &cobra.Command{
	Use:   "add <registry> <key> <entry>...",
	Short: "Append entries to a registry sequence",
	Long: `Append entries to a sequence of a registry. Each entry is parsed as YAML,
so mappings can be given inline.

Examples:
  pptlib registry add assets icons icons/arrow.svg
  pptlib registry add contents templates '{id: cover-01, category: cover}'
  pptlib registry add documents/proposal templates '{id: p-01, name: 제안서}'`,
	Args: cobra.MinimumNArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		target := mustResolveRegistry(args[0], getRegistryConfigFromFlags(cmd))

		added, err := addRegistryEntries(target, args[1], args[2:])
		if err != nil {
			presenter.Error(err, "Failed to update registry")
			os.Exit(1)
		}
		presenter.Success(fmt.Sprintf("Added %d entries to %s in %s", added, args[1], target.Path))
	},
}

func init() {
	defaults := NewRegistryConfig()
	for _, cmd := range []*cobra.Command{registryShowCmd, registryKeysCmd, registryInitCmd, registryAddCmd} {
		cmd.Flags().StringSlice("keys", defaults.Keys, "Keys that must exist (overrides the registry's defaults)")
	}
	registryInitCmd.Flags().String("title", defaults.Title, "Header title (overrides the registry's default title)")
	registryAddCmd.Flags().String("title", defaults.Title, "Header title (overrides the registry's default title)")

	registryCmd.AddCommand(registryShowCmd)
	registryCmd.AddCommand(registryKeysCmd)
	registryCmd.AddCommand(registryInitCmd)
	registryCmd.AddCommand(registryAddCmd)
}

func getRegistryConfigFromFlags(cmd *cobra.Command) *RegistryConfig {
	config := NewRegistryConfig()
	if keys, err := cmd.Flags().GetStringSlice("keys"); err == nil {
		config.Keys = keys
	}
	if title, err := cmd.Flags().GetString("title"); err == nil {
		config.Title = title
	}
	return config
}

func mustResolveRegistry(name string, config *RegistryConfig) registryTarget {
	target, err := resolveRegistry(projectLayout(), name, config)
	if err != nil {
		presenter.Error(err, "Failed to resolve registry")
		os.Exit(1)
	}
	return target
}

// resolveRegistry maps a registry name, documents/<group> or a file path to
// its target. Names are looked up in the project layout first.
func resolveRegistry(l layout.Layout, name string, config *RegistryConfig) (registryTarget, error) {
	var target registryTarget

	switch {
	case l.Registries()[name] != "":
		defaults := registryDefaults[name]
		target = registryTarget{Path: l.Registries()[name], Keys: defaults.keys, Title: defaults.title}
	case strings.HasPrefix(name, "documents/"):
		group := strings.TrimPrefix(name, "documents/")
		if group == "" || strings.ContainsAny(group, `/\`) || group == "." || group == ".." {
			return registryTarget{}, errors.Errorf("invalid document group %q", group)
		}
		defaults := registryDefaults["documents"]
		target = registryTarget{Path: l.DocumentRegistry(group), Keys: defaults.keys, Title: defaults.title}
	case strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml"):
		target = registryTarget{Path: name, Keys: registry.DefaultKeys, Title: registry.DefaultTitle}
	default:
		return registryTarget{}, errors.Errorf("unknown registry %q: use themes, contents, assets, documents/<group> or a .yaml path", name)
	}

	if len(config.Keys) > 0 {
		target.Keys = config.Keys
	}
	if config.Title != "" {
		target.Title = config.Title
	}
	return target, nil
}

func addRegistryEntries(target registryTarget, key string, rawEntries []string) (int, error) {
	doc, err := registry.LoadRegistry(target.Path, target.Keys...)
	if err != nil {
		return 0, err
	}

	entries := make([]any, 0, len(rawEntries))
	for _, raw := range rawEntries {
		entry, err := registry.ParseValue(raw)
		if err != nil {
			return 0, err
		}
		entries = append(entries, entry)
	}

	if err := doc.Append(key, entries...); err != nil {
		return 0, err
	}
	if err := registry.SaveRegistry(target.Path, doc, target.Title); err != nil {
		return 0, err
	}
	return len(entries), nil
}

func registrySummary(doc *registry.Document) [][2]string {
	pairs := make([][2]string, 0, doc.Len())
	for _, key := range doc.Keys() {
		value, _ := doc.Get(key)
		switch v := value.(type) {
		case []any:
			pairs = append(pairs, [2]string{key, fmt.Sprintf("%d entries", len(v))})
		case nil:
			pairs = append(pairs, [2]string{key, "null"})
		default:
			pairs = append(pairs, [2]string{key, fmt.Sprintf("%T", v)})
		}
	}
	return pairs
}
