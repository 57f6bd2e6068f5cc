// Package layout describes where the generation tooling keeps templates,
// registries and per-session output below a project root.
//
//	<root>/templates/themes/<theme>.yaml
//	<root>/templates/contents/registry.yaml
//	<root>/templates/contents/templates/<category>/<id>.yaml
//	<root>/templates/documents/<group>/registry.yaml
//	<root>/templates/assets/registry.yaml
//	<root>/output/<session>/
//
// A Layout is a plain value; pass it to whatever needs paths instead of
// relying on package-level constants.
package layout

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// RegistryFileName is the registry file kept in each templates subdirectory.
const RegistryFileName = "registry.yaml"

// Viper keys read by FromViper.
const (
	KeyRoot      = "root"
	KeyOutputDir = "output_dir"
)

// Layout holds the resolved directories of a project.
type Layout struct {
	Root      string
	Templates string
	Themes    string
	Contents  string
	Documents string
	Assets    string
	Output    string
}

// New derives the standard layout from a project root.
func New(root string) Layout {
	templates := filepath.Join(root, "templates")
	return Layout{
		Root:      root,
		Templates: templates,
		Themes:    filepath.Join(templates, "themes"),
		Contents:  filepath.Join(templates, "contents"),
		Documents: filepath.Join(templates, "documents"),
		Assets:    filepath.Join(templates, "assets"),
		Output:    filepath.Join(root, "output"),
	}
}

// FromViper builds a layout from the "root" key, defaulting to the current
// directory, and honours an "output_dir" override.
func FromViper(v *viper.Viper) (Layout, error) {
	root := v.GetString(KeyRoot)
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Layout{}, errors.Wrap(err, "failed to get current working directory")
		}
		root = wd
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return Layout{}, errors.Wrapf(err, "failed to resolve project root %s", root)
	}

	l := New(abs)
	if out := v.GetString(KeyOutputDir); out != "" {
		l.Output = out
	}
	return l, nil
}

func (l Layout) ThemesRegistry() string {
	return filepath.Join(l.Themes, RegistryFileName)
}

func (l Layout) ContentsRegistry() string {
	return filepath.Join(l.Contents, RegistryFileName)
}

func (l Layout) AssetsRegistry() string {
	return filepath.Join(l.Assets, RegistryFileName)
}

// DocumentRegistry returns the registry of one document group.
func (l Layout) DocumentRegistry(group string) string {
	return filepath.Join(l.Documents, group, RegistryFileName)
}

// ThemePath returns the YAML file describing a theme.
func (l Layout) ThemePath(themeID string) string {
	return filepath.Join(l.Themes, themeID+".yaml")
}

// ContentTemplatePath returns the YAML file of a content template.
func (l Layout) ContentTemplatePath(category, templateID string) string {
	return filepath.Join(l.Contents, "templates", category, templateID+".yaml")
}

// SessionDir returns the output directory of a session without creating it.
func (l Layout) SessionDir(sessionID string) string {
	return filepath.Join(l.Output, sessionID)
}

// EnsureOutputDir creates the output directory of a session and returns its
// path. An empty sessionID gets a fresh random one.
func (l Layout) EnsureOutputDir(sessionID string) (string, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if sessionID != filepath.Base(sessionID) || sessionID == "." || sessionID == ".." {
		return "", errors.Errorf("invalid session id %q", sessionID)
	}

	dir := l.SessionDir(sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create output directory %s", dir)
	}
	return dir, nil
}

// Registries maps the short registry names used on the command line to
// their paths. Document groups are addressed separately via DocumentRegistry.
func (l Layout) Registries() map[string]string {
	return map[string]string{
		"themes":   l.ThemesRegistry(),
		"contents": l.ContentsRegistry(),
		"assets":   l.AssetsRegistry(),
	}
}
