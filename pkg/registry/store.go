// Package registry loads and saves the small YAML registries that track
// templates, themes and assets. A registry file is a YAML mapping whose
// top-level keys hold sequences of entries, preceded by a comment header and
// usually a "last updated" timestamp comment.
//
// Loading is lenient about absence (a missing or empty file yields the default
// document) and strict about syntax (malformed YAML is returned as an error so
// a broken registry is never silently replaced). Saving is a plain overwrite;
// concurrent writers to the same path are not coordinated.
package registry

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jongik-sv/pptlib/pkg/logger"
)

const (
	// DefaultTitle is the header title used by SaveRegistry when none is given.
	DefaultTitle = "registry"
	// DefaultTimestampLabel prefixes the timestamp comment.
	DefaultTimestampLabel = "last updated"
	// TimestampLayout is the minute-precision local time written on save.
	TimestampLayout = "2006-01-02 15:04"
)

// DefaultKeys are the keys guaranteed by LoadRegistry when none are given.
var DefaultKeys = []string{"templates"}

type saveOptions struct {
	header         string
	timestamp      bool
	timestampLabel string
	now            func() time.Time
}

// SaveOption configures SaveDocument.
type SaveOption func(*saveOptions)

// WithHeader prepends header as comment lines. Lines that do not already start
// with '#' are turned into comments.
func WithHeader(header string) SaveOption {
	return func(o *saveOptions) {
		o.header = header
	}
}

// WithTimestamp adds a "# <label>: YYYY-MM-DD HH:MM" line after the header.
func WithTimestamp() SaveOption {
	return func(o *saveOptions) {
		o.timestamp = true
	}
}

// WithTimestampLabel overrides DefaultTimestampLabel.
func WithTimestampLabel(label string) SaveOption {
	return func(o *saveOptions) {
		o.timestampLabel = label
	}
}

// WithClock overrides the time source used for the timestamp comment.
func WithClock(now func() time.Time) SaveOption {
	return func(o *saveOptions) {
		o.now = now
	}
}

// LoadDocument reads the document at path. When the file does not exist or
// parses to an empty result (nothing but comments, null, an empty mapping or
// sequence, an empty string, false or zero), def is returned (an empty
// document when def is nil). Otherwise the parsed document is returned as-is.
func LoadDocument(path string, def *Document) (*Document, error) {
	if def == nil {
		def = NewDocument()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.L.WithField("path", path).Debug("registry not found, using default")
			return def, nil
		}
		return nil, errors.Wrapf(err, "failed to read registry %s", path)
	}

	doc, err := Unmarshal(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load registry %s", path)
	}
	if doc.Len() == 0 {
		logger.L.WithField("path", path).Debug("registry is empty, using default")
		return def, nil
	}
	return doc, nil
}

// SaveDocument writes doc to path as YAML, creating parent directories as
// needed. Keys are written in document order and non-ASCII text is written
// literally. The write is not atomic: a failure part way through can leave a
// truncated file behind.
func SaveDocument(path string, doc *Document, opts ...SaveOption) error {
	o := saveOptions{
		timestampLabel: DefaultTimestampLabel,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	body, err := Marshal(doc)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if o.header != "" {
		buf.WriteString(commentBlock(o.header))
	}
	if o.timestamp {
		fmt.Fprintf(&buf, "# %s: %s\n\n", o.timestampLabel, o.now().Format(TimestampLayout))
	}
	buf.Write(body)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", path)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write registry %s", path)
	}
	logger.L.WithField("path", path).WithField("keys", doc.Len()).Debug("saved registry")
	return nil
}

// Normalize returns a copy of raw in which every key of keys is present and
// holds a sequence: missing or null values become an empty sequence. Keys
// already present keep their position, added keys follow in the order given,
// and keys outside keys are carried over unchanged. raw may be nil.
func Normalize(raw *Document, keys []string) *Document {
	out := raw.Clone()
	for _, key := range keys {
		if value, ok := out.Get(key); !ok || value == nil {
			out.Set(key, []any{})
		}
	}
	return out
}

// LoadRegistry loads the registry at path and normalizes it so that each of
// keys (DefaultKeys when empty) is present.
func LoadRegistry(path string, keys ...string) (*Document, error) {
	if len(keys) == 0 {
		keys = DefaultKeys
	}

	doc, err := LoadDocument(path, nil)
	if err != nil {
		return nil, err
	}
	return Normalize(doc, keys), nil
}

// SaveRegistry saves doc under a "# <title>" header followed by the
// timestamp comment.
func SaveRegistry(path string, doc *Document, title string) error {
	if title == "" {
		title = DefaultTitle
	}
	return SaveDocument(path, doc, WithHeader("# "+title+"\n"), WithTimestamp())
}

func commentBlock(header string) string {
	lines := strings.Split(strings.TrimSuffix(header, "\n"), "\n")
	for i, line := range lines {
		if line != "" && !strings.HasPrefix(line, "#") {
			lines[i] = "# " + line
		}
	}
	return strings.Join(lines, "\n") + "\n"
}
