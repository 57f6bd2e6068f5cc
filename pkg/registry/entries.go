package registry

import (
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// DecodeEntries decodes the sequence stored under key into out, which must be
// a pointer to a slice. Struct fields are matched by their `yaml` tag. A
// missing or null key decodes as an empty sequence.
//
// The store itself treats entries as opaque; this is for callers that want a
// typed view, e.g.
//
//	var templates []TemplateEntry
//	err := registry.DecodeEntries(doc, "templates", &templates)
func DecodeEntries(doc *Document, key string, out any) error {
	value, _ := doc.Get(key)
	if value == nil {
		value = []any{}
	}
	if _, ok := value.([]any); !ok {
		return errors.Errorf("registry key %q holds %T, not a sequence", key, value)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create entry decoder")
	}
	return errors.Wrapf(decoder.Decode(plain(value)), "failed to decode %q entries", key)
}
