package registry

import (
	"bytes"

	"github.com/pkg/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// Document is a registry mapping from top-level keys to arbitrary YAML values,
// usually sequences of entries. Keys keep the order in which they were first
// set or read from disk, and that order is what gets written back.
//
// Values decoded from YAML are []any for sequences, *Document for nested
// mappings (so entry fields keep their order too), and string, int, float64
// or bool for scalars. ToMap flattens nested documents into plain maps.
type Document struct {
	entries *orderedmap.OrderedMap[string, any]
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{entries: orderedmap.New[string, any]()}
}

func (d *Document) init() {
	if d.entries == nil {
		d.entries = orderedmap.New[string, any]()
	}
}

// Get returns the value stored under key.
func (d *Document) Get(key string) (any, bool) {
	if d == nil || d.entries == nil {
		return nil, false
	}
	return d.entries.Get(key)
}

// Set stores value under key. A new key is appended at the end; an existing
// key keeps its position.
func (d *Document) Set(key string, value any) {
	d.init()
	d.entries.Set(key, value)
}

// Delete removes key and reports whether it was present.
func (d *Document) Delete(key string) bool {
	if d == nil || d.entries == nil {
		return false
	}
	_, ok := d.entries.Delete(key)
	return ok
}

// Has reports whether key is present, even when its value is null.
func (d *Document) Has(key string) bool {
	_, ok := d.Get(key)
	return ok
}

// Len returns the number of top-level keys.
func (d *Document) Len() int {
	if d == nil || d.entries == nil {
		return 0
	}
	return d.entries.Len()
}

// Keys returns the top-level keys in document order.
func (d *Document) Keys() []string {
	keys := make([]string, 0, d.Len())
	if d.Len() == 0 {
		return keys
	}
	for pair := d.entries.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Sequence returns the value under key when it is a sequence, nil otherwise.
func (d *Document) Sequence(key string) []any {
	value, _ := d.Get(key)
	seq, _ := value.([]any)
	return seq
}

// Append adds entries to the sequence stored under key, creating it when
// missing or null. It fails when key holds something other than a sequence.
func (d *Document) Append(key string, entries ...any) error {
	value, _ := d.Get(key)
	if value == nil {
		value = []any{}
	}
	seq, ok := value.([]any)
	if !ok {
		return errors.Errorf("registry key %q holds %T, not a sequence", key, value)
	}
	d.Set(key, append(seq, entries...))
	return nil
}

// Clone returns a copy of the document sharing its values.
func (d *Document) Clone() *Document {
	out := NewDocument()
	for _, key := range d.Keys() {
		value, _ := d.Get(key)
		out.Set(key, value)
	}
	return out
}

// ToMap returns the document as an unordered map, converting nested
// documents recursively.
func (d *Document) ToMap() map[string]any {
	out := make(map[string]any, d.Len())
	for _, key := range d.Keys() {
		value, _ := d.Get(key)
		out[key] = plain(value)
	}
	return out
}

func plain(value any) any {
	switch v := value.(type) {
	case *Document:
		if v == nil {
			return nil
		}
		return v.ToMap()
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = plain(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = plain(item)
		}
		return out
	default:
		return value
	}
}

// MarshalYAML implements yaml.Marshaler, emitting keys in document order.
func (d *Document) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range d.Keys() {
		value, _ := d.Get(key)

		keyNode := &yaml.Node{}
		if err := keyNode.Encode(key); err != nil {
			return nil, errors.Wrapf(err, "failed to encode key %q", key)
		}
		valueNode := &yaml.Node{}
		if err := valueNode.Encode(value); err != nil {
			return nil, errors.Wrapf(err, "failed to encode value of %q", key)
		}
		node.Content = append(node.Content, keyNode, valueNode)
	}
	return node, nil
}

// UnmarshalYAML implements yaml.Unmarshaler. The node must be a mapping.
func (d *Document) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	if node.Kind != yaml.MappingNode {
		return errors.Errorf("registry document must be a mapping, got %s", describeNode(node))
	}

	explicit := make(map[string]bool, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		if !isMergeKey(node.Content[i]) {
			explicit[node.Content[i].Value] = true
		}
	}

	d.entries = orderedmap.New[string, any]()
	merged := make(map[string]bool)
	for i := 0; i+1 < len(node.Content); i += 2 {
		if isMergeKey(node.Content[i]) {
			if err := d.merge(node.Content[i+1], explicit, merged); err != nil {
				return errors.Wrapf(err, "line %d: invalid merge", node.Content[i].Line)
			}
			continue
		}

		var key string
		if err := node.Content[i].Decode(&key); err != nil {
			return errors.Wrapf(err, "line %d: invalid key", node.Content[i].Line)
		}
		value, err := decodeValue(node.Content[i+1])
		if err != nil {
			return errors.Wrapf(err, "line %d: invalid value for %q", node.Content[i+1].Line, key)
		}
		d.entries.Set(key, value)
	}
	return nil
}

func isMergeKey(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.ShortTag() == "!!merge"
}

// merge copies the keys of a "<<" value, a mapping or a sequence of
// mappings, into d. Keys set explicitly in the mapping win, and among the
// merged mappings the earlier one wins.
func (d *Document) merge(value *yaml.Node, explicit, merged map[string]bool) error {
	if value.Kind == yaml.AliasNode && value.Alias != nil {
		value = value.Alias
	}

	sources := []*yaml.Node{value}
	if value.Kind == yaml.SequenceNode {
		sources = value.Content
	}

	for _, source := range sources {
		if source.Kind == yaml.AliasNode && source.Alias != nil {
			source = source.Alias
		}
		if source.Kind != yaml.MappingNode {
			return errors.Errorf("merge value must be a mapping or a sequence of mappings, got %s", describeNode(source))
		}

		nested := NewDocument()
		if err := nested.UnmarshalYAML(source); err != nil {
			return err
		}
		for _, key := range nested.Keys() {
			if explicit[key] || merged[key] {
				continue
			}
			item, _ := nested.Get(key)
			d.entries.Set(key, item)
			merged[key] = true
		}
	}
	return nil
}

func decodeValue(node *yaml.Node) (any, error) {
	if node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}

	switch node.Kind {
	case yaml.MappingNode:
		nested := NewDocument()
		if err := nested.UnmarshalYAML(node); err != nil {
			return nil, err
		}
		return nested, nil
	case yaml.SequenceNode:
		items := make([]any, 0, len(node.Content))
		for _, child := range node.Content {
			item, err := decodeValue(child)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	default:
		var value any
		if err := node.Decode(&value); err != nil {
			return nil, err
		}
		return value, nil
	}
}

// Marshal encodes a document as YAML with two-space indentation. A nil
// document encodes as an empty mapping.
func Marshal(doc *Document) ([]byte, error) {
	if doc == nil {
		doc = NewDocument()
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return nil, errors.Wrap(err, "failed to encode registry document")
	}
	if err := encoder.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to encode registry document")
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes YAML into a document. It returns nil with no error when
// the input holds no document or an empty value: nothing but comments, null,
// an empty sequence, an empty string, false or zero.
func Unmarshal(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errors.Wrap(err, "failed to parse registry yaml")
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, nil
	}

	content := root.Content[0]
	if isEmptyNode(content) {
		return nil, nil
	}

	doc := NewDocument()
	if err := content.Decode(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ParseValue decodes a single YAML value such as an inline entry
// "{id: cover, file: cover.yaml}". Mappings become *Document.
func ParseValue(text string) (any, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(text), &root); err != nil {
		return nil, errors.Wrapf(err, "failed to parse value %q", text)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, nil
	}
	return decodeValue(root.Content[0])
}

func isEmptyNode(node *yaml.Node) bool {
	if node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}

	switch node.Kind {
	case yaml.SequenceNode:
		return len(node.Content) == 0
	case yaml.ScalarNode:
		var value any
		if err := node.Decode(&value); err != nil {
			return false
		}
		switch v := value.(type) {
		case nil:
			return true
		case string:
			return v == ""
		case bool:
			return !v
		case int:
			return v == 0
		case int64:
			return v == 0
		case uint64:
			return v == 0
		case float64:
			return v == 0
		}
	}
	return false
}

func describeNode(node *yaml.Node) string {
	switch node.Kind {
	case yaml.SequenceNode:
		return "a sequence"
	case yaml.ScalarNode:
		return "scalar " + node.Tag
	default:
		return "an unsupported node"
	}
}
