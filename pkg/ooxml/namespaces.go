package ooxml

// OOXML namespace URIs referenced by presentation parts.
const (
	NamespaceDrawingML     = "http://schemas.openxmlformats.org/drawingml/2006/main"
	NamespaceRelationships = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	NamespacePresentation  = "http://schemas.openxmlformats.org/presentationml/2006/main"
	NamespacePackageRels   = "http://schemas.openxmlformats.org/package/2006/relationships"
	NamespaceChart         = "http://schemas.openxmlformats.org/drawingml/2006/chart"
)

var namespaces = map[string]string{
	"a":   NamespaceDrawingML,
	"r":   NamespaceRelationships,
	"p":   NamespacePresentation,
	"rel": NamespacePackageRels,
	"c":   NamespaceChart,
}

// Namespace returns the URI registered for a short prefix such as "a" or "p".
func Namespace(prefix string) (string, bool) {
	uri, ok := namespaces[prefix]
	return uri, ok
}

// Namespaces returns a copy of the prefix to URI table. Mutating the result
// does not affect later calls.
func Namespaces() map[string]string {
	out := make(map[string]string, len(namespaces))
	for prefix, uri := range namespaces {
		out[prefix] = uri
	}
	return out
}
