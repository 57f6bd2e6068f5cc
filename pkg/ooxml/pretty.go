package ooxml

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/pkg/errors"
)

const indentUnit = "  "

type nodeKind int

const (
	elementNode nodeKind = iota
	textNode
	commentNode
	procInstNode
	directiveNode
)

// xmlNode keeps names exactly as written (prefix:local) so that the output
// reproduces the source namespace declarations untouched.
type xmlNode struct {
	kind     nodeKind
	name     string
	attrs    []xml.Attr
	text     string
	children []*xmlNode
}

var (
	textEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\r", "&#13;",
	)
	attrEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"\n", "&#10;",
		"\r", "&#13;",
		"\t", "&#9;",
	)
)

// PrettyPrint re-serializes an XML document with two-space indentation.
//
// Elements that only contain other elements are broken onto separate lines.
// Elements holding any text are written inline exactly as parsed, so text
// content (including whitespace-only runs) is never altered. Running
// PrettyPrint over its own output returns the same string.
func PrettyPrint(text string) (string, error) {
	nodes, err := parseNodes(text)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	first := true
	for _, n := range nodes {
		if n.kind == textNode {
			continue
		}
		if !first {
			b.WriteByte('\n')
		}
		first = false
		writeNode(&b, n, 0)
	}
	b.WriteByte('\n')
	return b.String(), nil
}

func parseNodes(text string) ([]*xmlNode, error) {
	d := xml.NewDecoder(strings.NewReader(text))
	// Part text has already been decoded to UTF-8 regardless of what the
	// declaration says.
	d.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	doc := &xmlNode{kind: elementNode}
	stack := []*xmlNode{doc}
	for {
		tok, err := d.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse xml")
		}

		parent := stack[len(stack)-1]
		switch t := tok.(type) {
		case xml.StartElement:
			n := &xmlNode{kind: elementNode, name: qualifiedName(t.Name)}
			for _, attr := range t.Attr {
				n.attrs = append(n.attrs, xml.Attr{
					Name:  xml.Name{Local: qualifiedName(attr.Name)},
					Value: attr.Value,
				})
			}
			parent.children = append(parent.children, n)
			stack = append(stack, n)
		case xml.EndElement:
			name := qualifiedName(t.Name)
			if len(stack) == 1 || parent.name != name {
				return nil, errors.Errorf("unexpected closing tag </%s>", name)
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			parent.children = append(parent.children, &xmlNode{kind: textNode, text: string(t)})
		case xml.Comment:
			parent.children = append(parent.children, &xmlNode{kind: commentNode, text: string(t)})
		case xml.ProcInst:
			parent.children = append(parent.children, &xmlNode{kind: procInstNode, name: t.Target, text: string(t.Inst)})
		case xml.Directive:
			parent.children = append(parent.children, &xmlNode{kind: directiveNode, text: string(t)})
		}
	}

	if len(stack) != 1 {
		return nil, errors.Errorf("unclosed element <%s>", stack[len(stack)-1].name)
	}

	roots := 0
	for _, n := range doc.children {
		switch n.kind {
		case elementNode:
			roots++
		case textNode:
			if !isXMLSpace(n.text) {
				return nil, errors.New("text outside of the root element")
			}
		}
	}
	if roots != 1 {
		return nil, errors.Errorf("expected exactly one root element, found %d", roots)
	}

	return doc.children, nil
}

func qualifiedName(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}

func isXMLSpace(s string) bool {
	return strings.Trim(s, " \t\r\n") == ""
}

// writesInline reports whether an element keeps its content on one line:
// either it holds no markup at all or it mixes markup with real text.
func writesInline(n *xmlNode) bool {
	markup := false
	for _, c := range n.children {
		if c.kind != textNode {
			markup = true
			continue
		}
		if !isXMLSpace(c.text) {
			return true
		}
	}
	return !markup
}

func writeNode(b *strings.Builder, n *xmlNode, depth int) {
	indent := strings.Repeat(indentUnit, depth)
	b.WriteString(indent)

	if n.kind != elementNode {
		writeInline(b, n)
		return
	}

	if len(n.children) == 0 || writesInline(n) {
		writeInline(b, n)
		return
	}

	writeStartTag(b, n)
	b.WriteByte('>')
	for _, c := range n.children {
		if c.kind == textNode {
			continue
		}
		b.WriteByte('\n')
		writeNode(b, c, depth+1)
	}
	b.WriteByte('\n')
	b.WriteString(indent)
	writeEndTag(b, n)
}

func writeInline(b *strings.Builder, n *xmlNode) {
	switch n.kind {
	case textNode:
		b.WriteString(textEscaper.Replace(n.text))
	case commentNode:
		b.WriteString("<!--")
		b.WriteString(n.text)
		b.WriteString("-->")
	case procInstNode:
		b.WriteString("<?")
		b.WriteString(n.name)
		if n.text != "" {
			b.WriteByte(' ')
			b.WriteString(n.text)
		}
		b.WriteString("?>")
	case directiveNode:
		b.WriteString("<!")
		b.WriteString(n.text)
		b.WriteByte('>')
	case elementNode:
		writeStartTag(b, n)
		if len(n.children) == 0 {
			b.WriteString("/>")
			return
		}
		b.WriteByte('>')
		for _, c := range n.children {
			writeInline(b, c)
		}
		writeEndTag(b, n)
	}
}

func writeStartTag(b *strings.Builder, n *xmlNode) {
	b.WriteByte('<')
	b.WriteString(n.name)
	for _, attr := range n.attrs {
		b.WriteByte(' ')
		b.WriteString(attr.Name.Local)
		b.WriteString(`="`)
		b.WriteString(attrEscaper.Replace(attr.Value))
		b.WriteByte('"')
	}
}

func writeEndTag(b *strings.Builder, n *xmlNode) {
	b.WriteString("</")
	b.WriteString(n.name)
	b.WriteByte('>')
}
