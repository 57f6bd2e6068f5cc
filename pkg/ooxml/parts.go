package ooxml

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

const relsSegment = "/_rels/"

// Family is a group of numbered parts sharing a directory and file stem,
// e.g. ppt/slides/slide1.xml, ppt/slides/slide2.xml.
type Family struct {
	Dir  string
	Base string
}

var (
	Slides       = Family{Dir: "ppt/slides", Base: "slide"}
	SlideLayouts = Family{Dir: "ppt/slideLayouts", Base: "slideLayout"}
	SlideMasters = Family{Dir: "ppt/slideMasters", Base: "slideMaster"}
	Themes       = Family{Dir: "ppt/theme", Base: "theme"}
)

var familiesByName = map[string]Family{
	"slide":  Slides,
	"layout": SlideLayouts,
	"master": SlideMasters,
	"theme":  Themes,
}

// PartPath returns the internal path of the n-th part. n is 1-based and is
// not checked against the parts actually present.
func (f Family) PartPath(n int) string {
	return fmt.Sprintf("%s/%s%d.xml", f.Dir, f.Base, n)
}

// RelsPath returns the internal path of the relationship file belonging to
// the n-th part.
func (f Family) RelsPath(n int) string {
	return fmt.Sprintf("%s/_rels/%s%d.xml.rels", f.Dir, f.Base, n)
}

// Prefix returns the member name prefix shared by every part of the family,
// including its relationship files.
func (f Family) Prefix() string {
	return f.Dir + "/"
}

// FamilyByName resolves one of "slide", "layout", "master" or "theme".
func FamilyByName(name string) (Family, error) {
	f, ok := familiesByName[strings.ToLower(name)]
	if !ok {
		return Family{}, errors.Errorf("unknown part family %q (expected one of %s)", name, strings.Join(FamilyNames(), ", "))
	}
	return f, nil
}

// FamilyNames lists the names accepted by FamilyByName in sorted order.
func FamilyNames() []string {
	names := make([]string, 0, len(familiesByName))
	for name := range familiesByName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// isPrimaryPart reports whether name is an XML part rather than one of its
// _rels companions.
func isPrimaryPart(name string) bool {
	return strings.HasSuffix(name, ".xml") && !strings.Contains(name, relsSegment)
}
