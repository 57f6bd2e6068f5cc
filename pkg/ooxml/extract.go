// Package ooxml reads individual XML parts out of OOXML presentation
// containers (.pptx zip archives). Every call opens the container, does its
// work and closes it again; nothing is cached between calls.
//
// A part that is not present in a valid container is not an error: the
// returned Part simply carries empty text. Failing to open the container
// itself is always returned to the caller.
package ooxml

import (
	"archive/zip"
	"context"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/jongik-sv/pptlib/pkg/logger"
)

// Part is the text of one member of a container.
type Part struct {
	// Path is the internal path that was requested.
	Path string
	// Text is the decoded part content, empty when the part is absent.
	Text string
	// Formatted is true when Text was successfully pretty-printed. It stays
	// false for raw extraction and when the content could not be parsed as XML.
	Formatted bool
}

// Found reports whether the part had any content in the container.
func (p Part) Found() bool {
	return p.Text != ""
}

// Extract returns the member stored under internalPath. When pretty is set the
// content is re-indented with PrettyPrint on a best-effort basis; content that
// does not parse as XML is returned as-is with Formatted left false.
func Extract(ctx context.Context, container, internalPath string, pretty bool) (Part, error) {
	log := logger.G(ctx).WithField("container", container).WithField("part", internalPath)
	part := Part{Path: internalPath}

	r, err := openContainer(container)
	if err != nil {
		return part, err
	}
	defer r.Close()

	member := lookupMember(&r.Reader, internalPath)
	if member == nil {
		log.Debug("part not present in container")
		return part, nil
	}

	text, err := readMember(member)
	if err != nil {
		return part, err
	}
	part.Text = text

	if !pretty {
		return part, nil
	}

	formatted, err := PrettyPrint(text)
	if err != nil {
		log.WithError(err).Debug("part is not well-formed xml, returning raw text")
		return part, nil
	}
	part.Text = formatted
	part.Formatted = true
	return part, nil
}

// ExtractText is Extract with pretty-printing enabled, returning only the text.
func ExtractText(ctx context.Context, container, internalPath string) (string, error) {
	part, err := Extract(ctx, container, internalPath, true)
	if err != nil {
		return "", err
	}
	return part.Text, nil
}

// ExtractFamily extracts the n-th part of a family, or its relationship file
// when rels is set.
func ExtractFamily(ctx context.Context, container string, family Family, n int, rels bool) (Part, error) {
	internalPath := family.PartPath(n)
	if rels {
		internalPath = family.RelsPath(n)
	}
	return Extract(ctx, container, internalPath, true)
}

// ExtractSlide extracts ppt/slides/slide{n}.xml, pretty-printed.
func ExtractSlide(ctx context.Context, container string, n int) (Part, error) {
	return ExtractFamily(ctx, container, Slides, n, false)
}

// ExtractSlideRels extracts the relationships of slide n.
func ExtractSlideRels(ctx context.Context, container string, n int) (Part, error) {
	return ExtractFamily(ctx, container, Slides, n, true)
}

// ExtractLayout extracts ppt/slideLayouts/slideLayout{n}.xml, pretty-printed.
func ExtractLayout(ctx context.Context, container string, n int) (Part, error) {
	return ExtractFamily(ctx, container, SlideLayouts, n, false)
}

// ExtractLayoutRels extracts the relationships of slide layout n.
func ExtractLayoutRels(ctx context.Context, container string, n int) (Part, error) {
	return ExtractFamily(ctx, container, SlideLayouts, n, true)
}

// ExtractMaster extracts ppt/slideMasters/slideMaster{n}.xml, pretty-printed.
func ExtractMaster(ctx context.Context, container string, n int) (Part, error) {
	return ExtractFamily(ctx, container, SlideMasters, n, false)
}

// ExtractMasterRels extracts the relationships of slide master n.
func ExtractMasterRels(ctx context.Context, container string, n int) (Part, error) {
	return ExtractFamily(ctx, container, SlideMasters, n, true)
}

// ExtractTheme extracts ppt/theme/theme{n}.xml, pretty-printed.
func ExtractTheme(ctx context.Context, container string, n int) (Part, error) {
	return ExtractFamily(ctx, container, Themes, n, false)
}

// ExtractThemeRels extracts the relationships of theme n.
func ExtractThemeRels(ctx context.Context, container string, n int) (Part, error) {
	return ExtractFamily(ctx, container, Themes, n, true)
}

// ListParts returns the member names starting with prefix, in archive order.
// An empty prefix lists every member.
func ListParts(ctx context.Context, container, prefix string) ([]string, error) {
	return memberNames(ctx, container, func(name string) bool {
		return strings.HasPrefix(name, prefix)
	})
}

// GlobParts returns the member names matching a doublestar pattern such as
// "ppt/slides/*.xml" or "ppt/**/_rels/*.rels", in archive order.
func GlobParts(ctx context.Context, container, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, errors.Errorf("invalid part pattern %q", pattern)
	}
	return memberNames(ctx, container, func(name string) bool {
		ok, _ := doublestar.Match(pattern, name)
		return ok
	})
}

// CountFamily counts the primary parts of a family, ignoring _rels companions.
func CountFamily(ctx context.Context, container string, family Family) (int, error) {
	names, err := ListParts(ctx, container, family.Prefix())
	if err != nil {
		return 0, err
	}

	count := 0
	for _, name := range names {
		if isPrimaryPart(name) {
			count++
		}
	}
	return count, nil
}

// CountSlides returns the number of slides in the container.
func CountSlides(ctx context.Context, container string) (int, error) {
	return CountFamily(ctx, container, Slides)
}

// CountLayouts returns the number of slide layouts in the container.
func CountLayouts(ctx context.Context, container string) (int, error) {
	return CountFamily(ctx, container, SlideLayouts)
}

// CountMasters returns the number of slide masters in the container.
func CountMasters(ctx context.Context, container string) (int, error) {
	return CountFamily(ctx, container, SlideMasters)
}

// CountThemes returns the number of themes in the container.
func CountThemes(ctx context.Context, container string) (int, error) {
	return CountFamily(ctx, container, Themes)
}

func openContainer(container string) (*zip.ReadCloser, error) {
	r, err := zip.OpenReader(container)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open container %s", container)
	}
	return r, nil
}

func memberNames(ctx context.Context, container string, keep func(string) bool) ([]string, error) {
	r, err := openContainer(container)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		if keep(f.Name) {
			names = append(names, f.Name)
		}
	}

	logger.G(ctx).WithField("container", container).WithField("matched", len(names)).Debug("listed container members")
	return names, nil
}

func lookupMember(r *zip.Reader, name string) *zip.File {
	for _, f := range r.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// readMember decodes a member as UTF-8, switching to UTF-16 when the part
// starts with a UTF-16 byte order mark. A UTF-8 BOM is dropped. Content
// without a UTF-16 BOM must be valid UTF-8.
func readMember(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", errors.Wrapf(err, "failed to open part %s", f.Name)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read part %s", f.Name)
	}
	if !hasUTF16BOM(raw) && !utf8.Valid(raw) {
		return "", errors.Errorf("part %s is not valid UTF-8", f.Name)
	}

	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	content, _, err := transform.Bytes(decoder, raw)
	if err != nil {
		return "", errors.Wrapf(err, "failed to decode part %s", f.Name)
	}
	return string(content), nil
}

func hasUTF16BOM(b []byte) bool {
	return len(b) >= 2 && ((b[0] == 0xFF && b[1] == 0xFE) || (b[0] == 0xFE && b[1] == 0xFF))
}
