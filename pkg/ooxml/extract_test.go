package ooxml

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type member struct {
	name    string
	content string
}

const slideXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>Hello</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/></Relationships>`

// writeContainer builds a zip archive with the members in the given order.
func writeContainer(t *testing.T, members ...member) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "deck.pptx")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for _, m := range members {
		mw, err := w.Create(m.name)
		require.NoError(t, err)
		_, err = mw.Write([]byte(m.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return path
}

func sampleDeck(t *testing.T) string {
	t.Helper()
	return writeContainer(t,
		member{"[Content_Types].xml", `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`},
		member{"ppt/slides/slide1.xml", slideXML},
		member{"ppt/slides/_rels/slide1.xml.rels", relsXML},
		member{"ppt/slides/slide2.xml", slideXML},
		member{"ppt/slides/_rels/slide2.xml.rels", relsXML},
		member{"ppt/slides/_rels/slide3.xml", relsXML},
		member{"ppt/slideLayouts/slideLayout1.xml", `<p:sldLayout xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"/>`},
		member{"ppt/slideLayouts/_rels/slideLayout1.xml.rels", relsXML},
		member{"ppt/slideMasters/slideMaster1.xml", `<p:sldMaster xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"/>`},
		member{"ppt/theme/theme1.xml", `<a:theme xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" name="Office"/>`},
		member{"ppt/media/notes.txt", "not xml at all"},
	)
}

func TestExtract_PresentPart(t *testing.T) {
	deck := sampleDeck(t)
	ctx := context.Background()

	part, err := Extract(ctx, deck, "ppt/slides/slide1.xml", true)
	require.NoError(t, err)

	assert.True(t, part.Found())
	assert.True(t, part.Formatted)
	assert.Equal(t, "ppt/slides/slide1.xml", part.Path)
	assert.Contains(t, part.Text, "\n  <p:cSld>\n")
	assert.Contains(t, part.Text, "<a:t>Hello</a:t>")
	assert.Contains(t, part.Text, `xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`)
}

func TestExtract_RawPart(t *testing.T) {
	deck := sampleDeck(t)

	part, err := Extract(context.Background(), deck, "ppt/slides/slide1.xml", false)
	require.NoError(t, err)

	assert.False(t, part.Formatted)
	assert.Equal(t, slideXML, part.Text)
}

func TestExtract_MissingPartIsEmpty(t *testing.T) {
	deck := sampleDeck(t)

	for _, internalPath := range []string{"ppt/slides/slide99.xml", "ppt/slides", "", "PPT/SLIDES/SLIDE1.XML"} {
		t.Run(internalPath, func(t *testing.T) {
			part, err := Extract(context.Background(), deck, internalPath, true)
			require.NoError(t, err)
			assert.Equal(t, "", part.Text)
			assert.False(t, part.Found())
			assert.False(t, part.Formatted)
		})
	}
}

func TestExtract_NonXMLFallsBackToRaw(t *testing.T) {
	deck := sampleDeck(t)

	part, err := Extract(context.Background(), deck, "ppt/media/notes.txt", true)
	require.NoError(t, err)

	assert.Equal(t, "not xml at all", part.Text)
	assert.False(t, part.Formatted)
}

func TestExtract_MalformedXMLFallsBackToRaw(t *testing.T) {
	broken := `<p:sld xmlns:p="urn:x"><p:cSld></p:sld>`
	deck := writeContainer(t, member{"ppt/slides/slide1.xml", broken})

	part, err := Extract(context.Background(), deck, "ppt/slides/slide1.xml", true)
	require.NoError(t, err)

	assert.Equal(t, broken, part.Text)
	assert.False(t, part.Formatted)
}

func TestExtract_ByteOrderMarks(t *testing.T) {
	utf16 := []byte{0xFF, 0xFE}
	for _, r := range "<a>é</a>" {
		utf16 = append(utf16, byte(r), byte(r>>8))
	}

	deck := writeContainer(t,
		member{"utf8.xml", "\xEF\xBB\xBF<a>é</a>"},
		member{"utf16.xml", string(utf16)},
	)

	for _, name := range []string{"utf8.xml", "utf16.xml"} {
		t.Run(name, func(t *testing.T) {
			part, err := Extract(context.Background(), deck, name, false)
			require.NoError(t, err)
			assert.Equal(t, "<a>é</a>", part.Text)
		})
	}
}

func TestExtract_InvalidUTF8(t *testing.T) {
	deck := writeContainer(t, member{"ppt/slides/slide1.xml", "<a>\xc3\x28 bad</a>"})

	for _, pretty := range []bool{true, false} {
		part, err := Extract(context.Background(), deck, "ppt/slides/slide1.xml", pretty)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not valid UTF-8")
		assert.False(t, part.Found())
	}
}

func TestExtract_ContainerErrors(t *testing.T) {
	dir := t.TempDir()
	notZip := filepath.Join(dir, "plain.pptx")
	require.NoError(t, os.WriteFile(notZip, []byte("hello"), 0o644))

	tests := []struct {
		name      string
		container string
	}{
		{"missing file", filepath.Join(dir, "missing.pptx")},
		{"not a zip", notZip},
		{"directory", dir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(context.Background(), tt.container, "ppt/slides/slide1.xml", true)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "failed to open container")

			_, err = ListParts(context.Background(), tt.container, "")
			require.Error(t, err)

			_, err = CountSlides(context.Background(), tt.container)
			require.Error(t, err)
		})
	}
}

func TestAccessors(t *testing.T) {
	deck := sampleDeck(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		extract  func(context.Context, string, int) (Part, error)
		n        int
		wantPath string
		found    bool
	}{
		{"slide", ExtractSlide, 2, "ppt/slides/slide2.xml", true},
		{"slide rels", ExtractSlideRels, 1, "ppt/slides/_rels/slide1.xml.rels", true},
		{"layout", ExtractLayout, 1, "ppt/slideLayouts/slideLayout1.xml", true},
		{"layout rels", ExtractLayoutRels, 1, "ppt/slideLayouts/_rels/slideLayout1.xml.rels", true},
		{"master", ExtractMaster, 1, "ppt/slideMasters/slideMaster1.xml", true},
		{"master rels", ExtractMasterRels, 1, "ppt/slideMasters/_rels/slideMaster1.xml.rels", false},
		{"theme", ExtractTheme, 1, "ppt/theme/theme1.xml", true},
		{"theme rels", ExtractThemeRels, 1, "ppt/theme/_rels/theme1.xml.rels", false},
		{"out of range", ExtractLayout, 42, "ppt/slideLayouts/slideLayout42.xml", false},
		{"zero index", ExtractSlide, 0, "ppt/slides/slide0.xml", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			part, err := tt.extract(ctx, deck, tt.n)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, part.Path)
			assert.Equal(t, tt.found, part.Found())
			if tt.found {
				assert.True(t, part.Formatted)
			}
		})
	}
}

func TestExtractText(t *testing.T) {
	deck := sampleDeck(t)

	text, err := ExtractText(context.Background(), deck, "ppt/theme/theme1.xml")
	require.NoError(t, err)
	assert.Equal(t, "<a:theme xmlns:a=\"http://schemas.openxmlformats.org/drawingml/2006/main\" name=\"Office\"/>\n", text)

	text, err = ExtractText(context.Background(), deck, "ppt/theme/theme2.xml")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestListParts(t *testing.T) {
	deck := sampleDeck(t)
	ctx := context.Background()

	all, err := ListParts(ctx, deck, "")
	require.NoError(t, err)
	assert.Len(t, all, 11)
	assert.Equal(t, "[Content_Types].xml", all[0])
	assert.Equal(t, "ppt/media/notes.txt", all[len(all)-1])

	slides, err := ListParts(ctx, deck, "ppt/slides/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"ppt/slides/slide1.xml",
		"ppt/slides/_rels/slide1.xml.rels",
		"ppt/slides/slide2.xml",
		"ppt/slides/_rels/slide2.xml.rels",
		"ppt/slides/_rels/slide3.xml",
	}, slides)

	none, err := ListParts(ctx, deck, "word/")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestGlobParts(t *testing.T) {
	deck := sampleDeck(t)
	ctx := context.Background()

	xmlSlides, err := GlobParts(ctx, deck, "ppt/slides/*.xml")
	require.NoError(t, err)
	assert.Equal(t, []string{"ppt/slides/slide1.xml", "ppt/slides/slide2.xml"}, xmlSlides)

	rels, err := GlobParts(ctx, deck, "ppt/**/*.rels")
	require.NoError(t, err)
	assert.Len(t, rels, 3)

	_, err = GlobParts(ctx, deck, "ppt/[slides")
	require.Error(t, err)
}

func TestCounts(t *testing.T) {
	deck := sampleDeck(t)
	ctx := context.Background()

	slides, err := CountSlides(ctx, deck)
	require.NoError(t, err)
	assert.Equal(t, 2, slides, "_rels members must not be counted even when they end in .xml")

	layouts, err := CountLayouts(ctx, deck)
	require.NoError(t, err)
	assert.Equal(t, 1, layouts)

	masters, err := CountMasters(ctx, deck)
	require.NoError(t, err)
	assert.Equal(t, 1, masters)

	themes, err := CountThemes(ctx, deck)
	require.NoError(t, err)
	assert.Equal(t, 1, themes)

	empty := writeContainer(t, member{"docProps/app.xml", "<Properties/>"})
	slides, err = CountSlides(ctx, empty)
	require.NoError(t, err)
	assert.Zero(t, slides)
}
