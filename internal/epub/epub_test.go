package epub

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testContainer = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const testOPF = `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="uid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Voyage au centre de la Terre</dc:title>
    <dc:language>fr</dc:language>
    <dc:creator>Jules Verne</dc:creator>
  </metadata>
  <manifest>
    <item id="ch2" href="ch2.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="css" href="style.css" media-type="text/css"/>
  </manifest>
  <spine>
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
    <itemref idref="css"/>
  </spine>
</package>`

const testChapterOne = `<html><head><title>Un</title></head><body>
<h2>Chapitre 1</h2>
<p>Premier paragraphe avec un mot en <em>italique</em> au milieu.</p>
<p>Deuxième paragraphe.</p>
</body></html>`

const testChapterTwo = `<html><body><p>Chapitre deux.</p></body></html>`

func writeTestBook(t *testing.T) string {
	t.Helper()
	bookPath := filepath.Join(t.TempDir(), "voyage.epub")
	out, err := os.Create(bookPath)
	if err != nil {
		t.Fatalf("creating archive: %v", err)
	}
	zw := zip.NewWriter(out)

	mimeWriter, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		t.Fatalf("creating mimetype: %v", err)
	}
	mimeWriter.Write([]byte("application/epub+zip"))

	for name, content := range map[string]string{
		"META-INF/container.xml": testContainer,
		"OEBPS/content.opf":      testOPF,
		"OEBPS/ch1.xhtml":        testChapterOne,
		"OEBPS/ch2.xhtml":        testChapterTwo,
		"OEBPS/style.css":        "p { margin: 0; }",
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("creating %s: %v", name, err)
		}
		w.Write([]byte(content))
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing archive: %v", err)
	}
	out.Close()
	return bookPath
}

func TestOpenResolvesSpineOrder(t *testing.T) {
	book, err := Open(writeTestBook(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	chapters := book.Chapters()
	if len(chapters) != 2 {
		t.Fatalf("got %d chapters, want 2 (css entry must be skipped)", len(chapters))
	}
	if chapters[0].ID != "ch1" || chapters[1].ID != "ch2" {
		t.Errorf("spine order = %s, %s; want ch1, ch2", chapters[0].ID, chapters[1].ID)
	}
	if chapters[0].Path != "OEBPS/ch1.xhtml" {
		t.Errorf("chapter path = %q", chapters[0].Path)
	}
	if book.Title() != "Voyage au centre de la Terre" {
		t.Errorf("title = %q", book.Title())
	}
	if book.Language() != "fr" {
		t.Errorf("language = %q", book.Language())
	}
}

func TestOpenRejectsMissingContainer(t *testing.T) {
	bookPath := filepath.Join(t.TempDir(), "broken.epub")
	out, err := os.Create(bookPath)
	if err != nil {
		t.Fatalf("creating archive: %v", err)
	}
	zw := zip.NewWriter(out)
	w, _ := zw.Create("mimetype")
	w.Write([]byte("application/epub+zip"))
	zw.Close()
	out.Close()

	if _, err := Open(bookPath); err == nil {
		t.Fatal("expected an error for an archive without container.xml")
	}
}

func TestExtractTextSeparatesBlocks(t *testing.T) {
	text, err := ExtractText(testChapterOne)
	if err != nil {
		t.Fatalf("ExtractText failed: %v", err)
	}
	blocks := strings.Split(text, "\n\n")
	if len(blocks) != 3 {
		t.Fatalf("got %d blocks, want 3: %q", len(blocks), text)
	}
	if blocks[0] != "Chapitre 1" {
		t.Errorf("heading block = %q", blocks[0])
	}
	if blocks[1] != "Premier paragraphe avec un mot en italique au milieu." {
		t.Errorf("inline markup not flattened: %q", blocks[1])
	}
	if strings.Contains(text, "Un") && strings.Contains(blocks[0], "Un") {
		t.Errorf("head title leaked into text: %q", text)
	}
}

func TestExtractTextHandlesLineBreaks(t *testing.T) {
	text, err := ExtractText(`<html><body><p>ligne une<br/>ligne deux</p></body></html>`)
	if err != nil {
		t.Fatalf("ExtractText failed: %v", err)
	}
	if text != "ligne une\nligne deux" {
		t.Errorf("got %q", text)
	}
}

func TestWriteTranslatedReplacesChapters(t *testing.T) {
	book, err := Open(writeTestBook(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	outPath := filepath.Join(t.TempDir(), "voyage_translated.epub")
	replacement := `<html><body><h2>Chapter 1.</h2><p>First paragraph.</p></body></html>`
	err = book.WriteTranslated(outPath, map[string]string{"OEBPS/ch1.xhtml": replacement})
	if err != nil {
		t.Fatalf("WriteTranslated failed: %v", err)
	}

	zr, err := zip.OpenReader(outPath)
	if err != nil {
		t.Fatalf("reopening output: %v", err)
	}
	defer zr.Close()

	if zr.File[0].Name != "mimetype" {
		t.Errorf("first entry = %q, want mimetype", zr.File[0].Name)
	}
	if zr.File[0].Method != zip.Store {
		t.Error("mimetype entry must be stored uncompressed")
	}

	contents := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("opening %s: %v", f.Name, err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		contents[f.Name] = string(data)
	}
	if contents["OEBPS/ch1.xhtml"] != replacement {
		t.Errorf("chapter one not replaced: %q", contents["OEBPS/ch1.xhtml"])
	}
	if contents["OEBPS/ch2.xhtml"] != testChapterTwo {
		t.Error("untouched chapter must survive byte for byte")
	}
	if contents["OEBPS/style.css"] != "p { margin: 0; }" {
		t.Error("non-chapter entries must survive byte for byte")
	}

	// The written copy must itself be a loadable book.
	if _, err := Open(outPath); err != nil {
		t.Errorf("output archive does not reopen: %v", err)
	}
}
