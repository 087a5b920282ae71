// Package epub reads EPUB archives, exposes their chapters in spine order
// and writes translated copies that preserve every other entry.
package epub

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

const containerPath = "META-INF/container.xml"

// Chapter is one spine document of the book.
type Chapter struct {
	ID     string
	Path   string
	Markup string
}

// Book holds a fully loaded EPUB archive. All entries are kept in memory in
// their original order so a translated copy can be written at any point.
type Book struct {
	path    string
	entries []archiveEntry
	byName  map[string]int

	opfPath  string
	pkg      packageDoc
	chapters []Chapter
}

type archiveEntry struct {
	name   string
	data   []byte
	method uint16
}

type containerDoc struct {
	XMLName   xml.Name `xml:"container"`
	Rootfiles []struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"rootfiles>rootfile"`
}

type packageDoc struct {
	XMLName  xml.Name    `xml:"package"`
	Version  string      `xml:"version,attr"`
	Metadata metadataDoc `xml:"metadata"`
	Manifest struct {
		Items []manifestItem `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		ItemRefs []struct {
			IDRef  string `xml:"idref,attr"`
			Linear string `xml:"linear,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

type metadataDoc struct {
	Title    string `xml:"title"`
	Language string `xml:"language"`
	Creator  string `xml:"creator"`
}

type manifestItem struct {
	ID        string `xml:"id,attr"`
	Href      string `xml:"href,attr"`
	MediaType string `xml:"media-type,attr"`
}

// Open loads the archive at the given path and resolves its spine.
func Open(bookPath string) (*Book, error) {
	raw, err := os.ReadFile(bookPath)
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}
	reader, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	book := &Book{path: bookPath, byName: make(map[string]int)}
	for _, file := range reader.File {
		if strings.HasSuffix(file.Name, "/") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("opening entry %s: %w", file.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading entry %s: %w", file.Name, err)
		}
		book.byName[file.Name] = len(book.entries)
		book.entries = append(book.entries, archiveEntry{name: file.Name, data: data, method: file.Method})
	}

	if err := book.parse(); err != nil {
		return nil, err
	}
	return book, nil
}

// parse resolves container.xml, the package document and the spine.
func (b *Book) parse() error {
	containerData, ok := b.read(containerPath)
	if !ok {
		return fmt.Errorf("archive has no %s", containerPath)
	}
	var container containerDoc
	if err := xml.Unmarshal(containerData, &container); err != nil {
		return fmt.Errorf("parsing container: %w", err)
	}
	if len(container.Rootfiles) == 0 || container.Rootfiles[0].FullPath == "" {
		return fmt.Errorf("container lists no rootfile")
	}
	b.opfPath = container.Rootfiles[0].FullPath

	opfData, ok := b.read(b.opfPath)
	if !ok {
		return fmt.Errorf("archive has no package document %s", b.opfPath)
	}
	if err := xml.Unmarshal(opfData, &b.pkg); err != nil {
		return fmt.Errorf("parsing package document: %w", err)
	}

	itemsByID := make(map[string]manifestItem, len(b.pkg.Manifest.Items))
	for _, item := range b.pkg.Manifest.Items {
		itemsByID[item.ID] = item
	}
	opfDir := path.Dir(b.opfPath)
	for _, ref := range b.pkg.Spine.ItemRefs {
		item, ok := itemsByID[ref.IDRef]
		if !ok {
			continue
		}
		if !isDocumentType(item.MediaType) {
			continue
		}
		entryPath := resolvePath(opfDir, item.Href)
		data, ok := b.read(entryPath)
		if !ok {
			continue
		}
		b.chapters = append(b.chapters, Chapter{ID: item.ID, Path: entryPath, Markup: string(data)})
	}
	if len(b.chapters) == 0 {
		return fmt.Errorf("spine references no readable chapters")
	}
	return nil
}

// read returns the raw bytes of a named entry.
func (b *Book) read(name string) ([]byte, bool) {
	idx, ok := b.byName[name]
	if !ok {
		return nil, false
	}
	return b.entries[idx].data, true
}

// Path returns the location the book was loaded from.
func (b *Book) Path() string {
	return b.path
}

// Title returns the declared book title, possibly empty.
func (b *Book) Title() string {
	return b.pkg.Metadata.Title
}

// Language returns the declared publication language, possibly empty.
func (b *Book) Language() string {
	return b.pkg.Metadata.Language
}

// Chapters returns the spine documents in reading order.
func (b *Book) Chapters() []Chapter {
	return b.chapters
}

// isDocumentType reports whether a manifest media type is a text chapter.
func isDocumentType(mediaType string) bool {
	switch mediaType {
	case "application/xhtml+xml", "text/html":
		return true
	default:
		return false
	}
}

// resolvePath joins a manifest href onto the package document's directory.
func resolvePath(opfDir, href string) string {
	if opfDir == "." || opfDir == "" {
		return href
	}
	return path.Join(opfDir, href)
}
