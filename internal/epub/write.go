package epub

import (
	"archive/zip"
	"fmt"
	"os"
)

// WriteTranslated writes a copy of the archive to outPath, replacing the
// chapters named in translated (keyed by chapter path) with new markup. The
// mimetype entry is written first and uncompressed as the format requires.
func (b *Book) WriteTranslated(outPath string, translated map[string]string) error {
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output archive: %w", err)
	}
	zw := zip.NewWriter(out)

	write := func(entry archiveEntry) error {
		method := zip.Deflate
		if entry.name == "mimetype" {
			method = zip.Store
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: entry.name, Method: method})
		if err != nil {
			return fmt.Errorf("creating entry %s: %w", entry.name, err)
		}
		data := entry.data
		if markup, ok := translated[entry.name]; ok {
			data = []byte(markup)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("writing entry %s: %w", entry.name, err)
		}
		return nil
	}

	// mimetype must be the first entry in the archive.
	if idx, ok := b.byName["mimetype"]; ok {
		if err := write(b.entries[idx]); err != nil {
			zw.Close()
			out.Close()
			return err
		}
	}
	for _, entry := range b.entries {
		if entry.name == "mimetype" {
			continue
		}
		if err := write(entry); err != nil {
			zw.Close()
			out.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		out.Close()
		return fmt.Errorf("finalizing archive: %w", err)
	}
	return out.Close()
}
