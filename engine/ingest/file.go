package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// FromFile reads a text file into an ingest request. Files that are not
// valid UTF-8 are decoded as Windows-1251, which covers the Cyrillic legal
// texts this assistant commonly ingests.
func FromFile(path, category string) (Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Input{}, fmt.Errorf("ingest: read %s: %w", path, err)
	}
	return FromBytes(filepath.Base(path), data, category)
}

// FromBytes builds an ingest request from raw bytes, applying the same
// encoding fallback as FromFile.
func FromBytes(filename string, data []byte, category string) (Input, error) {
	content := string(data)
	if !utf8.ValidString(content) {
		decoded, err := charmap.Windows1251.NewDecoder().Bytes(data)
		if err != nil {
			return Input{}, fmt.Errorf("ingest: decode %s: %w", filename, err)
		}
		content = string(decoded)
	}
	return Input{
		Filename: filename,
		Content:  content,
		Category: category,
		Metadata: map[string]any{"source": "file"},
	}, nil
}
