// Package chunk splits document text into overlapping windows and derives
// stable content-addressed document identifiers. Both operations are pure
// functions; no state is retained here.
package chunk

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Sergey0703/aiassistant/engine/domain"
)

const (
	// DefaultSize is the target chunk window in characters.
	DefaultSize = 1000
	// DefaultOverlap is the number of characters shared between consecutive chunks.
	DefaultOverlap = 200
)

// Split cuts text into chunks of at most size characters with the given
// overlap. When the text fits in one window it is returned whole. Otherwise
// the window end is pulled back to the last sentence terminator (. ! ?) found
// after the window start, so chunks prefer to end on sentence boundaries.
// Every chunk is a contiguous substring of the input (modulo edge trimming)
// and chunk order follows document order.
//
// overlap must be smaller than size so each step makes forward progress;
// violating that is a configuration error, not a recoverable condition.
func Split(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, domain.NewConfigError("chunk_size", fmt.Sprint(size), domain.ErrInvalidChunking)
	}
	if overlap < 0 || overlap >= size {
		return nil, domain.NewConfigError("chunk_overlap", fmt.Sprint(overlap), domain.ErrInvalidChunking)
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}, nil
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end < len(runes) {
			if cut := lastTerminator(runes, start, end); cut > start {
				end = cut + 1
			}
		} else {
			end = len(runes)
		}

		if c := strings.TrimSpace(string(runes[start:end])); c != "" {
			chunks = append(chunks, c)
		}

		next := end - overlap
		if next <= start {
			// Sentence backtracking can shrink the window below the
			// overlap; skip the overlap rather than stall.
			next = end
		}
		start = next
	}
	return chunks, nil
}

// lastTerminator returns the index of the last sentence-ending rune in
// runes[start:end], or -1 if there is none.
func lastTerminator(runes []rune, start, end int) int {
	for i := end - 1; i > start; i-- {
		switch runes[i] {
		case '.', '!', '?':
			return i
		}
	}
	return -1
}

// DocumentID derives a deterministic id from filename plus the first 8 hex
// characters of the content's MD5 digest. Identical content under the same
// name always maps to the same id. This is deduplication, not a security
// primitive: no collision resistance is claimed beyond accidental duplicates.
func DocumentID(filename, content string) string {
	sum := md5.Sum([]byte(content))
	return filename + "_" + hex.EncodeToString(sum[:])[:8]
}

// ChunkID names the i-th chunk of a document.
func ChunkID(docID string, i int) string {
	return fmt.Sprintf("%s_chunk_%d", docID, i)
}
