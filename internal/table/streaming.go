package table

// streaming.go provides reader wrappers that clean delimited text before it
// reaches the CSV parser:
//
//   - bomReader: drops a leading UTF-8 BOM (0xEF 0xBB 0xBF) written by Excel
//   - utf8Sanitizer: replaces invalid UTF-8 bytes with '?' without buffering
//     the whole file
//
// Use cleanText to apply both in the correct order.

import (
	"io"
	"unicode/utf8"
)

// utf8Sanitizer rewrites invalid UTF-8 in place as data flows through.
type utf8Sanitizer struct {
	r io.Reader

	// bytes of a multi-byte sequence split across two reads
	pending []byte
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{r: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	offset := copy(p, s.pending)
	s.pending = s.pending[:0]

	n, err := s.r.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}

	if asciiOnly(p[:n]) {
		return n, err
	}

	return s.sanitize(p[:n], err == io.EOF), err
}

func asciiOnly(b []byte) bool {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// sanitize compacts data in place and returns the number of bytes to emit.
// Unless atEOF, a truncated trailing sequence is held back for the next read.
func (s *utf8Sanitizer) sanitize(data []byte, atEOF bool) int {
	if utf8.Valid(data) {
		if !atEOF {
			if tail := truncatedTail(data); tail > 0 {
				s.pending = append(s.pending, data[len(data)-tail:]...)
				return len(data) - tail
			}
		}
		return len(data)
	}

	w := 0
	for r := 0; r < len(data); {
		if !atEOF && !utf8.FullRune(data[r:]) && seqLen(data[r]) > 1 {
			s.pending = append(s.pending, data[r:]...)
			return w
		}

		ch, size := utf8.DecodeRune(data[r:])
		if ch == utf8.RuneError && size == 1 {
			data[w] = '?'
			w++
			r++
			continue
		}
		copy(data[w:], data[r:r+size])
		w += size
		r += size
	}
	return w
}

// truncatedTail returns how many trailing bytes start an incomplete sequence.
func truncatedTail(data []byte) int {
	for i := 1; i <= 3 && i <= len(data); i++ {
		b := data[len(data)-i]
		if b >= 0xC0 {
			if i < seqLen(b) {
				return i
			}
			return 0
		}
		if b&0xC0 != 0x80 {
			return 0
		}
	}
	return 0
}

// seqLen is the encoded length implied by a UTF-8 lead byte.
func seqLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xC0:
		return 0
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	default:
		return 4
	}
}

// bomReader strips a UTF-8 byte order mark from the start of a stream.
type bomReader struct {
	r       io.Reader
	checked bool
	head    []byte
}

func newBOMReader(r io.Reader) *bomReader {
	return &bomReader{r: r}
}

func (b *bomReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true

		var buf [3]byte
		n, err := io.ReadFull(b.r, buf[:])
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return 0, err
		}
		if n == 3 && buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF {
			n = 0
		}
		b.head = append(b.head, buf[:n]...)
		if err != nil && len(b.head) == 0 {
			return 0, io.EOF
		}
	}

	if len(b.head) > 0 {
		n := copy(p, b.head)
		b.head = b.head[n:]
		return n, nil
	}

	return b.r.Read(p)
}

// cleanText wraps r with BOM stripping followed by UTF-8 sanitization.
func cleanText(r io.Reader) io.Reader {
	return newUTF8Sanitizer(newBOMReader(r))
}
