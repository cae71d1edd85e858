package table

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Format identifies a supported serialization.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

const (
	mimeCSV  = "text/csv"
	mimeTSV  = "text/tab-separated-values"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeJSON = "application/json"
	mimeText = "text/plain"
)

type loadOptions struct {
	encoding  string
	sheet     string
	delimiter rune
}

// LoadOption customizes Load.
type LoadOption func(*loadOptions)

// WithEncoding decodes delimited text from a legacy single-byte encoding
// (e.g. "windows-1252", "iso-8859-1") instead of UTF-8.
func WithEncoding(name string) LoadOption {
	return func(o *loadOptions) { o.encoding = name }
}

// WithSheet selects a worksheet by name. Defaults to the first sheet.
func WithSheet(name string) LoadOption {
	return func(o *loadOptions) { o.sheet = name }
}

// WithDelimiter forces the field delimiter for delimited text.
func WithDelimiter(r rune) LoadOption {
	return func(o *loadOptions) { o.delimiter = r }
}

// DetectFormat classifies a file by its content.
// Returns ErrUnsupportedFormat naming the detected MIME type on failure.
func DetectFormat(path string) (Format, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detect file type: %w", err)
	}

	// Only content detected as plain text itself falls back to sniffing.
	// HTML, XML, SVG and scripts descend from text/plain too and are rejected.
	if mtype.Is(mimeText) {
		return sniffText(path)
	}

	for m := mtype; m != nil; m = m.Parent() {
		switch {
		case m.Is(mimeXLSX):
			return FormatXLSX, nil
		case m.Is(mimeJSON):
			return FormatJSON, nil
		case m.Is(mimeCSV), m.Is(mimeTSV):
			return FormatCSV, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mtype.String())
}

// sniffText handles content mimetype only recognizes as plain text: a JSON
// document too large to validate within the detection window, or delimited
// text with a single column or an unusual delimiter.
func sniffText(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	br := bufio.NewReader(cleanText(f))
	for {
		r, _, err := br.ReadRune()
		if err == io.EOF {
			return "", fmt.Errorf("%w: empty file", ErrMalformedInput)
		}
		if err != nil {
			return "", err
		}
		switch {
		case r == ' ' || r == '\t' || r == '\r' || r == '\n':
			continue
		case r == '[' || r == '{':
			return FormatJSON, nil
		default:
			return FormatCSV, nil
		}
	}
}

// Load reads the file at path into a Table, choosing the parser from the
// file's content. The file is only read; it is never modified or removed.
func Load(path string, opts ...LoadOption) (*Table, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	format, err := DetectFormat(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	var t *Table
	switch format {
	case FormatXLSX:
		t, err = loadXLSX(path, o)
	case FormatJSON:
		t, err = loadJSON(path)
	default:
		t, err = loadCSV(path, o)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return t, nil
}

// cleanHeader trims whitespace and unwraps Excel text formulas (="ID").
func cleanHeader(h string) string {
	h = strings.TrimSpace(h)
	if strings.HasPrefix(h, `="`) && strings.HasSuffix(h, `"`) && len(h) >= 3 {
		h = h[2 : len(h)-1]
	}
	return strings.Trim(h, `"`)
}

// uniqueHeader cleans header names, names blank columns "Unnamed: N" and
// suffixes repeats ("Amount", "Amount.1") so every name is unique ignoring case.
func uniqueHeader(raw []string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for i, h := range raw {
		name := cleanHeader(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}

		if _, dup := seen[strings.ToLower(name)]; dup {
			base := name
			for n := 1; ; n++ {
				candidate := fmt.Sprintf("%s.%d", base, n)
				if _, taken := seen[strings.ToLower(candidate)]; !taken {
					name = candidate
					break
				}
			}
		}
		seen[strings.ToLower(name)] = struct{}{}
		out[i] = name
	}
	return out
}

// toCells converts raw string records into cells. Empty strings are missing.
func toCells(records [][]string) [][]Cell {
	rows := make([][]Cell, 0, len(records))
	for _, rec := range records {
		if blankRecord(rec) {
			continue
		}
		row := make([]Cell, len(rec))
		for i, v := range rec {
			if v == "" {
				row[i] = Null()
			} else {
				row[i] = Text(v)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// widen pads the header with unnamed columns when data rows are wider.
func widen(header []string, records [][]string) []string {
	width := len(header)
	for _, rec := range records {
		if len(rec) > width {
			width = len(rec)
		}
	}
	for len(header) < width {
		header = append(header, "")
	}
	return header
}

// firstLine returns the first line of data, used for delimiter sniffing.
func firstLine(data []byte) string {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		data = data[:i]
	}
	return strings.TrimRight(string(data), "\r")
}
