package table

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// candidateDelimiters are tried in order; ties keep the earlier one.
var candidateDelimiters = []rune{',', ';', '\t', '|'}

// legacyEncodings maps accepted encoding names to decoders.
var legacyEncodings = map[string]encoding.Encoding{
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
	"iso-8859-1":   charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"iso-8859-15":  charmap.ISO8859_15,
	"windows-1251": charmap.Windows1251,
}

func loadCSV(path string, o loadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var src io.Reader = f
	if o.encoding != "" && !strings.EqualFold(o.encoding, "utf-8") {
		enc, ok := legacyEncodings[strings.ToLower(o.encoding)]
		if !ok {
			return nil, fmt.Errorf("unknown encoding %q", o.encoding)
		}
		src = transform.NewReader(f, enc.NewDecoder())
	}

	br := bufio.NewReader(cleanText(src))

	delim := o.delimiter
	if delim == 0 {
		peek, _ := br.Peek(64 * 1024)
		delim = sniffDelimiter(firstLine(peek))
	}

	return parseDelimited(br, delim)
}

// parseDelimited reads a header row followed by data rows.
func parseDelimited(r io.Reader, delim rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	records, err := cr.ReadAll()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return nil, fmt.Errorf("%w: invalid csv at line %d: %v", ErrMalformedInput, perr.Line, perr.Err)
		}
		return nil, fmt.Errorf("%w: invalid csv: %v", ErrMalformedInput, err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrMalformedInput)
	}

	header := uniqueHeader(records[0])
	return New(header, toCells(records[1:]))
}

// sniffDelimiter picks the candidate occurring most often outside quotes.
func sniffDelimiter(line string) rune {
	best, bestCount := ',', 0
	for _, d := range candidateDelimiters {
		n := countUnquoted(line, d)
		if n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func countUnquoted(line string, d rune) int {
	n := 0
	quoted := false
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
		case r == d && !quoted:
			n++
		}
	}
	return n
}
