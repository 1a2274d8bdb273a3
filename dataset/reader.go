package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/geofit/pkg/errors"
)

// HeaderMode controls how the first row is treated.
type HeaderMode int

const (
	// HeaderAuto skips the first row when it does not parse as numbers.
	HeaderAuto HeaderMode = iota
	// HeaderPresent always skips the first row.
	HeaderPresent
	// HeaderAbsent treats every row as data.
	HeaderAbsent
)

// ParseHeaderMode accepts "auto", "yes"/"true"/"present" and "no"/"false"/"absent".
func ParseHeaderMode(s string) (HeaderMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return HeaderAuto, nil
	case "yes", "true", "present":
		return HeaderPresent, nil
	case "no", "false", "absent":
		return HeaderAbsent, nil
	default:
		return HeaderAuto, errors.NewValidationError("header", "must be auto, present or absent", s)
	}
}

type readConfig struct {
	delimiter rune
	nTargets  int
	header    HeaderMode
	comment   rune
	source    string
}

// Option configures Read and Load.
type Option func(*readConfig)

// WithDelimiter sets the field separator. Zero means "detect": tab when the
// first line contains tabs but no commas, comma otherwise.
func WithDelimiter(r rune) Option {
	return func(c *readConfig) {
		c.delimiter = r
	}
}

// WithTargets sets how many trailing columns are targets (1 or 2, default 2).
func WithTargets(n int) Option {
	return func(c *readConfig) {
		c.nTargets = n
	}
}

// WithHeader sets the header handling mode.
func WithHeader(m HeaderMode) Option {
	return func(c *readConfig) {
		c.header = m
	}
}

// WithComment makes lines starting with r be ignored.
func WithComment(r rune) Option {
	return func(c *readConfig) {
		c.comment = r
	}
}

// WithSource names the table for logs and reports.
func WithSource(name string) Option {
	return func(c *readConfig) {
		c.source = name
	}
}

func newReadConfig(opts []Option) *readConfig {
	c := &readConfig{nTargets: 2, header: HeaderAuto}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load opens path (decompressing .gz, .zst and .lz4) and reads it.
// Files ending in .tsv or .tab default to tab separated.
func Load(path string, opts ...Option) (*Table, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	base := []Option{WithSource(path)}
	switch strings.ToLower(filepath.Ext(trimCompressionExt(path))) {
	case ".tsv", ".tab":
		base = append(base, WithDelimiter('\t'))
	}
	return Read(rc, append(base, opts...)...)
}

// Read parses a delimited numeric table from r.
func Read(r io.Reader, opts ...Option) (*Table, error) {
	const op = "dataset.Read"
	cfg := newReadConfig(opts)

	br := bufio.NewReader(r)
	if cfg.delimiter == 0 {
		cfg.delimiter = sniffDelimiter(br)
	}

	cr := csv.NewReader(br)
	cr.Comma = cfg.delimiter
	cr.Comment = cfg.comment
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	var (
		values []float64
		cols   int
		header []string
		rows   int
		first  = true
	)

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "%s: %s", op, cfg.source)
		}
		line, _ := cr.FieldPos(0)

		if first {
			first = false
			cols = len(record)
			skip := cfg.header == HeaderPresent
			if cfg.header == HeaderAuto && !isNumericRecord(record) {
				skip = true
			}
			if skip {
				header = make([]string, len(record))
				for i, f := range record {
					header[i] = strings.TrimSpace(f)
				}
				continue
			}
		}

		for j, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, errors.NewValueError(op, fmt.Sprintf("%sline %d column %d: %q is not a number", sourcePrefix(cfg.source), line, j+1, field))
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.Wrapf(errors.NewInvalidValueError(op, rows*cols+j, v),
					"%sline %d column %d", sourcePrefix(cfg.source), line, j+1)
			}
			values = append(values, v)
		}
		rows++
	}

	if rows == 0 {
		return nil, errors.NewEmptyInputError(op)
	}

	t, err := NewTable(mat.NewDense(rows, cols, values), cfg.nTargets)
	if err != nil {
		return nil, err
	}
	t.header = header
	t.source = cfg.source
	return t, nil
}

func sourcePrefix(source string) string {
	if source == "" {
		return ""
	}
	return source + ": "
}

func isNumericRecord(record []string) bool {
	for _, f := range record {
		if _, err := strconv.ParseFloat(strings.TrimSpace(f), 64); err != nil {
			return false
		}
	}
	return true
}

// sniffDelimiter peeks at the first line without consuming it.
func sniffDelimiter(br *bufio.Reader) rune {
	peek, _ := br.Peek(64 * 1024)
	if i := bytes.IndexByte(peek, '\n'); i >= 0 {
		peek = peek[:i]
	}
	if bytes.IndexByte(peek, '\t') >= 0 && bytes.IndexByte(peek, ',') < 0 {
		return '\t'
	}
	return ','
}
