package cohort

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultMissingTokens mirrors the NA spellings dataframe exports produce.
var DefaultMissingTokens = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

// LoadOptions controls how a cohort file is read.
type LoadOptions struct {
	// Delimiter for CSV. If 0, chosen from the file extension.
	Delimiter rune
	// SheetName selects an XLSX worksheet; empty means the first sheet.
	SheetName string
	// MissingTokens are cell values treated as missing.
	MissingTokens []string
}

// DefaultLoadOptions returns options suited to the cohort CSV export.
func DefaultLoadOptions() LoadOptions {
	toks := make([]string, len(DefaultMissingTokens))
	copy(toks, DefaultMissingTokens)
	return LoadOptions{MissingTokens: toks}
}

// ErrEmptyFile is returned when the file has no header row.
var ErrEmptyFile = errors.New("cohort file has no header row")

// Load reads a cohort table from path. CSV, TSV and XLSX are supported.
func Load(path string, opt LoadOptions) (*Dataset, error) {
	if opt.MissingTokens == nil {
		opt.MissingTokens = DefaultMissingTokens
	}
	var (
		rows rowSource
		err  error
	)
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		rows, err = openXLSX(path, opt.SheetName)
	} else {
		rows, err = openCSV(path, opt.Delimiter)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ds, err := read(rows, opt)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}
	ds.Name = filepath.Base(path)
	ds.Path = path
	return ds, nil
}

// Read builds a dataset from CSV content already in memory or on a stream.
func Read(r io.Reader, opt LoadOptions) (*Dataset, error) {
	if opt.MissingTokens == nil {
		opt.MissingTokens = DefaultMissingTokens
	}
	delim := opt.Delimiter
	if delim == 0 {
		delim = ','
	}
	return read(newCSVSource(io.NopCloser(r), delim), opt)
}

type rowSource interface {
	// Next returns the next row, or io.EOF when exhausted.
	Next() ([]string, error)
	Close() error
}

func read(rows rowSource, opt LoadOptions) (*Dataset, error) {
	header, err := rows.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyFile
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	b, err := Bind(header, opt.MissingTokens)
	if err != nil {
		return nil, err
	}
	var records []Record
	for n := 1; ; n++ {
		row, err := rows.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", n, err)
		}
		if blankRow(row) {
			n--
			continue
		}
		rec, err := b.Record(n, row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return &Dataset{LoadedAt: time.Now(), columns: b.Columns(), records: records}, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

type csvSource struct {
	c io.Closer
	r *csv.Reader
}

func openCSV(path string, delim rune) (*csvSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cohort file: %w", err)
	}
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	return newCSVSource(f, delim), nil
}

func newCSVSource(rc io.ReadCloser, delim rune) *csvSource {
	r := csv.NewReader(rc)
	r.FieldsPerRecord = -1
	r.Comma = delim
	r.LazyQuotes = true
	return &csvSource{c: rc, r: r}
}

func (s *csvSource) Next() ([]string, error) { return s.r.Read() }

func (s *csvSource) Close() error { return s.c.Close() }

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}
