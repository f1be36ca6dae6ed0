// Package reader provides the item readers used by chunk-oriented steps: a delimited-file reader and
// a keyset cursor over a database table.
package reader

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	port "github.com/tigerroll/coffeebatch/pkg/batch/core/application/port"
	exception "github.com/tigerroll/coffeebatch/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/coffeebatch/pkg/batch/support/util/logger"
)

// DefaultLinesToSkip is the number of header lines skipped when no option overrides it.
const DefaultLinesToSkip = 1

// SourceFunc opens the byte stream a CSVReader reads from. It is called once per Open.
type SourceFunc func() (io.ReadCloser, error)

// FileSource opens the file at path.
func FileSource(path string) SourceFunc {
	return func() (io.ReadCloser, error) {
		return os.Open(path)
	}
}

// BytesSource serves an in-memory copy of data, such as an embedded file.
func BytesSource(data []byte) SourceFunc {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
}

// FieldMapper turns the fields of one line into an item.
type FieldMapper[T any] func(fields []string) (T, error)

type csvSettings struct {
	linesToSkip int
	delimiter   rune
}

// CSVOption configures a CSVReader.
type CSVOption func(*csvSettings)

// WithLinesToSkip sets the number of leading lines ignored. Negative values are treated as 0.
func WithLinesToSkip(n int) CSVOption {
	return func(s *csvSettings) {
		if n < 0 {
			n = 0
		}
		s.linesToSkip = n
	}
}

// WithDelimiter sets the field delimiter (',' by default).
func WithDelimiter(r rune) CSVOption {
	return func(s *csvSettings) {
		s.delimiter = r
	}
}

// CSVReader is a port.ItemReader over a fixed-layout delimited file. Each line after the skipped
// header lines yields one item, in file order. A line whose field count differs from the layout
// fails with exception.ErrMalformedRecord.
type CSVReader[T any] struct {
	name       string
	source     SourceFunc
	fieldCount int
	mapper     FieldMapper[T]
	settings   csvSettings

	src  io.ReadCloser
	csv  *csv.Reader
	line int
}

// NewCSVReader creates a reader expecting fieldCount fields per line.
func NewCSVReader[T any](name string, source SourceFunc, fieldCount int, mapper FieldMapper[T], opts ...CSVOption) *CSVReader[T] {
	settings := csvSettings{linesToSkip: DefaultLinesToSkip, delimiter: ','}
	for _, opt := range opts {
		opt(&settings)
	}
	return &CSVReader[T]{
		name:       name,
		source:     source,
		fieldCount: fieldCount,
		mapper:     mapper,
		settings:   settings,
	}
}

// Open opens the source and skips the header lines.
func (r *CSVReader[T]) Open(ctx context.Context) error {
	src, err := r.source()
	if err != nil {
		return exception.NewBatchError("csv_reader", fmt.Sprintf("CSVReader '%s': failed to open source", r.name), err, false, false)
	}
	r.src = src
	r.csv = csv.NewReader(src)
	r.csv.Comma = r.settings.delimiter
	// Field counts are checked per line so the error carries the expected layout.
	r.csv.FieldsPerRecord = -1
	r.csv.ReuseRecord = true
	r.line = 0

	for i := 0; i < r.settings.linesToSkip; i++ {
		if _, err := r.csv.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return r.malformed(err)
		}
		r.line++
	}
	logger.Debugf("CSVReader '%s' opened, skipped %d header line(s).", r.name, r.line)
	return nil
}

// Read returns the next item, or io.EOF once the file is exhausted.
func (r *CSVReader[T]) Read(ctx context.Context) (T, error) {
	var zero T
	if r.csv == nil {
		return zero, exception.NewBatchError("csv_reader", fmt.Sprintf("CSVReader '%s': reader not opened or already closed", r.name), errors.New("reader not initialized"), false, false)
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	fields, err := r.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return zero, io.EOF
		}
		return zero, r.malformed(err)
	}
	r.line++

	if len(fields) != r.fieldCount {
		return zero, exception.NewBatchErrorf("csv_reader", "CSVReader '%s': line %d: expected %d fields, got %d",
			r.name, r.lineNumber(), r.fieldCount, len(fields), exception.ErrMalformedRecord)
	}

	item, err := r.mapper(fields)
	if err != nil {
		return zero, exception.NewBatchError("csv_reader",
			fmt.Sprintf("CSVReader '%s': line %d: %v", r.name, r.lineNumber(), err),
			fmt.Errorf("%w: %w", exception.ErrMalformedRecord, err), false, false)
	}
	return item, nil
}

// Close releases the source.
func (r *CSVReader[T]) Close(ctx context.Context) error {
	r.csv = nil
	if r.src == nil {
		return nil
	}
	err := r.src.Close()
	r.src = nil
	if err != nil {
		return exception.NewBatchError("csv_reader", fmt.Sprintf("CSVReader '%s': failed to close source", r.name), err, false, false)
	}
	return nil
}

// lineNumber is the physical line of the record last read, which differs from the record count
// when quoted fields span lines.
func (r *CSVReader[T]) lineNumber() int {
	line, _ := r.csv.FieldPos(0)
	return line
}

func (r *CSVReader[T]) malformed(err error) error {
	return exception.NewBatchError("csv_reader", fmt.Sprintf("CSVReader '%s': unparsable input", r.name),
		fmt.Errorf("%w: %w", exception.ErrMalformedRecord, err), false, false)
}

var _ port.ItemReader[any] = (*CSVReader[any])(nil)
