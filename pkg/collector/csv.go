package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"flickrpicker/pkg/storage"
)

// RecordSink persists records
type RecordSink interface {
	Write(ctx context.Context, rec Record) error
	Close() error
}

// CSVSink writes records to a CSV file, flushing after every row
type CSVSink struct {
	file *os.File
	w    *csv.Writer
	rows int
}

// NewCSVSink truncates path and writes the header row
func NewCSVSink(path string) (*CSVSink, error) {
	if err := storage.EnsureParentDir(path); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open output file: %w", err)
	}
	return newCSVSink(f)
}

func newCSVSink(f *os.File) (*CSVSink, error) {
	s := &CSVSink{file: f, w: csv.NewWriter(f)}
	if err := s.writeRow(Header); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func (s *CSVSink) writeRow(row []string) error {
	if err := s.w.Write(row); err != nil {
		return fmt.Errorf("failed to write csv row: %w", err)
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

func (s *CSVSink) Write(ctx context.Context, rec Record) error {
	if err := s.writeRow(rec.Row()); err != nil {
		return err
	}
	s.rows++
	return nil
}

// Rows returns the number of data rows written
func (s *CSVSink) Rows() int {
	return s.rows
}

func (s *CSVSink) Close() error {
	s.w.Flush()
	return errors.Join(s.w.Error(), s.file.Close())
}

// ReadCSV reads records written by CSVSink. Columns are matched by header
// name; missing columns stay empty.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	head, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	col := make(map[string]int, len(head))
	for i, name := range head {
		col[name] = i
	}
	if _, ok := col["source"]; !ok {
		return nil, errors.New("csv has no source column")
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var records []Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return records, fmt.Errorf("failed to read csv row %d: %w", len(records)+1, err)
		}
		width, err := atoiField(field(row, "width"))
		if err != nil {
			return records, fmt.Errorf("csv row %d: invalid width: %w", len(records)+1, err)
		}
		height, err := atoiField(field(row, "height"))
		if err != nil {
			return records, fmt.Errorf("csv row %d: invalid height: %w", len(records)+1, err)
		}
		records = append(records, Record{
			ID:           field(row, "id"),
			License:      field(row, "license"),
			Owner:        field(row, "owner"),
			URL:          field(row, "url"),
			Source:       field(row, "source"),
			Rotation:     field(row, "rotation"),
			Width:        width,
			Height:       height,
			DateUploaded: field(row, "dateuploaded"),
			DateTaken:    field(row, "datetaken"),
			TakenUnknown: field(row, "takeunknown"),
		})
	}
	return records, nil
}

// atoiField parses a numeric column. An empty cell is zero.
func atoiField(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

// ReadCSVFile opens path and calls ReadCSV
func ReadCSVFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}
