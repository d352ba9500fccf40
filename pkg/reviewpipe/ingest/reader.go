package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/cognicore/reviewpipe/pkg/reviewpipe/internalerr"
	"github.com/cognicore/reviewpipe/pkg/reviewpipe/store"
)

// Row is one input candidate. Err is set when the row failed validation;
// Record is only meaningful when Err is nil.
type Row struct {
	Line   int
	Record store.RawRecord
	Err    error
}

// RowSource yields rows until it returns io.EOF.
type RowSource interface {
	Next() (Row, error)
}

// columnAliases maps each required column to the header names accepted for it.
var columnAliases = map[string][]string{
	"timestamp": {"timestamp"},
	"id":        {"uuid", "id"},
	"text":      {"message", "text"},
}

// csvRow is the validation view of one CSV record.
type csvRow struct {
	Timestamp string `validate:"required,isotime"`
	ID        string `validate:"required"`
	Text      string `validate:"required"`
}

func newValidator() (*validator.Validate, error) {
	v := validator.New()
	err := v.RegisterValidation("isotime", func(fl validator.FieldLevel) bool {
		_, err := ParseTimestamp(fl.Field().String())
		return err == nil
	})
	if err != nil {
		return nil, fmt.Errorf("register isotime validation: %w", err)
	}
	return v, nil
}

// Reader reads review rows from CSV with a header line.
type Reader struct {
	csv      *csv.Reader
	cols     map[string]int
	line     int
	validate *validator.Validate
	empty    bool
}

var _ RowSource = (*Reader)(nil)

// NewReader reads the header and checks the required columns are present.
// Input with no header at all yields a reader with no rows.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	validate, err := newValidator()
	if err != nil {
		return nil, err
	}
	rd := &Reader{csv: cr, validate: validate}

	header, err := cr.Read()
	if err == io.EOF {
		rd.empty = true
		return rd, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	rd.line = 1

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	rd.cols = make(map[string]int, len(columnAliases))
	var missing []string
	for _, col := range []string{"timestamp", "id", "text"} {
		found := false
		for _, alias := range columnAliases[col] {
			if i, ok := index[alias]; ok {
				rd.cols[col] = i
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, columnAliases[col][0])
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required columns: %s", internalerr.ErrInvalidInput, strings.Join(missing, ", "))
	}

	return rd, nil
}

// Next returns the next row, or io.EOF. Malformed rows come back with Err
// set; only I/O failures are returned as errors.
func (r *Reader) Next() (Row, error) {
	if r.empty {
		return Row{}, io.EOF
	}

	rec, err := r.csv.Read()
	if err == io.EOF {
		return Row{}, io.EOF
	}
	r.line++

	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return Row{Line: r.line, Err: parseError(perr)}, nil
	}
	if err != nil {
		return Row{}, fmt.Errorf("read line %d: %w", r.line, err)
	}

	row := csvRow{
		Timestamp: strings.TrimSpace(r.field(rec, "timestamp")),
		ID:        strings.TrimSpace(r.field(rec, "id")),
		Text:      r.field(rec, "text"),
	}
	if err := r.check(row); err != nil {
		return Row{Line: r.line, Err: err}, nil
	}

	ts, _ := ParseTimestamp(row.Timestamp)
	return Row{
		Line:   r.line,
		Record: store.RawRecord{Timestamp: ts, ID: row.ID, Text: row.Text},
	}, nil
}

// parseError reports a malformed record. An unterminated quote makes the csv
// reader consume every following line as part of the same field, so those
// rows are lost and the error names the file lines they spanned.
func parseError(perr *csv.ParseError) error {
	if perr.Line > perr.StartLine {
		return fmt.Errorf("%w: malformed record spans file lines %d-%d, rows on those lines were not read: %v",
			internalerr.ErrInvalidInput, perr.StartLine, perr.Line, perr.Err)
	}
	return fmt.Errorf("%w: %v", internalerr.ErrInvalidInput, perr)
}

func (r *Reader) field(rec []string, col string) string {
	i := r.cols[col]
	if i >= len(rec) {
		return ""
	}
	return rec[i]
}

func (r *Reader) check(row csvRow) error {
	probe := row
	probe.Text = strings.TrimSpace(probe.Text)

	err := r.validate.Struct(probe)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", internalerr.ErrInvalidInput, err)
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			problems = append(problems, "missing "+strings.ToLower(fe.Field()))
		case "isotime":
			problems = append(problems, fmt.Sprintf("invalid timestamp %q", row.Timestamp))
		default:
			problems = append(problems, fe.Error())
		}
	}
	return fmt.Errorf("%w: %s", internalerr.ErrInvalidInput, strings.Join(problems, "; "))
}

// SliceSource serves rows from memory.
type SliceSource struct {
	rows []Row
	pos  int
}

// NewSliceSource creates a RowSource over rows.
func NewSliceSource(rows []Row) *SliceSource {
	return &SliceSource{rows: rows}
}

// Next implements RowSource.
func (s *SliceSource) Next() (Row, error) {
	if s.pos >= len(s.rows) {
		return Row{}, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}
