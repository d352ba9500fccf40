package ingest

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/reviewpipe/pkg/reviewpipe/internalerr"
)

func readAll(t *testing.T, rd RowSource) []Row {
	t.Helper()
	var rows []Row
	for {
		row, err := rd.Next()
		if err == io.EOF {
			return rows
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
}

func TestReaderParsesValidRows(t *testing.T) {
	input := "timestamp,uuid,message\n" +
		"2024-01-02T10:00:00Z,a1,Great bread\n" +
		"2024-01-02 11:30:00,a2,\"Slow waiter, cold fries\"\n"

	rd, err := NewReader(strings.NewReader(input))
	require.NoError(t, err)

	rows := readAll(t, rd)
	require.Len(t, rows, 2)

	assert.NoError(t, rows[0].Err)
	assert.Equal(t, "a1", rows[0].Record.ID)
	assert.Equal(t, "Great bread", rows[0].Record.Text)
	assert.True(t, rows[0].Record.Timestamp.Equal(time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)))

	assert.Equal(t, "Slow waiter, cold fries", rows[1].Record.Text)
	assert.Equal(t, time.UTC, rows[1].Record.Timestamp.Location())
	assert.Equal(t, 3, rows[1].Line)
}

func TestReaderAcceptsAliasesAndBOM(t *testing.T) {
	input := "\ufeffText,ID,Timestamp\nhello,x,2024-05-01\n"

	rd, err := NewReader(strings.NewReader(input))
	require.NoError(t, err)

	rows := readAll(t, rd)
	require.Len(t, rows, 1)
	require.NoError(t, rows[0].Err)
	assert.Equal(t, "x", rows[0].Record.ID)
	assert.Equal(t, "hello", rows[0].Record.Text)
}

func TestReaderMissingColumns(t *testing.T) {
	_, err := NewReader(strings.NewReader("timestamp,message\n2024-01-01,hi\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, internalerr.ErrInvalidInput)
	assert.Contains(t, err.Error(), "uuid")
}

func TestReaderEmptyInput(t *testing.T) {
	rd, err := NewReader(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, readAll(t, rd))

	rd, err = NewReader(strings.NewReader("timestamp,uuid,message\n"))
	require.NoError(t, err)
	assert.Empty(t, readAll(t, rd))
}

func TestReaderFlagsInvalidRows(t *testing.T) {
	input := "timestamp,uuid,message\n" +
		"not-a-date,a1,hello\n" +
		"2024-01-01T00:00:00Z,,hello\n" +
		"2024-01-01T00:00:00Z,a3,   \n" +
		"2024-01-01T00:00:00Z,a4\n" +
		"2024-01-01T00:00:00Z,a5,fine\n"

	rd, err := NewReader(strings.NewReader(input))
	require.NoError(t, err)

	rows := readAll(t, rd)
	require.Len(t, rows, 5)
	for i, row := range rows[:4] {
		assert.ErrorIs(t, row.Err, internalerr.ErrInvalidInput, "row %d", i)
	}
	assert.Contains(t, rows[0].Err.Error(), "invalid timestamp")
	assert.Contains(t, rows[1].Err.Error(), "missing id")
	assert.Contains(t, rows[2].Err.Error(), "missing text")
	assert.NoError(t, rows[4].Err)
	assert.Equal(t, "a5", rows[4].Record.ID)
}

func TestReaderReportsLinesLostToUnterminatedQuote(t *testing.T) {
	input := "timestamp,uuid,message\n" +
		"2024-01-01T00:00:00Z,a1,\"never closed\n" +
		"2024-01-01T00:00:00Z,a2,fine\n" +
		"2024-01-01T00:00:00Z,a3,fine\n"

	rd, err := NewReader(strings.NewReader(input))
	require.NoError(t, err)

	rows := readAll(t, rd)
	require.Len(t, rows, 1, "the open quote consumes the rest of the input")
	assert.ErrorIs(t, rows[0].Err, internalerr.ErrInvalidInput)
	assert.Contains(t, rows[0].Err.Error(), "spans file lines 2-")
	assert.Contains(t, rows[0].Err.Error(), "were not read")
}

func TestReaderBareQuoteStaysOnOneRow(t *testing.T) {
	input := "timestamp,uuid,message\n" +
		"2024-01-01T00:00:00Z,a1,bad \"quote\n" +
		"2024-01-01T00:00:00Z,a2,fine\n"

	rd, err := NewReader(strings.NewReader(input))
	require.NoError(t, err)

	rows := readAll(t, rd)
	require.Len(t, rows, 2)
	assert.ErrorIs(t, rows[0].Err, internalerr.ErrInvalidInput)
	assert.NotContains(t, rows[0].Err.Error(), "spans file lines")
	assert.NoError(t, rows[1].Err)
}

func TestNewValidatorRegistersIsotime(t *testing.T) {
	v, err := newValidator()
	require.NoError(t, err)
	assert.NoError(t, v.Var("2024-01-02T10:00:00Z", "isotime"))
	assert.Error(t, v.Var("yesterday", "isotime"))
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)

	cases := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-04T05:06:07Z", want},
		{"2024-03-04T07:06:07+02:00", want},
		{"2024-03-04 05:06:07", want},
		{"2024-03-04T05:06:07", want},
		{"2024-03-04T05:06:07.250Z", want.Add(250 * time.Millisecond)},
		{"2024-03-04", time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := ParseTimestamp(tc.in)
		require.NoError(t, err, tc.in)
		assert.True(t, got.Equal(tc.want), "%s: got %v", tc.in, got)
		assert.Equal(t, time.UTC, got.Location(), tc.in)
	}

	for _, bad := range []string{"", "yesterday", "2024-13-01", "04/03/2024"} {
		_, err := ParseTimestamp(bad)
		assert.ErrorIs(t, err, internalerr.ErrInvalidInput, bad)
	}
}
