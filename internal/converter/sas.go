package converter

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/nconklindev/sas2xlsx/internal/types"

	"github.com/kshedden/datareader"
	"golang.org/x/text/encoding/charmap"
)

// ReadChunkSize is the number of rows requested from the SAS reader per call.
const ReadChunkSize = 10000

// ReadSAS decodes an entire sas7bdat file into memory. Character fields are
// decoded as Latin-1 and right-trimmed; date formatted numerics become time.Time.
func ReadSAS(path string) (*types.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return decodeSAS(file, ReadChunkSize)
}

func decodeSAS(r io.ReadSeeker, chunkSize int) (*types.Table, error) {
	sas, err := datareader.NewSAS7BDATReader(r)
	if err != nil {
		return nil, fmt.Errorf("not a sas7bdat file: %w", err)
	}
	sas.TextDecoder = charmap.ISO8859_1.NewDecoder()
	sas.TrimStrings = true
	sas.ConvertDates = true

	names := sas.ColumnNames()
	labels := sas.ColumnLabels()

	table := &types.Table{
		Name:    strings.TrimRight(sas.Name, " \x00"),
		Columns: make([]types.Column, len(names)),
	}
	for i, name := range names {
		table.Columns[i].Name = name
		if i < len(labels) {
			table.Columns[i].Label = labels[i]
		}
	}

	total := sas.RowCount()
	read := 0
	for read < total {
		chunk, err := sas.Read(chunkSize)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading rows %d+: %w", read, err)
		}
		if len(chunk) == 0 {
			break
		}
		if len(chunk) != len(table.Columns) {
			return nil, fmt.Errorf("got %d series for %d columns", len(chunk), len(table.Columns))
		}

		n := 0
		for i, series := range chunk {
			if n, err = appendSeries(&table.Columns[i], series); err != nil {
				return nil, err
			}
		}
		if n == 0 {
			break
		}
		read += n
	}

	return table, nil
}

// appendSeries copies one chunk of a column into col and returns the number of
// values appended.
func appendSeries(col *types.Column, series *datareader.Series) (int, error) {
	missing := series.Missing()
	isMissing := func(i int) bool {
		return i < len(missing) && missing[i]
	}

	switch data := series.Data().(type) {
	case []float64:
		col.Kind = types.Numeric
		for i, v := range data {
			if isMissing(i) || math.IsNaN(v) {
				col.Values = append(col.Values, nil)
				continue
			}
			col.Values = append(col.Values, v)
		}
		return len(data), nil
	case []string:
		col.Kind = types.String
		for i, v := range data {
			if isMissing(i) {
				col.Values = append(col.Values, nil)
				continue
			}
			col.Values = append(col.Values, v)
		}
		return len(data), nil
	case []time.Time:
		col.Kind = types.Date
		for i, v := range data {
			if isMissing(i) {
				col.Values = append(col.Values, nil)
				continue
			}
			col.Values = append(col.Values, v)
		}
		return len(data), nil
	default:
		return 0, fmt.Errorf("column %q: unsupported data type %T", col.Name, data)
	}
}
