package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

var csvHeader = []string{"replicate", "method", "param", "estimate", "bias"}

// WriteCSV writes the bias records in tidy CSV form, one row per
// (replicate, method, parameter). Failure records are not written; they are
// part of the run log, not the result table.
func WriteCSV(t *BiasTable, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range t.Records {
		row := []string{
			strconv.Itoa(r.Replicate),
			r.Method,
			r.Param,
			strconv.FormatFloat(r.Estimate, 'g', -1, 64),
			strconv.FormatFloat(r.Bias, 'g', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads a bias table previously written by WriteCSV.
func ReadCSV(r io.Reader) (*BiasTable, error) {
	cr := csv.NewReader(r)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty bias CSV")
	}
	if len(rows[0]) != len(csvHeader) {
		return nil, fmt.Errorf("bias CSV has %d columns, want %d", len(rows[0]), len(csvHeader))
	}

	table := NewBiasTable()
	for i, row := range rows[1:] {
		rep, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: bad replicate %q", i+1, row[0])
		}
		estimate, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad estimate %q", i+1, row[3])
		}
		bias, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad bias %q", i+1, row[4])
		}
		table.Append(BiasRecord{
			Replicate: rep,
			Method:    row[1],
			Param:     row[2],
			Estimate:  estimate,
			Bias:      bias,
		})
	}
	return table, nil
}
