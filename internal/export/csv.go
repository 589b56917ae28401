package export

import (
	"encoding/csv"
	"io"

	"ledger/internal/core"
)

func writeCSV(w io.Writer, res core.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Headers(res)); err != nil {
		return err
	}
	record := make([]string, len(res.Columns))
	for _, row := range res.Rows {
		for i, col := range res.Columns {
			record[i] = Cell(row, col)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
