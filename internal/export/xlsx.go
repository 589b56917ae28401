package export

import (
	"io"

	"github.com/xuri/excelize/v2"

	"ledger/internal/core"
)

const sheetName = "Ledger"

func writeXLSX(w io.Writer, res core.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return err
	}

	for i, h := range Headers(res) {
		ref, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, ref, h); err != nil {
			return err
		}
	}

	for r, row := range res.Rows {
		for c, col := range res.Columns {
			ref, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, ref, xlsxValue(row, col)); err != nil {
				return err
			}
		}
	}

	if len(res.Columns) > 0 {
		last, err := excelize.ColumnNumberToName(len(res.Columns))
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheetName, "A", last, 14); err != nil {
			return err
		}
	}

	_, err := f.WriteTo(w)
	return err
}

// xlsxValue keeps ids and amounts numeric.
func xlsxValue(row core.Row, col core.Column) any {
	switch col {
	case core.ColumnID:
		return row.ID
	case core.ColumnAmount:
		return row.Amount.InexactFloat64()
	}
	return Cell(row, col)
}
