package export

import (
	"bytes"
	"encoding/json"
	"io"

	"ledger/internal/core"
)

// record marshals one row as an object whose keys follow the result's
// column order.
type record struct {
	columns []core.Column
	row     core.Row
}

func (r record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(string(col))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		var value any
		switch col {
		case core.ColumnID:
			value = r.row.ID
		case core.ColumnAmount:
			value = json.Number(r.row.Amount.String())
		default:
			value = Cell(r.row, col)
		}
		b, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// writeJSON emits an array of objects keyed by column name, one per row.
// Amounts are JSON numbers; ids are integers.
func writeJSON(w io.Writer, res core.Result) error {
	records := make([]record, 0, len(res.Rows))
	for _, row := range res.Rows {
		records = append(records, record{columns: res.Columns, row: row})
	}
	return json.NewEncoder(w).Encode(records)
}
