package storage

import (
	"context"
)

// Expenditure mirrors one row of the expenditure table.
type Expenditure struct {
	ID       int64
	Date     string
	Category string
	Amount   float64
	Type     string
}

const createEntry = `INSERT INTO expenditure (id, Date, Category, Amount, Type)
VALUES (?, ?, ?, ?, ?)`

type CreateEntryParams struct {
	ID       int64
	Date     string
	Category string
	Amount   float64
	Type     string
}

func (q *Queries) CreateEntry(ctx context.Context, arg CreateEntryParams) error {
	_, err := q.db.ExecContext(ctx, createEntry,
		arg.ID,
		arg.Date,
		arg.Category,
		arg.Amount,
		arg.Type,
	)
	return err
}

const listEntries = `SELECT id, Date, Category, Amount, Type
FROM expenditure
ORDER BY id`

func (q *Queries) ListEntries(ctx context.Context) ([]Expenditure, error) {
	return q.scanEntries(ctx, listEntries)
}

const listEntriesBetween = `SELECT id, Date, Category, Amount, Type
FROM expenditure
WHERE Date BETWEEN ? AND ?
ORDER BY id`

type ListEntriesBetweenParams struct {
	FromDate string
	ToDate   string
}

func (q *Queries) ListEntriesBetween(ctx context.Context, arg ListEntriesBetweenParams) ([]Expenditure, error) {
	return q.scanEntries(ctx, listEntriesBetween, arg.FromDate, arg.ToDate)
}

func (q *Queries) scanEntries(ctx context.Context, query string, args ...interface{}) ([]Expenditure, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Expenditure
	for rows.Next() {
		var i Expenditure
		if err := rows.Scan(
			&i.ID,
			&i.Date,
			&i.Category,
			&i.Amount,
			&i.Type,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getEntry = `SELECT id, Date, Category, Amount, Type
FROM expenditure
WHERE id = ?`

func (q *Queries) GetEntry(ctx context.Context, id int64) (Expenditure, error) {
	row := q.db.QueryRowContext(ctx, getEntry, id)
	var i Expenditure
	err := row.Scan(
		&i.ID,
		&i.Date,
		&i.Category,
		&i.Amount,
		&i.Type,
	)
	return i, err
}

const entryExists = `SELECT EXISTS (SELECT 1 FROM expenditure WHERE id = ?)`

func (q *Queries) EntryExists(ctx context.Context, id int64) (bool, error) {
	row := q.db.QueryRowContext(ctx, entryExists, id)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const countEntries = `SELECT COUNT(*) FROM expenditure`

func (q *Queries) CountEntries(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countEntries)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const updateEntry = `UPDATE expenditure
SET Date = ?, Category = ?, Amount = ?
WHERE id = ?`

type UpdateEntryParams struct {
	Date     string
	Category string
	Amount   float64
	ID       int64
}

func (q *Queries) UpdateEntry(ctx context.Context, arg UpdateEntryParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateEntry,
		arg.Date,
		arg.Category,
		arg.Amount,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteEntry = `DELETE FROM expenditure WHERE id = ?`

func (q *Queries) DeleteEntry(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteEntry, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
