package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"ledger/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

// NewSQLiteRepository opens (or creates) the database at dbPath and
// applies pending migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One process, one connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("Ledger schema ready", "path", dbPath, "schema_version", version)

	return NewSQLiteRepositoryFromDB(db), nil
}

// NewSQLiteRepositoryFromDB wraps an already-migrated database handle.
func NewSQLiteRepositoryFromDB(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Insert writes a single entry.
func (r *SQLiteRepository) Insert(ctx context.Context, e core.Entry) error {
	if err := r.queries.CreateEntry(ctx, toParams(e)); err != nil {
		return fmt.Errorf("insert entry %d: %w", e.ID, err)
	}
	slog.InfoContext(ctx, "Entry saved",
		"id", e.ID,
		"date", e.Date.String(),
		"category", e.Category,
		"amount", e.Amount.String(),
		"type", string(e.Type))
	return nil
}

// InsertBatch appends all entries in a single transaction. Either every
// entry is written or none is.
func (r *SQLiteRepository) InsertBatch(ctx context.Context, entries []core.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	err := r.withTx(ctx, func(q *Queries) error {
		for _, e := range entries {
			if err := q.CreateEntry(ctx, toParams(e)); err != nil {
				return fmt.Errorf("insert entry %d: %w", e.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Entries saved", "count", len(entries))
	return nil
}

// List returns entries in storage order, optionally restricted to an
// inclusive date range.
func (r *SQLiteRepository) List(ctx context.Context, dates *core.DateRange) ([]core.Entry, error) {
	var (
		rows []Expenditure
		err  error
	)
	if dates != nil {
		rows, err = r.queries.ListEntriesBetween(ctx, ListEntriesBetweenParams{
			FromDate: dates.From.String(),
			ToDate:   dates.To.String(),
		})
	} else {
		rows, err = r.queries.ListEntries(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	entries := make([]core.Entry, 0, len(rows))
	for _, row := range rows {
		e, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Get returns the entry with the given id, or core.ErrNotFound.
func (r *SQLiteRepository) Get(ctx context.Context, id int64) (core.Entry, error) {
	row, err := r.queries.GetEntry(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, fmt.Errorf("get entry %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("get entry %d: %w", id, err)
	}
	return fromRow(row)
}

func (r *SQLiteRepository) Exists(ctx context.Context, id int64) (bool, error) {
	exists, err := r.queries.EntryExists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("check entry %d: %w", id, err)
	}
	return exists, nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.queries.CountEntries(ctx)
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// Update overwrites date, category, and amount of the entry with the given
// id. It reports whether a row matched; a missing id is not an error.
func (r *SQLiteRepository) Update(ctx context.Context, id int64, date core.Date, category string, amount decimal.Decimal) (bool, error) {
	n, err := r.queries.UpdateEntry(ctx, UpdateEntryParams{
		Date:     date.String(),
		Category: category,
		Amount:   amount.InexactFloat64(),
		ID:       id,
	})
	if err != nil {
		return false, fmt.Errorf("update entry %d: %w", id, err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Entry updated", "id", id)
	}
	return n > 0, nil
}

// Delete removes all given ids in one transaction and returns how many
// rows were removed.
func (r *SQLiteRepository) Delete(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var removed int64
	err := r.withTx(ctx, func(q *Queries) error {
		for _, id := range ids {
			n, err := q.DeleteEntry(ctx, id)
			if err != nil {
				return fmt.Errorf("delete entry %d: %w", id, err)
			}
			removed += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "Entries deleted", "requested", len(ids), "deleted", removed)
	return removed, nil
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(*Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func toParams(e core.Entry) CreateEntryParams {
	return CreateEntryParams{
		ID:       e.ID,
		Date:     e.Date.String(),
		Category: e.Category,
		Amount:   e.Amount.InexactFloat64(),
		Type:     string(e.Type),
	}
}

func fromRow(row Expenditure) (core.Entry, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Entry{}, fmt.Errorf("entry %d: %w", row.ID, err)
	}
	amount, err := core.AmountFromFloat(row.Amount)
	if err != nil {
		return core.Entry{}, fmt.Errorf("entry %d: %w: %v", row.ID, err, row.Amount)
	}
	return core.Entry{
		ID:       row.ID,
		Date:     date,
		Category: row.Category,
		Amount:   amount,
		Type:     core.EntryType(row.Type),
	}, nil
}
