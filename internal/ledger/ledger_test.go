package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/storage"
)

var testCategories = core.NewCategories([]string{"Food", "Rent", "Salary"})

func openRepo(t *testing.T, path string) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	return repo
}

func newTestLedger(t *testing.T, opts Options) (*Ledger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	repo := openRepo(t, path)
	t.Cleanup(func() { repo.Close() })
	if opts.Categories.Len() == 0 {
		opts.Categories = testCategories
	}
	return New(repo, opts), path
}

// sequence returns the given suffixes in order, repeating the last one.
func sequence(values ...int) core.RandomFunc {
	i := 0
	return func(int) int {
		v := values[i]
		if i < len(values)-1 {
			i++
		}
		return v
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestStageThenFlush(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	ctx := context.Background()
	day := core.NewDate(2024, 3, 15)

	staged, err := l.Stage(ctx, day, "Food", "12,50", core.Expenditure)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if len(staged) != 1 || staged[0].ID == 0 {
		t.Fatalf("unexpected buffer %+v", staged)
	}
	if id, _ := core.IDDate(staged[0].ID); id.String() != "2024-03-15" {
		t.Fatalf("id %d not prefixed with entry date", staged[0].ID)
	}

	res, err := l.Query(ctx, core.DefaultQuery())
	if err != nil || len(res.Rows) != 0 {
		t.Fatalf("staged entries must not be durable yet: rows=%d err=%v", len(res.Rows), err)
	}

	if err := l.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(l.Staged()) != 0 {
		t.Fatal("buffer should be empty after flush")
	}

	q := core.DefaultQuery()
	q.IncludeID = true
	res, err = l.Query(ctx, q)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(res.Rows))
	}
	row := res.Rows[0]
	if row.ID != staged[0].ID || row.Date.String() != "2024-03-15" || row.Category != "Food" || !row.Amount.Equal(dec("12.5")) {
		t.Fatalf("unexpected row %+v", row)
	}
}

func TestStageInvalidAmountLeavesStateUnchanged(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	ctx := context.Background()
	day := core.NewDate(2024, 1, 1)

	if _, err := l.Stage(ctx, day, "Food", "1", core.Expenditure); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	for _, bad := range []string{"abc", "", "-3"} {
		if _, err := l.Stage(ctx, day, "Food", bad, core.Expenditure); !errors.Is(err, core.ErrInvalidAmount) {
			t.Fatalf("%q: expected ErrInvalidAmount, got %v", bad, err)
		}
	}
	if len(l.Staged()) != 1 {
		t.Fatalf("buffer changed: %+v", l.Staged())
	}
	res, _ := l.Query(ctx, core.DefaultQuery())
	if len(res.Rows) != 0 {
		t.Fatalf("store changed: %+v", res.Rows)
	}
}

func TestStageAndInsertRejectUnknownType(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	ctx := context.Background()
	day := core.NewDate(2024, 1, 1)

	if _, err := l.Stage(ctx, day, "Food", "1", "Transfer"); !errors.Is(err, core.ErrInvalidType) {
		t.Fatalf("Stage: expected ErrInvalidType, got %v", err)
	}
	if _, err := l.Insert(ctx, day, "Food", dec("1"), "Transfer"); !errors.Is(err, core.ErrInvalidType) {
		t.Fatalf("Insert: expected ErrInvalidType, got %v", err)
	}
	if _, err := l.Insert(ctx, day, "Food", dec("-1"), core.Expenditure); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("Insert: expected ErrInvalidAmount, got %v", err)
	}
}

func TestQueryMixedMonth(t *testing.T) {
	l, _ := newTestLedger(t, Options{Random: sequence(1, 2)})
	ctx := context.Background()
	day := core.NewDate(2024, 1, 1)

	if _, err := l.Insert(ctx, day, "Food", dec("12.50"), core.Expenditure); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := l.Insert(ctx, day, "Salary", dec("2000.00"), core.Revenue); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	q := core.DefaultQuery()
	q.Dates = &core.DateRange{From: day, To: day}
	q.Categories = []string{core.AllCategories}
	res, err := l.Query(ctx, q)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %+v", res.Rows)
	}
	if r := res.Rows[0]; r.Category != "Food" || !r.Amount.Equal(dec("12.50")) || r.Date.String() != "2024-01-01" {
		t.Fatalf("unexpected first row %+v", r)
	}
	if r := res.Rows[1]; r.Category != "Salary" || !r.Amount.Equal(dec("-2000")) {
		t.Fatalf("unexpected second row %+v", r)
	}
	if res.Has(core.ColumnID) {
		t.Fatal("id column should be absent")
	}
}

func TestQuerySameDateTiesFollowID(t *testing.T) {
	l, _ := newTestLedger(t, Options{Random: sequence(9999, 1)})
	ctx := context.Background()
	day := core.NewDate(2024, 1, 1)

	if _, err := l.Insert(ctx, day, "Food", dec("12.50"), core.Expenditure); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := l.Insert(ctx, day, "Salary", dec("2000.00"), core.Revenue); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	res, err := l.Query(ctx, core.DefaultQuery())
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res.Rows) != 2 || res.Rows[0].Category != "Salary" || res.Rows[1].Category != "Food" {
		t.Fatalf("same-date rows must come back in id order, got %+v", res.Rows)
	}
}

func TestOversizedAmountNeverReachesStore(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	ctx := context.Background()
	day := core.NewDate(2024, 1, 1)

	if _, err := l.Stage(ctx, day, "Food", "1e400", core.Expenditure); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("Stage: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := l.Insert(ctx, day, "Food", dec("1e400"), core.Expenditure); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("Insert: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := l.Stage(ctx, day, "Food", "5", core.Expenditure); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if err := l.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	res, err := l.Query(ctx, core.DefaultQuery())
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res.Rows) != 1 || !res.Rows[0].Amount.Equal(dec("5")) {
		t.Fatalf("unexpected rows %+v", res.Rows)
	}
	if _, err := l.Summarize(ctx, SummaryRequest{GroupByCategory: true, Type: core.Expenditure}); err != nil {
		t.Fatalf("Summarize: %v", err)
	}
}

func TestGetAndCount(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	ctx := context.Background()

	e, err := l.Insert(ctx, core.NewDate(2024, 5, 1), "Rent", dec("800"), core.Expenditure)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, ok, err := l.Get(ctx, e.ID)
	if err != nil || !ok || got.Category != "Rent" || !got.Amount.Equal(dec("800")) {
		t.Fatalf("Get: %+v ok=%v err=%v", got, ok, err)
	}
	if _, ok, err := l.Get(ctx, e.ID+1); err != nil || ok {
		t.Fatalf("Get of unknown id: ok=%v err=%v", ok, err)
	}
	if n, err := l.Count(ctx); err != nil || n != 1 {
		t.Fatalf("Count: %d err=%v", n, err)
	}
}

func TestQueryOrdersByDateAndFiltersRange(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	ctx := context.Background()

	for _, d := range []core.Date{core.NewDate(2024, 1, 9), core.NewDate(2024, 1, 2), core.NewDate(2024, 1, 5)} {
		if _, err := l.Insert(ctx, d, "Food", dec("1"), core.Expenditure); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	res, err := l.Query(ctx, core.DefaultQuery())
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	var dates []string
	for _, r := range res.Rows {
		dates = append(dates, r.Date.String())
	}
	if len(dates) != 3 || dates[0] != "2024-01-02" || dates[1] != "2024-01-05" || dates[2] != "2024-01-09" {
		t.Fatalf("unexpected order %v", dates)
	}

	q := core.DefaultQuery()
	q.Dates = &core.DateRange{From: core.NewDate(2024, 1, 2), To: core.NewDate(2024, 1, 5)}
	res, err = l.Query(ctx, q)
	if err != nil || len(res.Rows) != 2 {
		t.Fatalf("expected 2 rows in range, got %d (err=%v)", len(res.Rows), err)
	}
}

func TestUpdate(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	ctx := context.Background()

	e, err := l.Insert(ctx, core.NewDate(2024, 1, 1), "Salary", dec("100"), core.Revenue)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if err := l.Update(ctx, e.ID+1, core.NewDate(2024, 2, 1), "Rent", dec("1")); err != nil {
		t.Fatalf("update of missing id should be a no-op, got %v", err)
	}
	if err := l.Update(ctx, e.ID, core.NewDate(2024, 2, 1), "Rent", dec("-1")); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	q := core.DefaultQuery()
	q.IncludeID = true
	before, _ := l.Query(ctx, q)
	if len(before.Rows) != 1 || before.Rows[0].Category != "Salary" {
		t.Fatalf("store changed by no-op update: %+v", before.Rows)
	}

	if err := l.Update(ctx, e.ID, core.NewDate(2024, 2, 1), "Rent", dec("150")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	after, err := l.Query(ctx, q)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	r := after.Rows[0]
	if r.ID != e.ID || r.Category != "Rent" || r.Date.String() != "2024-02-01" {
		t.Fatalf("unexpected row %+v", r)
	}
	// Type is preserved: revenue still signs negative.
	if !r.Amount.Equal(dec("-150")) {
		t.Fatalf("expected -150, got %s", r.Amount)
	}
}

func TestDelete(t *testing.T) {
	l, _ := newTestLedger(t, Options{})
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 4; i++ {
		e, err := l.Insert(ctx, core.NewDate(2024, 1, i+1), "Food", dec("1"), core.Expenditure)
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
		ids = append(ids, e.ID)
	}

	if err := l.Delete(ctx, ids[0], ids[2]); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	q := core.DefaultQuery()
	q.IncludeID = true
	res, err := l.Query(ctx, q)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res.Rows) != 2 || res.Rows[0].ID != ids[1] || res.Rows[1].ID != ids[3] {
		t.Fatalf("unexpected remaining rows %+v", res.Rows)
	}
}

func TestShutdownFlushesAndCloses(t *testing.T) {
	l, path := newTestLedger(t, Options{})
	ctx := context.Background()

	for _, amount := range []string{"1", "2", "3"} {
		if _, err := l.Stage(ctx, core.NewDate(2024, 5, 1), "Food", amount, core.Expenditure); err != nil {
			t.Fatalf("Stage: %v", err)
		}
	}
	if err := l.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	repo := openRepo(t, path)
	defer repo.Close()
	n, err := repo.Count(ctx)
	if err != nil || n != 3 {
		t.Fatalf("expected 3 durable rows, got %d (err=%v)", n, err)
	}
}

func TestIDCollisionRetries(t *testing.T) {
	l, _ := newTestLedger(t, Options{Random: sequence(7, 7, 7, 8)})
	ctx := context.Background()
	day := core.NewDate(2024, 1, 1)

	first, err := l.Insert(ctx, day, "Food", dec("1"), core.Expenditure)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	staged, err := l.Stage(ctx, day, "Food", "1", core.Expenditure)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if first.ID != 202401010007 || staged[0].ID != 202401010008 {
		t.Fatalf("unexpected ids %d %d", first.ID, staged[0].ID)
	}
}

func TestIDCollisionExhausted(t *testing.T) {
	l, _ := newTestLedger(t, Options{Random: sequence(3), IDAttempts: 4})
	ctx := context.Background()
	day := core.NewDate(2024, 1, 1)

	if _, err := l.Stage(ctx, day, "Food", "1", core.Expenditure); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if _, err := l.Stage(ctx, day, "Food", "1", core.Expenditure); !errors.Is(err, core.ErrIDCollision) {
		t.Fatalf("expected ErrIDCollision, got %v", err)
	}
	if len(l.Staged()) != 1 {
		t.Fatalf("failed stage must not grow the buffer: %+v", l.Staged())
	}
}

func TestQueryCacheInvalidatedOnWrite(t *testing.T) {
	lru := cache.NewLRU[core.Result](8, 0)
	l, _ := newTestLedger(t, Options{Cache: lru})
	ctx := context.Background()

	if _, err := l.Insert(ctx, core.NewDate(2024, 1, 1), "Food", dec("1"), core.Expenditure); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := l.Query(ctx, core.DefaultQuery()); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if _, err := l.Query(ctx, core.DefaultQuery()); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if s := lru.Stats(); s.Hits != 1 {
		t.Fatalf("expected a cache hit, got %+v", s)
	}

	if _, err := l.Insert(ctx, core.NewDate(2024, 1, 2), "Food", dec("2"), core.Expenditure); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	res, err := l.Query(ctx, core.DefaultQuery())
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("stale cached result: %+v", res.Rows)
	}
}

type failingRepo struct {
	insertErr error
	closed    bool
}

func (r *failingRepo) Insert(context.Context, core.Entry) error { return r.insertErr }
func (r *failingRepo) InsertBatch(context.Context, []core.Entry) error { return r.insertErr }
func (r *failingRepo) List(context.Context, *core.DateRange) ([]core.Entry, error) {
	return nil, r.insertErr
}
func (r *failingRepo) Get(context.Context, int64) (core.Entry, error) {
	return core.Entry{}, r.insertErr
}
func (r *failingRepo) Exists(context.Context, int64) (bool, error) { return false, nil }
func (r *failingRepo) Count(context.Context) (int64, error) { return 0, r.insertErr }
func (r *failingRepo) Update(context.Context, int64, core.Date, string, decimal.Decimal) (bool, error) {
	return false, r.insertErr
}
func (r *failingRepo) Delete(context.Context, ...int64) (int64, error) { return 0, r.insertErr }
func (r *failingRepo) Close() error {
	r.closed = true
	return nil
}

func TestStorageErrorsPropagate(t *testing.T) {
	errDisk := errors.New("disk full")
	repo := &failingRepo{insertErr: errDisk}
	l := New(repo, Options{Categories: testCategories})
	ctx := context.Background()
	day := core.NewDate(2024, 1, 1)

	if _, err := l.Insert(ctx, day, "Food", dec("1"), core.Expenditure); !errors.Is(err, errDisk) {
		t.Fatalf("Insert: expected storage error, got %v", err)
	}
	if _, err := l.Query(ctx, core.DefaultQuery()); !errors.Is(err, errDisk) {
		t.Fatalf("Query: expected storage error, got %v", err)
	}
	if err := l.Delete(ctx, 1); !errors.Is(err, errDisk) {
		t.Fatalf("Delete: expected storage error, got %v", err)
	}

	if _, err := l.Stage(ctx, day, "Food", "1", core.Expenditure); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if err := l.Shutdown(ctx); !errors.Is(err, errDisk) {
		t.Fatalf("Shutdown: expected flush error, got %v", err)
	}
	if !repo.closed {
		t.Fatal("store must be closed even when flush fails")
	}
	if len(l.Staged()) != 1 {
		t.Fatal("buffer must be kept when flush fails")
	}
}
