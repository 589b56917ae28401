// Package ledger is the record store behind every front-end: it owns the
// staging buffer, assigns entry ids, and answers filtered and grouped
// queries over the persisted entries.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/metrics"
)

// DefaultIDAttempts bounds id regeneration when a collision is detected.
const DefaultIDAttempts = 8

// Repository is the durable side of the ledger.
type Repository interface {
	Insert(ctx context.Context, e core.Entry) error
	InsertBatch(ctx context.Context, entries []core.Entry) error
	List(ctx context.Context, dates *core.DateRange) ([]core.Entry, error)
	Get(ctx context.Context, id int64) (core.Entry, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, id int64, date core.Date, category string, amount decimal.Decimal) (bool, error)
	Delete(ctx context.Context, ids ...int64) (int64, error)
	Close() error
}

type Options struct {
	// Categories is the fixed category list offered to users and used to
	// expand an "All" selection.
	Categories core.Categories
	Logger     *slog.Logger
	// Cache holds query results until the next write. Optional.
	Cache cache.Cache[core.Result]
	// Metrics is optional; a nil value disables instrumentation.
	Metrics *metrics.Metrics
	// MetricsFile receives the metrics textfile on Shutdown when set.
	MetricsFile string
	// Random drives id suffixes. Defaults to math/rand/v2.
	Random     core.RandomFunc
	IDAttempts int
}

// Ledger is not safe for concurrent use; it is driven by a single
// front-end goroutine.
type Ledger struct {
	repo        Repository
	categories  core.Categories
	log         *slog.Logger
	cache       cache.Cache[core.Result]
	metrics     *metrics.Metrics
	metricsFile string
	random      core.RandomFunc
	idAttempts  int

	staged []core.Entry
}

func New(repo Repository, opts Options) *Ledger {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	random := opts.Random
	if random == nil {
		random = rand.IntN
	}
	attempts := opts.IDAttempts
	if attempts < 1 {
		attempts = DefaultIDAttempts
	}
	categories := opts.Categories
	if categories.Len() == 0 {
		categories = core.NewCategories(core.DefaultCategories)
	}
	return &Ledger{
		repo:        repo,
		categories:  categories,
		log:         logger.With("component", "ledger"),
		cache:       opts.Cache,
		metrics:     opts.Metrics,
		metricsFile: opts.MetricsFile,
		random:      random,
		idAttempts:  attempts,
	}
}

// Categories returns the configured category list.
func (l *Ledger) Categories() []string {
	return l.categories.All()
}

// Stage validates an entry and appends it to the staging buffer. Nothing is
// written to disk until Flush or Shutdown. On error the buffer is left
// unchanged. The returned slice is a copy of the whole buffer.
func (l *Ledger) Stage(ctx context.Context, date core.Date, category, amountText string, typ core.EntryType) (staged []core.Entry, err error) {
	defer l.observe("stage", time.Now(), &err)

	amount, err := core.ParseAmount(amountText)
	if err != nil {
		return nil, fmt.Errorf("stage entry: %w: %q", err, amountText)
	}
	if err := typ.Validate(); err != nil {
		return nil, fmt.Errorf("stage entry: %w", err)
	}
	if err := date.Validate(); err != nil {
		return nil, fmt.Errorf("stage entry: %w", err)
	}

	id, err := l.newID(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("stage entry: %w", err)
	}

	l.staged = append(l.staged, core.Entry{
		ID:       id,
		Date:     date,
		Category: category,
		Amount:   amount,
		Type:     typ,
	})
	l.metrics.SetStaged(len(l.staged))
	l.log.DebugContext(ctx, "Entry staged", "id", id, "category", category, "staged", len(l.staged))

	return l.Staged(), nil
}

// Staged returns a copy of the staging buffer.
func (l *Ledger) Staged() []core.Entry {
	return append([]core.Entry(nil), l.staged...)
}

// Flush appends the staging buffer to the store as one batch. The buffer
// is cleared only when the batch is written.
func (l *Ledger) Flush(ctx context.Context) (err error) {
	if len(l.staged) == 0 {
		return nil
	}
	defer l.observe("flush", time.Now(), &err)

	if err := l.repo.InsertBatch(ctx, l.staged); err != nil {
		return fmt.Errorf("flush staged entries: %w", err)
	}
	l.log.InfoContext(ctx, "Staged entries flushed", "count", len(l.staged))
	l.staged = nil
	l.metrics.SetStaged(0)
	l.invalidate()
	return nil
}

// Insert validates and writes one entry immediately.
func (l *Ledger) Insert(ctx context.Context, date core.Date, category string, amount decimal.Decimal, typ core.EntryType) (entry core.Entry, err error) {
	defer l.observe("insert", time.Now(), &err)

	if err := typ.Validate(); err != nil {
		return core.Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	if err := core.ValidateAmount(amount); err != nil {
		return core.Entry{}, fmt.Errorf("insert entry: %w: %s", err, amount)
	}
	if err := date.Validate(); err != nil {
		return core.Entry{}, fmt.Errorf("insert entry: %w", err)
	}

	id, err := l.newID(ctx, date)
	if err != nil {
		return core.Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	entry = core.Entry{ID: id, Date: date, Category: category, Amount: amount, Type: typ}
	if err := l.repo.Insert(ctx, entry); err != nil {
		return core.Entry{}, err
	}
	l.invalidate()
	return entry, nil
}

// Query loads the persisted entries in q.Dates and runs the query
// pipeline. An empty category selection, or one containing "All", means
// every configured category.
func (l *Ledger) Query(ctx context.Context, q core.Query) (res core.Result, err error) {
	defer l.observe("query", time.Now(), &err)

	q.Categories = l.categories.Resolve(q.Categories)
	key := cacheKey(q)
	if l.cache != nil {
		cached, ok := l.cache.Get(key)
		l.metrics.CacheLookup(ok)
		if ok {
			l.log.DebugContext(ctx, "Query served from cache", "rows", len(cached.Rows))
			return cloneResult(cached), nil
		}
	}

	entries, err := l.repo.List(ctx, q.Dates)
	if err != nil {
		return core.Result{}, fmt.Errorf("query entries: %w", err)
	}
	res = core.Apply(entries, q)
	l.metrics.ObserveRows(len(res.Rows))

	if l.cache != nil {
		l.cache.Set(key, cloneResult(res))
	}
	return res, nil
}

// Get returns the stored entry with the given id. Staged entries are not
// visible. The second result is false when no entry has that id.
func (l *Ledger) Get(ctx context.Context, id int64) (core.Entry, bool, error) {
	e, err := l.repo.Get(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.Entry{}, false, nil
	}
	if err != nil {
		return core.Entry{}, false, err
	}
	return e, true, nil
}

// Count returns the number of stored entries.
func (l *Ledger) Count(ctx context.Context) (int64, error) {
	return l.repo.Count(ctx)
}

// Update overwrites the date, category, and amount of the entry with the
// given id. The id and type never change. An unknown id is a no-op.
func (l *Ledger) Update(ctx context.Context, id int64, date core.Date, category string, amount decimal.Decimal) (err error) {
	defer l.observe("update", time.Now(), &err)

	if err := core.ValidateAmount(amount); err != nil {
		return fmt.Errorf("update entry %d: %w: %s", id, err, amount)
	}
	if err := date.Validate(); err != nil {
		return fmt.Errorf("update entry %d: %w", id, err)
	}

	matched, err := l.repo.Update(ctx, id, date, category, amount)
	if err != nil {
		return err
	}
	if !matched {
		l.log.DebugContext(ctx, "Update matched no entry", "id", id)
		return nil
	}
	l.invalidate()
	return nil
}

// Delete removes every listed id in one batch. Unknown ids are ignored.
func (l *Ledger) Delete(ctx context.Context, ids ...int64) (err error) {
	if len(ids) == 0 {
		return nil
	}
	defer l.observe("delete", time.Now(), &err)

	removed, err := l.repo.Delete(ctx, ids...)
	if err != nil {
		return err
	}
	if removed > 0 {
		l.invalidate()
	}
	return nil
}

// Shutdown flushes the staging buffer and closes the store. The store is
// closed even when the flush fails.
func (l *Ledger) Shutdown(ctx context.Context) error {
	var errs []error
	if err := l.Flush(ctx); err != nil {
		l.log.ErrorContext(ctx, "Flush on shutdown failed", "error", err, "lost", len(l.staged))
		errs = append(errs, err)
	}
	if err := l.metrics.WriteTextfile(l.metricsFile); err != nil {
		errs = append(errs, fmt.Errorf("write metrics: %w", err))
	}
	if err := l.repo.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}

// newID generates a date-prefixed id that is free in both the staging
// buffer and the store.
func (l *Ledger) newID(ctx context.Context, date core.Date) (int64, error) {
	for attempt := 1; attempt <= l.idAttempts; attempt++ {
		id := core.GenerateID(date, l.random)

		taken := l.isStaged(id)
		if !taken {
			exists, err := l.repo.Exists(ctx, id)
			if err != nil {
				return 0, err
			}
			taken = exists
		}
		if !taken {
			return id, nil
		}
		l.log.WarnContext(ctx, "Entry id collision", "id", id, "date", date.String(), "attempt", attempt)
	}
	return 0, fmt.Errorf("%w: no free id for %s after %d attempts", core.ErrIDCollision, date, l.idAttempts)
}

func (l *Ledger) isStaged(id int64) bool {
	for _, e := range l.staged {
		if e.ID == id {
			return true
		}
	}
	return false
}

func (l *Ledger) invalidate() {
	if l.cache != nil {
		l.cache.Purge()
	}
}

func (l *Ledger) observe(op string, start time.Time, err *error) {
	l.metrics.Observe(op, start, *err)
}

func cacheKey(q core.Query) string {
	var b strings.Builder
	if q.Dates != nil {
		b.WriteString(q.Dates.String())
	}
	b.WriteByte('|')
	b.WriteString(strings.Join(q.Categories, "\x1f"))
	fmt.Fprintf(&b, "|%t|%t|%t|%t|%t",
		q.GroupByDate, q.GroupByCategory, q.IncludeID, q.IncludeExpenditure, q.IncludeRevenue)
	return b.String()
}

func cloneResult(r core.Result) core.Result {
	return core.Result{
		Columns: append([]core.Column(nil), r.Columns...),
		Rows:    append([]core.Row(nil), r.Rows...),
	}
}
