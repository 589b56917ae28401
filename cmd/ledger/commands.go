package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ledger/internal/cli"
	"ledger/internal/core"
	"ledger/internal/export"
	"ledger/internal/ledger"
	applog "ledger/internal/log"
)

var errNotConfirmed = errors.New("delete not confirmed: pass -yes")

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func today() string {
	return core.DateOf(time.Now()).String()
}

func runCategories(_ context.Context, a *app, args []string) error {
	if err := a.flags("categories").Parse(args); err != nil {
		return err
	}
	for _, c := range a.ledger.Categories() {
		fmt.Fprintln(a.out, c)
	}
	return nil
}

func entryFlags(fs *flag.FlagSet, form *cli.EntryForm) {
	fs.StringVar(&form.Date, "date", today(), "entry date (YYYY-MM-DD)")
	fs.StringVar(&form.Category, "category", "", "entry category")
	fs.StringVar(&form.Amount, "amount", "", "non-negative amount, comma or dot decimals")
	fs.StringVar(&form.Type, "type", string(core.Expenditure), "Exp or Rev")
}

func runAdd(ctx context.Context, a *app, args []string) error {
	var form cli.EntryForm
	fs := a.flags("add")
	entryFlags(fs, &form)
	if err := fs.Parse(args); err != nil {
		return err
	}
	staged, err := a.stage(ctx, form)
	if err != nil {
		return err
	}
	return renderEntries(a.out, "Staged", staged)
}

func (a *app) stage(ctx context.Context, form cli.EntryForm) ([]core.Entry, error) {
	if err := a.forms.Validate(form); err != nil {
		return nil, err
	}
	date, typ, err := form.Parse()
	if err != nil {
		return nil, err
	}
	staged, err := a.ledger.Stage(ctx, date, form.Category, form.Amount, typ)
	if err != nil {
		a.log.Failure(ctx, applog.OpStage, applog.ErrorTypeValidation, err)
		return nil, err
	}
	return staged, nil
}

// parseSessionLine reads "date category amount [type]". The type defaults
// to expenditure.
func parseSessionLine(line string) (cli.EntryForm, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 || len(fields) > 4 {
		return cli.EntryForm{}, fmt.Errorf("want \"date category amount [type]\", got %d fields", len(fields))
	}
	form := cli.EntryForm{
		Date:     fields[0],
		Category: fields[1],
		Amount:   fields[2],
		Type:     string(core.Expenditure),
	}
	if len(fields) == 4 {
		form.Type = fields[3]
	}
	return form, nil
}

// runSession stages one entry per input line. "flush" saves the buffer
// early, "staged" prints it. Bad lines are reported and skipped. Whatever
// is still staged is saved by Shutdown when input ends or a signal arrives.
func runSession(ctx context.Context, a *app, args []string) error {
	if err := a.flags("session").Parse(args); err != nil {
		return err
	}

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(a.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	lineNo := 0
	for {
		select {
		case <-ctx.Done():
			a.log.InfoContext(ctx, "Session interrupted", "staged", len(a.ledger.Staged()))
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			lineNo++
			a.sessionLine(ctx, lineNo, strings.TrimSpace(line))
		}
	}
}

func (a *app) sessionLine(ctx context.Context, lineNo int, line string) {
	switch {
	case line == "" || strings.HasPrefix(line, "#"):
		return
	case line == "flush":
		if err := a.ledger.Flush(ctx); err != nil {
			fmt.Fprintln(a.errOut, warnStyle.Render(err.Error()))
			return
		}
		fmt.Fprintln(a.out, "saved")
		return
	case line == "staged":
		_ = renderEntries(a.out, "Staged", a.ledger.Staged())
		return
	}

	form, err := parseSessionLine(line)
	if err == nil {
		_, err = a.stage(ctx, form)
	}
	if err != nil {
		fmt.Fprintln(a.errOut, warnStyle.Render(fmt.Sprintf("line %d: %v", lineNo, err)))
		return
	}
	fmt.Fprintf(a.out, "staged %d\n", len(a.ledger.Staged()))
}

func runInsert(ctx context.Context, a *app, args []string) error {
	var form cli.EntryForm
	fs := a.flags("insert")
	entryFlags(fs, &form)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.forms.Validate(form); err != nil {
		return err
	}
	date, typ, err := form.Parse()
	if err != nil {
		return err
	}
	amount, err := core.ParseAmount(form.Amount)
	if err != nil {
		return fmt.Errorf("%w: %q", err, form.Amount)
	}
	entry, err := a.ledger.Insert(ctx, date, form.Category, amount, typ)
	if err != nil {
		return err
	}
	return renderEntries(a.out, "Saved", []core.Entry{entry})
}

func rangeFlags(fs *flag.FlagSet, form *cli.RangeForm) {
	fs.StringVar(&form.From, "from", "", "first date of the range (YYYY-MM-DD)")
	fs.StringVar(&form.To, "to", "", "last date of the range (YYYY-MM-DD)")
	fs.Var((*stringList)(&form.Categories), "category", "category to include, repeatable; All selects every category")
}

func (a *app) dates(form cli.RangeForm) (*core.DateRange, error) {
	if err := a.forms.Validate(form); err != nil {
		return nil, err
	}
	return form.Range()
}

func runList(ctx context.Context, a *app, args []string) error {
	var (
		form    cli.RangeForm
		outputs stringList
	)
	q := core.DefaultQuery()
	fs := a.flags("list")
	rangeFlags(fs, &form)
	fs.BoolVar(&q.GroupByDate, "group-date", false, "sum amounts per date")
	fs.BoolVar(&q.GroupByCategory, "group-category", false, "sum amounts per category")
	fs.BoolVar(&q.IncludeID, "id", false, "show entry ids (ungrouped only)")
	fs.BoolVar(&q.IncludeExpenditure, "exp", true, "include expenditure")
	fs.BoolVar(&q.IncludeRevenue, "rev", true, "include revenue")
	fs.Var(&outputs, "o", "export to a .csv, .xlsx, or .json file, repeatable")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dates, err := a.dates(form)
	if err != nil {
		return err
	}
	q.Dates = dates
	q.Categories = form.Categories

	res, err := a.ledger.Query(ctx, q)
	if err != nil {
		a.log.Failure(ctx, applog.OpQuery, applog.ErrorTypeDatabase, err)
		return err
	}
	if err := renderResult(a.out, res); err != nil {
		return err
	}

	if len(outputs) > 0 {
		if err := export.WriteAll(ctx, outputs, res); err != nil {
			a.log.Failure(ctx, applog.OpExport, applog.ErrorTypeInternal, err, "paths", []string(outputs))
			return err
		}
		a.log.InfoContext(ctx, "Result exported", "paths", []string(outputs), applog.FieldRows, len(res.Rows))
	}
	return nil
}

func runSummary(ctx context.Context, a *app, args []string) error {
	var (
		form cli.RangeForm
		req  ledger.SummaryRequest
		typ  string
	)
	fs := a.flags("summary")
	rangeFlags(fs, &form)
	fs.BoolVar(&req.GroupByDate, "group-date", false, "total per date")
	fs.BoolVar(&req.GroupByCategory, "group-category", false, "total per category (default when no grouping is given)")
	fs.StringVar(&typ, "type", string(core.Expenditure), "Exp or Rev")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dates, err := a.dates(form)
	if err != nil {
		return err
	}
	if req.Type, err = core.ParseEntryType(typ); err != nil {
		return err
	}
	if !req.GroupByDate && !req.GroupByCategory {
		req.GroupByCategory = true
	}
	req.Dates = dates
	req.Categories = form.Categories

	sum, err := a.ledger.Summarize(ctx, req)
	if err != nil {
		return err
	}
	return renderSummary(a.out, sum)
}

func runUpdate(ctx context.Context, a *app, args []string) error {
	var form cli.EditForm
	fs := a.flags("update")
	fs.Int64Var(&form.ID, "id", 0, "id of the entry to change")
	fs.StringVar(&form.Date, "date", "", "new date (YYYY-MM-DD)")
	fs.StringVar(&form.Category, "category", "", "new category")
	fs.StringVar(&form.Amount, "amount", "", "new amount")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.forms.Validate(form); err != nil {
		return err
	}
	date, err := core.ParseDate(form.Date)
	if err != nil {
		return err
	}
	amount, err := core.ParseAmount(form.Amount)
	if err != nil {
		return fmt.Errorf("%w: %q", err, form.Amount)
	}

	before, found, err := a.ledger.Get(ctx, form.ID)
	if err != nil {
		return err
	}
	if !found {
		fmt.Fprintln(a.errOut, warnStyle.Render(fmt.Sprintf("no entry with id %d, nothing changed", form.ID)))
		return nil
	}
	if err := a.ledger.Update(ctx, form.ID, date, form.Category, amount); err != nil {
		a.log.Failure(ctx, applog.OpUpdate, applog.ErrorTypeDatabase, err, applog.FieldEntryID, form.ID)
		return err
	}
	after, _, err := a.ledger.Get(ctx, form.ID)
	if err != nil {
		return err
	}
	if err := renderEntries(a.out, "Before", []core.Entry{before}); err != nil {
		return err
	}
	return renderEntries(a.out, "After", []core.Entry{after})
}

func runDelete(ctx context.Context, a *app, args []string) error {
	var yes bool
	fs := a.flags("delete")
	fs.BoolVar(&yes, "yes", false, "confirm the deletion")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ids, err := parseIDs(fs.Args())
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return errors.New("no ids given")
	}
	if !yes {
		fmt.Fprintln(a.errOut, warnStyle.Render(fmt.Sprintf("about to delete %d entries, this cannot be undone", len(ids))))
		return errNotConfirmed
	}
	stored, err := a.ledger.Count(ctx)
	if err != nil {
		return err
	}
	if err := a.ledger.Delete(ctx, ids...); err != nil {
		a.log.Failure(ctx, applog.OpDelete, applog.ErrorTypeDatabase, err)
		return err
	}
	left, err := a.ledger.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted %d of %d requested, %d entries left\n", stored-left, len(ids), left)
	return nil
}

// parseIDs accepts space or comma separated ids. Each id must carry a
// valid date prefix.
func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, fmt.Errorf("invalid id %q", part)
			}
			if _, err := core.IDDate(id); err != nil {
				return nil, fmt.Errorf("invalid id %q: no date prefix", part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
