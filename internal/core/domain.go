package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Expenditure EntryType = "Exp"
	Revenue     EntryType = "Rev"
)

const (
	dateLayout    = "2006-01-02"
	compactLayout = "20060102"
)

type (
	// EntryType is the direction of a ledger entry. It is stored with the
	// entry and never changed after creation.
	EntryType string

	Date struct {
		time.Time
	}

	// Entry is one income or expenditure record.
	Entry struct {
		ID       int64
		Date     Date
		Category string
		Amount   decimal.Decimal
		Type     EntryType
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidType   = errors.New("invalid entry type")
	ErrInvalidDate   = errors.New("invalid date")
	ErrIDCollision   = errors.New("entry id collision")
	ErrNotFound      = errors.New("entry not found")
)

// ParseEntryType accepts the stored codes ("Exp", "Rev") and the display
// names ("Expenditure", "Revenue"), case-insensitively.
func ParseEntryType(s string) (EntryType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exp", "expenditure", "expense":
		return Expenditure, nil
	case "rev", "revenue", "income":
		return Revenue, nil
	}
	return "", fmt.Errorf("%w: %q must be %q or %q", ErrInvalidType, s, Expenditure, Revenue)
}

func (t EntryType) Validate() error {
	switch t {
	case Expenditure, Revenue:
		return nil
	}
	return fmt.Errorf("%w: %q must be %q or %q", ErrInvalidType, string(t), Expenditure, Revenue)
}

// Sign is the multiplier used when expenditure and revenue are combined
// into one net figure.
func (t EntryType) Sign() decimal.Decimal {
	if t == Revenue {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// DisplayName returns the long form shown to users.
func (t EntryType) DisplayName() string {
	switch t {
	case Expenditure:
		return "Expenditure"
	case Revenue:
		return "Revenue"
	}
	return string(t)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the time component of t.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

// String formats the date as stored: YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// Compact formats the date as YYYYMMDD, the prefix of generated ids.
func (d Date) Compact() string {
	return d.Format(compactLayout)
}

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

func (e Entry) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return errors.New("empty category")
	}
	if e.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return e.Type.Validate()
}

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	From Date
	To   Date
}

// Contains reports whether d falls within the range, both ends included.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.From) && !r.To.Before(d)
}

func (r DateRange) String() string {
	return r.From.String() + ".." + r.To.String()
}
