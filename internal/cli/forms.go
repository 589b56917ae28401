package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"ledger/internal/core"
)

// EntryForm is raw user input for a new entry.
type EntryForm struct {
	Date     string `validate:"required,datetime=2006-01-02"`
	Category string `validate:"required,category"`
	Amount   string `validate:"required"`
	Type     string `validate:"required,entry_type"`
}

// EditForm is raw user input for updating an entry.
type EditForm struct {
	ID       int64  `validate:"required,gt=0"`
	Date     string `validate:"required,datetime=2006-01-02"`
	Category string `validate:"required,category"`
	Amount   string `validate:"required"`
}

// RangeForm is an optional inclusive date range plus a category selection.
type RangeForm struct {
	From       string   `validate:"omitempty,datetime=2006-01-02"`
	To         string   `validate:"omitempty,datetime=2006-01-02"`
	Categories []string `validate:"dive,category|eq=All"`
}

// Validator checks forms against the configured category list.
type Validator struct {
	v *validator.Validate
}

func NewValidator(categories core.Categories) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return categories.Contains(fl.Field().String())
	})
	_ = v.RegisterValidation("entry_type", func(fl validator.FieldLevel) bool {
		_, err := core.ParseEntryType(fl.Field().String())
		return err == nil
	})
	return &Validator{v: v}
}

// Validate returns a readable error listing every invalid field.
func (v *Validator) Validate(form any) error {
	err := v.v.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid input: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "datetime":
		return fmt.Sprintf("%s must be a YYYY-MM-DD date", fe.Field())
	case "category", "category|eq=All":
		return fmt.Sprintf("%s %q is not a configured category", fe.Field(), fe.Value())
	case "entry_type":
		return fmt.Sprintf("%s must be Exp or Rev", fe.Field())
	}
	return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
}

// Parse converts a validated form into domain values.
func (f EntryForm) Parse() (core.Date, core.EntryType, error) {
	date, err := core.ParseDate(f.Date)
	if err != nil {
		return core.Date{}, "", err
	}
	typ, err := core.ParseEntryType(f.Type)
	if err != nil {
		return core.Date{}, "", err
	}
	return date, typ, nil
}

var ErrHalfRange = errors.New("both ends of a date range are required")

// Range returns nil when no dates were given.
func (f RangeForm) Range() (*core.DateRange, error) {
	if f.From == "" && f.To == "" {
		return nil, nil
	}
	if f.From == "" || f.To == "" {
		return nil, ErrHalfRange
	}
	from, err := core.ParseDate(f.From)
	if err != nil {
		return nil, err
	}
	to, err := core.ParseDate(f.To)
	if err != nil {
		return nil, err
	}
	return &core.DateRange{From: from, To: to}, nil
}
