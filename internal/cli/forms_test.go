package cli

import (
	"errors"
	"strings"
	"testing"

	"ledger/internal/core"
)

func testValidator() *Validator {
	return NewValidator(core.NewCategories([]string{"Food", "Salary"}))
}

func TestEntryFormValidation(t *testing.T) {
	v := testValidator()
	tests := []struct {
		name    string
		form    EntryForm
		wantErr string
	}{
		{"valid", EntryForm{Date: "2024-01-01", Category: "Food", Amount: "1", Type: "Exp"}, ""},
		{"display type", EntryForm{Date: "2024-01-01", Category: "Salary", Amount: "1", Type: "Revenue"}, ""},
		{"bad date", EntryForm{Date: "01/01/2024", Category: "Food", Amount: "1", Type: "Exp"}, "Date must be a YYYY-MM-DD date"},
		{"unknown category", EntryForm{Date: "2024-01-01", Category: "Cars", Amount: "1", Type: "Exp"}, `Category "Cars" is not a configured category`},
		{"missing amount", EntryForm{Date: "2024-01-01", Category: "Food", Type: "Exp"}, "Amount is required"},
		{"bad type", EntryForm{Date: "2024-01-01", Category: "Food", Amount: "1", Type: "Both"}, "Type must be Exp or Rev"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.form)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestEntryFormParse(t *testing.T) {
	date, typ, err := EntryForm{Date: "2024-02-29", Category: "Food", Amount: "1", Type: "expenditure"}.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if date.String() != "2024-02-29" || typ != core.Expenditure {
		t.Fatalf("unexpected parse %s %s", date, typ)
	}
}

func TestRangeForm(t *testing.T) {
	v := testValidator()

	all := RangeForm{Categories: []string{"All"}}
	if err := v.Validate(all); err != nil {
		t.Fatalf("All should be accepted: %v", err)
	}
	if r, err := all.Range(); err != nil || r != nil {
		t.Fatalf("expected no range, got %v %v", r, err)
	}

	if err := v.Validate(RangeForm{Categories: []string{"Food", "Cars"}}); err == nil {
		t.Fatal("expected unknown category to fail")
	}

	half := RangeForm{From: "2024-01-01"}
	if _, err := half.Range(); !errors.Is(err, ErrHalfRange) {
		t.Fatalf("expected ErrHalfRange, got %v", err)
	}

	full := RangeForm{From: "2024-01-01", To: "2024-01-31"}
	if err := v.Validate(full); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	r, err := full.Range()
	if err != nil || r.String() != "2024-01-01..2024-01-31" {
		t.Fatalf("unexpected range %v %v", r, err)
	}
}

func TestEditFormRequiresID(t *testing.T) {
	err := testValidator().Validate(EditForm{Date: "2024-01-01", Category: "Food", Amount: "1"})
	if err == nil || !strings.Contains(err.Error(), "ID is required") {
		t.Fatalf("expected ID error, got %v", err)
	}
}
