package core

import (
	"errors"
	"testing"
)

func ptr[T any](v T) *T { return &v }

func TestExpenseInputValidate(t *testing.T) {
	good := ExpenseInput{Date: ptr("2024-01-15"), Category: ptr("Food"), Amount: ptr(42.5)}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	// zero values are present values
	zero := ExpenseInput{Date: ptr(""), Category: ptr(""), Amount: ptr(0.0)}
	if err := zero.Validate(); err != nil {
		t.Fatalf("expected ok for zero values, got %v", err)
	}

	bads := []struct {
		in    ExpenseInput
		field string
	}{
		{ExpenseInput{Category: ptr("Food"), Amount: ptr(1.0)}, "date"},
		{ExpenseInput{Date: ptr("2024-01-15"), Amount: ptr(1.0)}, "category"},
		{ExpenseInput{Date: ptr("2024-01-15"), Category: ptr("Food")}, "amount"},
		{ExpenseInput{}, "date"},
	}
	for i, tc := range bads {
		err := tc.in.Validate()
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("case %d expected ValidationError, got %v", i, err)
		}
		if verr.Field != tc.field {
			t.Fatalf("case %d expected field %q, got %q", i, tc.field, verr.Field)
		}
	}
}

func TestDescriptionOrEmpty(t *testing.T) {
	if got := (ExpenseInput{}).DescriptionOrEmpty(); got != "" {
		t.Fatalf("expected empty description, got %q", got)
	}
	in := NewExpenseInput("2024-01-15", "Food", "lunch", 10)
	if got := in.DescriptionOrEmpty(); got != "lunch" {
		t.Fatalf("expected lunch, got %q", got)
	}
}

func TestSalaryInputValidate(t *testing.T) {
	if err := (SalaryInput{Salary: ptr(5000.0)}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (SalaryInput{}).Validate(); err == nil {
		t.Fatalf("expected error for missing salary")
	}
}

func TestMonthOf(t *testing.T) {
	cases := map[string]string{
		"2024-01-15": "2024-01",
		"2024-01":    "2024-01",
		"2024":       "2024",
		"":           "",
	}
	for in, want := range cases {
		if got := MonthOf(in); got != want {
			t.Fatalf("MonthOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSavingsFrom(t *testing.T) {
	got := SavingsFrom(1000, []MonthTotal{{Month: "2024-02", Total: 300}, {Month: "2024-01", Total: 1200.5}})
	want := []MonthSavings{{Month: "2024-02", Savings: 700}, {Month: "2024-01", Savings: -200.5}}
	if len(got) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("row %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
