package core

import "fmt"

type (
	Expense struct {
		ID          int64   `json:"id"`
		Date        string  `json:"date"`
		Category    string  `json:"category"`
		Description string  `json:"description"`
		Amount      float64 `json:"amount"`
	}

	// ExpenseInput carries the writable fields of an expense. Required fields
	// are pointers so an absent key can be told apart from a zero value.
	ExpenseInput struct {
		Date        *string  `json:"date"`
		Category    *string  `json:"category"`
		Description *string  `json:"description"`
		Amount      *float64 `json:"amount"`
	}

	SalaryInput struct {
		Salary *float64 `json:"salary"`
	}
)

// ValidationError reports a required field that was not supplied.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// Validate performs presence checks only; values are stored as given.
func (in ExpenseInput) Validate() error {
	if in.Date == nil {
		return &ValidationError{Field: "date"}
	}
	if in.Category == nil {
		return &ValidationError{Field: "category"}
	}
	if in.Amount == nil {
		return &ValidationError{Field: "amount"}
	}
	return nil
}

// DescriptionOrEmpty returns the description, or "" when it was omitted.
func (in ExpenseInput) DescriptionOrEmpty() string {
	if in.Description == nil {
		return ""
	}
	return *in.Description
}

// NewExpenseInput builds an input with every field present.
func NewExpenseInput(date, category, description string, amount float64) ExpenseInput {
	return ExpenseInput{
		Date:        &date,
		Category:    &category,
		Description: &description,
		Amount:      &amount,
	}
}

func (in SalaryInput) Validate() error {
	if in.Salary == nil {
		return &ValidationError{Field: "salary"}
	}
	return nil
}

// MonthOf returns the "YYYY-MM" bucket of a date string, matching the
// substr(date, 1, 7) grouping of the monthly summaries.
func MonthOf(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}
