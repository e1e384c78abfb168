package core

// CategoryTotal is the summed amount of one category.
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

// MonthTotal is the summed amount of one "YYYY-MM" month.
type MonthTotal struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
}

// MonthSavings is the salary left over in a month after its expenses.
type MonthSavings struct {
	Month   string  `json:"month"`
	Savings float64 `json:"savings"`
}

// SalaryOverview combines the salary setting with the expense totals.
type SalaryOverview struct {
	Salary         float64        `json:"salary"`
	TotalExpenses  float64        `json:"total_expenses"`
	Remaining      float64        `json:"remaining"`
	MonthlySavings []MonthSavings `json:"monthly_savings"`
}

// SavingsFrom derives the per-month savings series from month totals.
// The order of totals is preserved.
func SavingsFrom(salary float64, totals []MonthTotal) []MonthSavings {
	out := make([]MonthSavings, 0, len(totals))
	for _, t := range totals {
		out = append(out, MonthSavings{Month: t.Month, Savings: salary - t.Total})
	}
	return out
}
