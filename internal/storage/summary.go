package storage

import (
	"context"
	"database/sql"
	"fmt"

	"saldo/internal/core"
)

const (
	monthTotalsAsc = `SELECT substr(date, 1, 7) AS month, SUM(amount) AS total
	                    FROM expenses
	                   GROUP BY month
	                   ORDER BY month ASC`

	monthTotalsDesc = `SELECT substr(date, 1, 7) AS month, SUM(amount) AS total
	                     FROM expenses
	                    GROUP BY month
	                    ORDER BY month DESC`

	categoryTotals = `SELECT category, SUM(amount) AS total
	                    FROM expenses
	                   GROUP BY category
	                   ORDER BY total DESC, category ASC
	                   LIMIT ?`
)

// CategorySummary returns the per-category sums, largest first.
func (r *Repository) CategorySummary(ctx context.Context) ([]core.CategoryTotal, error) {
	return r.TopCategories(ctx, 0)
}

// TopCategories returns the limit largest per-category sums. A limit of zero
// or less returns every category.
func (r *Repository) TopCategories(ctx context.Context, limit int) ([]core.CategoryTotal, error) {
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}

	var totals []core.CategoryTotal
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, categoryTotals, limit)
		if err != nil {
			return fmt.Errorf("query category totals: %w", err)
		}
		defer rows.Close()

		totals = make([]core.CategoryTotal, 0)
		for rows.Next() {
			var ct core.CategoryTotal
			if err := rows.Scan(&ct.Category, &ct.Total); err != nil {
				return fmt.Errorf("scan category total: %w", err)
			}
			totals = append(totals, ct)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return totals, nil
}

// MonthlySummary returns the per-month sums in ascending month order.
func (r *Repository) MonthlySummary(ctx context.Context) ([]core.MonthTotal, error) {
	var totals []core.MonthTotal
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		var err error
		totals, err = monthTotals(ctx, conn, monthTotalsAsc)
		return err
	})
	if err != nil {
		return nil, err
	}
	return totals, nil
}

// MonthlySavings returns salary minus each month's expenses, newest month
// first.
func (r *Repository) MonthlySavings(ctx context.Context) ([]core.MonthSavings, error) {
	var savings []core.MonthSavings
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		salary, err := getSalary(ctx, conn)
		if err != nil {
			return err
		}
		totals, err := monthTotals(ctx, conn, monthTotalsDesc)
		if err != nil {
			return err
		}
		savings = core.SavingsFrom(salary, totals)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return savings, nil
}

// SalaryOverview reads the salary, the expense total and the savings series
// on one connection.
func (r *Repository) SalaryOverview(ctx context.Context) (core.SalaryOverview, error) {
	var ov core.SalaryOverview
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		salary, err := getSalary(ctx, conn)
		if err != nil {
			return err
		}
		total, err := totalExpenses(ctx, conn)
		if err != nil {
			return err
		}
		totals, err := monthTotals(ctx, conn, monthTotalsDesc)
		if err != nil {
			return err
		}
		ov = core.SalaryOverview{
			Salary:         salary,
			TotalExpenses:  total,
			Remaining:      salary - total,
			MonthlySavings: core.SavingsFrom(salary, totals),
		}
		return nil
	})
	return ov, err
}

func monthTotals(ctx context.Context, conn *sql.Conn, query string) ([]core.MonthTotal, error) {
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query month totals: %w", err)
	}
	defer rows.Close()

	totals := make([]core.MonthTotal, 0)
	for rows.Next() {
		var mt core.MonthTotal
		if err := rows.Scan(&mt.Month, &mt.Total); err != nil {
			return nil, fmt.Errorf("scan month total: %w", err)
		}
		totals = append(totals, mt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate month totals: %w", err)
	}
	return totals, nil
}
