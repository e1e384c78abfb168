package storage

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"saldo/internal/core"
)

// CSVHeader is the first row of every expense export.
var CSVHeader = []string{"ID", "Date", "Category", "Description", "Amount"}

// ExportCSV writes every expense to w as CSV, in ListExpenses order, and
// returns the number of data rows written.
func (r *Repository) ExportCSV(ctx context.Context, w io.Writer) (int, error) {
	var expenses []core.Expense
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		var err error
		expenses, err = listExpenses(ctx, conn)
		return err
	})
	if err != nil {
		return 0, err
	}
	if err := WriteCSV(w, expenses); err != nil {
		return 0, err
	}
	return len(expenses), nil
}

// WriteCSV writes the header row followed by one row per expense.
func WriteCSV(w io.Writer, expenses []core.Expense) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, e := range expenses {
		record := []string{
			strconv.FormatInt(e.ID, 10),
			e.Date,
			e.Category,
			e.Description,
			core.FormatAmount(e.Amount),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
