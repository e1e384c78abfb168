package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"saldo/internal/core"
	"saldo/internal/log"

	_ "modernc.org/sqlite"
)

// settingsID is the fixed key of the single settings row.
const settingsID = 1

// Repository persists expenses and the salary setting in one SQLite file.
//
// The pool is limited to a single open connection, so storage work is
// serialized even though HTTP requests are served concurrently.
type Repository struct {
	db      *sql.DB
	path    string
	version uint
}

// Open opens (creating if needed) the database at dbPath and initializes the
// schema.
func Open(ctx context.Context, dbPath string) (*Repository, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo := &Repository{db: db, path: dbPath}
	if err := repo.InitSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Path returns the database file location.
func (r *Repository) Path() string {
	return r.path
}

// SchemaVersion returns the migration version applied by the last
// InitSchema.
func (r *Repository) SchemaVersion() uint {
	return r.version
}

// InitSchema ensures both tables exist and that the settings row is present.
// It is safe to call on every startup.
func (r *Repository) InitSchema(ctx context.Context) error {
	version, err := RunMigrations(r.path)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	r.version = version
	return r.withConn(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx,
			`INSERT OR IGNORE INTO settings (id, monthly_salary) VALUES (?, 0)`, settingsID)
		if err != nil {
			return fmt.Errorf("ensure settings row: %w", err)
		}
		return nil
	})
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.withConn(ctx, func(conn *sql.Conn) error {
		return conn.PingContext(ctx)
	})
}

// logger returns the context logger tagged as storage, so request ids carry
// through from the HTTP layer.
func logger(ctx context.Context) *log.Logger {
	return log.FromContext(ctx).WithComponent(log.ComponentStorage)
}

// withConn runs fn on a connection taken from the pool and returns it to the
// pool on every exit path.
func (r *Repository) withConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()
	return fn(conn)
}

// ListExpenses returns every expense, newest date first. Dates are compared
// as strings.
func (r *Repository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	var expenses []core.Expense
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		var err error
		expenses, err = listExpenses(ctx, conn)
		return err
	})
	if err != nil {
		return nil, err
	}
	return expenses, nil
}

func listExpenses(ctx context.Context, conn *sql.Conn) ([]core.Expense, error) {
	rows, err := conn.QueryContext(ctx,
		`SELECT id, date, category, description, amount
		   FROM expenses
		  ORDER BY date DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]core.Expense, 0)
	for rows.Next() {
		var (
			e    core.Expense
			desc sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Date, &e.Category, &desc, &e.Amount); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Description = desc.String
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}

// CreateExpense inserts an expense and returns its new id.
func (r *Repository) CreateExpense(ctx context.Context, in core.ExpenseInput) (int64, error) {
	if err := in.Validate(); err != nil {
		return 0, err
	}

	var id int64
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx,
			`INSERT INTO expenses (date, category, description, amount) VALUES (?, ?, ?, ?)`,
			*in.Date, *in.Category, in.DescriptionOrEmpty(), *in.Amount)
		if err != nil {
			return fmt.Errorf("insert expense: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("read expense id: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger(ctx).InfoContext(ctx, "Expense saved",
		log.FieldExpenseID, id,
		"date", *in.Date,
		log.FieldCategory, *in.Category,
		log.FieldAmount, *in.Amount)
	return id, nil
}

// UpdateExpense overwrites every field of expense id. Updating an id that
// does not exist succeeds without changing anything.
func (r *Repository) UpdateExpense(ctx context.Context, id int64, in core.ExpenseInput) error {
	if err := in.Validate(); err != nil {
		return err
	}

	return r.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx,
			`UPDATE expenses SET date = ?, category = ?, description = ?, amount = ? WHERE id = ?`,
			*in.Date, *in.Category, in.DescriptionOrEmpty(), *in.Amount, id)
		if err != nil {
			return fmt.Errorf("update expense %d: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			logger(ctx).DebugContext(ctx, "Update matched no expense", log.FieldExpenseID, id)
		}
		return nil
	})
}

// DeleteExpense removes expense id. Deleting an id that does not exist
// succeeds.
func (r *Repository) DeleteExpense(ctx context.Context, id int64) error {
	return r.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete expense %d: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			logger(ctx).DebugContext(ctx, "Delete matched no expense", log.FieldExpenseID, id)
		}
		return nil
	})
}

// GetSalary returns the monthly salary, 0 when it was never set.
func (r *Repository) GetSalary(ctx context.Context) (float64, error) {
	var salary float64
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		var err error
		salary, err = getSalary(ctx, conn)
		return err
	})
	return salary, err
}

func getSalary(ctx context.Context, conn *sql.Conn) (float64, error) {
	var salary float64
	err := conn.QueryRowContext(ctx,
		`SELECT monthly_salary FROM settings WHERE id = ?`, settingsID).Scan(&salary)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query salary: %w", err)
	}
	return salary, nil
}

// SetSalary stores the monthly salary in the settings row.
func (r *Repository) SetSalary(ctx context.Context, amount float64) error {
	return r.withConn(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx,
			`INSERT INTO settings (id, monthly_salary) VALUES (?, ?)
			 ON CONFLICT(id) DO UPDATE SET monthly_salary = excluded.monthly_salary`,
			settingsID, amount)
		if err != nil {
			return fmt.Errorf("update salary: %w", err)
		}
		logger(ctx).InfoContext(ctx, "Salary updated", log.FieldSalary, amount)
		return nil
	})
}

// TotalExpenses returns the sum of all amounts, 0 when there are none.
func (r *Repository) TotalExpenses(ctx context.Context) (float64, error) {
	var total float64
	err := r.withConn(ctx, func(conn *sql.Conn) error {
		var err error
		total, err = totalExpenses(ctx, conn)
		return err
	})
	return total, err
}

func totalExpenses(ctx context.Context, conn *sql.Conn) (float64, error) {
	var total float64
	if err := conn.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0.0) FROM expenses`).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum expenses: %w", err)
	}
	return total, nil
}
