package services

import (
	"context"
	"fmt"
	"io"

	"saldo/internal/amqp"
	"saldo/internal/core"
	"saldo/internal/log"
)

// Store is the persistence the service orchestrates. storage.Repository
// implements it.
type Store interface {
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	CreateExpense(ctx context.Context, in core.ExpenseInput) (int64, error)
	UpdateExpense(ctx context.Context, id int64, in core.ExpenseInput) error
	DeleteExpense(ctx context.Context, id int64) error

	SetSalary(ctx context.Context, amount float64) error
	SalaryOverview(ctx context.Context) (core.SalaryOverview, error)

	CategorySummary(ctx context.Context) ([]core.CategoryTotal, error)
	TopCategories(ctx context.Context, limit int) ([]core.CategoryTotal, error)
	MonthlySummary(ctx context.Context) ([]core.MonthTotal, error)

	ExportCSV(ctx context.Context, w io.Writer) (int, error)
	Ping(ctx context.Context) error
}

// Publisher announces committed writes. amqp.Client implements it.
type Publisher interface {
	Publish(ctx context.Context, event amqp.ExpenseEvent) error
}

// ExpenseService fronts the store and publishes an event after every
// successful write. Reads pass straight through.
type ExpenseService struct {
	store     Store
	publisher Publisher
}

// NewExpenseService wires the service. publisher may be nil, in which case
// no events are sent.
func NewExpenseService(store Store, publisher Publisher) *ExpenseService {
	return &ExpenseService{
		store:     store,
		publisher: publisher,
	}
}

// CreateExpense saves an expense and publishes expense.created.
func (s *ExpenseService) CreateExpense(ctx context.Context, in core.ExpenseInput) (int64, error) {
	id, err := s.store.CreateExpense(ctx, in)
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}
	s.publish(ctx, amqp.NewExpenseEvent(amqp.ExpenseCreated, id, core.MonthOf(*in.Date), *in.Amount))
	return id, nil
}

// UpdateExpense overwrites an expense and publishes expense.updated.
func (s *ExpenseService) UpdateExpense(ctx context.Context, id int64, in core.ExpenseInput) error {
	if err := s.store.UpdateExpense(ctx, id, in); err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	s.publish(ctx, amqp.NewExpenseEvent(amqp.ExpenseUpdated, id, core.MonthOf(*in.Date), *in.Amount))
	return nil
}

// DeleteExpense removes an expense and publishes expense.deleted.
func (s *ExpenseService) DeleteExpense(ctx context.Context, id int64) error {
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.publish(ctx, amqp.NewExpenseEvent(amqp.ExpenseDeleted, id, "", 0))
	return nil
}

// SetSalary stores the monthly salary and publishes salary.updated.
func (s *ExpenseService) SetSalary(ctx context.Context, amount float64) error {
	if err := s.store.SetSalary(ctx, amount); err != nil {
		return fmt.Errorf("set salary: %w", err)
	}
	s.publish(ctx, amqp.NewExpenseEvent(amqp.SalaryUpdated, 0, "", amount))
	return nil
}

// publish is best-effort: the write is already committed, so a publisher
// failure is logged and swallowed. amqp.Client only enqueues, so this never
// waits on the broker.
func (s *ExpenseService) publish(ctx context.Context, event amqp.ExpenseEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		fields := log.NewFields().WithOperation(log.OpPublish).WithError(err).ToSlice()
		fields = append(fields, log.FieldEventType, event.Type, log.FieldExpenseID, event.ID)
		log.FromContext(ctx).WithComponent(log.ComponentExpense).
			ErrorContext(ctx, "Failed to queue expense event", fields...)
	}
}

func (s *ExpenseService) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	return s.store.ListExpenses(ctx)
}

func (s *ExpenseService) SalaryOverview(ctx context.Context) (core.SalaryOverview, error) {
	return s.store.SalaryOverview(ctx)
}

func (s *ExpenseService) CategorySummary(ctx context.Context) ([]core.CategoryTotal, error) {
	return s.store.CategorySummary(ctx)
}

func (s *ExpenseService) TopCategories(ctx context.Context, limit int) ([]core.CategoryTotal, error) {
	return s.store.TopCategories(ctx, limit)
}

func (s *ExpenseService) MonthlySummary(ctx context.Context) ([]core.MonthTotal, error) {
	return s.store.MonthlySummary(ctx)
}

func (s *ExpenseService) ExportCSV(ctx context.Context, w io.Writer) (int, error) {
	return s.store.ExportCSV(ctx, w)
}

func (s *ExpenseService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
