package http

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"saldo/internal/core"
	"saldo/internal/log"
)

// topCategoriesLimit is the number of rows of the animated category chart.
const topCategoriesLimit = 5

// Backend is everything the handlers need. services.ExpenseService
// implements it.
type Backend interface {
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

type Server struct {
	http.Server
	backend   Backend
	indexPath string
	logger    *log.Logger
}

// NewServer builds the route table and returns a ready-to-run http.Server.
// indexPath is the landing page served at "/", read on every request.
func NewServer(addr string, backend Backend, indexPath string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		backend:   backend,
		indexPath: indexPath,
		logger:    logger,
	}
	s.Server = http.Server{
		Addr:    addr,
		Handler: s.routes(),
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(log.Middleware(s.logger))
	r.Use(withCORS)
	r.Use(recoverAsBadRequest)

	r.NotFound(handleNotFound)
	r.MethodNotAllowed(handleNotFound)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(api chi.Router) {
		api.Get("/expenses", s.handleListExpenses)
		api.Post("/expenses", s.handleCreateExpense)
		api.Put("/expenses/{id}", s.handleUpdateExpense)
		api.Delete("/expenses/{id}", s.handleDeleteExpense)

		api.Get("/salary", s.handleGetSalary)
		api.Post("/salary", s.handleSetSalary)

		api.Get("/summary/category", s.handleCategorySummary)
		api.Get("/summary/category/animated", s.handleTopCategories)
		api.Get("/summary/monthly", s.handleMonthlySummary)
		api.Get("/summary/monthly/animated", s.handleMonthlySummary)

		api.Get("/export/csv", s.handleExportCSV)
	})

	return r
}
