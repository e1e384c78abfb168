package http

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"saldo/internal/core"
	"saldo/internal/log"
)

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Not found")
}

// badRequest logs err on the request logger and answers 400.
func badRequest(w http.ResponseWriter, r *http.Request, op string, err error) {
	log.FromContext(r.Context()).Warn("Request failed",
		log.NewFields().WithOperation(op).WithError(err).ToSlice()...)
	writeError(w, http.StatusBadRequest, err.Error())
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := os.ReadFile(s.indexPath)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, "ERROR: %s not found!", filepath.Base(s.indexPath))
		return
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(page)))
	_, _ = w.Write(page)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.Ping(r.Context()); err != nil {
		log.FromContext(r.Context()).Error("Store not ready",
			log.NewFields().WithError(err).ToSlice()...)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.backend.ListExpenses(r.Context())
	if err != nil {
		badRequest(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var in core.ExpenseInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, r, log.OpCreate, err)
		return
	}
	id, err := s.backend.CreateExpense(r.Context(), in)
	if err != nil {
		badRequest(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id, Message: "Expense added"})
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := expenseID(r)
	if err != nil {
		badRequest(w, r, log.OpUpdate, err)
		return
	}
	var in core.ExpenseInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, r, log.OpUpdate, err)
		return
	}
	if err := s.backend.UpdateExpense(r.Context(), id, in); err != nil {
		badRequest(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Expense updated"})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := expenseID(r)
	if err != nil {
		badRequest(w, r, log.OpDelete, err)
		return
	}
	if err := s.backend.DeleteExpense(r.Context(), id); err != nil {
		badRequest(w, r, log.OpDelete, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Expense deleted"})
}

func (s *Server) handleGetSalary(w http.ResponseWriter, r *http.Request) {
	overview, err := s.backend.SalaryOverview(r.Context())
	if err != nil {
		badRequest(w, r, log.OpSalary, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handleSetSalary(w http.ResponseWriter, r *http.Request) {
	var in core.SalaryInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, r, log.OpSalary, err)
		return
	}
	if err := in.Validate(); err != nil {
		badRequest(w, r, log.OpSalary, err)
		return
	}
	if err := s.backend.SetSalary(r.Context(), *in.Salary); err != nil {
		badRequest(w, r, log.OpSalary, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Salary updated"})
}

func (s *Server) handleCategorySummary(w http.ResponseWriter, r *http.Request) {
	totals, err := s.backend.CategorySummary(r.Context())
	if err != nil {
		badRequest(w, r, log.OpSummary, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleTopCategories(w http.ResponseWriter, r *http.Request) {
	totals, err := s.backend.TopCategories(r.Context(), topCategoriesLimit)
	if err != nil {
		badRequest(w, r, log.OpSummary, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	totals, err := s.backend.MonthlySummary(r.Context())
	if err != nil {
		badRequest(w, r, log.OpSummary, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// handleExportCSV buffers the whole export so a store failure can still be
// reported as JSON.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	n, err := s.backend.ExportCSV(r.Context(), &buf)
	if err != nil {
		badRequest(w, r, log.OpExport, err)
		return
	}
	log.FromContext(r.Context()).Debug("Exported expenses", "rows", n)

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=expenses_export.csv")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}
