package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"ledger/internal/core"
)

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type ExpenseResponse struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Amount string `json:"amount"`
	Date   string `json:"date"`
	Seq    int64  `json:"seq"`
}

type ExpenseListResponse struct {
	Order    core.Order        `json:"order"`
	Expenses []ExpenseResponse `json:"expenses"`
}

type DailyTotalResponse struct {
	Day   string `json:"day"`
	Total string `json:"total"`
}

type DailyTotalsResponse struct {
	Days   int                  `json:"days"`
	Today  string               `json:"today"`
	Totals []DailyTotalResponse `json:"totals"`
}

func newExpenseResponse(e core.Expense, loc *time.Location) ExpenseResponse {
	return ExpenseResponse{
		ID:     e.ID,
		Title:  e.Title,
		Amount: e.Amount.String(),
		Date:   e.Date.In(loc).Format(time.RFC3339Nano),
		Seq:    e.Seq,
	}
}

func newDailyTotalsResponse(totals []core.DailyTotal) DailyTotalsResponse {
	resp := DailyTotalsResponse{
		Days:   len(totals),
		Totals: make([]DailyTotalResponse, len(totals)),
	}
	for i, t := range totals {
		resp.Totals[i] = DailyTotalResponse{
			Day:   t.Day.Format(time.DateOnly),
			Total: t.Total.String(),
		}
	}
	if len(totals) > 0 {
		resp.Today = resp.Totals[len(totals)-1].Day
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, ErrorResponse{Error: code, ErrorDescription: description})
}

// writeDomainError maps ledger errors to status codes. Persistence details
// stay in the logs.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errInvalidBody):
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, core.ErrValidation):
		writeJSONError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
	case errors.Is(err, core.ErrInvalidArgument):
		writeJSONError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
	case errors.Is(err, core.ErrPersistence):
		writeJSONError(w, http.StatusInternalServerError, "storage_error", "The ledger could not be read or written")
	default:
		writeJSONError(w, http.StatusInternalServerError, "server_error", "Internal server error")
	}
}
