package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"ledger/internal/core"
	"ledger/internal/log"
)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentLedger)
	sl := log.NewStructuredLogger(logger)

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		logger.WarnContext(ctx, "Failed to parse request body", log.FieldError, err, log.FieldOperation, log.OpParse)
		writeDomainError(w, err)
		return
	}

	date, err := core.ParseDate(parser.Get("date"), s.loc)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	ne, err := core.ParseNewExpense(parser.Get("title"), parser.Get("amount"), date)
	if err != nil {
		logger.InfoContext(ctx, "Rejected expense", log.FieldError, err, log.FieldOperation, log.OpValidate)
		writeDomainError(w, err)
		return
	}

	saved, err := s.ledger.Create(ctx, ne)
	if err != nil {
		sl.LogError(ctx, "Failed to create expense", err, log.OpCreate, log.NewFields().WithExpense("", ne.Title, ne.Amount.String()))
		writeDomainError(w, err)
		return
	}

	sl.LogExpenseCreated(ctx, saved.ID, saved.Title, saved.Amount.String())
	w.Header().Set("Location", "/api/expenses/"+saved.ID)
	writeJSON(w, http.StatusCreated, newExpenseResponse(saved, s.loc))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	order, err := core.ParseOrder(r.URL.Query().Get("order"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items, err := s.ledger.ListAll(ctx, order)
	if err != nil {
		log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Failed to list expenses", err, log.OpList, nil)
		writeDomainError(w, err)
		return
	}

	resp := ExpenseListResponse{
		Order:    order,
		Expenses: make([]ExpenseResponse, len(items)),
	}
	for i, e := range items {
		resp.Expenses[i] = newExpenseResponse(e, s.loc)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDailyTotals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	days, err := parseDays(r.URL.Query(), s.windowDays)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	totals, err := s.dailyTotals(r, days)
	if err != nil {
		log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Failed to compute daily totals", err, log.OpChart,
			log.LogFields{log.FieldWindowDays: days})
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDailyTotalsResponse(totals))
}

// dailyTotals serves the window from cache, coalescing concurrent misses
// for the same (today, days) key and cache generation into one ledger read.
func (s *Server) dailyTotals(r *http.Request, days int) ([]core.DailyTotal, error) {
	now := s.ledger.Now().In(s.loc)
	key := now.Format(time.DateOnly) + "|" + strconv.Itoa(days)

	s.cacheMu.Lock()
	gen := s.generation
	totals, ok := s.dailyCache.Get(key)
	s.cacheMu.Unlock()
	if ok {
		return totals, nil
	}

	// a request that arrives after an insert must not join a flight started before it
	flight := key + "|" + strconv.FormatUint(gen, 10)
	v, err, _ := s.dailyGroup.Do(flight, func() (any, error) {
		totals, err := s.ledger.DailyTotals(context.WithoutCancel(r.Context()), now, days)
		if err != nil {
			return nil, err
		}
		s.cacheMu.Lock()
		if s.generation == gen {
			s.dailyCache.Set(key, totals)
		}
		s.cacheMu.Unlock()
		return totals, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]core.DailyTotal), nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports ready only when the store answers a count.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	empty, err := s.ledger.IsEmpty(ctx)
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		writeJSONError(w, http.StatusServiceUnavailable, "not_ready", "Store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "empty": empty})
}
