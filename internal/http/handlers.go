package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
)

// TransactionAPI is the application surface the handlers drive.
// *services.TransactionService implements it.
type TransactionAPI interface {
	Create(ctx context.Context, n core.NewTransaction) (core.Transaction, error)
	List(ctx context.Context, f core.Filter) []core.Transaction
	Get(ctx context.Context, id uuid.UUID) (core.Transaction, error)
	Update(ctx context.Context, id uuid.UUID, p core.TransactionPatch) (core.Transaction, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Summarize(ctx context.Context, f core.SummaryFilter) core.Summary
	Stats() ledger.Stats
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs := s.api.List(r.Context(), parseFilter(r))
	s.write(w, r, NewJSONResponse().Payload(txs))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	req, err := decodeTransactionRequest(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := req.toNewTransaction()
	if err != nil {
		s.fail(w, r, err)
		return
	}

	t, err := s.api.Create(r.Context(), n)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Transaction created",
		applog.NewFields().WithTransaction(t.ID.String(), t.Date.String(), t.Category, t.Amount).ToSlice()...)
	s.write(w, r, SuccessResponse(t))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	req, err := decodeTransactionRequest(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	// An unknown identifier is reported before any field errors.
	if _, err := s.api.Get(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		s.fail(w, r, err)
		return
	}

	t, err := s.api.Update(r.Context(), id, patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Transaction updated",
		applog.FieldTransactionID, t.ID.String())
	s.write(w, r, SuccessResponse(t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.api.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Transaction deleted",
		applog.FieldTransactionID, id.String())
	s.write(w, r, SuccessResponse(nil))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum := s.api.Summarize(r.Context(), parseSummaryFilter(r))
	s.write(w, r, NewJSONResponse().Payload(sum))
}

type metricsBody struct {
	Requests  requestMetrics   `json:"requests"`
	RateLimit rateLimitMetrics `json:"rate_limit"`
	Ledger    ledger.Stats     `json:"ledger"`
}

type requestMetrics struct {
	Total          int64 `json:"total"`
	ServerErrors   int64 `json:"server_errors"`
	LastDurationUs int64 `json:"last_duration_us"`
}

type rateLimitMetrics struct {
	Rejected int64 `json:"rejected"`
	Clients  int64 `json:"clients"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	req, rl := s.Metrics()
	s.write(w, r, NewJSONResponse().Payload(metricsBody{
		Requests: requestMetrics{
			Total:          req.TotalRequests,
			ServerErrors:   req.ServerErrors,
			LastDurationUs: req.LastResponseTime,
		},
		RateLimit: rateLimitMetrics{Rejected: rl.Rejected, Clients: rl.ClientCount},
		Ledger:    s.api.Stats(),
	}))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ready"))
}

// fail maps err to an {"error": ...} response. In compatibility mode the
// status is always 200.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, message := classify(err)
	logger := applog.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.LogError(r.Context(), "Request failed", err, r.Method, nil)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", applog.FieldError, err.Error())
	}

	if !s.strictStatus {
		status = http.StatusOK
	}
	s.write(w, r, ErrorResponse(status, message))
}

func classify(err error) (int, string) {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return reqErr.status, reqErr.message
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, msgNotFound
	case errors.Is(err, core.ErrInvalidID):
		return http.StatusBadRequest, msgInvalidID
	case errors.Is(err, core.ErrInvalidDate):
		return http.StatusBadRequest, msgInvalidDate
	case errors.Is(err, core.ErrInvalidAmount):
		return http.StatusBadRequest, msgInvalidBody
	default:
		return http.StatusInternalServerError, "Internal server error."
	}
}

func (s *Server) write(w http.ResponseWriter, r *http.Request, b *JSONResponseBuilder) {
	if err := b.Write(w); err != nil {
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Failed to write response", applog.FieldError, err.Error())
	}
}
