package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"fintrack/internal/core"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// transactionRequest is the body of create and update. Absent and null
// fields decode to nil.
type transactionRequest struct {
	Date        *string  `json:"date"`
	Category    *string  `json:"category"`
	Description *string  `json:"description"`
	Amount      *float64 `json:"amount"`
}

// requestError carries the client-facing message and the status used in
// strict mode.
type requestError struct {
	status  int
	message string
	err     error
}

func (e *requestError) Error() string {
	if e.err != nil {
		return e.message + ": " + e.err.Error()
	}
	return e.message
}

func (e *requestError) Unwrap() error { return e.err }

func badRequest(message string, err error) *requestError {
	return &requestError{status: http.StatusBadRequest, message: message, err: err}
}

// decodeTransactionRequest reads exactly one JSON object from the body.
func decodeTransactionRequest(w http.ResponseWriter, r *http.Request) (*transactionRequest, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))

	var req *transactionRequest
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &requestError{status: http.StatusRequestEntityTooLarge, message: msgBodyTooLarge, err: err}
		}
		return nil, badRequest(msgInvalidBody, err)
	}
	if req == nil {
		return nil, badRequest(msgInvalidBody, errors.New("body is null"))
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, badRequest(msgInvalidBody, errors.New("trailing data after JSON object"))
	}
	return req, nil
}

// toNewTransaction requires all four fields.
func (req transactionRequest) toNewTransaction() (core.NewTransaction, error) {
	if req.Date == nil || req.Category == nil || req.Description == nil || req.Amount == nil {
		return core.NewTransaction{}, badRequest(msgInvalidBody, errors.New("missing required field"))
	}
	date, err := core.ParseDate(*req.Date)
	if err != nil {
		return core.NewTransaction{}, badRequest(msgInvalidDate, err)
	}
	return core.NewTransaction{
		Date:        date,
		Category:    sanitizeInput(*req.Category),
		Description: sanitizeInput(*req.Description),
		Amount:      *req.Amount,
	}, nil
}

// toPatch validates every present field before anything is applied.
func (req transactionRequest) toPatch() (core.TransactionPatch, error) {
	var p core.TransactionPatch
	if req.Date != nil {
		date, err := core.ParseDate(*req.Date)
		if err != nil {
			return core.TransactionPatch{}, badRequest(msgInvalidDate, err)
		}
		p.Date = &date
	}
	if req.Category != nil {
		c := sanitizeInput(*req.Category)
		p.Category = &c
	}
	if req.Description != nil {
		d := sanitizeInput(*req.Description)
		p.Description = &d
	}
	p.Amount = req.Amount
	return p, nil
}

// parseFilter reads the listing query parameters.
func parseFilter(r *http.Request) core.Filter {
	q := r.URL.Query()
	return core.Filter{
		Category:  q.Get("category"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	}
}

// parseSummaryFilter reads the summary query parameters.
func parseSummaryFilter(r *http.Request) core.SummaryFilter {
	q := r.URL.Query()
	return core.SummaryFilter{
		Year:  q.Get("year"),
		Month: q.Get("month"),
	}
}

// sanitizeInput removes control characters other than tab, LF and CR.
// Surrounding whitespace is kept.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		if r == 0x7f {
			return -1
		}
		return r
	}, s)
}
