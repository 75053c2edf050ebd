package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the only accepted wire format for transaction dates.
const DateLayout = "2006-01-02"

type (
	// Date is a calendar day without time of day or zone. The zero value
	// is unset; 0001-01-01 parsed from input is a valid date.
	Date struct {
		time.Time
		set bool
	}

	// Transaction is a single signed monetary event.
	// Positive amounts are income, negative amounts are expenses.
	Transaction struct {
		ID          uuid.UUID `json:"id"`
		Date        Date      `json:"date"`
		Category    string    `json:"category"`
		Description string    `json:"description"`
		Amount      float64   `json:"amount"`
	}

	// NewTransaction carries the fields of a transaction that does not have an ID yet.
	NewTransaction struct {
		Date        Date
		Category    string
		Description string
		Amount      float64
	}

	// TransactionPatch holds the fields to replace on an existing transaction.
	// Nil fields are left untouched.
	TransactionPatch struct {
		Date        *Date
		Category    *string
		Description *string
		Amount      *float64
	}
)

var (
	ErrNotFound      = errors.New("transaction not found")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidID     = errors.New("invalid identifier")
)

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t, set: true}, nil
}

// MustDate is ParseDate for literals known to be valid. It panics otherwise.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), set: true}
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// Validate rejects a Date that was never parsed or constructed.
func (d Date) Validate() error {
	if !d.set {
		return fmt.Errorf("%w: date is not set", ErrInvalidDate)
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ValidateAmount rejects NaN and infinities.
func ValidateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return ErrInvalidAmount
	}
	return nil
}

// ParseID parses a transaction identifier.
func ParseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return id, nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	return ValidateAmount(t.Amount)
}

func (n NewTransaction) Validate() error {
	if err := n.Date.Validate(); err != nil {
		return err
	}
	return ValidateAmount(n.Amount)
}

// Validate checks every present field without applying anything.
func (p TransactionPatch) Validate() error {
	if p.Date != nil {
		if err := p.Date.Validate(); err != nil {
			return err
		}
	}
	if p.Amount != nil {
		if err := ValidateAmount(*p.Amount); err != nil {
			return err
		}
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p TransactionPatch) IsEmpty() bool {
	return p.Date == nil && p.Category == nil && p.Description == nil && p.Amount == nil
}

// Apply returns a copy of t with the patch fields replaced.
// Callers must Validate the patch first.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	return t
}
