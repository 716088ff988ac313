// Package domain defines the core entities of the finance core.
// These models are independent of transport and storage and represent the
// canonical data structures used by services, clients and the local store.
package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ============================================================
// Transactions
// ============================================================

// TransactionType is the closed income/expense enumeration.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// Valid reports whether t is one of the two known types.
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Transaction is a single income or expense record.
type Transaction struct {
	ID          string          `json:"id"`
	Amount      float64         `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Type        TransactionType `json:"type"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// UnmarshalJSON accepts RFC 3339 timestamps and bare YYYY-MM-DD dates for the
// date fields. Records written by older clients carry the latter.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	type alias Transaction
	aux := struct {
		*alias
		Date      flexTime `json:"date"`
		CreatedAt flexTime `json:"createdAt"`
		UpdatedAt flexTime `json:"updatedAt"`
	}{alias: (*alias)(t)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t.Date = aux.Date.Time
	t.CreatedAt = aux.CreatedAt.Time
	t.UpdatedAt = aux.UpdatedAt.Time
	return nil
}

// TransactionDraft is a candidate transaction before id and timestamps exist.
type TransactionDraft struct {
	Amount      float64         `json:"amount" validate:"gt=0"`
	Category    string          `json:"category" validate:"nonblank"`
	Description string          `json:"description" validate:"nonblank"`
	Type        TransactionType `json:"type" validate:"oneof=income expense"`
	Date        time.Time       `json:"date" validate:"required"`
}

// UnmarshalJSON mirrors Transaction's lenient date decoding.
func (d *TransactionDraft) UnmarshalJSON(data []byte) error {
	type alias TransactionDraft
	aux := struct {
		*alias
		Date flexTime `json:"date"`
	}{alias: (*alias)(d)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	d.Date = aux.Date.Time
	return nil
}

// TransactionPatch carries a partial replacement. Nil fields are left untouched.
type TransactionPatch struct {
	Amount      *float64         `json:"amount,omitempty" validate:"omitnil,gt=0"`
	Category    *string          `json:"category,omitempty" validate:"omitnil,nonblank"`
	Description *string          `json:"description,omitempty" validate:"omitnil,nonblank"`
	Type        *TransactionType `json:"type,omitempty" validate:"omitnil,oneof=income expense"`
	Date        *time.Time       `json:"date,omitempty" validate:"omitnil,required"`
}

// UnmarshalJSON accepts the same date layouts as Transaction.
func (p *TransactionPatch) UnmarshalJSON(data []byte) error {
	type alias TransactionPatch
	aux := struct {
		*alias
		Date *flexTime `json:"date"`
	}{alias: (*alias)(p)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Date != nil {
		p.Date = &aux.Date.Time
	}
	return nil
}

// Apply merges the patch over tx and returns the result. tx is not modified.
func (p TransactionPatch) Apply(tx Transaction) Transaction {
	if p.Amount != nil {
		tx.Amount = *p.Amount
	}
	if p.Category != nil {
		tx.Category = *p.Category
	}
	if p.Description != nil {
		tx.Description = *p.Description
	}
	if p.Type != nil {
		tx.Type = *p.Type
	}
	if p.Date != nil {
		tx.Date = *p.Date
	}
	return tx
}

// ============================================================
// Reconciliation results
// ============================================================

// Source tells which leg of a reconciled operation produced the result.
type Source string

const (
	SourceRemote        Source = "remote"
	SourceLocalFallback Source = "local-fallback"
)

// Result is the uniform outcome of a reconciled operation.
// A non-nil error from the service means both legs failed; a Result with
// Source == SourceLocalFallback is a degraded success.
type Result[T any] struct {
	Data    T      `json:"data"`
	Source  Source `json:"source"`
	Message string `json:"message,omitempty"`
}

// Degraded reports whether only the local leg succeeded.
func (r Result[T]) Degraded() bool {
	return r.Source == SourceLocalFallback
}

// ListParams selects a page of the remote collection.
type ListParams struct {
	Page  int
	Limit int
}

// ============================================================
// Dates
// ============================================================

type flexTime struct {
	time.Time
}

var flexLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// ParseDate accepts RFC 3339 timestamps, zone-less timestamps and bare
// YYYY-MM-DD dates. The empty string yields the zero time.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range flexLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func (f *flexTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		s = ""
	}
	t, err := ParseDate(s)
	if err != nil {
		return err
	}
	f.Time = t
	return nil
}
