// Package validation checks candidate transactions against the domain rules.
// Violations are returned as data, one human-readable message per rule.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/boddenberg/finance-core/internal/domain"

	"github.com/go-playground/validator/v10"
)

// Messages, in rule order.
const (
	MsgAmount      = "Amount must be greater than 0"
	MsgCategory    = "Category is required"
	MsgDescription = "Description is required"
	MsgType        = "Type must be either income or expense"
	MsgDate        = "Date is required"
)

var fieldMessages = map[string]string{
	"Amount":      MsgAmount,
	"Category":    MsgCategory,
	"Description": MsgDescription,
	"Type":        MsgType,
	"Date":        MsgDate,
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// nonblank rejects strings that are empty after trimming whitespace.
	_ = v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		if f.Kind() != reflect.String {
			return false
		}
		return strings.TrimSpace(f.String()) != ""
	})
	return v
}

// ValidateTransaction returns every rule the draft violates. An empty slice
// means the draft is valid. Rules are all evaluated; order is amount,
// category, description, type, date.
func ValidateTransaction(d domain.TransactionDraft) []string {
	return messages(validate.Struct(d))
}

// ValidatePatch applies the same rules to the fields present in p.
func ValidatePatch(p domain.TransactionPatch) []string {
	return messages(validate.Struct(p))
}

// Check wraps ValidateTransaction into an error for service callers.
func Check(d domain.TransactionDraft) error {
	if msgs := ValidateTransaction(d); len(msgs) > 0 {
		return &domain.ErrValidation{Messages: msgs}
	}
	return nil
}

// CheckPatch wraps ValidatePatch into an error for service callers.
func CheckPatch(p domain.TransactionPatch) error {
	if msgs := ValidatePatch(p); len(msgs) > 0 {
		return &domain.ErrValidation{Messages: msgs}
	}
	return nil
}

func messages(err error) []string {
	out := []string{}
	if err == nil {
		return out
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return append(out, err.Error())
	}

	seen := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		msg, ok := fieldMessages[fe.StructField()]
		if !ok || seen[msg] {
			continue
		}
		seen[msg] = true
		out = append(out, msg)
	}
	return out
}
