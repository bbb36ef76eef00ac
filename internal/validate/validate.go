// Package validate holds the field checks shared by every workflow.
package validate

import (
	"fmt"
	"math"
	"strings"

	"github.com/mmynk/youowe/internal/apperr"
)

// MinGroupPasswordLength is the only strength rule enforced on group passwords.
const MinGroupPasswordLength = 6

var (
	ErrPasswordInvalidType = apperr.Validation("Group password must be text.")
	ErrPasswordTooShort    = apperr.Validation(
		fmt.Sprintf("Group password must be at least %d characters.", MinGroupPasswordLength),
	)
)

// IsNonEmptyString reports whether v is a string (or a non-nil *string) that is
// not empty after trimming whitespace.
func IsNonEmptyString(v any) bool {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s) != ""
	case *string:
		return s != nil && strings.TrimSpace(*s) != ""
	default:
		return false
	}
}

// GroupPassword checks a candidate group password.
func GroupPassword(v any) error {
	var s string
	switch p := v.(type) {
	case string:
		s = p
	case *string:
		if p == nil {
			return ErrPasswordInvalidType
		}
		s = *p
	default:
		return ErrPasswordInvalidType
	}

	if len([]rune(strings.TrimSpace(s))) < MinGroupPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// Price bounds. Prices are split in whole cents, and cent values past 2^53
// no longer convert exactly between float64 and int64.
const (
	MinPrice = 0.01
	MaxPrice = float64(1<<53) / 100
)

// Price checks that an order price is a finite number between MinPrice and MaxPrice.
func Price(p float64) error {
	if math.IsNaN(p) || math.IsInf(p, 0) || p < MinPrice || p > MaxPrice {
		return apperr.InvalidField("price")
	}
	return nil
}

// Trim returns the trimmed value of s, or nil when s is nil.
func Trim(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
