package calculator

import (
	"fmt"
	"math"
)

// maxCents is the largest cent value float64 represents exactly.
const maxCents = 1 << 53

// SplitEvenly divides amount equally among participants, rounded to cents.
// Leftover cents from rounding go one each to the first participants in order,
// so the shares add up to amount rounded to the cent. Amounts under one cent
// or above maxCents cents are rejected.
// Duplicate participant ids are counted once.
func SplitEvenly(amount float64, participants []string) (map[string]float64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return nil, fmt.Errorf("amount must be a positive number")
	}

	unique := dedupe(participants)
	if len(unique) == 0 {
		return nil, fmt.Errorf("must have at least one participant")
	}

	cents := math.Round(amount * 100)
	if cents < 1 || cents > maxCents {
		return nil, fmt.Errorf("amount %v is out of range", amount)
	}
	totalCents := int64(cents)
	n := int64(len(unique))
	base := totalCents / n
	remainder := totalCents % n

	shares := make(map[string]float64, len(unique))
	for i, p := range unique {
		cents := base
		if int64(i) < remainder {
			cents++
		}
		shares[p] = float64(cents) / 100
	}

	return shares, nil
}

// dedupe returns ids with empty strings and repeats removed, preserving order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
