// Package ident canonicalizes identifiers that arrive as decimal-rendered
// numbers ("2774458.0") so every table joins on the same text.
package ident

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var numericPattern = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)$`)

// Canonical returns the canonical form of v and false when v is empty.
// Purely numeric values are rounded to an integer and rendered without
// leading zeros; anything else is returned unchanged.
func Canonical(v string) (string, bool) {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return "", false
	}
	if !numericPattern.MatchString(trimmed) {
		return v, true
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return v, true
	}
	return d.Round(0).String(), true
}

// CanonicalPtr is Canonical over a nullable value.
func CanonicalPtr(v *string) *string {
	if v == nil {
		return nil
	}
	c, ok := Canonical(*v)
	if !ok {
		return nil
	}
	return &c
}
