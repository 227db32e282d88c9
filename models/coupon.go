package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Denominations is the fixed set of coupon tiers that can be stocked and redeemed
var Denominations = []int{500, 1000, 2000, 4000}

// IsValidDenomination reports whether d is one of the allowed tiers
func IsValidDenomination(d int) bool {
	for _, allowed := range Denominations {
		if allowed == d {
			return true
		}
	}
	return false
}

// ParseDenomination parses admin or button input into an allowed denomination
func ParseDenomination(s string) (int, error) {
	d, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("denomination must be a number: %q", s)
	}
	if !IsValidDenomination(d) {
		return 0, fmt.Errorf("denomination %d is not one of %v", d, Denominations)
	}
	return d, nil
}

// Coupon is a single-use redeemable code from the pool
type Coupon struct {
	ID           int64      `db:"id"`
	Code         string     `db:"code"`
	Denomination int        `db:"denomination"`
	Used         bool       `db:"used"`
	UsedBy       *int64     `db:"used_by"`
	UsedAt       *time.Time `db:"used_at"`
	CreatedAt    time.Time  `db:"created_at"`
}

// SplitCouponCodes splits a pasted block of codes on newlines, commas and whitespace.
// Duplicates are kept.
func SplitCouponCodes(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ',' || r == ' ' || r == '\t' || r == ';'
	})
}

// ParseCouponCodes splits a pasted block and removes duplicates
func ParseCouponCodes(text string) []string {
	return NormalizeCodes(SplitCouponCodes(text))
}

// NormalizeCodes trims codes, drops blanks and keeps the first occurrence of each duplicate
func NormalizeCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	normalized := make([]string, 0, len(codes))
	for _, c := range codes {
		code := strings.TrimSpace(c)
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		normalized = append(normalized, code)
	}
	return normalized
}

// BulkInsertResult reports the outcome of adding codes to the pool
type BulkInsertResult struct {
	Denomination int
	Submitted    int // codes in the admin's message, duplicates included
	Inserted     int
	Skipped      int // duplicates within the message or already in the pool
}

// StockLevel is the number of unused codes for one denomination
type StockLevel struct {
	Denomination int
	Unused       int64
	Cost         *int64
}
