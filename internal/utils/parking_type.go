package utils

import (
	"strings"
	"unicode"

	"parkops/internal/db"
)

// ParseParkingType maps crew input onto a parking type. An empty value
// means a regular stay.
func ParseParkingType(raw string) (db.ParkingType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "normal", "regular":
		return db.ParkingNormal, true
	case "valet":
		return db.ParkingValet, true
	case "monthly", "subscription":
		return db.ParkingMonthly, true
	}
	return "", false
}

// NormalizePlate upper-cases a plate and drops whitespace and dashes so the
// same vehicle typed differently on two devices compares equal.
func NormalizePlate(plate string) string {
	var b strings.Builder
	b.Grow(len(plate))
	for _, r := range plate {
		if unicode.IsSpace(r) || r == '-' {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
