package utils

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Пакет-уровневые паттерны: компилируются один раз при запуске,
// а не при каждом вызове в hot path разбора трафика.
var (
	// uuidPattern matches canonical RFC 4122 form, case-insensitive.
	// Например: 550e8400-e29b-41d4-a716-446655440000
	uuidPattern = regexp.MustCompile(`^(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

// idNamePatterns is the fixed vocabulary for recognizing ID-bearing
// parameter names. Matching is case-insensitive substring, so the bare "id"
// entry subsumes most of the rest; the variants are kept for clarity.
var idNamePatterns = []string{
	"id",
	"userId",
	"user_id",
	"projectId",
	"project_id",
	"accountId",
	"account_id",
	"resourceId",
	"resource_id",
}

// IsDigits reports whether s is non-empty and consists only of decimal digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsUUIDString reports whether s is a canonical 8-4-4-4-12 UUID.
func IsUUIDString(s string) bool {
	return uuidPattern.MatchString(s)
}

// MatchesIDName reports whether a parameter name matches the ID vocabulary.
func MatchesIDName(name string) bool {
	lower := strings.ToLower(name)
	for _, pattern := range idNamePatterns {
		if strings.Contains(lower, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

// IntegerValue classifies v as an integer ID. Native whole numbers and
// all-digit strings qualify; everything else does not. JSON decoding hands
// numbers over as float64, so whole floats are accepted.
func IntegerValue(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int64:
		return t, true
	case float64:
		if math.Trunc(t) == t && !math.IsInf(t, 0) {
			return int64(t), true
		}
		return 0, false
	case string:
		if !IsDigits(t) {
			return 0, false
		}
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// UUIDValue classifies v as a UUID ID.
func UUIDValue(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || !IsUUIDString(s) {
		return "", false
	}
	return s, true
}
