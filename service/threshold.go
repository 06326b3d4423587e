package service

import (
	"strconv"
	"strings"

	"github.com/clearledger/finsight/model"
)

// CheckThreshold compares a calculated value against a threshold string
// like "< 2.0" or ">= 1.5". An empty threshold means the request only
// asked for the number; the result is reported without a verdict.
//
// The two-character operators are matched before the one-character ones,
// otherwise "<=" would be read as "<" followed by junk.
func CheckThreshold(threshold string, value float64) string {
	threshold = strings.TrimSpace(threshold)
	if threshold == "" {
		return model.ComplianceCalculated
	}

	var op, rest string
	switch {
	case strings.HasPrefix(threshold, "<="):
		op, rest = "<=", threshold[2:]
	case strings.HasPrefix(threshold, ">="):
		op, rest = ">=", threshold[2:]
	case strings.HasPrefix(threshold, "<"):
		op, rest = "<", threshold[1:]
	case strings.HasPrefix(threshold, ">"):
		op, rest = ">", threshold[1:]
	default:
		return model.ComplianceFormatError
	}

	limit, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
	if err != nil {
		return model.ComplianceParseError
	}

	var ok bool
	switch op {
	case "<":
		ok = value < limit
	case "<=":
		ok = value <= limit
	case ">":
		ok = value > limit
	case ">=":
		ok = value >= limit
	}
	if ok {
		return model.ComplianceCompliant
	}
	return model.ComplianceNonCompliant
}
