// Package validation provides input validation utilities
package validation

import (
	"strings"
	"unicode/utf8"

	"agora/internal/models"
)

// ReportReason trims raw and checks it is non-empty and within the stored length.
func ReportReason(raw string) (string, error) {
	reason := strings.TrimSpace(raw)
	if reason == "" {
		return "", models.NewValidationError("report reason must not be empty")
	}
	if utf8.RuneCountInString(reason) > models.MaxReportReasonLength {
		return "", models.NewValidationError("report reason must not exceed 500 characters")
	}
	return reason, nil
}

// VoteValue accepts exactly +1 or -1. No vote is never a stored value.
func VoteValue(v int) (int8, error) {
	switch v {
	case int(models.VoteUp):
		return models.VoteUp, nil
	case int(models.VoteDown):
		return models.VoteDown, nil
	}
	return 0, models.NewValidationError("vote value must be 1 or -1")
}

// DistinctUsers rejects self-relations.
func DistinctUsers(subjectID, objectID uint) error {
	if subjectID == objectID {
		return models.NewValidationError("a user cannot relate to themselves")
	}
	return nil
}
