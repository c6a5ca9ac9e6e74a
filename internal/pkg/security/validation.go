package security

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// Validation limits.
const (
	// Query limits.
	MinQueryLength = 1
	MaxQueryLength = 1000

	// Tag name limits.
	MinTagLength = 1
	MaxTagLength = 64

	// Text field limits (title, description).
	MaxTitleLength       = 256
	MaxDescriptionLength = 4096

	// Result limits.
	MinLimit = 1
	MaxLimit = 1000

	// Request limits.
	MaxRequestSize = 1 * 1024 * 1024 // 1MB
)

// ValidationError represents a field validation error.
type ValidationError struct {
	Field      string
	Value      interface{}
	Constraint string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation failed for %s: %s (got: %v)", e.Field, e.Constraint, e.Value)
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Constraint)
}

// photoIDRegex matches the hex IDs produced by hash.PhotoID.
var photoIDRegex = regexp.MustCompile(`^[a-f0-9]{16}$`)

// tagNameRegex matches valid tag names: alphanumeric start, then
// alphanumeric, hyphen, underscore, or space.
var tagNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9 _-]*$`)

// ValidateQuery validates a search query string.
// Requirements: required, 1-1000 chars, valid UTF-8.
func ValidateQuery(query string) error {
	if query == "" {
		return &ValidationError{
			Field:      "query",
			Constraint: "required",
		}
	}

	if !utf8.ValidString(query) {
		return &ValidationError{
			Field:      "query",
			Constraint: "must be valid UTF-8",
		}
	}

	length := utf8.RuneCountInString(query)
	if length > MaxQueryLength {
		return &ValidationError{
			Field:      "query",
			Value:      length,
			Constraint: fmt.Sprintf("maximum length is %d characters", MaxQueryLength),
		}
	}

	return nil
}

// ValidatePhotoID validates a photo identifier.
func ValidatePhotoID(id string) error {
	if id == "" {
		return &ValidationError{
			Field:      "photo_id",
			Constraint: "required",
		}
	}

	if !photoIDRegex.MatchString(id) {
		return &ValidationError{
			Field:      "photo_id",
			Value:      SanitizeForLogWithLength(id, 32),
			Constraint: "must be a 16-character hex ID",
		}
	}

	return nil
}

// ValidateTagName validates a user-assigned tag name.
func ValidateTagName(tag string) error {
	length := utf8.RuneCountInString(tag)
	if length < MinTagLength {
		return &ValidationError{
			Field:      "tag",
			Constraint: "required",
		}
	}
	if length > MaxTagLength {
		return &ValidationError{
			Field:      "tag",
			Value:      length,
			Constraint: fmt.Sprintf("maximum length is %d characters", MaxTagLength),
		}
	}
	if !tagNameRegex.MatchString(tag) {
		return &ValidationError{
			Field:      "tag",
			Value:      SanitizeForLogWithLength(tag, 32),
			Constraint: "must start with an alphanumeric and contain only alphanumerics, spaces, hyphens, underscores",
		}
	}
	return nil
}

// ValidateLimit validates a result limit, returning the value to use.
// Zero means "use the default"; negative and oversized values are errors.
func ValidateLimit(limit, defaultLimit int) (int, error) {
	if limit == 0 {
		return defaultLimit, nil
	}
	if limit < MinLimit {
		return 0, &ValidationError{
			Field:      "limit",
			Value:      limit,
			Constraint: fmt.Sprintf("minimum is %d", MinLimit),
		}
	}
	if limit > MaxLimit {
		return 0, &ValidationError{
			Field:      "limit",
			Value:      limit,
			Constraint: fmt.Sprintf("maximum is %d", MaxLimit),
		}
	}
	return limit, nil
}
