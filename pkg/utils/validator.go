package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxUserIDLength bounds user identifiers coming from the directory or a token subject
	MaxUserIDLength = 64
	// MaxTitleLength bounds document titles, in characters
	MaxTitleLength = 200
)

var (
	userIDRegex  = regexp.MustCompile(`^[A-Za-z0-9._@\-]+$`)
	controlRegex = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
)

// ValidateUserID checks that id looks like a directory user ID
func ValidateUserID(id string) error {
	if id == "" {
		return fmt.Errorf("user ID is required")
	}
	if len(id) > MaxUserIDLength {
		return fmt.Errorf("user ID exceeds %d characters: %s", MaxUserIDLength, id)
	}
	if !userIDRegex.MatchString(id) {
		return fmt.Errorf("invalid user ID format: %s", id)
	}
	return nil
}

// ValidateTitle checks a document title after sanitizing
func ValidateTitle(title string) error {
	title = SanitizeString(title)
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return fmt.Errorf("title exceeds %d characters", MaxTitleLength)
	}
	return nil
}

// SanitizeString removes control characters, keeping tabs and line breaks
func SanitizeString(s string) string {
	return controlRegex.ReplaceAllString(s, "")
}
