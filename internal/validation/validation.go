package validation

import (
	"fmt"
	"strings"
)

const (
	maxTitleLen       = 255
	maxDescriptionLen = 1024
	maxExpiresInDays  = 365
)

// Title validates an API key title: required, 1-255 characters after trimming.
func Title(title string) error {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return fmt.Errorf("title is required")
	}
	if len(trimmed) > maxTitleLen {
		return fmt.Errorf("title must be at most %d characters", maxTitleLen)
	}
	return nil
}

// Description validates an optional API key description.
func Description(description string) error {
	if len(description) > maxDescriptionLen {
		return fmt.Errorf("description must be at most %d characters", maxDescriptionLen)
	}
	return nil
}

// ExpiresInDays validates an optional key lifetime, bounded to [1,365].
func ExpiresInDays(days *int) error {
	if days == nil {
		return nil
	}
	if *days < 1 || *days > maxExpiresInDays {
		return fmt.Errorf("expires_in_days must be between 1 and %d", maxExpiresInDays)
	}
	return nil
}
