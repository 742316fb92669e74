package types

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ValidateTargetURL accepts absolute http and https URLs only
func ValidateTargetURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url; %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url must be an absolute http or https URL, got %q", raw)
	}
	return nil
}
