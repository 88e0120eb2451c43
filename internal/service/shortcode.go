package service

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	minCustomCodeLength = 3
	maxCustomCodeLength = 20
)

// Validation rules reported by ValidationError.
const (
	RuleMinLength        = "min_length"
	RuleMaxLength        = "max_length"
	RuleCharset          = "charset"
	RuleOutOfRange       = "out_of_range"
	RuleURLFormat        = "url_format"
	RuleDomainNotAllowed = "domain_not_allowed"
)

var shortCodeCharset = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidationError reports a request value that violates one of the service's
// validation rules. It is always surfaced to the caller with the specific
// violated rule, never coerced.
type ValidationError struct {
	Field   string
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// validateCustomCode enforces the short code policy: length 3-20, charset
// [A-Za-z0-9_-].
func validateCustomCode(code string) error {
	switch {
	case len(code) < minCustomCodeLength:
		return &ValidationError{
			Field:   "short_code",
			Rule:    RuleMinLength,
			Message: fmt.Sprintf("short code must be at least %d characters long", minCustomCodeLength),
		}
	case len(code) > maxCustomCodeLength:
		return &ValidationError{
			Field:   "short_code",
			Rule:    RuleMaxLength,
			Message: fmt.Sprintf("short code must be at most %d characters long", maxCustomCodeLength),
		}
	case !shortCodeCharset.MatchString(code):
		return &ValidationError{
			Field:   "short_code",
			Rule:    RuleCharset,
			Message: "short code may only contain letters, digits, '_' and '-'",
		}
	}

	return nil
}

// validateOriginalURL checks that the destination is an absolute http(s) URL
// whose host is covered by the allow-list. An empty allow-list permits any
// destination.
func validateOriginalURL(rawURL string, allowedDomains []string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ValidationError{
			Field:   "url",
			Rule:    RuleURLFormat,
			Message: "invalid URL format",
		}
	}

	if len(allowedDomains) == 0 {
		return nil
	}

	host := strings.ToLower(u.Hostname())
	for _, domain := range allowedDomains {
		domain = strings.ToLower(domain)
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return nil
		}
	}

	return &ValidationError{
		Field:   "url",
		Rule:    RuleDomainNotAllowed,
		Message: "URL destination domain is not allowed",
	}
}
