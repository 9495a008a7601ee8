// Package scrub removes personally identifying information and secrets from
// free text before it is persisted, logged, or sent to an AI provider.
// Scrubbing is deterministic and idempotent: scrub(scrub(x)) == scrub(x).
package scrub

import (
	"regexp"
	"strings"
)

// MaxLen caps scrubbed output to keep rows and log lines bounded.
const MaxLen = 8000

// Patterns ordered by risk: identity first, credentials second, then the
// fuzzier location/phone heuristics.
var (
	hetuRE     = regexp.MustCompile(`\b\d{6}[-+A-Y]\d{3}[0-9A-Z]\b`)
	emailRE    = regexp.MustCompile(`(?i)\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b`)
	userIDRE   = regexp.MustCompile(`(?i)[0-9a-f]{8}-[0-9a-f]{4}-7[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}`)
	jwtRE      = regexp.MustCompile(`\beyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9._-]{10,}\.[A-Za-z0-9._-]{10,}\b`)
	bearerRE   = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]{10,}\b`)
	apiKeyRE   = regexp.MustCompile(`(?i)\b(sk|rk|pk|api|key)_[A-Za-z0-9_-]{12,}\b`)
	secretKVRE = regexp.MustCompile(`(?i)\b(password|pass|pwd|secret|token|apikey|api_key)\s*([:=])\s*([^\s,;]{4,})`)
	phoneRE    = regexp.MustCompile(`(\+?\d{1,3}[\s-]?)?(\(?\d{2,4}\)?[\s-]?)?\d{3,4}[\s-]?\d{3,4}\b`)
	addressRE  = regexp.MustCompile(`\b[A-ZÅÄÖ][a-zåäö]+\s\d{1,4}(\s?[A-Z])?(\s?\d{1,3})?\b`)
	digitsRE   = regexp.MustCompile(`\d`)
)

// Text replaces detected identifiers and secrets with fixed placeholder
// tokens and clamps the result to MaxLen. It never fails; non-text garbage
// comes back as-is (minus anything that matched).
func Text(raw string) string {
	s := raw

	s = hetuRE.ReplaceAllString(s, "[SOCIAL_SECURITY_NUMBER]")
	s = emailRE.ReplaceAllString(s, "[EMAIL]")
	s = userIDRE.ReplaceAllString(s, "[USER_ID]")

	s = jwtRE.ReplaceAllString(s, "[TOKEN]")
	s = bearerRE.ReplaceAllString(s, "Bearer [TOKEN]")
	s = apiKeyRE.ReplaceAllString(s, "[TOKEN]")

	s = secretKVRE.ReplaceAllString(s, "$1$2[REDACTED]")

	// Only digit runs that amount to a plausible phone number (>= 8 digits)
	// are replaced, to avoid eating prices, years and so on.
	s = phoneRE.ReplaceAllStringFunc(s, func(m string) string {
		if len(digitsRE.FindAllString(m, -1)) >= 8 {
			return "[PHONE]"
		}
		return m
	})

	s = addressRE.ReplaceAllString(s, "[ADDRESS]")

	s = strings.ReplaceAll(s, "\x00", "")
	return clamp(s, MaxLen)
}

// Values walks a decoded JSON value and scrubs every string it contains.
func Values(v interface{}) interface{} {
	switch t := v.(type) {
	case string:
		return Text(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = Values(e)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = Values(e)
		}
		return out
	default:
		return v
	}
}

func clamp(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen]
	}
	return s
}
