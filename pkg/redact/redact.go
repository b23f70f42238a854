// Package redact masks credentials before they reach logs or terminals.
package redact

import (
	"regexp"
	"strings"
)

// Mask replaces every redacted value.
const Mask = "[REDACTED]"

// Redactor defines the interface for redaction rules.
type Redactor interface {
	Redact(input []byte) []byte
	RedactString(input string) string
}

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

type regexRedactor struct {
	rules []rule
}

// New returns a Redactor for key/value secrets, bearer tokens and SOAP
// session ids.
func New() Redactor {
	return &regexRedactor{
		rules: []rule{
			{
				pattern:     regexp.MustCompile(`(?i)("?(?:password|token|secret|client_secret|api_key|apikey)"?\s*[:=]\s*)"?([^"',\s}&]+)"?`),
				replacement: `${1}"` + Mask + `"`,
			},
			{
				pattern:     regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9\-._~+/]+=*`),
				replacement: "${1}" + Mask,
			},
			{
				pattern:     regexp.MustCompile(`(<(?:\w+:)?sessionId>)[^<]*(</(?:\w+:)?sessionId>)`),
				replacement: "${1}" + Mask + "${2}",
			},
		},
	}
}

func (r *regexRedactor) Redact(input []byte) []byte {
	return []byte(r.RedactString(string(input)))
}

func (r *regexRedactor) RedactString(input string) string {
	for _, rl := range r.rules {
		input = rl.pattern.ReplaceAllString(input, rl.replacement)
	}
	return input
}

var sensitiveKeys = []string{"password", "token", "secret", "key", "authorization"}

// isSensitive reports whether a settings key names a credential. Endpoint
// keys such as token_url are not.
func isSensitive(k string) bool {
	lowerK := strings.ToLower(k)
	if strings.HasSuffix(lowerK, "url") {
		return false
	}
	for _, sk := range sensitiveKeys {
		if strings.Contains(lowerK, sk) {
			return true
		}
	}
	return false
}

// Map returns a copy of data with the values of sensitive keys masked at any
// depth. Empty values stay empty so unset credentials remain visible.
func Map(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		if isSensitive(k) {
			if s, ok := v.(string); ok && s == "" {
				out[k] = s
			} else {
				out[k] = Mask
			}
			continue
		}

		switch val := v.(type) {
		case map[string]interface{}:
			out[k] = Map(val)
		case []interface{}:
			out[k] = slice(val)
		default:
			out[k] = v
		}
	}
	return out
}

func slice(data []interface{}) []interface{} {
	out := make([]interface{}, len(data))
	for i, v := range data {
		switch val := v.(type) {
		case map[string]interface{}:
			out[i] = Map(val)
		case []interface{}:
			out[i] = slice(val)
		default:
			out[i] = v
		}
	}
	return out
}
