package logging

import (
	"net/url"
	"strings"
)

// RedactedValue replaces secret values in logged URLs.
const RedactedValue = "[REDACTED]"

var sensitiveKeys = []string{
	"auth", "credential", "key", "password", "secret", "session", "signature", "token",
}

// RedactURL renders the path and query of u for access logs. Values of
// secret-looking parameters are replaced; parameter order is kept.
func RedactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	if u.RawQuery == "" {
		return u.Path
	}

	params := strings.Split(u.RawQuery, "&")
	for i, param := range params {
		name, _, hasValue := strings.Cut(param, "=")
		key, err := url.QueryUnescape(name)
		if err != nil {
			key = name
		}
		if hasValue && IsSensitiveField(key) {
			params[i] = name + "=" + RedactedValue
		}
	}
	return u.Path + "?" + strings.Join(params, "&")
}

// IsSensitiveField reports whether a parameter or field name looks like it
// carries a credential.
func IsSensitiveField(name string) bool {
	name = strings.ToLower(name)
	for _, marker := range sensitiveKeys {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}
