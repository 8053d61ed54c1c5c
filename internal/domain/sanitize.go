package domain

import "strings"

// sensitiveKeys are field names whose values must never reach logs or messages.
var sensitiveKeys = []string{
	"secret",
	"access_key",
	"accesskey",
	"password",
	"passwd",
	"token",
	"authorization",
	"dsn",
}

// IsSensitiveKey reports whether a field name carries credentials.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

// RedactFields returns a copy of fields without credential entries.
// Nested maps are redacted recursively.
func RedactFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	clean := make(map[string]any, len(fields))
	for k, v := range fields {
		if IsSensitiveKey(k) {
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			v = RedactFields(nested)
		}
		clean[k] = v
	}
	return clean
}

// MaskSecret keeps the last four characters of s.
func MaskSecret(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

// SanitizePathComponent makes a value safe to embed in a file name.
func SanitizePathComponent(input string) string {
	clean := strings.Trim(strings.TrimSpace(input), ".")
	if clean == "" {
		return "unknown"
	}
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")
	return replacer.Replace(clean)
}
