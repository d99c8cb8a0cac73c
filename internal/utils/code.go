package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

// GenerateProjectCode derives an upper-case code from a project name and
// appends a random suffix, e.g. "Site Audit" -> "SITEAUDIT-3F9A".
func GenerateProjectCode(name string) (string, error) {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
		if b.Len() == 10 {
			break
		}
	}
	prefix := b.String()
	if prefix == "" {
		prefix = "PRJ"
	}

	bytes := make([]byte, 2)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return fmt.Sprintf("%s-%s", prefix, strings.ToUpper(hex.EncodeToString(bytes))), nil
}

// CloneCode returns the code of the n-th copy of a project: "ALPHA-COPY",
// then "ALPHA-COPY-2", "ALPHA-COPY-3"...
func CloneCode(code string, n int) string {
	if n <= 1 {
		return code + "-COPY"
	}
	return fmt.Sprintf("%s-COPY-%d", code, n)
}
