package output

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxKeyBytes = 100

// StorageKey maps a concept name to a directory-safe key. It is pure and
// idempotent: StorageKey(StorageKey(x)) == StorageKey(x).
func StorageKey(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	lastUnderscore := false
	inSpace := false
	for _, r := range name {
		if unicode.IsSpace(r) {
			if !inSpace && !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
			inSpace = true
			continue
		}
		inSpace = false
		if !keepRune(r) {
			continue
		}
		if r == '_' {
			if lastUnderscore {
				continue
			}
			lastUnderscore = true
		} else {
			lastUnderscore = false
		}
		b.WriteRune(r)
	}

	key := truncateBytes(b.String(), maxKeyBytes)
	key = strings.TrimRight(key, "_.")
	// Leading dots would produce hidden or relative ("..") directories.
	key = strings.TrimLeft(key, ".")
	key = strings.TrimRight(key, "_.")
	if key == "" {
		sum := sha256.Sum256([]byte(name))
		return "concept_" + hex.EncodeToString(sum[:])[:8]
	}
	return key
}

func keepRune(r rune) bool {
	switch {
	case r == '_' || r == '-' || r == '.':
		return true
	case r < utf8.RuneSelf:
		return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
	default:
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
