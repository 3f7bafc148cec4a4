package validation

import (
	"fmt"
	"strings"
	"unicode"
)

const maxCodeLen = 64

// NormalizeGiftCardCode приводит код подарочной карты к каноническому виду:
// верхний регистр, без пробелов. Допустимы латинские буквы, цифры и дефис.
func NormalizeGiftCardCode(code string) (string, error) {
	normalized := strings.ToUpper(strings.Join(strings.Fields(code), ""))
	if normalized == "" {
		return "", fmt.Errorf("%w: empty gift card code", ErrInvalid)
	}
	if len(normalized) > maxCodeLen {
		return "", fmt.Errorf("%w: gift card code too long", ErrInvalid)
	}

	for _, ch := range normalized {
		if ch == '-' || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			continue
		}
		return "", fmt.Errorf("%w: gift card code contains %q", ErrInvalid, ch)
	}

	return normalized, nil
}

// NormalizeKeys обрезает пробелы, отбрасывает пустые строки и дубликаты,
// сохраняя исходный порядок ключей.
func NormalizeKeys(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	res := make([]string, 0, len(values))

	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		res = append(res, v)
	}

	return res
}

// Slugify строит slug категории из её названия.
func Slugify(name string) string {
	var b strings.Builder
	dash := false

	for _, ch := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case ch < unicode.MaxASCII && (unicode.IsLetter(ch) || unicode.IsDigit(ch)):
			b.WriteRune(ch)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}
