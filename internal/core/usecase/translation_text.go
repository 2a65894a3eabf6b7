package usecase

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
)

const detectionPrefixRunes = 1000

var cacheProviderTokens = map[domain.Provider]string{
	domain.ProviderCloud: "GoogleCloud",
	domain.ProviderLocal: "NLLB",
}

func contentHash(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// cacheKey is <stem>__<provider>__<source>__<target>__<first 8 hex of md5(text)>.
func cacheKey(name string, provider domain.Provider, source, target domain.LanguageCode, text string) string {
	token, ok := cacheProviderTokens[provider]
	if !ok {
		token = string(provider)
	}
	return fmt.Sprintf("%s__%s__%s__%s__%s", cacheStem(name), token, source, target, contentHash(text)[:8])
}

func cacheStem(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." {
		stem = base
	}
	return sanitizeFilename(stem)
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "document"
	}
	return base
}

func detectionSample(text string) string {
	runes := []rune(text)
	if len(runes) <= detectionPrefixRunes {
		return text
	}
	return string(runes[:detectionPrefixRunes])
}

// splitForTranslation cuts after '.', '!' and '?' and greedily recombines
// sentences while the piece stays within maxChars. Sentences longer than the
// cap are cut at whitespace.
func splitForTranslation(text string, maxChars int) []string {
	if maxChars <= 0 || runeLen(text) <= maxChars {
		return []string{text}
	}

	var (
		pieces  []string
		current string
	)
	flush := func() {
		if strings.TrimSpace(current) != "" {
			pieces = append(pieces, strings.TrimSpace(current))
		}
		current = ""
	}

	for _, sentence := range splitSentences(text) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		for _, part := range hardSplit(sentence, maxChars) {
			if current != "" && runeLen(current)+1+runeLen(part) > maxChars {
				flush()
			}
			if current == "" {
				current = part
			} else {
				current += " " + part
			}
		}
	}
	flush()
	return pieces
}

func splitSentences(text string) []string {
	var (
		out   []string
		start int
	)
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			out = append(out, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

func hardSplit(sentence string, maxChars int) []string {
	if runeLen(sentence) <= maxChars {
		return []string{sentence}
	}
	var (
		out     []string
		current string
	)
	for _, word := range strings.Fields(sentence) {
		for runeLen(word) > maxChars {
			if current != "" {
				out = append(out, current)
				current = ""
			}
			runes := []rune(word)
			out = append(out, string(runes[:maxChars]))
			word = string(runes[maxChars:])
		}
		switch {
		case current == "":
			current = word
		case runeLen(current)+1+runeLen(word) > maxChars:
			out = append(out, current)
			current = word
		default:
			current += " " + word
		}
	}
	if current != "" {
		out = append(out, current)
	}
	return out
}

func runeLen(s string) int {
	return len([]rune(s))
}

func countWords(text string) int {
	return len(strings.Fields(text))
}

func preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
