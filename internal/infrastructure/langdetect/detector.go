// Package langdetect guesses the language of a text sample with trigram statistics.
package langdetect

import (
	"errors"
	"strings"

	"github.com/abadojack/whatlanggo"

	"github.com/kirillkom/docqa-assistant/internal/core/domain"
)

var ErrUndetermined = errors.New("language could not be determined")

type Detector struct {
	options whatlanggo.Options
}

func New() *Detector {
	return &Detector{}
}

// NewWithBlacklist never reports the given languages. Useful for close
// neighbours that get confused on short samples.
func NewWithBlacklist(langs ...whatlanggo.Lang) *Detector {
	blacklist := make(map[whatlanggo.Lang]bool, len(langs))
	for _, lang := range langs {
		blacklist[lang] = true
	}
	return &Detector{options: whatlanggo.Options{Blacklist: blacklist}}
}

func (d *Detector) Detect(text string) (domain.LanguageCode, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrUndetermined
	}
	info := whatlanggo.DetectWithOptions(text, d.options)
	if info.Script == nil {
		return "", ErrUndetermined
	}
	code := info.Lang.Iso6391()
	if code == "" {
		return "", ErrUndetermined
	}
	return domain.LanguageCode(code), nil
}
