package benchmark

import (
	"strings"

	"github.com/nersc/instbench/errors"
)

type Language string

const (
	LanguageC   Language = "c"
	LanguageCXX Language = "cxx"
)

// Recognized languages, in the order they are listed in diagnostics.
var Languages = []Language{LanguageC, LanguageCXX}

var (
	ErrInvalidLanguage  = errors.New("invalid language")
	ErrInvalidParameter = errors.New("invalid parameter")
)

// "c, cxx"
func validOptions() string {
	names := make([]string, len(Languages))
	for i, l := range Languages {
		names[i] = string(l)
	}
	return strings.Join(names, ", ")
}

// Case-insensitive.  Unrecognized tags yield an error wrapping
// ErrInvalidLanguage whose message names the tag and the valid options.
func ParseLanguage(tag string) (Language, error) {
	lang := Language(strings.ToLower(tag))
	for _, l := range Languages {
		if lang == l {
			return l, nil
		}
	}
	return "", errors.Wrapf(
		ErrInvalidLanguage,
		"Invalid language: %s. Valid options: %s",
		tag,
		validOptions())
}
