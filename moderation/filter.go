// Package moderation masks censored words in message bodies.
// Matching is case-insensitive and ignores punctuation and spacing inside
// words, so split or decorated spellings are still caught.
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

type Filter struct {
	machine     *goahocorasick.Machine
	replacement rune
	enabled     bool
}

// NewFilter builds the Aho-Corasick automaton over the normalized word list.
// An empty list yields a disabled filter that passes text through untouched.
func NewFilter(words []string, replacement rune) (*Filter, error) {
	if len(words) == 0 {
		return &Filter{replacement: replacement}, nil
	}
	patterns := make([][]rune, 0, len(words))
	for _, w := range words {
		if norm, _ := foldRunes([]rune(w)); len(norm) > 0 {
			patterns = append(patterns, norm)
		}
	}
	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	return &Filter{machine: machine, replacement: replacement, enabled: true}, nil
}

// Apply replaces every matched word with the replacement rune, keeping the
// original length and spacing of the masked span.
func (f *Filter) Apply(text string) string {
	if !f.enabled {
		return text
	}
	original := []rune(text)
	folded, positions := foldRunes(original)
	if len(folded) == 0 {
		return text
	}

	matches := f.machine.MultiPatternSearch(folded, false)
	for _, match := range matches {
		start := match.Pos
		end := start + len(match.Word)
		if start < 0 || end > len(positions) {
			continue
		}
		// positions maps folded indices back to the original runes
		for i := positions[start]; i <= positions[end-1]; i++ {
			original[i] = f.replacement
		}
	}
	return string(original)
}

// foldRunes lowercases the input and drops separators, returning the folded
// runes together with each folded rune's index in the original text.
func foldRunes(input []rune) ([]rune, []int) {
	folded := make([]rune, 0, len(input))
	positions := make([]int, 0, len(input))
	for i, r := range input {
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		folded = append(folded, unicode.ToLower(r))
		positions = append(positions, i)
	}
	return folded, positions
}
