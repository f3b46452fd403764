package models

import (
	"fmt"
	"slices"
	"strings"
)

// Language is a language code such as "en", or a pair code such as "en_zh"
// naming the prompt/response languages of a prompt or response file.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageChinese Language = "zh"
)

// DefaultLanguages is the set of codes accepted when no other set is configured.
var DefaultLanguages = []Language{LanguageEnglish, LanguageChinese}

// Validate reports whether every "_"-separated segment of l is in known.
// An empty known set falls back to DefaultLanguages.
func (l Language) Validate(known []Language) error {
	if l == "" {
		return fmt.Errorf("language is empty")
	}
	if len(known) == 0 {
		known = DefaultLanguages
	}
	for _, seg := range strings.Split(string(l), "_") {
		if !slices.Contains(known, Language(seg)) {
			return fmt.Errorf("unknown language code %q in %q", seg, l)
		}
	}
	return nil
}

// ConditionKey identifies one experimental condition.
type ConditionKey struct {
	Model            string   `json:"model"`
	PromptLanguage   Language `json:"prompt_language"`
	ResponseLanguage Language `json:"response_language"`
}

func (k ConditionKey) String() string {
	return k.Model + "/" + string(k.PromptLanguage) + "/" + string(k.ResponseLanguage)
}

// Compare orders keys by model, then prompt language, then response language.
func (k ConditionKey) Compare(o ConditionKey) int {
	if c := strings.Compare(k.Model, o.Model); c != 0 {
		return c
	}
	if c := strings.Compare(string(k.PromptLanguage), string(o.PromptLanguage)); c != 0 {
		return c
	}
	return strings.Compare(string(k.ResponseLanguage), string(o.ResponseLanguage))
}

// ParseConditionKey parses the "model/prompt/response" form produced by String.
func ParseConditionKey(s string) (ConditionKey, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return ConditionKey{}, fmt.Errorf("invalid condition %q: want model/prompt_language/response_language", s)
	}
	return ConditionKey{
		Model:            parts[0],
		PromptLanguage:   Language(parts[1]),
		ResponseLanguage: Language(parts[2]),
	}, nil
}

// Sample is one scored generation. Source, File and Index record where the
// sample came from and take no part in grouping.
type Sample struct {
	Model            string   `json:"model"`
	PromptLanguage   Language `json:"prompt_language"`
	ResponseLanguage Language `json:"response_language"`
	Perplexity       float64  `json:"perplexity"`
	Loss             float64  `json:"loss"`

	Index  int    `json:"index,omitempty"`
	Source string `json:"source,omitempty"`
	File   string `json:"file,omitempty"`
}

// Key returns the condition the sample belongs to.
func (s Sample) Key() ConditionKey {
	return ConditionKey{
		Model:            s.Model,
		PromptLanguage:   s.PromptLanguage,
		ResponseLanguage: s.ResponseLanguage,
	}
}

// Ref is a short human-readable reference used in error messages.
func (s Sample) Ref() string {
	loc := s.File
	if s.Source != "" {
		loc = s.Source + "/" + s.File
	}
	if loc == "" {
		return fmt.Sprintf("sample %d (%s)", s.Index, s.Key())
	}
	return fmt.Sprintf("sample %d of %s (%s)", s.Index, loc, s.Key())
}
