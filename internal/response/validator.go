package response

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"hostpilot/internal/config"
	"hostpilot/internal/facts"
)

// ErrPolishRejected is wrapped by every validation failure.
var ErrPolishRejected = errors.New("response: polished text rejected")

// Violation rules.
const (
	RuleLength        = "length"
	RuleBannedPhrase  = "banned_phrase"
	RuleMissingNumber = "missing_number"
	RuleMissingTerm   = "missing_term"
)

// ViolationError describes why a candidate was rejected.
type ViolationError struct {
	Rule   string
	Detail string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Detail)
}

func (e *ViolationError) Unwrap() error {
	return ErrPolishRejected
}

// keyTerms maps a fact-key token to the word that must appear in text derived from it.
var keyTerms = map[string]string{
	"ram":     "RAM",
	"cpu":     "CPU",
	"disk":    "disk",
	"battery": "battery",
	"volume":  "volume",
	"trash":   "trash",
}

var numberToken = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// Validator is the hard gate for polished text.
type Validator struct {
	minRatio float64
	maxRatio float64
	banned   []*regexp.Regexp
}

// NewValidator compiles the banned phrase patterns.
func NewValidator(minRatio, maxRatio float64, bannedPatterns []string) (*Validator, error) {
	v := &Validator{minRatio: minRatio, maxRatio: maxRatio}
	for _, p := range bannedPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("response: banned pattern %q: %w", p, err)
		}
		v.banned = append(v.banned, re)
	}
	return v, nil
}

// ValidatorFromConfig creates a validator from the polish section of the config.
func ValidatorFromConfig(cfg config.PolishConfig) (*Validator, error) {
	return NewValidator(cfg.MinRatio, cfg.MaxRatio, cfg.BannedPatterns)
}

// DefaultValidator uses the 0.5x..2.5x length window and the default banned phrases.
func DefaultValidator() *Validator {
	v, err := NewValidator(0.5, 2.5, config.DefaultBannedPatterns)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks candidate against base and facts. It returns a *ViolationError for the
// first rule broken, nil when the candidate may be shown.
func (v *Validator) Validate(candidate, base string, f map[string]any) error {
	baseLen := float64(utf8.RuneCountInString(base))
	n := float64(utf8.RuneCountInString(candidate))
	if n < v.minRatio*baseLen || n > v.maxRatio*baseLen {
		return &ViolationError{
			Rule:   RuleLength,
			Detail: fmt.Sprintf("length %d outside [%.1fx, %.1fx] of %d", int(n), v.minRatio, v.maxRatio, int(baseLen)),
		}
	}

	for _, re := range v.banned {
		if m := re.FindString(candidate); m != "" {
			return &ViolationError{Rule: RuleBannedPhrase, Detail: fmt.Sprintf("contains %q", m)}
		}
	}

	tokens := NumericTokens(candidate)
	for _, want := range facts.Numbers(f) {
		if !slices.Contains(tokens, want) {
			return &ViolationError{
				Rule:   RuleMissingNumber,
				Detail: fmt.Sprintf("value %s not present", strconv.FormatFloat(want, 'f', -1, 64)),
			}
		}
	}

	for _, term := range KeyTerms(f) {
		if !containsWord(candidate, term) {
			return &ViolationError{Rule: RuleMissingTerm, Detail: fmt.Sprintf("term %q not present", term)}
		}
	}

	return nil
}

// NumericTokens returns the numeric values written in text. A token is a maximal run of
// digits with an optional fraction, so "170.8" yields 170.8 and never 70.8.
func NumericTokens(text string) []float64 {
	var out []float64
	for _, loc := range numberToken.FindAllStringIndex(text, -1) {
		start := loc[0]
		// "-" glued to a word is a hyphen, not a sign
		if text[start] == '-' && start > 0 && isWordByte(text[start-1]) {
			start++
		}
		f, err := strconv.ParseFloat(text[start:loc[1]], 64)
		if err == nil {
			out = append(out, f)
		}
	}
	return out
}

// KeyTerms returns the words implied by the fact keys, sorted.
func KeyTerms(f map[string]any) []string {
	seen := map[string]bool{}
	for key := range f {
		for _, tok := range strings.Split(strings.ToLower(key), "_") {
			if term, ok := keyTerms[tok]; ok {
				seen[term] = true
			}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

func containsWord(text, word string) bool {
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
	return re.MatchString(text)
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
