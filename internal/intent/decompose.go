package intent

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Mode tells the orchestrator which path a command takes.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeMulti  Mode = "multi"
)

// Action is one sub-command of a multi-step plan.
type Action struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	DependsOn   []string `json:"depends_on,omitempty"`
}

// Decomposition is the gate's verdict. Single commands carry exactly one action.
type Decomposition struct {
	Mode    Mode     `json:"mode"`
	Actions []Action `json:"actions"`
}

// DecompositionGate splits a command into actions.
type DecompositionGate interface {
	Decompose(ctx context.Context, text string) (Decomposition, error)
}

// DecompositionGateFunc adapts a function to DecompositionGate.
type DecompositionGateFunc func(ctx context.Context, text string) (Decomposition, error)

// Decompose implements DecompositionGate.
func (f DecompositionGateFunc) Decompose(ctx context.Context, text string) (Decomposition, error) {
	return f(ctx, text)
}

var (
	// sequencing connectives: the right side depends on the left side
	sequencePattern = regexp.MustCompile(`(?i)\s*;\s*|,?\s+and\s+then\s+|,?\s+after\s+that,?\s+|,?\s+then\s+`)

	// a plain "and" only splits when an action verb follows it
	parallelPattern = regexp.MustCompile(`(?i)\s+and\s+`)
	actionVerb      = regexp.MustCompile(`(?i)^(open|launch|start|switch|type|write|set|mute|unmute|empty|list|show|check|shut|power|turn|what|how)\b`)
)

// SplitGate is a deterministic DecompositionGate driven by connectives. Quoted text is
// never split.
type SplitGate struct{}

// NewSplitGate creates a SplitGate.
func NewSplitGate() *SplitGate {
	return &SplitGate{}
}

// Decompose implements DecompositionGate.
func (g *SplitGate) Decompose(ctx context.Context, text string) (Decomposition, error) {
	if err := ctx.Err(); err != nil {
		return Decomposition{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Decomposition{}, ErrEmptyCommand
	}

	var (
		actions  []Action
		previous []string
	)
	for _, segment := range splitOutsideQuotes(text, sequencePattern) {
		var current []string
		for _, clause := range splitClauses(segment) {
			a := Action{
				ID:          fmt.Sprintf("a%d", len(actions)+1),
				Description: clause,
			}
			if len(previous) > 0 {
				a.DependsOn = append([]string(nil), previous...)
			}
			actions = append(actions, a)
			current = append(current, a.ID)
		}
		if len(current) > 0 {
			previous = current
		}
	}

	if len(actions) == 0 {
		return Decomposition{}, ErrEmptyCommand
	}
	if len(actions) == 1 {
		actions[0].Description = text
		return Decomposition{Mode: ModeSingle, Actions: actions}, nil
	}
	return Decomposition{Mode: ModeMulti, Actions: actions}, nil
}

// splitClauses splits a segment on " and " when the right side starts with an action verb.
func splitClauses(segment string) []string {
	parts := splitOutsideQuotes(segment, parallelPattern)
	var out []string
	for _, p := range parts {
		if len(out) > 0 && !actionVerb.MatchString(p) {
			out[len(out)-1] += " and " + p
			continue
		}
		out = append(out, p)
	}
	return out
}

// splitOutsideQuotes splits s on re, ignoring matches inside double or single quotes.
// Empty pieces are dropped.
func splitOutsideQuotes(s string, re *regexp.Regexp) []string {
	var (
		out  []string
		last int
	)
	for _, loc := range re.FindAllStringIndex(s, -1) {
		if insideQuotes(s, loc[0]) {
			continue
		}
		if piece := strings.TrimSpace(s[last:loc[0]]); piece != "" {
			out = append(out, piece)
		}
		last = loc[1]
	}
	if piece := strings.TrimSpace(s[last:]); piece != "" {
		out = append(out, piece)
	}
	return out
}

func insideQuotes(s string, pos int) bool {
	var quote byte
	for i := 0; i < pos; i++ {
		c := s[i]
		switch {
		case quote == 0 && (c == '"' || c == '\''):
			// an apostrophe inside a word is not a quote
			if c == '\'' && i > 0 && isLetter(s[i-1]) {
				continue
			}
			quote = c
		case quote != 0 && c == quote:
			quote = 0
		}
	}
	return quote != 0
}

func isLetter(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
