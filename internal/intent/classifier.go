// Package intent holds the classifier and decomposition boundaries consumed by the
// orchestrator, with deterministic rule-table implementations.
package intent

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"hostpilot/internal/config"
)

// Built-in intent labels.
const (
	Unknown        = "unknown"
	SystemInfo     = "system_info"
	FileManagement = "file_management"
	AppControl     = "app_control"
	TextInput      = "text_input"
	AudioControl   = "audio_control"
	Power          = "power"
)

// ErrEmptyCommand is returned for blank input.
var ErrEmptyCommand = errors.New("intent: empty command")

// Classification is the classifier's verdict on one command.
type Classification struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Classifier labels a command with an intent.
type Classifier interface {
	Classify(ctx context.Context, text string) (Classification, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, text string) (Classification, error)

// Classify implements Classifier.
func (f ClassifierFunc) Classify(ctx context.Context, text string) (Classification, error) {
	return f(ctx, text)
}

// Rule maps a pattern to an intent.
type Rule struct {
	Intent     string
	Pattern    *regexp.Regexp
	Confidence float64
}

// RuleClassifier evaluates rules in order; the first match wins. A match below the
// minimum confidence, or no match, yields Unknown.
type RuleClassifier struct {
	rules         []Rule
	minConfidence float64
}

// NewRuleClassifier creates a classifier over rules.
func NewRuleClassifier(minConfidence float64, rules ...Rule) *RuleClassifier {
	return &RuleClassifier{rules: rules, minConfidence: minConfidence}
}

// DefaultRules returns the built-in rule table.
func DefaultRules() []Rule {
	return []Rule{
		{Intent: TextInput, Pattern: regexp.MustCompile(`(?i)^\s*(type|write)\b`), Confidence: 0.9},
		{Intent: Power, Pattern: regexp.MustCompile(`(?i)\b(shut\s*down|power\s+off|turn\s+off\s+the\s+(computer|machine))\b`), Confidence: 0.9},
		{Intent: AudioControl, Pattern: regexp.MustCompile(`(?i)\b(volume|mute|unmute|louder|quieter)\b`), Confidence: 0.9},
		{Intent: SystemInfo, Pattern: regexp.MustCompile(`(?i)\b(memory|ram|cpu|processor|disk|storage|battery)\b`), Confidence: 0.9},
		{Intent: FileManagement, Pattern: regexp.MustCompile(`(?i)\b(trash|recycle\s+bin|list|files?|folders?|director(y|ies))\b`), Confidence: 0.85},
		{Intent: AppControl, Pattern: regexp.MustCompile(`(?i)^\s*(open|launch|start|switch\s+to)\b`), Confidence: 0.85},
	}
}

// FromConfig builds a classifier from config. Configured rules are evaluated before
// the defaults.
func FromConfig(cfg config.IntentConfig) (*RuleClassifier, error) {
	rules := make([]Rule, 0, len(cfg.Rules)+6)
	for i, rc := range cfg.Rules {
		re, err := regexp.Compile(rc.Pattern)
		if err != nil {
			return nil, fmt.Errorf("intent: rule %d (%s): %w", i, rc.Intent, err)
		}
		if rc.Intent == "" {
			return nil, fmt.Errorf("intent: rule %d has no intent", i)
		}
		conf := rc.Confidence
		if conf == 0 {
			conf = 1
		}
		rules = append(rules, Rule{Intent: rc.Intent, Pattern: re, Confidence: conf})
	}
	rules = append(rules, DefaultRules()...)
	return NewRuleClassifier(cfg.MinConfidence, rules...), nil
}

// Classify implements Classifier.
func (c *RuleClassifier) Classify(ctx context.Context, text string) (Classification, error) {
	if err := ctx.Err(); err != nil {
		return Classification{}, err
	}
	if strings.TrimSpace(text) == "" {
		return Classification{}, ErrEmptyCommand
	}

	for _, r := range c.rules {
		if !r.Pattern.MatchString(text) {
			continue
		}
		if r.Confidence < c.minConfidence {
			return Classification{Intent: Unknown, Confidence: r.Confidence}, nil
		}
		return Classification{Intent: r.Intent, Confidence: r.Confidence}, nil
	}
	return Classification{Intent: Unknown}, nil
}
