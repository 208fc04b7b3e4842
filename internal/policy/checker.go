package policy

import (
	"fmt"

	"hostpilot/internal/env"
	"hostpilot/internal/tools"
)

// Checker is the gate used by the pipelines. It applies the operator ToolPolicy and then
// the tool's own preconditions. It holds no mutable state besides the matcher cache.
type Checker struct {
	policy    ToolPolicy
	allowlist []string
	blocklist []string
	matcher   *Matcher
}

// NewChecker creates a Checker for policy. Group references are expanded once.
func NewChecker(policy ToolPolicy) *Checker {
	return &Checker{
		policy:    policy,
		allowlist: ExpandGroups(policy.Allowlist),
		blocklist: ExpandGroups(policy.Blocklist),
		matcher:   NewMatcher(),
	}
}

// Check implements Gate.
//
// Check order:
// 1. Blocklist (takes precedence)
// 2. Allowlist (if not default allow)
// 3. Preconditions against snap
func (c *Checker) Check(desc tools.Descriptor, snap env.Snapshot) Result {
	if r := c.Admit(desc.Name); !r.Satisfied {
		return r
	}
	return CheckPreconditions(desc, snap)
}

// Admit applies only the operator allow/block lists.
func (c *Checker) Admit(name string) Result {
	if len(c.blocklist) > 0 && c.matcher.MatchTool(name, c.blocklist) {
		return Result{
			Reason:     fmt.Sprintf("%s is disabled by policy", name),
			Suggestion: "remove it from policy.blocklist to enable it",
		}
	}

	if !c.policy.DefaultAllow && !c.matcher.MatchTool(name, c.allowlist) {
		return Result{
			Reason:     fmt.Sprintf("%s is not in the policy allowlist", name),
			Suggestion: "add it to policy.allowlist to enable it",
		}
	}

	return Satisfied
}

// Err converts an unsatisfied admission into an ErrPolicyDenied error, nil otherwise.
func (r Result) Err() error {
	if r.Satisfied {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrPolicyDenied, r.Reason)
}
