package policy

import "errors"

// ErrPolicyDenied indicates the tool call was denied by policy.
var ErrPolicyDenied = errors.New("policy: tool call denied")
