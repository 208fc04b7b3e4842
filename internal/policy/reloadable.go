package policy

import (
	"sync/atomic"

	"hostpilot/internal/env"
	"hostpilot/internal/tools"
)

// Reloadable is a Gate whose operator policy can be replaced at runtime, e.g. when the
// config file changes under `hostpilot serve`. A check in flight keeps the Checker it
// loaded.
type Reloadable struct {
	current atomic.Pointer[Checker]
}

// NewReloadable creates a Reloadable gate starting from policy.
func NewReloadable(policy ToolPolicy) *Reloadable {
	r := &Reloadable{}
	r.Update(policy)
	return r
}

// Update swaps in a new policy.
func (r *Reloadable) Update(policy ToolPolicy) {
	r.current.Store(NewChecker(policy))
}

// Policy returns the policy currently in force.
func (r *Reloadable) Policy() ToolPolicy {
	return r.current.Load().policy
}

// Check implements Gate.
func (r *Reloadable) Check(desc tools.Descriptor, snap env.Snapshot) Result {
	return r.current.Load().Check(desc, snap)
}

// Admit applies only the operator allow/block lists.
func (r *Reloadable) Admit(name string) Result {
	return r.current.Load().Admit(name)
}
