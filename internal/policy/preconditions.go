package policy

import (
	"fmt"

	"hostpilot/internal/env"
	"hostpilot/internal/tools"
)

// CheckPreconditions evaluates a tool's declared preconditions against snap. It is pure.
// Checks run in a fixed order so the reported reason is stable: unlocked screen, active
// app, then focus.
func CheckPreconditions(desc tools.Descriptor, snap env.Snapshot) Result {
	if desc.RequiresUnlockedScreen && snap.ScreenLocked {
		return Result{
			Reason:     "the screen is locked",
			Suggestion: "unlock the screen and try again",
		}
	}

	if app := desc.RequiresActiveApp; app != "" && !snap.AppIs(app) {
		current := snap.ForegroundApp
		if current == "" {
			current = "nothing"
		}
		return Result{
			Reason:     fmt.Sprintf("%s needs %s in the foreground, but %s is active", desc.Name, app, current),
			Suggestion: fmt.Sprintf("open %s first", app),
		}
	}

	if desc.RequiresFocus && !snap.Focused {
		return Result{
			Reason:     "no input has keyboard focus",
			Suggestion: "click into a text field first",
		}
	}

	return Satisfied
}
