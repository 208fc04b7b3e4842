package tools

import (
	"fmt"
	"maps"
)

// Status is the outcome class of a tool call.
type Status string

const (
	StatusSuccess     Status = "success"
	StatusRefused     Status = "refused"
	StatusUnsupported Status = "unsupported"
	StatusBlocked     Status = "blocked"
	StatusError       Status = "error"
)

// Valid reports whether s is one of the statuses a tool may return.
func (s Status) Valid() bool {
	switch s {
	case StatusSuccess, StatusRefused, StatusUnsupported, StatusBlocked, StatusError:
		return true
	}
	return false
}

// Result is the closed set of tool outcomes: Success, Refused, Unsupported, Blocked
// and Failed. Consumers switch on the concrete type or on Status.
type Result interface {
	Status() Status

	// Map renders the wire shape {status, ...fields, error?}.
	Map() map[string]any

	sealed()
}

// Success carries the domain-specific payload of a completed call.
type Success struct {
	Fields map[string]any
}

// Refused means a gate inside the tool declined to run, e.g. missing confirmation.
type Refused struct {
	Message  string
	Required map[string]any
}

// Unsupported means the capability is absent on this host.
type Unsupported struct {
	Reason string
}

// Blocked means the tool itself detected an unmet precondition.
type Blocked struct {
	Reason     string
	Suggestion string
}

// Failed means execution ran and failed.
type Failed struct {
	Err    string
	Fields map[string]any
}

func (Success) Status() Status     { return StatusSuccess }
func (Refused) Status() Status     { return StatusRefused }
func (Unsupported) Status() Status { return StatusUnsupported }
func (Blocked) Status() Status     { return StatusBlocked }
func (Failed) Status() Status      { return StatusError }

func (Success) sealed()     {}
func (Refused) sealed()     {}
func (Unsupported) sealed() {}
func (Blocked) sealed()     {}
func (Failed) sealed()      {}

// Map implements Result.
func (r Success) Map() map[string]any {
	m := make(map[string]any, len(r.Fields)+1)
	maps.Copy(m, r.Fields)
	m["status"] = string(StatusSuccess)
	return m
}

// Map implements Result.
func (r Refused) Map() map[string]any {
	m := map[string]any{"status": string(StatusRefused)}
	if r.Required != nil {
		m["required"] = maps.Clone(r.Required)
	}
	if r.Message != "" {
		m["error"] = r.Message
	}
	return m
}

// Map implements Result.
func (r Unsupported) Map() map[string]any {
	return map[string]any{"status": string(StatusUnsupported), "reason": r.Reason}
}

// Map implements Result.
func (r Blocked) Map() map[string]any {
	m := map[string]any{"status": string(StatusBlocked), "reason": r.Reason}
	if r.Suggestion != "" {
		m["suggestion"] = r.Suggestion
	}
	return m
}

// Map implements Result.
func (r Failed) Map() map[string]any {
	m := make(map[string]any, len(r.Fields)+2)
	maps.Copy(m, r.Fields)
	m["status"] = string(StatusError)
	m["error"] = r.Err
	return m
}

// NewSuccess creates a Success result.
func NewSuccess(fields map[string]any) Success {
	return Success{Fields: fields}
}

// NewFailed creates a Failed result from an error message.
func NewFailed(format string, args ...any) Failed {
	return Failed{Err: fmt.Sprintf(format, args...)}
}

// ParseResult converts a raw wire map returned by an external collaborator into a Result.
// Any map that does not follow the execution boundary contract is rejected.
func ParseResult(tool string, raw map[string]any) (Result, error) {
	if raw == nil {
		return nil, NewContractViolationError(tool, "result is nil")
	}
	s, ok := raw["status"].(string)
	if !ok {
		return nil, NewContractViolationError(tool, "missing string field \"status\"")
	}
	status := Status(s)
	if !status.Valid() {
		return nil, NewContractViolationError(tool, fmt.Sprintf("unknown status %q", s))
	}

	errMsg, hasErr := raw["error"]
	errStr, errIsString := errMsg.(string)
	if hasErr && !errIsString {
		return nil, NewContractViolationError(tool, "field \"error\" must be a string")
	}

	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		if k != "status" && k != "error" {
			fields[k] = v
		}
	}

	switch status {
	case StatusSuccess:
		if hasErr {
			return nil, NewContractViolationError(tool, "success result carries an error")
		}
		return Success{Fields: fields}, nil

	case StatusRefused:
		r := Refused{Message: errStr}
		if req, ok := fields["required"]; ok {
			m, ok := req.(map[string]any)
			if !ok {
				return nil, NewContractViolationError(tool, "field \"required\" must be an object")
			}
			r.Required = m
		}
		return r, nil

	case StatusUnsupported:
		reason, _ := fields["reason"].(string)
		if reason == "" {
			reason = errStr
		}
		if reason == "" {
			return nil, NewContractViolationError(tool, "unsupported result without reason")
		}
		return Unsupported{Reason: reason}, nil

	case StatusBlocked:
		reason, _ := fields["reason"].(string)
		if reason == "" {
			reason = errStr
		}
		if reason == "" {
			return nil, NewContractViolationError(tool, "blocked result without reason")
		}
		suggestion, _ := fields["suggestion"].(string)
		return Blocked{Reason: reason, Suggestion: suggestion}, nil

	default:
		if errStr == "" {
			return nil, NewContractViolationError(tool, "error result without error message")
		}
		return Failed{Err: errStr, Fields: fields}, nil
	}
}
