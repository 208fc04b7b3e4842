package response

import (
	"context"

	"hostpilot/internal/facts"
	"hostpilot/internal/tools"
)

// Result is the derived response for one tool invocation.
type Result struct {
	Facts          facts.ExtractedFacts `json:"facts"`
	BaseResponse   string               `json:"base_response"`
	FinalResponse  string               `json:"final_response"`
	PolishApplied  bool                 `json:"polish_applied"`
	FallbackReason string               `json:"fallback_reason,omitempty"`
}

// Pipeline composes extraction, the base response and the optional polish.
// It performs no I/O other than the polisher's generator call.
type Pipeline struct {
	extractor *facts.Extractor
	polisher  Polisher
}

// NewPipeline creates a pipeline. A nil polisher disables polishing.
func NewPipeline(polisher Polisher) *Pipeline {
	return &Pipeline{extractor: facts.NewExtractor(nil, nil), polisher: polisher}
}

// WithExtractor returns a copy of p using e.
func (p *Pipeline) WithExtractor(e *facts.Extractor) *Pipeline {
	c := *p
	c.extractor = e
	return &c
}

// Run derives the response for res.
func (p *Pipeline) Run(ctx context.Context, tool string, res tools.Result) Result {
	f := p.extractor.Extract(tool, res)
	base := BaseResponse(f)
	out := Result{Facts: f, BaseResponse: base, FinalResponse: base}

	if p.polisher == nil {
		return out
	}

	pol := p.polisher.Polish(ctx, base, f)
	if pol.Applied {
		out.FinalResponse = pol.Text
		out.PolishApplied = true
		return out
	}
	out.FallbackReason = pol.FallbackReason
	return out
}
