package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"hostpilot/internal/tools"
)

// ToolInfo is the public view of a tool descriptor.
type ToolInfo struct {
	Name                   string         `json:"name"`
	Description            string         `json:"description"`
	Domain                 string         `json:"domain"`
	Risk                   tools.Risk     `json:"risk_level"`
	Destructive            bool           `json:"is_destructive"`
	Reversible             bool           `json:"reversible"`
	RequiresFocus          bool           `json:"requires_focus"`
	RequiresActiveApp      string         `json:"requires_active_app,omitempty"`
	RequiresUnlockedScreen bool           `json:"requires_unlocked_screen"`
	StabilizationMs        int64          `json:"stabilization_time_ms"`
	Schema                 map[string]any `json:"schema"`
}

// ToolsResponse is the body of GET /api/v1/tools.
type ToolsResponse struct {
	Tools []ToolInfo `json:"tools"`
	Count int        `json:"count"`
}

// NewToolInfo builds the public view of d.
func NewToolInfo(d tools.Descriptor) ToolInfo {
	return ToolInfo{
		Name:                   d.Name,
		Description:            d.Description,
		Domain:                 d.DomainName(),
		Risk:                   d.Risk,
		Destructive:            d.Destructive,
		Reversible:             d.Reversible,
		RequiresFocus:          d.RequiresFocus,
		RequiresActiveApp:      d.RequiresActiveApp,
		RequiresUnlockedScreen: d.RequiresUnlockedScreen,
		StabilizationMs:        d.StabilizationTime.Milliseconds(),
		Schema:                 d.Schema,
	}
}

// ToolsHandler lists the registered tools in name order.
func ToolsHandler(registry *tools.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		descs := registry.List()
		out := make([]ToolInfo, 0, len(descs))
		for _, d := range descs {
			out = append(out, NewToolInfo(d))
		}
		SendJSON(w, http.StatusOK, ToolsResponse{Tools: out, Count: len(out)})
	}
}

// ToolHandler returns one tool by the {name} route variable.
func ToolHandler(registry *tools.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]
		entry, ok := registry.Get(name)
		if !ok {
			SendError(w, http.StatusNotFound, ErrCodeNotFound, tools.NewToolNotFoundError(name).Error())
			return
		}
		SendJSON(w, http.StatusOK, NewToolInfo(entry.Descriptor()))
	}
}
