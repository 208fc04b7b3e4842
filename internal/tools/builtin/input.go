package builtin

import (
	"context"
	"time"
	"unicode/utf8"

	"hostpilot/internal/env"
	"hostpilot/internal/host"
	"hostpilot/internal/tools"
)

// OpenAppArgs defines the parameters for the app.open tool.
type OpenAppArgs struct {
	Name string `json:"name" jsonschema:"description=Application name,required"`
}

// OpenAppTool launches or activates an application.
type OpenAppTool struct {
	tools.BaseTool
	host host.Host
}

// NewOpenAppTool creates the app.open tool.
func NewOpenAppTool(h host.Host) *OpenAppTool {
	return &OpenAppTool{
		BaseTool: tools.BaseTool{Desc: tools.Descriptor{
			Name:                   "app.open",
			Description:            "Open an application and bring it to the front.",
			Schema:                 tools.BuildSchema(OpenAppArgs{}),
			Risk:                   tools.RiskLow,
			SideEffects:            []string{tools.EffectProcess},
			RequiresUnlockedScreen: true,
			Reversible:             true,
			StabilizationTime:      1500 * time.Millisecond,
			Project:                projectOpenApp,
		}},
		host: h,
	}
}

// projectOpenApp: a successfully opened app is in front with focus.
func projectOpenApp(before env.Snapshot, args map[string]any) env.Snapshot {
	after := before
	after.ForegroundApp = stringArg(args, "name", before.ForegroundApp)
	after.Focused = true
	return after
}

// Execute opens the application.
func (t *OpenAppTool) Execute(ctx context.Context, args map[string]any) (tools.Result, error) {
	name := stringArg(args, "name", "")
	if err := t.host.OpenApp(ctx, name); err != nil {
		return hostResult(err)
	}
	return tools.NewSuccess(map[string]any{"app": name, "opened": true}), nil
}

// TypeTextArgs defines the parameters for the input.type_text tool.
type TypeTextArgs struct {
	Text string `json:"text" jsonschema:"description=Text to type into the focused input,required"`
}

// TypeTextTool types text into whatever has keyboard focus.
type TypeTextTool struct {
	tools.BaseTool
	host host.Host
}

// NewTypeTextTool creates the input.type_text tool.
func NewTypeTextTool(h host.Host) *TypeTextTool {
	return &TypeTextTool{
		BaseTool: tools.BaseTool{Desc: tools.Descriptor{
			Name:                   "input.type_text",
			Description:            "Type text into the focused input of the foreground application.",
			Schema:                 tools.BuildSchema(TypeTextArgs{}),
			Risk:                   tools.RiskMedium,
			SideEffects:            []string{tools.EffectInput},
			RequiresFocus:          true,
			RequiresUnlockedScreen: true,
			Reversible:             true,
			StabilizationTime:      200 * time.Millisecond,
		}},
		host: h,
	}
}

// Execute types the text.
func (t *TypeTextTool) Execute(ctx context.Context, args map[string]any) (tools.Result, error) {
	text := stringArg(args, "text", "")
	if err := t.host.TypeText(ctx, text); err != nil {
		return hostResult(err)
	}
	return tools.NewSuccess(map[string]any{"characters": utf8.RuneCountInString(text)}), nil
}

// SetVolumeArgs defines the parameters for the audio.set_volume tool.
type SetVolumeArgs struct {
	Level int `json:"level" jsonschema:"description=Output volume percentage,required,minimum=0,maximum=100"`
}

// SetVolumeTool sets the output volume.
type SetVolumeTool struct {
	tools.BaseTool
	host host.Host
}

// NewSetVolumeTool creates the audio.set_volume tool.
func NewSetVolumeTool(h host.Host) *SetVolumeTool {
	return &SetVolumeTool{
		BaseTool: tools.BaseTool{Desc: tools.Descriptor{
			Name:              "audio.set_volume",
			Description:       "Set the system output volume (0-100).",
			Domain:            "volume",
			Schema:            tools.BuildSchema(SetVolumeArgs{}),
			Risk:              tools.RiskLow,
			SideEffects:       []string{tools.EffectAudio},
			Reversible:        true,
			StabilizationTime: 100 * time.Millisecond,
		}},
		host: h,
	}
}

// Execute sets the volume.
func (t *SetVolumeTool) Execute(ctx context.Context, args map[string]any) (tools.Result, error) {
	level := intArg(args, "level", 0)
	if err := t.host.SetVolume(ctx, level); err != nil {
		return hostResult(err)
	}
	return tools.NewSuccess(map[string]any{"volume": map[string]any{"level": level}}), nil
}
