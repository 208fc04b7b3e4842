package builtin

import (
	"context"
	"path/filepath"

	"hostpilot/internal/host"
	"hostpilot/internal/tools"
)

// ListDirArgs defines the parameters for the list_dir tool.
type ListDirArgs struct {
	Path    string `json:"path" jsonschema:"description=The directory path to list,required"`
	Pattern string `json:"pattern" jsonschema:"description=Glob pattern to filter names (e.g. *.go)"`
}

// ListDirTool lists directory contents.
type ListDirTool struct {
	tools.BaseTool
	host host.Host
	// MaxNames caps how many names are returned; counts always cover every entry.
	MaxNames int
}

// NewListDirTool creates the files.list_dir tool.
func NewListDirTool(h host.Host) *ListDirTool {
	return &ListDirTool{
		BaseTool: tools.BaseTool{Desc: tools.Descriptor{
			Name:        "files.list_dir",
			Description: "List the contents of a directory. Returns entry counts and the first names.",
			Schema:      tools.BuildSchema(ListDirArgs{}),
			Risk:        tools.RiskNone,
			Reversible:  true,
		}},
		host:     h,
		MaxNames: 8,
	}
}

// Execute lists the directory contents.
func (t *ListDirTool) Execute(ctx context.Context, args map[string]any) (tools.Result, error) {
	path := stringArg(args, "path", "")
	pattern := stringArg(args, "pattern", "")

	if pattern != "" {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return tools.NewFailed("invalid pattern: %v", err), nil
		}
	}

	entries, err := t.host.ListDir(ctx, path)
	if err != nil {
		return hostResult(err)
	}

	var dirs, files int
	names := []any{}
	for _, e := range entries {
		if pattern != "" {
			if ok, _ := filepath.Match(pattern, e.Name); !ok {
				continue
			}
		}
		if e.IsDir {
			dirs++
		} else {
			files++
		}
		if len(names) < t.MaxNames {
			name := e.Name
			if e.IsDir {
				name += "/"
			}
			names = append(names, name)
		}
	}

	return tools.NewSuccess(map[string]any{
		"path":    path,
		"count":   dirs + files,
		"dirs":    dirs,
		"files":   files,
		"entries": names,
	}), nil
}

// EmptyTrashTool permanently deletes everything in the trash.
type EmptyTrashTool struct {
	tools.BaseTool
	host host.Host
}

// NewEmptyTrashTool creates the files.empty_trash tool.
func NewEmptyTrashTool(h host.Host) *EmptyTrashTool {
	return &EmptyTrashTool{
		BaseTool: tools.BaseTool{Desc: tools.Descriptor{
			Name:        "files.empty_trash",
			Description: "Permanently delete every item in the trash. Requires confirm=true.",
			Domain:      "trash",
			Schema:      tools.BuildSchema(struct{}{}),
			Risk:        tools.RiskHigh,
			SideEffects: []string{tools.EffectFilesystem},
			Destructive: true,
			Reversible:  false,
		}},
		host: h,
	}
}

// Execute empties the trash. The registry has already checked confirmation.
func (t *EmptyTrashTool) Execute(ctx context.Context, args map[string]any) (tools.Result, error) {
	if !tools.Confirmed(args) {
		return unconfirmed(t.Desc.Name), nil
	}
	n, err := t.host.EmptyTrash(ctx)
	if err != nil {
		return hostResult(err)
	}
	return tools.NewSuccess(map[string]any{"removed": n}), nil
}
