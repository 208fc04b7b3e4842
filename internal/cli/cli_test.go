package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostpilot/internal/config"
	"hostpilot/internal/host"
	"hostpilot/internal/llm"
	"hostpilot/internal/orchestrator"
	"hostpilot/internal/pipeline"
	"hostpilot/internal/storage"
)

// isolate points HOME at a temp dir so nothing touches the real ~/.hostpilot.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	config.Reset()
	t.Cleanup(config.Reset)
	return home
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	isolate(t)
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Host.SkipStabilization = true
	return cfg
}

func openDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "facts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewApp_InformationCommand(t *testing.T) {
	cfg := testConfig(t)
	db := openDB(t)
	h := host.NewSimulated(host.WithMemory(host.MemoryStats{TotalBytes: 16 << 30, UsedBytes: 11 << 30, UsedPercent: 70.8}))

	app, err := NewApp(cfg, AppOptions{Host: h, DB: db, SessionID: "cli-session"})
	require.NoError(t, err)
	assert.False(t, app.Orchestrator.FallbackEnabled())

	resp := app.Orchestrator.Handle(context.Background(), "what's my RAM usage")
	assert.Equal(t, pipeline.StatusSuccess, resp.Status)
	assert.Equal(t, orchestrator.TypeInformation, resp.Type)
	assert.Contains(t, resp.Response, "70.8%")

	records, err := app.Facts.ListFacts(context.Background(), "cli-session", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "system.memory_usage", records[0].Facts.Tool)

	history, err := db.ListCommands(context.Background(), "cli-session", 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestNewApp_WithoutStorage(t *testing.T) {
	cfg := testConfig(t)

	app, err := NewApp(cfg, AppOptions{Host: host.NewSimulated()})
	require.NoError(t, err)
	assert.Nil(t, app.Facts)

	resp := app.Orchestrator.Handle(context.Background(), "what's my RAM usage")
	assert.Equal(t, pipeline.StatusSuccess, resp.Status)
}

func TestNewApp_FallbackUsesGenerator(t *testing.T) {
	cfg := testConfig(t)
	cfg.Fallback.Enabled = true

	var prompts []string
	gen := llm.GeneratorFunc(func(_ context.Context, prompt string, _ map[string]any) (json.RawMessage, error) {
		prompts = append(prompts, prompt)
		return json.RawMessage(`{"steps":[{"tool":"system.cpu_usage","args":{}}]}`), nil
	})

	app, err := NewApp(cfg, AppOptions{Host: host.NewSimulated(), Generator: gen})
	require.NoError(t, err)
	assert.True(t, app.Orchestrator.FallbackEnabled())

	resp := app.Orchestrator.Handle(context.Background(), "tell me a joke")
	assert.Equal(t, orchestrator.TypeFallback, resp.Type)
	assert.Equal(t, pipeline.StatusSuccess, resp.Status)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "system.cpu_usage", resp.Results[0].Tool)
	assert.Len(t, prompts, 1)
}

func TestNewApp_PolicyBlocklist(t *testing.T) {
	cfg := testConfig(t)
	cfg.Policy.Blocklist = []string{"system.memory_usage"}

	app, err := NewApp(cfg, AppOptions{Host: host.NewSimulated()})
	require.NoError(t, err)

	resp := app.Orchestrator.Handle(context.Background(), "what's my RAM usage")
	assert.NotEqual(t, pipeline.StatusSuccess, resp.Status)
	assert.False(t, app.Gate.Admit("system.memory_usage").Satisfied)
}

func TestNewApp_UnknownHostDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Host.Driver = "robot"

	_, err := NewApp(cfg, AppOptions{})
	assert.Error(t, err)
}

func TestPrintResponse(t *testing.T) {
	resp := orchestrator.Response{
		Status:   pipeline.StatusError,
		Type:     orchestrator.TypeMulti,
		Response: "Opened Notes. Stopped after a failed step.",
		Results: []pipeline.ActionResult{
			{ID: "a1", Description: "open Notes", Outcome: pipeline.Outcome{Status: pipeline.StatusSuccess}},
			{ID: "a2", Description: "type hello", Outcome: pipeline.Outcome{Status: pipeline.StatusSkipped, Reason: "dependency a1 failed"}},
		},
	}

	var text bytes.Buffer
	require.NoError(t, printResponse(&text, resp, false))
	out := text.String()
	assert.Contains(t, out, "Opened Notes.")
	assert.Contains(t, out, "[success] a1: open Notes")
	assert.Contains(t, out, "[skipped] a2: type hello (dependency a1 failed)")

	var js bytes.Buffer
	require.NoError(t, printResponse(&js, resp, true))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, "error", decoded["status"])
	assert.Equal(t, "multi", decoded["type"])
}

func TestPrintResponse_Suggestion(t *testing.T) {
	out := &pipeline.Outcome{Status: pipeline.StatusBlocked, Suggestion: "Unlock the screen first."}
	resp := orchestrator.Response{Status: pipeline.StatusBlocked, Type: orchestrator.TypeAction, Response: "The screen is locked.", Outcome: out}

	var buf bytes.Buffer
	require.NoError(t, printResponse(&buf, resp, false))
	assert.Contains(t, buf.String(), "Suggestion: Unlock the screen first.")
}

func TestREPLLoop(t *testing.T) {
	var handled []string
	r := &repl{
		handle: func(_ context.Context, text string) orchestrator.Response {
			handled = append(handled, text)
			return orchestrator.Response{Status: pipeline.StatusSuccess, Type: orchestrator.TypeAction, Response: "done: " + text}
		},
		session: func() orchestrator.SessionContext {
			return orchestrator.SessionContext{SessionID: "repl-session", CommandCount: len(handled)}
		},
	}

	in := lineScanner{bufio.NewScanner(strings.NewReader("mute\n\n  :session  \nquit\nnever reached\n"))}
	var out bytes.Buffer
	require.NoError(t, r.loop(context.Background(), in, &out))

	assert.Equal(t, []string{"mute"}, handled)
	assert.Contains(t, out.String(), "done: mute")
	assert.Contains(t, out.String(), "Session:  repl-session")
	assert.Contains(t, out.String(), "Commands: 1")
	assert.NotContains(t, out.String(), "never reached")
}

func TestREPLLoop_EOFAndCancel(t *testing.T) {
	calls := 0
	r := &repl{handle: func(context.Context, string) orchestrator.Response {
		calls++
		return orchestrator.Response{}
	}}

	require.NoError(t, r.loop(context.Background(), lineScanner{bufio.NewScanner(strings.NewReader("a\nb"))}, &bytes.Buffer{}))
	assert.Equal(t, 2, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, r.loop(ctx, lineScanner{bufio.NewScanner(strings.NewReader("c\n"))}, &bytes.Buffer{}))
	assert.Equal(t, 2, calls)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, home string) string {
	t.Helper()
	path := filepath.Join(home, "config.yaml")
	data := "log:\n  level: error\n" +
		"storage:\n  path: " + filepath.Join(home, "facts.db") + "\n" +
		"host:\n  driver: simulated\n  skip_stabilization: true\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))
	return path
}

func TestRootCmd_Version(t *testing.T) {
	isolate(t)

	out, err := execute(t, "version", "--json")
	require.NoError(t, err)

	var info BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}

func TestRootCmd_Run(t *testing.T) {
	home := isolate(t)
	path := writeConfig(t, home)

	out, err := execute(t, "-c", path, "run", "--json", "what's", "my", "RAM", "usage")
	require.NoError(t, err)

	var resp orchestrator.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, pipeline.StatusSuccess, resp.Status)
	assert.Equal(t, orchestrator.TypeInformation, resp.Type)

	factsOut, err := execute(t, "-c", path, "facts", "--json")
	require.NoError(t, err)
	var records []storage.FactRecord
	require.NoError(t, json.Unmarshal([]byte(factsOut), &records))
	require.Len(t, records, 1)
	assert.Equal(t, resp.SessionID, records[0].SessionID)
}

func TestRootCmd_Tools(t *testing.T) {
	home := isolate(t)
	path := writeConfig(t, home)

	out, err := execute(t, "-c", path, "tools")
	require.NoError(t, err)
	assert.Contains(t, out, "files.empty_trash")
	assert.Contains(t, out, "system.memory_usage")

	out, err = execute(t, "-c", path, "tools", "system.shutdown")
	require.NoError(t, err)
	assert.Contains(t, out, "Tool:        system.shutdown")
	assert.Contains(t, out, "Destructive: ✓")

	_, err = execute(t, "-c", path, "tools", "system.teleport")
	assert.ErrorContains(t, err, "tool not found")
}

func TestRootCmd_ConfigInit(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "conf", "config.yaml")

	out, err := execute(t, "-c", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)
	assert.FileExists(t, filepath.Join(home, ".hostpilot", "facts.db"))

	_, err = execute(t, "-c", path, "config", "init")
	assert.ErrorContains(t, err, "already exists")

	_, err = execute(t, "-c", path, "config", "init", "--force")
	require.NoError(t, err)

	out, err = execute(t, "-c", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "driver: simulated")
	assert.Contains(t, out, "port: 8787")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Fallback.MaxSteps)
}
