package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestConfig materializes a config file pointing at temp directories
// and a stub transcoder that creates its avformat output file.
func writeTestConfig(t *testing.T) (configPath, projectPath string) {
	t.Helper()

	base := t.TempDir()
	transcoder := filepath.Join(base, "melt-stub")
	script := "#!/bin/sh\n" +
		"for a in \"$@\"; do\n" +
		"  case \"$a\" in avformat:*) printf rendered > \"${a#avformat:}\" ;; esac\n" +
		"done\n"
	if err := os.WriteFile(transcoder, []byte(script), 0o755); err != nil {
		t.Fatalf("write transcoder stub: %v", err)
	}

	projectPath = filepath.Join(base, "project.mlt")
	if err := os.WriteFile(projectPath, []byte("<mlt/>"), 0o644); err != nil {
		t.Fatalf("write project file: %v", err)
	}

	configPath = filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
cache_root = %q
log_dir = %q

[preview]
chunk_size = 50
debounce_seconds = 0
auto_preview = false

[renderer]
binary = %q
`, filepath.Join(base, "cache"), filepath.Join(base, "logs"), transcoder)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath, projectPath
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRenderCommandEndToEnd(t *testing.T) {
	configPath, projectPath := writeTestConfig(t)

	out, err := runCommand(t, "-c", configPath, "render", projectPath)
	if err != nil {
		t.Fatalf("render: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Rendered 3 chunk(s)") {
		t.Fatalf("unexpected render output:\n%s", out)
	}

	// a second run finds everything up to date
	out, err = runCommand(t, "-c", configPath, "render", projectPath)
	if err != nil {
		t.Fatalf("second render: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Nothing to render") {
		t.Fatalf("expected up-to-date message, got:\n%s", out)
	}
}

func TestStatusCommandListsChunks(t *testing.T) {
	configPath, projectPath := writeTestConfig(t)

	if out, err := runCommand(t, "-c", configPath, "render", projectPath); err != nil {
		t.Fatalf("render: %v\n%s", err, out)
	}

	out, err := runCommand(t, "-c", configPath, "status", projectPath)
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	for _, want := range []string{"Chunk", "Frames", "0-49", "Undo Archive"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestRangeRemoveDeletesPreviews(t *testing.T) {
	configPath, projectPath := writeTestConfig(t)

	if out, err := runCommand(t, "-c", configPath, "render", projectPath); err != nil {
		t.Fatalf("render: %v\n%s", err, out)
	}

	out, err := runCommand(t, "-c", configPath, "range", "remove", projectPath)
	if err != nil {
		t.Fatalf("range remove: %v\n%s", err, out)
	}
	if !strings.Contains(out, "3 chunk(s) removed") {
		t.Fatalf("unexpected range output:\n%s", out)
	}

	out, err = runCommand(t, "-c", configPath, "status", projectPath)
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	if !strings.Contains(out, "No chunks tracked") {
		t.Fatalf("expected empty chunk table, got:\n%s", out)
	}
}

func TestRenderFailurePropagates(t *testing.T) {
	configPath, projectPath := writeTestConfig(t)

	// replace the stub with one that always fails
	failing := filepath.Join(filepath.Dir(projectPath), "melt-stub")
	if err := os.WriteFile(failing, []byte("#!/bin/sh\nexit 1\n"), 0o755); err != nil {
		t.Fatalf("write failing stub: %v", err)
	}

	out, err := runCommand(t, "-c", configPath, "render", projectPath)
	if err == nil {
		t.Fatalf("expected render failure, got output:\n%s", out)
	}
	if !strings.Contains(err.Error(), "rendering failed at chunk") {
		t.Fatalf("unexpected error: %v", err)
	}
}
