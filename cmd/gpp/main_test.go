package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun(t *testing.T) {
	shaders := writeTree(t, map[string]string{
		"main.glsl": "//! include \"lib\" \"util.glsl\"\nvoid main() { SCALE; }\n",
	})
	lib := writeTree(t, map[string]string{
		"nested/util.glsl": "float util() { return SCALE; }\n",
	})

	cfg, err := parseArgs([]string{
		"-ns", "main=" + shaders,
		"-ns", "lib=" + lib,
		"-D", "SCALE=2.0",
		"-n",
		"main:main.glsl",
	}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}

	got, err := run(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	want := "0| float util() { return 2.0; }\n1| void main() { 2.0; }"
	if got != want {
		t.Errorf("got: %q; want: %q", got, want)
	}
}

func TestRunFromConfig(t *testing.T) {
	cfgDir := writeTree(t, map[string]string{
		"config/main.json": "{\n  \"level\": LEVEL #pp define LEVEL \"3\"\n}\n",
	})
	cfgPath := filepath.Join(cfgDir, "gpp.yaml")
	yaml := "start_operator: \"#pp\"\nnamespaces:\n  main: " + filepath.Join(cfgDir, "config") + "\nentry:\n  namespace: main\n  file: main.json\n"
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := parseArgs([]string{"-config", cfgPath}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	got, err := run(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if want := "{\n  \"level\": LEVEL\n}"; got != want {
		t.Errorf("got: %q; want: %q", got, want)
	}
}

func TestRunErrors(t *testing.T) {
	shaders := writeTree(t, map[string]string{
		"main.glsl": "//! error \"unsupported target\"\n",
	})
	cfg, err := parseArgs([]string{"-ns", "main=" + shaders, "main:main.glsl"}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := run(context.Background(), cfg, quietLogger()); err == nil || !strings.Contains(err.Error(), "unsupported target") {
		t.Errorf("expected error directive, got %v", err)
	}

	cfg.Namespaces["main"] = filepath.Join(shaders, "missing")
	if _, err := run(context.Background(), cfg, quietLogger()); err == nil {
		t.Error("expected load error")
	}
}

func TestParseArgsErrors(t *testing.T) {
	testCases := [][]string{
		{},
		{"main:main.glsl"},
		{"-ns", "main", "main:main.glsl"},
		{"-ns", "main=.", "main"},
		{"-ns", "main=.", "a:b", "c:d"},
	}
	for _, args := range testCases {
		if _, err := parseArgs(args, io.Discard); err == nil {
			t.Errorf("parseArgs(%q): expected error", args)
		}
	}
}

func TestEmit(t *testing.T) {
	var stdout bytes.Buffer
	cfg, err := parseArgs([]string{"-ns", "main=.", "main:x"}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if err := emit(cfg, "a\nb", &stdout, quietLogger()); err != nil {
		t.Fatal(err)
	}
	if stdout.String() != "a\nb\n" {
		t.Errorf("got: %q", stdout.String())
	}

	cfg.Output = filepath.Join(t.TempDir(), "out.txt")
	for i := 0; i < 2; i++ {
		if err := emit(cfg, "a\nb", &stdout, quietLogger()); err != nil {
			t.Fatal(err)
		}
	}
	data, err := os.ReadFile(cfg.Output)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != stdout.String() {
		t.Errorf("got: %q", data)
	}
}
