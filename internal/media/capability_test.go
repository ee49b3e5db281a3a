package media

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func stubBinary(t *testing.T, name string) {
	t.Helper()
	binDir := t.TempDir()
	script := []byte("#!/bin/sh\necho \"ffmpeg version 7.1 Copyright (c) 2000-2024\"\n")
	if err := os.WriteFile(filepath.Join(binDir, name), script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestProbeToolMissingBinary(t *testing.T) {
	capability := ProbeTool(context.Background(), "definitely-not-installed-tool")
	if capability.Available {
		t.Fatal("missing binary reported available")
	}
	if capability.Detail == "" {
		t.Fatal("expected detail for missing binary")
	}
}

func TestProbeToolEmptyCommand(t *testing.T) {
	capability := ProbeTool(context.Background(), "  ")
	if capability.Available || capability.Detail == "" {
		t.Fatalf("capability = %+v", capability)
	}
}

func TestProbeToolReportsVersion(t *testing.T) {
	stubBinary(t, "ffmpeg")
	original := versionCommandContext
	versionCommandContext = exec.CommandContext
	t.Cleanup(func() { versionCommandContext = original })

	capability := ProbeTool(context.Background(), "ffmpeg")
	if !capability.Available {
		t.Fatalf("stub binary unavailable: %+v", capability)
	}
	if capability.Version != "7.1" {
		t.Fatalf("version = %q", capability.Version)
	}
}

func TestParseVersionLine(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"ffmpeg version 7.1 Copyright (c) 2000-2024", "7.1"},
		{"ffprobe version n6.0-12-g123 something", "n6.0-12-g123"},
		{"no marker here", "no marker here"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := parseVersionLine(tc.in); got != tc.want {
			t.Errorf("parseVersionLine(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
