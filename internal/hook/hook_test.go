package hook

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// writeHook creates a hook directory under root with a shell script body.
func writeHook(t *testing.T, root string, m Manifest, script string) string {
	t.Helper()

	dir := filepath.Join(root, m.Name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create hook dir: %v", err)
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	if script != "" {
		if err := os.WriteFile(filepath.Join(dir, m.Executable), []byte("#!/bin/sh\n"+script), 0755); err != nil {
			t.Fatalf("failed to write script: %v", err)
		}
	}
	return dir
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping shell script hook on Windows")
	}
}

func TestHook_Handles(t *testing.T) {
	tests := []struct {
		name   string
		states []string
		state  string
		want   bool
	}{
		{"exact", []string{"TEXT"}, "TEXT", true},
		{"case insensitive", []string{"explode"}, "EXPLODE", true},
		{"wildcard", []string{AnyState}, "TREE", true},
		{"other state", []string{"TEXT"}, "TREE", false},
		{"no states", nil, "TREE", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &Hook{Manifest: Manifest{States: tt.states}}
			if got := h.Handles(tt.state); got != tt.want {
				t.Errorf("Handles(%q) = %v, want %v", tt.state, got, tt.want)
			}
		})
	}
}
