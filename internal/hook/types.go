// Package hook runs external executables when the particle formation
// changes. Each hook lives in its own directory with a hook.json manifest
// and receives one JSON Event on stdin per matching transition.
package hook

import (
	"encoding/json"
	"strings"
)

// ManifestFile is the name of the manifest inside a hook directory.
const ManifestFile = "hook.json"

// AnyState subscribes a hook to every transition.
const AnyState = "*"

// Manifest describes a hook and the formation states it reacts to.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`

	// States lists the target states that trigger the hook, e.g. "TEXT".
	States []string `json:"states"`
	// Config is passed through to the hook with every event.
	Config json.RawMessage `json:"config,omitempty"`
}

// Event is written to the hook's stdin.
type Event struct {
	From        string          `json:"from"`
	To          string          `json:"to"`
	TimestampMs int64           `json:"timestamp"`
	Velocity    float64         `json:"velocity"`
	AutoRotate  bool            `json:"autoRotate"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Response is read from the hook's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Hook is a discovered hook with its manifest and location.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Handles reports whether the hook subscribes to transitions into state.
func (h *Hook) Handles(state string) bool {
	for _, s := range h.Manifest.States {
		if s == AnyState || strings.EqualFold(s, state) {
			return true
		}
	}
	return false
}
