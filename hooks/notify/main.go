// Command notify is a mudra transition hook that shows a desktop
// notification for each formation change. It uses osascript on macOS and
// notify-send elsewhere.
//
// Install by copying the built binary and hook.json into
// ~/.mudra/hooks/notify/.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
)

// Event is the transition written to stdin by the host.
type Event struct {
	From        string          `json:"from"`
	To          string          `json:"to"`
	TimestampMs int64           `json:"timestamp"`
	Velocity    float64         `json:"velocity"`
	AutoRotate  bool            `json:"autoRotate"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Response is written to stdout.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// settings come from the config block of hook.json.
type settings struct {
	Title string `json:"title"`
	Sound bool   `json:"sound"`
}

func main() {
	var ev Event
	if err := json.NewDecoder(os.Stdin).Decode(&ev); err != nil {
		writeResponse(fmt.Errorf("failed to decode event: %w", err))
		return
	}

	s := settings{Title: "Mudra"}
	if len(ev.Config) > 0 {
		if err := json.Unmarshal(ev.Config, &s); err != nil {
			writeResponse(fmt.Errorf("invalid config: %w", err))
			return
		}
	}

	writeResponse(notify(s, message(ev)))
}

func message(ev Event) string {
	return fmt.Sprintf("%s → %s (velocity %.1f)", ev.From, ev.To, ev.Velocity)
}

func notify(s settings, body string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		script := "display notification " + strconv.Quote(body) + " with title " + strconv.Quote(s.Title)
		if s.Sound {
			script += ` sound name "Glass"`
		}
		cmd = exec.Command("osascript", "-e", script)
	default:
		cmd = exec.Command("notify-send", s.Title, body)
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

func writeResponse(err error) {
	resp := Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
