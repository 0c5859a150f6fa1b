package simulated

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"bridge-pos-payments/internal/terminal"
)

// Script names, one per kind of interaction the terminal plays back.
const (
	ScriptPayment = "payment"
	ScriptPix     = "pix"
	ScriptVoid    = "void"
)

// Step is one progress event of a script. Delay overrides the gateway step delay.
type Step struct {
	Operation string             `json:"operation"`
	Code      terminal.EventCode `json:"code"`
	Message   string             `json:"message,omitempty"`
	DelayMS   int                `json:"delay_ms,omitempty"`
}

func (s Step) delay(fallback time.Duration) time.Duration {
	if s.DelayMS > 0 {
		return time.Duration(s.DelayMS) * time.Millisecond
	}
	return fallback
}

// DefaultScripts mirrors what a chip-and-PIN sale, a PIX QR sale and a void look like on
// the device.
func DefaultScripts() map[string][]Step {
	return map[string][]Step{
		ScriptPayment: {
			{Code: terminal.EventWaitingCard},
			{Code: terminal.EventInsertedCard},
			{Code: terminal.EventPinRequested},
			{Code: terminal.EventDigitPassword},
			{Code: terminal.EventDigitPassword},
			{Code: terminal.EventDigitPassword},
			{Code: terminal.EventDigitPassword},
			{Code: terminal.EventPinOK},
			{Code: terminal.EventAuthorizing},
			{Code: terminal.EventApproved},
			{Code: terminal.EventWaitingRemoveCard},
			{Code: terminal.EventRemovedCard},
		},
		ScriptPix: {
			{Code: terminal.EventContactlessOnDevice},
			{Code: terminal.EventAuthorizing},
			{Code: terminal.EventApproved},
		},
		ScriptVoid: {
			{Code: terminal.EventWaitingCard},
			{Code: terminal.EventInsertedCard},
			{Code: terminal.EventAuthorizing},
			{Code: terminal.EventApproved},
			{Code: terminal.EventWaitingRemoveCard},
			{Code: terminal.EventRemovedCard},
		},
	}
}

// LoadScripts reads a JSONL script file, one Step per line. Operations present in the
// file replace the default script for that operation; the others keep their default.
func LoadScripts(path string) (map[string][]Step, error) {
	scripts := DefaultScripts()
	if path == "" {
		return scripts, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open script file: %w", err)
	}
	defer func() { _ = file.Close() }()

	loaded := make(map[string][]Step)
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var step Step
		if err := json.Unmarshal([]byte(line), &step); err != nil {
			return nil, fmt.Errorf("script line %d: %w", lineNo, err)
		}
		if step.Operation == "" || step.Code == "" {
			return nil, fmt.Errorf("script line %d: operation and code are required", lineNo)
		}
		loaded[step.Operation] = append(loaded[step.Operation], step)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read script file: %w", err)
	}

	for op, steps := range loaded {
		scripts[op] = steps
	}
	return scripts, nil
}

// declined rewrites an approving script into one the host refuses.
func declined(steps []Step) []Step {
	out := make([]Step, 0, len(steps))
	for _, s := range steps {
		if s.Code == terminal.EventApproved {
			s.Code = terminal.EventNotApproved
			out = append(out, s)
			break
		}
		out = append(out, s)
	}
	return out
}
