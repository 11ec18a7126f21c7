package agent

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"
)

// CommandExecutor runs agent tasks through the claude CLI inside the
// invocation's workspace, reading the stream-json output for the result.
type CommandExecutor struct {
	// Binary is the CLI to invoke. Defaults to "claude".
	Binary string
	// Model is passed through with --model when set.
	Model string
	// AllowedTools is handed to --allowedTools. Empty uses a standard set.
	AllowedTools string
}

// streamEvent is one line of the CLI's stream-json output.
type streamEvent struct {
	Type    string `json:"type"`
	Result  string `json:"result"`
	Message string `json:"message"`
	Error   string `json:"error"`
	IsError bool   `json:"is_error"`
}

// Run launches the CLI with the rendered prompt and blocks until it exits.
func (e *CommandExecutor) Run(ctx context.Context, inv Invocation) (map[string]any, error) {
	binary := e.Binary
	if binary == "" {
		binary = "claude"
	}
	allowed := e.AllowedTools
	if allowed == "" {
		allowed = "Read,Write,Edit,Bash,Glob,Grep,WebFetch"
	}

	args := []string{
		"--output-format", "stream-json",
		"--print",
		"--verbose",
		"--allowedTools", allowed,
	}
	if e.Model != "" {
		args = append(args, "--model", e.Model)
	}
	args = append(args, "-p", BuildPrompt(inv))

	cmd := exec.CommandContext(ctx, binary, args...)
	if inv.Workspace != "" {
		cmd.Dir = inv.Workspace
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", binary, err)
	}

	// Scan the event stream for the final result; individual malformed
	// lines are skipped.
	var final *streamEvent
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event streamEvent
		if err := json.Unmarshal(line, &event); err != nil {
			continue
		}
		switch event.Type {
		case "result":
			final = &event
		case "error":
			if event.Error == "" {
				event.Error = event.Message
			}
			final = &event
		}
	}
	scanErr := scanner.Err()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s terminated: %w", binary, ctx.Err())
		}
		return nil, fmt.Errorf("%s exited with error: %w", binary, err)
	}
	if scanErr != nil {
		return nil, fmt.Errorf("read %s output: %w", binary, scanErr)
	}
	if final == nil {
		return nil, fmt.Errorf("%s produced no result event", binary)
	}
	if final.Type == "error" || final.IsError {
		return nil, fmt.Errorf("%s reported failure: %s", binary, firstNonEmpty(final.Error, final.Result, final.Message))
	}

	return map[string]any{
		"agent_type":       string(inv.Task.AgentType),
		"task_id":          inv.Task.ID,
		"response":         firstNonEmpty(final.Result, final.Message),
		"duration_seconds": time.Since(started).Seconds(),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
