package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ClaudeCLI runs `claude -p` once per request and reads its JSON result.
type ClaudeCLI struct {
	model   string
	binary  string
	timeout time.Duration
}

// NewClaudeCLI creates a client for the claude binary on PATH.
func NewClaudeCLI(model string) *ClaudeCLI {
	return &ClaudeCLI{
		model:   model,
		binary:  "claude",
		timeout: 120 * time.Second,
	}
}

// cliResult is the subset of `--output-format json` the persona reads.
type cliResult struct {
	Result  string `json:"result"`
	IsError bool   `json:"is_error"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete pipes the prompt to a one-turn CLI session. The persona's
// system prompt replaces the CLI default.
func (c *ClaudeCLI) Complete(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.binary, c.args(req)...)
	cmd.Stdin = strings.NewReader(req.Prompt)
	cmd.Env = filterEnv(os.Environ())

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("claude cli: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}
	return parseCLIResult(stdout.Bytes())
}

func (c *ClaudeCLI) args(req Request) []string {
	args := []string{"-p", "--output-format", "json", "--model", c.model, "--max-turns", "1"}
	if req.System != "" {
		args = append(args, "--system-prompt", req.System)
	}
	return args
}

// parseCLIResult decodes the JSON envelope. Plain text output from older
// CLI versions is returned as is.
func parseCLIResult(out []byte) (*Response, error) {
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return &Response{Content: string(trimmed), Provider: "claude-cli"}, nil
	}
	var res cliResult
	if err := json.Unmarshal(trimmed, &res); err != nil {
		return nil, fmt.Errorf("decode claude cli output: %w", err)
	}
	if res.IsError {
		return nil, fmt.Errorf("claude cli: %s", res.Result)
	}
	return &Response{
		Content:    strings.TrimSpace(res.Result),
		Provider:   "claude-cli",
		TokensUsed: res.Usage.InputTokens + res.Usage.OutputTokens,
	}, nil
}

// filterEnv drops CLAUDE_* variables so the child starts a clean session.
func filterEnv(env []string) []string {
	filtered := make([]string, 0, len(env))
	for _, e := range env {
		if !strings.HasPrefix(e, "CLAUDE_") {
			filtered = append(filtered, e)
		}
	}
	return filtered
}
