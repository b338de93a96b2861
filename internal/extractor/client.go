package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
)

type (
	// Client abstracts the extraction tool so the service (and its tests)
	// never care whether a real binary sits behind it.
	Client interface {
		ExtractInfo(ctx context.Context, url string) (*RawInfo, error)
		Download(ctx context.Context, url string, formatID string, outputTemplate string) error
	}

	// CommandClient implements Client by spawning the yt-dlp binary. The
	// binary owns all site-specific scraping, stream negotiation and
	// transport; we only parse its JSON dump and collect its exit status.
	CommandClient struct {
		BinaryPath string
	}

	// ToolError is returned when the binary ran but exited non-zero.
	// Output carries the tool's stderr, which is the only structured-ish
	// failure information it exposes.
	ToolError struct {
		Output string
		Err    error
	}
)

func (err *ToolError) Error() string {
	return fmt.Sprintf("extraction tool failed: %s", err.Output)
}

func (err *ToolError) Unwrap() error {
	return err.Err
}

func NewCommandClient(binaryPath string) *CommandClient {
	if binaryPath == "" {
		binaryPath = "yt-dlp"
	}

	return &CommandClient{BinaryPath: binaryPath}
}

// ExtractInfo runs a metadata-only extraction (no download) and decodes
// the resulting JSON document.
func (client *CommandClient) ExtractInfo(ctx context.Context, url string) (*RawInfo, error) {
	var stdout bytes.Buffer
	if err := client.run(ctx, &stdout, "-J", "--no-playlist", "--no-warnings", url); err != nil {
		return nil, err
	}

	// An empty or "null" dump is not a tool failure; the service maps a
	// nil result to not-found.
	dump := bytes.TrimSpace(stdout.Bytes())
	if len(dump) == 0 {
		return nil, nil
	}

	var info *RawInfo
	if err := json.Unmarshal(dump, &info); err != nil {
		return nil, fmt.Errorf("failed to parse extraction tool output: %w", err)
	}

	return info, nil
}

// Download instructs the tool to fetch the exact format requested, writing
// the file according to the output template provided.
func (client *CommandClient) Download(ctx context.Context, url string, formatID string, outputTemplate string) error {
	return client.run(ctx, nil, "-f", formatID, "-o", outputTemplate, "--no-playlist", "--no-warnings", url)
}

func (client *CommandClient) run(ctx context.Context, stdout io.Writer, args ...string) error {
	bin := client.BinaryPath
	if bin == "" {
		bin = "yt-dlp"
	}

	if stdout == nil {
		stdout = io.Discard
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ToolError{Output: stderr.String(), Err: err}
		}

		// Binary missing, not executable, context cancelled before start...
		return fmt.Errorf("failed to run extraction tool: %w", err)
	}

	return nil
}
