// Package ffmpeg wraps invocation of the external ffmpeg binary: command
// construction, stderr streaming, progress parsing, and error
// classification. Nothing here knows about items or batches; callers hand
// in fully built argument lists.
package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"github.com/stillpond/framefuse/internal/logging"
)

// stderrTailLines bounds how much stderr is kept for error reports.
const stderrTailLines = 40

// Runner executes a constructed ffmpeg invocation. The production
// implementation shells out; tests substitute a stub.
type Runner interface {
	// Run executes the binary with args, feeding each stderr line to
	// onLine (which may be nil). The returned string is the stderr tail,
	// kept for diagnostics whether or not the command failed.
	Run(ctx context.Context, bin string, args []string, onLine func(string)) (string, error)
}

// Engine holds the resolved tool paths and the runner used to execute
// them. Construct once and share; the engine is stateless.
type Engine struct {
	FFmpeg  string
	FFprobe string
	Runner  Runner

	log zerolog.Logger
}

// NewEngine returns an Engine shelling out to the given binaries.
func NewEngine(ffmpegPath, ffprobePath string) *Engine {
	return &Engine{
		FFmpeg:  ffmpegPath,
		FFprobe: ffprobePath,
		Runner:  ExecRunner{},
		log:     logging.WithComponent("ffmpeg"),
	}
}

// Execute runs ffmpeg with args. Each stderr line is forwarded to onLine
// for progress parsing. On failure the returned error carries the exit
// cause and the stderr tail.
func (e *Engine) Execute(ctx context.Context, args []string, onLine func(string)) error {
	e.log.Debug().Str("bin", e.FFmpeg).Strs("args", args).Msg("executing")
	tail, err := e.Runner.Run(ctx, e.FFmpeg, args, onLine)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &ExecError{Args: args, Stderr: tail, Err: err}
	}
	return nil
}

// ExecError is a failed ffmpeg invocation with its stderr tail attached.
type ExecError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("ffmpeg: %v", e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += "\n" + s
	}
	return msg
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands through os/exec with line-buffered stderr.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, bin string, args []string, onLine func(string)) (string, error) {
	cmd := exec.CommandContext(ctx, bin, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", err
	}
	if err := cmd.Start(); err != nil {
		return "", err
	}

	var tail []string
	scanner := bufio.NewScanner(stderr)
	// ffmpeg emits progress with \r, not \n; split on both so updates
	// arrive as they happen.
	scanner.Split(scanCRLF)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if onLine != nil {
			onLine(line)
		}
		tail = append(tail, line)
		if len(tail) > stderrTailLines {
			tail = tail[1:]
		}
	}

	err = cmd.Wait()
	return strings.Join(tail, "\n"), err
}

// scanCRLF is bufio.ScanLines extended to treat bare \r as a separator.
func scanCRLF(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i, b := range data {
		if b == '\n' || b == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}
