package tuitest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
)

const (
	defaultCols    = 120
	defaultRows    = 32
	defaultTimeout = 10 * time.Second
)

// Options describe the program under test.
type Options struct {
	Args    []string
	Dir     string
	Env     []string
	Cols    int
	Rows    int
	Script  Script
	Timeout time.Duration
	// ExitCodes lists non-zero exit codes that still count as success.
	ExitCodes []int
}

// Recording is everything the program wrote to the terminal.
type Recording struct {
	Raw     []byte
	Frames  []Frame
	Elapsed time.Duration
}

// Run starts opts.Args in a PTY, plays the script and waits for the program
// to exit.
func Run(ctx context.Context, opts Options) (*Recording, error) {
	if len(opts.Args) == 0 {
		return nil, errors.New("tuitest: no program given")
	}
	cols, rows := opts.Cols, opts.Rows
	if cols <= 0 {
		cols = defaultCols
	}
	if rows <= 0 {
		rows = defaultRows
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, opts.Args[0], opts.Args[1:]...)
	cmd.Dir = opts.Dir
	cmd.Env = environ(opts.Env)

	term, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	if err != nil {
		return nil, fmt.Errorf("tuitest: start: %w", err)
	}
	defer term.Close()

	var (
		mu  sync.Mutex
		out bytes.Buffer
	)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		replies := newReplier(term)
		buf := make([]byte, 4096)
		for {
			n, err := term.Read(buf)
			if n > 0 {
				replies.feed(buf[:n])
				mu.Lock()
				out.Write(buf[:n])
				mu.Unlock()
			}
			if err != nil {
				return
			}
		}
	}()

	start := time.Now()
	for _, step := range opts.Script {
		if step.Pause > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("tuitest: script interrupted: %w", ctx.Err())
			case <-time.After(step.Pause):
			}
		}
		if len(step.Input) == 0 {
			continue
		}
		if _, err := term.Write(step.Input); err != nil {
			return nil, fmt.Errorf("tuitest: write: %w", err)
		}
	}

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	select {
	case err := <-exited:
		if err != nil && !allowedExit(err, opts.ExitCodes) {
			return nil, fmt.Errorf("tuitest: program failed: %w", err)
		}
	case <-ctx.Done():
		return nil, fmt.Errorf("tuitest: program did not exit: %w", ctx.Err())
	}

	_ = term.Close()
	<-drained

	mu.Lock()
	raw := append([]byte(nil), out.Bytes()...)
	mu.Unlock()
	return &Recording{Raw: raw, Frames: splitFrames(raw), Elapsed: time.Since(start)}, nil
}

func allowedExit(err error, codes []int) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	for _, code := range codes {
		if exitErr.ExitCode() == code {
			return true
		}
	}
	return false
}

func environ(extra []string) []string {
	env := append(os.Environ(), extra...)
	for _, entry := range env {
		if strings.HasPrefix(entry, "TERM=") {
			return env
		}
	}
	return append(env, "TERM=xterm-256color")
}
