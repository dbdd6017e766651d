package build

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// StopGracePeriod is how long the builder may take to exit after SIGTERM.
const StopGracePeriod = 10 * time.Second

// Invoker runs the builder and relays its output.
type Invoker struct {
	// Stdout receives the builder's merged stdout and stderr, one trimmed
	// line at a time. Defaults to os.Stdout.
	Stdout io.Writer
	Logger *slog.Logger
}

func (i *Invoker) logger() *slog.Logger {
	if i != nil && i.Logger != nil {
		return i.Logger
	}
	return slog.Default()
}

func (i *Invoker) stdout() io.Writer {
	if i.Stdout != nil {
		return i.Stdout
	}
	return os.Stdout
}

// Run starts argv[0] with the remaining arguments and blocks until it exits.
// The exit code is returned as-is; a non-zero code is not an error. An error
// is returned when the process could not be started, its output could not be
// read, or ctx ended the run; in the last case the builder got SIGTERM first.
func (i *Invoker) Run(ctx context.Context, argv []string) (int, error) {
	if len(argv) == 0 || argv[0] == "" {
		return -1, &LaunchError{Err: errors.New("no command provided")}
	}
	executable := argv[0]
	if err := checkExecutable(executable); err != nil {
		return -1, &LaunchError{Executable: executable, Err: err}
	}

	// one pipe for both streams keeps the builder's own ordering.
	reader, writer, err := os.Pipe()
	if err != nil {
		return -1, &LaunchError{Executable: executable, Err: err}
	}
	defer reader.Close()

	cmd := exec.CommandContext(ctx, executable, argv[1:]...)
	cmd.Stdin = nil
	cmd.Stdout = writer
	cmd.Stderr = writer
	// let kaniko stop on an interrupt; it is killed if it lingers.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = StopGracePeriod

	i.logger().Info("running builder", "command", strings.Join(argv, " "))
	if err := cmd.Start(); err != nil {
		writer.Close()
		return -1, &LaunchError{Executable: executable, Err: err}
	}
	// the child holds its own copy; closing ours lets the read loop see EOF.
	writer.Close()

	copyErr := relayLines(reader, i.stdout())
	if copyErr != nil {
		// unblock a child still writing into the pipe.
		reader.Close()
	}

	waitErr := cmd.Wait()
	code := exitCode(cmd, waitErr)
	i.logger().Info("builder exited", "exit_code", code)

	if err := ctx.Err(); err != nil {
		return code, err
	}
	if copyErr != nil {
		return code, fmt.Errorf("relay builder output: %w", copyErr)
	}
	if code < 0 && waitErr != nil {
		return code, fmt.Errorf("wait for builder: %w", waitErr)
	}
	return code, nil
}

// relayLines copies r to w line by line, trimming surrounding whitespace.
func relayLines(r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			if _, werr := fmt.Fprintln(w, strings.TrimSpace(line)); werr != nil {
				return werr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func exitCode(cmd *exec.Cmd, err error) int {
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return -1
	}
	state := cmd.ProcessState
	if state == nil {
		return -1
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return state.ExitCode()
}

// checkExecutable catches missing or non-executable absolute paths before
// starting; relative names are left to exec's PATH lookup.
func checkExecutable(path string) error {
	if !filepath.IsAbs(path) {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if err := unix.Access(path, unix.X_OK); err != nil {
		return fmt.Errorf("%s is not executable: %w", path, err)
	}
	return nil
}
