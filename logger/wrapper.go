package logger

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/rs/zerolog"
	"io"
	"os"
	"os/exec"
	"runtime/debug"
	"strings"
)

// WrapProcess runs executable as a child process, forwards its JSON log lines and turns a
// raw Go panic dump on the child's stderr into a single structured fatal record.
// It never returns: the wrapper exits with the child's exit code.
func WrapProcess(executable string, arg ...string) {
	wrapLogger := NewLogger("Logs wrapper")
	defer HandlePanic(wrapLogger)

	r, w, err := os.Pipe()
	if err != nil {
		wrapLogger.Fatal().Err(err).Msg("Could not create pipe for logs")
		os.Exit(1)
	}

	cmd := exec.Command(executable, arg...)
	cmd.Stderr = w
	cmd.Stdout = os.Stdout
	cmd.Env = append(os.Environ(), wrappedEnv+"=1")

	if err = cmd.Start(); err != nil {
		wrapLogger.Fatal().Err(err).Msg("Could not launch main process")
		os.Exit(1)
	}
	_ = w.Close()

	exitCodeCh := make(chan int, 1)
	go func() {
		defer HandlePanic(wrapLogger)
		exitCodeCh <- exitCode(cmd.Wait())
	}()

	panicLogs := forwardLogs(r, os.Stdout, wrapLogger)
	code := <-exitCodeCh
	if code == 0 {
		wrapLogger.Info().Msg("Exited with code 0")
		os.Exit(0)
	}
	wrapLogger.Error().
		Err(errors.New(panicLogs)).
		Msgf("Panicked and exited with code: %d", code)
	os.Exit(code)
}

const wrappedEnv = "PSYCTX_WRAPPED"

// IsWrapped reports whether the current process was started by WrapProcess.
func IsWrapped() bool {
	return os.Getenv(wrappedEnv) == "1"
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

// forwardLogs copies JSON lines to out until r is closed and returns everything that
// followed a "panic" line.
func forwardLogs(r io.Reader, out io.Writer, wrapLogger zerolog.Logger) string {
	var panicLogs strings.Builder
	foundPanic := false

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if !foundPanic && strings.HasPrefix(string(line), "panic") {
			foundPanic = true
		}
		switch {
		case len(line) == 0:
		case foundPanic:
			panicLogs.WriteString(fmt.Sprintf("%s\n", line))
		case isJSON(line):
			_, _ = fmt.Fprintln(out, string(line))
		default:
			wrapLogger.Error().Msgf("Got log line that is not JSON formatted: '%s'", line)
		}
	}
	if err := scanner.Err(); err != nil {
		wrapLogger.Err(err).Msg("Error scanning piped main process's stderr")
	}
	return panicLogs.String()
}

func HandlePanic(l zerolog.Logger) {
	r := recover()
	if r == nil {
		return
	}
	l.Fatal().
		Caller().
		Str("error", fmt.Sprint(r)).
		Str("stack_trace", string(debug.Stack())).
		Msg("Program panicked and exited")
}

func isJSON(b []byte) bool {
	var js json.RawMessage
	err := json.Unmarshal(b, &js)
	return err == nil && js != nil
}
