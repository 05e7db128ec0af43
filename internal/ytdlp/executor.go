package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// Executor abstracts command execution for testability.
//
// Run starts binary and calls onLine for every line the process writes to
// stdout or stderr, in order. Cancellation of ctx is checked before each line
// is delivered and terminates the whole process tree, so a cancelled Run
// returns within one line of output (or immediately when the process is
// silent). A non-zero exit is reported as *ExitError.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// ExitError reports a process that ran to completion with a non-zero status.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

const maxLineBytes = 1 << 20

type commandExecutor struct {
	charset encoding.Encoding
}

func newCommandExecutor(outputEncoding string) commandExecutor {
	if strings.EqualFold(outputEncoding, "gbk") {
		return commandExecutor{charset: simplifiedchinese.GBK}
	}
	return commandExecutor{}
}

func (e commandExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cmd := exec.Command(binary, args...) //nolint:gosec
	setProcessGroup(cmd)

	// One pipe for both streams keeps stderr lines interleaved with stdout.
	reader, writer, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("output pipe: %w", err)
	}
	defer reader.Close()
	cmd.Stdout = writer
	cmd.Stderr = writer

	if err := cmd.Start(); err != nil {
		_ = writer.Close()
		return fmt.Errorf("start %s: %w", binary, err)
	}
	_ = writer.Close()

	stop := context.AfterFunc(ctx, func() {
		killProcessGroup(cmd)
	})
	defer stop()

	var src io.Reader = reader
	if e.charset != nil {
		src = transform.NewReader(reader, e.charset.NewDecoder())
	}
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	scanner.Split(scanTerminalLines)

	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := strings.TrimRight(scanner.Text(), " \t")
		if line == "" || onLine == nil {
			continue
		}
		onLine(line)
	}
	scanErr := scanner.Err()

	if err := ctx.Err(); err != nil {
		killProcessGroup(cmd)
		_ = cmd.Wait()
		return err
	}
	if scanErr != nil {
		killProcessGroup(cmd)
		_ = cmd.Wait()
		return fmt.Errorf("read output: %w", scanErr)
	}

	waitErr := cmd.Wait()
	if waitErr == nil {
		return nil
	}
	killProcessGroup(cmd)
	if err := ctx.Err(); err != nil {
		return err
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return &ExitError{Code: exitErr.ExitCode()}
	}
	return fmt.Errorf("wait %s: %w", binary, waitErr)
}

// scanTerminalLines splits on \n, \r, or \r\n so carriage-return progress
// redraws arrive as separate lines.
func scanTerminalLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n' {
			return i + 2, data[:i], nil
		}
		if data[i] == '\r' && i+1 == len(data) && !atEOF {
			// Wait for the next byte to tell \r from \r\n.
			return 0, nil, nil
		}
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
