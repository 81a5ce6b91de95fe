package normalize

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strings"
)

// Debug prints every stderr line of child processes.
var Debug = false

type Cmd struct {
	prefix string
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.ReadCloser
	// receives the last stderr line(s) once stderr is closed
	stderrCh chan []string
	closed   bool
}

func (cmd *Cmd) Stdout() io.ReadCloser {
	return cmd.stdout
}

type CmdError struct {
	ExitError error
	Lines     []string
}

func (e CmdError) Error() string {
	var linesPart string
	if len(e.Lines) > 0 {
		linesPart = fmt.Sprintf(" (%s)", e.Lines[len(e.Lines)-1])
	}
	return fmt.Sprintf("exit error: %v", e.ExitError) + linesPart
}

func (e CmdError) Unwrap() error {
	return e.ExitError
}

// Wait waits for the process to exit. It must be called exactly once.
func (cmd *Cmd) Wait() error {
	if cmd.closed {
		panic(fmt.Errorf("closed twice"))
	}
	cmd.closed = true
	var lastLines []string
	if cmd.stderrCh != nil {
		lastLines = <-cmd.stderrCh
	}
	err := cmd.cmd.Wait()
	if err != nil {
		myerr := CmdError{
			ExitError: err,
			Lines:     lastLines,
		}
		log.Printf("[%s] %v", cmd.prefix, myerr.Error())
		return myerr
	}
	return nil
}

func (cmd *Cmd) readStderr(allLines bool) {
	rd := bufio.NewReader(cmd.stderr)
	var lastLines []string
	for {
		line, err := rd.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			if allLines {
				lastLines = append(lastLines, line)
			} else {
				lastLines = []string{line}
			}
			if Debug {
				log.Printf("[%s] %s", cmd.prefix, line)
			}
		}
		if err != nil {
			break
		}
	}
	cmd.stderrCh <- lastLines
}

type CommandOptions struct {
	NoStdout bool
	// Whether to keep not just the last stderr line, but all lines, in case of error.
	AllStderrLines bool
}

// Command starts a child process bound to ctx.
// The caller must call Wait, after draining Stdout if it was requested.
func Command(ctx context.Context, prefix string, opts CommandOptions, command string, args ...string) (*Cmd, error) {
	log.Printf("[util] %s %v", command, args)
	cmd := exec.CommandContext(ctx, command, args...)
	var stdout io.ReadCloser
	if !opts.NoStdout {
		var err error
		stdout, err = cmd.StdoutPipe()
		if err != nil {
			return nil, err
		}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	mycmd := &Cmd{
		prefix:   prefix,
		cmd:      cmd,
		stdout:   stdout,
		stderr:   stderr,
		stderrCh: make(chan []string, 1),
	}
	go mycmd.readStderr(opts.AllStderrLines)
	return mycmd, nil
}

// Output runs the command and returns its stdout.
func Output(ctx context.Context, prefix string, command string, args ...string) ([]byte, error) {
	cmd, err := Command(ctx, prefix, CommandOptions{}, command, args...)
	if err != nil {
		return nil, err
	}
	bytes, readErr := io.ReadAll(cmd.Stdout())
	if err := cmd.Wait(); err != nil {
		return nil, err
	}
	if readErr != nil {
		return nil, readErr
	}
	return bytes, nil
}
