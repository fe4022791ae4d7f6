package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"audiomason/internal/services"
)

// stdinInteractive reports whether prompts can reach an operator.
func stdinInteractive() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// terminalPrompter asks questions on out and reads answers from in. A
// canceled context or a closed input aborts the run.
type terminalPrompter struct {
	out   io.Writer
	lines chan readResult
}

type readResult struct {
	line string
	err  error
}

func newTerminalPrompter(in io.Reader, out io.Writer) *terminalPrompter {
	p := &terminalPrompter{out: out, lines: make(chan readResult)}
	go func() {
		reader := bufio.NewReader(in)
		for {
			line, err := reader.ReadString('\n')
			p.lines <- readResult{line: strings.TrimRight(line, "\r\n"), err: err}
			if err != nil {
				return
			}
		}
	}()
	return p
}

func (p *terminalPrompter) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return "", services.Wrap(services.ErrAborted, "prompt", "read", "interrupted", ctx.Err())
	case res := <-p.lines:
		if res.err != nil && res.line == "" {
			return "", services.Wrap(services.ErrAborted, "prompt", "read", "input closed", res.err)
		}
		return res.line, nil
	}
}

func (p *terminalPrompter) Ask(ctx context.Context, question, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", question, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", question)
	}
	line, err := p.readLine(ctx)
	if err != nil {
		return "", err
	}
	if line = strings.TrimSpace(line); line == "" {
		return def, nil
	}
	return line, nil
}

func (p *terminalPrompter) Confirm(ctx context.Context, question string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	for {
		fmt.Fprintf(p.out, "%s [%s]: ", question, hint)
		line, err := p.readLine(ctx)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(p.out, "Please answer y or n.")
	}
}
