package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
)

// ErrUnterminatedQuote is returned by Split for a line with an open quote.
var ErrUnterminatedQuote = errors.New("unterminated quote")

// Shell is a line-oriented command loop. Lines that are not built-ins are
// split into arguments and handed to Dispatch.
type Shell struct {
	In     io.Reader
	Out    io.Writer
	Err    io.Writer
	Prompt string

	// Dispatch runs one command line.
	Dispatch func(args []string) error
	// Refresh reloads the bookmark snapshot. It is called after every
	// dispatched command, on "refresh", and before a line when MarkStale
	// was called since the last reload.
	Refresh func() error
	// Help prints extra help text after the built-in list.
	Help func(w io.Writer)

	stale atomic.Bool
}

// MarkStale asks for a reload before the next line is run. It is safe to call
// from another goroutine.
func (s *Shell) MarkStale() { s.stale.Store(true) }

// Run reads lines until EOF, "exit" or "quit", or until ctx is done. A
// canceled ctx ends the loop even while it waits for input, and a line read
// after cancellation is never run.
func (s *Shell) Run(ctx context.Context) error {
	lines := newLineReader(s.In)
	defer lines.close()

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(s.Out, s.Prompt)

		pending := lines.next()
		var res scanResult
		select {
		case <-ctx.Done():
			fmt.Fprintln(s.Out)
			return nil
		case res = <-pending:
		}
		if !res.ok {
			fmt.Fprintln(s.Out)
			return res.err
		}
		if ctx.Err() != nil {
			return nil
		}

		if s.stale.Swap(false) {
			s.refresh()
		}

		line := strings.TrimSpace(res.line)
		if line == "" {
			continue
		}
		if done := s.runLine(line); done {
			return nil
		}
	}
}

type scanResult struct {
	line string
	ok   bool
	err  error
}

// lineReader scans in a goroutine, one line per request. Input is only
// read while the shell waits at the prompt, so commands that prompt on the
// same reader get their own input.
type lineReader struct {
	reqs    chan struct{}
	results chan scanResult
}

func newLineReader(r io.Reader) *lineReader {
	lr := &lineReader{
		reqs:    make(chan struct{}),
		results: make(chan scanResult, 1),
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	go func() {
		for range lr.reqs {
			ok := scanner.Scan()
			lr.results <- scanResult{line: scanner.Text(), ok: ok, err: scanner.Err()}
			if !ok {
				return
			}
		}
	}()
	return lr
}

// next asks for one more line. It must not be called again before the
// previous result was received.
func (lr *lineReader) next() <-chan scanResult {
	lr.reqs <- struct{}{}
	return lr.results
}

// close lets the goroutine exit once its pending read, if any, returns.
func (lr *lineReader) close() { close(lr.reqs) }

func (s *Shell) runLine(line string) (exit bool) {
	args, err := Split(line)
	if err != nil {
		fmt.Fprintf(s.Err, "error: %v\n", err)
		return false
	}
	if len(args) == 0 {
		return false
	}

	switch args[0] {
	case "exit", "quit", "EOF":
		return true
	case "clear":
		fmt.Fprint(s.Out, "\033[H\033[2J")
		return false
	case "refresh":
		s.refresh()
		return false
	case "help", "?":
		if len(args) == 1 {
			s.printHelp()
			return false
		}
	}

	if s.Dispatch == nil {
		return false
	}
	if err := s.Dispatch(args); err != nil {
		fmt.Fprintf(s.Err, "error: %v\n", err)
	}
	s.refresh()
	return false
}

func (s *Shell) refresh() {
	if s.Refresh == nil {
		return
	}
	s.stale.Store(false)
	if err := s.Refresh(); err != nil {
		fmt.Fprintf(s.Err, "error: refresh failed: %v\n", err)
	}
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.Out, "Shell commands:")
	fmt.Fprintln(s.Out, "  clear     clear the screen")
	fmt.Fprintln(s.Out, "  refresh   reload bookmarks from disk")
	fmt.Fprintln(s.Out, "  exit      leave the shell (also quit, ctrl+d)")
	if s.Help != nil {
		fmt.Fprintln(s.Out)
		s.Help(s.Out)
	}
}

// Split breaks a line into arguments. Whitespace separates arguments; single
// quotes preserve everything literally; double quotes allow \" and \\; a
// backslash outside quotes escapes the next character.
func Split(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inArg   bool
		quote   rune
		escaped bool
	)
	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case quote == '\'':
			if r == '\'' {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case quote == '"':
			switch r {
			case '"':
				quote = 0
			case '\\':
				escaped = true
			default:
				cur.WriteRune(r)
			}
		case r == '\\':
			escaped = true
			inArg = true
		case r == '\'' || r == '"':
			quote = r
			inArg = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteRune(r)
			inArg = true
		}
	}
	if quote != 0 || escaped {
		return nil, ErrUnterminatedQuote
	}
	if inArg {
		args = append(args, cur.String())
	}
	return args, nil
}
