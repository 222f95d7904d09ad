package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"search foo bar", []string{"search", "foo", "bar"}},
		{"  list   all ", []string{"list", "all"}},
		{`new https://x -t "Project X Docs"`, []string{"new", "https://x", "-t", "Project X Docs"}},
		{`mod abcd -d 'it''s'`, []string{"mod", "abcd", "-d", "its"}},
		{`query 'a\b'`, []string{"query", `a\b`}},
		{`say "quote \" inside"`, []string{"say", `quote " inside`}},
		{`a\ b c`, []string{"a b", "c"}},
		{`empty ""`, []string{"empty", ""}},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := Split(tt.line)
			if err != nil {
				t.Fatalf("Split(%q) error: %v", tt.line, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Split(%q) mismatch (-want +got):\n%s", tt.line, diff)
			}
		})
	}
}

func TestSplitUnterminated(t *testing.T) {
	for _, line := range []string{`a "b`, `a 'b`, `a\`} {
		if _, err := Split(line); !errors.Is(err, ErrUnterminatedQuote) {
			t.Errorf("Split(%q): expected ErrUnterminatedQuote, got %v", line, err)
		}
	}
}

type recorder struct {
	calls     [][]string
	refreshes int
	failOn    string
}

func newShell(input string, r *recorder) (*Shell, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	s := &Shell{
		In:     strings.NewReader(input),
		Out:    &out,
		Err:    &errOut,
		Prompt: "bookmarks> ",
		Dispatch: func(args []string) error {
			r.calls = append(r.calls, args)
			if args[0] == r.failOn {
				return errors.New("boom")
			}
			return nil
		},
		Refresh: func() error {
			r.refreshes++
			return nil
		},
	}
	return s, &out, &errOut
}

func TestRunDispatchesUntilExit(t *testing.T) {
	r := &recorder{}
	s, out, _ := newShell("list all\n\nsearch \"x y\"\nexit\nlist tags\n", r)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := [][]string{{"list", "all"}, {"search", "x y"}}
	if diff := cmp.Diff(want, r.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	if r.refreshes != 2 {
		t.Errorf("expected a refresh after each command, got %d", r.refreshes)
	}
	if !strings.Contains(out.String(), "bookmarks> ") {
		t.Error("expected prompt in output")
	}
}

func TestRunKeepsGoingAfterErrors(t *testing.T) {
	r := &recorder{failOn: "bad"}
	s, _, errOut := newShell("bad\nunterminated \"quote\ngood\n", r)

	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(r.calls) != 2 || r.calls[1][0] != "good" {
		t.Errorf("expected bad and good to be dispatched, got %v", r.calls)
	}
	if !strings.Contains(errOut.String(), "boom") || !strings.Contains(errOut.String(), "unterminated quote") {
		t.Errorf("expected errors reported, got %q", errOut.String())
	}
}

func TestRunBuiltins(t *testing.T) {
	r := &recorder{}
	s, out, _ := newShell("refresh\nhelp\nquit\n", r)
	s.Help = func(w io.Writer) {}

	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(r.calls) != 0 {
		t.Errorf("built-ins must not be dispatched: %v", r.calls)
	}
	if r.refreshes != 1 {
		t.Errorf("expected one refresh, got %d", r.refreshes)
	}
	if !strings.Contains(out.String(), "reload bookmarks from disk") {
		t.Error("expected help text")
	}
}

func TestHelpWithArgsIsDispatched(t *testing.T) {
	r := &recorder{}
	s, _, _ := newShell("help search\n", r)
	s.Run(context.Background())
	if diff := cmp.Diff([][]string{{"help", "search"}}, r.calls); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestMarkStaleRefreshesBeforeNextLine(t *testing.T) {
	r := &recorder{}
	s, _, _ := newShell("exit\n", r)
	s.MarkStale()
	s.Run(context.Background())
	if r.refreshes != 1 {
		t.Errorf("expected stale snapshot to be refreshed, got %d refreshes", r.refreshes)
	}
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	r := &recorder{}
	s, _, _ := newShell("list\n", r)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if len(r.calls) != 0 {
		t.Errorf("expected no commands after cancel, got %v", r.calls)
	}
}

func TestRunStopsWhenCanceledWhileWaitingForInput(t *testing.T) {
	r := &recorder{}
	s, _, _ := newShell("", r)
	pr, pw := io.Pipe()
	defer pw.Close()
	s.In = pr

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// Give Run time to block on the empty pipe.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run still blocked after cancel")
	}

	// A line typed after cancellation must not reach Dispatch.
	go pw.Write([]byte("delete abcd -f\n"))
	time.Sleep(50 * time.Millisecond)
	if len(r.calls) != 0 {
		t.Errorf("expected no commands after cancel, got %v", r.calls)
	}
}
