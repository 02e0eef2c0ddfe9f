package radio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/muurk/btscan/internal/logging"
	"github.com/muurk/btscan/internal/session"
)

// ErrNotInteractive is returned when a question needs a terminal and none is attached.
var ErrNotInteractive = errors.New("radio: no interactive terminal to ask")

// Asker puts a yes/no question to the user. Ask may block until answered.
type Asker interface {
	Ask(ctx context.Context, question string) (bool, error)
}

// AskFunc adapts a function to Asker.
type AskFunc func(ctx context.Context, question string) (bool, error)

// Ask implements Asker
func (f AskFunc) Ask(ctx context.Context, question string) (bool, error) {
	return f(ctx, question)
}

// Always answers every question with the same value without asking.
func Always(answer bool) Asker {
	return AskFunc(func(context.Context, string) (bool, error) {
		return answer, nil
	})
}

// TerminalAsker asks on a terminal and reads a y/N answer.
type TerminalAsker struct {
	In  *os.File
	Out io.Writer
}

// NewTerminalAsker asks on stdin and stdout.
func NewTerminalAsker() *TerminalAsker {
	return &TerminalAsker{In: os.Stdin, Out: os.Stdout}
}

// Ask prints the question and waits for a line of input or ctx cancellation.
func (a *TerminalAsker) Ask(ctx context.Context, question string) (bool, error) {
	if !term.IsTerminal(int(a.In.Fd())) {
		return false, ErrNotInteractive
	}

	fmt.Fprintf(a.Out, "%s [y/N] ", question)

	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := bufio.NewReader(a.In).ReadString('\n')
		ch <- answer{line, err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(a.Out)
		return false, ctx.Err()
	case ans := <-ch:
		if ans.err != nil && ans.line == "" {
			return false, fmt.Errorf("read answer: %w", ans.err)
		}
		return parseYes(ans.line), nil
	}
}

func parseYes(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// ConsentGate is a PermissionGate backed by asking the user once.
// A granted answer is remembered for the life of the gate.
type ConsentGate struct {
	asker   Asker
	granted atomic.Bool
}

const consentQuestion = "Allow btscan to scan for nearby devices?"

// NewConsentGate creates a gate. When required is false the capability is
// granted up front and the asker is never used.
func NewConsentGate(asker Asker, required bool) *ConsentGate {
	g := &ConsentGate{asker: asker}
	if !required {
		g.granted.Store(true)
	}
	return g
}

// HasCapability implements session.PermissionGate
func (g *ConsentGate) HasCapability() bool {
	return g.granted.Load()
}

// RequestCapability implements session.PermissionGate
func (g *ConsentGate) RequestCapability(ctx context.Context) (session.PermissionResult, error) {
	if g.asker == nil {
		return session.PermissionDenied, nil
	}
	ok, err := g.asker.Ask(ctx, consentQuestion)
	if err != nil {
		return session.PermissionDenied, err
	}
	if !ok {
		logging.Info("Scan permission refused by user")
		return session.PermissionDenied, nil
	}
	g.granted.Store(true)
	logging.Debug("Scan permission granted", zap.String("question", consentQuestion))
	return session.PermissionGranted, nil
}
