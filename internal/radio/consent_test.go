package radio

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/muurk/btscan/internal/session"
)

func TestConsentGate(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name       string
		asker      Asker
		required   bool
		wantBefore bool
		want       session.PermissionResult
		wantErr    error
		wantAfter  bool
	}{
		{"not required", nil, false, true, session.PermissionDenied, nil, true},
		{"no asker", nil, true, false, session.PermissionDenied, nil, false},
		{"user agrees", Always(true), true, false, session.PermissionGranted, nil, true},
		{"user refuses", Always(false), true, false, session.PermissionDenied, nil, false},
		{"asker fails", AskFunc(func(context.Context, string) (bool, error) { return false, boom }), true, false, session.PermissionDenied, boom, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewConsentGate(tt.asker, tt.required)
			if g.HasCapability() != tt.wantBefore {
				t.Fatalf("HasCapability() before = %v, want %v", g.HasCapability(), tt.wantBefore)
			}
			if tt.wantBefore {
				return
			}

			got, err := g.RequestCapability(context.Background())
			if got != tt.want {
				t.Errorf("RequestCapability() = %v, want %v", got, tt.want)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("RequestCapability() error = %v, want %v", err, tt.wantErr)
			}
			if g.HasCapability() != tt.wantAfter {
				t.Errorf("HasCapability() after = %v, want %v", g.HasCapability(), tt.wantAfter)
			}
		})
	}
}

func TestConsentAsksQuestion(t *testing.T) {
	var asked string
	g := NewConsentGate(AskFunc(func(_ context.Context, q string) (bool, error) {
		asked = q
		return true, nil
	}), true)

	if _, err := g.RequestCapability(context.Background()); err != nil {
		t.Fatal(err)
	}
	if asked != consentQuestion {
		t.Errorf("asked %q, want %q", asked, consentQuestion)
	}
}

func TestParseYes(t *testing.T) {
	tests := map[string]bool{
		"y\n":     true,
		"Y":       true,
		" yes ":   true,
		"YES\r\n": true,
		"n":       false,
		"":        false,
		"yep":     false,
	}
	for in, want := range tests {
		if got := parseYes(in); got != want {
			t.Errorf("parseYes(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTerminalAskerNeedsTerminal(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	a := &TerminalAsker{In: r, Out: w}
	if _, err := a.Ask(context.Background(), "ok?"); !errors.Is(err, ErrNotInteractive) {
		t.Errorf("Ask() on a pipe = %v, want ErrNotInteractive", err)
	}
}

func TestStaticAdapter(t *testing.T) {
	var a StaticAdapter
	if !a.Available() || !a.Enabled() {
		t.Error("StaticAdapter should be available and enabled")
	}
	if res, err := a.RequestEnable(context.Background()); res != session.EnableGranted || err != nil {
		t.Errorf("RequestEnable() = %v, %v", res, err)
	}
}
