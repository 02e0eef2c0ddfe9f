package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the scan screen until the user quits or ctx is canceled.
// bridge must already be registered with the session as an observer.
func Run(ctx context.Context, ctrl Control, bridge *Bridge, backend string, timeout time.Duration) error {
	p := tea.NewProgram(
		NewModel(ctrl, backend, timeout),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	bridge.Attach(p)

	_, err := p.Run()
	bridge.Close()

	if err == nil || (errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil) {
		return nil
	}
	return fmt.Errorf("failed to run TUI: %w", err)
}
