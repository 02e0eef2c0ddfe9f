package radio

import (
	"context"

	"github.com/muurk/btscan/internal/session"
)

// StaticAdapter is an AdapterGate for backends with no radio power state,
// such as mDNS over the network stack or the simulator.
type StaticAdapter struct{}

func (StaticAdapter) Available() bool { return true }

func (StaticAdapter) Enabled() bool { return true }

func (StaticAdapter) RequestEnable(context.Context) (session.EnableResult, error) {
	return session.EnableGranted, nil
}
