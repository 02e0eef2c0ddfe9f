package radio

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/btscan/internal/config"
	"github.com/muurk/btscan/internal/discovery"
	"github.com/muurk/btscan/internal/logging"
	"github.com/muurk/btscan/internal/session"
)

// eventBuffer is the sighting channel capacity of every backend.
const eventBuffer = 64

// Backend bundles the collaborators a session.Controller needs.
type Backend struct {
	Name       string
	Adapter    session.AdapterGate
	Permission session.PermissionGate
	Source     session.DiscoverySource

	close func() error
}

// Close releases the radio. It is safe to call on every backend.
func (b *Backend) Close() error {
	if b.close == nil {
		return b.Source.Cancel()
	}
	return b.close()
}

// SessionOptions fills the collaborator fields of session.Options.
func (b *Backend) SessionOptions(cfg *config.Config) (session.Options, error) {
	dedup, err := cfg.DedupPolicy()
	if err != nil {
		return session.Options{}, err
	}
	return session.Options{
		Adapter:    b.Adapter,
		Permission: b.Permission,
		Source:     b.Source,
		Timeout:    cfg.Scan.Timeout,
		Dedup:      dedup,
	}, nil
}

// Open builds the backend selected by cfg.Scan.Backend. The asker answers
// scan consent and adapter power questions; it may be nil, in which case
// those requests are refused.
func Open(cfg *config.Config, asker Asker) (*Backend, error) {
	consent := NewConsentGate(asker, cfg.Scan.RequireConsent)

	var b *Backend
	switch cfg.Scan.Backend {
	case config.BackendBlueZ:
		bz := NewBlueZ(cfg.Scan.Adapter, asker)
		b = &Backend{Adapter: bz, Source: bz, close: bz.Close}

	case config.BackendBLE:
		ble := NewBLE()
		b = &Backend{Adapter: ble, Source: ble}

	case config.BackendMDNS:
		src := discovery.NewMDNSSource(cfg.MDNS.Service, cfg.MDNS.Domain)
		b = &Backend{Adapter: StaticAdapter{}, Source: src}

	case config.BackendSim:
		sim := NewSim(cfg.Sim.Devices, cfg.Sim.Interval)
		b = &Backend{Adapter: StaticAdapter{}, Source: sim}

	default:
		return nil, fmt.Errorf("unknown backend %q (expected one of %v)", cfg.Scan.Backend, config.Backends)
	}

	b.Name = cfg.Scan.Backend
	b.Permission = consent
	logging.Debug("Radio backend opened",
		zap.String("backend", b.Name),
		zap.Bool("require_consent", cfg.Scan.RequireConsent),
	)
	return b, nil
}
