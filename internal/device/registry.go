package device

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/c4bridge-core/internal/entity"
)

// DefaultTouchInterval is how stale last_seen may get before an otherwise
// unchanged registration is written again.
const DefaultTouchInterval = time.Minute

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry caches registered devices in memory in front of a Repository.
// Syncs arrive often and rarely change anything, so unchanged registrations
// only reach the database once per touch interval.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Device // by identifier
	cacheMu sync.RWMutex
	logger  Logger

	touchInterval time.Duration
	now           func() time.Time
}

// NewRegistry creates a new device registry backed by repo.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:          repo,
		cache:         make(map[string]*Device),
		logger:        noopLogger{},
		touchInterval: DefaultTouchInterval,
		now:           time.Now,
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all devices from the repository into the cache.
// Call it once on startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[string]*Device, len(devices))
	for i := range devices {
		r.cache[devices[i].Identifier] = devices[i].DeepCopy()
	}

	r.logger.Info("device registry cache refreshed", "count", len(devices))
	return nil
}

// Register records a bridge device. It satisfies entity.DeviceRegistrar.
func (r *Registry) Register(ctx context.Context, info entity.DeviceInfo, deviceType string) error {
	now := r.now().UTC()
	d := &Device{
		BridgeID:      info.BridgeID,
		DeviceID:      info.DeviceID,
		Identifier:    info.Identifier,
		Name:          info.Name,
		Manufacturer:  info.Manufacturer,
		Model:         info.Model,
		SuggestedArea: info.SuggestedArea,
		DeviceType:    deviceType,
		FirstSeen:     now,
		LastSeen:      now,
	}
	if err := d.Validate(); err != nil {
		return err
	}

	r.cacheMu.RLock()
	cached, ok := r.cache[d.Identifier]
	r.cacheMu.RUnlock()

	if ok {
		if cached.sameDescription(d) && now.Sub(cached.LastSeen) < r.touchInterval {
			return nil
		}
		d.FirstSeen = cached.FirstSeen
	}

	if err := r.repo.Upsert(ctx, d); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[d.Identifier] = d.DeepCopy()
	r.cacheMu.Unlock()

	if !ok {
		r.logger.Info("device registered", "identifier", d.Identifier, "name", d.Name)
	}
	return nil
}

// GetDevice returns a registered device by identifier.
// The returned device is a copy; callers can safely modify it.
func (r *Registry) GetDevice(ctx context.Context, identifier string) (*Device, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[identifier]
	r.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}
	return r.repo.GetByIdentifier(ctx, identifier)
}

// ListDevices returns every registered device of bridgeID (all bridges when
// empty), ordered by device id.
func (r *Registry) ListDevices(bridgeID string) []Device {
	r.cacheMu.RLock()
	out := make([]Device, 0, len(r.cache))
	for _, d := range r.cache {
		if bridgeID == "" || d.BridgeID == bridgeID {
			out = append(out, *d.DeepCopy())
		}
	}
	r.cacheMu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].BridgeID != out[j].BridgeID {
			return out[i].BridgeID < out[j].BridgeID
		}
		return out[i].DeviceID < out[j].DeviceID
	})
	return out
}
