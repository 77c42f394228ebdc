package syncer

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/divoomctl/internal/device"
	"codeberg.org/mutker/divoomctl/internal/errors"
	"codeberg.org/mutker/divoomctl/internal/history"
	"codeberg.org/mutker/divoomctl/internal/hostmon"
	"codeberg.org/mutker/divoomctl/internal/logger"
	"codeberg.org/mutker/divoomctl/internal/settings"
)

// task is one device's running sync loop. gen distinguishes the current
// loop from an older one for the same address that has not yet observed
// its cancellation.
type task struct {
	cancel context.CancelFunc
	gen    uint64
}

// Manager owns the per-device sync loops. One loop per device address;
// starting an address that already has a loop replaces it.
type Manager struct {
	cfg      Config
	client   device.Client
	provider hostmon.Provider
	store    Store
	history  history.Collector

	mu     sync.Mutex
	tasks  map[string]*task
	states map[string]Status
	gen    uint64
}

func NewManager(cfg Config, client device.Client, provider hostmon.Provider, store Store, collector history.Collector) *Manager {
	if cfg.PushInterval <= 0 {
		cfg.PushInterval = defaultPushInterval
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}

	return &Manager{
		cfg:      cfg,
		client:   client,
		provider: provider,
		store:    store,
		history:  collector,
		tasks:    make(map[string]*task),
		states:   make(map[string]Status),
	}
}

// Start begins (or restarts) the sync loop for a device. The loop
// activates the telemetry clock with retries and then pushes metrics every
// PushInterval until Stop or context cancellation. Start itself returns
// immediately; progress is observable through Status.
func (m *Manager) Start(ctx context.Context, address string, screenIndex int) error {
	if screenIndex < 0 {
		return errors.New().WithData(ErrScreenOutOfRange, screenIndex)
	}

	m.mu.Lock()
	if old, ok := m.tasks[address]; ok {
		old.cancel()
	}
	m.gen++
	gen := m.gen

	taskCtx, cancel := context.WithCancel(ctx)
	m.tasks[address] = &task{cancel: cancel, gen: gen}
	m.states[address] = Status{State: StateActivating}
	m.mu.Unlock()

	if err := m.store.Save(address, settings.Settings{LcdIndex: screenIndex, Enabled: true}); err != nil {
		logger.Warn().Str("address", address).Err(err).Msg("Failed to persist sync settings")
	}

	logger.Info().
		Str("address", address).
		Int("screen", screenIndex).
		Msg("Starting device sync")

	go m.run(taskCtx, gen, address, screenIndex)

	return nil
}

// Stop cancels the sync loop for a device. Stopping an address without a
// loop is a no-op.
func (m *Manager) Stop(address string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[address]
	if !ok {
		return
	}

	t.cancel()
	delete(m.tasks, address)
	m.states[address] = Status{State: StateIdle}

	logger.Info().Str("address", address).Msg("Stopped device sync")
}

// StopAll cancels every running sync loop.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for address, t := range m.tasks {
		t.cancel()
		delete(m.tasks, address)
		m.states[address] = Status{State: StateIdle}
	}
}

// Status reports the sync state of a device. Unknown addresses are idle.
func (m *Manager) Status(address string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.states[address]; ok {
		return s
	}

	return Status{State: StateIdle}
}

// IsRunning reports whether the device's push loop is active. A device
// that is still activating, failed or stopped is not running.
func (m *Manager) IsRunning(address string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.tasks[address]

	return ok && m.states[address].State == StateActive
}

// Enable persists the intent to sync a device and begins its loop. It is
// the user-facing toggle counterpart of Disable.
func (m *Manager) Enable(ctx context.Context, address string, screenIndex int) error {
	return m.Start(ctx, address, screenIndex)
}

// Disable stops the device's loop and persists the disabled intent,
// keeping the chosen screen so a later enable reuses it.
func (m *Manager) Disable(address string) error {
	m.Stop(address)

	screenIndex := 0
	if existing, err := m.store.Load(address); err == nil && existing != nil {
		screenIndex = existing.LcdIndex
	}

	return m.store.Save(address, settings.Settings{LcdIndex: screenIndex, Enabled: false})
}

// RestoreAll starts a sync loop for every device whose persisted settings
// are enabled. Loops start concurrently; a device that fails activation
// does not affect the others.
func (m *Manager) RestoreAll(ctx context.Context) error {
	all, err := m.store.All()
	if err != nil {
		return errors.New().Wrap(ErrRestoreFailed, err)
	}

	restored := 0
	for address, s := range all {
		if !s.Enabled {
			continue
		}
		if err := m.Start(ctx, address, s.LcdIndex); err != nil {
			logger.Warn().Str("address", address).Err(err).Msg("Failed to restore device sync")
			continue
		}
		restored++
	}

	logger.Info().Int("devices", restored).Msg("Restored device sync sessions")

	return nil
}

func (m *Manager) run(ctx context.Context, gen uint64, address string, screenIndex int) {
	defer m.finish(gen, address)

	if !m.activateWithRetry(ctx, gen, address, screenIndex) {
		if ctx.Err() == nil {
			logger.Error().Str("address", address).Msg("Activation attempts exhausted")
			m.setState(gen, address, Status{State: StateFailed})
		}
		return
	}

	m.setState(gen, address, Status{State: StateActive})

	// First push right away, then on the ticker. Ticks run in their own
	// goroutines so a slow device cannot stall the loop; the device only
	// ever renders the most recent payload it receives.
	go m.pushTick(ctx, address, screenIndex)

	ticker := time.NewTicker(m.cfg.PushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go m.pushTick(ctx, address, screenIndex)
		}
	}
}

// activateWithRetry runs the activation handshake: query the screen layout,
// then select the telemetry clock on the first independence group. Either
// call failing consumes the attempt; a fixed backoff separates attempts.
// Returns false once attempts are exhausted or the context ends.
func (m *Manager) activateWithRetry(ctx context.Context, gen uint64, address string, screenIndex int) bool {
	for attempt := 1; attempt <= m.cfg.MaxAttempts; attempt++ {
		m.setState(gen, address, Status{State: StateActivating, Attempt: attempt})

		err := m.activate(ctx, address, screenIndex)
		if err == nil {
			logger.Debug().Str("address", address).Int("attempt", attempt).Msg("Telemetry clock activated")
			return true
		}

		logger.Warn().
			Str("address", address).
			Int("attempt", attempt).
			Int("max_attempts", m.cfg.MaxAttempts).
			Err(err).
			Msg("Activation attempt failed")

		if attempt == m.cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(m.cfg.RetryBackoff):
		}
	}

	return false
}

func (m *Manager) activate(ctx context.Context, address string, screenIndex int) error {
	info, err := m.client.GetLcdInfo(ctx, address)
	if err != nil {
		return err
	}
	if len(info.IndependenceList) == 0 {
		return errors.New().WithMessage(ErrScreenOutOfRange, "device reported no screens")
	}

	independence := info.IndependenceList[0].LcdIndependence

	return m.client.Activate(ctx, address, info.DeviceID, independence, screenIndex)
}

func (m *Manager) pushTick(ctx context.Context, address string, screenIndex int) {
	metrics, err := m.provider.GetMetrics(ctx)
	if err != nil {
		logger.Debug().Str("address", address).Err(err).Msg("Skipping push, metrics unavailable")
		return
	}

	err = m.client.Push(ctx, address, screenIndex, FormatPayload(metrics))
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		// A failed push never stops the loop; the next tick retries
		logger.Warn().Str("address", address).Err(err).Msg("Push failed")
	}

	record := &history.PushRecord{
		Timestamp:      time.Now(),
		Address:        address,
		ScreenIndex:    screenIndex,
		CPUUsage:       metrics.CPUUsage,
		CPUTemperature: metrics.CPUTemperature,
		GPUTemperature: metrics.GPUTemperature,
		MemoryUsage:    metrics.MemoryUsagePercent(),
		DiskUsage:      hostmon.MaxDiskUsagePercent(metrics.Disks),
		Success:        err == nil,
	}
	if err := m.history.Record(ctx, record); err != nil {
		logger.Debug().Str("address", address).Err(err).Msg("Failed to record push history")
	}
}

// finish removes the task on loop exit unless a newer loop has already
// replaced it. A failed state survives so callers can observe it.
func (m *Manager) finish(gen uint64, address string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[address]
	if !ok || t.gen != gen {
		return
	}

	delete(m.tasks, address)
	if m.states[address].State != StateFailed {
		m.states[address] = Status{State: StateIdle}
	}
}

// setState updates a device's status only while its loop is still the
// current one.
func (m *Manager) setState(gen uint64, address string, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[address]
	if !ok || t.gen != gen {
		return
	}

	m.states[address] = status
}

