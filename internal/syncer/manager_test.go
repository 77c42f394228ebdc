package syncer_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/divoomctl/internal/device"
	"codeberg.org/mutker/divoomctl/internal/history"
	"codeberg.org/mutker/divoomctl/internal/hostmon"
	"codeberg.org/mutker/divoomctl/internal/settings"
	"codeberg.org/mutker/divoomctl/internal/syncer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu            sync.Mutex
	lcdInfoCalls  int
	activateCalls int
	activateTimes []time.Time
	pushCalls     int
	pushed        [][]string
	pushScreens   []int

	// activateFailures is the number of leading Activate calls that fail;
	// negative means fail forever.
	activateFailures int
	pushErr          error
	lcdInfoErr       map[string]error

	// activateGate, when set, parks every Activate call until closed
	activateGate chan struct{}
}

func (c *fakeClient) Discover(_ context.Context) ([]device.Device, error) {
	return nil, nil
}

func (c *fakeClient) GetLcdInfo(_ context.Context, address string) (*device.LcdInfoResponse, error) {
	c.mu.Lock()
	c.lcdInfoCalls++
	c.mu.Unlock()

	if err := c.lcdInfoErr[address]; err != nil {
		return nil, err
	}

	return &device.LcdInfoResponse{
		DeviceID: 300000001,
		IndependenceList: []device.LcdIndependenceInfo{
			{LcdIndependence: 7, LcdList: []device.LcdInfo{{LcdClockID: 0}, {LcdClockID: 0}}},
		},
	}, nil
}

func (c *fakeClient) Activate(_ context.Context, _ string, _, _ int64, _ int) error {
	c.mu.Lock()
	c.activateCalls++
	c.activateTimes = append(c.activateTimes, time.Now())
	gate := c.activateGate
	fail := c.activateFailures < 0 || c.activateCalls <= c.activateFailures
	c.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if fail {
		return context.DeadlineExceeded
	}

	return nil
}

func (c *fakeClient) Push(_ context.Context, _ string, screenIndex int, values []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pushCalls++
	c.pushed = append(c.pushed, values)
	c.pushScreens = append(c.pushScreens, screenIndex)

	return c.pushErr
}

func (c *fakeClient) counts() (activate, push int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.activateCalls, c.pushCalls
}

type staticProvider struct{}

func (staticProvider) GetMetrics(ctx context.Context) (*hostmon.SystemMetrics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	temp := 61.0

	return &hostmon.SystemMetrics{
		CPUUsage:       42.5,
		CPUTemperature: &temp,
		MemoryTotal:    1000,
		MemoryUsed:     500,
	}, nil
}

type memStore struct {
	mu   sync.Mutex
	data map[string]settings.Settings
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]settings.Settings)}
}

func (s *memStore) Save(address string, v settings.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[address] = v

	return nil
}

func (s *memStore) Load(address string) (*settings.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.data[address]; ok {
		return &v, nil
	}

	return nil, nil
}

func (s *memStore) All() (map[string]settings.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]settings.Settings, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}

	return out, nil
}

func testConfig() syncer.Config {
	return syncer.Config{
		PushInterval: 10 * time.Millisecond,
		RetryBackoff: time.Millisecond,
		MaxAttempts:  4,
	}
}

func newManager(t *testing.T, client device.Client, store syncer.Store) *syncer.Manager {
	t.Helper()

	collector, err := history.NewService(history.DefaultConfig())
	require.NoError(t, err)

	return syncer.NewManager(testConfig(), client, staticProvider{}, store, collector)
}

func waitForState(t *testing.T, m *syncer.Manager, address string, want syncer.State) {
	t.Helper()

	require.Eventually(t, func() bool {
		return m.Status(address).State == want
	}, time.Second, 2*time.Millisecond, "device %s never reached %s", address, want)
}

func TestStartActivatesAndPushes(t *testing.T) {
	client := &fakeClient{}
	m := newManager(t, client, newMemStore())
	defer m.StopAll()

	require.NoError(t, m.Start(context.Background(), "192.168.1.10", 1))

	waitForState(t, m, "192.168.1.10", syncer.StateActive)
	require.Eventually(t, func() bool {
		_, push := client.counts()
		return push >= 2
	}, time.Second, 2*time.Millisecond)

	client.mu.Lock()
	defer client.mu.Unlock()
	require.NotEmpty(t, client.pushed)
	assert.Len(t, client.pushed[0], 6)
	assert.Equal(t, "43%", client.pushed[0][0])
}

func TestStartRejectsNegativeScreen(t *testing.T) {
	m := newManager(t, &fakeClient{}, newMemStore())

	require.Error(t, m.Start(context.Background(), "192.168.1.10", -1))
	assert.False(t, m.IsRunning("192.168.1.10"))
}

func TestStartReplacesExistingLoop(t *testing.T) {
	client := &fakeClient{}
	m := newManager(t, client, newMemStore())
	defer m.StopAll()

	require.NoError(t, m.Start(context.Background(), "192.168.1.10", 0))
	waitForState(t, m, "192.168.1.10", syncer.StateActive)

	require.NoError(t, m.Start(context.Background(), "192.168.1.10", 1))
	waitForState(t, m, "192.168.1.10", syncer.StateActive)

	assert.True(t, m.IsRunning("192.168.1.10"))

	m.Stop("192.168.1.10")
	assert.False(t, m.IsRunning("192.168.1.10"))
	assert.Equal(t, syncer.StateIdle, m.Status("192.168.1.10").State)
}

func TestStopUnknownAddressIsNoop(t *testing.T) {
	m := newManager(t, &fakeClient{}, newMemStore())

	m.Stop("10.0.0.1")
	assert.Equal(t, syncer.StateIdle, m.Status("10.0.0.1").State)
}

func TestActivationExhaustsAttempts(t *testing.T) {
	client := &fakeClient{activateFailures: -1}
	m := newManager(t, client, newMemStore())

	require.NoError(t, m.Start(context.Background(), "192.168.1.10", 0))
	waitForState(t, m, "192.168.1.10", syncer.StateFailed)

	activate, push := client.counts()
	assert.Equal(t, 4, activate, "exactly MaxAttempts activations")
	assert.Zero(t, push, "no pushes after failed activation")
	assert.False(t, m.IsRunning("192.168.1.10"))
}

func TestActivationRecoversWithinAttempts(t *testing.T) {
	client := &fakeClient{activateFailures: 2}
	m := newManager(t, client, newMemStore())
	defer m.StopAll()

	require.NoError(t, m.Start(context.Background(), "192.168.1.10", 0))
	waitForState(t, m, "192.168.1.10", syncer.StateActive)

	activate, _ := client.counts()
	assert.Equal(t, 3, activate)
}

func TestActivationAttemptsSpacedByBackoff(t *testing.T) {
	client := &fakeClient{activateFailures: -1}
	collector, err := history.NewService(history.DefaultConfig())
	require.NoError(t, err)

	backoff := 25 * time.Millisecond
	cfg := syncer.Config{
		PushInterval: 10 * time.Millisecond,
		RetryBackoff: backoff,
		MaxAttempts:  4,
	}
	m := syncer.NewManager(cfg, client, staticProvider{}, newMemStore(), collector)

	require.NoError(t, m.Start(context.Background(), "192.168.1.10", 0))
	waitForState(t, m, "192.168.1.10", syncer.StateFailed)

	client.mu.Lock()
	times := append([]time.Time(nil), client.activateTimes...)
	client.mu.Unlock()

	require.Len(t, times, 4)
	for i := 1; i < len(times); i++ {
		assert.GreaterOrEqual(t, times[i].Sub(times[i-1]), backoff,
			"attempt %d fired before the backoff elapsed", i+1)
	}
}

func waitForActivateCalls(t *testing.T, client *fakeClient, want int) {
	t.Helper()

	require.Eventually(t, func() bool {
		activate, _ := client.counts()
		return activate >= want
	}, time.Second, 2*time.Millisecond)
}

func TestStaleActivationAfterStopMutatesNothing(t *testing.T) {
	gate := make(chan struct{})
	client := &fakeClient{activateGate: gate}
	m := newManager(t, client, newMemStore())

	require.NoError(t, m.Start(context.Background(), "192.168.1.10", 0))
	waitForActivateCalls(t, client, 1)

	m.Stop("192.168.1.10")
	assert.Equal(t, syncer.StateIdle, m.Status("192.168.1.10").State)

	// Release the parked activation of the stopped loop; its late success
	// must not bring the device back to life
	close(gate)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, syncer.StateIdle, m.Status("192.168.1.10").State)
	assert.False(t, m.IsRunning("192.168.1.10"))

	_, push := client.counts()
	assert.Zero(t, push, "a stopped loop must not push after its activation lands")
}

func TestStaleCompletionDoesNotCorruptReplacementLoop(t *testing.T) {
	gate := make(chan struct{})
	client := &fakeClient{activateGate: gate}
	m := newManager(t, client, newMemStore())
	defer m.StopAll()

	require.NoError(t, m.Start(context.Background(), "192.168.1.10", 0))
	waitForActivateCalls(t, client, 1)

	// Replace the loop while the first activation is still in flight
	m.Stop("192.168.1.10")
	require.NoError(t, m.Start(context.Background(), "192.168.1.10", 1))
	waitForActivateCalls(t, client, 2)

	close(gate)

	waitForState(t, m, "192.168.1.10", syncer.StateActive)
	require.Eventually(t, func() bool {
		_, push := client.counts()
		return push >= 1
	}, time.Second, 2*time.Millisecond)

	// The old loop's completion has long landed by now; the replacement
	// must still own the registry entry
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, syncer.StateActive, m.Status("192.168.1.10").State)
	assert.True(t, m.IsRunning("192.168.1.10"))

	client.mu.Lock()
	screens := append([]int(nil), client.pushScreens...)
	client.mu.Unlock()

	require.NotEmpty(t, screens)
	for _, screen := range screens {
		assert.Equal(t, 1, screen, "only the replacement loop's screen may be pushed")
	}
}

func TestPushFailureKeepsLoopRunning(t *testing.T) {
	client := &fakeClient{pushErr: context.DeadlineExceeded}
	m := newManager(t, client, newMemStore())
	defer m.StopAll()

	require.NoError(t, m.Start(context.Background(), "192.168.1.10", 0))
	waitForState(t, m, "192.168.1.10", syncer.StateActive)

	require.Eventually(t, func() bool {
		_, push := client.counts()
		return push >= 3
	}, time.Second, 2*time.Millisecond, "loop must keep pushing through failures")
	assert.Equal(t, syncer.StateActive, m.Status("192.168.1.10").State)
}

func TestLayoutQueryFailureConsumesAttempts(t *testing.T) {
	client := &fakeClient{lcdInfoErr: map[string]error{
		"192.168.1.10": context.DeadlineExceeded,
	}}
	m := newManager(t, client, newMemStore())

	require.NoError(t, m.Start(context.Background(), "192.168.1.10", 0))
	waitForState(t, m, "192.168.1.10", syncer.StateFailed)

	activate, push := client.counts()
	client.mu.Lock()
	lcdInfo := client.lcdInfoCalls
	client.mu.Unlock()

	assert.Equal(t, 4, lcdInfo, "each attempt re-queries the layout")
	assert.Zero(t, activate)
	assert.Zero(t, push)
}

func TestRestoreAll(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.Save("192.168.1.10", settings.Settings{LcdIndex: 1, Enabled: true}))
	require.NoError(t, store.Save("192.168.1.11", settings.Settings{LcdIndex: 0, Enabled: false}))
	require.NoError(t, store.Save("192.168.1.12", settings.Settings{LcdIndex: 0, Enabled: true}))

	client := &fakeClient{lcdInfoErr: map[string]error{
		"192.168.1.12": context.DeadlineExceeded,
	}}
	m := newManager(t, client, store)
	defer m.StopAll()

	require.NoError(t, m.RestoreAll(context.Background()))

	waitForState(t, m, "192.168.1.10", syncer.StateActive)
	waitForState(t, m, "192.168.1.12", syncer.StateFailed)
	assert.False(t, m.IsRunning("192.168.1.11"), "disabled devices are not restored")
	assert.Equal(t, syncer.StateIdle, m.Status("192.168.1.11").State)
}

func TestDisablePersistsIntentAndStops(t *testing.T) {
	store := newMemStore()
	client := &fakeClient{}
	m := newManager(t, client, store)

	require.NoError(t, m.Start(context.Background(), "192.168.1.10", 2))
	waitForState(t, m, "192.168.1.10", syncer.StateActive)

	require.NoError(t, m.Disable("192.168.1.10"))

	assert.False(t, m.IsRunning("192.168.1.10"))

	saved, err := store.Load("192.168.1.10")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.False(t, saved.Enabled)
	assert.Equal(t, 2, saved.LcdIndex, "screen choice survives disable")
}

func TestEnableStartsLoopAndPersists(t *testing.T) {
	store := newMemStore()
	m := newManager(t, &fakeClient{}, store)
	defer m.StopAll()

	require.NoError(t, m.Enable(context.Background(), "192.168.1.10", 1))
	waitForState(t, m, "192.168.1.10", syncer.StateActive)

	assert.True(t, m.IsRunning("192.168.1.10"))

	saved, err := store.Load("192.168.1.10")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.True(t, saved.Enabled)
	assert.Equal(t, 1, saved.LcdIndex)
}
