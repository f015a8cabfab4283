package browser

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/playwright-mcp/pkg/tools"
)

func TestManager_LazyInit(t *testing.T) {
	launcher := &fakeLauncher{}
	m := newTestManager(launcher)

	assert.False(t, m.IsInitialized())
	assert.Equal(t, "", m.CurrentURL())
	assert.Equal(t, Viewport{Width: 1920, Height: 1080}, m.ViewportSize())
	assert.Equal(t, 0, launcher.launches())

	page, err := m.GetPage(context.Background())
	require.NoError(t, err)
	require.NotNil(t, page)

	assert.True(t, m.IsInitialized())
	assert.Equal(t, "about:blank", m.CurrentURL())
	assert.Equal(t, 1, launcher.launches())
	assert.Equal(t, 1, m.Launches())
}

func TestManager_ConcurrentGetPageLaunchesOnce(t *testing.T) {
	launcher := &fakeLauncher{delay: 50 * time.Millisecond}
	m := newTestManager(launcher)

	const callers = 16
	pages := make([]Page, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pages[i], errs[i] = m.GetPage(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, pages[0], pages[i])
	}
	assert.Equal(t, 1, launcher.launches())
}

func TestManager_EnsureReadyIsNoOpWhenReady(t *testing.T) {
	launcher := &fakeLauncher{}
	m := newTestManager(launcher)

	require.NoError(t, m.EnsureReady(context.Background()))
	require.NoError(t, m.EnsureReady(context.Background()))
	assert.Equal(t, 1, launcher.launches())
}

func TestManager_CleanupIdempotent(t *testing.T) {
	launcher := &fakeLauncher{}
	m := newTestManager(launcher)

	_, err := m.GetPage(context.Background())
	require.NoError(t, err)
	browser := launcher.lastBrowser()

	require.NoError(t, m.Cleanup())
	assert.False(t, m.IsInitialized())

	require.NoError(t, m.Cleanup())
	assert.False(t, m.IsInitialized())

	assert.Equal(t, 1, browser.closeCalls)
	assert.True(t, browser.page().IsClosed())
}

func TestManager_CleanupBeforeLaunch(t *testing.T) {
	launcher := &fakeLauncher{}
	m := newTestManager(launcher)

	require.NoError(t, m.Cleanup())
	assert.False(t, m.IsInitialized())
	assert.Equal(t, 0, launcher.launches())
}

func TestManager_UsableAfterCleanup(t *testing.T) {
	launcher := &fakeLauncher{}
	m := newTestManager(launcher)

	_, err := m.GetPage(context.Background())
	require.NoError(t, err)
	require.NoError(t, m.Cleanup())

	_, err = m.GetPage(context.Background())
	require.NoError(t, err)
	assert.True(t, m.IsInitialized())
	assert.Equal(t, 2, launcher.launches())
}

func TestManager_Restart(t *testing.T) {
	launcher := &fakeLauncher{}
	m := newTestManager(launcher)

	first, err := m.GetPage(context.Background())
	require.NoError(t, err)
	oldBrowser := launcher.lastBrowser()

	second, err := m.Restart(context.Background())
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.True(t, first.IsClosed())
	assert.False(t, oldBrowser.IsConnected())
	assert.True(t, m.IsInitialized())
	assert.Equal(t, 2, launcher.launches())
}

func TestManager_RecoverRestartsOncePerCrash(t *testing.T) {
	launcher := &fakeLauncher{}
	m := newTestManager(launcher)

	crashed, err := m.GetPage(context.Background())
	require.NoError(t, err)
	launcher.lastBrowser().disconnect()

	const callers = 8
	pages := make([]Page, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			page, err := m.Recover(context.Background(), crashed)
			assert.NoError(t, err)
			pages[i] = page
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 2, launcher.launches())
	for _, page := range pages {
		assert.Same(t, pages[0], page)
		assert.False(t, page.IsClosed())
	}
}

func TestManager_RecoverLivePageRestarts(t *testing.T) {
	launcher := &fakeLauncher{}
	m := newTestManager(launcher)

	page, err := m.GetPage(context.Background())
	require.NoError(t, err)

	replaced, err := m.Recover(context.Background(), page)
	require.NoError(t, err)
	assert.NotSame(t, page, replaced)
	assert.Equal(t, 2, launcher.launches())
}

func TestManager_RelaunchesStalePage(t *testing.T) {
	launcher := &fakeLauncher{}
	m := newTestManager(launcher)

	first, err := m.GetPage(context.Background())
	require.NoError(t, err)

	launcher.lastBrowser().disconnect()
	assert.False(t, m.IsInitialized())

	second, err := m.GetPage(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, 2, launcher.launches())
}

func TestManager_LaunchError(t *testing.T) {
	launcher := &fakeLauncher{launchErr: errors.New("Executable doesn't exist at /ms-playwright/chromium")}
	m := newTestManager(launcher)

	_, err := m.GetPage(context.Background())
	require.Error(t, err)

	kind, _ := Classify(err)
	assert.Equal(t, tools.KindBrowserLaunch, kind)
	assert.False(t, m.IsInitialized())

	// Not retried automatically.
	assert.Equal(t, 1, launcher.launches())
}

func TestManager_LaunchTimeout(t *testing.T) {
	launcher := &fakeLauncher{delay: time.Second}
	opts := DefaultOptions()
	opts.LaunchTimeout = 20 * time.Millisecond
	m := NewManager(launcher, opts)

	start := time.Now()
	_, err := m.GetPage(context.Background())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	kind, _ := Classify(err)
	assert.Equal(t, tools.KindBrowserLaunch, kind)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "timed out")
}

// preparingLauncher has a slow one-time setup step.
type preparingLauncher struct {
	*fakeLauncher
	prepareDelay time.Duration
	prepareErr   error
	prepares     int
}

func (l *preparingLauncher) Prepare(ctx context.Context) error {
	l.prepares++
	select {
	case <-time.After(l.prepareDelay):
		return l.prepareErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestManager_PrepareIsOutsideLaunchTimeout(t *testing.T) {
	launcher := &preparingLauncher{fakeLauncher: &fakeLauncher{}, prepareDelay: 100 * time.Millisecond}
	opts := DefaultOptions()
	opts.LaunchTimeout = 20 * time.Millisecond
	m := NewManager(launcher, opts)

	_, err := m.GetPage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, launcher.prepares)
	assert.Equal(t, 1, launcher.launches())
}

func TestManager_PrepareError(t *testing.T) {
	launcher := &preparingLauncher{fakeLauncher: &fakeLauncher{}, prepareErr: errors.New("download failed")}
	m := NewManager(launcher, DefaultOptions())

	_, err := m.GetPage(context.Background())
	require.Error(t, err)

	kind, _ := Classify(err)
	assert.Equal(t, tools.KindBrowserLaunch, kind)
	assert.Contains(t, err.Error(), "download failed")
	assert.Equal(t, 0, launcher.launches())
}

type countingObserver struct {
	mu                          sync.Mutex
	launched, restarted, closed int
}

func (o *countingObserver) BrowserLaunched(time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.launched++
}

func (o *countingObserver) BrowserRestarted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.restarted++
}

func (o *countingObserver) BrowserClosed() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed++
}

func TestManager_NotifiesObserver(t *testing.T) {
	obs := &countingObserver{}
	m := NewManager(&fakeLauncher{}, DefaultOptions(), WithObserver(obs))

	_, err := m.GetPage(context.Background())
	require.NoError(t, err)
	_, err = m.Restart(context.Background())
	require.NoError(t, err)
	require.NoError(t, m.Cleanup())
	require.NoError(t, m.Cleanup())

	assert.Equal(t, 2, obs.launched)
	assert.Equal(t, 1, obs.restarted)
	assert.Equal(t, 2, obs.closed)
}

func TestManager_DefaultsViewport(t *testing.T) {
	m := NewManager(&fakeLauncher{}, Options{})
	assert.Equal(t, Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}, m.ViewportSize())
}
