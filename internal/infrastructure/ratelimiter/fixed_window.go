package ratelimiter

import (
	"net/http"
	"sync"
	"time"
)

// FixedWindow allows up to limit requests per source key in each aligned
// window. Cheaper than the token bucket but bursts at window edges.
type FixedWindow struct {
	counts          sync.Map // string -> *windowData
	limit           int
	window          time.Duration
	sourceHeaderKey string
	now             func() time.Time
	cleanupTick     *time.Ticker
	done            chan struct{}
	closeOnce       sync.Once
}

type windowData struct {
	mu      sync.Mutex
	count   int
	resetAt time.Time
}

type FixedWindowOptions struct {
	Limit           int
	Window          time.Duration
	SourceHeaderKey string
	Clock           func() time.Time
}

func NewFixedWindow(options FixedWindowOptions) *FixedWindow {
	if options.Window <= 0 {
		options.Window = time.Second
	}
	if options.Clock == nil {
		options.Clock = time.Now
	}

	rl := &FixedWindow{
		limit:           options.Limit,
		window:          options.Window,
		sourceHeaderKey: options.SourceHeaderKey,
		now:             options.Clock,
		cleanupTick:     time.NewTicker(options.Window),
		done:            make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *FixedWindow) data(sourceKey string) *windowData {
	val, _ := rl.counts.LoadOrStore(sourceKey, &windowData{})
	return val.(*windowData)
}

func (rl *FixedWindow) Allow(sourceKey string) bool {
	now := rl.now()
	data := rl.data(sourceKey)

	data.mu.Lock()
	defer data.mu.Unlock()

	if !now.Before(data.resetAt) {
		data.count = 0
		data.resetAt = now.Truncate(rl.window).Add(rl.window)
	}

	if data.count >= rl.limit {
		return false
	}
	data.count++
	return true
}

func (rl *FixedWindow) Remaining(sourceKey string) int {
	now := rl.now()
	data := rl.data(sourceKey)

	data.mu.Lock()
	defer data.mu.Unlock()

	if !now.Before(data.resetAt) {
		return rl.limit
	}
	return max(rl.limit-data.count, 0)
}

func (rl *FixedWindow) MaxBurst() int {
	return rl.limit
}

func (rl *FixedWindow) SourceKey(r *http.Request) string {
	return sourceKey(r, rl.sourceHeaderKey)
}

func (rl *FixedWindow) startCleanup() {
	for {
		select {
		case <-rl.cleanupTick.C:
			rl.cleanup()
		case <-rl.done:
			return
		}
	}
}

func (rl *FixedWindow) cleanup() {
	now := rl.now()
	rl.counts.Range(func(key, value any) bool {
		data := value.(*windowData)
		data.mu.Lock()
		expired := !now.Before(data.resetAt)
		data.mu.Unlock()
		if expired {
			rl.counts.Delete(key)
		}
		return true
	})
}

func (rl *FixedWindow) Close() error {
	rl.closeOnce.Do(func() {
		close(rl.done)
		rl.cleanupTick.Stop()
	})
	return nil
}
