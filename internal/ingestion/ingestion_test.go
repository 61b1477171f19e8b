package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"wotcache/internal/reputation"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDomainList(t *testing.T) {
	input := `
# seed list
example.com
https://www.example.org/path   # trailing comment
  Example.COM
	
not a domain
example.net`

	got, err := ParseDomainList(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"example.com",
		"https://www.example.org/path",
		"not a domain",
		"example.net",
	}, got)
}

func TestReadDomainList_Missing(t *testing.T) {
	_, err := ReadDomainList(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

type fakeWarmer struct {
	mu       sync.Mutex
	seen     map[string]int
	inFlight atomic.Int32
	peak     atomic.Int32
	fail     map[string]error
	delay    time.Duration
}

func newFakeWarmer() *fakeWarmer {
	return &fakeWarmer{seen: map[string]int{}, fail: map[string]error{}}
}

func (f *fakeWarmer) GetOrRefresh(ctx context.Context, input string) (*reputation.Record, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}

	f.mu.Lock()
	f.seen[input]++
	f.mu.Unlock()

	if err, ok := f.fail[input]; ok {
		return nil, err
	}
	return &reputation.Record{Domain: input}, nil
}

func (f *fakeWarmer) count(input string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen[input]
}

func testLogger() *pterm.Logger {
	return pterm.DefaultLogger.WithLevel(pterm.LogLevelError)
}

func TestPrewarmer_Warm(t *testing.T) {
	warmer := newFakeWarmer()
	warmer.delay = 5 * time.Millisecond
	warmer.fail["bad input"] = &reputation.InvalidDomainError{Input: "bad input"}
	warmer.fail["down.com"] = &reputation.FetchError{Domain: "down.com", Err: errors.New("timeout")}

	inputs := []string{"a.com", "b.com", "c.com", "d.com", "e.com", "bad input", "down.com"}
	p := NewPrewarmer(warmer, testLogger(), 2)

	result, err := p.Warm(context.Background(), inputs)
	require.NoError(t, err)
	assert.Equal(t, 7, result.Total)
	assert.Equal(t, 5, result.Warmed)
	assert.Equal(t, 1, result.Invalid)
	assert.Equal(t, 1, result.Failed)
	assert.LessOrEqual(t, warmer.peak.Load(), int32(2))

	for _, in := range inputs {
		assert.Equal(t, 1, warmer.count(in), in)
	}
}

func TestPrewarmer_WarmCancelled(t *testing.T) {
	warmer := newFakeWarmer()
	warmer.delay = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPrewarmer(warmer, testLogger(), 1).Warm(ctx, []string{"a.com", "b.com"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPrewarmer_WarmFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "domains.txt")
	require.NoError(t, os.WriteFile(path, []byte("example.com\nexample.org\n"), 0o644))

	warmer := newFakeWarmer()
	result, err := NewPrewarmer(warmer, testLogger(), 4).WarmFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Warmed)
}

func TestPrewarmer_WatchReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "domains.txt")
	require.NoError(t, os.WriteFile(path, []byte("example.com\n"), 0o644))

	warmer := newFakeWarmer()
	p := NewPrewarmer(warmer, testLogger(), 2)
	p.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Watch(ctx, path) }()

	require.Eventually(t, func() bool { return warmer.count("example.com") == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("example.com\nexample.net\n"), 0o644))
	require.Eventually(t, func() bool { return warmer.count("example.net") >= 1 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
