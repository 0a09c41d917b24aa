package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aristath/dashboard/internal/clients/dashboard"
)

type fetchResult struct {
	status *dashboard.JobStatus
	err    error
}

// fakeFetcher serves status responses from a function of the call number.
// Calls listed in hold block until released.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   int
	respond func(call int) (*dashboard.JobStatus, error)
	hold    map[int]chan fetchResult
}

func newFakeFetcher(respond func(call int) (*dashboard.JobStatus, error)) *fakeFetcher {
	return &fakeFetcher{respond: respond, hold: make(map[int]chan fetchResult)}
}

func (f *fakeFetcher) holdCall(call int) chan fetchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan fetchResult, 1)
	f.hold[call] = ch
	return ch
}

func (f *fakeFetcher) GetStatus(ctx context.Context) (*dashboard.JobStatus, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	held := f.hold[call]
	respond := f.respond
	f.mu.Unlock()

	if held != nil {
		select {
		case res := <-held:
			return res.status, res.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if respond == nil {
		return nil, nil
	}
	return respond(call)
}

func (f *fakeFetcher) setRespond(respond func(call int) (*dashboard.JobStatus, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.respond = respond
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeJobClient records submissions and serves status reads.
type fakeJobClient struct {
	*fakeFetcher

	mu            sync.Mutex
	submits       []bool
	submitErr     error
	totalBatches  int
	submitStatus  *dashboard.JobStatus
	enabled       bool
	setErr        error
	sets          []bool
	getEnabledErr error
	configured    bool
}

func newFakeJobClient() *fakeJobClient {
	return &fakeJobClient{
		fakeFetcher:  newFakeFetcher(nil),
		totalBatches: 2,
		configured:   true,
	}
}

func (c *fakeJobClient) Submit(ctx context.Context, force bool) (*dashboard.SubmitResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submits = append(c.submits, force)
	if c.submitErr != nil {
		return nil, c.submitErr
	}
	status := c.submitStatus
	if status == nil {
		status = &dashboard.JobStatus{IsRunning: true, StatusMessage: "Starting"}
	}
	return &dashboard.SubmitResult{Status: status.Clone(), TotalBatches: c.totalBatches}, nil
}

func (c *fakeJobClient) Submits() []bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]bool, len(c.submits))
	copy(out, c.submits)
	return out
}

func (c *fakeJobClient) GetRealtimePricing(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getEnabledErr != nil {
		return false, c.getEnabledErr
	}
	return c.enabled, nil
}

func (c *fakeJobClient) SetRealtimePricing(ctx context.Context, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets = append(c.sets, enabled)
	if c.setErr != nil {
		return c.setErr
	}
	c.enabled = enabled
	return nil
}

func (c *fakeJobClient) GetProviderStatus(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.configured, nil
}

var errTransport = errors.New("connection refused")

func running(completed, total int) *dashboard.JobStatus {
	return &dashboard.JobStatus{
		IsRunning:        true,
		CompletedSymbols: completed,
		TotalSymbols:     total,
		ProgressPercent:  float64(completed) * 100 / float64(total),
	}
}

func finished(completed, total int) *dashboard.JobStatus {
	return &dashboard.JobStatus{
		IsRunning:        false,
		CompletedSymbols: completed,
		TotalSymbols:     total,
		ProgressPercent:  100,
	}
}
