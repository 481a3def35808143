package poll

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"studio/internal/domain"
)

type scriptedJobs struct {
	mu       sync.Mutex
	attempts int
	// completeAt is the attempt on which the job reports completed.
	completeAt int
	businessID string
}

func (j *scriptedJobs) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.attempts++
	if j.attempts >= j.completeAt {
		return &domain.Job{ID: jobID, Status: domain.JobStatusCompleted, BusinessID: j.businessID}, nil
	}
	return &domain.Job{ID: jobID, Status: domain.JobStatusProcessing}, nil
}

type scriptedBusinesses struct {
	mu       sync.Mutex
	attempts int
	// screenshotAt is the lookup attempt on which the screenshot appears;
	// 0 means never.
	screenshotAt int
}

func (b *scriptedBusinesses) GetByID(ctx context.Context, id string) (*domain.Business, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attempts++
	biz := &domain.Business{ID: id}
	if b.screenshotAt > 0 && b.attempts >= b.screenshotAt {
		biz.ScreenshotURL = "https://screenshots/biz.png"
	}
	return biz, nil
}

func (b *scriptedBusinesses) LatestByUser(ctx context.Context, userID string) (*domain.Business, error) {
	return b.GetByID(ctx, "biz-latest")
}

type countingCatalog struct {
	started atomic.Int32
}

func (c *countingCatalog) StartCatalogAnalysis(ctx context.Context, businessID string) error {
	c.started.Add(1)
	return nil
}

func waitDone(t *testing.T, flow *ProfileFlow, timeout time.Duration) {
	t.Helper()
	select {
	case <-flow.Done():
	case <-time.After(timeout):
		t.Fatal("flow did not finish in time")
	}
}

func TestProfileFlowPhases(t *testing.T) {
	jobs := &scriptedJobs{completeAt: 3, businessID: "biz-1"}
	businesses := &scriptedBusinesses{screenshotAt: 2}
	catalog := &countingCatalog{}
	flow := NewProfileFlow(fastConfig(), jobs, businesses, catalog, discard())

	flow.Start(context.Background(), "job-1", "user-1")
	if got := flow.Status().Phase; got != domain.PhaseAnalyzing {
		t.Fatalf("initial phase = %q, want analyzing", got)
	}

	// Entering the screenshot phase starts the dwell; completion must not
	// be signaled before the dwell elapses.
	deadline := time.Now().Add(time.Second)
	var enteredScreenshot time.Time
	for time.Now().Before(deadline) {
		st := flow.Status()
		if st.Phase == domain.PhaseScreenshot {
			enteredScreenshot = time.Now()
			break
		}
		if st.Phase == domain.PhaseDone || st.Phase == domain.PhaseFailed {
			t.Fatalf("phase jumped to %q before screenshot", st.Phase)
		}
		time.Sleep(time.Millisecond)
	}
	if enteredScreenshot.IsZero() {
		t.Fatal("never entered the screenshot phase")
	}
	if got := flow.Status().ScreenshotURL; got != "https://screenshots/biz.png" {
		t.Fatalf("screenshot url = %q", got)
	}

	waitDone(t, flow, time.Second)
	if elapsed := time.Since(enteredScreenshot); elapsed < 25*time.Millisecond {
		t.Fatalf("completed %v after screenshot, want at least the dwell", elapsed)
	}
	st := flow.Status()
	if st.Phase != domain.PhaseDone || st.BusinessID != "biz-1" {
		t.Fatalf("final status = %+v", st)
	}
	if jobs.attempts != 3 {
		t.Fatalf("job attempts = %d, want 3", jobs.attempts)
	}
	if businesses.attempts != 2 {
		t.Fatalf("business lookups = %d, want 2", businesses.attempts)
	}
	if catalog.started.Load() != 1 {
		t.Fatalf("catalog kickoffs = %d, want 1", catalog.started.Load())
	}
}

func TestProfileFlowSkipsScreenshotWhenNeverAvailable(t *testing.T) {
	jobs := &scriptedJobs{completeAt: 1, businessID: "biz-1"}
	businesses := &scriptedBusinesses{screenshotAt: 0}
	flow := NewProfileFlow(fastConfig(), jobs, businesses, &countingCatalog{}, discard())

	flow.Start(context.Background(), "job-1", "user-1")
	waitDone(t, flow, time.Second)

	st := flow.Status()
	if st.Phase != domain.PhaseDone {
		t.Fatalf("phase = %q, want done", st.Phase)
	}
	if st.ScreenshotURL != "" {
		t.Fatalf("screenshot url = %q, want none", st.ScreenshotURL)
	}
	if businesses.attempts != 10 {
		t.Fatalf("business lookups = %d, want the full sub-poll", businesses.attempts)
	}
}

func TestProfileFlowReportsJobFailure(t *testing.T) {
	jobs := &failingJobs{message: "site unreachable"}
	flow := NewProfileFlow(fastConfig(), jobs, &scriptedBusinesses{}, nil, discard())
	flow.Start(context.Background(), "job-1", "user-1")
	waitDone(t, flow, time.Second)

	st := flow.Status()
	if st.Phase != domain.PhaseFailed {
		t.Fatalf("phase = %q, want failed", st.Phase)
	}
	if st.Error == "" {
		t.Fatal("expected the job's error to surface")
	}
}

type failingJobs struct{ message string }

func (j *failingJobs) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	return &domain.Job{ID: jobID, Status: domain.JobStatusFailed, ErrorMessage: j.message}, nil
}

func TestProfileFlowRetainsTerminalPhase(t *testing.T) {
	jobs := &scriptedJobs{completeAt: 1, businessID: "biz-1"}
	businesses := &scriptedBusinesses{screenshotAt: 1}
	flow := NewProfileFlow(fastConfig(), jobs, businesses, nil, discard())

	flow.Start(context.Background(), "job-1", "user-1")
	waitDone(t, flow, time.Second)

	// The result stays readable for as long as the session holds the flow,
	// no matter what the user did in the meantime.
	if flow.Active() {
		t.Fatal("flow should be inactive after completion")
	}
	for i := 0; i < 3; i++ {
		st := flow.Status()
		if st.Phase != domain.PhaseDone || st.BusinessID != "biz-1" {
			t.Fatalf("read %d: status = %+v, want the terminal result", i, st)
		}
	}
}

func TestProfileFlowCancelClearsTimers(t *testing.T) {
	jobs := &scriptedJobs{completeAt: 1000}
	flow := NewProfileFlow(fastConfig(), jobs, &scriptedBusinesses{}, nil, discard())
	flow.Start(context.Background(), "job-1", "user-1")
	if !flow.Active() {
		t.Fatal("flow should be active")
	}
	flow.Cancel()
	waitDone(t, flow, time.Second)
	if flow.Active() {
		t.Fatal("flow should be inactive after cancel")
	}
	// Phase stays where it was; a cancelled flow never reports done.
	if got := flow.Status().Phase; got != domain.PhaseAnalyzing {
		t.Fatalf("phase = %q, want analyzing", got)
	}
}
