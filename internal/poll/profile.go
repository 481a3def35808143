package poll

import (
	"context"
	"sync"

	"studio/internal/domain"
	"studio/internal/infra"
)

// CatalogStarter kicks off the sibling product/catalog analysis job once a
// profile is complete. Fire-and-forget: failures are logged, never surfaced.
type CatalogStarter interface {
	StartCatalogAnalysis(ctx context.Context, businessID string) error
}

// FlowStatus is the UI-visible snapshot of a profile-creation flow.
type FlowStatus struct {
	Phase         domain.PollingPhase `json:"phase"`
	ScreenshotURL string              `json:"screenshotUrl,omitempty"`
	BusinessID    string              `json:"businessId,omitempty"`
	Error         string              `json:"error,omitempty"`
}

// ProfileFlow polls one business-profile creation job through its phases:
// analyzing from the moment the job exists, screenshot once the job
// completed and a usable screenshot URL appeared, done after the dwell.
//
// The status is session-scoped, not per-template: a user who switches
// templates mid-poll still sees the terminal phase when they ask again.
// Teardown happens through Cancel, never by dropping writes.
type ProfileFlow struct {
	cfg        Config
	jobs       domain.JobReader
	businesses domain.BusinessReader
	catalog    CatalogStarter
	logger     infra.Logger

	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	status FlowStatus
}

// NewProfileFlow constructs a flow; Start launches it.
func NewProfileFlow(cfg Config, jobs domain.JobReader, businesses domain.BusinessReader, catalog CatalogStarter, logger infra.Logger) *ProfileFlow {
	return &ProfileFlow{
		cfg:        cfg.withDefaults(),
		jobs:       jobs,
		businesses: businesses,
		catalog:    catalog,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Start begins polling the given job. The flow owns a derived context so
// Cancel clears every outstanding timer.
func (f *ProfileFlow) Start(ctx context.Context, jobID, userID string) {
	ctx, f.cancel = context.WithCancel(ctx)
	f.setPhase(domain.PhaseAnalyzing, "", "", "")
	go f.run(ctx, jobID, userID)
}

// Cancel tears the flow down cooperatively.
func (f *ProfileFlow) Cancel() {
	if f.cancel != nil {
		f.cancel()
	}
}

// Active reports whether the flow is still running.
func (f *ProfileFlow) Active() bool {
	select {
	case <-f.done:
		return false
	default:
		return true
	}
}

// Done is closed when the flow reaches a terminal phase or is cancelled.
func (f *ProfileFlow) Done() <-chan struct{} { return f.done }

// Status returns the current snapshot.
func (f *ProfileFlow) Status() FlowStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *ProfileFlow) run(ctx context.Context, jobID, userID string) {
	defer close(f.done)
	defer f.cancel()

	job, err := Await(ctx, f.cfg, jobID, f.jobs.GetJob, f.logger)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		failure := domain.FailureOf(err, domain.FailureJobReported)
		f.setPhase(domain.PhaseFailed, "", "", failure.Error())
		return
	}

	business := f.awaitScreenshot(ctx, job, userID)
	if ctx.Err() != nil {
		return
	}

	businessID := job.BusinessID
	screenshotURL := ""
	if business != nil {
		businessID = business.ID
		screenshotURL = business.ScreenshotURL
		f.setPhase(domain.PhaseScreenshot, screenshotURL, businessID, "")
		if err := sleep(ctx, f.cfg.ScreenshotDwell); err != nil {
			return
		}
	}

	f.setPhase(domain.PhaseDone, screenshotURL, businessID, "")
	f.startCatalog(businessID)
}

// awaitScreenshot re-reads the freshest business record until it carries a
// non-empty http-prefixed screenshot URL. Exhausting the sub-poll is not a
// failure: the flow completes without a screenshot phase.
func (f *ProfileFlow) awaitScreenshot(ctx context.Context, job *domain.Job, userID string) *domain.Business {
	if f.businesses == nil {
		return nil
	}
	for attempt := 1; attempt <= f.cfg.ScreenshotAttempts; attempt++ {
		business, err := f.lookupBusiness(ctx, job, userID)
		if err != nil {
			f.logger.Warn().Err(err).Int("attempt", attempt).Msg("poller: business lookup failed")
		} else if business.HasScreenshot() {
			return business
		}
		if attempt == f.cfg.ScreenshotAttempts {
			break
		}
		if err := sleep(ctx, f.cfg.ScreenshotInterval); err != nil {
			return nil
		}
	}
	return nil
}

func (f *ProfileFlow) lookupBusiness(ctx context.Context, job *domain.Job, userID string) (*domain.Business, error) {
	if job.BusinessID != "" {
		return f.businesses.GetByID(ctx, job.BusinessID)
	}
	return f.businesses.LatestByUser(ctx, userID)
}

func (f *ProfileFlow) startCatalog(businessID string) {
	if f.catalog == nil || businessID == "" {
		return
	}
	go func() {
		// Detached from the flow context: the kickoff outlives the poll.
		if err := f.catalog.StartCatalogAnalysis(context.Background(), businessID); err != nil {
			f.logger.Warn().Err(err).Str("business_id", businessID).
				Msg("poller: catalog analysis kickoff failed")
		}
	}()
}

func (f *ProfileFlow) setPhase(phase domain.PollingPhase, screenshotURL, businessID, errMsg string) {
	f.mu.Lock()
	f.status = FlowStatus{Phase: phase, ScreenshotURL: screenshotURL, BusinessID: businessID, Error: errMsg}
	f.mu.Unlock()
}
