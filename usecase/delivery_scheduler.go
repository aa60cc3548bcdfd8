package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"slack-connect/domain/model"
	"slack-connect/domain/repository"
	"slack-connect/infrastructure/logger"
	"slack-connect/infrastructure/metrics"
)

const DefaultTickInterval = 60 * time.Second

// TickReport summarises one scheduler tick.
type TickReport struct {
	// Skipped is true when another tick was still running.
	Skipped bool `json:"skipped"`
	Due     int  `json:"due"`
	Sent    int  `json:"sent"`
	Failed  int  `json:"failed"`
	// Unchanged counts messages whose transition was not recorded: cancelled
	// concurrently or the status write failed.
	Unchanged int `json:"unchanged"`
}

type IDeliveryScheduler interface {
	Start(interval time.Duration)
	Stop()
	RunOnce(ctx context.Context) (TickReport, error)
}

// DeliveryScheduler periodically dispatches due scheduled messages and records
// each terminal outcome with a conditional status write.
type DeliveryScheduler struct {
	messages  repository.IScheduledMessage
	creds     ICredentialManager
	sender    repository.ISender
	notifiers []repository.IDeliveryNotifier
	timeout   time.Duration
	now       func() time.Time
	metrics   *metrics.Metrics

	ticking atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type DeliverySchedulerOption func(*DeliveryScheduler)

func WithNotifiers(n ...repository.IDeliveryNotifier) DeliverySchedulerOption {
	return func(s *DeliveryScheduler) { s.notifiers = append(s.notifiers, n...) }
}

func WithSendTimeout(d time.Duration) DeliverySchedulerOption {
	return func(s *DeliveryScheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithSchedulerClock(now func() time.Time) DeliverySchedulerOption {
	return func(s *DeliveryScheduler) { s.now = now }
}

func WithSchedulerMetrics(mt *metrics.Metrics) DeliverySchedulerOption {
	return func(s *DeliveryScheduler) { s.metrics = mt }
}

func NewDeliveryScheduler(messages repository.IScheduledMessage, creds ICredentialManager, sender repository.ISender, opts ...DeliverySchedulerOption) *DeliveryScheduler {
	s := &DeliveryScheduler{
		messages: messages,
		creds:    creds,
		sender:   sender,
		timeout:  DefaultRequestTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the tick loop. Calling Start on a running scheduler is a no-op.
func (s *DeliveryScheduler) Start(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, interval, s.done)

	logger.GetLogger().WithField("interval", interval.String()).Info("Delivery scheduler started")
}

// Stop ends the tick loop and waits for a running tick to finish. Safe to call repeatedly.
func (s *DeliveryScheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	logger.GetLogger().Info("Delivery scheduler stopped")
}

func (s *DeliveryScheduler) loop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Ticks never see the stop signal; Stop waits for them instead.
			if _, err := s.RunOnce(context.Background()); err != nil {
				logger.GetLogger().WithField("error", err).Error("Scheduler tick failed")
			}
		}
	}
}

// RunOnce runs a single tick unless one is already running.
// The error is non-nil only when due messages could not be loaded.
func (s *DeliveryScheduler) RunOnce(ctx context.Context) (TickReport, error) {
	if !s.ticking.CompareAndSwap(false, true) {
		s.metrics.RecordTick("skipped", 0)
		logger.GetLogger().Info("Previous scheduler tick still running, skipping")
		return TickReport{Skipped: true}, nil
	}
	defer s.ticking.Store(false)

	start := time.Now()
	report, err := s.tick(context.WithoutCancel(ctx))
	result := "ran"
	if err != nil {
		result = "error"
	}
	s.metrics.RecordTick(result, time.Since(start))
	return report, err
}

func (s *DeliveryScheduler) tick(ctx context.Context) (TickReport, error) {
	var report TickReport
	due, err := s.messages.FindDue(ctx, s.now().Unix())
	if err != nil {
		return report, &model.StoreError{Operation: "find due messages", Err: err}
	}
	report.Due = len(due)
	if len(due) == 0 {
		return report, nil
	}
	logger.GetLogger().WithField("count", len(due)).Info("Dispatching due scheduled messages")

	for i := range due {
		msg := &due[i]
		status, cause := s.dispatch(ctx, msg)
		if !s.record(ctx, msg, status, cause) {
			report.Unchanged++
			continue
		}
		if status == model.StatusSent {
			report.Sent++
		} else {
			report.Failed++
		}
	}
	return report, nil
}

func (s *DeliveryScheduler) dispatch(ctx context.Context, msg *model.ScheduledMessage) (model.MessageStatus, error) {
	token, err := s.creds.GetValidCredential(ctx, msg.WorkspaceID)
	if err != nil {
		return model.StatusFailed, &model.DispatchError{MessageID: msg.ID, Err: err}
	}
	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.sender.Send(sendCtx, token, msg.ChannelID, msg.Message); err != nil {
		return model.StatusFailed, &model.DispatchError{MessageID: msg.ID, Err: err}
	}
	return model.StatusSent, nil
}

// record commits pending -> status and reports whether the transition happened.
func (s *DeliveryScheduler) record(ctx context.Context, msg *model.ScheduledMessage, status model.MessageStatus, cause error) bool {
	entry := logger.GetLogger().
		WithField("message_id", msg.ID).
		WithField("workspace_id", msg.WorkspaceID)
	if cause != nil {
		entry = entry.WithField("error", cause.Error())
	}

	n, err := s.messages.SetStatus(ctx, msg.ID, model.StatusPending, status)
	if err != nil {
		entry.WithField("status_error", err).WithField("status", status).Error("Failed to record scheduled message status")
		return false
	}
	if n == 0 {
		if status == model.StatusSent {
			// Slack already has the message; only the stored status disagrees.
			entry.WithField("delivered", true).Warn("Scheduled message delivered to Slack but resolved concurrently, status left unchanged")
			return false
		}
		entry.Info("Scheduled message resolved concurrently, outcome not recorded")
		return false
	}

	if cause != nil {
		entry.Warn("Scheduled message failed")
	} else {
		entry.Info("Scheduled message sent")
	}
	s.metrics.RecordDelivery(string(status))
	s.notify(ctx, model.NewDeliveryEvent(msg, status, cause, s.now().Unix()))
	return true
}

func (s *DeliveryScheduler) notify(ctx context.Context, evt model.DeliveryEvent) {
	for _, n := range s.notifiers {
		nctx, cancel := context.WithTimeout(ctx, s.timeout)
		if err := n.Notify(nctx, evt); err != nil {
			logger.GetLogger().
				WithField("message_id", evt.MessageID).
				WithField("error", err).
				Warn("Delivery notifier failed")
		}
		cancel()
	}
}
