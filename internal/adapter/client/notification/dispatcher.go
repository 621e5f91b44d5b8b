package notification

import (
	"context"
	"sync"
	"time"

	"github.com/MikeRez0/storefront/internal/adapter/config"
	"github.com/MikeRez0/storefront/internal/adapter/metrics"
	"github.com/MikeRez0/storefront/internal/core/domain"
	"github.com/MikeRez0/storefront/internal/core/port"
	"go.uber.org/zap"
)

const sendTimeout = 10 * time.Second

type job struct {
	kind    Kind
	order   *domain.Order
	attempt int
}

// Dispatcher sends order notifications from a bounded queue served by a pool
// of workers. Dispatch never blocks the checkout: a full queue drops the job.
type Dispatcher struct {
	sender      port.NotificationSender
	logger      *zap.Logger
	queue       chan job
	maxAttempts int
	backoff     time.Duration

	wg sync.WaitGroup
}

var _ port.NotificationDispatcher = (*Dispatcher)(nil)

func NewDispatcher(sender port.NotificationSender, cfg *config.Notify, log *zap.Logger) (*Dispatcher, error) {
	queueSize := cfg.QueueSize
	if queueSize < 1 {
		queueSize = 1
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &Dispatcher{
		sender:      sender,
		logger:      log,
		queue:       make(chan job, queueSize),
		maxAttempts: maxAttempts,
		backoff:     cfg.RetryBackoff,
	}, nil
}

func (d *Dispatcher) Dispatch(order *domain.Order) {
	d.enqueue(job{kind: KindOrderConfirmation, order: order, attempt: 1})
	d.enqueue(job{kind: KindAdminOrder, order: order, attempt: 1})
}

func (d *Dispatcher) enqueue(j job) bool {
	select {
	case d.queue <- j:
		d.logger.Debug("Notification queued",
			zap.String("order", string(j.order.Number)),
			zap.String("kind", string(j.kind)),
			zap.Int("attempt", j.attempt))
		return true
	default:
		metrics.NotificationsDropped.Inc()
		d.logger.Error("Notification queue is full, dropping",
			zap.String("order", string(j.order.Number)),
			zap.String("kind", string(j.kind)))
		return false
	}
}

// Run starts the workers. They stop when ctx is done; Wait blocks until then.
func (d *Dispatcher) Run(ctx context.Context, workers int) {
	if workers < 1 {
		workers = 1
	}
	for range workers {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for {
				select {
				case j := <-d.queue:
					d.process(ctx, j)
				case <-ctx.Done():
					d.logger.Debug("Finished notification worker")
					return
				}
			}
		}()
	}
}

func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) process(ctx context.Context, j job) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	var err error
	switch j.kind {
	case KindOrderConfirmation:
		err = d.sender.SendOrderConfirmation(sendCtx, j.order)
	case KindAdminOrder:
		err = d.sender.SendAdminOrderNotification(sendCtx, j.order)
	}
	if err == nil {
		metrics.NotificationsSent.WithLabelValues(string(j.kind), "sent").Inc()
		return
	}

	if j.attempt >= d.maxAttempts {
		metrics.NotificationsSent.WithLabelValues(string(j.kind), "failed").Inc()
		d.logger.Error("Notification failed, giving up",
			zap.String("order", string(j.order.Number)),
			zap.String("kind", string(j.kind)),
			zap.Int("attempts", j.attempt),
			zap.Error(err))
		return
	}

	metrics.NotificationsSent.WithLabelValues(string(j.kind), "retry").Inc()
	d.logger.Warn("Notification failed, will retry",
		zap.String("order", string(j.order.Number)),
		zap.String("kind", string(j.kind)),
		zap.Int("attempt", j.attempt),
		zap.Error(err))

	j.attempt++
	d.wg.Add(1)
	go d.retry(ctx, j, d.backoff*time.Duration(j.attempt-1))
}

func (d *Dispatcher) retry(ctx context.Context, j job, waitFor time.Duration) {
	defer d.wg.Done()

	r := time.NewTimer(waitFor)
	defer r.Stop()

	select {
	case <-r.C:
		d.enqueue(j)
	case <-ctx.Done():
		d.logger.Warn("Notification retry abandoned on shutdown",
			zap.String("order", string(j.order.Number)),
			zap.String("kind", string(j.kind)))
	}
}
