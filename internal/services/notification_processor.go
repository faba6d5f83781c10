package services

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/storefront/internal/infrastructure/buffer"
	"github.com/fastygo/storefront/usecase"
)

// DeliveryHealth reports whether the notification driver is reachable.
type DeliveryHealth interface {
	NotifierOnline() bool
}

// ProcessorConfig controls how the outbox is drained.
type ProcessorConfig struct {
	Interval      time.Duration
	BatchSize     int
	MaxRetries    int
	DeadRetention time.Duration
}

// NotificationProcessor pushes outbox items to the notifier on a schedule.
type NotificationProcessor struct {
	outbox   *buffer.Outbox
	notifier usecase.Notifier
	health   DeliveryHealth
	logger   *zap.Logger
	cron     *cron.Cron
	cfg      ProcessorConfig
}

func NewNotificationProcessor(
	outbox *buffer.Outbox,
	notifier usecase.Notifier,
	health DeliveryHealth,
	logger *zap.Logger,
	cfg ProcessorConfig,
) *NotificationProcessor {
	if cfg.Interval < time.Second {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.DeadRetention <= 0 {
		cfg.DeadRetention = 7 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	np := &NotificationProcessor{
		outbox:   outbox,
		notifier: notifier,
		health:   health,
		logger:   logger,
		cfg:      cfg,
		cron:     cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = np.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := np.Drain(ctx); err != nil {
			np.logger.Error("outbox drain failed", zap.Error(err))
		}
	})
	_, _ = np.cron.AddFunc("@hourly", func() {
		purged, err := np.outbox.PurgeDead(time.Now().Add(-cfg.DeadRetention))
		if err != nil {
			np.logger.Error("dead letter purge failed", zap.Error(err))
			return
		}
		if purged > 0 {
			np.logger.Info("dead letters purged", zap.Int("count", purged))
		}
	})

	return np
}

func (np *NotificationProcessor) Start() {
	if np == nil || np.cron == nil {
		return
	}
	np.cron.Start()
	np.logger.Info("notification processor started", zap.Duration("interval", np.cfg.Interval))
}

func (np *NotificationProcessor) Stop(ctx context.Context) {
	if np == nil || np.cron == nil {
		return
	}
	stopCtx := np.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	np.logger.Info("notification processor stopped")
}

// Drain delivers one batch of pending items synchronously.
func (np *NotificationProcessor) Drain(ctx context.Context) error {
	if np == nil || np.outbox == nil {
		return nil
	}
	if np.health != nil && !np.health.NotifierOnline() {
		np.logger.Debug("skipping outbox drain (notifier offline)")
		return nil
	}

	items, err := np.outbox.Peek(np.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, item := range items {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := np.process(ctx, item); err != nil {
			np.logger.Warn("outbox delivery failed",
				zap.String("item_id", item.ID),
				zap.String("order_id", item.OrderID),
				zap.Int("retries", item.Retries),
				zap.Error(err))

			if item.Retries+1 >= np.cfg.MaxRetries {
				np.logger.Error("giving up on delivery, moved to dead letters",
					zap.String("item_id", item.ID),
					zap.String("order_id", item.OrderID))
				if err := np.outbox.Bury(item, err); err != nil {
					np.logger.Error("failed to bury outbox item", zap.Error(err))
				}
				continue
			}
			if err := np.outbox.Retry(item, err); err != nil {
				np.logger.Error("failed to requeue outbox item", zap.Error(err))
			}
			continue
		}

		if err := np.outbox.Ack(item); err != nil {
			np.logger.Warn("failed to purge delivered outbox item", zap.Error(err))
		}
	}
	return nil
}

// Submit delivers immediately and falls back to the outbox on failure.
func (np *NotificationProcessor) Submit(ctx context.Context, item buffer.Item) error {
	if np == nil || np.outbox == nil {
		return fmt.Errorf("notification processor not configured")
	}

	if np.health == nil || np.health.NotifierOnline() {
		err := np.process(ctx, item)
		if err == nil {
			return nil
		}
		np.logger.Warn("immediate delivery failed, queued in outbox",
			zap.String("order_id", item.OrderID),
			zap.Error(err))
		item.LastError = err.Error()
	}
	return np.outbox.Enqueue(item)
}

// Pending returns the number of queued deliveries.
func (np *NotificationProcessor) Pending() int {
	if np == nil || np.outbox == nil {
		return 0
	}
	size, err := np.outbox.Size()
	if err != nil {
		return 0
	}
	return size
}

func (np *NotificationProcessor) process(ctx context.Context, item buffer.Item) error {
	switch item.Kind {
	case buffer.KindKeyDelivery:
		var d usecase.Delivery
		if err := json.Unmarshal(item.Data, &d); err != nil {
			return err
		}
		return np.notifier.Deliver(ctx, d)
	default:
		return fmt.Errorf("unsupported outbox item kind %s", item.Kind)
	}
}
