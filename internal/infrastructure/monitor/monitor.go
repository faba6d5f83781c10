package monitor

import (
	"context"
	"sync"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/storefront/internal/infrastructure/buffer"
)

// Pinger is anything with a cheap liveness check.
type Pinger interface {
	Ping() error
}

type Monitor struct {
	store    Pinger
	notifier Pinger
	redis    *redislib.Client
	outbox   *buffer.Outbox

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

// New builds a monitor. notifier and redis may be nil when not in use.
func New(store Pinger, outbox *buffer.Outbox, notifier Pinger, redis *redislib.Client, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		store:    store,
		notifier: notifier,
		redis:    redis,
		outbox:   outbox,
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

func (m *Monitor) Start() {
	m.Refresh()
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// NotifierOnline gates outbox draining.
func (m *Monitor) NotifierOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Notifier
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Refresh()
		case <-m.stopCh:
			return
		}
	}
}

// Refresh probes every dependency once and stores the result.
func (m *Monitor) Refresh() {
	outboxOK, size, dead := m.checkOutbox()
	status := Status{
		Store:       m.check("store", m.store),
		Outbox:      outboxOK,
		OutboxSize:  size,
		DeadLetters: dead,
		Notifier:    m.notifier == nil || m.check("notifier", m.notifier),
		Redis:       m.checkRedis(),
		LastCheck:   time.Now(),
	}

	m.mu.Lock()
	prev := m.status
	m.status = status
	m.mu.Unlock()

	if prev.Healthy() != status.Healthy() && !prev.LastCheck.IsZero() {
		m.logger.Info("health changed", zap.Bool("healthy", status.Healthy()), zap.Any("status", status))
	}
}

func (m *Monitor) check(name string, p Pinger) bool {
	if p == nil {
		return false
	}
	if err := p.Ping(); err != nil {
		m.logger.Warn("health probe failed", zap.String("component", name), zap.Error(err))
		return false
	}
	return true
}

func (m *Monitor) checkRedis() *bool {
	if m.redis == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ok := m.redis.Ping(ctx).Err() == nil
	return &ok
}

func (m *Monitor) checkOutbox() (bool, int, int) {
	if m.outbox == nil {
		return false, 0, 0
	}
	size, err := m.outbox.Size()
	if err != nil {
		m.logger.Warn("outbox size check failed", zap.Error(err))
		return false, size, 0
	}
	dead, err := m.outbox.DeadSize()
	if err != nil {
		m.logger.Warn("dead letter count failed", zap.Error(err))
		return false, size, 0
	}
	return true, size, dead
}
