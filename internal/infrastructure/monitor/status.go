package monitor

import "time"

// Status is the last probe result. Redis is reported only when configured.
type Status struct {
	Store       bool      `json:"store"`
	Outbox      bool      `json:"outbox"`
	OutboxSize  int       `json:"outbox_size"`
	DeadLetters int       `json:"dead_letters"`
	Notifier    bool      `json:"notifier"`
	Redis       *bool     `json:"redis,omitempty"`
	LastCheck   time.Time `json:"last_check"`
}

// Healthy reports whether every configured dependency answered.
func (s Status) Healthy() bool {
	if s.Redis != nil && !*s.Redis {
		return false
	}
	return s.Store && s.Outbox && s.Notifier
}
