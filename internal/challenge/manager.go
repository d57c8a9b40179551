package challenge

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	dErrors "idverse/pkg/domain-errors"
	"idverse/pkg/platform/sentinel"
)

var (
	challengesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "idverse_challenges_issued_total",
		Help: "Total presentation challenges issued",
	})
	challengesConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "idverse_challenges_consumed_total",
		Help: "Total challenge consumptions by outcome",
	}, []string{"outcome"})
)

// Manager issues nonces and enforces their single-use lifecycle.
type Manager struct {
	store  Store
	logger *slog.Logger
	ttl    time.Duration
	now    func() time.Time
}

type ManagerOption func(*Manager)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

func NewManager(store Store, ttl time.Duration, logger *slog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:  store,
		logger: logger,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Issue mints a fresh nonce valid for the configured TTL.
func (m *Manager) Issue(ctx context.Context) (Challenge, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return Challenge{}, fmt.Errorf("generate nonce: %w", err)
	}

	now := m.now().UTC()
	ch := Challenge{
		Nonce:     "chal-" + hex.EncodeToString(raw[:]),
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, ch); err != nil {
		return Challenge{}, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "save challenge")
	}

	challengesIssued.Inc()
	m.logger.DebugContext(ctx, "challenge issued",
		"nonce", ch.Nonce,
		"expires_at", ch.ExpiresAt,
	)
	return ch, nil
}

// Consume spends a nonce. The nonce is marked used even when the caller's
// verification later fails on other grounds; there is no rollback.
func (m *Manager) Consume(ctx context.Context, nonce string) error {
	err := m.store.Consume(ctx, nonce, m.now().UTC())
	switch {
	case err == nil:
		challengesConsumed.WithLabelValues("ok").Inc()
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		challengesConsumed.WithLabelValues("unknown").Inc()
		return dErrors.Wrap(err, dErrors.CodeUnknownChallenge, "challenge not issued")
	case errors.Is(err, sentinel.ErrExpired):
		challengesConsumed.WithLabelValues("expired").Inc()
		return dErrors.Wrap(err, dErrors.CodeExpiredChallenge, "challenge expired")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		challengesConsumed.WithLabelValues("replayed").Inc()
		m.logger.WarnContext(ctx, "challenge replay detected", "nonce", nonce)
		return dErrors.Wrap(err, dErrors.CodeReplayedChallenge, "challenge already used")
	default:
		challengesConsumed.WithLabelValues("error").Inc()
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "consume challenge")
	}
}
