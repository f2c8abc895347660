package cregiswebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apexmarkets/crm-backend/pkg/redis"
)

// ReplayGuard is a Redis-backed dedupe shim in front of the reconciliation
// engine. It is a fast path only: the database conditional updates remain the
// source of truth, so losing Redis never compromises correctness.
type ReplayGuard struct {
	store redis.ReplayGuard
	ttl   time.Duration
}

func NewReplayGuard(store redis.ReplayGuard, ttl time.Duration) (*ReplayGuard, error) {
	if store == nil {
		return nil, errors.New("replay guard store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	return &ReplayGuard{
		store: store,
		ttl:   ttl,
	}, nil
}

// CheckAndMark reports whether this (payment, status) pair was already seen,
// marking it when it was not.
func (g *ReplayGuard) CheckAndMark(ctx context.Context, paymentID, status string) (bool, error) {
	if paymentID == "" {
		return false, errors.New("payment id is required")
	}
	key := g.store.CallbackKey("cregis", paymentID, status)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set replay key: %w", err)
	}
	return !set, nil
}

// Forget clears the mark so the gateway's next replay is processed again.
// Used when crediting could not be finished on this delivery.
func (g *ReplayGuard) Forget(ctx context.Context, paymentID, status string) error {
	if paymentID == "" {
		return errors.New("payment id is required")
	}
	return g.store.Del(ctx, g.store.CallbackKey("cregis", paymentID, status))
}

