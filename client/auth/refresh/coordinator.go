package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/viant/restauth/client/auth/store"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultTimeout bounds a single refresh exchange.
const DefaultTimeout = 30 * time.Second

const flightKey = "refresh"

// State reports whether a refresh exchange is running.
type State int32

const (
	Idle State = iota
	InFlight
)

func (s State) String() string {
	if s == InFlight {
		return "in-flight"
	}
	return "idle"
}

// Coordinator exchanges the stored refresh token for a new access token,
// issuing at most one exchange at a time; concurrent callers share its outcome.
type Coordinator struct {
	store     store.Store
	exchanger Exchanger
	group     singleflight.Group
	state     atomic.Int32
	waiters   atomic.Int32
	rotate    bool
	timeout   time.Duration
	logger    *zap.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRotation stores a refresh token returned by the endpoint in place of the old one.
func WithRotation(rotate bool) Option {
	return func(c *Coordinator) {
		c.rotate = rotate
	}
}

// WithTimeout bounds each exchange; it is independent of callers' contexts.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLogger sets logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a coordinator renewing credentials held by aStore.
func New(aStore store.Store, exchanger Exchanger, options ...Option) *Coordinator {
	ret := &Coordinator{
		store:     aStore,
		exchanger: exchanger,
		timeout:   DefaultTimeout,
		logger:    zap.NewNop(),
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// State returns the current refresh state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Waiters returns the number of callers waiting on a refresh outcome.
func (c *Coordinator) Waiters() int {
	return int(c.waiters.Load())
}

// Refresh renews the access token and returns the updated credentials.
func (c *Coordinator) Refresh(ctx context.Context) (*store.Credentials, error) {
	return c.RefreshRejected(ctx, "")
}

// RefreshRejected renews the access token after the server rejected the
// rejected token. If the store already holds a different access token,
// another caller has refreshed in the meantime and it is returned without an
// exchange. Cancelling ctx stops waiting but never aborts the exchange itself.
func (c *Coordinator) RefreshRejected(ctx context.Context, rejected string) (*store.Credentials, error) {
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(flightKey, func() (interface{}, error) {
		return c.exchange(detached, rejected)
	})
	// counted once joined to the flight
	c.waiters.Add(1)
	defer c.waiters.Add(-1)
	select {
	case result := <-ch:
		if result.Shared {
			c.logger.Debug("refresh outcome shared", zap.Bool("success", result.Err == nil))
		}
		if result.Err != nil {
			return nil, result.Err
		}
		return result.Val.(*store.Credentials).Clone(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Coordinator) exchange(parent context.Context, rejected string) (*store.Credentials, error) {
	c.state.Store(int32(InFlight))
	defer c.state.Store(int32(Idle))
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	current, err := c.store.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	if current == nil || current.Refresh == "" {
		return nil, &Error{Err: ErrNoRefreshToken}
	}
	if rejected != "" && current.Access != "" && current.Access != rejected {
		return current, nil
	}

	started := time.Now()
	c.logger.Debug("refreshing access token", zap.Int("waiters", c.Waiters()))
	grant, err := c.exchanger.Exchange(ctx, current.Refresh)
	if err != nil {
		if errors.Is(err, ErrRejected) || errors.Is(err, ErrMalformed) {
			c.logger.Warn("refresh failed, clearing credentials", zap.Error(err))
			// a pair written by a newer login is kept
			if clearErr := c.store.Revoke(ctx, current.Refresh); clearErr != nil && !errors.Is(clearErr, store.ErrSuperseded) && !errors.Is(clearErr, store.ErrNoCredentials) {
				c.logger.Error("failed to clear credentials", zap.Error(clearErr))
			}
			return nil, err
		}
		c.logger.Warn("refresh failed", zap.Error(err))
		return nil, err
	}

	renewed := &store.Credentials{Access: grant.Access, Refresh: current.Refresh}
	if c.rotate && grant.Refresh != "" {
		renewed.Refresh = grant.Refresh
		err = c.store.Rotate(ctx, current.Refresh, renewed)
	} else {
		err = c.store.UpdateAccess(ctx, current.Refresh, grant.Access)
	}
	switch {
	case errors.Is(err, store.ErrNoCredentials):
		return nil, &Error{Message: "credentials cleared during refresh", Err: ErrNoRefreshToken}
	case errors.Is(err, store.ErrSuperseded):
		c.logger.Info("credentials replaced during refresh, discarding renewed token")
		return nil, fmt.Errorf("refreshed token discarded: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to store refreshed credentials: %w", err)
	}
	c.logger.Info("access token refreshed",
		zap.Duration("elapsed", time.Since(started)),
		zap.Bool("rotated", renewed.Refresh != current.Refresh))
	return renewed, nil
}
