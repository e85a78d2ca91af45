// Package oauth drives the proxy's browser login flows. The proxy runs the
// actual OAuth dance through its embedded callback forwarder; ProxyPal only
// fetches the login URL, hands it to the browser, and polls until the proxy
// reports the credential landed.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pkg/browser"
	"go.uber.org/zap"

	"github.com/proxypal/proxypal/internal/cache"
	"github.com/proxypal/proxypal/internal/proto"
)

const (
	pollEvery = 2 * time.Second

	pendingKey = "oauth-pending"
	pendingTTL = 24 * time.Hour
)

// API is the slice of the management client a flow needs.
type API interface {
	AuthURL(ctx context.Context, provider proto.Provider) (url, state string, err error)
	AuthCompleted(ctx context.Context, state string) (bool, error)
}

// Session is one pending browser login.
type Session struct {
	Provider proto.Provider
	URL      string
	State    string
}

// PendingState is the record Start leaves behind so a later
// `proxypal auth complete` invocation can match the callback link.
type PendingState struct {
	Provider  proto.Provider
	State     string
	URL       string
	StartedAt time.Time
}

// Flow starts and tracks browser logins.
type Flow struct {
	api  API
	open func(string) error
	poll time.Duration
	dir  string
	log  *zap.Logger
}

// New makes a Flow over the management API, persisting pending logins
// under dir.
func New(api API, dir string, log *zap.Logger) *Flow {
	return &Flow{api: api, open: browser.OpenURL, poll: pollEvery, dir: dir, log: log}
}

// Start fetches the provider's login URL and opens it in the browser. A
// browser that won't open is not fatal: the session URL comes back either
// way so the caller can show it for manual opening.
func (f *Flow) Start(ctx context.Context, p proto.Provider) (Session, error) {
	url, state, err := f.api.AuthURL(ctx, p)
	if err != nil {
		return Session{}, err
	}
	s := Session{Provider: p, URL: url, State: state}
	f.savePending(s)
	f.log.Info("starting browser login", zap.String("provider", string(p)))
	if err := f.open(url); err != nil {
		f.log.Warn("could not open browser", zap.Error(err))
	}
	return s, nil
}

// Wait polls the proxy until the login completes or ctx expires. Poll
// failures count as "not yet": the proxy may still be warming up or the
// user mid-consent.
func (f *Flow) Wait(ctx context.Context, s Session) error {
	t := time.NewTicker(f.poll)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s login did not complete: %w", s.Provider, ctx.Err())
		case <-t.C:
			done, err := f.api.AuthCompleted(ctx, s.State)
			if err != nil {
				f.log.Debug("auth status poll failed", zap.Error(err))
				continue
			}
			if done {
				f.clearPending()
				f.log.Info("login complete", zap.String("provider", string(s.Provider)))
				return nil
			}
		}
	}
}

// Complete matches a proxypal://oauth/callback link against the login Start
// recorded. The proxy's callback forwarder already redeemed the code by the
// time the link fires, so code is accepted for completeness but only state
// is checked. When the proxy answers, its view of the login wins.
func (f *Flow) Complete(ctx context.Context, _, state string) (proto.Provider, error) {
	ps, err := f.loadPending()
	if err != nil {
		return "", errors.New("no login is pending; run `proxypal auth login <provider>` first")
	}
	if ps.State != state {
		return "", fmt.Errorf("callback state does not match the pending %s login", ps.Provider)
	}
	if done, err := f.api.AuthCompleted(ctx, state); err == nil && !done {
		return "", fmt.Errorf("the proxy has not recorded the %s credential yet", ps.Provider)
	}
	f.clearPending()
	f.log.Info("login complete", zap.String("provider", string(ps.Provider)))
	return ps.Provider, nil
}

func (f *Flow) savePending(s Session) {
	c, err := cache.New[PendingState](f.dir)
	if err != nil {
		f.log.Debug("pending login not persisted", zap.Error(err))
		return
	}
	ps := PendingState{Provider: s.Provider, State: s.State, URL: s.URL, StartedAt: time.Now()}
	if err := c.Write(pendingKey, pendingTTL, &ps); err != nil {
		f.log.Debug("pending login not persisted", zap.Error(err))
	}
}

func (f *Flow) loadPending() (PendingState, error) {
	var ps PendingState
	c, err := cache.New[PendingState](f.dir)
	if err != nil {
		return ps, err
	}
	if err := c.Read(pendingKey, &ps); err != nil {
		return ps, err
	}
	return ps, nil
}

func (f *Flow) clearPending() {
	c, err := cache.New[PendingState](f.dir)
	if err != nil {
		return
	}
	if err := c.Delete(pendingKey); err != nil {
		f.log.Debug("pending login not cleared", zap.Error(err))
	}
}
