// Package selector picks a working upstream model endpoint from a static,
// priority-ordered candidate list.
//
// A Selector owns its active endpoint; callers share one *Selector rather
// than a package global. Resolution is serialized by the selector's lock,
// so concurrent first turns wait for a single probe pass.
package selector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"chatrelay/internal/logging"
	"chatrelay/internal/models"
)

// Mode controls when the selector probes and whether it self-heals.
type Mode string

const (
	// ModeStatic probes once, on the first Resolve, and keeps the outcome
	// for the selector's lifetime, including "none available".
	ModeStatic Mode = "static"
	// ModeLazy probes whenever no endpoint is active; Invalidate clears
	// the active endpoint so the next Resolve re-probes from the top.
	ModeLazy Mode = "lazy"
	// ModeFixed always returns the first candidate and never probes.
	ModeFixed Mode = "fixed"
)

var (
	ErrNoneAvailable = errors.New("no model endpoint available")
	ErrNoCandidates  = errors.New("candidate list is empty")
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeStatic, ModeLazy, ModeFixed:
		return m, nil
	default:
		return "", fmt.Errorf("unknown selector mode %q", s)
	}
}

// Prober sends a minimal request to an endpoint. A probe succeeds only
// when it returns http.StatusOK and a nil error.
type Prober interface {
	Probe(ctx context.Context, endpoint string) (int, error)
}

// Observer is notified of probe outcomes and active-endpoint changes.
// Callbacks run while the selector lock is held and must not call back
// into the selector.
type Observer interface {
	ProbeCompleted(result models.ProbeResult)
	EndpointChanged(event models.EndpointEvent)
}

type Option func(*Selector)

// WithProbeTimeout bounds each individual probe. Zero means no bound
// beyond the caller's context.
func WithProbeTimeout(d time.Duration) Option {
	return func(s *Selector) { s.probeTimeout = d }
}

func WithObserver(o Observer) Option {
	return func(s *Selector) { s.observer = o }
}

type Selector struct {
	mode         Mode
	candidates   []string
	prober       Prober
	probeTimeout time.Duration
	observer     Observer
	now          func() time.Time

	mu       sync.Mutex
	active   string
	resolved bool // static mode: a full probe pass has completed
}

// New builds a selector. prober may be nil only in ModeFixed.
func New(mode Mode, candidates []string, prober Prober, opts ...Option) (*Selector, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	if prober == nil && mode != ModeFixed {
		return nil, fmt.Errorf("%s mode requires a prober", mode)
	}

	s := &Selector{
		mode:       mode,
		candidates: append([]string(nil), candidates...),
		prober:     prober,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if mode == ModeFixed {
		s.active = s.candidates[0]
		s.resolved = true
	}
	return s, nil
}

func (s *Selector) Mode() Mode { return s.mode }

func (s *Selector) Candidates() []string {
	return append([]string(nil), s.candidates...)
}

// Active returns the current endpoint, if any.
func (s *Selector) Active() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.active != ""
}

// Resolve returns the endpoint to use for the next turn, probing the
// candidates in priority order when the mode calls for it. The only
// errors are ErrNoneAvailable and a cancelled context.
func (s *Selector) Resolve(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.mode {
	case ModeFixed:
		return s.active, nil
	case ModeStatic:
		if s.resolved {
			if s.active == "" {
				return "", ErrNoneAvailable
			}
			return s.active, nil
		}
	case ModeLazy:
		if s.active != "" {
			return s.active, nil
		}
	}

	return s.probeAllLocked(ctx)
}

// Invalidate clears the active endpoint if it is still endpoint, so the
// next Resolve re-probes. It only has an effect in ModeLazy and reports
// whether the endpoint was cleared.
func (s *Selector) Invalidate(endpoint string) bool {
	if s.mode != ModeLazy || endpoint == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != endpoint {
		return false
	}
	s.active = ""
	logging.Warn("active model endpoint invalidated", "model", models.ModelName(endpoint))
	s.emitChange(models.EventEndpointInvalidated, endpoint)
	return true
}

// Reprobe forgets the current outcome and runs a fresh probe pass. It is
// an operator action; in ModeFixed it returns the fixed endpoint.
func (s *Selector) Reprobe(ctx context.Context) (string, error) {
	if s.mode == ModeFixed {
		return s.Resolve(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != "" {
		prev := s.active
		s.active = ""
		s.emitChange(models.EventEndpointInvalidated, prev)
	}
	s.resolved = false
	return s.probeAllLocked(ctx)
}

func (s *Selector) probeAllLocked(ctx context.Context) (string, error) {
	logging.Info("searching for an active model endpoint", "mode", s.mode, "candidates", len(s.candidates))

	for _, endpoint := range s.candidates {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		if s.probe(ctx, endpoint) {
			s.active = endpoint
			s.resolved = true
			logging.Info("model endpoint selected", "model", models.ModelName(endpoint))
			s.emitChange(models.EventEndpointSelected, endpoint)
			return endpoint, nil
		}
	}

	// A cancelled pass says nothing about the candidates; leave static
	// mode free to try again.
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.resolved = true
	logging.Warn("no model endpoint could be reached")
	s.emitChange(models.EventEndpointUnavailable, "")
	return "", ErrNoneAvailable
}

func (s *Selector) probe(ctx context.Context, endpoint string) bool {
	name := models.ModelName(endpoint)
	logging.Info("probing model endpoint", "model", name)

	probeCtx := ctx
	if s.probeTimeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, s.probeTimeout)
		defer cancel()
	}

	start := s.now()
	code, err := s.prober.Probe(probeCtx, endpoint)
	ok := err == nil && code == http.StatusOK

	result := models.ProbeResult{
		Endpoint:   endpoint,
		Model:      name,
		Success:    ok,
		StatusCode: code,
		LatencyMs:  s.now().Sub(start).Milliseconds(),
		ProbedAt:   start,
	}
	switch {
	case err != nil:
		result.Error = err.Error()
		logging.Warn("model probe failed", "model", name, "err", err)
	case !ok:
		result.Error = fmt.Sprintf("unexpected status %d", code)
		logging.Warn("model probe failed", "model", name, "status", code)
	}

	if s.observer != nil {
		s.observer.ProbeCompleted(result)
	}
	return ok
}

func (s *Selector) emitChange(eventType, endpoint string) {
	if s.observer == nil {
		return
	}
	s.observer.EndpointChanged(models.EndpointEvent{
		Type:     eventType,
		Endpoint: endpoint,
		Model:    models.ModelName(endpoint),
		At:       s.now(),
	})
}
