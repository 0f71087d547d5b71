package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/usbhost/usbhost-go/internal/looper"
	"github.com/usbhost/usbhost-go/pkg/aoap"
	"github.com/usbhost/usbhost-go/pkg/launch"
	"github.com/usbhost/usbhost-go/pkg/log"
	"github.com/usbhost/usbhost-go/pkg/registry"
	"github.com/usbhost/usbhost-go/pkg/settings"
	"github.com/usbhost/usbhost-go/pkg/usbdev"
	"github.com/usbhost/usbhost-go/pkg/usbio"
	"github.com/usbhost/usbhost-go/pkg/verify"
)

// Resolver runs resolution sessions and dispatches devices to handlers.
type Resolver struct {
	config   Config
	logger   *slog.Logger
	events   log.Logger
	looper   *looper.Looper
	service  usbio.Service
	registry registry.Registry
	binder   verify.Binder
	launcher launch.Launcher
	callback Callback

	stopped atomic.Bool

	// Sessions cancelled by Cancel whose cleanup has not run yet. Guarded
	// separately so Cancel takes effect before its message is handled.
	cancelMu  sync.Mutex
	cancelled map[uuid.UUID]struct{}

	// Owned by the looper.
	sessions map[uuid.UUID]*session
}

// session is one resolution in progress.
type session struct {
	id       uuid.UUID
	dev      usbdev.Device
	conn     usbio.Conn
	accepted []settings.DeviceSettings
	queue    []registry.Candidate
	attempt  uint32
	current  *probe
}

// probe is the verification of a single accessory candidate.
type probe struct {
	attempt   uint32
	candidate registry.Candidate
	service   registry.Component
	binding   verify.Binding
	timeout   *looper.Delayed
	cancel    context.CancelFunc
	checking  bool
	started   time.Time
}

// New creates a resolver.
func New(config Config, deps Deps) (*Resolver, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{
		config:    config,
		logger:    logger,
		events:    log.OrNoop(config.EventLogger),
		looper:    deps.Looper,
		service:   deps.Service,
		registry:  deps.Registry,
		binder:    deps.Binder,
		launcher:  deps.Launcher,
		callback:  deps.Callback,
		cancelled: make(map[uuid.UUID]struct{}),
		sessions:  make(map[uuid.UUID]*session),
	}, nil
}

// Resolve starts a session for dev and returns its ID. The result is
// delivered through Callback unless the session is cancelled first.
func (r *Resolver) Resolve(dev usbdev.Device) (uuid.UUID, error) {
	if r.stopped.Load() {
		return uuid.Nil, ErrStopped
	}
	id := uuid.New()
	if !r.post(resolveMsg{session: id, dev: dev}) {
		return uuid.Nil, ErrStopped
	}
	return id, nil
}

// Cancel abandons a session. No callback for it is delivered once Cancel
// returns; its resources are released on the looper.
func (r *Resolver) Cancel(id uuid.UUID) {
	r.cancelMu.Lock()
	r.cancelled[id] = struct{}{}
	r.cancelMu.Unlock()

	r.post(cancelMsg{session: id})
}

// Stop cancels every session after the work already queued and rejects
// further Resolve calls. The looper itself keeps running.
func (r *Resolver) Stop(ctx context.Context) error {
	r.stopped.Store(true)
	return r.looper.Sync(ctx, func() {
		for id := range r.sessions {
			r.cancelSession(id)
		}
	})
}

// Sessions returns the number of sessions in progress. It must be called on
// the looper.
func (r *Resolver) Sessions() int {
	return len(r.sessions)
}

func (r *Resolver) post(msg any) bool {
	return r.looper.Post(func() { r.handle(msg) })
}

func (r *Resolver) handle(msg any) {
	switch m := msg.(type) {
	case resolveMsg:
		r.startSession(m.session, m.dev)
	case serviceConnectedMsg:
		r.serviceConnected(m)
	case serviceDisconnectedMsg:
		if s, p := r.lookup(m.session, m.attempt); p != nil {
			r.finishProbe(s, p, log.ProbeDisconnected)
		}
	case serviceTimeoutMsg:
		if s, p := r.lookup(m.session, m.attempt); p != nil {
			r.logger.Info("verification service timed out", "service", p.service.Flatten(), "checking", p.checking)
			r.finishProbe(s, p, log.ProbeTimeout)
		}
	case checkCompletedMsg:
		r.checkCompleted(m)
	case completeDispatchMsg:
		r.callback.OnDeviceDispatched(m.dev, m.handler)
	case cancelMsg:
		r.cancelSession(m.session)
		r.cancelMu.Lock()
		delete(r.cancelled, m.session)
		r.cancelMu.Unlock()
	default:
		r.logger.Error("unknown resolver message", "type", fmt.Sprintf("%T", msg))
	}
}

func (r *Resolver) isCancelled(id uuid.UUID) bool {
	r.cancelMu.Lock()
	defer r.cancelMu.Unlock()
	_, ok := r.cancelled[id]
	return ok
}

func (r *Resolver) startSession(id uuid.UUID, dev usbdev.Device) {
	if r.isCancelled(id) {
		return
	}
	logger := r.logger.With("session", id.String(), "device", dev.Name)

	ctx, cancel := context.WithTimeout(context.Background(), r.config.ConnectTimeout)
	conn, err := r.service.Open(ctx, dev)
	cancel()
	if err != nil {
		logger.Warn("open device failed", "error", err)
		r.emitError(id, dev, err, "open device")
		r.callback.OnResolveFailed(id, dev, err)
		return
	}

	s := &session{id: id, dev: dev, conn: conn}
	r.sessions[id] = s
	r.emitSession(s, "", "RESOLVING", "")

	s.accepted = lo.Map(r.registry.QueryNativeCandidates(dev), func(c registry.Candidate, _ int) settings.DeviceSettings {
		ds := settings.FromDevice(dev)
		ds.Handler = c.Activity.Component
		return ds
	})

	if !aoap.IsAccessoryMode(dev) && conn.SupportsAccessoryMode() {
		s.queue = r.registry.QueryAccessoryCandidates(registry.ActionDeviceAttached)
	}
	logger.Debug("resolution started", "native", len(s.accepted), "accessory_candidates", len(s.queue))

	r.next(s)
}

// next binds the next queued candidate's verification service, or finishes
// the session when the queue is empty.
func (r *Resolver) next(s *session) {
	for len(s.queue) > 0 {
		c := s.queue[0]
		s.queue = s.queue[1:]
		s.attempt++

		p := &probe{
			attempt:   s.attempt,
			candidate: c,
			started:   r.looper.Clock().Now(),
		}

		svc, err := registry.ParseComponent(c.Filter.Accessory.Service)
		if err != nil {
			r.logger.Debug("accessory filter has no usable service", "handler", c.Activity.Component.Flatten(), "error", err)
			r.emitProbe(s, p, log.ProbeBindFailed)
			continue
		}
		p.service = svc

		id, attempt := s.id, p.attempt
		binding, err := r.binder.Bind(svc, verify.Callbacks{
			OnConnected: func(checker verify.Checker) {
				r.post(serviceConnectedMsg{session: id, attempt: attempt, checker: checker})
			},
			OnDisconnected: func() {
				r.post(serviceDisconnectedMsg{session: id, attempt: attempt})
			},
		})
		if err != nil {
			r.logger.Debug("bind verification service failed", "service", svc.Flatten(), "error", err)
			r.emitProbe(s, p, log.ProbeBindFailed)
			continue
		}

		p.binding = binding
		p.timeout = r.armTimeout(id, attempt)
		s.current = p
		return
	}

	r.finishSession(s)
}

func (r *Resolver) armTimeout(id uuid.UUID, attempt uint32) *looper.Delayed {
	return r.looper.PostDelayed(r.config.ConnectTimeout, func() {
		r.handle(serviceTimeoutMsg{session: id, attempt: attempt})
	})
}

// lookup returns the session and its current probe if msg is not stale.
func (r *Resolver) lookup(id uuid.UUID, attempt uint32) (*session, *probe) {
	s := r.sessions[id]
	if s == nil || s.current == nil || s.current.attempt != attempt {
		r.logger.Debug("dropping stale probe message", "session", id.String(), "attempt", attempt)
		return nil, nil
	}
	return s, s.current
}

func (r *Resolver) serviceConnected(m serviceConnectedMsg) {
	s, p := r.lookup(m.session, m.attempt)
	if p == nil || p.checking {
		return
	}
	p.timeout.Stop()
	p.checking = true

	// The answer gets the same bound as the connection did.
	ctx, cancel := context.WithTimeout(context.Background(), r.config.ConnectTimeout)
	p.cancel = cancel
	p.timeout = r.armTimeout(s.id, p.attempt)

	dev, id, attempt := s.dev, s.id, p.attempt
	go func() {
		supported, err := m.checker.IsDeviceSupported(ctx, dev)
		r.post(checkCompletedMsg{session: id, attempt: attempt, supported: supported, err: err})
	}()
}

func (r *Resolver) checkCompleted(m checkCompletedMsg) {
	s, p := r.lookup(m.session, m.attempt)
	if p == nil {
		return
	}
	switch {
	case m.err != nil:
		r.logger.Warn("verification check failed", "service", p.service.Flatten(), "error", m.err)
		r.finishProbe(s, p, log.ProbeCheckFailed)
	case m.supported:
		ds := settings.FromDevice(s.dev)
		ds.Handler = p.candidate.Activity.Component
		ds.Accessory = true
		s.accepted = append(s.accepted, ds)
		r.finishProbe(s, p, log.ProbeAccepted)
	default:
		r.finishProbe(s, p, log.ProbeRejected)
	}
}

// finishProbe releases the current probe and moves to the next candidate.
func (r *Resolver) finishProbe(s *session, p *probe, outcome log.ProbeOutcome) {
	r.releaseProbe(p)
	s.current = nil
	r.emitProbe(s, p, outcome)
	r.next(s)
}

func (r *Resolver) releaseProbe(p *probe) {
	p.timeout.Stop()
	if p.cancel != nil {
		p.cancel()
	}
	if p.binding != nil {
		p.binding.Unbind()
	}
}

func (r *Resolver) finishSession(s *session) {
	r.closeConn(s)
	delete(r.sessions, s.id)
	r.emitSession(s, "RESOLVING", "RESOLVED", fmt.Sprintf("%d handlers", len(s.accepted)))

	if r.isCancelled(s.id) {
		return
	}
	r.callback.OnHandlersResolved(s.id, s.dev, s.accepted)
}

func (r *Resolver) cancelSession(id uuid.UUID) {
	s := r.sessions[id]
	if s == nil {
		return
	}
	if s.current != nil {
		r.releaseProbe(s.current)
		s.current = nil
	}
	s.queue = nil
	r.closeConn(s)
	delete(r.sessions, id)
	r.emitSession(s, "RESOLVING", "CANCELLED", "")
}

func (r *Resolver) closeConn(s *session) {
	if err := s.conn.Close(); err != nil {
		r.logger.Debug("close device connection", "device", s.dev.Name, "error", err)
	}
}

func (r *Resolver) emit(e log.Event) {
	e.Timestamp = r.looper.Clock().Now()
	e.Layer = log.LayerResolver
	r.events.Log(e)
}

func (r *Resolver) emitSession(s *session, from, to, reason string) {
	r.emit(log.Event{
		SessionID:    s.id.String(),
		Category:     log.CategoryState,
		DeviceName:   s.dev.Name,
		SerialNumber: s.dev.SerialNumber,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySession,
			OldState: from,
			NewState: to,
			Reason:   reason,
		},
	})
}

func (r *Resolver) emitProbe(s *session, p *probe, outcome log.ProbeOutcome) {
	d := r.looper.Clock().Since(p.started)
	r.emit(log.Event{
		SessionID:    s.id.String(),
		Category:     log.CategoryProbe,
		DeviceName:   s.dev.Name,
		SerialNumber: s.dev.SerialNumber,
		Probe: &log.ProbeEvent{
			Service:  p.candidate.Filter.Accessory.Service,
			Handler:  p.candidate.Activity.Component.Flatten(),
			Attempt:  p.attempt,
			Outcome:  outcome,
			Duration: &d,
		},
	})
}

func (r *Resolver) emitError(id uuid.UUID, dev usbdev.Device, err error, op string) {
	e := log.Event{
		Category:     log.CategoryError,
		DeviceName:   dev.Name,
		SerialNumber: dev.SerialNumber,
		Error: &log.ErrorEventData{
			Layer:   log.LayerResolver,
			Message: err.Error(),
			Context: op,
		},
	}
	if id != uuid.Nil {
		e.SessionID = id.String()
	}
	r.emit(e)
}
