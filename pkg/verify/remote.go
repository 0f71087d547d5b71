package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
	"github.com/google/uuid"

	"github.com/usbhost/usbhost-go/pkg/registry"
	"github.com/usbhost/usbhost-go/pkg/usbdev"
)

// RemoteConfig configures a RemoteBinder.
type RemoteConfig struct {
	// Endpoints maps flattened component names to "host:port".
	Endpoints map[string]string

	// DialTimeout bounds connection establishment.
	DialTimeout time.Duration

	// Browse enables mDNS discovery of servers. Discovered endpoints are
	// used for components missing from Endpoints.
	Browse bool

	// Interface restricts mDNS browsing to one network interface.
	Interface string

	Logger *slog.Logger
}

// DefaultRemoteConfig returns the default remote binder configuration.
func DefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{
		DialTimeout: 3 * time.Second,
	}
}

// RemoteBinder binds to verification services served by a Server.
type RemoteBinder struct {
	config RemoteConfig
	logger *slog.Logger

	mu         sync.RWMutex
	discovered map[string]string
	instances  map[string][]string
}

// NewRemoteBinder creates a remote binder.
func NewRemoteBinder(config RemoteConfig) *RemoteBinder {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = DefaultRemoteConfig().DialTimeout
	}
	return &RemoteBinder{
		config:     config,
		logger:     logger,
		discovered: make(map[string]string),
		instances:  make(map[string][]string),
	}
}

// Lookup returns the endpoint serving service.
func (b *RemoteBinder) Lookup(service registry.Component) (string, bool) {
	name := service.Flatten()
	if addr, ok := b.config.Endpoints[name]; ok {
		return addr, true
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	addr, ok := b.discovered[name]
	return addr, ok
}

// Bind implements Binder. Components with no known endpoint fail
// synchronously with ErrUnknownService.
func (b *RemoteBinder) Bind(service registry.Component, cb Callbacks) (Binding, error) {
	addr, ok := b.Lookup(service)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownService, service)
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.config.DialTimeout)
	rb := &remoteBinding{
		service: service.Flatten(),
		cb:      cb,
		logger:  b.logger.With("service", service.Flatten(), "addr", addr),
		cancel:  cancel,
		pending: make(map[string]chan Response),
		closed:  make(chan struct{}),
	}
	go rb.connect(ctx, addr)
	return rb, nil
}

// Run browses for servers until ctx is done. It returns immediately when
// browsing is disabled.
func (b *RemoteBinder) Run(ctx context.Context) error {
	if !b.config.Browse {
		return nil
	}

	var opts []zeroconf.ClientOption
	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err != nil {
			return fmt.Errorf("verify: interface %q: %w", b.config.Interface, err)
		}
		opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
	}

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)
	browseErr := make(chan error, 1)
	go func() {
		browseErr <- zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...)
	}()

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				entries = nil
				continue
			}
			b.addEntry(entry)
		case entry, ok := <-removed:
			if !ok {
				removed = nil
				continue
			}
			b.removeEntry(entry)
		case err := <-browseErr:
			if err != nil && ctx.Err() == nil {
				return fmt.Errorf("verify: browse: %w", err)
			}
			<-ctx.Done()
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func (b *RemoteBinder) addEntry(entry *zeroconf.ServiceEntry) {
	var ip net.IP
	switch {
	case len(entry.AddrIPv4) > 0:
		ip = entry.AddrIPv4[0]
	case len(entry.AddrIPv6) > 0:
		ip = entry.AddrIPv6[0]
	default:
		return
	}
	addr := net.JoinHostPort(ip.String(), strconv.Itoa(entry.Port))
	names := servicesFromTXT(entry.Text)

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, name := range names {
		b.discovered[name] = addr
	}
	b.instances[entry.Instance] = names
	b.logger.Debug("verification server discovered", "instance", entry.Instance, "addr", addr, "services", names)
}

func (b *RemoteBinder) removeEntry(entry *zeroconf.ServiceEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, name := range b.instances[entry.Instance] {
		delete(b.discovered, name)
	}
	delete(b.instances, entry.Instance)
	b.logger.Debug("verification server removed", "instance", entry.Instance)
}

// remoteBinding is both the Binding handle and the Checker handed to
// OnConnected.
type remoteBinding struct {
	service string
	cb      Callbacks
	logger  *slog.Logger
	cancel  context.CancelFunc

	// cbMu is held while a callback runs so Unbind waits for it.
	cbMu    sync.Mutex
	unbound bool

	mu      sync.Mutex
	conn    net.Conn
	f       *framer
	pending map[string]chan Response
	closed  chan struct{}
}

func (rb *remoteBinding) connect(ctx context.Context, addr string) {
	defer rb.cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		rb.logger.Debug("dial verification service failed", "error", err)
		rb.deliver(rb.cb.disconnected)
		return
	}

	rb.mu.Lock()
	if rb.isUnbound() {
		rb.mu.Unlock()
		conn.Close()
		return
	}
	rb.conn = conn
	rb.f = newFramer(conn)
	rb.mu.Unlock()

	go rb.readLoop()
	rb.deliver(func() { rb.cb.connected(rb) })
}

func (rb *remoteBinding) readLoop() {
	for {
		var resp Response
		if err := rb.f.readMessage(&resp); err != nil {
			rb.shutdown()
			if !errors.Is(err, net.ErrClosed) {
				rb.logger.Debug("verification connection lost", "error", err)
			}
			rb.deliver(rb.cb.disconnected)
			return
		}

		rb.mu.Lock()
		ch, ok := rb.pending[resp.ID]
		delete(rb.pending, resp.ID)
		rb.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

// IsDeviceSupported implements Checker.
func (rb *remoteBinding) IsDeviceSupported(ctx context.Context, dev usbdev.Device) (bool, error) {
	req := Request{ID: uuid.NewString(), Service: rb.service, Device: dev}
	ch := make(chan Response, 1)

	rb.mu.Lock()
	if rb.f == nil || rb.isClosed() {
		rb.mu.Unlock()
		return false, ErrDisconnected
	}
	f := rb.f
	rb.pending[req.ID] = ch
	rb.mu.Unlock()

	defer func() {
		rb.mu.Lock()
		delete(rb.pending, req.ID)
		rb.mu.Unlock()
	}()

	if err := f.writeMessage(req); err != nil {
		// The peer may be gone before readLoop has noticed.
		var opErr *net.OpError
		if rb.isClosed() || errors.As(err, &opErr) {
			rb.shutdown()
			return false, fmt.Errorf("%w: %v", ErrDisconnected, err)
		}
		return false, err
	}

	select {
	case resp := <-ch:
		if resp.Error != "" {
			return false, fmt.Errorf("verify: %s: %s", rb.service, resp.Error)
		}
		return resp.Supported, nil
	case <-rb.closed:
		return false, ErrDisconnected
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Unbind implements Binding.
func (rb *remoteBinding) Unbind() {
	rb.cbMu.Lock()
	rb.unbound = true
	rb.cbMu.Unlock()

	rb.cancel()
	rb.shutdown()
}

func (rb *remoteBinding) isUnbound() bool {
	rb.cbMu.Lock()
	defer rb.cbMu.Unlock()
	return rb.unbound
}

func (rb *remoteBinding) deliver(fn func()) {
	rb.cbMu.Lock()
	defer rb.cbMu.Unlock()
	if rb.unbound {
		return
	}
	fn()
}

func (rb *remoteBinding) isClosed() bool {
	select {
	case <-rb.closed:
		return true
	default:
		return false
	}
}

// shutdown closes the connection once.
func (rb *remoteBinding) shutdown() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	select {
	case <-rb.closed:
		return
	default:
	}
	close(rb.closed)
	if rb.conn != nil {
		rb.conn.Close()
	}
}

// Compile-time interface satisfaction checks.
var (
	_ Binder  = (*RemoteBinder)(nil)
	_ Checker = (*remoteBinding)(nil)
)
