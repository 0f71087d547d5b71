package verify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/enbility/zeroconf/v3"
	"go.uber.org/multierr"

	"github.com/usbhost/usbhost-go/pkg/registry"
)

// mDNS constants.
const (
	// ServiceType is the DNS-SD service type of verification servers.
	ServiceType = "_usbverify._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// TXTKeyService prefixes each TXT record naming a served component.
	TXTKeyService = "svc="
)

// ServerConfig configures a verification Server.
type ServerConfig struct {
	// Address to listen on (e.g. ":7531").
	Address string

	// CheckTimeout bounds a single IsDeviceSupported call. Zero means no
	// bound beyond the connection lifetime.
	CheckTimeout time.Duration

	// Instance is the mDNS instance name. Empty uses the host name.
	Instance string

	// TTL for mDNS records. Zero uses the zeroconf default.
	TTL time.Duration

	// Interface restricts mDNS advertisement to one network interface.
	Interface string

	Logger *slog.Logger
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Address:      ":7531",
		CheckTimeout: 5 * time.Second,
		TTL:          2 * time.Minute,
	}
}

// Server exposes registered checkers over TCP.
type Server struct {
	config ServerConfig
	logger *slog.Logger

	mu       sync.RWMutex
	checkers map[string]Checker
	listener net.Listener
	conns    map[net.Conn]struct{}
	mdns     *zeroconf.Server

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a server. Register checkers before calling Start.
func NewServer(config ServerConfig) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		config:   config,
		logger:   logger,
		checkers: make(map[string]Checker),
		conns:    make(map[net.Conn]struct{}),
	}
}

// Register serves checker under service.
func (s *Server) Register(service registry.Component, checker Checker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkers[service.Flatten()] = checker
}

// Services returns the flattened names of the served components, sorted.
func (s *Server) Services() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.checkers))
	for name := range s.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start listens and begins accepting connections.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return errors.New("verify: server already running")
	}

	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("verify: listen: %w", err)
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.listener = ln
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()

	s.logger.Info("verification server listening", "addr", ln.Addr().String(), "services", s.Services())
	return nil
}

// Addr returns the listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Advertise announces the server over mDNS. One TXT record per served
// component lets browsers map components to this server.
func (s *Server) Advertise() error {
	addr, ok := s.Addr().(*net.TCPAddr)
	if !ok {
		return errors.New("verify: server not started")
	}

	instance := s.config.Instance
	if instance == "" {
		instance = "usbverify"
	}

	services := s.Services()
	txt := make([]string, 0, len(services))
	for _, name := range services {
		txt = append(txt, TXTKeyService+name)
	}

	var opts []zeroconf.ServerOption
	if s.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(s.config.TTL.Seconds())))
	}

	var ifaces []net.Interface
	if s.config.Interface != "" {
		iface, err := net.InterfaceByName(s.config.Interface)
		if err != nil {
			return fmt.Errorf("verify: interface %q: %w", s.config.Interface, err)
		}
		ifaces = []net.Interface{*iface}
	}

	server, err := zeroconf.Register(instance, ServiceType, Domain, addr.Port, txt, ifaces, opts...)
	if err != nil {
		return fmt.Errorf("verify: register mDNS service: %w", err)
	}

	s.mu.Lock()
	if s.mdns != nil {
		s.mdns.Shutdown()
	}
	s.mdns = server
	s.mu.Unlock()

	s.logger.Info("verification server advertised", "instance", instance, "port", addr.Port)
	return nil
}

// Close stops advertising, closes the listener and all connections, and
// waits for in-flight checks to return.
func (s *Server) Close() error {
	if !s.running.Swap(false) {
		return nil
	}
	s.cancel()

	var err error
	s.mu.Lock()
	if s.mdns != nil {
		s.mdns.Shutdown()
		s.mdns = nil
	}
	err = multierr.Append(err, s.listener.Close())
	for c := range s.conns {
		err = multierr.Append(err, c.Close())
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.running.Load() {
				s.logger.Warn("accept failed", "error", err)
				continue
			}
			return
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

// serveConn answers requests on conn. Checks run concurrently; responses are
// matched to requests by ID, so they may be written out of order.
func (s *Server) serveConn(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	var checks sync.WaitGroup
	defer checks.Wait()

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	f := newFramer(conn)

	for {
		var req Request
		if err := f.readMessage(&req); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logger.Debug("verification connection closed", "remote", conn.RemoteAddr().String(), "error", err)
			}
			return
		}

		checks.Add(1)
		go func() {
			defer checks.Done()
			resp := s.check(ctx, req)
			if err := f.writeMessage(resp); err != nil {
				s.logger.Debug("write response failed", "id", req.ID, "error", err)
			}
		}()
	}
}

func (s *Server) check(ctx context.Context, req Request) Response {
	resp := Response{ID: req.ID}

	s.mu.RLock()
	checker, ok := s.checkers[req.Service]
	s.mu.RUnlock()
	if !ok {
		resp.Error = fmt.Sprintf("%v: %s", ErrUnknownService, req.Service)
		return resp
	}

	if s.config.CheckTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.CheckTimeout)
		defer cancel()
	}

	supported, err := checker.IsDeviceSupported(ctx, req.Device)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	resp.Supported = supported

	s.logger.Debug("device checked",
		"service", req.Service,
		"device", req.Device.String(),
		"supported", supported)
	return resp
}

// servicesFromTXT extracts served component names from TXT records.
func servicesFromTXT(txt []string) []string {
	var names []string
	for _, rec := range txt {
		if name, ok := strings.CutPrefix(rec, TXTKeyService); ok && name != "" {
			names = append(names, name)
		}
	}
	return names
}
