// Package proxy implements a filtering HTTP proxy that blocks the requests a
// [urlmatcher.CombinedMatcher] decides to block.
package proxy

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/gomitmproxy"
	"github.com/AdguardTeam/urlmatcher"
	"github.com/AdguardTeam/urlmatcher/filterlist"
)

const (
	sessionPropKey    = "session"
	requestBlockedKey = "blocked"
)

// ErrNoListenAddr is returned by [NewServer] when the proxy has no address to
// listen on.
const ErrNoListenAddr errors.Error = "no listen address"

// Config is the configuration structure for [Server].
type Config struct {
	// Logger is used to log the blocked requests and the errors.  It must not
	// be nil.
	Logger *slog.Logger

	// Matcher decides which requests to block.  It must not be nil and must
	// only be modified through the server.
	Matcher *urlmatcher.CombinedMatcher

	// ProxyConfig is the configuration of the MITM proxy.  The handlers are
	// set by the server.
	ProxyConfig gomitmproxy.Config
}

// String implements the [fmt.Stringer] interface for *Config.
func (c *Config) String() (s string) {
	sb := &strings.Builder{}

	_, _ = fmt.Fprintf(sb, "listen addr: %s", c.ProxyConfig.ListenAddr)
	_, _ = fmt.Fprintf(sb, ", mitm: %t", c.ProxyConfig.MITMConfig != nil)
	_, _ = fmt.Fprintf(sb, ", https proxy: %t", c.ProxyConfig.TLSConfig != nil)
	if c.ProxyConfig.Username != "" {
		_, _ = fmt.Fprintf(sb, ", auth user: %s", c.ProxyConfig.Username)
	}

	if c.ProxyConfig.APIHost != "" {
		_, _ = fmt.Fprintf(sb, ", api host: %s", c.ProxyConfig.APIHost)
	}

	return sb.String()
}

// Server is a filtering proxy server.
type Server struct {
	logger *slog.Logger

	// mu protects matcher, which gomitmproxy uses from several goroutines.
	mu      *sync.Mutex
	matcher *urlmatcher.CombinedMatcher

	proxy *gomitmproxy.Proxy
}

// type check
var _ filterlist.Engine = (*Server)(nil)

// NewServer returns a new properly initialized *Server.  c must not be nil.
func NewServer(c *Config) (s *Server, err error) {
	if c.ProxyConfig.ListenAddr == nil {
		return nil, ErrNoListenAddr
	}

	c.Logger.Info("initializing proxy", "config", c)

	s = &Server{
		logger:  c.Logger,
		mu:      &sync.Mutex{},
		matcher: c.Matcher,
	}

	conf := c.ProxyConfig
	conf.OnRequest = s.onRequest
	conf.OnResponse = s.onResponse
	s.proxy = gomitmproxy.NewProxy(conf)

	return s, nil
}

// Start starts the proxy server.
func (s *Server) Start() (err error) {
	return s.proxy.Start()
}

// Close stops the proxy server.
func (s *Server) Close() {
	s.proxy.Close()
}

// Add implements the [filterlist.Engine] interface for *Server.
func (s *Server) Add(f urlmatcher.Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.matcher.Add(f)
}

// Remove implements the [filterlist.Engine] interface for *Server.
func (s *Server) Remove(f urlmatcher.Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.matcher.Remove(f)
}
