package main

import (
	"context"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/gomitmproxy"
	"github.com/AdguardTeam/gomitmproxy/mitm"
	"github.com/AdguardTeam/urlmatcher"
	"github.com/AdguardTeam/urlmatcher/filterlist"
	"github.com/AdguardTeam/urlmatcher/proxy"
)

// errNotRSA is returned when the CA private key isn't an RSA key.
const errNotRSA errors.Error = "ca private key is not an rsa key"

// runProxy starts the filtering proxy and waits for a termination signal.
func runProxy(logger *slog.Logger, opts *Options, m *urlmatcher.CombinedMatcher) (err error) {
	conf, err := newProxyConfig(opts)
	if err != nil {
		return err
	}

	srv, err := proxy.NewServer(&proxy.Config{
		Logger:      logger.With("component", "proxy"),
		Matcher:     m,
		ProxyConfig: conf,
	})
	if err != nil {
		return fmt.Errorf("creating proxy server: %w", err)
	}

	// The server guards the matcher, so the lists are loaded through it.
	storage := filterlist.New(&filterlist.Config{
		Logger: logger.With("component", "filterlist"),
		Engine: srv,
	})

	err = loadLists(logger, storage, opts.FilterLists)
	if err != nil {
		return err
	}

	err = srv.Start()
	if err != nil {
		return fmt.Errorf("starting proxy server: %w", err)
	}

	logger.Info("proxy started", "addr", conf.ListenAddr)

	waitForSignal(context.Background(), logger)
	srv.Close()

	return nil
}

// newProxyConfig returns the configuration of the MITM proxy.
func newProxyConfig(opts *Options) (conf gomitmproxy.Config, err error) {
	ip := net.ParseIP(opts.ListenAddr)
	if ip == nil {
		return conf, fmt.Errorf("bad listen address %q", opts.ListenAddr)
	}

	conf = gomitmproxy.Config{
		ListenAddr: &net.TCPAddr{IP: ip, Port: opts.ListenPort},
		Username:   opts.ProxyUser,
		Password:   opts.ProxyPassword,
	}

	if opts.CACertPath == "" && opts.CAKeyPath == "" {
		return conf, nil
	}

	conf.MITMConfig, err = newMITMConfig(opts.CACertPath, opts.CAKeyPath)
	if err != nil {
		return conf, fmt.Errorf("creating mitm config: %w", err)
	}

	return conf, nil
}

// newMITMConfig returns the MITM configuration using the CA certificate and
// key at the given paths.
func newMITMConfig(certPath, keyPath string) (c *mitm.Config, err error) {
	tlsCert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("loading root ca: %w", err)
	}

	privateKey, ok := tlsCert.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, errNotRSA
	}

	x509c, err := x509.ParseCertificate(tlsCert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("parsing certificate: %w", err)
	}

	c, err = mitm.NewConfig(x509c, privateKey, nil)
	if err != nil {
		return nil, err
	}

	// Generate certificates valid for 7 days.
	c.SetValidity(time.Hour * 24 * 7)
	c.SetOrganization("AdGuard")

	return c, nil
}
