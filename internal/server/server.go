package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/btscan/internal/discovery"
	"github.com/muurk/btscan/internal/logging"
	"github.com/muurk/btscan/internal/session"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Control is the part of session.Controller the API drives.
type Control interface {
	Start()
	Stop()
	Toggle()
	State() session.State
	Snapshot() []discovery.Device
	Stats() session.Stats
}

// Config holds the server configuration
type Config struct {
	Listen   string
	CertPath string // TLS is enabled when both paths are set
	KeyPath  string

	// Hub streams events to WebSocket clients. New creates one when nil.
	Hub *Hub
}

// Server exposes a Control over HTTP and streams session events to
// WebSocket clients through its Hub.
type Server struct {
	config    Config
	ctrl      Control
	hub       *Hub
	tlsConfig *tls.Config

	mu         sync.Mutex
	listener   net.Listener
	httpServer *http.Server
}

// New creates a server. Register Hub() as an observer of the controller so
// WebSocket clients receive its events.
func New(config Config, ctrl Control) (*Server, error) {
	s := &Server{
		config: config,
		ctrl:   ctrl,
		hub:    config.Hub,
	}
	if s.hub == nil {
		s.hub = NewHub()
	}
	if config.CertPath != "" || config.KeyPath != "" {
		tlsConfig, err := NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, err
		}
		s.tlsConfig = tlsConfig
	}
	return s, nil
}

// Hub returns the WebSocket hub, a session.Observer.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Addr returns the listening address, or "" before Start has bound it.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start listens and serves until ctx is canceled, then shuts down.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}
	if s.tlsConfig != nil {
		logging.Info("TLS Configuration", zap.Any("tls_info", GetTLSInfo(s.tlsConfig)))
		listener = tls.NewListener(listener, s.tlsConfig)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	s.mu.Lock()
	s.listener = listener
	s.httpServer = srv
	s.mu.Unlock()

	logging.Info("API server listening",
		zap.String("addr", listener.Addr().String()),
		zap.Bool("tls", s.tlsConfig != nil),
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown disconnects WebSocket clients and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down API server...")

	// Hijacked WebSocket connections are not tracked by http.Server.
	s.hub.Close()

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Shutdown timeout, forcing close", zap.Error(err))
		return srv.Close()
	}
	return nil
}
