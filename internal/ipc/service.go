// Package ipc is the request/response boundary in front of the store. Every
// call names a channel and carries a JSON payload; every result is an
// Envelope. Nothing that crosses this boundary panics or returns a Go error.
package ipc

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/processflow/internal/sqlite"
)

// Envelope is the uniform channel result.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Error   string `json:"error,omitempty"`
}

func ok(data any) Envelope { return Envelope{Success: true, Data: data} }

func failed(err error) Envelope { return Envelope{Error: err.Error()} }

// handler serves one channel.
type handler func(payload json.RawMessage) (any, error)

// Service dispatches channels to the store.
type Service struct {
	store    *sqlite.Store
	log      zerolog.Logger
	check    *payloadValidator
	channels map[string]handler
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger for failed calls.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService builds a Service over store.
func NewService(store *sqlite.Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		log:   zerolog.Nop(),
		check: newPayloadValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.channels = map[string]handler{}
	s.registerProcesses()
	s.registerNotes()
	s.registerChecklists()
	s.registerMedia()
	s.registerApp()
	return s
}

// Channels returns every channel name in sorted order.
func (s *Service) Channels() []string {
	names := make([]string, 0, len(s.channels))
	for name := range s.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call runs channel with payload. Errors, unknown channels and panics all
// come back as a failed Envelope.
func (s *Service) Call(channel string, payload json.RawMessage) (env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Str("channel", channel).Interface("panic", r).Msg("ipc call panicked")
			env = failed(fmt.Errorf("internal error in %s: %v", channel, r))
		}
	}()

	h, found := s.channels[channel]
	if !found {
		s.log.Debug().Str("channel", channel).Msg("unknown channel")
		return failed(fmt.Errorf("unknown channel %q", channel))
	}
	data, err := h(payload)
	if err != nil {
		s.log.Debug().Str("channel", channel).Err(err).Msg("ipc call failed")
		return failed(err)
	}
	return ok(data)
}

func (s *Service) register(channel string, h handler) {
	s.channels[channel] = h
}

// bind returns a handler that decodes and validates a P before calling fn.
func bind[P any](s *Service, fn func(P) (any, error)) handler {
	return func(raw json.RawMessage) (any, error) {
		var p P
		if err := s.check.decode(raw, &p); err != nil {
			return nil, err
		}
		return fn(p)
	}
}

// done adapts an operation without a result; the envelope data is null.
func done(err error) (any, error) {
	return nil, err
}
