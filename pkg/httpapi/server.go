// Package httpapi serves the local status and metrics endpoint.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/davidalonso/homeassistant-printer-bridge/pkg/metrics"
	"github.com/davidalonso/homeassistant-printer-bridge/pkg/printer"
)

type printerState struct {
	ID       string                 `json:"id"`
	Snapshot printer.Snapshot       `json:"snapshot"`
	Feeders  []printer.FeederStatus `json:"feeders,omitempty"`
}

// Server exposes the latest resolved state of every monitored printer plus
// prometheus metrics on a local listen address.
type Server struct {
	listen  string
	logger  *logrus.Logger
	httpSrv *http.Server

	mutex  sync.RWMutex
	states map[string]printerState
}

func NewServer(listen string, m *metrics.Metrics, logger *logrus.Logger) *Server {
	s := &Server{
		listen: listen,
		logger: logger,
		states: make(map[string]printerState),
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealthz)
	r.Get("/api/printers", s.handleListPrinters)
	r.Get("/api/printers/{id}", s.handleGetPrinter)
	r.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))

	s.httpSrv = &http.Server{
		Addr:              listen,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// UpdatePrinter records the latest tick result for a printer. Called from
// each monitor's publish path.
func (s *Server) UpdatePrinter(id string, snap printer.Snapshot, feeders []printer.FeederStatus) {
	s.mutex.Lock()
	s.states[id] = printerState{ID: id, Snapshot: snap, Feeders: feeders}
	s.mutex.Unlock()
}

// Start begins serving (implements the app Service interface).
func (s *Server) Start() error {
	go func() {
		s.logger.Infof("Status server listening on %s", s.listen)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("Status server failed")
		}
	}()
	return nil
}

func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleListPrinters(w http.ResponseWriter, r *http.Request) {
	s.mutex.RLock()
	list := make([]printerState, 0, len(s.states))
	for _, state := range s.states {
		list = append(list, state)
	}
	s.mutex.RUnlock()

	writeJSON(w, list)
}

func (s *Server) handleGetPrinter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mutex.RLock()
	state, ok := s.states[id]
	s.mutex.RUnlock()

	if !ok {
		http.Error(w, "printer not found", http.StatusNotFound)
		return
	}

	writeJSON(w, state)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
