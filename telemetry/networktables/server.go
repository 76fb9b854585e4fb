package networktables

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/cors"
	"go.viam.com/utils"
	"goji.io"
	"goji.io/pat"

	"go.viam.com/yams/logging"
)

const tablesPrefix = "/v1/tables/"

// Server serves an Instance over HTTP:
//
//	GET /v1/entries              every entry
//	GET /v1/tables/<path>        entries directly under path
//	PUT /v1/tables/<path>/<key>  {"value": <bool|number>} overwrites an existing entry
type Server struct {
	inst   *Instance
	logger logging.Logger

	mu                      sync.Mutex
	httpServer              *http.Server
	listener                net.Listener
	activeBackgroundWorkers sync.WaitGroup
}

// NewServer returns a server for inst. Call Start to begin serving.
func NewServer(inst *Instance, logger logging.Logger) *Server {
	return &Server{inst: inst, logger: logger}
}

type valueBody struct {
	Value any `json:"value"`
}

// Handler returns the HTTP handler, usable without Start.
func (s *Server) Handler() http.Handler {
	mux := goji.NewMux()
	corsHandler := cors.AllowAll()
	mux.Handle(pat.Get("/v1/entries"), corsHandler.Handler(http.HandlerFunc(s.handleEntries)))
	mux.Handle(pat.Get(tablesPrefix+"*"), corsHandler.Handler(http.HandlerFunc(s.handleTable)))
	mux.Handle(pat.Put(tablesPrefix+"*"), corsHandler.Handler(http.HandlerFunc(s.handlePut)))
	mux.Handle(pat.Options("/*"), corsHandler.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))
	return mux
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpServer != nil {
		return errors.New("telemetry server already started")
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listening on %q", addr)
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	httpServer := s.httpServer
	s.activeBackgroundWorkers.Add(1)
	utils.ManagedGo(func() {
		s.logger.Infow("serving telemetry", "addr", listener.Addr().String())
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorw("telemetry server stopped", "error", err)
		}
	}, s.activeBackgroundWorkers.Done)
	return nil
}

// Addr returns the listening address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close stops the server and waits for it to exit.
func (s *Server) Close() error {
	s.mu.Lock()
	httpServer := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()
	if httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := httpServer.Shutdown(ctx)
	s.activeBackgroundWorkers.Wait()
	return err
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.inst.Entries())
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, tablesPrefix)
	s.writeJSON(w, http.StatusOK, s.inst.TableEntries(path))
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	fullKey := cleanPath(strings.TrimPrefix(r.URL.Path, tablesPrefix))
	if !strings.Contains(fullKey, separator) {
		http.Error(w, "expected /v1/tables/<path>/<key>", http.StatusBadRequest)
		return
	}
	var body valueBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, errors.Wrap(err, "decoding body").Error(), http.StatusBadRequest)
		return
	}
	if err := s.inst.Update(fullKey, body.Value); err != nil {
		status := http.StatusConflict
		if _, ok := s.inst.get(fullKey); !ok {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	s.logger.Debugw("tuning write", "key", fullKey, "value", body.Value)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debugw("error writing response", "error", err)
	}
}
