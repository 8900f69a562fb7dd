// Package server exposes the synthesis workflow over HTTP: voice catalog,
// single-item synthesis, output listing, audio serving and a WebSocket
// endpoint streaming batch progress.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/edgesay/edgesay/internal/appinfo"
	"github.com/edgesay/edgesay/internal/batch"
	"github.com/edgesay/edgesay/internal/config"
	"github.com/edgesay/edgesay/internal/edge"
	"github.com/edgesay/edgesay/internal/speech"
	"github.com/edgesay/edgesay/internal/telemetry"
)

// Server wires the catalog, generator and batch runner to HTTP handlers.
type Server struct {
	cfg     config.Config
	log     *slog.Logger
	catalog *edge.Catalog
	gen     *speech.Generator
	metrics *telemetry.Recorder

	mux        *http.ServeMux
	upgrader   websocket.Upgrader
	httpServer *http.Server
}

// New returns a new Server instance.
func New(cfg config.Config, logger *slog.Logger, catalog *edge.Catalog, gen *speech.Generator, metrics *telemetry.Recorder) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if gen == nil {
		panic("server: generator must not be nil")
	}
	if metrics == nil {
		metrics = telemetry.NewRecorder(logger)
	}

	s := &Server{
		cfg:     cfg,
		log:     logger.With("component", "server"),
		catalog: catalog,
		gen:     gen,
		metrics: metrics,
		mux:     http.NewServeMux(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}

	s.mux.HandleFunc("GET /api/info", s.handleInfo)
	s.mux.HandleFunc("GET /api/voices", s.handleVoices)
	s.mux.HandleFunc("POST /api/speak", s.handleSpeak)
	s.mux.HandleFunc("POST /api/batch/item", s.handleBatchItem)
	s.mux.HandleFunc("GET /api/batch/ws", s.handleBatchWS)
	s.mux.HandleFunc("GET /api/files", s.handleFiles)
	s.mux.HandleFunc("GET /audio/{name}", s.handleAudio)

	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler (used by tests).
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Serve accepts connections on lis until Shutdown is called.
func (s *Server) Serve(lis net.Listener) error {
	return s.httpServer.Serve(lis)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	ok, failed, audioBytes := s.metrics.Counters()
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        appinfo.Info.Name,
		"version":     appinfo.Version(),
		"description": appinfo.Info.Description,
		"synthesized": ok,
		"failed":      failed,
		"audio_bytes": audioBytes,
	})
}

func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "voice catalog unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"voices": s.catalog.Labels()})
}

type speakRequest struct {
	Text  string  `json:"text"`
	Voice *string `json:"voice,omitempty"`
	Rate  *int    `json:"rate,omitempty"`
	Pitch *int    `json:"pitch,omitempty"`
}

func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	var req speakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
		return
	}

	genReq := speech.Request{
		Text:      req.Text,
		Voice:     s.cfg.Voice,
		Rate:      s.cfg.Rate,
		Pitch:     s.cfg.Pitch,
		OutputDir: s.cfg.OutputDir,
		FileName:  speech.FileNameForText(req.Text),
	}
	if req.Voice != nil {
		genReq.Voice = s.resolveVoice(*req.Voice)
	}
	if req.Rate != nil {
		genReq.Rate = *req.Rate
	}
	if req.Pitch != nil {
		genReq.Pitch = *req.Pitch
	}

	path, err := s.gen.Generate(r.Context(), genReq)
	switch {
	case errors.Is(err, speech.ErrEmptyText), errors.Is(err, speech.ErrNoVoice):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.log.Error("synthesis failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"file_name": genReq.FileName,
		"path":      path,
	})
}

type batchRequest struct {
	JSONInput string  `json:"json_input"`
	Voice     *string `json:"voice,omitempty"`
	Rate      *int    `json:"rate,omitempty"`
	Pitch     *int    `json:"pitch,omitempty"`
	Index     *int    `json:"index,omitempty"`
}

// defaults resolves the batch defaults for one request against the config.
func (s *Server) defaults(req batchRequest) batch.Defaults {
	d := batch.Defaults{
		Voice:     s.cfg.Voice,
		Rate:      s.cfg.Rate,
		Pitch:     s.cfg.Pitch,
		OutputDir: s.cfg.OutputDir,
	}
	if req.Voice != nil {
		d.Voice = s.resolveVoice(*req.Voice)
	}
	if req.Rate != nil {
		d.Rate = *req.Rate
	}
	if req.Pitch != nil {
		d.Pitch = *req.Pitch
	}
	return d
}

// resolveVoice maps a catalog display label to its engine short name; values
// the catalog does not know pass through unchanged.
func (s *Server) resolveVoice(voice string) string {
	if s.catalog != nil {
		if name, ok := s.catalog.ShortName(voice); ok {
			return name
		}
	}
	return voice
}

func (s *Server) handleBatchItem(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
		return
	}
	index := 0
	if req.Index != nil {
		index = *req.Index
	}

	runner := batch.NewRunner(s.gen, s.defaults(req), s.log)
	path, err := runner.RunItem(r.Context(), req.JSONInput, index)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": path})
}

// handleBatchWS upgrades the connection, reads one batch request and relays
// every progress event as a JSON message. Event order and cardinality on the
// wire match the runner exactly: one message per item plus a closing one.
func (s *Server) handleBatchWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	var req batchRequest
	if err := conn.ReadJSON(&req); err != nil {
		s.log.Warn("websocket read failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	runner := batch.NewRunner(s.gen, s.defaults(req), s.log)
	for ev := range runner.Run(ctx, req.JSONInput) {
		if err := conn.WriteJSON(ev); err != nil {
			s.log.Warn("websocket write failed", "error", err)
			return
		}
	}

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "batch complete"),
		time.Now().Add(time.Second))
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	opts := batch.ListOptions{
		ReportMissing: r.URL.Query().Get("report_missing") == "true",
	}
	files, missing := batch.ListAudioFiles(s.cfg.OutputDir, r.URL.Query().Get("ordering"), opts)

	resp := map[string]any{"files": files}
	if opts.ReportMissing {
		resp["missing"] = missing
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		writeError(w, http.StatusBadRequest, "invalid file name")
		return
	}
	http.ServeFile(w, r, filepath.Join(s.cfg.OutputDir, name))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
