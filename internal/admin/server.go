// Package admin exposes the twin over HTTP: a small status page and a
// JSON API for commands, mode switches, and metrics.
package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"dronetwin/internal/analysis"
	"dronetwin/internal/bridge"
	"dronetwin/internal/twin"
)

//go:embed templates/index.html
var content embed.FS

// Server serves the admin UI and API for one bridge.
type Server struct {
	Bridge   *bridge.Bridge
	Analyzer *analysis.Analyzer
	tpl      *template.Template
}

// NewServer builds the admin server around a running bridge.
func NewServer(b *bridge.Bridge, an *analysis.Analyzer) *Server {
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	return &Server{Bridge: b, Analyzer: an, tpl: tpl}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/state", s.handleState)
	mux.HandleFunc("/session", s.handleSession)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/command", s.handleCommand)
	mux.HandleFunc("/outcome", s.handleOutcome)
	mux.HandleFunc("/mode", s.handleMode)
	mux.HandleFunc("/reset", s.handleReset)
	mux.HandleFunc("/healthz", s.handleHealthz)
	return mux
}

// Start runs the HTTP server until ctx is done.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.routes()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return srv.ListenAndServe()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.Bridge.CurrentSnapshot()
	data := struct {
		Snapshot twin.Snapshot
		Metrics  analysis.Metrics
	}{
		Snapshot: snap,
		Metrics:  s.Analyzer.Metrics(),
	}
	_ = s.tpl.Execute(w, data)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Bridge.CurrentSnapshot())
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Bridge.Session())
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Analyzer.Metrics())
}

// commandRequest is the POST body accepted by /command.
type commandRequest struct {
	Kind     twin.CommandKind `json:"kind"`
	Move     *twin.Move       `json:"move,omitempty"`
	Rotate   *twin.Rotate     `json:"rotate,omitempty"`
	SetSpeed *twin.SetSpeed   `json:"set_speed,omitempty"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cmd := twin.NewCommand(req.Kind)
	cmd.Move = req.Move
	cmd.Rotate = req.Rotate
	cmd.SetSpeed = req.SetSpeed
	if err := validateRequest(cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id, err := s.Bridge.Submit(cmd)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, twin.ErrQueueFull) {
			status = http.StatusTooManyRequests
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, map[string]string{"correlation_id": id})
}

func (s *Server) handleOutcome(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}
	out, ok := s.Bridge.Outcome(id)
	if !ok {
		http.Error(w, "outcome pending or expired", http.StatusNotFound)
		return
	}
	writeJSON(w, out)
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Mode twin.Mode `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Mode != twin.ModeSimulation && req.Mode != twin.ModeConnected {
		http.Error(w, fmt.Sprintf("unknown mode %q", req.Mode), http.StatusBadRequest)
		return
	}
	if err := s.Bridge.RequestModeSwitch(req.Mode); err != nil {
		status := http.StatusConflict
		if !errors.Is(err, twin.ErrNotGrounded) {
			status = http.StatusBadGateway
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, s.Bridge.Session())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	if err := s.Bridge.ResetSession(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, s.Bridge.CurrentSnapshot())
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	session := s.Bridge.Session()
	writeJSON(w, map[string]any{
		"mode":   session.Mode,
		"link":   session.Status,
		"seq":    s.Bridge.CurrentSnapshot().State.Seq,
		"frozen": !session.Linked(),
	})
}

func validateRequest(cmd twin.Command) error {
	switch cmd.Kind {
	case twin.CmdTakeOff, twin.CmdLand, twin.CmdEmergencyStop:
		return nil
	case twin.CmdMove:
		if cmd.Move == nil {
			return fmt.Errorf("move command requires a move payload")
		}
	case twin.CmdRotate:
		if cmd.Rotate == nil {
			return fmt.Errorf("rotate command requires a rotate payload")
		}
	case twin.CmdSetSpeed:
		if cmd.SetSpeed == nil {
			return fmt.Errorf("set_speed command requires a set_speed payload")
		}
	default:
		return fmt.Errorf("unknown command kind %q", cmd.Kind)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
