package webui

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/haivivi/accentid/pkg/accent"
	"github.com/haivivi/accentid/pkg/pipeline"
)

// AnalyzeRequest is the body of POST /api/analyze and of each WebSocket
// message.
type AnalyzeRequest struct {
	URL string `json:"url"`
}

// ErrorResponse is returned for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// Frame is one WebSocket message from the server. Type is "progress",
// "result" or "error".
type Frame struct {
	Type    string           `json:"type"`
	Stage   pipeline.Stage   `json:"stage,omitempty"`
	Status  pipeline.Status  `json:"status,omitempty"`
	Message string           `json:"message,omitempty"`
	Result  *pipeline.Result `json:"result,omitempty"`
	Error   string           `json:"error,omitempty"`
	Kind    string           `json:"kind,omitempty"`
}

type indexData struct {
	Title    string
	Classes  string
	Ready    bool
	URLLabel string
	Button   string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexData{
		Title:    s.cfg.Title,
		URLLabel: urlLabel,
		Button:   buttonText,
		Classes:  "Loading...",
	}
	if bundle, err := s.models.Get(r.Context()); err == nil {
		data.Ready = true
		data.Classes = strings.Join(bundle.Encoder.Classes(), ", ")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	res, err := s.runner.Run(r.Context(), req.URL, nil)
	if err != nil {
		writeJSON(w, StatusFor(err), ErrorResponse{Error: pipeline.Message(err), Kind: kindName(err)})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleAnalyzeWS runs one analysis per received message, in order, and
// streams progress frames before the final result or error frame.
func (s *Server) handleAnalyzeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	slog.Debug("websocket connected", "remote", r.RemoteAddr)

	for {
		var req AnalyzeRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("websocket read error", "error", err)
			}
			return
		}

		var writeErr error
		progress := func(ev pipeline.Event) {
			if writeErr != nil {
				return
			}
			writeErr = conn.WriteJSON(Frame{
				Type:    "progress",
				Stage:   ev.Stage,
				Status:  ev.Status,
				Message: ev.Message,
			})
		}

		res, err := s.runner.Run(ctx, req.URL, progress)
		var frame Frame
		if err != nil {
			frame = Frame{Type: "error", Error: pipeline.Message(err), Kind: kindName(err)}
		} else {
			frame = Frame{Type: "result", Result: res}
		}
		if writeErr == nil {
			writeErr = conn.WriteJSON(frame)
		}
		if writeErr != nil {
			slog.Debug("websocket write error", "error", writeErr)
			return
		}
	}
}

func (s *Server) handleClasses(w http.ResponseWriter, r *http.Request) {
	bundle, err := s.models.Get(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error: pipeline.Message(accent.Wrap(accent.ModelUnavailable, "classes", err)),
			Kind:  accent.ModelUnavailable.String(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"classes": bundle.Encoder.Classes()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	bundle, err := s.models.Get(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"classes": bundle.Encoder.Len(),
	})
}

// StatusFor maps an analysis error to an HTTP status code.
func StatusFor(err error) int {
	switch accent.KindOf(err) {
	case accent.UserInputError:
		return http.StatusBadRequest
	case accent.DownloadFailure, accent.DecodeFailure, accent.FeatureFailure:
		return http.StatusUnprocessableEntity
	case accent.ModelUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func kindName(err error) string {
	if k := accent.KindOf(err); k != accent.KindUnknown {
		return k.String()
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("response write failed", "error", err)
	}
}
