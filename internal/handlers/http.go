package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gookit/slog"

	"github.com/simone-trubian/baldr/gatekeeper/internal/core/domain"
	"github.com/simone-trubian/baldr/gatekeeper/internal/core/ports"
	"github.com/simone-trubian/baldr/gatekeeper/internal/obs"
	"github.com/simone-trubian/baldr/gatekeeper/internal/relay"
)

const (
	MessageOutOfScope = "Out of scope"
	MessageUsage      = "Send POST with JSON {prompt: ...}"

	maxBodyBytes = 64 << 10
)

type HTTPHandler struct {
	service ports.ProxyServicePort
}

func NewHTTPHandler(s ports.ProxyServicePort) *HTTPHandler {
	return &HTTPHandler{service: s}
}

// Routes mounts every endpoint behind the CORS, request-ID and access-log
// middleware.
func (h *HTTPHandler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.HandleIndex)
	mux.HandleFunc("GET /api/prompt", h.HandleUsage)
	mux.HandleFunc("POST /api/prompt", h.HandlePrompt)
	return CORS(RequestID(AccessLog(mux)))
}

func (h *HTTPHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("Hello World!"))
}

func (h *HTTPHandler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusOK, domain.Status{OK: true, Message: MessageUsage})
}

// HandlePrompt admits the prompt and streams the completion back as plain
// text. Once the 200 header is out, upstream failures can only truncate the
// body.
func (h *HTTPHandler) HandlePrompt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slog.WithFields(slog.M{"request_id": RequestIDFrom(ctx)})

	var payload domain.PromptRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&payload); err != nil {
		log.Warnf("invalid request body: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Context propagation is automatic here
	stream, err := h.service.Execute(ctx, payload)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrOutOfScope):
			log.Warnf("[DENIED] Prompt blocked: %q", payload.Prompt)
			writeError(w, http.StatusForbidden, MessageOutOfScope)
		case errors.Is(err, domain.ErrUpstreamTimeout):
			log.Errorf("upstream timed out: %v", err)
			writeError(w, http.StatusGatewayTimeout, "Upstream timed out")
		case errors.Is(err, domain.ErrUpstreamConnect):
			log.Errorf("upstream unavailable: %v", err)
			writeError(w, http.StatusBadGateway, "Upstream unavailable")
		default:
			log.Errorf("execute: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal error")
		}
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_ = http.NewResponseController(w).Flush()

	start := time.Now()
	res, err := relay.Forward(ctx, w, stream)
	obs.RecordRelay(ctx, res.Fragments)

	switch {
	case err == nil:
		log.Infof("relayed %d fragments (%d bytes) in %s", res.Fragments, res.Bytes, time.Since(start).Round(time.Millisecond))
	case ctx.Err() != nil:
		log.Infof("client went away after %d fragments", res.Fragments)
	default:
		log.Errorf("stream truncated after %d fragments: %v", res.Fragments, err)
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeStatus(w, code, domain.Status{OK: false, Message: message})
}

func writeStatus(w http.ResponseWriter, code int, status domain.Status) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}
