package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"github.com/Tyrowin/chatrelay/internal/chat"
)

const maxRegisterBodyBytes = 4096

// Handlers holds the dependencies shared by the HTTP handlers.
type Handlers struct {
	hub      *chat.Hub
	cfg      *Config
	upgrader websocket.Upgrader
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandlers wires the handlers to hub using cfg for transport limits.
func NewHandlers(hub *chat.Hub, cfg *Config, logger *slog.Logger) *Handlers {
	if cfg == nil {
		cfg = NewConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	origins := newOriginPolicy(cfg.AllowedOrigins, logger)

	return &Handlers{
		hub: hub,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.checkOrigin,
		},
		validate: validator.New(),
		logger:   logger,
	}
}

// ChatHandler serves the chat channel. Callers without an identity cookie are
// refused before the upgrade; everyone else is handed to the hub for the
// lifetime of the connection.
func (h *Handlers) ChatHandler(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromRequest(r)

	handshake := func() (*websocket.Conn, error) {
		return h.upgrader.Upgrade(w, r, nil)
	}
	client := NewClient(handshake, r.RemoteAddr, h.cfg, h.logger)

	err := h.hub.Serve(client, identity)
	switch {
	case err == nil:
	case errors.Is(err, chat.ErrUnauthenticated):
		h.logger.Info("Rejected unauthenticated chat connection", "remote_addr", r.RemoteAddr)
		http.Error(w, "Not authenticated", http.StatusForbidden)
	case errors.Is(err, chat.ErrRegistryClosed) && !client.Upgraded():
		http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
	default:
		// The upgrader has already answered the request.
		h.logger.Info("Chat connection failed", "remote_addr", r.RemoteAddr, "error", err)
	}
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=1"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// RegisterHandler stores the submitted username in the identity cookie.
func (h *Handlers) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRegisterBodyBytes)

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: validationDetail(err)})
		return
	}

	SetIdentity(w, req.Username)
	h.logger.Info("Registered user", "identity", req.Username)
	h.writeJSON(w, http.StatusOK, nil)
}

func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("username failed %q validation", fe.Tag())
	}
	return err.Error()
}

// CurrentUserHandler returns the caller's identity as a JSON string, or null.
func (h *Handlers) CurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromRequest(r)
	if !ok {
		h.writeJSON(w, http.StatusOK, nil)
		return
	}
	h.writeJSON(w, http.StatusOK, identity)
}

// HomeHandler serves the registration page.
func (h *Handlers) HomeHandler(w http.ResponseWriter, _ *http.Request) {
	servePage(w, "home.html", h.logger)
}

// ChatPageHandler serves the chat UI.
func (h *Handlers) ChatPageHandler(w http.ResponseWriter, _ *http.Request) {
	servePage(w, "chat.html", h.logger)
}

// HealthHandler provides a simple health check endpoint that returns server status.
// It responds with a plain text message indicating the server is running.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "chatrelay server is running!")
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Debug("Error writing JSON response", "error", err)
	}
}
