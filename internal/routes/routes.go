package routes

import (
	"encoding/json"
	"net/http"
	"net/mail"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/dmail-project/dmail-backend/internal/handlers"
	"github.com/dmail-project/dmail-backend/internal/services"
)

// Clients are browsers and native apps on arbitrary origins.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// New builds the HTTP surface: the websocket endpoint plus the one REST
// route that must work before a connection exists.
func New() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/ws", serveWS)
	r.Post("/email/code", sendEmailCode)
	return r
}

func serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}
	go handlers.NewSession(conn).Serve()
}

// sendEmailCode issues a verification code before the user can register or
// log in. The per-address cooldown doubles as rate limiting.
func sendEmailCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeState(w, http.StatusBadRequest, "EmailInvalid")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeState(w, http.StatusBadRequest, "EmailInvalid")
		return
	}

	switch err := services.Email.SendCode(req.Email); err {
	case nil:
		writeState(w, http.StatusOK, "Success")
	case services.ErrCoolDown:
		writeState(w, http.StatusTooManyRequests, "CoolDown")
	default:
		writeState(w, http.StatusInternalServerError, "ServerError")
	}
}

func writeState(w http.ResponseWriter, code int, state string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"state": state})
}
