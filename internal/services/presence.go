package services

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dmail-project/dmail-backend/internal/models"
)

// Pusher is the send-only endpoint a session registers in the presence map.
// Push must not block; it reports whether the event was accepted.
type Pusher interface {
	Push(cmd models.ServerCommand) bool
}

// PresenceHub maps logged-in users to their session endpoints. It is strictly
// in-process: an event for an offline user is dropped here, durability is the
// storage layer's job.
type PresenceHub struct {
	mu       sync.RWMutex
	sessions map[models.UserID]Pusher
}

var Presence = NewPresenceHub()

func NewPresenceHub() *PresenceHub {
	return &PresenceHub{sessions: make(map[models.UserID]Pusher)}
}

func (h *PresenceHub) Register(userID models.UserID, endpoint Pusher) {
	h.mu.Lock()
	h.sessions[userID] = endpoint
	h.mu.Unlock()
	logrus.WithField("userId", userID).Debug("presence registered")
}

func (h *PresenceHub) Deregister(userID models.UserID) {
	h.mu.Lock()
	delete(h.sessions, userID)
	h.mu.Unlock()
	logrus.WithField("userId", userID).Debug("presence deregistered")
}

func (h *PresenceHub) IsOnline(userID models.UserID) bool {
	h.mu.RLock()
	_, ok := h.sessions[userID]
	h.mu.RUnlock()
	return ok
}

// Send delivers one event to one user, silently dropping if offline.
func (h *PresenceHub) Send(userID models.UserID, cmd models.ServerCommand) {
	h.mu.RLock()
	endpoint, ok := h.sessions[userID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if !endpoint.Push(cmd) {
		logrus.WithFields(logrus.Fields{"userId": userID, "cmd": cmd.Command}).
			Warn("session queue full, event dropped")
	}
}

// SendMany delivers one shared event to every listed user.
func (h *PresenceHub) SendMany(ids []models.UserID, cmd models.ServerCommand) {
	for _, id := range ids {
		h.Send(id, cmd)
	}
}

// SendManyExcept delivers to every listed user but one.
func (h *PresenceHub) SendManyExcept(ids []models.UserID, cmd models.ServerCommand, except models.UserID) {
	for _, id := range ids {
		if id == except {
			continue
		}
		h.Send(id, cmd)
	}
}
