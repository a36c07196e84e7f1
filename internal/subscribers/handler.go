package subscribers

import (
	"time"

	"github.com/google/uuid"

	"depth-feed/internal/logger"
)

// Store provides abstraction of the connected user store for the application.
type Store interface {
	AddUser(user *User)
	RemoveUser(id uuid.UUID)
	GetUser(id uuid.UUID) (User, bool)
	ListUsers() []User
	Count() int
}

// User is one attached presentation client.
type User struct {
	ID          uuid.UUID `json:"id"`
	RemoteAddr  string    `json:"remote_addr"`
	UserAgent   string    `json:"user_agent,omitempty"`
	ConnectedAt time.Time `json:"connected_at"`
}

type Handler struct {
	Store
}

func NewHandler(store Store) *Handler {
	return &Handler{
		Store: store,
	}
}

// AddNewUser registers a connection under a fresh id and returns it.
func (h *Handler) AddNewUser(remoteAddr, userAgent string) *User {
	user := &User{
		ID:          uuid.New(),
		RemoteAddr:  remoteAddr,
		UserAgent:   userAgent,
		ConnectedAt: time.Now().UTC(),
	}
	h.AddUser(user)

	logger.GetLogger().WithFields(logger.Fields{"client": user.ID.String(), "remote": remoteAddr}).Info("client connected")

	return user
}

func (h *Handler) DropUser(id uuid.UUID) {
	h.RemoveUser(id)

	logger.GetLogger().WithFields(logger.Fields{"client": id.String()}).Info("client disconnected")
}
