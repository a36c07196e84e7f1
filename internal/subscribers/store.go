package subscribers

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

type UserStore struct {
	usersList map[uuid.UUID]*User
	mu        sync.Mutex
}

func NewUserStore() *UserStore {
	return &UserStore{
		usersList: make(map[uuid.UUID]*User),
	}
}

func (s *UserStore) AddUser(user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.usersList[user.ID] = user
}

func (s *UserStore) RemoveUser(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.usersList, id)
}

func (s *UserStore) GetUser(id uuid.UUID) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.usersList[id]
	if !ok {
		return User{}, false
	}

	return *user, true
}

// list of connected users, oldest connection first
func (s *UserStore) ListUsers() []User {
	s.mu.Lock()
	users := make([]User, 0, len(s.usersList))
	for _, user := range s.usersList {
		users = append(users, *user)
	}
	s.mu.Unlock()

	slices.SortFunc(users, func(a, b User) int {
		return a.ConnectedAt.Compare(b.ConnectedAt)
	})

	return users
}

func (s *UserStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.usersList)
}
