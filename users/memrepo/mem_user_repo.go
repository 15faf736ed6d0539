package memrepo

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-product-gateway/users"
)

var _ users.UserRepo = (*UserRepo)(nil)

// UserRepo keeps users in memory. Returned users are copies.
type UserRepo struct {
	users       map[string]*users.User
	usernameIds map[string]string // username to user id
	lock        sync.RWMutex
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		users:       make(map[string]*users.User),
		usernameIds: make(map[string]string),
	}
}

func (ur *UserRepo) Upsert(user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if previous, ok := ur.users[user.ID]; ok && previous.Username != user.Username {
		delete(ur.usernameIds, previous.Username)
	}
	ur.users[user.ID] = user.Clone()
	ur.usernameIds[user.Username] = user.ID
	return nil
}

func (ur *UserRepo) GetByUsername(username string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.usernameIds[username]
	if !ok {
		return nil, users.ErrNotFound
	}
	return ur.users[id].Clone(), nil
}

func (ur *UserRepo) GetByID(id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	u, ok := ur.users[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return u.Clone(), nil
}

func (ur *UserRepo) List() ([]*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	userList := make([]*users.User, 0, len(ur.users))
	for _, v := range ur.users {
		userList = append(userList, v.Clone())
	}
	sort.Slice(userList, func(i, j int) bool {
		return userList[i].ID < userList[j].ID
	})
	return userList, nil
}
