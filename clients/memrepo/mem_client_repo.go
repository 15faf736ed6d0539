package memrepo

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-product-gateway/clients"
)

var _ clients.Repo = (*ClientRepo)(nil)

type ClientRepo struct {
	clients map[string]clients.Client
	lock    sync.RWMutex
}

func NewClientRepo() *ClientRepo {
	return &ClientRepo{
		clients: make(map[string]clients.Client),
	}
}

func (r *ClientRepo) Upsert(clientData *clients.Client) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if clientData.ID == "" {
		clientData.ID = uuid.New().String()
	}
	r.clients[clientData.ID] = *clientData
	return nil
}

func (r *ClientRepo) Get(clientID string) (*clients.Client, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	client, ok := r.clients[clientID]
	if !ok {
		return nil, clients.ErrNotFound
	}
	return &client, nil
}

func (r *ClientRepo) List() ([]*clients.Client, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	list := make([]*clients.Client, 0, len(r.clients))
	for _, v := range r.clients {
		c := v
		list = append(list, &c)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list, nil
}
