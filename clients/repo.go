package clients

import "errors"

var ErrNotFound = errors.New("client not found")

type Repo interface {
	Upsert(clientData *Client) error
	Get(clientID string) (*Client, error)
	List() ([]*Client, error)
}
