package clients

// Client is an entry on the client allow-list. Clients carry no secret: the gateway
// only uses the id to check membership and to match a user's registration.
type Client struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}
