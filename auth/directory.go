package auth

import (
	"sort"

	"github.com/jrsteele09/go-product-gateway/clients"
	clientmemrepo "github.com/jrsteele09/go-product-gateway/clients/memrepo"
	"github.com/jrsteele09/go-product-gateway/internal/config"
	"github.com/jrsteele09/go-product-gateway/users"
	usermemrepo "github.com/jrsteele09/go-product-gateway/users/memrepo"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// dummyPassword is hashed once per Directory so unknown usernames still cost a
// bcrypt comparison.
const dummyPassword = "dummy-password-for-timing"

// Directory answers credential, role and client questions for the grant processor.
// It is read-only once built.
type Directory struct {
	users     users.UserRepo
	clients   clients.Repo
	roles     map[string][]string
	dummyHash string
}

// NewDirectory wires repositories and the role to scope mapping.
func NewDirectory(userRepo users.UserRepo, clientRepo clients.Repo, roles map[string][]string) (*Directory, error) {
	if userRepo == nil {
		return nil, errors.New("[NewDirectory] Users repo is required")
	}
	if clientRepo == nil {
		return nil, errors.New("[NewDirectory] Clients repo is required")
	}
	dummyHash, err := users.HashPassword(dummyPassword)
	if err != nil {
		return nil, errors.Wrap(err, "[NewDirectory] dummy hash")
	}

	copied := make(map[string][]string, len(roles))
	for role, scopes := range roles {
		copied[role] = append([]string(nil), scopes...)
	}
	return &Directory{
		users:     userRepo,
		clients:   clientRepo,
		roles:     copied,
		dummyHash: dummyHash,
	}, nil
}

// NewDirectoryFromSettings builds in-memory repositories from configuration, hashing
// plaintext passwords at load time.
func NewDirectoryFromSettings(settings config.DirectorySettings) (*Directory, error) {
	userRepo := usermemrepo.NewUserRepo()
	for _, entry := range settings.Users {
		hash := entry.PasswordHash
		if hash == "" {
			var err error
			if hash, err = users.HashPassword(entry.Password); err != nil {
				return nil, errors.Wrapf(err, "[NewDirectoryFromSettings] hash password for %s", entry.Username)
			}
		}
		id := entry.UserID
		if id == "" {
			id = entry.Username
		}
		if err := userRepo.Upsert(&users.User{
			ID:           id,
			Username:     entry.Username,
			Email:        entry.Email,
			PasswordHash: hash,
			Roles:        entry.Roles,
			Active:       entry.Active == nil || *entry.Active,
			ClientID:     entry.ClientID,
		}); err != nil {
			return nil, errors.Wrap(err, "[NewDirectoryFromSettings] upsert user")
		}
	}

	clientRepo := clientmemrepo.NewClientRepo()
	for _, entry := range settings.Clients {
		if err := clientRepo.Upsert(&clients.Client{ID: entry.ID, Description: entry.Description}); err != nil {
			return nil, errors.Wrap(err, "[NewDirectoryFromSettings] upsert client")
		}
	}

	return NewDirectory(userRepo, clientRepo, settings.Roles)
}

// AuthenticatePassword returns the user only when the username exists, the password
// matches and the account is active. The three failures look the same to callers.
func (d *Directory) AuthenticatePassword(username, password string) *users.User {
	user, err := d.users.GetByUsername(username)
	if err != nil || user == nil {
		users.CheckPasswordHash(password, d.dummyHash)
		return nil
	}
	if !user.CheckPassword(password) || !user.Active {
		return nil
	}
	return user
}

// ScopesForRoles is the sorted union of each role's scopes. Unknown roles add nothing.
func (d *Directory) ScopesForRoles(roles []string) []string {
	scopes := lo.Uniq(lo.FlatMap(roles, func(role string, _ int) []string {
		return d.roles[role]
	}))
	sort.Strings(scopes)
	return scopes
}

func (d *Directory) FindByUserID(userID string) *users.User {
	user, err := d.users.GetByID(userID)
	if err != nil {
		return nil
	}
	return user
}

func (d *Directory) IsValidClient(clientID string) bool {
	client, err := d.clients.Get(clientID)
	return err == nil && client != nil
}
