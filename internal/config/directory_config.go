package config

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type DirectoryConfig interface {
	GetDirectory() (DirectorySettings, error)
}

// UserEntry is one configured identity. Either Password or PasswordHash (bcrypt) must be set.
type UserEntry struct {
	Username     string   `mapstructure:"username"`
	Password     string   `mapstructure:"password"`
	PasswordHash string   `mapstructure:"password_hash"`
	UserID       string   `mapstructure:"user_id"`
	Email        string   `mapstructure:"email"`
	Roles        []string `mapstructure:"roles"`
	Active       *bool    `mapstructure:"active"`
	ClientID     string   `mapstructure:"client_id"`
}

type ClientEntry struct {
	ID          string `mapstructure:"id"`
	Description string `mapstructure:"description"`
}

type DirectorySettings struct {
	Users   []UserEntry         `mapstructure:"users"`
	Roles   map[string][]string `mapstructure:"roles"`
	Clients []ClientEntry       `mapstructure:"clients"`
}

type Directory struct {
	v *viper.Viper
}

var _ DirectoryConfig = Directory{}

// DefaultDirectory is the reference user table used when nothing is configured.
func DefaultDirectory() DirectorySettings {
	return DirectorySettings{
		Users: []UserEntry{
			{Username: "admin", Password: "admin123", UserID: "admin_user", Email: "admin@example.com", Roles: []string{"admin"}, ClientID: "desktop-client"},
			{Username: "user", Password: "user123", UserID: "regular_user", Email: "user@example.com", Roles: []string{"user"}, ClientID: "desktop-client"},
			{Username: "readonly", Password: "readonly123", UserID: "readonly_user", Email: "readonly@example.com", Roles: []string{"readonly"}, ClientID: "desktop-client"},
		},
		Roles: map[string][]string{
			"admin":    {"create_product", "read_product", "update_product", "delete_product"},
			"user":     {"create_product", "read_product", "update_product"},
			"readonly": {"read_product"},
		},
		Clients: []ClientEntry{
			{ID: "desktop-client", Description: "Product desktop client"},
		},
	}
}

// GetDirectory unmarshals the directory section. Sections left empty take the reference defaults.
func (d Directory) GetDirectory() (DirectorySettings, error) {
	var settings DirectorySettings
	if err := d.v.UnmarshalKey("directory", &settings); err != nil {
		return DirectorySettings{}, errors.Wrap(err, "[Directory.GetDirectory] unmarshal")
	}

	defaults := DefaultDirectory()
	if len(settings.Users) == 0 {
		settings.Users = defaults.Users
	}
	if len(settings.Roles) == 0 {
		settings.Roles = defaults.Roles
	}
	if len(settings.Clients) == 0 {
		settings.Clients = defaults.Clients
	}
	return settings, settings.validate()
}

func (s DirectorySettings) validate() error {
	var result *multierror.Error
	seen := make(map[string]struct{}, len(s.Users))
	for i, u := range s.Users {
		if u.Username == "" {
			result = multierror.Append(result, errors.Errorf("directory.users[%d]: username is required", i))
			continue
		}
		if _, dup := seen[u.Username]; dup {
			result = multierror.Append(result, errors.Errorf("directory.users[%d]: duplicate username %q", i, u.Username))
		}
		seen[u.Username] = struct{}{}
		if u.Password == "" && u.PasswordHash == "" {
			result = multierror.Append(result, errors.Errorf("directory.users[%d]: password or password_hash is required", i))
		}
		for _, role := range u.Roles {
			if _, ok := s.Roles[role]; !ok {
				result = multierror.Append(result, errors.Errorf("directory.users[%d]: unknown role %q", i, role))
			}
		}
	}
	return result.ErrorOrNil()
}
