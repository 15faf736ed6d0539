package auth

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/jrsteele09/go-product-gateway/internal/metrics"
	"github.com/jrsteele09/go-product-gateway/internal/utils"
	"github.com/jrsteele09/go-product-gateway/oauth2"
	"github.com/jrsteele09/go-product-gateway/sessions"
	"github.com/jrsteele09/go-product-gateway/token"
	"github.com/jrsteele09/go-product-gateway/token/refresh"
	"github.com/jrsteele09/go-product-gateway/users"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// RefreshPolicy decides whether a refresh token may be exchanged more than once.
type RefreshPolicy string

const (
	// RefreshReuse accepts a valid refresh token any number of times until it expires.
	RefreshReuse RefreshPolicy = "reuse"
	// RefreshSingleUse accepts each refresh token once and rotates it on every grant.
	RefreshSingleUse RefreshPolicy = "single_use"
)

// grantResult is what a successful grant produces before it is installed anywhere.
type grantResult struct {
	user         *users.User
	scopes       []string
	accessToken  string
	refreshToken string
	rotated      bool
	expiry       time.Time
}

// AuthorizationService runs the password and refresh_token grants and installs the
// resulting session on the requesting connection.
type AuthorizationService struct {
	directory     *Directory
	tokenCreator  *token.Manager
	registry      *sessions.Registry
	refreshPolicy RefreshPolicy
	refreshStore  refresh.Store
	nowTime       func() time.Time
	logger        zerolog.Logger
}

// AuthorizationServiceOption defines a function type to modify the AuthorizationService instance.
type AuthorizationServiceOption func(*AuthorizationService)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.nowTime = nowFunc
	}
}

// WithRefreshPolicy selects the refresh policy. store is only consulted under
// RefreshSingleUse and defaults to an in-memory store.
func WithRefreshPolicy(policy RefreshPolicy, store refresh.Store) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.refreshPolicy = policy
		as.refreshStore = store
	}
}

// NewAuthorizationService initializes a new AuthorizationService with required dependencies.
func NewAuthorizationService(
	directory *Directory,
	tokenCreator *token.Manager,
	registry *sessions.Registry,
	options ...AuthorizationServiceOption,
) (*AuthorizationService, error) {
	if directory == nil {
		return nil, pkgerrors.New("[NewAuthorizationService] directory is required")
	}
	if tokenCreator == nil {
		return nil, pkgerrors.New("[NewAuthorizationService] tokenCreator is required")
	}
	if registry == nil {
		return nil, pkgerrors.New("[NewAuthorizationService] registry is required")
	}

	authService := &AuthorizationService{
		directory:     directory,
		tokenCreator:  tokenCreator,
		registry:      registry,
		refreshPolicy: RefreshReuse,
		nowTime:       time.Now,
		logger:        log.With().Str("component", "auth").Logger(),
	}

	for _, opt := range options {
		opt(authService)
	}

	switch authService.refreshPolicy {
	case RefreshReuse:
	case RefreshSingleUse:
		if authService.refreshStore == nil {
			authService.refreshStore = refresh.NewInMemoryStore()
		}
	default:
		return nil, pkgerrors.Errorf("[NewAuthorizationService] unknown refresh policy %q", authService.refreshPolicy)
	}

	return authService, nil
}

// Token runs a grant without touching any connection. Client-facing failures are
// returned as *oauth2.Error.
func (as *AuthorizationService) Token(ctx context.Context, req oauth2.TokenRequest) (*oauth2.TokenResponse, error) {
	result, err := as.grant(ctx, req)
	if err != nil {
		return nil, err
	}
	return as.tokenResponse(result), nil
}

// GrantForConnection runs a grant and, on success, overwrites the session of conn.
// A failed grant leaves any existing session untouched.
func (as *AuthorizationService) GrantForConnection(ctx context.Context, conn sessions.Conn, req oauth2.TokenRequest) (*oauth2.TokenResponse, error) {
	result, err := as.grant(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := as.registry.SetSession(conn, sessions.Session{
		Authenticated: true,
		Identity: sessions.Identity{
			UserID: result.user.ID,
			Email:  result.user.Email,
			Roles:  result.user.Roles,
		},
		Scopes:       result.scopes,
		AccessToken:  result.accessToken,
		RefreshToken: result.refreshToken,
		Expiry:       result.expiry,
	}); err != nil {
		return nil, pkgerrors.Wrap(err, "[AuthorizationService.GrantForConnection] install session")
	}

	as.logger.Info().
		Str("connection_id", conn.ID()).
		Str("user_id", result.user.ID).
		Strs("scopes", result.scopes).
		Msg("connection authenticated")
	return as.tokenResponse(result), nil
}

func (as *AuthorizationService) grant(ctx context.Context, req oauth2.TokenRequest) (*grantResult, error) {
	var (
		result *grantResult
		err    error
	)
	switch req.GrantType {
	case "":
		err = oauth2.NewError(oauth2.ErrInvalidRequest, "grant_type is required")
	case oauth2.PasswordGrant:
		result, err = as.passwordGrant(req)
	case oauth2.RefreshTokenGrant:
		result, err = as.refreshTokenGrant(ctx, req)
	default:
		err = oauth2.NewError(oauth2.ErrUnsupportedGrantType, "grant_type %q is not supported", req.GrantType)
	}

	grantType := string(req.GrantType)
	if grantType == "" {
		grantType = "none"
	}
	if err != nil {
		var oerr *oauth2.Error
		if errors.As(err, &oerr) {
			metrics.GrantsTotal.WithLabelValues(grantType, metrics.OutcomeRejected).Inc()
			as.logger.Info().Str("grant_type", grantType).Str("error", string(oerr.Kind)).Msg("grant rejected")
		} else {
			metrics.GrantsTotal.WithLabelValues(grantType, metrics.OutcomeError).Inc()
			as.logger.Error().Err(err).Str("grant_type", grantType).Msg("grant failed")
		}
		return nil, err
	}
	metrics.GrantsTotal.WithLabelValues(grantType, metrics.OutcomeSuccess).Inc()
	return result, nil
}

func (as *AuthorizationService) passwordGrant(req oauth2.TokenRequest) (*grantResult, error) {
	if req.Username == "" || req.Password == "" {
		return nil, oauth2.NewError(oauth2.ErrInvalidRequest, "username and password are required")
	}
	if err := as.checkClient(req.ClientID); err != nil {
		return nil, err
	}

	user := as.directory.AuthenticatePassword(req.Username, req.Password)
	if user == nil {
		return nil, oauth2.NewError(oauth2.ErrInvalidGrant, "invalid credentials")
	}
	if err := checkUserClient(user, req.ClientID); err != nil {
		return nil, err
	}

	scopes := as.grantedScopes(user, req)
	identity := token.Identity{UserID: user.ID, Email: user.Email, Roles: user.Roles}

	accessToken, err := as.tokenCreator.IssueAccess(identity, scopes)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[AuthorizationService.passwordGrant] IssueAccess")
	}
	refreshToken, err := as.tokenCreator.IssueRefresh(identity)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[AuthorizationService.passwordGrant] IssueRefresh")
	}

	return &grantResult{
		user:         user,
		scopes:       scopes,
		accessToken:  accessToken,
		refreshToken: refreshToken,
		rotated:      true,
		expiry:       as.nowTime().Add(as.tokenCreator.AccessTokenExpiry()),
	}, nil
}

func (as *AuthorizationService) refreshTokenGrant(ctx context.Context, req oauth2.TokenRequest) (*grantResult, error) {
	if req.RefreshToken == "" {
		return nil, oauth2.NewError(oauth2.ErrInvalidRequest, "refresh_token is required")
	}
	if err := as.checkClient(req.ClientID); err != nil {
		return nil, err
	}

	claims, err := as.tokenCreator.Verify(req.RefreshToken, token.TypeRefresh)
	if err != nil {
		var rejected *token.RejectedError
		if errors.As(err, &rejected) {
			return nil, oauth2.NewError(oauth2.ErrInvalidGrant, "refresh token rejected: %s", rejected.Reason)
		}
		return nil, pkgerrors.Wrap(err, "[AuthorizationService.refreshTokenGrant] Verify")
	}

	user := as.directory.FindByUserID(claims.Subject)
	if user == nil {
		return nil, oauth2.NewError(oauth2.ErrInvalidGrant, UserNotFoundErr.Error())
	}
	if !user.Active {
		return nil, oauth2.NewError(oauth2.ErrInvalidGrant, UserInactiveErr.Error())
	}
	if err := checkUserClient(user, req.ClientID); err != nil {
		return nil, err
	}

	// The jti is spent only once every other check has passed.
	if as.refreshPolicy == RefreshSingleUse {
		first, err := as.refreshStore.MarkUsed(ctx, claims.ID, claims.ExpiresAt.Time)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "[AuthorizationService.refreshTokenGrant] MarkUsed")
		}
		if !first {
			return nil, oauth2.NewError(oauth2.ErrInvalidGrant, RefreshTokenReusedErr.Error())
		}
	}

	scopes := as.grantedScopes(user, req)
	identity := token.Identity{UserID: user.ID, Email: user.Email, Roles: user.Roles}

	accessToken, err := as.tokenCreator.IssueAccess(identity, scopes)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[AuthorizationService.refreshTokenGrant] IssueAccess")
	}

	result := &grantResult{
		user:         user,
		scopes:       scopes,
		accessToken:  accessToken,
		refreshToken: req.RefreshToken,
		expiry:       as.nowTime().Add(as.tokenCreator.AccessTokenExpiry()),
	}
	if as.refreshPolicy == RefreshSingleUse {
		rotated, err := as.tokenCreator.IssueRefresh(identity)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "[AuthorizationService.refreshTokenGrant] IssueRefresh")
		}
		result.refreshToken = rotated
		result.rotated = true
	}
	return result, nil
}

func (as *AuthorizationService) checkClient(clientID string) error {
	if clientID != "" && !as.directory.IsValidClient(clientID) {
		return oauth2.NewError(oauth2.ErrInvalidRequest, "%s %q", InvalidClientIDErr, clientID)
	}
	return nil
}

func checkUserClient(user *users.User, clientID string) error {
	if clientID != "" && user.ClientID != "" && user.ClientID != clientID {
		return oauth2.NewError(oauth2.ErrInvalidGrant, "client_id does not match the user")
	}
	return nil
}

// grantedScopes derives scopes from the user's current roles, narrowed by an explicit
// scope parameter when one was sent.
func (as *AuthorizationService) grantedScopes(user *users.User, req oauth2.TokenRequest) []string {
	scopes := as.directory.ScopesForRoles(user.Roles)
	if req.HasScope() {
		scopes = lo.Intersect(scopes, oauth2.ParseScope(req.Scope))
		sort.Strings(scopes)
	}
	return scopes
}

func (as *AuthorizationService) tokenResponse(result *grantResult) *oauth2.TokenResponse {
	resp := &oauth2.TokenResponse{
		AccessToken: result.accessToken,
		TokenType:   oauth2.TokenTypeBearer,
		ExpiresIn:   int(as.tokenCreator.AccessTokenExpiry().Seconds()),
		Scope:       oauth2.FormatScope(result.scopes),
		UserID:      result.user.ID,
		Email:       result.user.Email,
	}
	if result.rotated {
		resp.RefreshToken = utils.Ptr(result.refreshToken)
	}
	return resp
}
