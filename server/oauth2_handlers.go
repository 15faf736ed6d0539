package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jrsteele09/go-product-gateway/oauth2"
	"github.com/rs/zerolog"
)

const contentTypeJSON = "application/json; charset=utf-8"

// Token handles form-encoded password and refresh_token grants (RFC 6749 §4.3, §6).
// It issues tokens without binding them to any WebSocket connection.
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, string(oauth2.ErrInvalidRequest), "Failed to parse form data", http.StatusBadRequest)
			return
		}

		tokenReq := oauth2.TokenRequest{
			GrantType:    oauth2.GrantType(r.PostFormValue("grant_type")),
			Username:     r.PostFormValue("username"),
			Password:     r.PostFormValue("password"),
			RefreshToken: r.PostFormValue("refresh_token"),
			Scope:        r.PostFormValue("scope"),
			ClientID:     r.PostFormValue("client_id"),
		}
		// Public clients may still authenticate with an empty secret in the header.
		if id, _, ok := r.BasicAuth(); ok && tokenReq.ClientID == "" {
			tokenReq.ClientID = id
		}

		tokenResponse, err := s.auth.Token(r.Context(), tokenReq)
		if err != nil {
			writeOAuthError(w, err, zerolog.Ctx(r.Context()))
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		_ = json.NewEncoder(w).Encode(tokenResponse)
	}
}

// clientError converts any grant failure into the error shape clients see.
// Internal failures are reported as server_error without detail.
func clientError(err error) *oauth2.Error {
	var oerr *oauth2.Error
	if errors.As(err, &oerr) {
		return oerr
	}
	return oauth2.NewError(oauth2.ErrServerError, "internal error")
}

func statusFor(kind oauth2.ErrorKind) int {
	switch kind {
	case oauth2.ErrInvalidRequest, oauth2.ErrInvalidGrant, oauth2.ErrUnsupportedGrantType:
		return http.StatusBadRequest
	case oauth2.ErrInvalidToken:
		return http.StatusUnauthorized
	case oauth2.ErrAccessDenied, oauth2.ErrInsufficientScope:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeOAuthError(w http.ResponseWriter, err error, logger *zerolog.Logger) {
	oerr := clientError(err)
	if oerr.Kind == oauth2.ErrServerError {
		logger.Error().Err(err).Msg("token request failed")
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSONError(w, string(oerr.Kind), oerr.Description, statusFor(oerr.Kind))
}

func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}
