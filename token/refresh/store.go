// Package refresh tracks which refresh tokens have already been exchanged, so a
// single_use policy can refuse a replayed token.
package refresh

import (
	"context"
	"time"
)

// Store remembers refresh token ids until they expire.
type Store interface {
	// MarkUsed records jti as used until exp. first is true only for the
	// first caller to mark a given jti.
	MarkUsed(ctx context.Context, jti string, exp time.Time) (first bool, err error)
}
