package errors_test

import (
	"testing"

	apperrors "github.com/jrsteele09/go-product-gateway/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestWrapf(t *testing.T) {
	require.NoError(t, apperrors.Wrapf(nil, "ignored"))

	err := apperrors.Wrapf(apperrors.ErrBackendUnavailable, "rest %s", "create")
	require.EqualError(t, err, "rest create: backend unavailable")
	require.True(t, apperrors.Is(err, apperrors.ErrBackendUnavailable))
}
