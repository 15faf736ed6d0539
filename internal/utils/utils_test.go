package utils_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-product-gateway/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestPtr(t *testing.T) {
	p := utils.Ptr("x")
	require.Equal(t, "x", *p)
}

func TestUnixTime(t *testing.T) {
	ts, ok := utils.UnixTime(float64(1700000000))
	require.True(t, ok)
	require.Equal(t, time.Unix(1700000000, 0), ts)

	_, ok = utils.UnixTime("1700000000")
	require.False(t, ok)
}
