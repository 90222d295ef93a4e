//go:build naver

package naver

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/couchcryptid/mart-locator/internal/domain"
	"github.com/couchcryptid/mart-locator/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the real Naver Maps API and require NAVER_CLIENT_ID and
// NAVER_CLIENT_SECRET.
// Run with: go test -tags=naver ./internal/adapter/naver/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	id, secret := os.Getenv("NAVER_CLIENT_ID"), os.Getenv("NAVER_CLIENT_SECRET")
	if id == "" || secret == "" {
		t.Fatal("NAVER_CLIENT_ID and NAVER_CLIENT_SECRET must be set to run smoke tests")
	}
	return NewClient(id, secret, 10*time.Second, 5, observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSmoke_Forward(t *testing.T) {
	c := smokeClient(t)

	coord, err := c.Forward(context.Background(), "서울특별시 용산구 한강대로")
	require.NoError(t, err)
	assert.InDelta(t, 37.5, coord.Lat, 0.2)
	assert.InDelta(t, 126.97, coord.Lng, 0.2)
}

func TestSmoke_Reverse(t *testing.T) {
	c := smokeClient(t)

	addr, err := c.Reverse(context.Background(), domain.Coordinate{Lat: 37.5299, Lng: 126.9648})
	require.NoError(t, err)
	assert.Contains(t, addr, "용산구")
}
