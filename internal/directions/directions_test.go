package directions

import (
	"net/url"
	"testing"

	"github.com/couchcryptid/mart-locator/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	dest  = domain.Coordinate{Lat: 37.5665, Lng: 126.978}
	start = domain.Coordinate{Lat: 37.5547, Lng: 126.9707}
)

func TestNaverURL(t *testing.T) {
	got := NaverURL("용산 마트", dest, nil)
	u, err := url.Parse(got)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "map.naver.com", u.Host)
	assert.Equal(t, "용산 마트", q.Get("etext"))
	assert.Equal(t, "37.5665000", q.Get("elat"))
	assert.Equal(t, "126.9780000", q.Get("elng"))
	assert.Equal(t, "route", q.Get("menu"))
	assert.Empty(t, q.Get("slat"))

	u, err = url.Parse(NaverURL("용산 마트", dest, &start))
	require.NoError(t, err)
	q = u.Query()
	assert.Equal(t, "37.5547000", q.Get("slat"))
	assert.Equal(t, "126.9707000", q.Get("slng"))
	assert.Equal(t, currentLocationLabel, q.Get("stext"))
}

func TestKakaoURL(t *testing.T) {
	assert.Equal(t,
		"https://map.kakao.com/link/to/mart,37.5665000,126.9780000",
		KakaoURL("mart", dest, nil))

	got := KakaoURL("mart", dest, &start)
	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "/link/from/현재 위치,37.5547000,126.9707000/to/mart,37.5665000,126.9780000", u.Path)
}

func TestURL(t *testing.T) {
	e := domain.CatalogEntry{ID: 7, Name: "mart", Coordinates: &dest}

	got, err := URL(Kakao, e, nil)
	require.NoError(t, err)
	assert.Contains(t, got, "map.kakao.com")

	_, err = URL(Naver, domain.CatalogEntry{ID: 8, Name: "mart"}, nil)
	require.ErrorIs(t, err, domain.ErrUnresolvable)

	_, err = URL(Provider("tmap"), e, nil)
	require.Error(t, err)
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider(" Naver ")
	require.NoError(t, err)
	assert.Equal(t, Naver, p)

	_, err = ParseProvider("google")
	require.Error(t, err)
}
