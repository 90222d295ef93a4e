// Package directions builds web map links that route to a catalog entry.
package directions

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/couchcryptid/mart-locator/internal/domain"
)

// Provider names a map service.
type Provider string

const (
	Naver Provider = "naver"
	Kakao Provider = "kakao"
)

const currentLocationLabel = "현재 위치"

// ParseProvider accepts "naver" or "kakao" in any case.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case Naver, Kakao:
		return p, nil
	}
	return "", fmt.Errorf("unknown map provider %q", s)
}

// URL returns a directions link from start (optional) to the entry. The
// entry must be resolved.
func URL(p Provider, e domain.CatalogEntry, start *domain.Coordinate) (string, error) {
	if e.Coordinates == nil {
		return "", fmt.Errorf("entry %d: %w", e.ID, domain.ErrUnresolvable)
	}
	switch p {
	case Naver:
		return NaverURL(e.Name, *e.Coordinates, start), nil
	case Kakao:
		return KakaoURL(e.Name, *e.Coordinates, start), nil
	}
	return "", fmt.Errorf("unknown map provider %q", p)
}

// NaverURL links to the Naver Map route planner.
func NaverURL(name string, dest domain.Coordinate, start *domain.Coordinate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "https://map.naver.com/index.nhn?elng=%s&elat=%s&etext=%s&menu=route",
		formatDegree(dest.Lng), formatDegree(dest.Lat), url.QueryEscape(name))
	if start != nil {
		fmt.Fprintf(&b, "&slng=%s&slat=%s&stext=%s",
			formatDegree(start.Lng), formatDegree(start.Lat), url.QueryEscape(currentLocationLabel))
	}
	return b.String()
}

// KakaoURL links to Kakao Map; with a start point it opens the route view.
func KakaoURL(name string, dest domain.Coordinate, start *domain.Coordinate) string {
	to := fmt.Sprintf("%s,%s,%s", url.PathEscape(name), formatDegree(dest.Lat), formatDegree(dest.Lng))
	if start == nil {
		return "https://map.kakao.com/link/to/" + to
	}
	from := fmt.Sprintf("%s,%s,%s", url.PathEscape(currentLocationLabel), formatDegree(start.Lat), formatDegree(start.Lng))
	return "https://map.kakao.com/link/from/" + from + "/to/" + to
}

func formatDegree(v float64) string {
	return fmt.Sprintf("%.7f", v)
}
