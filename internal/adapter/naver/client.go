// Package naver implements domain.Geocoder on the Naver Cloud Maps
// geocoding and reverse-geocoding APIs.
package naver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/mart-locator/internal/domain"
	"github.com/couchcryptid/mart-locator/internal/observability"
	"golang.org/x/time/rate"
)

const (
	defaultGeocodeURL = "https://naveropenapi.apigw.ntruss.com/map-geocode/v2/geocode"
	defaultReverseURL = "https://naveropenapi.apigw.ntruss.com/map-reversegeocode/v2/gc"

	headerKeyID = "X-NCP-APIGW-API-KEY-ID"
	headerKey   = "X-NCP-APIGW-API-KEY"
)

// Client implements domain.Geocoder using the Naver Maps APIs. It makes one
// request per call and never retries.
type Client struct {
	keyID      string
	key        string
	httpClient *http.Client
	geocodeURL string
	reverseURL string
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Naver geocoding client. ratePerSecond <= 0 disables
// client-side throttling.
func NewClient(keyID, key string, timeout time.Duration, ratePerSecond float64, metrics *observability.Metrics, logger *slog.Logger) *Client {
	limit := rate.Inf
	burst := 1
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
		burst = max(1, int(ratePerSecond))
	}
	return &Client{
		keyID: keyID,
		key:   key,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		geocodeURL: defaultGeocodeURL,
		reverseURL: defaultReverseURL,
		limiter:    rate.NewLimiter(limit, burst),
		metrics:    metrics,
		logger:     logger,
	}
}

// Ready reports ErrServiceUnavailable when credentials are missing.
func (c *Client) Ready() error {
	if c.keyID == "" || c.key == "" {
		return fmt.Errorf("naver credentials not configured: %w", domain.ErrServiceUnavailable)
	}
	return nil
}

// Forward converts a free-text address to the best-matching coordinate.
func (c *Client) Forward(ctx context.Context, address string) (coord domain.Coordinate, err error) {
	defer c.observe("forward", time.Now(), &err)
	if err := c.Ready(); err != nil {
		return domain.Coordinate{}, err
	}

	params := url.Values{"query": {address}}
	var resp geocodeResponse
	if err := c.get(ctx, c.geocodeURL+"?"+params.Encode(), "forward", &resp); err != nil {
		return domain.Coordinate{}, err
	}
	if resp.Status != "" && resp.Status != "OK" {
		return domain.Coordinate{}, fmt.Errorf("naver geocode status %s: %s", resp.Status, resp.ErrorMessage)
	}
	if len(resp.Addresses) == 0 {
		return domain.Coordinate{}, fmt.Errorf("forward %q: %w", address, domain.ErrNotFound)
	}

	a := resp.Addresses[0]
	lat, err := strconv.ParseFloat(a.Y, 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("parse latitude %q: %w", a.Y, err)
	}
	lng, err := strconv.ParseFloat(a.X, 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("parse longitude %q: %w", a.X, err)
	}
	return domain.Coordinate{Lat: lat, Lng: lng}, nil
}

// Reverse converts a coordinate to an address, preferring the road address
// and falling back to the parcel address.
func (c *Client) Reverse(ctx context.Context, at domain.Coordinate) (address string, err error) {
	defer c.observe("reverse", time.Now(), &err)
	if err := c.Ready(); err != nil {
		return "", err
	}

	// Naver takes lng,lat order.
	params := url.Values{
		"coords": {fmt.Sprintf("%.7f,%.7f", at.Lng, at.Lat)},
		"orders": {"roadaddr,addr"},
		"output": {"json"},
	}
	var resp reverseResponse
	if err := c.get(ctx, c.reverseURL+"?"+params.Encode(), "reverse", &resp); err != nil {
		return "", err
	}

	var road, parcel *reverseResult
	for i := range resp.Results {
		switch resp.Results[i].Name {
		case "roadaddr":
			road = &resp.Results[i]
		case "addr":
			parcel = &resp.Results[i]
		}
	}
	switch {
	case road != nil:
		return road.roadAddress(), nil
	case parcel != nil:
		return parcel.parcelAddress(), nil
	default:
		return "", fmt.Errorf("reverse %s: %w", at, domain.ErrNotFound)
	}
}

func (c *Client) get(ctx context.Context, fullURL, method string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s rate limit wait: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(headerKeyID, c.keyID)
	req.Header.Set(headerKey, c.key)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.GeocodeAPIDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("%s geocode request: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("naver API error: status %d: %s", resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) observe(method string, start time.Time, err *error) {
	outcome := domain.OutcomeOf(*err)
	c.metrics.GeocodeRequests.WithLabelValues(method, string(outcome)).Inc()
	if outcome == domain.OutcomeFailed {
		c.logger.Warn("geocode request failed", "method", method, "duration", time.Since(start), "error", *err)
	}
}

// Naver API response types.

type geocodeResponse struct {
	Status       string    `json:"status"`
	ErrorMessage string    `json:"errorMessage"`
	Addresses    []address `json:"addresses"`
}

type address struct {
	RoadAddress  string `json:"roadAddress"`
	JibunAddress string `json:"jibunAddress"`
	X            string `json:"x"` // longitude
	Y            string `json:"y"` // latitude
}

type reverseResponse struct {
	Status  reverseStatus   `json:"status"`
	Results []reverseResult `json:"results"`
}

type reverseStatus struct {
	Code    int    `json:"code"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

type reverseResult struct {
	Name   string `json:"name"`
	Region region `json:"region"`
	Land   land   `json:"land"`
}

type region struct {
	Area1 area `json:"area1"`
	Area2 area `json:"area2"`
	Area3 area `json:"area3"`
	Area4 area `json:"area4"`
}

type area struct {
	Name string `json:"name"`
}

type land struct {
	Name    string `json:"name"`
	Number1 string `json:"number1"`
	Number2 string `json:"number2"`
}

func (r reverseResult) roadAddress() string {
	return joinNonEmpty(r.Region.Area1.Name, r.Region.Area2.Name, r.Land.Name, r.Land.number())
}

func (r reverseResult) parcelAddress() string {
	return joinNonEmpty(r.Region.Area1.Name, r.Region.Area2.Name, r.Region.Area3.Name, r.Region.Area4.Name, r.Land.number())
}

func (l land) number() string {
	if l.Number2 == "" {
		return l.Number1
	}
	return l.Number1 + "-" + l.Number2
}

func joinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
