package mnd

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/mart-locator/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const samplePayload = `{
  "TB_MND_MART_CURRENT": {
    "list_total_count": 2,
    "RESULT": {"CODE": "INFO-000", "MESSAGE": "정상 처리되었습니다."},
    "row": [
      {"SEQ": "1", "MART": "용산점", "SCALE": "중형", "OP_WEEKDAY": "09:00-18:00", "OP_SAT": "09:00-13:00",
       "OP_SUN": "휴무", "NOTE": "", "TEL": "02-000-0000", "LOC": "서울특별시 용산구 한강대로 42 3층"},
      {"SEQ": 2, "MART": "계룡대점", "SCALE": "대형", "OP_WEEKDAY": "09:00-18:00", "OP_SAT": "휴무",
       "OP_SUN": "휴무", "NOTE": "주차 가능", "TEL": "042-000-0000", "LOC": "충청남도 계룡시 신도안면 계룡대로 663"}
    ]
  }
}`

func TestClient_FetchRange_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/secret/json/TB_MND_MART_CURRENT/1/10/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	c := NewClient("secret", srv.URL+"/", 5*time.Second, discardLogger())
	page, err := c.FetchRange(context.Background(), 1, 10)
	require.NoError(t, err)

	assert.Equal(t, 2, page.TotalCount)
	require.Len(t, page.Rows, 2)
	assert.Equal(t, domain.FlexInt(1), page.Rows[0].SEQ)
	assert.Equal(t, "서울특별시 용산구 한강대로 42 3층", page.Rows[0].Loc)
	assert.Equal(t, domain.FlexInt(2), page.Rows[1].SEQ)
	assert.Equal(t, "주차 가능", page.Rows[1].Note)
}

func TestClient_FetchRange_CapsWindow(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, 5*time.Second, discardLogger())
	_, err := c.FetchRange(context.Background(), 1, 20000)
	require.NoError(t, err)
	assert.Equal(t, "/k/json/TB_MND_MART_CURRENT/1/5000/", path)
}

func TestClient_FetchRange_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"bad json", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{not json`))
		}},
		{"missing table", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"RESULT":{"CODE":"INFO-200","MESSAGE":"해당하는 데이터가 없습니다."}}`))
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			_, err := NewClient("k", srv.URL, 5*time.Second, discardLogger()).FetchRange(context.Background(), 1, 10)
			require.ErrorIs(t, err, domain.ErrFetchFailed)
		})
	}
}

func TestClient_FetchRange_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient("k", url, time.Second, discardLogger()).FetchRange(context.Background(), 1, 10)
	require.ErrorIs(t, err, domain.ErrFetchFailed)
}

func TestClient_FetchRange_InvalidRange(t *testing.T) {
	_, err := NewClient("k", "", time.Second, discardLogger()).FetchRange(context.Background(), 5, 1)
	require.ErrorIs(t, err, domain.ErrFetchFailed)
}

func TestClient_FetchRange_MalformedBaseURL(t *testing.T) {
	_, err := NewClient("k", "http://[::1", time.Second, discardLogger()).FetchRange(context.Background(), 1, 10)
	require.ErrorIs(t, err, domain.ErrFetchFailed)
}
