package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ringer-dashboard/config"
	"ringer-dashboard/internal/dashboard"
	"ringer-dashboard/internal/db"
	"ringer-dashboard/internal/geo"
	"ringer-dashboard/internal/metrics"
	"ringer-dashboard/internal/model"
	"ringer-dashboard/internal/store"
	"ringer-dashboard/internal/timeline"
	"ringer-dashboard/internal/upstream"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router       *gin.Engine
	handler      *Handler
	base         time.Time
	store        store.Store
	upstreamDown atomic.Bool
}

// newTestEnv wires the router against an in-memory database and a fake status
// API that knows one account (a@b.c / 123456) with two status changes.
func newTestEnv(t *testing.T, pushEnabled bool) *testEnv {
	base := time.Now().UTC().Add(-2 * time.Hour).Truncate(time.Second)
	env := &testEnv{base: base}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/user/login":
			var req struct {
				EmailOrPhone string `json:"emailOrPhone"`
				Passcode     string `json:"passcode"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.EmailOrPhone != "a@b.c" || req.Passcode != "123456" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"message":"invalid credentials"}`))
				return
			}
			_, _ = w.Write([]byte(`{"message":"ok","user":{"id":"u-1","emailOrPhone":"a@b.c"}}`))
		case "/charging/get-status":
			if env.upstreamDown.Load() {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			items := []map[string]any{
				{"statusTime": base.UnixMilli(), "isPluggedIn": true, "location": "Home", "manualLocation": false},
				{"statusTime": base.Add(90 * time.Minute).UnixMilli(), "isPluggedIn": false, "location": "Home", "manualLocation": false},
			}
			_ = json.NewEncoder(w).Encode(items)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	cfg := &config.Config{}
	cfg.Server.RateLimitPerSec = 1000
	cfg.Server.RateLimitBurst = 1000
	cfg.Upstream.BaseURL = server.URL
	cfg.Upstream.RequestsPerSec = 1000
	cfg.Metrics.Enabled = true
	cfg.ApplyDefaults()

	gormDB, err := db.Init(&config.DatabaseConfig{DSN: "file::memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	env.store = store.NewGormStore(gormDB)

	registry := prometheus.NewRegistry()
	rec := metrics.New(registry)
	client := upstream.NewClient(cfg.Upstream, rec)
	svc := dashboard.NewService(client, timeline.NewFormatter(time.UTC, false), cfg.Display.DefaultLookback)

	var push *webpush.Options
	if pushEnabled {
		push = &webpush.Options{VAPIDPublicKey: "public-key", VAPIDPrivateKey: "private-key"}
	}

	h := NewHandler(Deps{
		Store:    env.store,
		Service:  svc,
		Auth:     client,
		Geocoder: geo.NewGeocoder(config.GeocoderConfig{Enabled: false}),
		WebPush:  push,
		Config:   cfg,
	})
	env.handler = h
	env.router = NewRouter(cfg, h, rec, registry)
	return env
}

func (env *testEnv) do(method, target string, body any, token string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func (env *testEnv) login(t *testing.T) string {
	w := env.do(http.MethodPost, "/api/login", gin.H{"identifier": "a@b.c", "passcode": "123456"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token  string `json:"token"`
		UserID string `json:"userId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, "u-1", resp.UserID)
	return resp.Token
}

func TestPostLogin(t *testing.T) {
	env := newTestEnv(t, false)

	tests := []struct {
		name     string
		body     gin.H
		wantCode int
		wantErr  string
	}{
		{"missing passcode", gin.H{"identifier": "a@b.c"}, http.StatusBadRequest, ""},
		{"passcode not six digits", gin.H{"identifier": "a@b.c", "passcode": "12ab56"}, http.StatusBadRequest, errInvalidPasscode.Error()},
		{"passcode too long", gin.H{"identifier": "a@b.c", "passcode": "1234567"}, http.StatusBadRequest, errInvalidPasscode.Error()},
		{"wrong passcode", gin.H{"identifier": "a@b.c", "passcode": "654321"}, http.StatusUnauthorized, errBadCredentials.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/api/login", tt.body, "")
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantErr != "" {
				assert.JSONEq(t, `{"error":"`+tt.wantErr+`"}`, w.Body.String())
			}
		})
	}

	t.Run("success creates a session", func(t *testing.T) {
		token := env.login(t)
		session, err := env.store.GetSession(context.Background(), token, time.Now())
		require.NoError(t, err)
		assert.Equal(t, "u-1", session.UserID)
		assert.Equal(t, "a@b.c", session.Identifier)
	})
}

func TestPostLogout(t *testing.T) {
	env := newTestEnv(t, false)
	token := env.login(t)

	assert.Equal(t, http.StatusNoContent, env.do(http.MethodPost, "/api/logout", nil, token).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/status", nil, token).Code)
}

func TestGetStatus(t *testing.T) {
	env := newTestEnv(t, false)

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/status", nil, "").Code)

	token := env.login(t)
	w := env.do(http.MethodGet, "/api/status", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp statusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "u-1", resp.UserID)
	assert.True(t, resp.Range.Live)
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, timeline.StatusConnected, resp.Entries[0].StatusLabel)
	assert.Equal(t, "1h 30m", resp.Entries[0].DurationLabel)
	require.NotNil(t, resp.Entries[0].DurationMinutes)
	assert.Equal(t, 90, *resp.Entries[0].DurationMinutes)
	require.NotNil(t, resp.Latest)
	assert.Equal(t, timeline.StatusDisconnected, resp.Latest.StatusLabel)
	assert.Equal(t, 2, resp.Summary.Events)
	assert.Equal(t, 90, resp.Summary.ConnectedMinutes)

	t.Run("invalid range", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/status?start=2024-03-02&end=2024-03-01", nil, token)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("upstream failure", func(t *testing.T) {
		env.upstreamDown.Store(true)
		defer env.upstreamDown.Store(false)
		w := env.do(http.MethodGet, "/api/status?start=2024-01-01", nil, token)
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestGetStatusRecomputesEachRequest(t *testing.T) {
	env := newTestEnv(t, false)
	token := env.login(t)

	fetch := func(now time.Time) statusResponse {
		env.handler.now = func() time.Time { return now }
		w := env.do(http.MethodGet, "/api/status", nil, token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp statusResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Latest)
		return resp
	}

	first := fetch(env.base.Add(2 * time.Hour))
	assert.Equal(t, "30m", first.Latest.DurationLabel)

	second := fetch(env.base.Add(2*time.Hour + 5*time.Minute))
	assert.True(t, second.Now.After(first.Now))
	assert.Equal(t, "35m", second.Latest.DurationLabel)

	env.upstreamDown.Store(true)
	w := env.do(http.MethodGet, "/api/status", nil, token)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	w = env.do(http.MethodGet, "/api/status/chart", nil, token)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestGetStatusChart(t *testing.T) {
	env := newTestEnv(t, false)
	token := env.login(t)

	w := env.do(http.MethodGet, "/api/status/chart?axis=duration", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Axis   string                `json:"axis"`
		Points []timeline.ChartPoint `json:"points"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "duration", resp.Axis)
	require.Len(t, resp.Points, 2)
	assert.Equal(t, 1, resp.Points[0].Y)
	assert.Equal(t, float64(0), resp.Points[0].X)
	assert.Equal(t, float64(90), resp.Points[1].X)
}

func TestPages(t *testing.T) {
	env := newTestEnv(t, false)

	get := func(target string, cookie *http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if cookie != nil {
			req.AddCookie(cookie)
		}
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		return w
	}
	postForm := func(target string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if cookie != nil {
			req.AddCookie(cookie)
		}
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		return w
	}

	w := get("/", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = get("/login", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Sign in")

	w = postForm("/login", url.Values{"identifier": {"a@b.c"}, "passcode": {"12"}}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), errInvalidPasscode.Error())

	w = postForm("/login", url.Values{"identifier": {"a@b.c"}, "passcode": {"123456"}}, nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "ringer_session" {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	w = get("/", session)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "1h 30m")
	assert.Contains(t, w.Body.String(), "<table>")

	w = get("/?view=graph&axis=duration&refresh=15", session)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<svg")
	assert.Contains(t, w.Body.String(), `content="15"`)

	w = get("/?start=bogus", session)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid date range")

	w = get("/map?location=Home", session)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<iframe")

	w = postForm("/logout", url.Values{}, session)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = get("/", session)
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestGetGeocode(t *testing.T) {
	env := newTestEnv(t, false)
	token := env.login(t)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/geocode", nil, token).Code)

	w := env.do(http.MethodGet, "/api/geocode?location=Home", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var links geo.MapLinks
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &links))
	assert.Equal(t, geo.FallbackLinks("Home"), links)
}

func TestSubscriptions(t *testing.T) {
	t.Run("push disabled", func(t *testing.T) {
		env := newTestEnv(t, false)
		token := env.login(t)

		w := env.do(http.MethodPut, "/api/subscriptions", gin.H{"endpoint": "https://push.example/1", "p256dh": "k", "auth": "a"}, token)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, http.StatusServiceUnavailable, env.do(http.MethodGet, "/api/vapid_public_key", nil, "").Code)
	})

	t.Run("lifecycle", func(t *testing.T) {
		env := newTestEnv(t, true)
		token := env.login(t)
		endpoint := "https://push.example/1"
		query := "/api/subscriptions?endpoint=" + url.QueryEscape(endpoint)

		w := env.do(http.MethodGet, "/api/vapid_public_key", nil, "")
		assert.JSONEq(t, `{"public_key":"public-key"}`, w.Body.String())

		assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPut, "/api/subscriptions", gin.H{"endpoint": endpoint}, token).Code)
		assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, query, nil, token).Code)

		w = env.do(http.MethodPut, "/api/subscriptions", gin.H{"endpoint": endpoint, "p256dh": "k", "auth": "a"}, token)
		require.Equal(t, http.StatusCreated, w.Code)

		w = env.do(http.MethodGet, query, nil, token)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"subscribed":true`)

		users, err := env.store.WatchedUsers(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"u-1"}, users)

		assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/api/subscriptions", gin.H{"endpoint": endpoint}, token).Code)
		assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, query, nil, token).Code)
	})

	t.Run("endpoint of another account", func(t *testing.T) {
		env := newTestEnv(t, true)
		token := env.login(t)
		endpoint := "https://push.example/other"
		require.NoError(t, env.store.PutSubscription(context.Background(), &model.PushSubscription{
			Endpoint: endpoint, P256DH: "k", Auth: "a", UserID: "u-2", CreatedAt: time.Now(),
		}))

		w := env.do(http.MethodPut, "/api/subscriptions", gin.H{"endpoint": endpoint, "p256dh": "mine", "auth": "mine"}, token)
		assert.Equal(t, http.StatusConflict, w.Code)

		subs, err := env.store.SubscriptionsForUser(context.Background(), "u-2")
		require.NoError(t, err)
		require.Len(t, subs, 1)
		assert.Equal(t, "k", subs[0].P256DH)
	})
}

func TestHealthzAndMetrics(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = env.do(http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ringer_requests_total")
}
