package ginserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"staycal/internal/app/registry"
	domainlistings "staycal/internal/domain/listings"
	"staycal/internal/infra/obs"
	"staycal/internal/infra/security"
	"staycal/internal/infra/storage/memory"
)

const hostToken = "Bearer host-1:secret"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	repo := memory.NewListingRepository()
	for _, l := range []*domainlistings.Listing{
		{ID: "L1", Host: "host-1", PricePerNight: decimal.NewFromInt(100), Available: true, Location: &domainlistings.Coordinates{Lat: 55.75, Lon: 37.62}},
		{ID: "L2", Host: "host-2", PricePerNight: decimal.NewFromInt(80), Available: true, Location: &domainlistings.Coordinates{Lat: 55.76, Lon: 37.63}},
	} {
		require.NoError(t, repo.Save(context.Background(), l))
	}
	box := memory.NewOutbox(nil)
	buses := registry.Build(registry.Deps{
		UoWFactory:  memory.Factory{ListingsRepo: repo, CalendarStore: memory.NewCalendarStore(), Outbox: box},
		Outbox:      box,
		Idempotency: memory.NewIdempotencyStore(),
		Clock:       func() time.Time { return time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC) },
	})
	hash, err := security.BcryptHasher{Cost: bcrypt.MinCost}.Hash("secret")
	require.NoError(t, err)

	return NewRouter(Options{Env: "test"}, obs.Middleware{}, obs.NewHealth(time.Now(), nil), Handlers{
		Availability:   AvailabilityHandler{Queries: buses.Queries, Commands: buses.Commands},
		Proximity:      ProximityHandler{Queries: buses.Queries},
		AuthMiddleware: HostAuth{Keys: security.NewHostKeys(map[string]string{"host-1": hash})}.Handle,
	})
}

func do(r http.Handler, method, target, body, auth string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestCalendarEndpoints(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodGet, "/api/v1/listings/L1/calendar?start=2025-01-12&end=2025-01-14", "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	days := body["days"].([]any)
	require.Len(t, days, 3)
	assert.Equal(t, "100.00", days[0].(map[string]any)["effective_price"])
	assert.Nil(t, days[0].(map[string]any)["price_override"])

	w = do(r, http.MethodPut, "/api/v1/listings/L1/calendar",
		`{"entries":[{"date":"2025-01-13","is_available":true,"price_override":"250"}]}`, hostToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(r, http.MethodGet, "/api/v1/listings/L1/availability?check_in=2025-01-12&check_out=2025-01-14", "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	assert.Equal(t, true, body["is_available"])
	assert.Equal(t, "350.00", body["total_price"])
	assert.Equal(t, "175.00", body["average_price_per_night"])
}

func TestCalendarErrors(t *testing.T) {
	r := newTestRouter(t)
	cases := []struct {
		name   string
		method string
		target string
		body   string
		auth   string
		status int
	}{
		{"reversed range", http.MethodGet, "/api/v1/listings/L1/calendar?start=2025-01-14&end=2025-01-12", "", "", http.StatusBadRequest},
		{"missing end", http.MethodGet, "/api/v1/listings/L1/calendar?start=2025-01-14", "", "", http.StatusBadRequest},
		{"bad date", http.MethodGet, "/api/v1/listings/L1/calendar?start=14.01.2025&end=2025-01-15", "", "", http.StatusBadRequest},
		{"unknown listing", http.MethodGet, "/api/v1/listings/nope/calendar?start=2025-01-12&end=2025-01-14", "", "", http.StatusNotFound},
		{"empty stay", http.MethodGet, "/api/v1/listings/L1/availability?check_in=2025-01-12&check_out=2025-01-12", "", "", http.StatusBadRequest},
		{"anonymous write", http.MethodPost, "/api/v1/listings/L1/calendar/block", `{"start":"2025-01-12","end":"2025-01-13"}`, "", http.StatusUnauthorized},
		{"bad key", http.MethodPost, "/api/v1/listings/L1/calendar/block", `{"start":"2025-01-12","end":"2025-01-13"}`, "Bearer host-1:nope", http.StatusUnauthorized},
		{"foreign listing", http.MethodPost, "/api/v1/listings/L2/calendar/block", `{"start":"2025-01-12","end":"2025-01-13"}`, hostToken, http.StatusForbidden},
		{"past block", http.MethodPost, "/api/v1/listings/L1/calendar/block", `{"start":"2025-01-01","end":"2025-01-13"}`, hostToken, http.StatusBadRequest},
		{"empty entries", http.MethodPut, "/api/v1/listings/L1/calendar", `{"entries":[]}`, hostToken, http.StatusBadRequest},
		{"zero price", http.MethodPut, "/api/v1/listings/L1/calendar", `{"entries":[{"date":"2025-01-13","is_available":true,"price_override":0}]}`, hostToken, http.StatusBadRequest},
		{"span too long", http.MethodGet, "/api/v1/listings/L1/calendar?start=0001-01-02&end=9999-12-31", "", "", http.StatusBadRequest},
		{"stay too long", http.MethodGet, "/api/v1/listings/L1/availability?check_in=2025-01-12&check_out=2030-01-12", "", "", http.StatusBadRequest},
		{"block too long", http.MethodPost, "/api/v1/listings/L1/calendar/block", `{"start":"2025-01-12","end":"2035-01-13"}`, hostToken, http.StatusBadRequest},
		{"export disabled", http.MethodPost, "/api/v1/listings/L1/calendar/export", `{"start":"2025-01-12","end":"2025-01-13"}`, hostToken, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, tc.method, tc.target, tc.body, tc.auth)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
			assert.NotEmpty(t, decode(t, w)["error"])
		})
	}
}

func TestBlockEndpoint(t *testing.T) {
	r := newTestRouter(t)
	w := do(r, http.MethodPost, "/api/v1/listings/L1/calendar/block",
		`{"start":"2025-01-12","end":"2025-01-13","reason":"repairs"}`, hostToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []any{"2025-01-12", "2025-01-13"}, decode(t, w)["dates"])

	w = do(r, http.MethodGet, "/api/v1/listings/L1/availability?check_in=2025-01-13&check_out=2025-01-15", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["is_available"])
}

func TestProximityEndpoints(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodGet, "/api/v1/listings/nearby?lat=55.75&lon=37.62&radius_km=5", "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.EqualValues(t, 2, body["total"])
	first := body["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "L1", first["id"])

	w = do(r, http.MethodGet, "/api/v1/listings/nearby?lat=55.75&lon=37.62&radius_km=5&limit=1&exact=true", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["total"])

	w = do(r, http.MethodGet, "/api/v1/listings/nearby?lat=55.75&lon=37.62&radius_km=0", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/v1/listings/nearby?lat=x&lon=37.62&radius_km=1", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/v1/listings/bounds?north=56&south=55&east=38&west=37", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["total"])

	w = do(r, http.MethodGet, "/api/v1/listings/bounds?north=55&south=56&east=38&west=37", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOperationalRoutes(t *testing.T) {
	r := newTestRouter(t)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/livez", "", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/readyz", "", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/status", "", "").Code)
	w := do(r, http.MethodGet, "/swagger/doc.json", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/listings/nearby")
}

func TestIdempotencyKeyConflict(t *testing.T) {
	r := newTestRouter(t)
	send := func(end string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/listings/L1/calendar/block",
			strings.NewReader(`{"start":"2025-01-12","end":"`+end+`"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", hostToken)
		req.Header.Set("Idempotency-Key", "abc")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	require.Equal(t, http.StatusOK, send("2025-01-13").Code)
	assert.Equal(t, http.StatusOK, send("2025-01-13").Code)
	assert.Equal(t, http.StatusConflict, send("2025-01-20").Code)
}
