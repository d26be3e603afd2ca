package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	m := seedMachine(t, ts.store, "DY-001", time.Now().AddDate(0, 1, 0))

	w := ts.do(t, http.MethodPut, "/api/v1/subscriptions", map[string]any{
		"endpoint":            "https://push.example/sub/abc123",
		"p256dh":              "BPubKey",
		"auth":                "AuthSecret",
		"subscribed_machines": []uint{m.ID},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/v1/subscriptions?endpoint=https://push.example/sub/abc123", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON[map[string][]uint](t, w)
	assert.Equal(t, []uint{m.ID}, body["subscribed_machines"])

	w = ts.do(t, http.MethodDelete, "/api/v1/subscriptions", map[string]any{
		"endpoint": "https://push.example/sub/abc123",
	})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/subscriptions?endpoint=https://push.example/sub/abc123", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubscription_ReplacesWatchList(t *testing.T) {
	ts := newTestServer(t)
	m1 := seedMachine(t, ts.store, "DY-001", time.Now().AddDate(0, 1, 0))
	m2 := seedMachine(t, ts.store, "DY-002", time.Now().AddDate(0, 1, 0))

	put := func(machines []uint) {
		w := ts.do(t, http.MethodPut, "/api/v1/subscriptions", map[string]any{
			"endpoint":            "https://push.example/sub/abc123",
			"p256dh":              "BPubKey",
			"auth":                "AuthSecret",
			"subscribed_machines": machines,
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}
	put([]uint{m1.ID})
	put([]uint{m2.ID})

	w := ts.do(t, http.MethodGet, "/api/v1/subscriptions?endpoint=https://push.example/sub/abc123", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON[map[string][]uint](t, w)
	assert.Equal(t, []uint{m2.ID}, body["subscribed_machines"])
}

func TestSubscription_EndpointKeptRaw(t *testing.T) {
	ts := newTestServer(t)

	// Push endpoints may contain "+", which must not decode to a space on
	// lookup.
	endpoint := "https://push.example/sub/a+b+c"
	w := ts.do(t, http.MethodPut, "/api/v1/subscriptions", map[string]any{
		"endpoint": endpoint,
		"p256dh":   "BPubKey",
		"auth":     "AuthSecret",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/subscriptions?endpoint="+endpoint, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestSubscription_Validation(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPut, "/api/v1/subscriptions", map[string]any{
		"endpoint": "https://push.example/sub/abc123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/subscriptions", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVAPIDPublicKey(t *testing.T) {
	unconfigured := newTestServer(t)
	w := unconfigured.do(t, http.MethodGet, "/api/v1/vapid_public_key", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	configured := newTestServerWithPush(t, &webpush.Options{VAPIDPublicKey: "BTestPublicKey"})
	w = configured.do(t, http.MethodGet, "/api/v1/vapid_public_key", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "BTestPublicKey", decodeJSON[map[string]string](t, w)["public_key"])
}
