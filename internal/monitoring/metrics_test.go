package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackWebhook(t *testing.T) {
	before := testutil.ToFloat64(webhookEvents.WithLabelValues("checkout.session.completed", "duplicate"))
	TrackWebhook("checkout.session.completed", "duplicate")
	after := testutil.ToFloat64(webhookEvents.WithLabelValues("checkout.session.completed", "duplicate"))
	assert.Equal(t, before+1, after)
}

func TestTrackOrderEvents(t *testing.T) {
	before := testutil.ToFloat64(orderEvents.WithLabelValues("expired"))
	TrackOrderEvents("expired", 3)
	TrackOrderEvents("expired", 0)
	assert.Equal(t, before+3, testutil.ToFloat64(orderEvents.WithLabelValues("expired")))
}

func TestTrackCache(t *testing.T) {
	before := testutil.ToFloat64(cacheLookups.WithLabelValues("query", "hit"))
	TrackCache("query", true)
	assert.Equal(t, before+1, testutil.ToFloat64(cacheLookups.WithLabelValues("query", "hit")))
}

func TestTrackHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(httpRequests.WithLabelValues("POST", "/nl-query", "200"))
	TrackHTTPRequest("POST", "/nl-query", 200, 15*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("POST", "/nl-query", "200")))
}
