package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRegistry_ExposesCounters(t *testing.T) {
	r := New("ims")
	r.WebhookEvent("open", "stored")
	r.CampaignDispatched("FOLLOW_UP", "completed")
	r.EmailSent("sent")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`ims_webhook_events_total{event="open",outcome="stored"} 1`,
		`ims_campaign_dispatch_total{kind="FOLLOW_UP",outcome="completed"} 1`,
		`ims_emails_sent_total{outcome="sent"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected metrics output to contain %q", want)
		}
	}
}

func TestRegistry_NilIsSafe(t *testing.T) {
	var r *Registry
	r.WebhookEvent("open", "stored")
	r.CampaignDispatched("BIRTHDAY", "failed")
	r.EmailSent("failed")
}
