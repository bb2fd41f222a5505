package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMandrillSender_PostsMessageWithMetadata(t *testing.T) {
	var got mandrillRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`[{"email":"jane@example.com","status":"sent"}]`))
	}))
	defer srv.Close()

	sender := NewMandrillSender("key-1", "sales@ims.test", "IMS").WithEndpoint(srv.URL)
	err := sender.Send(context.Background(), Message{
		Subject:     "Hello",
		HTML:        "<p>Hi</p>",
		To:          []Address{{Email: "jane@example.com", Name: "Jane"}, {Email: "boss@ims.test", Type: RecipientCC}},
		TrackOpens:  true,
		TrackClicks: true,
		CampaignID:  "c-42",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Key != "key-1" {
		t.Fatalf("expected api key to be sent, got %q", got.Key)
	}
	if got.Message.Metadata["campaignId"] != "c-42" {
		t.Fatalf("expected campaignId metadata, got %v", got.Message.Metadata)
	}
	if len(got.Message.To) != 2 || got.Message.To[0].Type != RecipientTo || got.Message.To[1].Type != RecipientCC {
		t.Fatalf("unexpected recipients: %+v", got.Message.To)
	}
	if !got.Message.PreserveRecipients {
		t.Fatalf("expected preserve_recipients when cc is present")
	}
	if !got.Message.TrackOpens || !got.Message.TrackClicks {
		t.Fatalf("expected tracking flags to be forwarded")
	}
}

func TestMandrillSender_ReturnsErrorOnHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status":"error","message":"Invalid API key"}`))
	}))
	defer srv.Close()

	sender := NewMandrillSender("bad", "sales@ims.test", "IMS").WithEndpoint(srv.URL)
	err := sender.Send(context.Background(), Message{Subject: "x", To: []Address{{Email: "a@b.c"}}})
	if err == nil {
		t.Fatalf("expected error for 500 response")
	}
}

func TestMandrillSender_AllRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"email":"a@b.c","status":"rejected","reject_reason":"hard-bounce"}]`))
	}))
	defer srv.Close()

	sender := NewMandrillSender("k", "sales@ims.test", "IMS").WithEndpoint(srv.URL)
	if err := sender.Send(context.Background(), Message{Subject: "x", To: []Address{{Email: "a@b.c"}}}); err == nil {
		t.Fatalf("expected error when every recipient is rejected")
	}
}

func TestMessage_ValidateRequiresPrimaryRecipient(t *testing.T) {
	msg := Message{Subject: "x", To: []Address{{Email: "cc@b.c", Type: RecipientCC}}}
	if err := msg.Validate(); err != ErrNoRecipients {
		t.Fatalf("expected ErrNoRecipients, got %v", err)
	}
}

type stubEmailConfig struct {
	enabled   bool
	transport string
	key       string
}

func (s stubEmailConfig) GetEmailEnabled() bool       { return s.enabled }
func (s stubEmailConfig) GetEmailTransport() string   { return s.transport }
func (s stubEmailConfig) GetMandrillAPIKey() string   { return s.key }
func (s stubEmailConfig) GetEmailFromName() string    { return "IMS" }
func (s stubEmailConfig) GetEmailFromAddress() string { return "sales@ims.test" }

func TestNewSender_SelectsTransport(t *testing.T) {
	s, err := NewSender(stubEmailConfig{enabled: false}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.(NoopSender); !ok {
		t.Fatalf("expected NoopSender when disabled, got %T", s)
	}

	s, err = NewSender(stubEmailConfig{enabled: true, transport: "mandrill", key: "k"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.(*MandrillSender); !ok {
		t.Fatalf("expected MandrillSender, got %T", s)
	}

	if _, err := NewSender(stubEmailConfig{enabled: true, transport: "smtp"}, nil); err == nil {
		t.Fatalf("expected error for smtp without host")
	}
	if _, err := NewSender(stubEmailConfig{enabled: true, transport: "pigeon"}, nil); err == nil {
		t.Fatalf("expected error for unknown transport")
	}
}
