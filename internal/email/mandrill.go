package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultMandrillEndpoint = "https://mandrillapp.com/api/1.0/messages/send"

// MandrillSender posts messages to the Mandrill transactional API.
type MandrillSender struct {
	apiKey    string
	fromName  string
	fromEmail string
	endpoint  string
	client    *http.Client
}

type mandrillRecipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Type  string `json:"type"`
}

type mandrillAttachment struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

type mandrillMessage struct {
	HTML               string               `json:"html"`
	Subject            string               `json:"subject"`
	FromEmail          string               `json:"from_email"`
	FromName           string               `json:"from_name"`
	To                 []mandrillRecipient  `json:"to"`
	TrackOpens         bool                 `json:"track_opens"`
	TrackClicks        bool                 `json:"track_clicks"`
	PreserveRecipients bool                 `json:"preserve_recipients"`
	Metadata           map[string]string    `json:"metadata,omitempty"`
	Attachments        []mandrillAttachment `json:"attachments,omitempty"`
}

type mandrillRequest struct {
	Key     string          `json:"key"`
	Message mandrillMessage `json:"message"`
}

type mandrillResult struct {
	Email        string `json:"email"`
	Status       string `json:"status"`
	RejectReason string `json:"reject_reason"`
}

// NewMandrillSender creates a sender with a 10s HTTP timeout.
func NewMandrillSender(apiKey, fromEmail, fromName string) *MandrillSender {
	return &MandrillSender{
		apiKey:    apiKey,
		fromName:  fromName,
		fromEmail: fromEmail,
		endpoint:  defaultMandrillEndpoint,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// WithEndpoint overrides the API URL. Used by tests.
func (m *MandrillSender) WithEndpoint(endpoint string) *MandrillSender {
	m.endpoint = endpoint
	return m
}

func (m *MandrillSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	payload := mandrillRequest{
		Key: m.apiKey,
		Message: mandrillMessage{
			HTML:        msg.HTML,
			Subject:     msg.Subject,
			FromEmail:   m.fromEmail,
			FromName:    m.fromName,
			TrackOpens:  msg.TrackOpens,
			TrackClicks: msg.TrackClicks,
			// CC addresses must stay visible to the primary recipient.
			PreserveRecipients: hasCC(msg.To),
		},
	}
	for _, to := range msg.To {
		kind := to.Type
		if kind == "" {
			kind = RecipientTo
		}
		payload.Message.To = append(payload.Message.To, mandrillRecipient{Email: to.Email, Name: to.Name, Type: kind})
	}
	if msg.CampaignID != "" {
		payload.Message.Metadata = map[string]string{"campaignId": msg.CampaignID}
	}
	for _, att := range msg.Attachments {
		payload.Message.Attachments = append(payload.Message.Attachments, mandrillAttachment{
			Type:    att.MIMEType,
			Name:    att.FileName,
			Content: base64.StdEncoding.EncodeToString(att.Content),
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mandrill send failed: status %d: %s", resp.StatusCode, string(data))
	}

	var results []mandrillResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil
	}
	var rejected []string
	for _, r := range results {
		if r.Status == "rejected" || r.Status == "invalid" {
			rejected = append(rejected, r.Email+" ("+r.Status+" "+r.RejectReason+")")
		}
	}
	if len(rejected) > 0 && len(rejected) == len(results) {
		return fmt.Errorf("mandrill rejected all recipients: %s", strings.Join(rejected, ", "))
	}
	return nil
}

func hasCC(addrs []Address) bool {
	for _, a := range addrs {
		if a.Type == RecipientCC {
			return true
		}
	}
	return false
}
