package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
)

const signatureHeader = "X-Mandrill-Signature"

// MandrillSignatureMiddleware verifies X-Mandrill-Signature when a webhook
// key is configured. An empty key disables verification.
func MandrillSignatureMiddleware(key, webhookURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}

		signature := c.GetHeader(signatureHeader)
		if signature == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing signature"})
			return
		}

		url := webhookURL
		if url == "" {
			url = buildWebhookURL(c, c.Request.URL.Path)
		}
		payload, ok := signedPayload(c, url)
		if !ok {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}

		expected := Sign(key, payload)
		if !hmac.Equal([]byte(expected), []byte(signature)) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
		c.Next()
	}
}

// Sign computes the Mandrill signature of payload.
func Sign(key, payload string) string {
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// signedPayload is the URL followed by every POST key and value sorted by
// key. Raw JSON bodies are signed as URL + body. The body stays readable
// for the handler.
func signedPayload(c *gin.Context, url string) (string, bool) {
	if isForm(c) {
		if err := c.Request.ParseForm(); err != nil {
			return "", false
		}
		keys := make([]string, 0, len(c.Request.PostForm))
		for k := range c.Request.PostForm {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var b strings.Builder
		b.WriteString(url)
		for _, k := range keys {
			for _, v := range c.Request.PostForm[k] {
				b.WriteString(k)
				b.WriteString(v)
			}
		}
		return b.String(), true
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", false
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	return url + string(body), true
}

func isForm(c *gin.Context) bool {
	ct := c.ContentType()
	return ct == "application/x-www-form-urlencoded" || ct == "multipart/form-data"
}

func buildWebhookURL(c *gin.Context, path string) string {
	scheme := "https"
	if c.Request.TLS == nil {
		scheme = "http"
	}
	if forwarded := c.GetHeader("X-Forwarded-Proto"); forwarded != "" {
		scheme = forwarded
	}
	return scheme + "://" + c.Request.Host + path
}
