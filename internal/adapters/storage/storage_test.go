package storage

import (
	"encoding/json"
	"testing"
)

type stubConfig struct {
	endpoint string
	ssl      bool
	base     string
}

func (s stubConfig) GetMinIOEndpoint() string      { return s.endpoint }
func (s stubConfig) GetMinIOAccessKey() string     { return "key" }
func (s stubConfig) GetMinIOSecretKey() string     { return "secret" }
func (s stubConfig) GetMinIOUseSSL() bool          { return s.ssl }
func (s stubConfig) GetMinIOMaxFileSize() int64    { return 100 }
func (s stubConfig) GetMinIOPublicBaseURL() string { return s.base }
func (s stubConfig) IsMinIOEnabled() bool          { return s.endpoint != "" }

func TestPublicURL_DefaultsToEndpoint(t *testing.T) {
	svc := &MinIOService{publicBase: publicBaseURL(stubConfig{endpoint: "minio:9000", ssl: true})}
	got := svc.PublicURL("ims", "invoices/INV 001.pdf")
	want := "https://minio:9000/ims/invoices/INV%20001.pdf"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestPublicURL_UsesConfiguredBase(t *testing.T) {
	svc := &MinIOService{publicBase: publicBaseURL(stubConfig{endpoint: "minio:9000", base: "https://cdn.example.com/"})}
	got := svc.PublicURL("ims", "invoices/1.pdf")
	if got != "https://cdn.example.com/ims/invoices/1.pdf" {
		t.Fatalf("unexpected url %q", got)
	}
}

func TestValidateContentType(t *testing.T) {
	for _, ct := range []string{"application/pdf", "image/PNG", "image/jpeg; charset=binary"} {
		if err := ValidateContentType(ct); err != nil {
			t.Fatalf("expected %q to be allowed: %v", ct, err)
		}
	}
	for _, ct := range []string{"text/html", "application/zip", ""} {
		if err := ValidateContentType(ct); err == nil {
			t.Fatalf("expected %q to be rejected", ct)
		}
	}
}

func TestValidateFileSize(t *testing.T) {
	svc := &MinIOService{maxFileSize: 100}
	if err := svc.ValidateFileSize(0); err == nil {
		t.Fatalf("expected empty file to be rejected")
	}
	if err := svc.ValidateFileSize(101); err == nil {
		t.Fatalf("expected oversized file to be rejected")
	}
	if err := svc.ValidateFileSize(100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPublicReadPolicy_OnlyOpensPrefix(t *testing.T) {
	raw, err := publicReadPolicy("ims", "invoices/")
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	var policy bucketPolicy
	if err := json.Unmarshal([]byte(raw), &policy); err != nil {
		t.Fatalf("decode policy: %v", err)
	}
	if len(policy.Statement) != 1 {
		t.Fatalf("expected one statement, got %d", len(policy.Statement))
	}
	st := policy.Statement[0]
	if st.Effect != "Allow" || len(st.Action) != 1 || st.Action[0] != "s3:GetObject" {
		t.Fatalf("expected read-only allow, got %+v", st)
	}
	if len(st.Resource) != 1 || st.Resource[0] != "arn:aws:s3:::ims/invoices/*" {
		t.Fatalf("expected invoices prefix only, got %v", st.Resource)
	}
	if got := st.Principal["AWS"]; len(got) != 1 || got[0] != "*" {
		t.Fatalf("expected anonymous principal, got %v", st.Principal)
	}
}
