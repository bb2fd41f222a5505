package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"ims_backend/internal/adapters/storage"
	"ims_backend/internal/payments/repository"
	"ims_backend/internal/shared/paging"
	"ims_backend/platform/apperr"
	"ims_backend/platform/db"
	"ims_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	CampaignKindInvoice = "INVOICE_EMAIL"
	TemplateInvoice     = "invoice-email"

	// InvoicePrefix is the public-read key prefix of invoice files.
	InvoicePrefix = "invoices/"
)

// Repository is the payment persistence used by the service.
type Repository interface {
	UpsertForInquiry(ctx context.Context, p repository.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (repository.Payment, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (repository.Payment, error)
	GetByInquiry(ctx context.Context, inquiryID uuid.UUID) (repository.Payment, error)
	List(ctx context.Context, params repository.ListParams) (paging.Page[repository.Payment], error)
	SetStatus(ctx context.Context, id uuid.UUID, status string, clearedAt *time.Time) error
	CreateInvoice(ctx context.Context, inv repository.Invoice) (repository.Invoice, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (repository.Invoice, error)
	ListInvoices(ctx context.Context, paymentID uuid.UUID) ([]repository.Invoice, error)
}

// Storage is the blob store subset used for invoice files.
type Storage interface {
	PutObject(ctx context.Context, bucket, key, contentType string, reader io.Reader, size int64) error
	PublicURL(bucket, key string) string
	GenerateDownloadURL(ctx context.Context, bucket, fileKey string) (*storage.PresignedURL, error)
	DeleteObject(ctx context.Context, bucket, fileKey string) error
	ValidateContentType(contentType string) error
	ValidateFileSize(sizeBytes int64) error
}

// InquiryContact is what the invoice email needs from the inquiry.
type InquiryContact struct {
	Name            string
	Email           string
	AccountantEmail string
	EventName       string
}

type Inquiries interface {
	Contact(ctx context.Context, inquiryID uuid.UUID) (InquiryContact, error)
	RecordActivity(ctx context.Context, inquiryID uuid.UUID, message string) error
}

// InvoiceCampaign is the INVOICE_EMAIL campaign sourced from an inquiry.
type InvoiceCampaign struct {
	Name      string
	InquiryID uuid.UUID
	To        string
	ToName    string
	Vars      map[string]interface{}
}

type Campaigns interface {
	EnqueueInvoice(ctx context.Context, c InvoiceCampaign) (uuid.UUID, error)
}

type Clients interface {
	AddSpent(ctx context.Context, clientID uuid.UUID, amount decimal.Decimal) error
}

type Config interface {
	GetMinioBucketInvoices() string
}

// Ports groups the dependencies wired after construction.
type Ports struct {
	Inquiries Inquiries
	Campaigns Campaigns
	Clients   Clients
}

type Service struct {
	repo    Repository
	tx      db.TxRunner
	storage Storage
	bucket  string
	ports   Ports
	log     *logger.Logger
	now     func() time.Time
}

// New creates the payments service. store may be nil when blob storage is
// disabled, in which case invoice uploads fail.
func New(repo Repository, tx db.TxRunner, store Storage, cfg Config, log *logger.Logger) *Service {
	return &Service{
		repo:    repo,
		tx:      tx,
		storage: store,
		bucket:  cfg.GetMinioBucketInvoices(),
		log:     log,
		now:     time.Now,
	}
}

func (s *Service) SetPorts(p Ports) {
	s.ports = p
}

// UpsertForInquiry writes the payment of a confirmed inquiry.
func (s *Service) UpsertForInquiry(ctx context.Context, p repository.Payment) error {
	if p.Amount.IsNegative() {
		return apperr.Validation("payment amount must not be negative")
	}
	return s.repo.UpsertForInquiry(ctx, p)
}

// Detail is a payment with its invoices.
type Detail struct {
	Payment  repository.Payment
	Invoices []repository.Invoice
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Detail, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	invoices, err := s.repo.ListInvoices(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Payment: p, Invoices: invoices}, nil
}

func (s *Service) GetByInquiry(ctx context.Context, inquiryID uuid.UUID) (repository.Payment, error) {
	return s.repo.GetByInquiry(ctx, inquiryID)
}

func (s *Service) List(ctx context.Context, params repository.ListParams) (paging.Page[repository.Payment], error) {
	return s.repo.List(ctx, params)
}

func (s *Service) ListInvoices(ctx context.Context, paymentID uuid.UUID) ([]repository.Invoice, error) {
	if _, err := s.repo.GetByID(ctx, paymentID); err != nil {
		return nil, err
	}
	return s.repo.ListInvoices(ctx, paymentID)
}

// UploadInput is one invoice file.
type UploadInput struct {
	Number      string
	FileName    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// UploadInvoice stores the file at invoices/{number}.{ext} and records it.
func (s *Service) UploadInvoice(ctx context.Context, paymentID uuid.UUID, in UploadInput, actorID uuid.UUID) (repository.Invoice, error) {
	if s.storage == nil {
		return repository.Invoice{}, apperr.Internal("file storage is not configured")
	}
	number, err := invoiceNumber(in.Number)
	if err != nil {
		return repository.Invoice{}, err
	}
	if err := s.storage.ValidateContentType(in.ContentType); err != nil {
		return repository.Invoice{}, apperr.Validation(err.Error())
	}
	if err := s.storage.ValidateFileSize(in.Size); err != nil {
		return repository.Invoice{}, apperr.Validation(err.Error())
	}

	payment, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return repository.Invoice{}, err
	}
	if payment.Status == repository.StatusCleared {
		return repository.Invoice{}, apperr.Validation("payment is already cleared")
	}
	key := InvoicePrefix + number + strings.ToLower(filepath.Ext(in.FileName))
	url := s.storage.PublicURL(s.bucket, key)

	// Insert before uploading; the unique number guards the object key.
	var (
		created repository.Invoice
		stored  bool
	)
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		inv, err := s.repo.CreateInvoice(ctx, repository.Invoice{
			PaymentID: paymentID,
			Number:    number,
			FileKey:   key,
			FileURL:   url,
			CreatedBy: actorPtr(actorID),
		})
		if err != nil {
			return err
		}
		created = inv

		if err := s.storage.PutObject(ctx, s.bucket, key, in.ContentType, in.Reader, in.Size); err != nil {
			return fmt.Errorf("store invoice: %w", err)
		}
		stored = true

		if s.ports.Inquiries == nil {
			return nil
		}
		return s.ports.Inquiries.RecordActivity(ctx, payment.InquiryID, fmt.Sprintf("Invoice %s uploaded: %s", number, url))
	})
	if err != nil {
		if stored {
			if delErr := s.storage.DeleteObject(context.WithoutCancel(ctx), s.bucket, key); delErr != nil {
				s.log.Warn("failed to remove orphaned invoice file", "key", key, "error", delErr)
			}
		}
		return repository.Invoice{}, err
	}

	s.log.Info("invoice uploaded", "paymentId", paymentID, "number", number)
	return created, nil
}

// InvoiceDownloadURL presigns a download link for one invoice.
func (s *Service) InvoiceDownloadURL(ctx context.Context, invoiceID uuid.UUID) (*storage.PresignedURL, error) {
	if s.storage == nil {
		return nil, apperr.Internal("file storage is not configured")
	}
	inv, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return s.storage.GenerateDownloadURL(ctx, s.bucket, inv.FileKey)
}

// SendInvoices queues the invoice email to the accountant, or the contact when
// none is set, and marks the payment UNPAID.
func (s *Service) SendInvoices(ctx context.Context, paymentID uuid.UUID) (repository.Payment, error) {
	if s.ports.Inquiries == nil || s.ports.Campaigns == nil {
		return repository.Payment{}, apperr.Internal("payments are not wired")
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		payment, err := s.repo.GetForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment.Status == repository.StatusCleared {
			return apperr.Validation("payment is already cleared")
		}
		invoices, err := s.repo.ListInvoices(ctx, paymentID)
		if err != nil {
			return err
		}
		if len(invoices) == 0 {
			return apperr.Validation("upload at least one invoice before sending")
		}

		contact, err := s.ports.Inquiries.Contact(ctx, payment.InquiryID)
		if err != nil {
			return err
		}
		to, toName := contact.AccountantEmail, ""
		if strings.TrimSpace(to) == "" {
			to, toName = contact.Email, contact.Name
		}

		links := make([]map[string]interface{}, 0, len(invoices))
		numbers := make([]string, 0, len(invoices))
		for _, inv := range invoices {
			links = append(links, map[string]interface{}{"number": inv.Number, "url": inv.FileURL})
			numbers = append(numbers, inv.Number)
		}

		if _, err := s.ports.Campaigns.EnqueueInvoice(ctx, InvoiceCampaign{
			Name:      "Invoices: " + contact.EventName,
			InquiryID: payment.InquiryID,
			To:        to,
			ToName:    toName,
			Vars: map[string]interface{}{
				"name":       contact.Name,
				"event_name": contact.EventName,
				"invoices":   links,
				"amount":     payment.Amount.StringFixed(2),
			},
		}); err != nil {
			return err
		}

		if err := s.repo.SetStatus(ctx, paymentID, repository.StatusUnpaid, nil); err != nil {
			return err
		}
		return s.ports.Inquiries.RecordActivity(ctx, payment.InquiryID,
			fmt.Sprintf("Invoices %s sent to %s", strings.Join(numbers, ", "), to))
	})
	if err != nil {
		return repository.Payment{}, err
	}
	return s.repo.GetByID(ctx, paymentID)
}

// ClearPayment marks an UNPAID payment CLEARED and adds its amount to the
// client's total spent. Clearing twice is a no-op; a PENDING payment has no
// invoices sent yet and is rejected.
func (s *Service) ClearPayment(ctx context.Context, paymentID uuid.UUID) (repository.Payment, error) {
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		payment, err := s.repo.GetForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment.Status == repository.StatusCleared {
			return nil
		}
		if payment.Status != repository.StatusUnpaid {
			return apperr.Validation("send the invoices before clearing the payment")
		}

		now := s.now()
		if err := s.repo.SetStatus(ctx, paymentID, repository.StatusCleared, &now); err != nil {
			return err
		}
		if payment.ClientID != nil && s.ports.Clients != nil {
			if err := s.ports.Clients.AddSpent(ctx, *payment.ClientID, payment.Amount); err != nil {
				return err
			}
		}
		if s.ports.Inquiries != nil {
			return s.ports.Inquiries.RecordActivity(ctx, payment.InquiryID,
				"Payment of "+payment.Amount.StringFixed(2)+" cleared")
		}
		return nil
	})
	if err != nil {
		return repository.Payment{}, err
	}
	return s.repo.GetByID(ctx, paymentID)
}

// invoiceNumber rejects numbers that would escape the invoices/ prefix.
func invoiceNumber(raw string) (string, error) {
	number := strings.TrimSpace(raw)
	if number == "" {
		return "", apperr.Validation("invoice number is required")
	}
	if strings.ContainsAny(number, `/\`) || strings.Contains(number, "..") {
		return "", apperr.Validation("invoice number contains invalid characters")
	}
	return number, nil
}

func actorPtr(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
