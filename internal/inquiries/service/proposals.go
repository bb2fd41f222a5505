package service

import (
	"context"
	"strings"

	"ims_backend/internal/inquiries/domain"
	"ims_backend/internal/inquiries/repository"
	"ims_backend/platform/apperr"
	"ims_backend/platform/sanitize"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProposalInput struct {
	Title string
	Link  string
	Items []domain.LineItem
}

// CreateProposal prices the line items server-side and attaches the proposal
// to an open inquiry.
func (s *Service) CreateProposal(ctx context.Context, inquiryID uuid.UUID, in ProposalInput) (repository.Proposal, error) {
	inquiry, err := s.repo.GetByID(ctx, inquiryID)
	if err != nil {
		return repository.Proposal{}, err
	}
	if !inquiry.Status.IsOpen() {
		return repository.Proposal{}, apperr.Validation("proposals can only be added to an open inquiry")
	}

	p, err := buildProposal(inquiryID, in)
	if err != nil {
		return repository.Proposal{}, err
	}
	return s.repo.CreateProposal(ctx, p)
}

// UpdateProposal replaces an unconfirmed proposal and recomputes its totals.
func (s *Service) UpdateProposal(ctx context.Context, inquiryID, id uuid.UUID, in ProposalInput) (repository.Proposal, error) {
	current, err := s.repo.GetProposal(ctx, inquiryID, id)
	if err != nil {
		return repository.Proposal{}, err
	}
	if current.Confirmed {
		return repository.Proposal{}, apperr.Validation("a confirmed proposal cannot be changed")
	}

	p, err := buildProposal(inquiryID, in)
	if err != nil {
		return repository.Proposal{}, err
	}
	p.ID = id
	return s.repo.ReplaceProposal(ctx, p)
}

func (s *Service) ListProposals(ctx context.Context, inquiryID uuid.UUID) ([]repository.Proposal, error) {
	if _, err := s.repo.GetByID(ctx, inquiryID); err != nil {
		return nil, err
	}
	return s.repo.ListProposals(ctx, inquiryID)
}

func (s *Service) DeleteProposal(ctx context.Context, inquiryID, id uuid.UUID) error {
	current, err := s.repo.GetProposal(ctx, inquiryID, id)
	if err != nil {
		return err
	}
	if current.Confirmed {
		return apperr.Validation("a confirmed proposal cannot be deleted")
	}
	return s.repo.DeleteProposal(ctx, inquiryID, id)
}

func buildProposal(inquiryID uuid.UUID, in ProposalInput) (repository.Proposal, error) {
	items := make([]domain.LineItem, 0, len(in.Items))
	for _, item := range in.Items {
		item.Description = sanitize.Text(item.Description)
		items = append(items, item)
	}

	totals, err := domain.ComputeTotals(items)
	if err != nil {
		return repository.Proposal{}, apperr.Validation(err.Error())
	}

	return repository.Proposal{
		InquiryID:      inquiryID,
		Title:          sanitize.Text(in.Title),
		Link:           strings.TrimSpace(in.Link),
		Details:        items,
		SubtotalAmount: totals.Subtotal,
		VATAmount:      totals.VAT,
		TotalAmount:    totals.Total,
	}, nil
}

// PaymentDraft derives the payment row of an inquiry from its confirmed proposals.
func (s *Service) PaymentDraft(ctx context.Context, inquiryID uuid.UUID) (PaymentDraft, error) {
	inquiry, err := s.repo.GetByID(ctx, inquiryID)
	if err != nil {
		return PaymentDraft{}, err
	}
	proposals, err := s.repo.ListProposals(ctx, inquiryID)
	if err != nil {
		return PaymentDraft{}, err
	}

	draft := PaymentDraft{InquiryID: inquiryID, ClientID: inquiry.ClientID}
	totals := make([]decimal.Decimal, 0, len(proposals))
	for _, p := range proposals {
		if !p.Confirmed {
			continue
		}
		draft.ProposalIDs = append(draft.ProposalIDs, p.ID)
		totals = append(totals, p.TotalAmount)
	}
	if len(draft.ProposalIDs) == 0 {
		return PaymentDraft{}, apperr.Validation("inquiry has no confirmed proposal")
	}
	draft.Amount = domain.SumTotals(totals)
	return draft, nil
}
