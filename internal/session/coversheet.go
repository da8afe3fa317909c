package session

import (
	"context"
	stderrors "errors"
	"fmt"

	"school-finance-reconciler/internal/models"
	"school-finance-reconciler/internal/rules"
	"school-finance-reconciler/internal/store"
	"school-finance-reconciler/pkg/errors"
	"school-finance-reconciler/pkg/logger"
)

// ErrCoverSheetRequired is reported when an investment account upload
// carries no parseable statement data. The caller should collect the
// month's cover sheet figures and call AttachCoverSheet instead.
var ErrCoverSheetRequired = stderrors.New("statement file carries no transaction data; cover sheet figures required")

// AttachCoverSheet records an investment account's monthly cover sheet
// figures on the upload registry and, when the month yielded net income,
// creates a pre-reconciled ledger entry for it dated the last day of the
// month. The created entry id is returned, or empty when the month had
// no net income.
func (s *Session) AttachCoverSheet(ctx context.Context, figures models.CoverSheetFigures, documentURL string) (string, error) {
	if s.kind != models.AccountInvestment {
		return "", errors.ReconciliationError(errors.CodeCoverSheetInvalid, "attach_cover_sheet", nil).
			WithContext("kind", string(s.kind))
	}
	if err := figures.Validate(); err != nil {
		return "", errors.ValidationError(errors.CodeCoverSheetInvalid, "figures", nil, err)
	}
	if s.uploads == nil {
		return "", errors.ReconciliationError(errors.CodeInvalidState, "attach_cover_sheet",
			fmt.Errorf("no upload registry configured"))
	}

	err := s.uploads.Upsert(ctx, s.uploadKey(), store.UploadFields{
		DocumentURL: documentURL,
		CoverSheet:  &figures,
	})
	if err != nil {
		return "", errors.WrapIfNeeded(err, errors.CategoryStore, errors.CodeMutationFailed,
			"cover sheet registration failed")
	}

	net := figures.NetIncome()
	if !net.IsPositive() {
		s.logger.WithFields(logger.Fields{
			"year":  s.year,
			"month": int(s.month),
			"net":   net.String(),
		}).Info("Cover sheet recorded, no net income entry needed")
		return "", nil
	}

	now := s.now()
	entryDate := models.LastDayOfMonth(s.year, s.month)
	ref := fmt.Sprintf("INVYIELD-%04d%02d", s.year, int(s.month))

	entry := &models.LedgerEntry{
		SchoolID:          s.schoolID,
		AccountID:         s.accountID,
		Date:              entryDate,
		SettlementDate:    &entryDate,
		Amount:            net,
		Flow:              models.FlowIncoming,
		Category:          string(rules.CategoryInvestmentIncome),
		Description:       fmt.Sprintf("Investment yield %04d-%02d", s.year, int(s.month)),
		Reconciled:        true,
		ReconciledAt:      &now,
		ReconciliationRef: ref,
		Status:            models.EntryStatusReconciled,
		DocumentURL:       documentURL,
	}

	id, err := s.ledger.CreateEntry(ctx, entry)
	if err != nil {
		return "", errors.WrapIfNeeded(err, errors.CategoryStore, errors.CodeMutationFailed,
			"yield entry creation failed")
	}

	s.logger.WithFields(logger.Fields{
		"entry_id": id,
		"net":      net.String(),
		"ref":      ref,
	}).Info("Investment yield entry created")

	return id, nil
}
