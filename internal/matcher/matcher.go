// Package matcher links imported statement records to ledger entries.
//
// Matching is two-tier, first match wins:
//
//  1. Exact reference match: an entry whose stored reconciliation
//     reference equals the record's external id. The record surfaces as
//     reconciled when that entry is already flagged reconciled,
//     otherwise as a candidate awaiting confirmation.
//  2. Heuristic match: among entries not yet reconciled, the first whose
//     flow corresponds to the record's direction, whose amount magnitude
//     is exactly equal, and whose settlement (or nominal) date is within
//     the configured day tolerance. Ties are broken by store iteration
//     order.
//
// Matching is a pure function of its inputs: re-running it on unchanged
// inputs produces the same assignment, so the session can re-match after
// every ledger window refresh.
package matcher

import (
	"school-finance-reconciler/internal/models"
	"school-finance-reconciler/pkg/logger"
)

// MatchingEngine assigns lifecycle states and entry links to records.
type MatchingEngine struct {
	Config *MatchingConfig

	logger logger.Logger
}

// NewMatchingEngine creates a matching engine with the specified
// configuration. A nil config selects the defaults.
func NewMatchingEngine(config *MatchingConfig) *MatchingEngine {
	if config == nil {
		config = DefaultMatchingConfig()
	}

	return &MatchingEngine{
		Config: config,
		logger: logger.GetGlobalLogger().WithComponent("matcher"),
	}
}

// Match assigns each record a lifecycle state and, when a tier applies,
// a link to a ledger entry. Records in terminal states are left
// untouched; every other record is re-evaluated from scratch, which
// makes repeated runs idempotent. An entry claimed by an earlier record
// in the same run is not offered to later records.
func (me *MatchingEngine) Match(records []*models.BankTransactionRecord, entries []*models.LedgerEntry) {
	claimed := make(map[string]bool)

	candidates := 0
	reconciled := 0

	for _, record := range records {
		if record.State == models.StateReconciled || record.State == models.StateMaterialized {
			continue
		}

		record.State = models.StatePending
		record.LinkedEntryID = ""

		if entry := findByReference(record, entries); entry != nil {
			record.LinkedEntryID = entry.ID
			claimed[entry.ID] = true
			if entry.Reconciled {
				record.State = models.StateReconciled
				reconciled++
			} else {
				record.State = models.StateCandidate
				candidates++
			}
			continue
		}

		if entry := me.findHeuristic(record, entries, claimed); entry != nil {
			record.LinkedEntryID = entry.ID
			claimed[entry.ID] = true
			record.State = models.StateCandidate
			candidates++
		}
	}

	me.logger.WithFields(logger.Fields{
		"records":    len(records),
		"entries":    len(entries),
		"candidates": candidates,
		"reconciled": reconciled,
	}).Debug("Matching pass complete")
}

// findByReference implements the exact reference tier.
func findByReference(record *models.BankTransactionRecord, entries []*models.LedgerEntry) *models.LedgerEntry {
	for _, entry := range entries {
		if entry.ReconciliationRef != "" && entry.ReconciliationRef == record.ExternalID {
			return entry
		}
	}
	return nil
}

// findHeuristic implements the heuristic tier. Already-reconciled
// entries and entries carrying a foreign reconciliation reference are
// structurally excluded, so no double-confirmation path exists.
func (me *MatchingEngine) findHeuristic(record *models.BankTransactionRecord, entries []*models.LedgerEntry, claimed map[string]bool) *models.LedgerEntry {
	for _, entry := range entries {
		if entry.Reconciled || entry.ReconciliationRef != "" || claimed[entry.ID] {
			continue
		}

		if entry.Flow != record.Direction.Flow() {
			continue
		}

		if !entry.Amount.Equal(record.Amount) {
			continue
		}

		if models.DateDiffDays(entry.EffectiveDate(), record.Date) > me.Config.DateToleranceDays {
			continue
		}

		return entry
	}

	return nil
}
