package matcher

import (
	"sort"

	"school-finance-reconciler/internal/models"
)

// RankManualCandidates returns the unreconciled entries a user can pick
// from when manually pairing a pending record, ranked by absolute amount
// difference ascending and then by entry date descending. The input
// slice is not mutated.
func RankManualCandidates(record *models.BankTransactionRecord, entries []*models.LedgerEntry) []*models.LedgerEntry {
	ranked := make([]*models.LedgerEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Reconciled || entry.ReconciliationRef != "" {
			continue
		}
		ranked = append(ranked, entry)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		diffI := ranked[i].Amount.Sub(record.Amount).Abs()
		diffJ := ranked[j].Amount.Sub(record.Amount).Abs()
		if !diffI.Equal(diffJ) {
			return diffI.LessThan(diffJ)
		}
		return ranked[i].Date.After(ranked[j].Date)
	})

	return ranked
}
