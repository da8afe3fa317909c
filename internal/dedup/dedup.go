// Package dedup merges newly parsed statement records into the session's
// in-memory batch, keyed by the derived external id.
//
// Re-importing a file that was already imported, or importing two files
// with overlapping date ranges, must be a no-op for already-seen
// transactions: a new record is added only when no existing record
// shares its external id, and colliding records are dropped rather than
// overwritten.
package dedup

import (
	"school-finance-reconciler/internal/models"
	"school-finance-reconciler/pkg/logger"
)

// Merge appends the new records that are not already present in the
// batch and returns the merged batch together with the count of
// genuinely new records. The existing batch slice is not mutated.
func Merge(existing, incoming []*models.BankTransactionRecord) ([]*models.BankTransactionRecord, int) {
	seen := make(map[string]bool, len(existing))
	for _, record := range existing {
		seen[record.ExternalID] = true
	}

	merged := make([]*models.BankTransactionRecord, len(existing), len(existing)+len(incoming))
	copy(merged, existing)

	added := 0
	for _, record := range incoming {
		if seen[record.ExternalID] {
			continue
		}
		seen[record.ExternalID] = true
		merged = append(merged, record)
		added++
	}

	if dropped := len(incoming) - added; dropped > 0 {
		logger.GetGlobalLogger().WithComponent("dedup").WithFields(logger.Fields{
			"incoming": len(incoming),
			"added":    added,
			"dropped":  dropped,
		}).Debug("Dropped already-seen records during merge")
	}

	return merged, added
}
