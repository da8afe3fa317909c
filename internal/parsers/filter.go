package parsers

import (
	"strings"

	"school-finance-reconciler/internal/models"
)

// FilterInternalMovements drops records whose descriptions identify
// automatic sweeps between the checking and investment sub-accounts:
// those are internal transfers, not reportable movements. Fee and tax
// records are explicitly kept even when their descriptions collide with
// sweep keywords (an early-redemption fee mentions the redemption it
// taxes), so the protected patterns are checked first.
func FilterInternalMovements(records []*models.BankTransactionRecord, config *ParserConfig) ([]*models.BankTransactionRecord, int) {
	if config == nil {
		config = DefaultParserConfig()
	}

	kept := make([]*models.BankTransactionRecord, 0, len(records))
	dropped := 0

	for _, record := range records {
		if isInternalMovement(record.Description, config) {
			dropped++
			continue
		}
		kept = append(kept, record)
	}

	return kept, dropped
}

func isInternalMovement(description string, config *ParserConfig) bool {
	for _, pattern := range config.ProtectedPatterns {
		if strings.Contains(description, pattern) {
			return false
		}
	}

	for _, pattern := range config.InternalMovementPatterns {
		if strings.Contains(description, pattern) {
			return true
		}
	}

	return false
}
