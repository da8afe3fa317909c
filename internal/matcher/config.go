package matcher

import "fmt"

// MatchingConfig controls the heuristic matching tier.
type MatchingConfig struct {
	// DateToleranceDays is the maximum calendar-day distance between a
	// record's posting date and an entry's settlement (or nominal) date
	// for the heuristic tier to link them. Amount equality is always
	// exact; there is no amount tolerance.
	DateToleranceDays int
}

// DefaultMatchingConfig returns the configuration used when none is
// supplied.
func DefaultMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		DateToleranceDays: 3,
	}
}

// Validate checks the configuration.
func (c *MatchingConfig) Validate() error {
	if c.DateToleranceDays < 0 {
		return fmt.Errorf("date tolerance cannot be negative, got %d", c.DateToleranceDays)
	}
	return nil
}

// Clone returns a copy of the configuration.
func (c *MatchingConfig) Clone() *MatchingConfig {
	clone := *c
	return &clone
}
