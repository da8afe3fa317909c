package parsers

import "fmt"

// ParserConfig controls statement parsing and post-filtering.
type ParserConfig struct {
	// InternalMovementPatterns drop records that represent automatic
	// sweeps between the checking and investment sub-accounts. Matched
	// against the normalized (uppercase) description.
	InternalMovementPatterns []string

	// ProtectedPatterns override the internal-movement filter: fee and
	// tax records must stay in the reconciliation even when their
	// descriptions collide with sweep keywords. Evaluated first.
	ProtectedPatterns []string

	// HeaderWords mark a first delimited row as a header to skip.
	HeaderWords []string
}

// DefaultParserConfig returns the configuration used when none is
// supplied. The pattern vocabulary follows the statement wording of the
// supported banks.
func DefaultParserConfig() *ParserConfig {
	return &ParserConfig{
		InternalMovementPatterns: []string{
			"APLICACAO",
			"APLIC AUT",
			"RESGATE",
			"RESG AUT",
			"RENDE FACIL",
			"TRANSFERENCIA ENTRE CONTAS",
			"TRANSF ENTRE CONTAS",
			"CONTA INVESTIMENTO",
		},
		ProtectedPatterns: []string{
			"TARIFA",
			"TAXA",
			"TAR ",
			"IOF",
			"IMPOSTO",
			"ENCARGO",
		},
		HeaderWords: []string{"date", "data"},
	}
}

// Validate checks the configuration.
func (c *ParserConfig) Validate() error {
	if len(c.HeaderWords) == 0 {
		return fmt.Errorf("header words cannot be empty")
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *ParserConfig) Clone() *ParserConfig {
	clone := &ParserConfig{
		InternalMovementPatterns: make([]string, len(c.InternalMovementPatterns)),
		ProtectedPatterns:        make([]string, len(c.ProtectedPatterns)),
		HeaderWords:              make([]string, len(c.HeaderWords)),
	}
	copy(clone.InternalMovementPatterns, c.InternalMovementPatterns)
	copy(clone.ProtectedPatterns, c.ProtectedPatterns)
	copy(clone.HeaderWords, c.HeaderWords)
	return clone
}
