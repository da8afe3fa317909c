// Package rules suggests ledger categorization for quick-created
// entries by keyword-matching statement record descriptions.
//
// The vocabulary is a prioritized, data-driven rule list rather than
// inline conditionals: the first rule whose pattern is contained in the
// normalized description wins, and each rule carries the keywords used
// to pre-select a rubric.
package rules

import "strings"

// Category is a suggested ledger category for a quick-created entry.
type Category string

const (
	CategoryBankFee          Category = "BANK_FEE"
	CategoryInvestmentIncome Category = "INVESTMENT_INCOME"
	CategorySupplierPayment  Category = "SUPPLIER_PAYMENT"
	CategoryTaxWithholding   Category = "TAX_WITHHOLDING"
)

// Rule maps a description pattern to a suggested category and the
// keywords used to pick a rubric.
type Rule struct {
	Pattern        string
	Category       Category
	RubricKeywords []string
}

// Suggestion is the categorization offered for one record description.
type Suggestion struct {
	Category       Category
	RubricKeywords []string
}

// DefaultRules returns the built-in rule list, ordered by priority.
// Patterns are matched against normalized (uppercase) descriptions.
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: "TARIFA", Category: CategoryBankFee, RubricKeywords: []string{"TARIFA", "SERVICO", "FEE", "SERVICE"}},
		{Pattern: "TAXA", Category: CategoryBankFee, RubricKeywords: []string{"TARIFA", "SERVICO", "FEE", "SERVICE"}},
		{Pattern: "TAR ", Category: CategoryBankFee, RubricKeywords: []string{"TARIFA", "SERVICO", "FEE", "SERVICE"}},
		{Pattern: "IOF", Category: CategoryTaxWithholding, RubricKeywords: []string{"IMPOSTO", "TAX"}},
		{Pattern: "IMPOSTO", Category: CategoryTaxWithholding, RubricKeywords: []string{"IMPOSTO", "TAX"}},
		{Pattern: "RENDIMENTO", Category: CategoryInvestmentIncome, RubricKeywords: []string{"RENDIMENTO", "APLICACAO", "INCOME"}},
		{Pattern: "JUROS", Category: CategoryInvestmentIncome, RubricKeywords: []string{"RENDIMENTO", "APLICACAO", "INCOME"}},
		{Pattern: "PAGAMENTO", Category: CategorySupplierPayment, RubricKeywords: []string{"FORNECEDOR", "SUPPLIER"}},
		{Pattern: "FORNECEDOR", Category: CategorySupplierPayment, RubricKeywords: []string{"FORNECEDOR", "SUPPLIER"}},
	}
}

// Engine evaluates the rule list against record descriptions.
type Engine struct {
	rules []Rule
}

// NewEngine creates a suggestion engine. A nil rule list selects the
// built-in rules.
func NewEngine(ruleList []Rule) *Engine {
	if ruleList == nil {
		ruleList = DefaultRules()
	}
	return &Engine{rules: ruleList}
}

// Suggest returns the categorization for a description, or false when no
// rule applies. The description is normalized before matching.
func (e *Engine) Suggest(description string) (Suggestion, bool) {
	normalized := strings.ToUpper(description)

	for _, rule := range e.rules {
		if strings.Contains(normalized, rule.Pattern) {
			return Suggestion{
				Category:       rule.Category,
				RubricKeywords: rule.RubricKeywords,
			}, true
		}
	}

	return Suggestion{}, false
}

// PickRubric returns the first rubric name containing one of the
// suggestion's keywords, case-insensitively, or false when none does.
func (s Suggestion) PickRubric(rubricNames []string) (string, bool) {
	for _, name := range rubricNames {
		upper := strings.ToUpper(name)
		for _, keyword := range s.RubricKeywords {
			if strings.Contains(upper, keyword) {
				return name, true
			}
		}
	}
	return "", false
}
