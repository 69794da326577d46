package interfaces

import (
	"context"

	"github.com/Victor-armando18/order-pricing/internal/domain"
	"github.com/Victor-armando18/order-pricing/pkg/pricing"
)

// Definimos o erro aqui para que o usecase possa referenciá-lo facilmente
var ErrRuleExecutionFailed = domain.ErrRuleExecutionFailed

// RulePackLoader define o contrato para carregar os RulePacks (de disco, rede, etc.).
type RulePackLoader interface {
	Load(ctx context.Context, version string) (*domain.RulePackDefinition, error)
}

// RuleExecutor define o contrato para executar uma regra JsonLogic com operadores customizados.
type RuleExecutor interface {
	Execute(ctx context.Context, ruleData map[string]any, contextVars map[string]any) (any, error)
	RegisterCustomOperator(name string, logic func(args ...any) any)
}

// QuoteFacade é a porta de entrada usada pelo servidor HTTP e pela CLI.
type QuoteFacade interface {
	PriceOnly(ctx context.Context, rawOrder []byte) (*pricing.OrderBreakdown, error)
	RunQuote(ctx context.Context, rawOrder []byte, rulePackVersion string) (*domain.QuoteResult, error)
}
