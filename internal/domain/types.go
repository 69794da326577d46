package domain

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/Victor-armando18/order-pricing/pkg/pricing"
)

// --- Estruturas de Entrada/Saída ---

// Fases executadas depois do cálculo base, nesta ordem.
var Phases = []string{"surcharges", "discounts", "taxes", "totals", "guards"}

const (
	PhaseGuards = "guards"

	AdjustmentPrefix = "order.adjustments."
	TotalKey         = "order.total"
)

// RulePackDefinition define a estrutura de um conjunto de regras carregado.
type RulePackDefinition struct {
	Version     string       `json:"version" yaml:"version"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Rules       []RuleConfig `json:"rules" yaml:"rules"`
}

type RuleConfig struct {
	ID           string         `json:"id" yaml:"id"`
	Phase        string         `json:"phase" yaml:"phase"`
	Logic        map[string]any `json:"logic" yaml:"logic"`
	OutputKey    string         `json:"output_key" yaml:"output_key"`
	ErrorMessage string         `json:"error_message,omitempty" yaml:"error_message,omitempty"`
}

// QuoteResult é o pedido precificado depois das regras de ajuste.
type QuoteResult struct {
	QuoteID      string
	RulesVersion string
	Breakdown    pricing.OrderBreakdown
	Subtotal     decimal.Decimal
	Adjustments  map[string]decimal.Decimal
	Total        decimal.Decimal
	ServerDelta  bool
	GuardsHit    []GuardViolation
	ExecutionLog []ExecutionStep
}

func (r *QuoteResult) Blocked() bool {
	return len(r.GuardsHit) > 0
}

type ExecutionStep struct {
	Phase   string `json:"phase"`
	RuleID  string `json:"ruleId"`
	Action  string `json:"action"`
	Message string `json:"message"`
}

type GuardViolation struct {
	RuleID  string `json:"ruleId"`
	Reason  string `json:"reason"`
	Context string `json:"context"`
}

// --- Constantes e Erros ---
var (
	ErrRuleExecutionFailed = errors.New("rule execution failed")
	ErrRulePackNotFound    = errors.New("rule pack not found")
	ErrInvalidRulePack     = errors.New("invalid rule pack")
	ErrInvalidOrder        = errors.New("invalid order payload")
	ErrInvalidPatch        = errors.New("invalid order patch")
)
