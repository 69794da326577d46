package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Victor-armando18/order-pricing/internal/domain"
	"github.com/Victor-armando18/order-pricing/internal/infrastructure"
	"github.com/Victor-armando18/order-pricing/internal/interfaces"
	"github.com/Victor-armando18/order-pricing/pkg/pricing"
)

type memoryLoader struct {
	packs map[string]*domain.RulePackDefinition
}

func (m *memoryLoader) Load(ctx context.Context, version string) (*domain.RulePackDefinition, error) {
	pack, ok := m.packs[version]
	if !ok {
		return nil, domain.ErrRulePackNotFound
	}
	return pack, nil
}

const burgerOrder = `{"id": "ORD-1", "status": "pending", "containers": {"c1": {"repeatCount": 1, "items": [{
	"item_name": "Burger", "food_type": "MD", "pricing_type": "INC", "main_dish_price": 14, "is_available": true,
	"customizations": {"Sides": {
		"Fries": {"price": 4, "pricing_type": "INC", "quantity": 1, "is_available": true},
		"Salad": {"price": 4, "pricing_type": "INC", "quantity": 1, "is_available": true}
	}}
}]}}}`

func v1Pack() *domain.RulePackDefinition {
	return &domain.RulePackDefinition{
		Version: "v1",
		Rules: []domain.RuleConfig{
			{
				ID:        "service_fee",
				Phase:     "surcharges",
				Logic:     map[string]any{"percent": []any{map[string]any{"var": "order.subtotal"}, 10.0}},
				OutputKey: "order.adjustments.service",
			},
			{
				ID:    "vat",
				Phase: "taxes",
				Logic: map[string]any{"round": []any{
					map[string]any{"percent": []any{
						map[string]any{"+": []any{
							map[string]any{"var": "order.subtotal"},
							map[string]any{"var": "order.adjustments.service"},
						}},
						14.0,
					}},
					2.0,
				}},
				OutputKey: "order.adjustments.vat",
			},
			{
				ID:           "too_many_items",
				Phase:        "guards",
				Logic:        map[string]any{">": []any{map[string]any{"var": "order.itemCount"}, 20.0}},
				ErrorMessage: "order has more than 20 items",
			},
		},
	}
}

func newTestService(packs map[string]*domain.RulePackDefinition, opts ...pricing.Option) interfaces.QuoteFacade {
	executor := infrastructure.NewJsonLogicExecutor()
	executor.RegisterCustomOperator("round", infrastructure.CustomRound)
	executor.RegisterCustomOperator("percent", infrastructure.CustomPercent)

	return NewQuoteService(&memoryLoader{packs: packs}, executor, pricing.NewCalculator(opts...), zap.NewNop().Sugar())
}

func TestQuoteService_FullFlow(t *testing.T) {
	svc := newTestService(map[string]*domain.RulePackDefinition{"v1": v1Pack()})

	// Subtotal 22.00, serviço 10% -> 2.20, IVA 14% sobre 24.20 -> 3.39, total 27.59
	res, err := svc.RunQuote(context.Background(), []byte(burgerOrder), "1")
	if err != nil {
		t.Fatalf("RunQuote: %v", err)
	}

	if res.RulesVersion != "v1" {
		t.Errorf("expected normalized version v1, got %q", res.RulesVersion)
	}
	if res.QuoteID == "" {
		t.Error("expected a quote id")
	}
	if !res.Subtotal.Equal(decimal.NewFromInt(22)) {
		t.Errorf("expected subtotal 22, got %s", res.Subtotal)
	}
	if got := pricing.Money(res.Adjustments["service"]); got != "2.20" {
		t.Errorf("expected service 2.20, got %s", got)
	}
	if got := pricing.Money(res.Adjustments["vat"]); got != "3.39" {
		t.Errorf("expected vat 3.39, got %s", got)
	}
	if got := pricing.Money(res.Total); got != "27.59" {
		t.Errorf("expected total 27.59, got %s", got)
	}
	if !res.ServerDelta {
		t.Error("expected ServerDelta=true")
	}
	if res.Blocked() {
		t.Errorf("unexpected guards: %+v", res.GuardsHit)
	}
	if len(res.ExecutionLog) != 2 {
		t.Fatalf("expected 2 execution steps, got %d", len(res.ExecutionLog))
	}
	if res.ExecutionLog[0].Phase != "surcharges" || res.ExecutionLog[1].Phase != "taxes" {
		t.Errorf("phases out of order: %+v", res.ExecutionLog)
	}
}

func TestQuoteService_TotalOverrideAndGuards(t *testing.T) {
	pack := &domain.RulePackDefinition{
		Version: "v2",
		Rules: []domain.RuleConfig{
			{
				ID:           "single_item",
				Phase:        "guards",
				Logic:        map[string]any{"==": []any{map[string]any{"var": "order.itemCount"}, 1.0}},
				ErrorMessage: "single item orders need approval",
			},
			{
				ID:        "whole_units",
				Phase:     "totals",
				Logic:     map[string]any{"round": []any{map[string]any{"var": "order.total"}, 0.0}},
				OutputKey: "order.total",
			},
			{
				ID:        "loyalty",
				Phase:     "discounts",
				Logic:     map[string]any{"*": []any{map[string]any{"var": "order.subtotal"}, -0.05}},
				OutputKey: "order.adjustments.loyalty",
			},
		},
	}
	svc := newTestService(map[string]*domain.RulePackDefinition{"v2": pack})

	res, err := svc.RunQuote(context.Background(), []byte(burgerOrder), "v2")
	if err != nil {
		t.Fatalf("RunQuote: %v", err)
	}

	// 22 - 1.10 = 20.90 -> arredondado para 21
	if got := pricing.Money(res.Total); got != "21.00" {
		t.Errorf("expected total 21.00, got %s", got)
	}
	if !res.Blocked() || res.GuardsHit[0].RuleID != "single_item" {
		t.Fatalf("expected single_item guard, got %+v", res.GuardsHit)
	}
	if res.GuardsHit[0].Context != "single item orders need approval" {
		t.Errorf("unexpected guard context %q", res.GuardsHit[0].Context)
	}
	if res.ExecutionLog[0].RuleID != "loyalty" {
		t.Errorf("discounts must run before totals, got %+v", res.ExecutionLog)
	}
}

func TestQuoteService_NoRulesKeepsSubtotal(t *testing.T) {
	svc := newTestService(map[string]*domain.RulePackDefinition{"v0": {Version: "v0"}})

	res, err := svc.RunQuote(context.Background(), []byte(burgerOrder), "v0")
	if err != nil {
		t.Fatalf("RunQuote: %v", err)
	}
	if !res.Total.Equal(res.Subtotal) {
		t.Errorf("expected total == subtotal, got %s vs %s", res.Total, res.Subtotal)
	}
	if res.ServerDelta {
		t.Error("expected no server delta without rules")
	}
}

func TestQuoteService_IgnoresNonNumericAndUnknownKeys(t *testing.T) {
	pack := &domain.RulePackDefinition{
		Version: "v3",
		Rules: []domain.RuleConfig{
			{ID: "label", Phase: "surcharges", Logic: map[string]any{"cat": []any{"a", "b"}}, OutputKey: "order.adjustments.label"},
			{ID: "elsewhere", Phase: "taxes", Logic: map[string]any{"+": []any{1.0, 1.0}}, OutputKey: "order.somethingElse"},
		},
	}
	svc := newTestService(map[string]*domain.RulePackDefinition{"v3": pack})

	res, err := svc.RunQuote(context.Background(), []byte(burgerOrder), "v3")
	if err != nil {
		t.Fatalf("RunQuote: %v", err)
	}
	if len(res.Adjustments) != 0 || len(res.ExecutionLog) != 0 {
		t.Errorf("expected nothing applied, got %+v / %+v", res.Adjustments, res.ExecutionLog)
	}
}

func TestQuoteService_Errors(t *testing.T) {
	svc := newTestService(map[string]*domain.RulePackDefinition{"v1": v1Pack()})

	if _, err := svc.RunQuote(context.Background(), []byte(burgerOrder), "v9"); !errors.Is(err, domain.ErrRulePackNotFound) {
		t.Errorf("expected ErrRulePackNotFound, got %v", err)
	}
	if _, err := svc.RunQuote(context.Background(), []byte(`{"containers":`), "v1"); !errors.Is(err, domain.ErrInvalidOrder) {
		t.Errorf("expected ErrInvalidOrder, got %v", err)
	}
	if _, err := svc.PriceOnly(context.Background(), []byte(`nope`)); !errors.Is(err, domain.ErrInvalidOrder) {
		t.Errorf("expected ErrInvalidOrder, got %v", err)
	}
}

func TestQuoteService_PriceOnlyUsesCalculatorMode(t *testing.T) {
	order := `{"containers": {"a": {"items": [{"food_type": "MD", "pricing_type": "INC", "main_dish_price": 10, "is_available": true,
		"customizations": {"Sides": {"Fries": {"price": 2, "quantity": 3, "is_available": true}}}}]}}}`

	gate, err := newTestService(nil).PriceOnly(context.Background(), []byte(order))
	if err != nil {
		t.Fatalf("PriceOnly: %v", err)
	}
	scale, err := newTestService(nil, pricing.WithChoiceQuantityMode(pricing.ChoiceQuantityScale)).PriceOnly(context.Background(), []byte(order))
	if err != nil {
		t.Fatalf("PriceOnly: %v", err)
	}

	if pricing.Money(gate.Total) != "12.00" || pricing.Money(scale.Total) != "16.00" {
		t.Errorf("expected 12.00/16.00, got %s/%s", pricing.Money(gate.Total), pricing.Money(scale.Total))
	}
}

func TestNormalizeVersion(t *testing.T) {
	cases := map[string]string{"1.2": "v1.2", "v1": "v1", " v3 ": "v3", "": ""}
	for in, want := range cases {
		if got := NormalizeVersion(in); got != want {
			t.Errorf("NormalizeVersion(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestQuoteService_UnencodableStateIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	executor := infrastructure.NewJsonLogicExecutor()
	executor.RegisterCustomOperator("percent", infrastructure.CustomPercent)
	svc := NewQuoteService(&memoryLoader{packs: map[string]*domain.RulePackDefinition{"v1": v1Pack()}}, executor, pricing.NewCalculator(), zap.New(core).Sugar())

	// 1e300 x 1e300 não cabe num float64: o estado vira +Inf e não serializa.
	order := `{"containers": {"a": {"items": [
		{"food_type": "SA", "base_price": 1e300, "quantity": 1e300, "is_available": true}
	]}}}`

	res, err := svc.RunQuote(context.Background(), []byte(order), "v1")
	if err != nil {
		t.Fatalf("RunQuote: %v", err)
	}
	if res.ServerDelta {
		t.Error("expected no server delta when the state cannot be encoded")
	}
	if !res.Total.Equal(res.Subtotal) {
		t.Errorf("expected rules to be skipped, got total %s", res.Total)
	}
	if logs.FilterMessage("failed to snapshot initial state").Len() != 1 {
		t.Errorf("expected the snapshot failure to be logged, got %v", logs.All())
	}
}

func TestQuoteService_SkipsNonFiniteRuleOutput(t *testing.T) {
	pack := &domain.RulePackDefinition{
		Version: "v4",
		Rules: []domain.RuleConfig{{
			ID:        "overflow",
			Phase:     "surcharges",
			Logic:     map[string]any{"percent": []any{1e308, 1e308}},
			OutputKey: "order.adjustments.overflow",
		}},
	}
	svc := newTestService(map[string]*domain.RulePackDefinition{"v4": pack})

	res, err := svc.RunQuote(context.Background(), []byte(burgerOrder), "v4")
	if err != nil {
		t.Fatalf("RunQuote: %v", err)
	}
	if _, ok := res.Adjustments["overflow"]; ok {
		t.Errorf("expected infinite output to be skipped, got %+v", res.Adjustments)
	}
	if got := pricing.Money(res.Total); got != "22.00" {
		t.Errorf("expected total 22.00, got %s", got)
	}
}
