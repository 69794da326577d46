package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Victor-armando18/order-pricing/internal/domain"
	"github.com/Victor-armando18/order-pricing/internal/interfaces"
	"github.com/Victor-armando18/order-pricing/pkg/pricing"
)

type QuoteService struct {
	loader   interfaces.RulePackLoader
	executor interfaces.RuleExecutor
	calc     *pricing.Calculator
	logger   *zap.SugaredLogger
}

func NewQuoteService(
	loader interfaces.RulePackLoader,
	executor interfaces.RuleExecutor,
	calc *pricing.Calculator,
	logger *zap.SugaredLogger,
) interfaces.QuoteFacade {
	return &QuoteService{
		loader:   loader,
		executor: executor,
		calc:     calc,
		logger:   logger,
	}
}

func (s *QuoteService) PriceOnly(ctx context.Context, rawOrder []byte) (*pricing.OrderBreakdown, error) {
	order, err := pricing.Decode(rawOrder)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidOrder, err)
	}
	breakdown := s.calc.Breakdown(order)
	return &breakdown, nil
}

func (s *QuoteService) RunQuote(ctx context.Context, rawOrder []byte, version string) (*domain.QuoteResult, error) {
	version = NormalizeVersion(version)

	rulePack, err := s.loader.Load(ctx, version)
	if err != nil {
		return nil, err
	}

	order, err := pricing.Decode(rawOrder)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidOrder, err)
	}

	breakdown := s.calc.Breakdown(order)
	result := &domain.QuoteResult{
		QuoteID:      uuid.NewString(),
		RulesVersion: version,
		Breakdown:    breakdown,
		Subtotal:     breakdown.Total,
		Adjustments:  map[string]decimal.Decimal{},
		GuardsHit:    []domain.GuardViolation{},
		ExecutionLog: []domain.ExecutionStep{},
	}

	initialJSON, err := json.Marshal(s.buildState(result, breakdown.Total))
	if err != nil {
		s.logger.Warnw("failed to snapshot initial state", "quote_id", result.QuoteID, "error", err)
	}
	var totalOverride *decimal.Decimal

	for _, phase := range domain.Phases {
		for _, rule := range s.getRules(rulePack.Rules, phase) {
			out, err := s.executor.Execute(ctx, rule.Logic, s.buildState(result, s.runningTotal(result)))
			if err != nil {
				s.logger.Warnw("rule skipped", "rule_id", rule.ID, "phase", phase, "error", err)
				continue
			}
			if out == nil {
				continue
			}

			if phase == domain.PhaseGuards {
				if v, ok := out.(bool); ok && v {
					msg := rule.ErrorMessage
					if msg == "" {
						msg = "guard condition reached"
					}
					result.GuardsHit = append(result.GuardsHit, domain.GuardViolation{
						RuleID:  rule.ID,
						Reason:  "Violation Detected",
						Context: msg,
					})
				}
				continue
			}

			f, ok := toFloat(out)
			if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
				s.logger.Warnw("rule returned non numeric value", "rule_id", rule.ID, "phase", phase)
				continue
			}
			value := decimal.NewFromFloat(f)

			var oldValue decimal.Decimal
			switch {
			case rule.OutputKey == domain.TotalKey:
				oldValue = s.runningTotal(result)
				if totalOverride != nil {
					oldValue = *totalOverride
				}
				totalOverride = &value
			case strings.HasPrefix(rule.OutputKey, domain.AdjustmentPrefix):
				key := strings.TrimPrefix(rule.OutputKey, domain.AdjustmentPrefix)
				oldValue = result.Adjustments[key]
				result.Adjustments[key] = value
			default:
				s.logger.Warnw("rule output key not supported", "rule_id", rule.ID, "output_key", rule.OutputKey)
				continue
			}

			result.ExecutionLog = append(result.ExecutionLog, domain.ExecutionStep{
				Phase:   phase,
				RuleID:  rule.ID,
				Action:  "compute",
				Message: fmt.Sprintf("Changed %s: [%s -> %s]", rule.OutputKey, pricing.Money(oldValue), pricing.Money(value)),
			})
		}
	}

	result.Total = s.runningTotal(result)
	if totalOverride != nil {
		result.Total = *totalOverride
	}
	result.Total = result.Total.Round(2)

	result.ServerDelta = s.serverDelta(result.QuoteID, initialJSON, s.buildState(result, result.Total))

	s.logger.Infow("quote computed",
		"quote_id", result.QuoteID,
		"order_id", breakdown.OrderID,
		"rules_version", version,
		"subtotal", pricing.Money(result.Subtotal),
		"total", pricing.Money(result.Total),
		"guards_hit", len(result.GuardsHit),
	)

	return result, nil
}

func (s *QuoteService) serverDelta(quoteID string, initialJSON []byte, final map[string]any) bool {
	if initialJSON == nil {
		return false
	}
	finalJSON, err := json.Marshal(final)
	if err != nil {
		s.logger.Warnw("failed to snapshot final state", "quote_id", quoteID, "error", err)
		return false
	}
	patch, err := jsonpatch.CreateMergePatch(initialJSON, finalJSON)
	if err != nil {
		s.logger.Warnw("failed to compute server delta", "quote_id", quoteID, "error", err)
		return false
	}
	return len(patch) > 2
}

// buildState monta o contexto visto pelas regras JsonLogic.
func (s *QuoteService) buildState(result *domain.QuoteResult, total decimal.Decimal) map[string]any {
	adjustments := make(map[string]any, len(result.Adjustments))
	adjustmentsTotal := decimal.Zero
	for k, v := range result.Adjustments {
		adjustments[k] = v.InexactFloat64()
		adjustmentsTotal = adjustmentsTotal.Add(v)
	}

	containers := make(map[string]any, len(result.Breakdown.Containers))
	for id, c := range result.Breakdown.Containers {
		containers[id] = map[string]any{
			"repeatCount": c.RepeatCount.InexactFloat64(),
			"itemsTotal":  c.ItemsTotal.InexactFloat64(),
			"total":       c.Total.InexactFloat64(),
			"itemCount":   len(c.Items),
		}
	}

	return map[string]any{
		"order": map[string]any{
			"id":               result.Breakdown.OrderID,
			"status":           result.Breakdown.Status,
			"subtotal":         result.Subtotal.InexactFloat64(),
			"containerCount":   len(result.Breakdown.Containers),
			"itemCount":        result.Breakdown.ItemCount,
			"containers":       containers,
			"adjustments":      adjustments,
			"adjustmentsTotal": adjustmentsTotal.InexactFloat64(),
			"total":            total.InexactFloat64(),
		},
	}
}

func (s *QuoteService) runningTotal(result *domain.QuoteResult) decimal.Decimal {
	total := result.Subtotal
	keys := make([]string, 0, len(result.Adjustments))
	for k := range result.Adjustments {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		total = total.Add(result.Adjustments[k])
	}
	return total
}

func (s *QuoteService) getRules(rules []domain.RuleConfig, phase string) []domain.RuleConfig {
	var f []domain.RuleConfig
	for _, r := range rules {
		if r.Phase == phase {
			f = append(f, r)
		}
	}
	return f
}

func NormalizeVersion(version string) string {
	version = strings.TrimSpace(version)
	if version == "" {
		return version
	}
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	return version
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}
