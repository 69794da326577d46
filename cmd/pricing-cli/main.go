package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Victor-armando18/order-pricing/internal/domain"
	"github.com/Victor-armando18/order-pricing/internal/infrastructure"
	"github.com/Victor-armando18/order-pricing/internal/logger"
	"github.com/Victor-armando18/order-pricing/internal/usecase"
	"github.com/Victor-armando18/order-pricing/pkg/pricing"
)

func main() {
	rulesDir := flag.String("rules", "rules", "directory holding <version>_rules.{json,yaml}")
	version := flag.String("version", "v1", "rule pack version")
	mode := flag.String("mode", string(pricing.ChoiceQuantityGate), "choice quantity mode: gate or scale")
	priceOnly := flag.Bool("price-only", false, "skip the adjustment rule pack")
	verbose := flag.Bool("verbose", false, "log rule execution to stderr")
	flag.Parse()

	if err := run(os.Stdout, flag.Arg(0), *rulesDir, *version, *mode, *priceOnly, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "\nERRO: %v\n", err)
		os.Exit(1)
	}
}

func run(out io.Writer, path, rulesDir, version, mode string, priceOnly, verbose bool) error {
	raw, err := readOrder(path)
	if err != nil {
		return err
	}

	choiceMode, ok := pricing.ParseChoiceQuantityMode(mode)
	if !ok {
		return fmt.Errorf("unknown choice quantity mode %q", mode)
	}

	log := zap.NewNop().Sugar()
	if verbose {
		log = logger.New(false)
	}

	executor := infrastructure.NewJsonLogicExecutor()
	executor.RegisterCustomOperator("round", infrastructure.CustomRound)
	executor.RegisterCustomOperator("percent", infrastructure.CustomPercent)

	service := usecase.NewQuoteService(
		infrastructure.NewFileRuleLoader(rulesDir),
		executor,
		pricing.NewCalculator(pricing.WithChoiceQuantityMode(choiceMode)),
		log,
	)

	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintln(out, "   ORDER PRICING CLI - DIAGNOSTIC TOOL")
	fmt.Fprintln(out, strings.Repeat("=", 60))

	if priceOnly {
		breakdown, err := service.PriceOnly(context.Background(), raw)
		if err != nil {
			return err
		}
		displayBreakdown(out, *breakdown)
		fmt.Fprintf(out, "\n   Total:       %s\n", pricing.Money(breakdown.Total))
		fmt.Fprintln(out, strings.Repeat("=", 60))
		return nil
	}

	result, err := service.RunQuote(context.Background(), raw, version)
	if err != nil {
		return err
	}
	displayExecutionSummary(out, result)
	return nil
}

func readOrder(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("order file not found [%s]: %w", path, err)
	}
	return data, nil
}

func displayBreakdown(out io.Writer, b pricing.OrderBreakdown) {
	fmt.Fprintln(out, "\n[1. CONTAINERS]")
	ids := make([]string, 0, len(b.Containers))
	for id := range b.Containers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		c := b.Containers[id]
		fmt.Fprintf(out, "   Container %-10s x%-3s subtotal %10s -> %10s\n",
			id, c.RepeatCount.String(), pricing.Money(c.ItemsTotal), pricing.Money(c.Total))
		for _, item := range c.Items {
			status := ""
			if !item.Available {
				status = " (indisponível)"
			}
			fmt.Fprintf(out, "      - %-24s [%-2s/%-3s] %10s%s\n",
				item.Name, item.FoodType, item.PricingType, pricing.Money(item.Amount), status)
		}
	}
}

func displayExecutionSummary(out io.Writer, res *domain.QuoteResult) {
	displayBreakdown(out, res.Breakdown)

	// 2. LOG DE EXECUÇÃO (O Caminho Percorrido)
	fmt.Fprintln(out, "\n[2. LOG DE EXECUÇÃO]")
	for _, step := range res.ExecutionLog {
		fmt.Fprintf(out, "   [%-12s] Rule: %-20s -> %s\n",
			strings.ToUpper(step.Phase), step.RuleID, step.Message)
	}

	fmt.Fprintln(out, "\n[3. GUARDS / BLOQUEIOS]")
	if len(res.GuardsHit) == 0 {
		fmt.Fprintln(out, "   Nenhuma violação detectada.")
	} else {
		for _, guard := range res.GuardsHit {
			fmt.Fprintf(out, "   BLOQUEIO: [%s] Motivo: %s\n", guard.RuleID, guard.Context)
		}
	}

	fmt.Fprintln(out, "\n[4. RESUMO]")
	fmt.Fprintf(out, "   Quote:       %s\n", res.QuoteID)
	fmt.Fprintf(out, "   Status:      %s\n", map[bool]string{true: "BLOQUEADO", false: "APROVADO"}[res.Blocked()])
	fmt.Fprintf(out, "   Subtotal:    %s\n", pricing.Money(res.Subtotal))
	keys := make([]string, 0, len(res.Adjustments))
	for k := range res.Adjustments {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "   %-12s %s\n", k+":", pricing.Money(res.Adjustments[k]))
	}
	fmt.Fprintf(out, "   Total:       %s\n", pricing.Money(res.Total))
	fmt.Fprintf(out, "   Versão Rule: %s\n", res.RulesVersion)

	fmt.Fprintln(out, strings.Repeat("=", 60))
}
