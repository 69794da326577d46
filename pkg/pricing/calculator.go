package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

type Option func(*Calculator)

func WithChoiceQuantityMode(mode ChoiceQuantityMode) Option {
	return func(c *Calculator) {
		c.choiceMode = mode
	}
}

// Calculator agrega o total de um pedido. É imutável depois de criado e
// pode ser partilhado entre goroutines.
type Calculator struct {
	choiceMode ChoiceQuantityMode
}

func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{choiceMode: ChoiceQuantityGate}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultCalculator = NewCalculator()

// ComputeOrderTotal usa o comportamento padrão (quantity da escolha só habilita).
func ComputeOrderTotal(order Order) decimal.Decimal {
	return defaultCalculator.OrderTotal(order)
}

func ComputeContainerTotal(container Container) decimal.Decimal {
	return defaultCalculator.ContainerTotal(container)
}

func ComputeContainerTotals(order Order) map[string]decimal.Decimal {
	return defaultCalculator.ContainerTotals(order)
}

func (c *Calculator) ChoiceMode() ChoiceQuantityMode {
	return c.choiceMode
}

func (c *Calculator) OrderTotal(order Order) decimal.Decimal {
	total := decimal.Zero
	for _, id := range order.ContainerIDs() {
		total = total.Add(c.ContainerTotal(order.Containers[id]))
	}
	return total
}

func (c *Calculator) ContainerTotals(order Order) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(order.Containers))
	for id, container := range order.Containers {
		out[id] = c.ContainerTotal(container)
	}
	return out
}

func (c *Calculator) ContainerTotal(container Container) decimal.Decimal {
	itemsTotal := decimal.Zero
	for _, item := range container.Items {
		itemsTotal = itemsTotal.Add(c.ItemTotal(item))
	}
	return itemsTotal.Mul(repeatFactor(container.RepeatCount))
}

func (c *Calculator) ItemTotal(item Item) decimal.Decimal {
	if !item.IsAvailable {
		return decimal.Zero
	}

	base := nonNegative(item.BasePrice).Mul(nonNegative(item.Quantity))
	switch item.FoodType {
	case FoodStandAlone:
		return base
	case FoodMainDish, FoodPackage:
		custom := c.CustomizationTotal(item)
		if item.PricingType == PricingIncremental {
			return nonNegative(item.MainDishPrice).Add(custom)
		}
		return base.Add(custom)
	}
	return decimal.Zero
}

func (c *Calculator) CustomizationTotal(item Item) decimal.Decimal {
	total := decimal.Zero
	for _, group := range sortedKeys(item.Customizations) {
		choices := item.Customizations[group]
		for _, name := range sortedKeys(choices) {
			total = total.Add(c.choicePrice(item.FoodType, choices[name]))
		}
	}
	return total
}

func (c *Calculator) choicePrice(food FoodType, choice Choice) decimal.Decimal {
	if !choice.IsAvailable {
		return decimal.Zero
	}
	// Pacote com escolha incremental: soma fixa, quantity ignorada.
	price := nonNegative(choice.Price)
	if food == FoodPackage && choice.PricingType == PricingIncremental {
		return price
	}
	if !choice.Quantity.IsPositive() {
		return decimal.Zero
	}
	if c.choiceMode == ChoiceQuantityScale {
		return price.Mul(choice.Quantity)
	}
	return price
}

func (c *Calculator) Breakdown(order Order) OrderBreakdown {
	out := OrderBreakdown{
		OrderID:    order.ID,
		Status:     order.Status,
		Total:      decimal.Zero,
		Containers: make(map[string]ContainerBreakdown, len(order.Containers)),
	}

	for _, id := range order.ContainerIDs() {
		container := order.Containers[id]
		cb := ContainerBreakdown{
			RepeatCount: repeatFactor(container.RepeatCount),
			ItemsTotal:  decimal.Zero,
			Items:       make([]ItemBreakdown, 0, len(container.Items)),
		}
		for _, item := range container.Items {
			amount := c.ItemTotal(item)
			custom := decimal.Zero
			if item.IsAvailable && (item.FoodType == FoodMainDish || item.FoodType == FoodPackage) {
				custom = c.CustomizationTotal(item)
			}
			cb.Items = append(cb.Items, ItemBreakdown{
				Name:               item.Name,
				FoodType:           item.FoodType,
				PricingType:        item.PricingType,
				Available:          item.IsAvailable,
				CustomizationTotal: custom,
				Amount:             amount,
			})
			cb.ItemsTotal = cb.ItemsTotal.Add(amount)
		}
		cb.Total = cb.ItemsTotal.Mul(cb.RepeatCount)

		out.Containers[id] = cb
		out.Total = out.Total.Add(cb.Total)
		out.ItemCount += len(container.Items)
	}
	return out
}

// nonNegative aplica a mesma regra do decoder a valores montados à mão.
func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func repeatFactor(n decimal.Decimal) decimal.Decimal {
	if !n.IsPositive() {
		return decimal.NewFromInt(1)
	}
	return n
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
