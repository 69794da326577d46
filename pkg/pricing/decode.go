package pricing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Decode lê o JSON de um pedido. Só devolve erro quando os bytes não são
// JSON; qualquer nó mal formado contribui com zero.
func Decode(data []byte) (Order, error) {
	doc, err := decodeDocument(data)
	if err != nil {
		return Order{}, err
	}
	m, _ := doc.(map[string]any)
	return FromMap(m), nil
}

func DecodeContainer(data []byte) (Container, error) {
	doc, err := decodeDocument(data)
	if err != nil {
		return Container{}, err
	}
	return containerFrom(doc), nil
}

func decodeDocument(data []byte) (any, error) {
	var doc any
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("order is not valid JSON: %w", err)
	}
	return doc, nil
}

func FromMap(m map[string]any) Order {
	order := Order{
		ID:         firstString(m, "id", "order_id"),
		Status:     stringOf(m["status"]),
		Timestamp:  stringOf(m["timestamp"]),
		CustomerID: stringOf(m["customer_id"]),
		AdminID:    stringOf(m["admin_id"]),
		ServerID:   stringOf(m["server_id"]),
		Containers: map[string]Container{},
	}

	switch raw := m["containers"].(type) {
	case map[string]any:
		for id, c := range raw {
			order.Containers[id] = containerFrom(c)
		}
	case []any:
		for i, c := range raw {
			order.Containers[strconv.Itoa(i)] = containerFrom(c)
		}
	}
	return order
}

func containerFrom(v any) Container {
	m, ok := v.(map[string]any)
	if !ok {
		return Container{}
	}

	repeat, present := m["repeatCount"]
	if !present {
		repeat = m["repeat_count"]
	}
	container := Container{RepeatCount: amountOf(repeat)}

	items, _ := m["items"].([]any)
	for _, raw := range items {
		im, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		container.Items = append(container.Items, itemFrom(im))
	}
	return container
}

func itemFrom(m map[string]any) Item {
	item := Item{
		Name:           firstString(m, "item_name", "name"),
		FoodType:       ParseFoodType(stringOf(m["food_type"])),
		PricingType:    ParsePricingType(stringOf(m["pricing_type"])),
		BasePrice:      amountOf(m["base_price"]),
		MainDishPrice:  amountOf(m["main_dish_price"]),
		Quantity:       decimal.NewFromInt(1),
		IsAvailable:    truthy(m["is_available"]),
		Customizations: map[string]map[string]Choice{},
	}
	if q, ok := m["quantity"]; ok && q != nil {
		item.Quantity = amountOf(q)
	}

	groups, _ := m["customizations"].(map[string]any)
	for group, raw := range groups {
		choices := map[string]Choice{}
		switch g := raw.(type) {
		case map[string]any:
			for name, c := range g {
				if cm, ok := c.(map[string]any); ok {
					choices[name] = choiceFrom(cm)
				}
			}
		case []any:
			for i, c := range g {
				cm, ok := c.(map[string]any)
				if !ok {
					continue
				}
				name := stringOf(cm["name"])
				if name == "" {
					name = strconv.Itoa(i)
				}
				choices[name] = choiceFrom(cm)
			}
		}
		item.Customizations[group] = choices
	}
	return item
}

func choiceFrom(m map[string]any) Choice {
	return Choice{
		Price:       amountOf(m["price"]),
		PricingType: ParsePricingType(stringOf(m["pricing_type"])),
		Quantity:    amountOf(m["quantity"]),
		IsAvailable: truthy(m["is_available"]),
	}
}

// Escala máxima guardada; o resto é arredondado.
const maxAmountScale = 16

// amountOf segue Number(x) || 0: não numérico, negativo ou fora da faixa
// finita de um float64 vira zero.
func amountOf(v any) decimal.Decimal {
	switch t := v.(type) {
	case json.Number:
		return parseAmount(t.String())
	case string:
		return parseAmount(strings.TrimSpace(t))
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) || t <= 0 {
			return decimal.Zero
		}
		return boundScale(decimal.NewFromFloat(t))
	case int:
		return nonNegative(decimal.NewFromInt(int64(t)))
	case int64:
		return nonNegative(decimal.NewFromInt(t))
	}
	return decimal.Zero
}

func parseAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	// ParseFloat barra expoentes que o decimal aceitaria e que estouram
	// em Mul ou explodem em StringFixed.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f <= 0 {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero
	}
	return boundScale(d)
}

func boundScale(d decimal.Decimal) decimal.Decimal {
	if d.Exponent() < -maxAmountScale {
		return d.Round(maxAmountScale)
	}
	return d
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case float64:
		return t != 0
	case int:
		return t != 0
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && b
	}
	return false
}

func stringOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	}
	return ""
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := stringOf(m[k]); s != "" {
			return s
		}
	}
	return ""
}
