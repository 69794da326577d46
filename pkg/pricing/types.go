package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FoodType classifica o item do menu e escolhe o ramo de preço aplicado.
type FoodType string

const (
	FoodStandAlone  FoodType = "SA"
	FoodMainDish    FoodType = "MD"
	FoodPackage     FoodType = "PK"
	FoodTypeUnknown FoodType = ""
)

func ParseFoodType(s string) FoodType {
	switch FoodType(strings.ToUpper(strings.TrimSpace(s))) {
	case FoodStandAlone:
		return FoodStandAlone
	case FoodMainDish:
		return FoodMainDish
	case FoodPackage:
		return FoodPackage
	}
	return FoodTypeUnknown
}

type PricingType string

const (
	PricingFixed       PricingType = "FIX"
	PricingIncremental PricingType = "INC"
	PricingTypeUnknown PricingType = ""
)

func ParsePricingType(s string) PricingType {
	switch PricingType(strings.ToUpper(strings.TrimSpace(s))) {
	case PricingFixed:
		return PricingFixed
	case PricingIncremental:
		return PricingIncremental
	}
	return PricingTypeUnknown
}

// ChoiceQuantityMode controla como a quantidade de uma escolha entra no preço.
type ChoiceQuantityMode string

const (
	// ChoiceQuantityGate soma o preço uma única vez quando quantity > 0.
	ChoiceQuantityGate ChoiceQuantityMode = "gate"
	// ChoiceQuantityScale soma price * quantity.
	ChoiceQuantityScale ChoiceQuantityMode = "scale"
)

func ParseChoiceQuantityMode(s string) (ChoiceQuantityMode, bool) {
	switch ChoiceQuantityMode(strings.ToLower(strings.TrimSpace(s))) {
	case ChoiceQuantityGate, "":
		return ChoiceQuantityGate, true
	case ChoiceQuantityScale:
		return ChoiceQuantityScale, true
	}
	return ChoiceQuantityGate, false
}

type Order struct {
	ID         string
	Status     string
	Timestamp  string
	CustomerID string
	AdminID    string
	ServerID   string
	Containers map[string]Container
}

// ContainerIDs devolve os ids em ordem estável para exibição.
func (o Order) ContainerIDs() []string {
	return sortedKeys(o.Containers)
}

type Container struct {
	RepeatCount decimal.Decimal
	Items       []Item
}

type Item struct {
	Name           string
	FoodType       FoodType
	PricingType    PricingType
	BasePrice      decimal.Decimal
	MainDishPrice  decimal.Decimal
	Quantity       decimal.Decimal
	IsAvailable    bool
	Customizations map[string]map[string]Choice
}

type Choice struct {
	Price       decimal.Decimal
	PricingType PricingType
	Quantity    decimal.Decimal
	IsAvailable bool
}

// --- Breakdown ---

type OrderBreakdown struct {
	OrderID    string                        `json:"orderId,omitempty"`
	Status     string                        `json:"status,omitempty"`
	Total      decimal.Decimal               `json:"total"`
	Containers map[string]ContainerBreakdown `json:"containers"`
	ItemCount  int                           `json:"itemCount"`
}

type ContainerBreakdown struct {
	RepeatCount decimal.Decimal `json:"repeatCount"`
	ItemsTotal  decimal.Decimal `json:"itemsTotal"`
	Total       decimal.Decimal `json:"total"`
	Items       []ItemBreakdown `json:"items"`
}

type ItemBreakdown struct {
	Name               string          `json:"name"`
	FoodType           FoodType        `json:"foodType"`
	PricingType        PricingType     `json:"pricingType"`
	Available          bool            `json:"available"`
	CustomizationTotal decimal.Decimal `json:"customizationTotal"`
	Amount             decimal.Decimal `json:"amount"`
}

// Money arredonda para apresentação (2 casas).
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
