package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Victor-armando18/order-pricing/internal/domain"
	"github.com/Victor-armando18/order-pricing/internal/infrastructure"
	"github.com/Victor-armando18/order-pricing/internal/interfaces"
	"github.com/Victor-armando18/order-pricing/pkg/pricing"
)

type serverDeps struct {
	quotes         interfaces.QuoteFacade
	calc           *pricing.Calculator
	logger         *zap.SugaredLogger
	defaultVersion string
	corsOrigins    []string
}

type PatchRequest struct {
	Order json.RawMessage `json:"order"`
	Patch json.RawMessage `json:"patch"`
}

func newServer(deps serverDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: deps.corsOrigins,
		AllowMethods: []string{http.MethodPost, http.MethodPatch, http.MethodOptions, http.MethodGet},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAccept},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency, "request_id", v.RequestID}
			if v.Error != nil {
				deps.logger.Errorw("request failed", append(fields, "error", v.Error)...)
				return nil
			}
			deps.logger.Infow("request", fields...)
			return nil
		},
	}))

	e.GET("/health", handleHealth)
	e.POST("/orders/total", handleOrderTotal(deps.quotes))
	e.POST("/containers/total", handleContainerTotal(deps.calc))
	e.POST("/orders/quote", handleQuote(deps.quotes, deps.defaultVersion))
	e.PATCH("/orders/quote", handlePatchQuote(deps.quotes, deps.defaultVersion))

	return e
}

func handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func handleOrderTotal(svc interfaces.QuoteFacade) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read body"})
		}

		breakdown, err := svc.PriceOnly(c.Request().Context(), body)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(http.StatusOK, toBreakdownResponse(*breakdown))
	}
}

func handleContainerTotal(calc *pricing.Calculator) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read body"})
		}

		container, err := pricing.DecodeContainer(body)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]string{"total": pricing.Money(calc.ContainerTotal(container))})
	}
}

func handleQuote(svc interfaces.QuoteFacade, defaultVersion string) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read body"})
		}
		return runQuote(c, svc, body, versionParam(c, defaultVersion))
	}
}

func handlePatchQuote(svc interfaces.QuoteFacade, defaultVersion string) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req PatchRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid patch request"})
		}
		if len(req.Order) == 0 || len(req.Patch) == 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "order and patch are required"})
		}

		updated, err := infrastructure.ApplyOrderPatch(req.Order, req.Patch)
		if err != nil {
			return errorResponse(c, err)
		}
		return runQuote(c, svc, updated, versionParam(c, defaultVersion))
	}
}

func runQuote(c echo.Context, svc interfaces.QuoteFacade, body []byte, version string) error {
	result, err := svc.RunQuote(c.Request().Context(), body, version)
	if err != nil {
		return errorResponse(c, err)
	}

	resp := toQuoteResponse(result)
	if result.Blocked() {
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{
			"error":  "Blocked by Guards",
			"guards": result.GuardsHit,
			"quote":  resp,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func versionParam(c echo.Context, fallback string) string {
	if v := c.QueryParam("version"); v != "" {
		return v
	}
	return fallback
}

func errorResponse(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidOrder):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrRulePackNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidPatch):
		status = http.StatusUnprocessableEntity
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}

// --- Respostas ---

type itemResponse struct {
	Name               string `json:"name"`
	FoodType           string `json:"foodType"`
	PricingType        string `json:"pricingType"`
	Available          bool   `json:"available"`
	CustomizationTotal string `json:"customizationTotal"`
	Amount             string `json:"amount"`
}

type containerResponse struct {
	RepeatCount string         `json:"repeatCount"`
	ItemsTotal  string         `json:"itemsTotal"`
	Total       string         `json:"total"`
	Items       []itemResponse `json:"items"`
}

type breakdownResponse struct {
	OrderID    string                       `json:"orderId,omitempty"`
	Status     string                       `json:"status,omitempty"`
	ItemCount  int                          `json:"itemCount"`
	Total      string                       `json:"total"`
	Containers map[string]containerResponse `json:"containers"`
}

type quoteResponse struct {
	QuoteID      string                  `json:"quoteId"`
	RulesVersion string                  `json:"rulesVersion"`
	Subtotal     string                  `json:"subtotal"`
	Adjustments  map[string]string       `json:"adjustments"`
	Total        string                  `json:"total"`
	ServerDelta  bool                    `json:"serverDelta"`
	Breakdown    breakdownResponse       `json:"breakdown"`
	ExecutionLog []domain.ExecutionStep  `json:"executionLog"`
	GuardsHit    []domain.GuardViolation `json:"guardsHit"`
}

func toBreakdownResponse(b pricing.OrderBreakdown) breakdownResponse {
	resp := breakdownResponse{
		OrderID:    b.OrderID,
		Status:     b.Status,
		ItemCount:  b.ItemCount,
		Total:      pricing.Money(b.Total),
		Containers: make(map[string]containerResponse, len(b.Containers)),
	}
	for id, c := range b.Containers {
		cr := containerResponse{
			RepeatCount: c.RepeatCount.String(),
			ItemsTotal:  pricing.Money(c.ItemsTotal),
			Total:       pricing.Money(c.Total),
			Items:       make([]itemResponse, 0, len(c.Items)),
		}
		for _, item := range c.Items {
			cr.Items = append(cr.Items, itemResponse{
				Name:               item.Name,
				FoodType:           string(item.FoodType),
				PricingType:        string(item.PricingType),
				Available:          item.Available,
				CustomizationTotal: pricing.Money(item.CustomizationTotal),
				Amount:             pricing.Money(item.Amount),
			})
		}
		resp.Containers[id] = cr
	}
	return resp
}

func toQuoteResponse(r *domain.QuoteResult) quoteResponse {
	return quoteResponse{
		QuoteID:      r.QuoteID,
		RulesVersion: r.RulesVersion,
		Subtotal:     pricing.Money(r.Subtotal),
		Adjustments:  moneyMap(r.Adjustments),
		Total:        pricing.Money(r.Total),
		ServerDelta:  r.ServerDelta,
		Breakdown:    toBreakdownResponse(r.Breakdown),
		ExecutionLog: r.ExecutionLog,
		GuardsHit:    r.GuardsHit,
	}
}

func moneyMap(m map[string]decimal.Decimal) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = pricing.Money(v)
	}
	return out
}
