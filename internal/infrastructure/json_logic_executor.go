package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/Victor-armando18/order-pricing/internal/interfaces"
	"github.com/diegoholiveira/jsonlogic/v3"
)

type JsonLogicExecutor struct {
	customOps map[string]func(args ...any) any
}

func NewJsonLogicExecutor() *JsonLogicExecutor {
	return &JsonLogicExecutor{
		customOps: make(map[string]func(args ...any) any),
	}
}

func (j *JsonLogicExecutor) RegisterCustomOperator(name string, logic func(args ...any) any) {
	j.customOps[name] = logic
}

func (j *JsonLogicExecutor) Execute(ctx context.Context, ruleData map[string]any, contextVars map[string]any) (any, error) {
	// 1. Operadores customizados no topo da regra: uma regra JsonLogic tem
	// um único operador.
	for opName, args := range ruleData {
		fn, ok := j.customOps[opName]
		if !ok {
			continue
		}
		if len(ruleData) != 1 {
			return nil, fmt.Errorf("%w: operator %q must be the only key of its rule", interfaces.ErrRuleExecutionFailed, opName)
		}
		return j.handleManualEval(ctx, args, contextVars, fn)
	}

	// 2. Execução Standard JsonLogic
	ruleJSON, err := json.Marshal(ruleData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrRuleExecutionFailed, err)
	}
	dataJSON, err := json.Marshal(contextVars)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrRuleExecutionFailed, err)
	}

	var resultBuffer bytes.Buffer
	if err := jsonlogic.Apply(bytes.NewReader(ruleJSON), bytes.NewReader(dataJSON), &resultBuffer); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrRuleExecutionFailed, err)
	}

	resultStr := strings.TrimSpace(resultBuffer.String())
	if resultStr == "" || resultStr == "null" {
		return nil, nil
	}

	var res any
	decoder := json.NewDecoder(strings.NewReader(resultStr))
	decoder.UseNumber()
	if err := decoder.Decode(&res); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrRuleExecutionFailed, err)
	}
	return finalizeValue(res), nil
}

func (j *JsonLogicExecutor) handleManualEval(ctx context.Context, args any, data map[string]any, fn func(args ...any) any) (any, error) {
	list, ok := args.([]any)
	if !ok {
		list = []any{args}
	}

	params := make([]any, 0, len(list))
	for _, item := range list {
		subRule, isRule := item.(map[string]any)
		if !isRule {
			params = append(params, item)
			continue
		}
		if _, isVar := subRule["var"]; isVar {
			params = append(params, resolveVar(subRule, data))
			continue
		}
		res, err := j.Execute(ctx, subRule, data)
		if err != nil {
			return nil, err
		}
		params = append(params, res)
	}
	return fn(params...), nil
}

func resolveVar(arg any, data map[string]any) any {
	m, ok := arg.(map[string]any)
	if !ok {
		return arg
	}
	path, ok := m["var"].(string)
	if !ok {
		return arg
	}

	var current any = data
	for _, part := range strings.Split(path, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = node[part]
	}
	return finalizeValue(current)
}

func finalizeValue(val any) any {
	if n, ok := val.(json.Number); ok {
		if f, err := n.Float64(); err == nil {
			return f
		}
	}
	return val
}

// CustomRound: {"round": [valor, casas]}
func CustomRound(args ...any) any {
	if len(args) == 0 {
		return 0.0
	}
	val, _ := AnyToFloat(args[0])
	precision := 0
	if len(args) > 1 {
		if p, ok := AnyToFloat(args[1]); ok {
			precision = int(p)
		}
	}
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

// CustomPercent: {"percent": [valor, taxa]} com taxa em pontos percentuais.
func CustomPercent(args ...any) any {
	if len(args) < 2 {
		return 0.0
	}
	val, _ := AnyToFloat(args[0])
	rate, _ := AnyToFloat(args[1])
	return val * rate / 100
}

func AnyToFloat(i any) (float64, bool) {
	switch v := i.(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
