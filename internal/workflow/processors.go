package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/parcelflow/parcelflow-api/internal/domain"
	"github.com/parcelflow/parcelflow-api/internal/generation"
)

// RegisterDefaultProcessors wires the built-in processors for the
// standard task types into the registry. The content-producing types
// delegate to the supplied Generator; lead scoring and CMA assembly are
// computed locally.
func RegisterDefaultProcessors(registry *Registry, gen generation.Generator, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	if err := registry.Register(domain.TaskTypeContentGeneration, contentGenerationProcessor(gen)); err != nil {
		return err
	}
	if err := registry.Register(domain.TaskTypeCMAGeneration, cmaGenerationProcessor(logger)); err != nil {
		return err
	}
	if err := registry.Register(domain.TaskTypeLeadScoring, leadScoringProcessor(logger)); err != nil {
		return err
	}

	return nil
}

// contentGenerationProcessor delegates to the Generator, passing the
// accumulated workflow context through.
func contentGenerationProcessor(gen generation.Generator) Processor {
	return func(ctx context.Context, taskID uuid.UUID, input, config map[string]any) (map[string]any, error) {
		kind := "listing_description"
		if k, ok := config["content_kind"].(string); ok && k != "" {
			kind = k
		}

		result, err := gen.GenerateListingContent(ctx, generation.Request{
			Kind:    kind,
			Context: input,
		})
		if err != nil {
			return nil, fmt.Errorf("content generation for task %s: %w", taskID, err)
		}

		return result.Content, nil
	}
}

// cmaGenerationProcessor assembles a comparative market analysis from
// the comparable properties in the input. The suggested price is the
// median comparable price adjusted for declared market conditions.
func cmaGenerationProcessor(logger *slog.Logger) Processor {
	return func(ctx context.Context, taskID uuid.UUID, input, config map[string]any) (map[string]any, error) {
		comparables, _ := input["comparable_properties"].([]any)

		prices := make([]float64, 0, len(comparables))
		for _, c := range comparables {
			comp, ok := c.(map[string]any)
			if !ok {
				continue
			}
			if p, ok := toFloat(comp["price"]); ok {
				prices = append(prices, p)
			}
		}

		var suggested float64
		if len(prices) > 0 {
			sort.Float64s(prices)
			suggested = prices[len(prices)/2]
		}

		// Market condition nudges the median comparable price
		conditions, _ := input["market_conditions"].(string)
		switch conditions {
		case "hot":
			suggested *= 1.05
		case "slow":
			suggested *= 0.95
		}

		if len(prices) == 0 {
			logger.Warn("cma generated without comparable prices", "task_id", taskID)
		}

		return map[string]any{
			"cma_report": map[string]any{
				"comparable_count":  len(prices),
				"market_conditions": conditions,
				"median_price":      suggested,
			},
			"suggested_price": suggested,
		}, nil
	}
}

// leadScoringProcessor ranks leads by simple engagement heuristics.
func leadScoringProcessor(logger *slog.Logger) Processor {
	return func(ctx context.Context, taskID uuid.UUID, input, config map[string]any) (map[string]any, error) {
		leads, _ := input["leads"].([]any)

		scored := make([]any, 0, len(leads))
		for _, l := range leads {
			lead, ok := l.(map[string]any)
			if !ok {
				continue
			}

			score := 0.0
			if v, ok := toFloat(lead["inquiries"]); ok {
				score += v * 10
			}
			if v, ok := toFloat(lead["viewings"]); ok {
				score += v * 25
			}
			if preapproved, ok := lead["preapproved"].(bool); ok && preapproved {
				score += 40
			}

			entry := make(map[string]any, len(lead)+1)
			for k, v := range lead {
				entry[k] = v
			}
			entry["score"] = score
			scored = append(scored, entry)
		}

		sort.Slice(scored, func(i, j int) bool {
			si, _ := toFloat(scored[i].(map[string]any)["score"])
			sj, _ := toFloat(scored[j].(map[string]any)["score"])
			return si > sj
		})

		logger.Debug("leads scored", "task_id", taskID, "count", len(scored))

		return map[string]any{"scored_leads": scored}, nil
	}
}

// toFloat normalizes the numeric types that survive a JSON round trip.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
