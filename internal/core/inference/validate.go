package inference

import (
	"fmt"

	"meal-analysis-api/internal/core/food"
	"meal-analysis-api/internal/pkg/common"
)

// ParsePayload decodes and validates a raw inference response. A payload
// missing required fields is rejected immediately with a ValidationError
// rather than propagating partially-typed data downstream.
func ParsePayload(raw []byte) (*Payload, error) {
	var payload Payload
	if err := common.ParseJSONBytesStrict(raw, &payload); err != nil {
		// Model output sometimes wraps the object in prose or leaves keys
		// unquoted. Repair once and retry before rejecting.
		repaired := common.QuoteJSONKeys(common.ExtractJSONObject(string(raw)))
		payload = Payload{}
		if rerr := common.ParseJSONStrict(repaired, &payload); rerr != nil {
			return nil, common.NewValidationError(fmt.Sprintf("malformed inference payload: %v", err))
		}
	}
	if err := Validate(&payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Validate checks the payload against the upstream contract.
func Validate(p *Payload) error {
	if p == nil {
		return common.NewValidationError("inference payload is nil")
	}
	if len(p.Dishes) == 0 {
		return common.NewValidationError("inference payload contains no dishes")
	}

	for i, dish := range p.Dishes {
		if dish.Name == "" {
			return common.NewValidationError(fmt.Sprintf("dish %d: missing name", i))
		}
		for j, ing := range dish.Ingredients {
			if ing.Name == "" {
				return common.NewValidationError(fmt.Sprintf("dish %q: ingredient %d missing name", dish.Name, j))
			}
			if ing.WeightG <= 0 {
				return common.NewValidationError(fmt.Sprintf("dish %q: ingredient %q has non-positive weight %.2f", dish.Name, ing.Name, ing.WeightG))
			}
		}
		for j, qc := range dish.QueryCandidates {
			if qc.Term == "" {
				return common.NewValidationError(fmt.Sprintf("dish %q: query candidate %d missing term", dish.Name, j))
			}
			if !food.Granularity(qc.Granularity).Valid() {
				return common.NewValidationError(fmt.Sprintf("dish %q: query candidate %q has unknown granularity %q", dish.Name, qc.Term, qc.Granularity))
			}
		}
	}
	return nil
}
