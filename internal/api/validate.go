package api

import (
	"fmt"
	"strings"

	"showplan/internal/model"
)

var allowedModes = map[string]struct{}{"walking": {}, "bicycling": {}, "transit": {}, "driving": {}}

func validatePlanRequest(req *model.PlanRequest) error {
	if req.MaxAttempts < 0 {
		return fmt.Errorf("maxAttempts must be >= 0")
	}
	if req.MaxAttempts > 10 {
		return fmt.Errorf("maxAttempts must be <= 10")
	}
	for _, m := range req.TransportModes {
		if _, ok := allowedModes[strings.ToLower(m)]; !ok {
			return fmt.Errorf("unknown transport mode: %s (allowed: walking,bicycling,transit,driving)", m)
		}
	}
	if req.Budget != nil && req.Budget.Max < 0 {
		return fmt.Errorf("budget.max must be >= 0")
	}
	if req.MeasurementValue < 0 {
		return fmt.Errorf("measurementValue must be >= 0")
	}
	return nil
}
