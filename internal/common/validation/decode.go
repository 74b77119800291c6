package validation

import (
	"encoding/json"
	"fmt"

	apperrors "loan-prequal/internal/common/errors"

	"github.com/shopspring/decimal"
)

// Decode validates payload against schema and unmarshals it into v. Every
// failure is a ValidationError.
func Decode(schema *Schema, payload []byte, v interface{}) error {
	if result := schema.Validate(payload); !result.Valid {
		return apperrors.NewValidationError(result.Summary()).
			WithMetadata("schema", schema.Name()).
			WithMetadata("fields", result.Fields())
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("decode %s: %v", schema.Name(), err))
	}
	return nil
}

// CheckMoney enforces a positive amount with at most two decimal places.
func CheckMoney(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return apperrors.NewValidationError(fmt.Sprintf("%s: must be greater than 0", field))
	}
	if d.Exponent() < -2 && !d.Equal(d.Round(2)) {
		return apperrors.NewValidationError(fmt.Sprintf("%s: at most 2 decimal places allowed", field))
	}
	return nil
}
