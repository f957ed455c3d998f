package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"dubstudio/internal/api/errors"
)

// Validator interface for domain validation
type Validator interface {
	Validate() error
}

// ValidateRequest decodes the JSON body into req and checks its binding tags
// and domain rules
func ValidateRequest(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			return errors.NewValidationError("Validation failed", fieldMessages(verrs))
		}
		return errors.NewBadRequestError("Invalid JSON body")
	}

	if v, ok := req.(Validator); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ValidateQuery binds and checks query parameters
func ValidateQuery(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindQuery(req); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			return errors.NewValidationError("Invalid query parameters", fieldMessages(verrs))
		}
		return errors.NewBadRequestError("Invalid query parameters")
	}

	if v, ok := req.(Validator); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func fieldMessages(verrs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		switch fe.Tag() {
		case "required":
			fields[name] = "is required"
		case "min":
			fields[name] = "is too small"
		case "max":
			fields[name] = "is too large"
		case "oneof":
			fields[name] = "must be one of: " + fe.Param()
		default:
			fields[name] = "is invalid"
		}
	}
	return fields
}
