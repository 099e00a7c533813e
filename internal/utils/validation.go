package utils

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"clinic-booking-server/internal/accounts"
	"clinic-booking-server/internal/calendar"
)

var registerOnce sync.Once

// RegisterValidators adds the clinic's custom tags to gin's validator:
// slot_time ("0800"), us_phone ("(555) 555-5555") and clinic_date
// ("M/D/YYYY", padded or not).
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("slot_time", func(fl validator.FieldLevel) bool {
			return calendar.IsSlotTime(fl.Field().String())
		})
		_ = v.RegisterValidation("us_phone", func(fl validator.FieldLevel) bool {
			return accounts.ValidPhone(fl.Field().String())
		})
		_ = v.RegisterValidation("clinic_date", func(fl validator.FieldLevel) bool {
			_, _, _, err := calendar.ParseDate(fl.Field().String())
			return err == nil
		})
	})
}

// Validate performs validation on a struct using its binding tags.
func Validate(s interface{}) error {
	RegisterValidators()
	return binding.Validator.ValidateStruct(s)
}

// FormatValidationError formats validation errors into a readable string.
func FormatValidationError(err error) string {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		errorMessages := make([]string, 0, len(errs))
		for _, e := range errs {
			if e.Param() != "" {
				errorMessages = append(errorMessages, fmt.Sprintf("%s failed %s=%s", e.Field(), e.Tag(), e.Param()))
				continue
			}
			errorMessages = append(errorMessages, fmt.Sprintf("%s failed %s", e.Field(), e.Tag()))
		}
		return strings.Join(errorMessages, ", ")
	}
	return err.Error()
}

// BindAndValidate binds the request body to a struct and validates it.
// If validation fails, it sends a BadRequest response and returns false.
func BindAndValidate(c *gin.Context, obj interface{}) bool {
	return bindWith(c, obj, c.ShouldBindJSON, "Invalid request payload: ")
}

// BindQuery is BindAndValidate for query parameters.
func BindQuery(c *gin.Context, obj interface{}) bool {
	return bindWith(c, obj, c.ShouldBindQuery, "Invalid query: ")
}

func bindWith(c *gin.Context, obj interface{}, bind func(interface{}) error, prefix string) bool {
	RegisterValidators()
	if err := bind(obj); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			BadRequest(c, "Validation failed: "+FormatValidationError(err))
		} else {
			BadRequest(c, prefix+err.Error())
		}
		return false
	}
	return true
}
