package validator

import (
	"reflect"
	"strings"

	apperrors "github.com/RISHIK92/adventa-backend/internal/errors"
	"github.com/RISHIK92/adventa-backend/internal/models"
	"github.com/go-playground/validator/v10"
)

type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// Validator combines struct tag validation with business rules
type Validator struct {
	structValidator   *validator.Validate
	businessValidator *BusinessValidator
}

func New() *Validator {
	structValidator := validator.New()
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator:   structValidator,
		businessValidator: NewBusinessValidator(),
	}
}

// ValidateStruct validates struct tags only and converts the failures
func (v *Validator) ValidateStruct(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		if converted := apperrors.ToValidationErrors(err); len(converted) > 0 {
			return converted
		}
		return err
	}
	return nil
}

// Validate performs struct validation followed by business rules
func (v *Validator) Validate(s interface{}) error {
	if err := v.ValidateStruct(s); err != nil {
		return err
	}
	if errs := v.businessValidator.Validate(s); len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *Validator) Business() *BusinessValidator {
	return v.businessValidator
}

func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("assessment_kind", validateAssessmentKind)
	validate.RegisterValidation("difficulty_level", validateDifficultyLevel)
	validate.RegisterValidation("hierarchy_level", validateHierarchyLevel)

	// Report json field names in errors
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateAssessmentKind(fl validator.FieldLevel) bool {
	switch models.AssessmentKind(fl.Field().String()) {
	case models.KindPreviousYear, models.KindDrill, models.KindWeakness,
		models.KindChallenge, models.KindGroupTest, models.KindQuiz:
		return true
	}
	return false
}

func validateDifficultyLevel(fl validator.FieldLevel) bool {
	return models.DifficultyLevel(fl.Field().String()).IsValid()
}

func validateHierarchyLevel(fl validator.FieldLevel) bool {
	return models.HierarchyLevel(fl.Field().String()).IsValid()
}
