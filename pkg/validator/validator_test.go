package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type controlPayload struct {
	Type    string `json:"type" validate:"required,oneof=SKIP_WAITING"`
	Version string `json:"version" validate:"omitempty,max=64"`
}

type manifestPayload struct {
	Label    string   `json:"label" validate:"required"`
	Manifest []string `json:"manifest" validate:"required,min=1,dive,urlpath"`
}

func TestValidateStructSuccess(t *testing.T) {
	require.NoError(t, ValidateStruct(controlPayload{Type: "SKIP_WAITING"}))
}

func TestValidateStructFailures(t *testing.T) {
	err := ValidateStruct(controlPayload{Type: "RELOAD"})
	require.Error(t, err)

	vErrs, ok := err.(ValidationErrors)
	require.True(t, ok, "expected ValidationErrors, got %T", err)
	require.Len(t, vErrs, 1)
	require.Equal(t, "type", vErrs[0].Field)
	require.Equal(t, "oneof", vErrs[0].Tag)
	require.Contains(t, vErrs.Error(), "type failed on oneof=SKIP_WAITING")
}

func TestURLPathRule(t *testing.T) {
	require.NoError(t, ValidateStruct(manifestPayload{
		Label:    "dgnotes-cache-v1",
		Manifest: []string{"/", "/index.html", "/manifest.json"},
	}))

	err := ValidateStruct(manifestPayload{Label: "v1", Manifest: []string{"index.html"}})
	require.Error(t, err)

	err = ValidateStruct(manifestPayload{Label: "v1", Manifest: []string{"//evil.example/x"}})
	require.Error(t, err)

	err = ValidateStruct(manifestPayload{Label: "v1"})
	require.Error(t, err)
}

func TestRegisterValidation(t *testing.T) {
	require.NoError(t, RegisterValidation("dgnotes", func(fl validator.FieldLevel) bool {
		return fl.Field().String() == "dgnotes"
	}))

	type custom struct {
		Value string `validate:"dgnotes"`
	}

	require.NoError(t, ValidateStruct(custom{Value: "dgnotes"}))
	require.Error(t, ValidateStruct(custom{Value: "other"}))
}
