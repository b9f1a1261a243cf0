package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleInput struct {
	Name  string  `validate:"required"`
	Level string  `validate:"omitempty,oneof=low medium high"`
	Score float64 `validate:"gte=0,lte=1"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid struct", func(t *testing.T) {
		err := ValidateStruct(sampleInput{Name: "x", Level: "high", Score: 0.5})
		assert.NoError(t, err)
	})

	t.Run("missing required field", func(t *testing.T) {
		err := ValidateStruct(sampleInput{Score: 0.5})
		require.Error(t, err)
		assert.True(t, IsValidationError(err))

		fields := GetValidationFields(err)
		assert.Contains(t, fields, "Name")
		assert.Contains(t, fields["Name"], "required")
	})

	t.Run("oneof violation", func(t *testing.T) {
		err := ValidateStruct(sampleInput{Name: "x", Level: "extreme"})
		require.Error(t, err)

		fields := GetValidationFields(err)
		assert.Contains(t, fields["Level"], "one of")
	})

	t.Run("range violation", func(t *testing.T) {
		err := ValidateStruct(sampleInput{Name: "x", Score: 1.5})
		require.Error(t, err)

		fields := GetValidationFields(err)
		assert.Contains(t, fields, "Score")
	})
}

func TestIsValidationError(t *testing.T) {
	assert.False(t, IsValidationError(errors.New("plain error")))
	assert.False(t, IsValidationError(nil))
}

func TestValidateOneOf(t *testing.T) {
	assert.NoError(t, ValidateOneOf("chat", "task_type", []string{"chat", "embed"}))
	assert.Error(t, ValidateOneOf("paint", "task_type", []string{"chat", "embed"}))
}
