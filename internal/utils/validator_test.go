// internal/utils/validator_test.go
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type territoryFixture struct {
	Territories []string `validate:"dive,territory"`
}

func TestTerritoryValidation(t *testing.T) {
	assert.NoError(t, ValidateStruct(&territoryFixture{Territories: []string{"US", "jp", "GLOBAL"}}))
	assert.Error(t, ValidateStruct(&territoryFixture{Territories: []string{"USA"}}))
	assert.Error(t, ValidateStruct(&territoryFixture{Territories: []string{"U1"}}))
	assert.NoError(t, ValidateStruct(&territoryFixture{Territories: nil}))
}

func TestGetValidationErrors(t *testing.T) {
	type fixture struct {
		Email string `validate:"required,email"`
	}

	err := ValidateStruct(&fixture{Email: "not-an-email"})
	assert.Error(t, err)

	errs := GetValidationErrors(err)
	assert.Len(t, errs, 1)
	assert.Equal(t, "email", errs[0].Field)
	assert.Equal(t, "Invalid email format", errs[0].Message)
}
