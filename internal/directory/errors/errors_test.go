package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	v := &ValidationError{}
	assert.NoError(t, v.OrNil(), "empty validation error should collapse to nil")

	v.Add("personalInfo.lastName", "is required")
	v.Add("companyInfo.department", "is not allowed for designation")
	err := v.OrNil()

	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.NotErrorIs(t, err, ErrNotFound)

	var ve *ValidationError
	assert.True(t, errors.As(fmt.Errorf("create: %w", err), &ve))
	assert.Equal(t, "companyInfo.department", ve.Fields[0].Field, "issues should be sorted by field")
	assert.Contains(t, err.Error(), "personalInfo.lastName: is required")
}
