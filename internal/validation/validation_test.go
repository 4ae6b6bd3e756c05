package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name" validate:"required"`
	Price string `form:"price" validate:"required,numeric"`
	Day   string `json:"day,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Email string `json:"email" validate:"omitempty,email"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(sample{Name: "a", Price: "1.5", Day: "2024-02-29"}))
}

func TestStructMessages(t *testing.T) {
	err := Struct(sample{Price: "cheap", Day: "tomorrow", Email: "nope"})

	require.Error(t, err)
	assert.Equal(t,
		"name is required; price must be a number; day must be a date (YYYY-MM-DD); email is invalid",
		err.Error())
}
