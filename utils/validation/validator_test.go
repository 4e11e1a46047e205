package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contactPayload struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email_address"`
	Phone string `json:"contact" validate:"required,contact"`
}

type samplePayload struct {
	Title   string         `json:"title" validate:"required,max=10"`
	Graded  bool           `json:"graded"`
	Grade   string         `json:"grade" validate:"required_if=Graded true"`
	Contact contactPayload `json:"owner"`
}

func validSample() samplePayload {
	return samplePayload{
		Title:   "ok",
		Contact: contactPayload{Name: "A", Email: "a@b.co", Phone: "+91 98765 43210"},
	}
}

func TestValidateStruct_ReportsJSONFieldPaths(t *testing.T) {
	v := NewValidator()

	p := validSample()
	p.Title = ""
	p.Contact.Email = "invalid-email"

	err := v.ValidateStruct(p)
	require.Error(t, err)

	fields := FieldErrors(err)
	require.Len(t, fields, 2)
	assert.Equal(t, "title", fields[0].Field)
	assert.Equal(t, "title is required", fields[0].Message)
	assert.Equal(t, "owner.email", fields[1].Field)
	assert.Equal(t, "owner.email must be a valid email address", fields[1].Message)
}

func TestValidateStruct_RequiredIf(t *testing.T) {
	v := NewValidator()

	p := validSample()
	assert.NoError(t, v.ValidateStruct(p))

	p.Graded = true
	err := v.ValidateStruct(p)
	require.Error(t, err)
	assert.Equal(t, []FieldError{{Field: "grade", Message: "grade is required"}}, FieldErrors(err))

	p.Grade = "A+"
	assert.NoError(t, v.ValidateStruct(p))
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"admin@test.edu", true},
		{"first.last+tag@uni.ac.in", true},
		{"invalid-email", false},
		{"missing@tld", false},
		{"@test.edu", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidateEmail(tt.email))
		})
	}
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "Test University", SanitizeString("  Test\x00 University \n"))
}

func TestFieldErrors_NonValidationError(t *testing.T) {
	assert.Nil(t, FieldErrors(assert.AnError))
}
