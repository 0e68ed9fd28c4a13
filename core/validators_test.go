package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidator(t *testing.T) {
	type payload struct {
		Username string `json:"username" validate:"required,alphanum_"`
		Role     Role   `json:"role" validate:"omitempty,role"`
	}

	validate, translator := NewValidator()
	tests := []struct {
		name string
		in   payload
		want []FieldError
	}{
		{name: "valid", in: payload{Username: "alice_01", Role: RoleTeacher}},
		{name: "missing", in: payload{}, want: []FieldError{{Field: "username", Error: "this field is required"}}},
		{
			name: "custom tags",
			in:   payload{Username: "al-ice", Role: "principal"},
			want: []FieldError{
				{Field: "username", Error: "only alphanumeric characters and underscores are allowed"},
				{Field: "role", Error: "invalid role"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.in)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			var valErr *ValidationError
			require.ErrorAs(t, TranslateErrors(err, translator), &valErr)
			assert.Equal(t, tt.want, valErr.Fields)
		})
	}
}
