package inputval

import (
	"reflect"
	"strings"
	"testing"
)

type sample struct {
	Email    string `validate:"required,emailish" label:"email"`
	FullName string `validate:"required,min=3,max=90" label:"fullname" msg:"fullname must be between 3 and 90 characters"`
	Password string `validate:"required,len=64" label:"password"`
	Code     string `validate:"omitempty,hexadecimal"`
}

func TestValidate(t *testing.T) {
	digest := strings.Repeat("a", 64)

	tests := []struct {
		name  string
		input sample
		want  []string
	}{
		{
			name:  "valid",
			input: sample{Email: "a@b", FullName: "Bob", Password: digest},
			want:  nil,
		},
		{
			name:  "all missing",
			input: sample{},
			want: []string{
				"Field 'email' is mandatory",
				"Field 'fullname' is mandatory",
				"Field 'password' is mandatory",
			},
		},
		{
			name:  "email without at",
			input: sample{Email: "nobody", FullName: "Bob", Password: digest},
			want:  []string{"must be a valid email address"},
		},
		{
			name:  "fullname too short",
			input: sample{Email: "a@b", FullName: "Bo", Password: digest},
			want:  []string{"fullname must be between 3 and 90 characters"},
		},
		{
			name:  "fullname too long",
			input: sample{Email: "a@b", FullName: strings.Repeat("x", 91), Password: digest},
			want:  []string{"fullname must be between 3 and 90 characters"},
		},
		{
			name:  "password wrong length",
			input: sample{Email: "a@b", FullName: "Bob", Password: "short"},
			want:  []string{"password must be exactly 64 characters"},
		},
		{
			name:  "accumulates",
			input: sample{Email: "x", FullName: "Bo", Password: "short"},
			want: []string{
				"must be a valid email address",
				"fullname must be between 3 and 90 characters",
				"password must be exactly 64 characters",
			},
		},
		{
			name:  "unlabeled field",
			input: sample{Email: "a@b", FullName: "Bob", Password: digest, Code: "xyz"},
			want:  []string{"code must be hexadecimal"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(&tt.input)
			if tt.want == nil {
				if res.HasErrors() {
					t.Fatalf("unexpected errors: %v", res.Messages())
				}
				return
			}
			if !reflect.DeepEqual(res.Messages(), tt.want) {
				t.Errorf("Messages() = %q, want %q", res.Messages(), tt.want)
			}
		})
	}
}

func TestValidate_ByValue(t *testing.T) {
	res := Validate(sample{Email: "a@b", FullName: "Bo", Password: strings.Repeat("a", 64)})
	if len(res.Errors) != 1 || res.Errors[0].Field != "fullname" {
		t.Fatalf("Errors = %+v", res.Errors)
	}
}
