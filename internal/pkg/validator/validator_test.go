package validator

import (
	"testing"

	"pushr/internal/pkg/errors"
	"pushr/internal/platform/models"
)

func TestStruct(t *testing.T) {
	tests := []struct {
		name      string
		input     interface{}
		wantField string
	}{
		{
			name:  "Valid Blacklist Entry",
			input: &models.BlacklistEntry{IP: "203.0.113.7", Label: "scraper"},
		},
		{
			name:      "Missing IP",
			input:     &models.BlacklistEntry{Label: "scraper"},
			wantField: "ip",
		},
		{
			name:      "Malformed IP",
			input:     &models.BlacklistEntry{IP: "not-an-ip"},
			wantField: "ip",
		},
		{
			name:      "Template Without Body",
			input:     &models.PushTemplate{Name: "promo", Title: "Hello"},
			wantField: "body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.input)
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				return
			}

			ve, ok := err.(*errors.ValidationError)
			if !ok {
				t.Fatalf("Expected *ValidationError, got %T (%v)", err, err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("Expected field %s, got %s", tt.wantField, ve.Field)
			}
		})
	}
}

func TestVar(t *testing.T) {
	if err := Var("endpoint", "", "required"); !errors.IsValidation(err) {
		t.Errorf("Expected validation error for empty endpoint, got %v", err)
	}
	if err := Var("endpoint", "https://fcm.googleapis.com/fcm/send/abc", "required,url"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}
