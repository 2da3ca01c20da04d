package utils

import (
	"testing"
)

func TestValidateHTTPURL(t *testing.T) {
	tests := []struct {
		urlStr  string
		wantErr bool
	}{
		{"https://api.dressing.app", false},
		{"http://localhost:2210", false},
		{"ftp://api.dressing.app", true},
		{"invalid-url", true},
		{"https://", true},
	}
	for _, tt := range tests {
		t.Run(tt.urlStr, func(t *testing.T) {
			if err := ValidateHTTPURL(tt.urlStr); (err != nil) != tt.wantErr {
				t.Errorf("ValidateHTTPURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateHexColor(t *testing.T) {
	tests := []struct {
		color   string
		wantErr bool
	}{
		{"#000000", false},
		{"#FFFFFF", false},
		{"#1a2b3c", false},
		{"#fff", false},
		{"fff", true},
		{"#ffff", true},
		{"#gggggg", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.color, func(t *testing.T) {
			if err := ValidateHexColor(tt.color); (err != nil) != tt.wantErr {
				t.Errorf("ValidateHexColor() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple name", "Work outfits", false},
		{"unicode name", "Été 2026", false},
		{"empty", "", true},
		{"only whitespace", "   ", true},
		{"leading whitespace", " padded", true},
		{"trailing whitespace", "padded ", true},
		{"too long", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateName(tt.input, 64); (err != nil) != tt.wantErr {
				t.Errorf("ValidateName() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
