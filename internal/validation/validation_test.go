package validation

import (
	"errors"
	"strings"
	"testing"

	"charity/internal/domain"
)

func TestStructDeclaration(t *testing.T) {
	tests := []struct {
		name    string
		decl    domain.Declaration
		wantErr string
	}{
		{
			name: "valid",
			decl: domain.Declaration{Skills: []string{"first aid"}, HoursPerWeek: 10},
		},
		{
			name:    "missing skills",
			decl:    domain.Declaration{HoursPerWeek: 10},
			wantErr: "skills is required",
		},
		{
			name:    "duplicate skills",
			decl:    domain.Declaration{Skills: []string{"first aid", "first aid"}, HoursPerWeek: 10},
			wantErr: "skills must not contain duplicates",
		},
		{
			name:    "too many hours",
			decl:    domain.Declaration{Skills: []string{"cooking"}, HoursPerWeek: 169},
			wantErr: "hours_per_week must be at most 168",
		},
		{
			name:    "zero hours",
			decl:    domain.Declaration{Skills: []string{"cooking"}},
			wantErr: "hours_per_week must be at least 1",
		},
		{
			name: "unknown day",
			decl: domain.Declaration{
				Skills:       []string{"cooking"},
				HoursPerWeek: 4,
				Availability: domain.Availability{Days: []string{"funday"}},
			},
			wantErr: "availability.days[0] must be one of",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.decl)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
