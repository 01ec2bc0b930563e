package service_test

import (
	"testing"

	"github.com/guloona/storefront-bff-go/internal/domain"
	"github.com/guloona/storefront-bff-go/internal/service"

	"github.com/stretchr/testify/assert"
)

func TestBackfillPatch(t *testing.T) {
	tests := []struct {
		name    string
		profile *domain.UserProfile
		form    domain.CustomOrderForm
		wantOK  bool
		check   func(t *testing.T, p domain.ProfilePatch)
	}{
		{
			name:    "name split on first space",
			profile: nil,
			form:    domain.CustomOrderForm{Name: "Amal Bibi Raza"},
			wantOK:  true,
			check: func(t *testing.T, p domain.ProfilePatch) {
				assert.Equal(t, "Amal", *p.FirstName)
				assert.Equal(t, "Bibi Raza", *p.LastName)
			},
		},
		{
			name:    "single word name fills only the first name",
			profile: &domain.UserProfile{},
			form:    domain.CustomOrderForm{Name: "Amal"},
			wantOK:  true,
			check: func(t *testing.T, p domain.ProfilePatch) {
				assert.Equal(t, "Amal", *p.FirstName)
				assert.Nil(t, p.LastName)
			},
		},
		{
			name:    "set fields are kept",
			profile: &domain.UserProfile{FirstName: "Sara", Bust: "34", BudgetRange: "$200"},
			form:    domain.CustomOrderForm{Name: "Amal Raza", Bust: "36", Waist: "28", Budget: "$500"},
			wantOK:  true,
			check: func(t *testing.T, p domain.ProfilePatch) {
				assert.Nil(t, p.FirstName)
				assert.Equal(t, "Raza", *p.LastName)
				assert.Nil(t, p.Bust)
				assert.Equal(t, "28", *p.Waist)
				assert.Nil(t, p.BudgetRange)
			},
		},
		{
			name:    "fabric appended once",
			profile: &domain.UserProfile{PreferredFabrics: []string{"silk"}},
			form:    domain.CustomOrderForm{Fabric: "linen"},
			wantOK:  true,
			check: func(t *testing.T, p domain.ProfilePatch) {
				assert.Equal(t, []string{"silk", "linen"}, *p.PreferredFabrics)
			},
		},
		{
			name:    "known fabric is not repeated",
			profile: &domain.UserProfile{PreferredFabrics: []string{"silk"}},
			form:    domain.CustomOrderForm{Fabric: "silk"},
			wantOK:  false,
		},
		{
			name:    "non-profile fields are ignored",
			profile: &domain.UserProfile{},
			form:    domain.CustomOrderForm{Email: "a@b.c", GarmentType: "gown", Occasion: "wedding"},
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patch, ok := service.BackfillPatch(tt.profile, tt.form)
			assert.Equal(t, tt.wantOK, ok)
			if tt.check != nil {
				tt.check(t, patch)
			}
		})
	}
}

func TestBackfillPatch_DoesNotAliasProfile(t *testing.T) {
	fabrics := make([]string, 1, 4)
	fabrics[0] = "silk"
	profile := &domain.UserProfile{PreferredFabrics: fabrics}

	patch, ok := service.BackfillPatch(profile, domain.CustomOrderForm{Fabric: "linen"})
	assert.True(t, ok)
	(*patch.PreferredFabrics)[0] = "changed"
	assert.Equal(t, []string{"silk"}, profile.PreferredFabrics)
}
