package service

import (
	"slices"
	"strings"

	"github.com/guloona/storefront-bff-go/internal/domain"
)

// BackfillPatch builds the patch that copies form answers into the empty
// fields of profile (nil means no profile yet). The name is split on its
// first space into first and last name. A fabric is appended to the
// preferred fabrics unless already listed. ok is false when nothing needs
// to change.
func BackfillPatch(profile *domain.UserProfile, form domain.CustomOrderForm) (patch domain.ProfilePatch, ok bool) {
	current := profile
	if current == nil {
		current = &domain.UserProfile{}
	}

	fill := func(dst **string, have, want string) {
		want = strings.TrimSpace(want)
		if want != "" && strings.TrimSpace(have) == "" {
			*dst = domain.String(want)
		}
	}

	if name := strings.TrimSpace(form.Name); name != "" {
		first, last, _ := strings.Cut(name, " ")
		fill(&patch.FirstName, current.FirstName, first)
		fill(&patch.LastName, current.LastName, last)
	}
	fill(&patch.Phone, current.Phone, form.Phone)
	fill(&patch.Location, current.Location, form.Location)
	fill(&patch.Bust, current.Bust, form.Bust)
	fill(&patch.Waist, current.Waist, form.Waist)
	fill(&patch.Hips, current.Hips, form.Hips)
	fill(&patch.BudgetRange, current.BudgetRange, form.Budget)

	if fabric := strings.TrimSpace(form.Fabric); fabric != "" && !slices.Contains(current.PreferredFabrics, fabric) {
		patch.PreferredFabrics = domain.Strings(append(slices.Clone(current.PreferredFabrics), fabric)...)
	}

	return patch, !patch.IsEmpty()
}
