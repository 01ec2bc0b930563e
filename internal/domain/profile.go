package domain

import (
	"strings"
	"time"
)

// ============================================================
// User profile
// ============================================================

// FullNamePlaceholder is shown when a profile carries no name.
const FullNamePlaceholder = "User"

// FallbackKey is the local fallback key holding the profile of userID.
func FallbackKey(userID string) string {
	return "profile:" + userID
}

// UserProfile is the single profile document kept per user.
// Measurements and budget are free-form strings entered by the customer.
type UserProfile struct {
	UserID    string `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Location  string `json:"location"`

	Bust          string `json:"bust"`
	Waist         string `json:"waist"`
	Hips          string `json:"hips"`
	ShoulderWidth string `json:"shoulder_width"`
	Height        string `json:"height"`

	DressLengthPreference string   `json:"dress_length_preference"`
	PreferredColors       []string `json:"preferred_colors"`
	PreferredFabrics      []string `json:"preferred_fabrics"`
	StylePreferences      []string `json:"style_preferences"`
	SizePreference        string   `json:"size_preference"`
	BudgetRange           string   `json:"budget_range"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName joins first and last name, or returns the placeholder when both are empty.
func (p *UserProfile) FullName() string {
	if p == nil {
		return FullNamePlaceholder
	}
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		return FullNamePlaceholder
	}
	return name
}

// Clone returns a deep copy of the profile.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	c := *p
	c.PreferredColors = cloneStrings(p.PreferredColors)
	c.PreferredFabrics = cloneStrings(p.PreferredFabrics)
	c.StylePreferences = cloneStrings(p.StylePreferences)
	return &c
}

// NewProfile builds a profile seeded from auth-provider metadata.
func NewProfile(userID string, meta UserMetadata, now time.Time) *UserProfile {
	return &UserProfile{
		UserID:    userID,
		FirstName: meta.FirstName,
		LastName:  meta.LastName,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NonEmptyPatch turns the non-empty fields of the profile into a patch.
// Stores use it when a create degrades to an update.
func (p *UserProfile) NonEmptyPatch() ProfilePatch {
	var patch ProfilePatch
	set := func(dst **string, v string) {
		if v != "" {
			*dst = String(v)
		}
	}
	setList := func(dst **[]string, v []string) {
		if len(v) > 0 {
			*dst = Strings(v...)
		}
	}
	set(&patch.FirstName, p.FirstName)
	set(&patch.LastName, p.LastName)
	set(&patch.Phone, p.Phone)
	set(&patch.Location, p.Location)
	set(&patch.Bust, p.Bust)
	set(&patch.Waist, p.Waist)
	set(&patch.Hips, p.Hips)
	set(&patch.ShoulderWidth, p.ShoulderWidth)
	set(&patch.Height, p.Height)
	set(&patch.DressLengthPreference, p.DressLengthPreference)
	setList(&patch.PreferredColors, p.PreferredColors)
	setList(&patch.PreferredFabrics, p.PreferredFabrics)
	setList(&patch.StylePreferences, p.StylePreferences)
	set(&patch.SizePreference, p.SizePreference)
	set(&patch.BudgetRange, p.BudgetRange)
	return patch
}

// ProfileField enumerates the profile columns a patch may touch.
type ProfileField string

const (
	FieldFirstName             ProfileField = "first_name"
	FieldLastName              ProfileField = "last_name"
	FieldPhone                 ProfileField = "phone"
	FieldLocation              ProfileField = "location"
	FieldBust                  ProfileField = "bust"
	FieldWaist                 ProfileField = "waist"
	FieldHips                  ProfileField = "hips"
	FieldShoulderWidth         ProfileField = "shoulder_width"
	FieldHeight                ProfileField = "height"
	FieldDressLengthPreference ProfileField = "dress_length_preference"
	FieldPreferredColors       ProfileField = "preferred_colors"
	FieldPreferredFabrics      ProfileField = "preferred_fabrics"
	FieldStylePreferences      ProfileField = "style_preferences"
	FieldSizePreference        ProfileField = "size_preference"
	FieldBudgetRange           ProfileField = "budget_range"
)

// ProfilePatch is a partial profile update. Nil fields are left unchanged.
type ProfilePatch struct {
	FirstName             *string   `json:"first_name,omitempty"`
	LastName              *string   `json:"last_name,omitempty"`
	Phone                 *string   `json:"phone,omitempty"`
	Location              *string   `json:"location,omitempty"`
	Bust                  *string   `json:"bust,omitempty"`
	Waist                 *string   `json:"waist,omitempty"`
	Hips                  *string   `json:"hips,omitempty"`
	ShoulderWidth         *string   `json:"shoulder_width,omitempty"`
	Height                *string   `json:"height,omitempty"`
	DressLengthPreference *string   `json:"dress_length_preference,omitempty"`
	PreferredColors       *[]string `json:"preferred_colors,omitempty"`
	PreferredFabrics      *[]string `json:"preferred_fabrics,omitempty"`
	StylePreferences      *[]string `json:"style_preferences,omitempty"`
	SizePreference        *string   `json:"size_preference,omitempty"`
	BudgetRange           *string   `json:"budget_range,omitempty"`
}

// Columns returns the set fields keyed by column name.
func (pp ProfilePatch) Columns() map[ProfileField]any {
	cols := make(map[ProfileField]any)
	for _, f := range pp.stringFields() {
		if *f.dst != nil {
			cols[f.name] = **f.dst
		}
	}
	for _, f := range pp.listFields() {
		if *f.dst != nil {
			cols[f.name] = cloneStrings(**f.dst)
		}
	}
	return cols
}

// IsEmpty reports whether the patch sets no field.
func (pp ProfilePatch) IsEmpty() bool {
	return len(pp.Columns()) == 0
}

// ApplyTo merges the set fields into p.
func (pp ProfilePatch) ApplyTo(p *UserProfile) {
	strs := map[ProfileField]*string{
		FieldFirstName:             &p.FirstName,
		FieldLastName:              &p.LastName,
		FieldPhone:                 &p.Phone,
		FieldLocation:              &p.Location,
		FieldBust:                  &p.Bust,
		FieldWaist:                 &p.Waist,
		FieldHips:                  &p.Hips,
		FieldShoulderWidth:         &p.ShoulderWidth,
		FieldHeight:                &p.Height,
		FieldDressLengthPreference: &p.DressLengthPreference,
		FieldSizePreference:        &p.SizePreference,
		FieldBudgetRange:           &p.BudgetRange,
	}
	lists := map[ProfileField]*[]string{
		FieldPreferredColors:  &p.PreferredColors,
		FieldPreferredFabrics: &p.PreferredFabrics,
		FieldStylePreferences: &p.StylePreferences,
	}
	for name, v := range pp.Columns() {
		switch val := v.(type) {
		case string:
			*strs[name] = val
		case []string:
			*lists[name] = val
		}
	}
}

type stringField struct {
	name ProfileField
	dst  **string
}

type listField struct {
	name ProfileField
	dst  **[]string
}

func (pp *ProfilePatch) stringFields() []stringField {
	return []stringField{
		{FieldFirstName, &pp.FirstName},
		{FieldLastName, &pp.LastName},
		{FieldPhone, &pp.Phone},
		{FieldLocation, &pp.Location},
		{FieldBust, &pp.Bust},
		{FieldWaist, &pp.Waist},
		{FieldHips, &pp.Hips},
		{FieldShoulderWidth, &pp.ShoulderWidth},
		{FieldHeight, &pp.Height},
		{FieldDressLengthPreference, &pp.DressLengthPreference},
		{FieldSizePreference, &pp.SizePreference},
		{FieldBudgetRange, &pp.BudgetRange},
	}
}

func (pp *ProfilePatch) listFields() []listField {
	return []listField{
		{FieldPreferredColors, &pp.PreferredColors},
		{FieldPreferredFabrics, &pp.PreferredFabrics},
		{FieldStylePreferences, &pp.StylePreferences},
	}
}

// String returns a pointer to s, for building patches.
func String(s string) *string {
	return &s
}

// Strings returns a pointer to a copy of ss, for building patches.
func Strings(ss ...string) *[]string {
	c := cloneStrings(ss)
	if c == nil {
		c = []string{}
	}
	return &c
}

func cloneStrings(ss []string) []string {
	if ss == nil {
		return nil
	}
	out := make([]string, len(ss))
	copy(out, ss)
	return out
}
