package domain

// CustomOrderForm is the custom-order request submitted from the storefront.
// Only a fixed subset of fields is ever copied into the profile.
type CustomOrderForm struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	Bust     string `json:"bust"`
	Waist    string `json:"waist"`
	Hips     string `json:"hips"`
	Fabric   string `json:"fabric"`
	Budget   string `json:"budget"`

	GarmentType string `json:"garment_type,omitempty"`
	Occasion    string `json:"occasion,omitempty"`
	Description string `json:"description,omitempty"`
	Timeline    string `json:"timeline,omitempty"`
}

// ProfileView is returned by GET /v1/profile.
type ProfileView struct {
	Profile  *UserProfile `json:"profile"`
	Loading  bool         `json:"loading"`
	FullName string       `json:"full_name"`
}
