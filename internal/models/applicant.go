package models

// Applicant is the visitor submitting a reservation request. Profile fields
// come from the authenticated account; relationship is always entered locally
// because the profile never supplies it.
type Applicant struct {
	FullName      string `json:"full_name"`
	Email         string `json:"email,omitempty"`
	Relationship  string `json:"relationship"`
	ContactNumber string `json:"contact_number"`
	Address       string `json:"address,omitempty"`
}

// ApplyOverrides merges locally entered values into a profile-derived
// applicant. Relationship always comes from the override; contact number and
// address are used only when the profile left them blank.
func (a Applicant) ApplyOverrides(relationship, contactNumber, address string) Applicant {
	a.Relationship = relationship
	if a.ContactNumber == "" {
		a.ContactNumber = contactNumber
	}
	if a.Address == "" {
		a.Address = address
	}
	return a
}

// Deceased holds the record of the person to be interred. Dates are kept in
// YYYY-MM-DD form as entered; validation happens in the wizard.
type Deceased struct {
	FullName     string `json:"full_name"`
	Age          string `json:"age,omitempty"`
	DateOfDeath  string `json:"date_of_death,omitempty"`
	DateOfBurial string `json:"date_of_burial,omitempty"`
	Remarks      string `json:"remarks,omitempty"`
}
