// Package model defines the profile record shared by the store, importer and
// transports, plus name-based field dispatch used when rows arrive as
// loosely-typed maps (CSV imports, PATCH bodies).
package model

import (
	"strings"
	"time"
)

// Canonical field names. These are the keys used by the CSV importer, the
// export header and the PATCH body, and they double as column names.
const (
	FieldEmail         = "email"
	FieldFirstName     = "first_name"
	FieldLastName      = "last_name"
	FieldDisplayName   = "display_name"
	FieldPhoneNumber   = "phone_number"
	FieldMobileNumber  = "mobile_number"
	FieldNMLS          = "nmls"
	FieldLicenseNumber = "license_number"
	FieldJobTitle      = "job_title"
	FieldCompany       = "company"
	FieldBiography     = "biography"
	FieldCityState     = "city_state"
	FieldRegion        = "region"
	FieldWebsite       = "website"
	FieldFacebookURL   = "facebook_url"
	FieldInstagramURL  = "instagram_url"
	FieldLinkedinURL   = "linkedin_url"
	FieldTwitterURL    = "twitter_url"
	FieldProfileType   = "profile_type"

	FieldServiceAreas   = "service_areas"
	FieldSpecialties    = "specialties"
	FieldLanguages      = "languages"
	FieldAwards         = "awards"
	FieldDesignations   = "designations"
	FieldCertifications = "certifications"
	FieldRoles          = "roles"

	// Import-only inputs: not stored on the profile as-is.
	FieldHeadshotURL = "headshot_url"
	FieldRole        = "role"
)

// Profile is a loan officer, realtor partner or staff member. It exists
// independently of an account but may be linked to one through UserID.
type Profile struct {
	ID            int64   `json:"id" db:"id"`
	UserID        *int64  `json:"userId" db:"user_id"`
	Email         string  `json:"email" db:"email"`
	FirstName     string  `json:"firstName" db:"first_name"`
	LastName      string  `json:"lastName" db:"last_name"`
	DisplayName   string  `json:"displayName" db:"display_name"`
	PhoneNumber   string  `json:"phoneNumber" db:"phone_number"`
	MobileNumber  string  `json:"mobileNumber" db:"mobile_number"`
	NMLS          string  `json:"nmls" db:"nmls"`
	LicenseNumber string  `json:"licenseNumber" db:"license_number"`
	JobTitle      string  `json:"jobTitle" db:"job_title"`
	Company       string  `json:"company" db:"company"`
	Biography     string  `json:"biography" db:"biography"`
	CityState     string  `json:"cityState" db:"city_state"`
	Region        string  `json:"region" db:"region"`
	Website       string  `json:"website" db:"website"`
	FacebookURL   string  `json:"facebookUrl" db:"facebook_url"`
	InstagramURL  string  `json:"instagramUrl" db:"instagram_url"`
	LinkedinURL   string  `json:"linkedinUrl" db:"linkedin_url"`
	TwitterURL    string  `json:"twitterUrl" db:"twitter_url"`
	ProfileType   string  `json:"profileType" db:"profile_type"`
	HeadshotKey   *string `json:"headshotKey" db:"headshot_key"`

	ServiceAreas   []string `json:"serviceAreas" db:"-"`
	Specialties    []string `json:"specialties" db:"-"`
	Languages      []string `json:"languages" db:"-"`
	Awards         []string `json:"awards" db:"-"`
	Designations   []string `json:"designations" db:"-"`
	Certifications []string `json:"certifications" db:"-"`
	Roles          []string `json:"roles" db:"-"`

	IsActive  bool      `json:"isActive" db:"is_active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// FullName returns "first last" with surrounding whitespace trimmed.
func (p *Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Name is what admins see in logs and match previews: the display name when
// set, else the full name, else the email.
func (p *Profile) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if n := p.FullName(); n != "" {
		return n
	}
	return p.Email
}

var scalarFields = map[string]func(p *Profile) *string{
	FieldEmail:         func(p *Profile) *string { return &p.Email },
	FieldFirstName:     func(p *Profile) *string { return &p.FirstName },
	FieldLastName:      func(p *Profile) *string { return &p.LastName },
	FieldDisplayName:   func(p *Profile) *string { return &p.DisplayName },
	FieldPhoneNumber:   func(p *Profile) *string { return &p.PhoneNumber },
	FieldMobileNumber:  func(p *Profile) *string { return &p.MobileNumber },
	FieldNMLS:          func(p *Profile) *string { return &p.NMLS },
	FieldLicenseNumber: func(p *Profile) *string { return &p.LicenseNumber },
	FieldJobTitle:      func(p *Profile) *string { return &p.JobTitle },
	FieldCompany:       func(p *Profile) *string { return &p.Company },
	FieldBiography:     func(p *Profile) *string { return &p.Biography },
	FieldCityState:     func(p *Profile) *string { return &p.CityState },
	FieldRegion:        func(p *Profile) *string { return &p.Region },
	FieldWebsite:       func(p *Profile) *string { return &p.Website },
	FieldFacebookURL:   func(p *Profile) *string { return &p.FacebookURL },
	FieldInstagramURL:  func(p *Profile) *string { return &p.InstagramURL },
	FieldLinkedinURL:   func(p *Profile) *string { return &p.LinkedinURL },
	FieldTwitterURL:    func(p *Profile) *string { return &p.TwitterURL },
	FieldProfileType:   func(p *Profile) *string { return &p.ProfileType },
}

var listFields = map[string]func(p *Profile) *[]string{
	FieldServiceAreas:   func(p *Profile) *[]string { return &p.ServiceAreas },
	FieldSpecialties:    func(p *Profile) *[]string { return &p.Specialties },
	FieldLanguages:      func(p *Profile) *[]string { return &p.Languages },
	FieldAwards:         func(p *Profile) *[]string { return &p.Awards },
	FieldDesignations:   func(p *Profile) *[]string { return &p.Designations },
	FieldCertifications: func(p *Profile) *[]string { return &p.Certifications },
	FieldRoles:          func(p *Profile) *[]string { return &p.Roles },
}

// ScalarFields lists the stored string fields in export order.
var ScalarFields = []string{
	FieldEmail, FieldFirstName, FieldLastName, FieldDisplayName,
	FieldPhoneNumber, FieldMobileNumber, FieldNMLS, FieldLicenseNumber,
	FieldJobTitle, FieldCompany, FieldBiography, FieldCityState, FieldRegion,
	FieldWebsite, FieldFacebookURL, FieldInstagramURL, FieldLinkedinURL,
	FieldTwitterURL, FieldProfileType,
}

// ListFields lists the array-valued fields in export order.
var ListFields = []string{
	FieldServiceAreas, FieldSpecialties, FieldLanguages, FieldAwards,
	FieldDesignations, FieldCertifications, FieldRoles,
}

// IsScalarField reports whether name is a stored string field.
func IsScalarField(name string) bool {
	_, ok := scalarFields[name]
	return ok
}

// IsListField reports whether name is an array-valued field.
func IsListField(name string) bool {
	_, ok := listFields[name]
	return ok
}

// Get returns the value of a scalar field by name.
func (p *Profile) Get(field string) (string, bool) {
	f, ok := scalarFields[field]
	if !ok {
		return "", false
	}
	return *f(p), true
}

// Set assigns a scalar field by name. Unknown names are reported, not stored.
func (p *Profile) Set(field, value string) bool {
	f, ok := scalarFields[field]
	if !ok {
		return false
	}
	*f(p) = value
	return true
}

// GetList returns an array field by name.
func (p *Profile) GetList(field string) ([]string, bool) {
	f, ok := listFields[field]
	if !ok {
		return nil, false
	}
	return *f(p), true
}

// FieldPtr returns a pointer to a scalar field, for scanning. Nil when the
// name is unknown.
func (p *Profile) FieldPtr(field string) *string {
	if f, ok := scalarFields[field]; ok {
		return f(p)
	}
	return nil
}

// SetList assigns an array field by name.
func (p *Profile) SetList(field string, values []string) bool {
	f, ok := listFields[field]
	if !ok {
		return false
	}
	*f(p) = values
	return true
}

// Patch is a partial update. Only the keys present are written.
type Patch struct {
	Strings     map[string]string
	Lists       map[string][]string
	UserID      *int64
	HeadshotKey *string
	IsActive    *bool
}

// NewPatch returns an empty Patch ready for use.
func NewPatch() Patch {
	return Patch{
		Strings: make(map[string]string),
		Lists:   make(map[string][]string),
	}
}

// Empty reports whether applying the patch would change nothing.
func (pt Patch) Empty() bool {
	return len(pt.Strings) == 0 && len(pt.Lists) == 0 &&
		pt.UserID == nil && pt.HeadshotKey == nil && pt.IsActive == nil
}

// Apply writes the patch onto p in memory.
func (pt Patch) Apply(p *Profile) {
	for k, v := range pt.Strings {
		p.Set(k, v)
	}
	for k, v := range pt.Lists {
		p.SetList(k, v)
	}
	if pt.UserID != nil {
		p.UserID = pt.UserID
	}
	if pt.HeadshotKey != nil {
		p.HeadshotKey = pt.HeadshotKey
	}
	if pt.IsActive != nil {
		p.IsActive = *pt.IsActive
	}
}
