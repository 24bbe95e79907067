package importer

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"frs/profile-service/internal/model"
)

// DefaultAliases maps normalized CSV headers to canonical profile fields.
// Keys are in NormalizeHeader form, so "NMLS #" arrives as "nmls__".
var DefaultAliases = map[string]string{
	// Email
	"email":         model.FieldEmail,
	"e_mail":        model.FieldEmail,
	"email_address": model.FieldEmail,
	"emailaddress":  model.FieldEmail,
	"work_email":    model.FieldEmail,

	// Names
	"first_name":   model.FieldFirstName,
	"firstname":    model.FieldFirstName,
	"first":        model.FieldFirstName,
	"given_name":   model.FieldFirstName,
	"last_name":    model.FieldLastName,
	"lastname":     model.FieldLastName,
	"last":         model.FieldLastName,
	"surname":      model.FieldLastName,
	"family_name":  model.FieldLastName,
	"display_name": model.FieldDisplayName,
	"displayname":  model.FieldDisplayName,

	// Phones
	"phone":         model.FieldPhoneNumber,
	"phone_number":  model.FieldPhoneNumber,
	"office_phone":  model.FieldPhoneNumber,
	"work_phone":    model.FieldPhoneNumber,
	"telephone":     model.FieldPhoneNumber,
	"mobile":        model.FieldMobileNumber,
	"mobile_number": model.FieldMobileNumber,
	"mobile_phone":  model.FieldMobileNumber,
	"cell":          model.FieldMobileNumber,
	"cell_phone":    model.FieldMobileNumber,

	// Licensing
	"nmls":            model.FieldNMLS,
	"nmls_":           model.FieldNMLS,
	"nmls__":          model.FieldNMLS,
	"nmls_id":         model.FieldNMLS,
	"nmls_number":     model.FieldNMLS,
	"individual_nmls": model.FieldNMLS,
	"license":         model.FieldLicenseNumber,
	"license_":        model.FieldLicenseNumber,
	"license_number":  model.FieldLicenseNumber,
	"dre":             model.FieldLicenseNumber,
	"dre_license":     model.FieldLicenseNumber,

	// Professional
	"title":       model.FieldJobTitle,
	"job_title":   model.FieldJobTitle,
	"position":    model.FieldJobTitle,
	"company":     model.FieldCompany,
	"brokerage":   model.FieldCompany,
	"bio":         model.FieldBiography,
	"biography":   model.FieldBiography,
	"about":       model.FieldBiography,
	"city_state":  model.FieldCityState,
	"location":    model.FieldCityState,
	"region":      model.FieldRegion,
	"market":      model.FieldRegion,

	// Profile type
	"type":               model.FieldProfileType,
	"person_type":        model.FieldProfileType,
	"profile_type":       model.FieldProfileType,
	"select_person_type": model.FieldProfileType,

	// Web
	"website":       model.FieldWebsite,
	"website_url":   model.FieldWebsite,
	"facebook":      model.FieldFacebookURL,
	"facebook_url":  model.FieldFacebookURL,
	"instagram":     model.FieldInstagramURL,
	"instagram_url": model.FieldInstagramURL,
	"linkedin":      model.FieldLinkedinURL,
	"linkedin_url":  model.FieldLinkedinURL,
	"twitter":       model.FieldTwitterURL,
	"twitter_url":   model.FieldTwitterURL,

	// Import-only
	"headshot":     model.FieldHeadshotURL,
	"headshot_url": model.FieldHeadshotURL,
	"photo":        model.FieldHeadshotURL,
	"photo_url":    model.FieldHeadshotURL,
	"image":        model.FieldHeadshotURL,
	"image_url":    model.FieldHeadshotURL,
	"avatar":       model.FieldHeadshotURL,
	"role":         model.FieldRole,
	"user_role":    model.FieldRole,

	// Arrays
	"service_areas":    model.FieldServiceAreas,
	"service_area":     model.FieldServiceAreas,
	"areas":            model.FieldServiceAreas,
	"licensed_states":  model.FieldServiceAreas,
	"specialties":      model.FieldSpecialties,
	"specialty":        model.FieldSpecialties,
	"specialties_lo":   model.FieldSpecialties,
	"languages":        model.FieldLanguages,
	"language":         model.FieldLanguages,
	"awards":           model.FieldAwards,
	"designations":     model.FieldDesignations,
	"nar_designations": model.FieldDesignations,
	"certifications":   model.FieldCertifications,
	"roles":            model.FieldRoles,
}

// NormalizeHeader lower-cases and trims a CSV header and replaces every
// character outside [a-z0-9_] with an underscore.
func NormalizeHeader(header string) string {
	s := strings.ToLower(strings.TrimSpace(header))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}

// SplitList splits an array cell on "|" when present, otherwise on ",".
// Tokens are trimmed and empty tokens dropped.
func SplitList(value string) []string {
	sep := ","
	if strings.Contains(value, "|") {
		sep = "|"
	}
	parts := strings.Split(value, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Record is one CSV row after alias mapping. Array fields live in Lists,
// everything else (mapped or passed through) in Values.
type Record struct {
	Values map[string]string   `json:"values"`
	Lists  map[string][]string `json:"lists"`
}

// Get returns a scalar value, or "" when absent.
func (r Record) Get(field string) string {
	return r.Values[field]
}

// FullName returns the lower-cased "first last" used for fuzzy matching.
func (r Record) FullName() string {
	return strings.ToLower(strings.TrimSpace(r.Get(model.FieldFirstName) + " " + r.Get(model.FieldLastName)))
}

// Name is the row's human-readable label for logs.
func (r Record) Name() string {
	if n := strings.TrimSpace(r.Get(model.FieldFirstName) + " " + r.Get(model.FieldLastName)); n != "" {
		return n
	}
	if n := r.Get(model.FieldDisplayName); n != "" {
		return n
	}
	return r.Get(model.FieldEmail)
}

// MapRow translates raw (normalized header → value) into canonical fields
// using aliases. Headers without an alias pass through under their own key.
// When two headers land on the same field, a non-empty value beats an empty
// one; between two non-empty values the first header in sorted order wins.
func MapRow(raw map[string]string, aliases map[string]string) Record {
	rec := Record{
		Values: make(map[string]string, len(raw)),
		Lists:  make(map[string][]string),
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, header := range keys {
		value := strings.TrimSpace(raw[header])
		field, ok := aliases[header]
		if !ok {
			field = header
		}

		if model.IsListField(field) {
			if existing := rec.Lists[field]; len(existing) > 0 {
				continue
			}
			rec.Lists[field] = SplitList(value)
			continue
		}

		if existing, seen := rec.Values[field]; seen && (value == "" || existing != "") {
			continue
		}
		rec.Values[field] = value
	}

	return rec
}

// aliasFile is the on-disk shape of FIELD_ALIASES_FILE.
type aliasFile struct {
	Aliases map[string]string `yaml:"aliases"`
}

// LoadAliases returns DefaultAliases merged with the overrides in the YAML
// file at path. An empty path returns a copy of the defaults.
func LoadAliases(path string) (map[string]string, error) {
	merged := make(map[string]string, len(DefaultAliases))
	for k, v := range DefaultAliases {
		merged[k] = v
	}
	if path == "" {
		return merged, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read aliases file: %w", err)
	}
	var f aliasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse aliases file %s: %w", path, err)
	}
	for alias, field := range f.Aliases {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		merged[NormalizeHeader(alias)] = field
	}

	return merged, nil
}
