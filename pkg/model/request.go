package model

import "regexp"

var facilityNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 _.\-]{0,63}$`)

// ValidFacilityName reports whether name can be configured and requested:
// an ASCII letter or digit followed by up to 63 letters, digits, spaces,
// '_', '.' or '-'.
func ValidFacilityName(name string) bool {
	return facilityNameRegex.MatchString(name)
}

// ReservationRequest asks for every facility in Facilities over Range. More
// than one distinct facility makes it a transaction.
type ReservationRequest struct {
	UserID     string    `json:"user_id" validate:"required,max=128"`
	Facilities []string  `json:"facilities" validate:"required,min=1,dive,required,facility_name"`
	Range      TimeRange `json:"range"`
}
