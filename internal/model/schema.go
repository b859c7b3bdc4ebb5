package model

import "strings"

// businessTypes are schema.org organization types common on local
// business sites, beyond the *Business, *Store and *Contractor families.
var businessTypes = map[string]bool{
	"Organization": true, "LocalBusiness": true, "Corporation": true,
	"Plumber": true, "Electrician": true, "Locksmith": true, "Dentist": true,
	"Physician": true, "Attorney": true, "LegalService": true, "Restaurant": true,
	"Cafe": true, "Bakery": true, "BeautySalon": true, "HairSalon": true,
	"DaySpa": true, "AutoRepair": true, "AutoDealer": true, "RealEstateAgent": true,
	"InsuranceAgency": true, "AccountingService": true, "MovingCompany": true,
	"ProfessionalService": true, "MedicalClinic": true, "VeterinaryCare": true,
	"Hotel": true, "ChildCare": true, "HousePainter": true,
}

// IsBusinessSchema reports whether any of the schema.org types names an
// organization or local business.
func IsBusinessSchema(types ...string) bool {
	for _, t := range types {
		if businessTypes[t] || strings.HasSuffix(t, "Business") ||
			strings.HasSuffix(t, "Store") || strings.HasSuffix(t, "Contractor") {
			return true
		}
	}
	return false
}
