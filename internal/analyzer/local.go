package analyzer

import (
	"context"
	"strings"
	"unicode"

	"github.com/nao1215/siteaudit/internal/model"
)

// LocalAnalyzer scores local business signals: name, address and phone
// (NAP) evidence, its consistency with structured data, contact methods,
// linked business profiles and the completeness of location pages. Expectations depend on the page
// role.
type LocalAnalyzer struct{}

// NewLocalAnalyzer creates a LocalAnalyzer.
func NewLocalAnalyzer() *LocalAnalyzer {
	return &LocalAnalyzer{}
}

// Name returns the analyzer name.
func (a *LocalAnalyzer) Name() string {
	return NameLocal
}

// Category returns the issue category.
func (a *LocalAnalyzer) Category() model.IssueCategory {
	return model.CategoryLocal
}

// napRoles are the roles expected to show the full business NAP.
var napRoles = map[model.PageRole]bool{
	model.PageRoleHomepage: true,
	model.PageRoleContact:  true,
	model.PageRoleLocation: true,
}

// Analyze scores the local signals of the page.
func (a *LocalAnalyzer) Analyze(_ context.Context, page *model.PageCrawlResult) model.AnalyzerResult {
	s := newScorecard(a, page)

	if page.WordCount == 0 && strings.TrimSpace(page.Text) == "" && !hasContact(page.Contact) {
		s.missing("local business signals", 3)
		return s.result()
	}

	a.phone(s, page)
	a.address(s, page)
	a.contactMethod(s, page)
	a.businessSchema(s, page)
	a.consistency(s, page)
	a.location(s, page)
	a.socialProfiles(s, page)

	return s.result()
}

func (a *LocalAnalyzer) phone(s *scorecard, page *model.PageCrawlResult) {
	if len(page.Contact.Phones) > 0 || page.SchemaField("telephone") != "" {
		s.add("phone", 2, 100)
		return
	}
	if !napRoles[page.Role] && page.Role != model.PageRoleServiceArea {
		s.add("phone", 1, 60)
		return
	}
	s.add("phone", 2, 0)
	s.flag("missing_phone", "No phone number on the page")
}

func (a *LocalAnalyzer) address(s *scorecard, page *model.PageCrawlResult) {
	if !napRoles[page.Role] {
		return
	}
	if len(page.Contact.Addresses) > 0 || page.SchemaField("address") != "" {
		s.add("address", 2, 100)
		return
	}
	s.add("address", 2, 0)
	s.flag("missing_address", "No business address on the page")
}

func (a *LocalAnalyzer) contactMethod(s *scorecard, page *model.PageCrawlResult) {
	if page.Role != model.PageRoleContact {
		return
	}
	if len(page.Contact.Phones) > 0 || len(page.Contact.Emails) > 0 {
		s.add("contact_method", 3, 100)
		return
	}
	s.add("contact_method", 3, 0)
	s.flag("missing_contact_method", "Contact page offers no phone number or email address")
}

func (a *LocalAnalyzer) businessSchema(s *scorecard, page *model.PageCrawlResult) {
	if !napRoles[page.Role] {
		return
	}
	if model.IsBusinessSchema(page.SchemaTypes...) {
		s.add("business_schema", 1.5, 100)
		return
	}
	s.add("business_schema", 1.5, 30)
	s.flag("missing_local_business_schema", "No LocalBusiness structured data")
}

// consistency compares the NAP shown on the page with the NAP declared in
// structured data. It is only scored when both sides are present.
func (a *LocalAnalyzer) consistency(s *scorecard, page *model.PageCrawlResult) {
	checked, consistent := 0, 0

	if schemaPhone := model.NormalizePhone(page.SchemaField("telephone")); schemaPhone != "" && len(page.Contact.Phones) > 0 {
		checked++
		if containsPhone(page.Contact.Phones, schemaPhone) {
			consistent++
		} else {
			s.flag("nap_inconsistent", "Phone number in structured data does not match the page")
		}
	}

	if schemaAddr := page.SchemaField("address"); schemaAddr != "" && len(page.Contact.Addresses) > 0 {
		checked++
		if containsAddress(page.Contact.Addresses, schemaAddr) {
			consistent++
		} else {
			s.flag("nap_inconsistent", "Address in structured data does not match the page")
		}
	}

	if checked > 0 {
		s.add("nap_consistency", 3, ratio(consistent, checked))
	}
}

func (a *LocalAnalyzer) location(s *scorecard, page *model.PageCrawlResult) {
	if page.Role != model.PageRoleLocation {
		return
	}
	if page.Contact.HasMap {
		s.add("map", 1, 100)
	} else {
		s.add("map", 1, 40)
		s.flag("location_missing_map", "Location page has no map")
	}
	if page.Contact.HasHours || page.SchemaField("openingHours") != "" || page.SchemaField("openingHoursSpecification") != "" {
		s.add("hours", 1, 100)
	} else {
		s.add("hours", 1, 40)
		s.flag("location_missing_hours", "Location page lists no opening hours")
	}
}

func hasContact(c model.ContactInfo) bool {
	return len(c.Phones) > 0 || len(c.Emails) > 0 || len(c.Addresses) > 0
}

// containsPhone compares by digits; phones holds normalized numbers.
func containsPhone(phones []string, want string) bool {
	for _, p := range phones {
		if model.NormalizePhone(p) == want {
			return true
		}
	}
	return false
}

// containsAddress reports whether any page address matches want. Two
// addresses match when every word of the shorter one appears in the
// longer one, in any order.
func containsAddress(addresses []string, want string) bool {
	w := addressTokens(want)
	for _, addr := range addresses {
		if tokensMatch(addressTokens(addr), w) {
			return true
		}
	}
	return false
}

func tokensMatch(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	set := make(map[string]bool, len(b))
	for _, t := range b {
		set[t] = true
	}
	for _, t := range a {
		if !set[t] {
			return false
		}
	}
	return true
}

// addressAbbreviations folds common street suffix spellings.
var addressAbbreviations = map[string]string{
	"street": "st", "avenue": "ave", "road": "rd", "boulevard": "blvd",
	"drive": "dr", "suite": "ste", "lane": "ln", "court": "ct",
	"north": "n", "south": "s", "east": "e", "west": "w",
}

// addressTokens lowercases an address, splits it on anything that is not
// a letter or digit and folds street suffix spellings.
func addressTokens(addr string) []string {
	fields := strings.FieldsFunc(strings.ToLower(addr), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, f := range fields {
		if short, ok := addressAbbreviations[f]; ok {
			fields[i] = short
		}
	}
	return fields
}
