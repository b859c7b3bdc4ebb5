package crawler

import (
	"net/url"
	"path"
	"strings"

	"github.com/nao1215/siteaudit/internal/model"
)

// roleRule maps URL path keywords and title/H1 phrases to a page role.
// Rules are checked in order, so more specific roles come first.
type roleRule struct {
	role     model.PageRole
	segments []string
	phrases  []string
}

var roleRules = []roleRule{
	{
		role:     model.PageRoleContact,
		segments: []string{"contact", "contact-us", "contactus", "get-in-touch", "reach-us", "booking", "request-a-quote", "quote", "appointment", "appointments"},
		phrases:  []string{"contact us", "get in touch", "request a quote", "book an appointment"},
	},
	{
		role:     model.PageRoleServiceArea,
		segments: []string{"service-area", "service-areas", "areas-we-serve", "areas-served", "areas", "coverage", "communities"},
		phrases:  []string{"areas we serve", "service area", "areas served", "communities we serve"},
	},
	{
		role:     model.PageRoleLocation,
		segments: []string{"location", "locations", "find-us", "directions", "offices", "stores", "store-locator", "branches", "visit-us"},
		phrases:  []string{"our locations", "find us", "directions to", "visit us", "our office"},
	},
	{
		role:     model.PageRoleService,
		segments: []string{"service", "services", "what-we-do", "solutions", "treatments", "practice-areas", "repair", "repairs", "installation", "maintenance", "offerings"},
		phrases:  []string{"our services", "what we do", "services we offer"},
	},
}

// Classify assigns a page to a SiteStructure bucket. The seed is always the
// homepage; otherwise URL path segments are checked before the title and
// first H1.
func Classify(pageURL string, isSeed bool, title, h1 string) model.PageRole {
	if isSeed {
		return model.PageRoleHomepage
	}

	u, err := url.Parse(pageURL)
	if err != nil {
		return model.PageRoleOther
	}
	p := strings.ToLower(strings.Trim(u.Path, "/"))
	switch p {
	case "", "index.html", "index.htm", "index.php", "home":
		return model.PageRoleHomepage
	}

	segments := strings.Split(p, "/")
	for i, seg := range segments {
		segments[i] = strings.TrimSuffix(seg, path.Ext(seg))
	}
	// Exact segment matches win over affix matches, so "practice-areas"
	// is a service page rather than a service-area page.
	if role, ok := matchSegments(segments, func(seg, want string) bool { return seg == want }); ok {
		return role
	}
	if role, ok := matchSegments(segments, func(seg, want string) bool {
		return strings.HasPrefix(seg, want+"-") || strings.HasSuffix(seg, "-"+want)
	}); ok {
		return role
	}

	content := strings.ToLower(title + " " + h1)
	for _, rule := range roleRules {
		for _, phrase := range rule.phrases {
			if strings.Contains(content, phrase) {
				return rule.role
			}
		}
	}
	return model.PageRoleOther
}

func matchSegments(segments []string, match func(seg, want string) bool) (model.PageRole, bool) {
	for _, rule := range roleRules {
		for _, seg := range segments {
			for _, want := range rule.segments {
				if match(seg, want) {
					return rule.role, true
				}
			}
		}
	}
	return "", false
}
