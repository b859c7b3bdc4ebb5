package model

// SiteStructure classifies the crawled pages of one site by role.
// The crawler builds it incrementally; it is read-only once the crawl ends.
type SiteStructure struct {
	Homepage         string   `json:"homepage,omitempty"`
	ContactPage      string   `json:"contact_page,omitempty"`
	ServicePages     []string `json:"service_pages,omitempty"`
	LocationPages    []string `json:"location_pages,omitempty"`
	ServiceAreaPages []string `json:"service_area_pages,omitempty"`
	OtherPages       []string `json:"other_pages,omitempty"`

	// SitemapFound is true when at least one sitemap was parsed.
	SitemapFound bool `json:"sitemap_found"`

	// SitemapURLs lists the sitemaps that were read.
	SitemapURLs []string `json:"sitemap_urls,omitempty"`

	// BudgetExhausted is true when a page or time budget stopped the crawl.
	BudgetExhausted bool `json:"budget_exhausted"`
}

// Add records a page under its role. The first homepage and contact page
// win; later candidates for those single-valued slots go to OtherPages.
func (s *SiteStructure) Add(role PageRole, url string) {
	switch role {
	case PageRoleHomepage:
		if s.Homepage == "" {
			s.Homepage = url
			return
		}
	case PageRoleContact:
		if s.ContactPage == "" {
			s.ContactPage = url
			return
		}
	case PageRoleService:
		s.ServicePages = append(s.ServicePages, url)
		return
	case PageRoleLocation:
		s.LocationPages = append(s.LocationPages, url)
		return
	case PageRoleServiceArea:
		s.ServiceAreaPages = append(s.ServiceAreaPages, url)
		return
	case PageRoleOther:
	}
	s.OtherPages = append(s.OtherPages, url)
}

// RoleOf returns the role a URL was recorded under.
func (s *SiteStructure) RoleOf(url string) (PageRole, bool) {
	switch url {
	case "":
		return "", false
	case s.Homepage:
		return PageRoleHomepage, true
	case s.ContactPage:
		return PageRoleContact, true
	}
	for role, urls := range map[PageRole][]string{
		PageRoleService:     s.ServicePages,
		PageRoleLocation:    s.LocationPages,
		PageRoleServiceArea: s.ServiceAreaPages,
		PageRoleOther:       s.OtherPages,
	} {
		for _, u := range urls {
			if u == url {
				return role, true
			}
		}
	}
	return "", false
}

// Count returns the number of classified pages.
func (s *SiteStructure) Count() int {
	n := len(s.ServicePages) + len(s.LocationPages) + len(s.ServiceAreaPages) + len(s.OtherPages)
	if s.Homepage != "" {
		n++
	}
	if s.ContactPage != "" {
		n++
	}
	return n
}
