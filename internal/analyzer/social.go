package analyzer

import (
	"regexp"
	"sort"
	"strings"

	"github.com/nao1215/siteaudit/internal/model"
)

// profilePatterns match links to a business profile, keyed by platform.
// Review and listing sites count: they carry the citations local search
// compares with the site's NAP.
var profilePatterns = map[string][]*regexp.Regexp{
	"facebook": {
		regexp.MustCompile(`(?i)^https?://(?:www\.|m\.)?facebook\.com/([A-Za-z0-9.-]+)/?(?:\?|$)`),
		regexp.MustCompile(`(?i)^https?://(?:www\.)?fb\.com/([A-Za-z0-9.]+)`),
	},
	"instagram": {
		regexp.MustCompile(`(?i)^https?://(?:www\.)?instagram\.com/([A-Za-z0-9_.]+)/?(?:\?|$)`),
	},
	"twitter": {
		regexp.MustCompile(`(?i)^https?://(?:www\.)?(?:twitter\.com|x\.com)/([A-Za-z0-9_]{1,15})/?(?:\?|$)`),
	},
	"linkedin": {
		regexp.MustCompile(`(?i)^https?://(?:[a-z]{2,3}\.)?linkedin\.com/company/([A-Za-z0-9_-]+)`),
	},
	"youtube": {
		regexp.MustCompile(`(?i)^https?://(?:www\.)?youtube\.com/(?:channel/|c/|user/|@)([A-Za-z0-9_-]+)`),
	},
	"tiktok": {
		regexp.MustCompile(`(?i)^https?://(?:www\.)?tiktok\.com/@([A-Za-z0-9_.]+)`),
	},
	"google": {
		regexp.MustCompile(`(?i)^https?://g\.page/([A-Za-z0-9_-]+)`),
		regexp.MustCompile(`(?i)^https?://(?:www\.)?google\.[a-z.]+/maps/place/([^/?]+)`),
		regexp.MustCompile(`(?i)^https?://maps\.app\.goo\.gl/([A-Za-z0-9]+)`),
	},
	"yelp": {
		regexp.MustCompile(`(?i)^https?://(?:www\.)?yelp\.[a-z.]+/biz/([A-Za-z0-9_-]+)`),
	},
	"nextdoor": {
		regexp.MustCompile(`(?i)^https?://(?:www\.)?nextdoor\.com/pages/([A-Za-z0-9_-]+)`),
	},
}

// notProfilePaths mark share buttons and generic pages of a platform.
var notProfilePaths = []string{
	"/intent/", "/share", "/sharer", "/login", "/signup", "/help",
	"/privacy", "/terms", "/search", "/home", "/explore", "/policies",
}

// SocialProfiles returns the platforms that links point to a business
// profile on, sorted by name.
func SocialProfiles(links []model.Link) []string {
	found := make(map[string]bool)
	for _, l := range links {
		if !isProfileLink(l.Href) {
			continue
		}
		for platform, patterns := range profilePatterns {
			for _, re := range patterns {
				if re.MatchString(l.Href) {
					found[platform] = true
					break
				}
			}
		}
	}

	out := make([]string, 0, len(found))
	for platform := range found {
		out = append(out, platform)
	}
	sort.Strings(out)
	return out
}

func isProfileLink(href string) bool {
	lower := strings.ToLower(href)
	for _, p := range notProfilePaths {
		if strings.Contains(lower, p) {
			return false
		}
	}
	return true
}

// socialProfiles scores whether the homepage links the business profiles.
// Profiles declared with schema.org sameAs count as well.
func (a *LocalAnalyzer) socialProfiles(s *scorecard, page *model.PageCrawlResult) {
	if page.Role != model.PageRoleHomepage {
		return
	}
	if len(SocialProfiles(page.ExternalLinks)) > 0 || page.SchemaField("sameAs") != "" {
		s.add("social_profiles", 1, 100)
		return
	}
	s.add("social_profiles", 1, 50)
	s.flag("missing_social_profiles", "Homepage links no business or social profiles")
}
