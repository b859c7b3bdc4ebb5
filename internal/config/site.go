package config

import (
	"net/url"
	"strings"
)

// SiteConfig holds site-specific configuration for a single host.
type SiteConfig struct {
	// Cookie is an HTTP cookie to send, e.g. a consent cookie that hides
	// an interstitial. Format: "name=value; name2=value2".
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the maximum crawl depth for this site.
	Depth int `yaml:"depth,omitempty"`

	// MaxPages overrides the page budget for this site.
	MaxPages int `yaml:"maxPages,omitempty"`

	// UseJavaScript forces (or disables) headless rendering for this site.
	UseJavaScript *bool `yaml:"useJavaScript,omitempty"`

	// IgnorePatterns are glob patterns on the URL path to skip.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns, if set, restrict crawling to matching URL paths.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// File represents the structure of the .siteaudit configuration file.
type File struct {
	// Sites maps host names (e.g. "example.com") to their configuration.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults applies to every site unless overridden.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Policy overrides scoring and grouping tunables.
	Policy Policy `yaml:"policy,omitempty"`
}

// GetSiteConfig returns the configuration for a host or URL, merging the
// site-specific entry over the defaults. A leading "www." is ignored when
// no exact entry exists.
func (cf *File) GetSiteConfig(target string) SiteConfig {
	result := cf.Defaults
	if result.Headers != nil {
		headers := make(map[string]string, len(result.Headers))
		for k, v := range result.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}

	host := hostOf(target)
	siteConfig, ok := cf.Sites[host]
	if !ok {
		siteConfig, ok = cf.Sites[strings.TrimPrefix(host, "www.")]
	}
	if !ok {
		return result
	}

	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if siteConfig.Depth != 0 {
		result.Depth = siteConfig.Depth
	}
	if siteConfig.MaxPages != 0 {
		result.MaxPages = siteConfig.MaxPages
	}
	if siteConfig.UseJavaScript != nil {
		result.UseJavaScript = siteConfig.UseJavaScript
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range siteConfig.Headers {
			result.Headers[k] = v
		}
	}
	if len(siteConfig.IgnorePatterns) > 0 {
		result.IgnorePatterns = siteConfig.IgnorePatterns
	}
	if len(siteConfig.FollowPatterns) > 0 {
		result.FollowPatterns = siteConfig.FollowPatterns
	}
	return result
}

// hostOf extracts the lowercase host from a URL or returns the input
// lowercased when it is already a bare host.
func hostOf(target string) string {
	if strings.Contains(target, "://") {
		if u, err := url.Parse(target); err == nil {
			return strings.ToLower(u.Hostname())
		}
	}
	return strings.ToLower(strings.TrimSuffix(target, "/"))
}
