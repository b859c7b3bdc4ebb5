package cms

import (
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Signal identifies where a rule looks for evidence.
type Signal string

// Signal kinds in rank order.
const (
	SignalGenerator Signal = "generator"
	SignalHeader    Signal = "header"
	SignalAsset     Signal = "asset"
)

// Rule confidences per signal kind.
const (
	GeneratorConfidence = 0.95
	HeaderConfidence    = 0.9
	AssetConfidence     = 0.7
)

// PlatformGuess is the detected platform.
type PlatformGuess struct {
	Name       string   `json:"name"`
	Version    string   `json:"version,omitempty"`
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence"`
}

// Rule matches one piece of platform evidence.
type Rule struct {
	Platform string
	Signal   Signal
	// Header is the header name for SignalHeader rules.
	Header string
	// Pattern is matched against the generator content, the header value
	// or the HTML. A first capture group, if any, is the version.
	Pattern    *regexp.Regexp
	Confidence float64
}

var generatorPattern = regexp.MustCompile(`(?i)<meta[^>]+name=["']generator["'][^>]*content=["']([^"']+)["']|<meta[^>]+content=["']([^"']+)["'][^>]*name=["']generator["']`)

// DefaultRules returns the built-in rule set.
func DefaultRules() []Rule {
	gen := func(platform, pattern string) Rule {
		return Rule{Platform: platform, Signal: SignalGenerator, Pattern: regexp.MustCompile(pattern), Confidence: GeneratorConfidence}
	}
	hdr := func(platform, header, pattern string) Rule {
		return Rule{Platform: platform, Signal: SignalHeader, Header: header, Pattern: regexp.MustCompile(pattern), Confidence: HeaderConfidence}
	}
	asset := func(platform, pattern string) Rule {
		return Rule{Platform: platform, Signal: SignalAsset, Pattern: regexp.MustCompile(pattern), Confidence: AssetConfidence}
	}

	return []Rule{
		gen("WordPress", `(?i)^WordPress\s*([\d.]+)?`),
		gen("Drupal", `(?i)^Drupal\s*([\d.]+)?`),
		gen("Joomla", `(?i)^Joomla!?\s*([\d.]+)?`),
		gen("Wix", `(?i)^Wix\.com`),
		gen("Squarespace", `(?i)^Squarespace`),
		gen("Webflow", `(?i)^Webflow`),
		gen("Ghost", `(?i)^Ghost\s*([\d.]+)?`),
		gen("Weebly", `(?i)^Weebly`),
		gen("GoDaddy Website Builder", `(?i)^(Go ?Daddy|Starfield)`),
		gen("Duda", `(?i)^Duda`),
		gen("HubSpot", `(?i)^HubSpot`),
		gen("Shopify", `(?i)^Shopify`),

		hdr("Shopify", "X-Shopify-Stage", `.+`),
		hdr("Shopify", "X-ShopId", `.+`),
		hdr("Wix", "X-Wix-Request-Id", `.+`),
		hdr("Squarespace", "Server", `(?i)squarespace`),
		hdr("WordPress", "Link", `(?i)rel=["']?https://api\.w\.org/`),
		hdr("WordPress", "X-Pingback", `(?i)xmlrpc\.php`),
		hdr("Drupal", "X-Generator", `(?i)^Drupal\s*([\d.]+)?`),
		hdr("Drupal", "X-Drupal-Cache", `.+`),
		hdr("Ghost", "X-Ghost-Cache-Status", `.+`),
		hdr("HubSpot", "X-HS-Hub-Id", `.+`),
		hdr("Webflow", "X-Wf-Page-Id", `.+`),

		asset("WordPress", `/wp-content/|/wp-includes/`),
		asset("Shopify", `cdn\.shopify\.com|Shopify\.theme`),
		asset("Wix", `static\.wixstatic\.com|static\.parastorage\.com`),
		asset("Squarespace", `static1\.squarespace\.com|assets\.squarespace\.com`),
		asset("Drupal", `/sites/default/files/|drupal-settings-json|Drupal\.settings`),
		asset("Joomla", `/media/jui/|/components/com_`),
		asset("Webflow", `assets\.website-files\.com|data-wf-page=`),
		asset("Ghost", `/ghost/api/|ghost-portal`),
		asset("HubSpot", `js\.hs-scripts\.com|hs-sites\.com|/hubfs/`),
		asset("Weebly", `editmysite\.com|weebly\.com/weebly/`),
		asset("GoDaddy Website Builder", `img1\.wsimg\.com`),
		asset("Duda", `irp\.cdn-website\.com|dmAlbum`),
	}
}

// Detector matches a rule set.
type Detector struct {
	rules []Rule
}

// NewDetector creates a Detector. Without rules, DefaultRules are used.
func NewDetector(rules ...Rule) *Detector {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	ranked := make([]Rule, len(rules))
	copy(ranked, rules)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})
	return &Detector{rules: ranked}
}

type platformEvidence struct {
	miss     float64 // product of (1 - confidence)
	version  string
	evidence []string
	order    int
}

// Detect returns the highest-confidence platform or nil when no rule
// matched.
func (d *Detector) Detect(html string, headers http.Header) *PlatformGuess {
	generators := extractGenerators(html)

	found := make(map[string]*platformEvidence)
	record := func(r Rule, version, what string) {
		pe, ok := found[r.Platform]
		if !ok {
			pe = &platformEvidence{miss: 1, order: len(found)}
			found[r.Platform] = pe
		}
		pe.miss *= 1 - r.Confidence
		if pe.version == "" && version != "" {
			pe.version = version
		}
		pe.evidence = append(pe.evidence, what)
	}

	for _, r := range d.rules {
		switch r.Signal {
		case SignalGenerator:
			for _, g := range generators {
				if m := r.Pattern.FindStringSubmatch(g); m != nil {
					record(r, firstGroup(m), "generator: "+g)
					break
				}
			}
		case SignalHeader:
			if headers == nil {
				continue
			}
			v := headers.Get(r.Header)
			if v == "" {
				continue
			}
			if m := r.Pattern.FindStringSubmatch(v); m != nil {
				record(r, firstGroup(m), "header: "+r.Header)
			}
		case SignalAsset:
			if loc := r.Pattern.FindString(html); loc != "" {
				record(r, "", "asset: "+loc)
			}
		}
	}

	if len(found) == 0 {
		return nil
	}

	var best *PlatformGuess
	bestOrder := 0
	for name, pe := range found {
		conf := 1 - pe.miss
		if best == nil || conf > best.Confidence || (conf == best.Confidence && pe.order < bestOrder) {
			best = &PlatformGuess{Name: name, Version: pe.version, Confidence: conf, Evidence: pe.evidence}
			bestOrder = pe.order
		}
	}
	best.Confidence = float64(int(best.Confidence*1000+0.5)) / 1000
	return best
}

func extractGenerators(html string) []string {
	var out []string
	for _, m := range generatorPattern.FindAllStringSubmatch(html, -1) {
		for _, g := range m[1:] {
			if g = strings.TrimSpace(g); g != "" {
				out = append(out, g)
			}
		}
	}
	return out
}

func firstGroup(m []string) string {
	if len(m) > 1 {
		return m[1]
	}
	return ""
}

// Cache memoizes the first detection for the lifetime of a crawl job.
type Cache struct {
	detector *Detector
	once     sync.Once
	guess    *PlatformGuess
}

// NewCache wraps a detector.
func NewCache(d *Detector) *Cache {
	if d == nil {
		d = NewDetector()
	}
	return &Cache{detector: d}
}

// Detect runs detection on the first call and returns that result on every
// later call.
func (c *Cache) Detect(html string, headers http.Header) *PlatformGuess {
	c.once.Do(func() {
		c.guess = c.detector.Detect(html, headers)
	})
	return c.guess
}
