package crawler

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/siteaudit/internal/model"
	"github.com/nao1215/siteaudit/internal/render"
	"github.com/nao1215/siteaudit/internal/similarity"
)

var (
	phonePattern = regexp.MustCompile(`(?:\+?1[\s.-]?)?\(?\b[2-9]\d{2}\)?[\s.-]\d{3}[\s.-]\d{4}\b`)
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	hoursPattern = regexp.MustCompile(`(?i)\b(?:mon(?:day)?|tue(?:sday)?|wed(?:nesday)?|thu(?:rsday)?|fri(?:day)?|sat(?:urday)?|sun(?:day)?)\b[^.\n]{0,40}?\b\d{1,2}(?::\d{2})?\s*(?:am|pm)\b`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// mapHosts identify embedded or linked maps.
var mapHosts = []string{"google.com/maps", "maps.google.", "goo.gl/maps", "maps.app.goo.gl", "openstreetmap.org", "bing.com/maps", "maps.apple.com"}

// skippedSchemes are link schemes that never lead to crawlable pages.
var skippedSchemes = map[string]bool{
	"javascript": true,
	"mailto":     true,
	"tel":        true,
	"data":       true,
	"sms":        true,
	"ftp":        true,
}

// Extract builds a CrawlerOutput from a fetched HTML document. Links are
// resolved against the final URL; internal links are those on the same
// site as the final URL.
func Extract(resp *render.Response) (*model.CrawlerOutput, error) {
	finalURL := resp.FinalURL
	if finalURL == "" {
		finalURL = resp.URL
	}
	base, err := url.Parse(finalURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.HTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", finalURL, err)
	}

	out := &model.CrawlerOutput{
		URL:           resp.URL,
		StatusCode:    resp.StatusCode,
		Headers:       resp.Headers,
		ResponseTime:  resp.Duration,
		ContentLength: len(resp.HTML),
		Rendered:      resp.Rendered,
		HTML:          resp.HTML,
		MetaTags:      make(map[string]string),
	}
	if finalURL != resp.URL {
		out.FinalURL = finalURL
	}

	e := &extractor{doc: doc, base: base, out: out}
	e.head()
	e.headings()
	e.links()
	e.images()
	e.structuredData()
	e.security()
	e.accessibility()
	e.contact()

	out.Text = similarity.MainText(resp.HTML)
	out.WordCount = len(similarity.Words(out.Text))

	return out, nil
}

type extractor struct {
	doc  *goquery.Document
	base *url.URL
	out  *model.CrawlerOutput

	phones map[string]struct{}
	emails map[string]struct{}
}

func (e *extractor) resolve(href string) (*url.URL, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return nil, false
	}
	u, err := url.Parse(href)
	if err != nil {
		return nil, false
	}
	return e.base.ResolveReference(u), true
}

func (e *extractor) head() {
	e.out.Title = collapse(e.doc.Find("title").First().Text())
	e.out.Lang = strings.TrimSpace(e.doc.Find("html").AttrOr("lang", ""))

	e.doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		key := s.AttrOr("name", "")
		if key == "" {
			key = s.AttrOr("property", "")
		}
		if key == "" {
			key = s.AttrOr("http-equiv", "")
		}
		key = strings.ToLower(strings.TrimSpace(key))
		content, ok := s.Attr("content")
		if key == "" || !ok {
			return
		}
		if _, dup := e.out.MetaTags[key]; !dup {
			e.out.MetaTags[key] = strings.TrimSpace(content)
		}
	})
	e.out.MetaDescription = e.out.MetaTags["description"]
	e.out.Robots = e.out.MetaTags["robots"]
	if xr := e.out.GetHeader("X-Robots-Tag"); xr != "" && e.out.Robots == "" {
		e.out.Robots = xr
	}
	if vp, ok := e.out.MetaTags["viewport"]; ok {
		e.out.Mobile = model.MobileFlags{HasViewport: true, ViewportContent: vp}
	}

	e.doc.Find("link[rel]").Each(func(_ int, s *goquery.Selection) {
		rel := strings.ToLower(s.AttrOr("rel", ""))
		href, ok := e.resolve(s.AttrOr("href", ""))
		if !ok {
			return
		}
		switch {
		case hasToken(rel, "canonical"):
			if e.out.Canonical == "" {
				e.out.Canonical = href.String()
			}
		case hasToken(rel, "alternate"):
			if lang := strings.TrimSpace(s.AttrOr("hreflang", "")); lang != "" {
				e.out.Hreflang = append(e.out.Hreflang, model.Hreflang{Lang: lang, Href: href.String()})
			}
		}
	})
}

func (e *extractor) headings() {
	levels := []*[]string{
		&e.out.Headings.H1, &e.out.Headings.H2, &e.out.Headings.H3,
		&e.out.Headings.H4, &e.out.Headings.H5, &e.out.Headings.H6,
	}
	e.doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		level := int(goquery.NodeName(s)[1] - '0')
		*levels[level-1] = append(*levels[level-1], collapse(s.Text()))
		e.out.Headings.Outline = append(e.out.Headings.Outline, level)
	})
}

func (e *extractor) links() {
	e.phones = make(map[string]struct{})
	e.emails = make(map[string]struct{})

	seen := make(map[string]struct{})
	e.doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.AttrOr("href", ""))
		if raw == "" || strings.HasPrefix(raw, "#") {
			return
		}
		u, ok := e.resolve(raw)
		if !ok {
			return
		}
		switch u.Scheme {
		case "tel":
			e.addPhone(u.Opaque + u.Path)
			return
		case "mailto":
			addr := strings.SplitN(u.Opaque+u.Path, "?", 2)[0]
			if addr != "" {
				e.emails[strings.ToLower(addr)] = struct{}{}
			}
			return
		}
		if skippedSchemes[u.Scheme] || (u.Scheme != "http" && u.Scheme != "https") {
			return
		}

		href := cleanURL(u)
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}

		rel := strings.ToLower(s.AttrOr("rel", ""))
		link := model.Link{
			Href:     href,
			Text:     collapse(s.Text()),
			Rel:      rel,
			NoFollow: hasToken(rel, "nofollow"),
		}
		if sameSite(u.Host, e.base.Host) {
			e.out.InternalLinks = append(e.out.InternalLinks, link)
		} else {
			e.out.ExternalLinks = append(e.out.ExternalLinks, link)
		}
	})
}

func (e *extractor) images() {
	e.doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src := s.AttrOr("src", "")
		if strings.TrimSpace(src) == "" || strings.HasPrefix(src, "data:") {
			src = s.AttrOr("data-src", src)
		}
		u, ok := e.resolve(src)
		if !ok {
			return
		}
		alt, hasAlt := s.Attr("alt")
		img := model.Image{
			Src:     u.String(),
			Alt:     strings.TrimSpace(alt),
			HasAlt:  hasAlt,
			Width:   s.AttrOr("width", ""),
			Height:  s.AttrOr("height", ""),
			Loading: strings.ToLower(s.AttrOr("loading", "")),
		}
		if !hasAlt {
			e.out.Accessibility.ImagesMissingAlt++
		}
		e.out.Images = append(e.out.Images, img)
	})
}

func (e *extractor) structuredData() {
	e.doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}
		sd := model.StructuredData{Raw: raw}

		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			e.out.StructuredData = append(e.out.StructuredData, sd)
			return
		}
		sd.Valid = true
		sd.Fields = make(map[string]string)
		types := make(map[string]struct{})
		collectSchema(v, types, sd.Fields)
		for t := range types {
			sd.Types = append(sd.Types, t)
		}
		sort.Strings(sd.Types)
		e.out.StructuredData = append(e.out.StructuredData, sd)
	})
}

// schemaFields are the JSON-LD properties flattened into
// StructuredData.Fields. The first occurrence wins.
var schemaFields = []string{"name", "telephone", "address", "email", "author", "openingHours", "openingHoursSpecification", "areaServed", "geo", "url", "logo"}

func collectSchema(v any, types map[string]struct{}, fields map[string]string) {
	switch node := v.(type) {
	case []any:
		for _, item := range node {
			collectSchema(item, types, fields)
		}
	case map[string]any:
		switch t := node["@type"].(type) {
		case string:
			types[t] = struct{}{}
		case []any:
			for _, item := range t {
				if s, ok := item.(string); ok {
					types[s] = struct{}{}
				}
			}
		}
		for _, f := range schemaFields {
			if _, done := fields[f]; done {
				continue
			}
			if val, ok := node[f]; ok {
				if s := flattenSchema(val); s != "" {
					fields[f] = s
				}
			}
		}
		if graph, ok := node["@graph"]; ok {
			collectSchema(graph, types, fields)
		}
	}
}

// flattenSchema renders a JSON-LD value as text. Objects such as
// PostalAddress become their values joined by commas.
func flattenSchema(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64, bool:
		return fmt.Sprint(val)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s := flattenSchema(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			if !strings.HasPrefix(k, "@") {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if s := flattenSchema(val[k]); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}

func (e *extractor) security() {
	https := e.base.Scheme == "https"
	e.out.Security.HTTPS = https
	e.out.Security.HSTS = https && e.out.GetHeader("Strict-Transport-Security") != ""
	if !https {
		return
	}
	mixed := e.doc.Find(`img[src^="http:"], script[src^="http:"], iframe[src^="http:"], link[rel~="stylesheet"][href^="http:"], source[src^="http:"], video[src^="http:"], audio[src^="http:"]`)
	e.out.Security.MixedContent = mixed.Length() > 0
}

func (e *extractor) accessibility() {
	e.out.Accessibility.HasLang = e.out.Lang != ""
	e.out.Accessibility.HasMainLandmark = e.doc.Find(`main, [role="main"]`).Length() > 0

	e.doc.Find(`a[href^="#"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(s.Text()), "skip") {
			e.out.Accessibility.HasSkipLink = true
			return false
		}
		return true
	})

	labelled := make(map[string]struct{})
	e.doc.Find("label[for]").Each(func(_ int, s *goquery.Selection) {
		labelled[s.AttrOr("for", "")] = struct{}{}
	})
	e.doc.Find("input, select, textarea").Each(func(_ int, s *goquery.Selection) {
		switch strings.ToLower(s.AttrOr("type", "")) {
		case "hidden", "submit", "button", "reset", "image":
			return
		}
		if _, ok := labelled[s.AttrOr("id", "")]; ok && s.AttrOr("id", "") != "" {
			return
		}
		if s.AttrOr("aria-label", "") != "" || s.AttrOr("aria-labelledby", "") != "" || s.AttrOr("title", "") != "" {
			return
		}
		if s.ParentsFiltered("label").Length() > 0 {
			return
		}
		e.out.Accessibility.FormInputsWithoutLabel++
	})
}

func (e *extractor) contact() {
	c := &e.out.Contact
	body := e.doc.Find("body").Clone()
	body.Find("script, style, noscript, template").Remove()
	text := body.Text()

	for _, m := range phonePattern.FindAllString(text, -1) {
		e.addPhone(m)
	}
	for _, m := range emailPattern.FindAllString(text, -1) {
		e.emails[strings.ToLower(m)] = struct{}{}
	}

	e.doc.Find("address").Each(func(_ int, s *goquery.Selection) {
		if a := collapse(s.Text()); a != "" {
			c.Addresses = append(c.Addresses, a)
		}
	})
	// Phones and Addresses hold only what visitors see. Structured data
	// keeps its own NAP so the two can be compared.
	for _, sd := range e.out.StructuredData {
		if c.BusinessName == "" && model.IsBusinessSchema(sd.Types...) {
			c.BusinessName = sd.Fields["name"]
		}
		if sd.Fields["openingHours"] != "" || sd.Fields["openingHoursSpecification"] != "" {
			c.HasHours = true
		}
	}
	if c.BusinessName == "" {
		c.BusinessName = e.out.MetaTags["og:site_name"]
	}
	if !c.HasHours {
		c.HasHours = hoursPattern.MatchString(text)
	}

	e.doc.Find("iframe[src], a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		ref := strings.ToLower(s.AttrOr("src", s.AttrOr("href", "")))
		for _, h := range mapHosts {
			if strings.Contains(ref, h) {
				c.HasMap = true
				return false
			}
		}
		return true
	})

	c.Phones = sortedKeys(e.phones)
	c.Emails = sortedKeys(e.emails)
}

// addPhone records a phone number by its digits so that "(512) 555-0100"
// and "tel:+15125550100" count once.
func (e *extractor) addPhone(raw string) {
	if p := model.NormalizePhone(raw); p != "" {
		e.phones[p] = struct{}{}
	}
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		if k != "" {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func hasToken(list, token string) bool {
	for _, f := range strings.Fields(list) {
		if f == token {
			return true
		}
	}
	return false
}

func collapse(s string) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}
