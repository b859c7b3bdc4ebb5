package normalizer

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/nao1215/siteaudit/internal/model"
)

// maxFieldValue bounds the offending value kept in a FieldError.
const maxFieldValue = 80

// Normalizer validates and normalizes crawler outputs. It is safe for
// concurrent use.
type Normalizer struct {
	validate *validator.Validate
}

// New creates a Normalizer. Field errors are reported by JSON name.
func New() *Normalizer {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return &Normalizer{validate: v}
}

var defaultNormalizer = New()

// Normalize normalizes out with the package default Normalizer.
func Normalize(out *model.CrawlerOutput) (*model.PageCrawlResult, error) {
	return defaultNormalizer.Normalize(out)
}

// Normalize validates out and derives its PageCrawlResult in a single
// pass. Every slice of the result is non-nil and independent of out.
func (n *Normalizer) Normalize(out *model.CrawlerOutput) (*model.PageCrawlResult, error) {
	if out == nil {
		return nil, &model.ValidationError{Err: ErrNilOutput}
	}
	if out.Failed() {
		return nil, &model.ValidationError{URL: out.URL, Err: fmt.Errorf("%w: %s", ErrFailedPage, out.Error)}
	}
	if err := n.validate.Struct(out); err != nil {
		return nil, toValidationError(out.URL, err)
	}

	p := &model.PageCrawlResult{
		SourceURL:    out.URL,
		URL:          out.EffectiveURL(),
		Role:         out.Role,
		Depth:        out.Depth,
		Platform:     out.Platform,
		StatusCode:   out.StatusCode,
		ResponseTime: out.ResponseTime,
		PageBytes:    out.ContentLength,
		Rendered:     out.Rendered,

		Title:           out.Title,
		MetaDescription: out.MetaDescription,
		MetaTags:        copyMap(out.MetaTags),
		Canonical:       out.Canonical,
		Robots:          out.Robots,
		Lang:            out.Lang,
		Hreflang:        copySlice(out.Hreflang),

		H1:             copySlice(out.Headings.H1),
		H2:             copySlice(out.Headings.H2),
		H3:             copySlice(out.Headings.H3),
		HeadingOutline: copySlice(out.Headings.Outline),

		InternalLinks:     copySlice(out.InternalLinks),
		ExternalLinks:     copySlice(out.ExternalLinks),
		InternalLinkCount: len(out.InternalLinks),
		ExternalLinkCount: len(out.ExternalLinks),

		Images:     copySlice(out.Images),
		ImageCount: len(out.Images),

		StructuredData: make([]model.StructuredData, 0, len(out.StructuredData)),

		Security:      out.Security,
		Accessibility: out.Accessibility,
		Mobile:        out.Mobile,
		Contact: model.ContactInfo{
			BusinessName: out.Contact.BusinessName,
			Phones:       copySlice(out.Contact.Phones),
			Emails:       copySlice(out.Contact.Emails),
			Addresses:    copySlice(out.Contact.Addresses),
			HasMap:       out.Contact.HasMap,
			HasHours:     out.Contact.HasHours,
		},

		Text:      out.Text,
		WordCount: out.WordCount,

		IsDuplicate: out.IsDuplicate,
		SimilarURL:  out.SimilarURL,
		Similarity:  out.Similarity,

		Extension: model.Extension{
			H4: copySlice(out.Headings.H4),
			H5: copySlice(out.Headings.H5),
			H6: copySlice(out.Headings.H6),
		},
	}
	if p.Role == "" {
		p.Role = model.PageRoleOther
	}

	for _, img := range out.Images {
		if img.HasAlt {
			p.ImagesWithAlt++
		}
		if img.Loading == "lazy" {
			p.LazyImages++
		}
	}

	types := make(map[string]struct{})
	for _, sd := range out.StructuredData {
		p.StructuredData = append(p.StructuredData, model.StructuredData{
			Types:  copySlice(sd.Types),
			Raw:    sd.Raw,
			Valid:  sd.Valid,
			Fields: copyMap(sd.Fields),
		})
		for _, t := range sd.Types {
			types[t] = struct{}{}
		}
	}
	p.SchemaTypes = make([]string, 0, len(types))
	for t := range types {
		p.SchemaTypes = append(p.SchemaTypes, t)
	}
	sort.Strings(p.SchemaTypes)

	return p, nil
}

func toValidationError(url string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &model.ValidationError{URL: url, Err: fmt.Errorf("%w: %w", ErrInvalidOutput, err)}
	}

	fields := make([]model.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		fields = append(fields, model.FieldError{Field: field, Rule: rule, Value: truncate(fmt.Sprint(fe.Value()))})
	}
	return &model.ValidationError{URL: url, Fields: fields, Err: ErrInvalidOutput}
}

// truncate keeps at most maxFieldValue bytes of s, cutting on a rune
// boundary.
func truncate(s string) string {
	if len(s) <= maxFieldValue {
		return s
	}
	n := maxFieldValue
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

func copySlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return slices.Clone(s)
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return maps.Clone(m)
}
