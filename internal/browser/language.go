package browser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/language"
)

// DetectLanguage returns the BCP 47 tag a page declares, or "".
//
// Sources are checked in order: the lang attribute of <html>, a
// Content-Language meta element, and the Content-Language response header.
// Only the first tag of a list is used, and undetermined tags count as
// missing.
func DetectLanguage(source string, headers map[string]string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(source))
	if err == nil {
		if lang, ok := doc.Find("html").First().Attr("lang"); ok {
			if tag := normalizeTag(lang); tag != "" {
				return tag
			}
		}

		var fromMeta string
		doc.Find("meta[http-equiv]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			equiv, _ := s.Attr("http-equiv")
			if !strings.EqualFold(equiv, "content-language") {
				return true
			}
			content, _ := s.Attr("content")
			fromMeta = normalizeTag(content)
			return fromMeta == ""
		})
		if fromMeta != "" {
			return fromMeta
		}
	}

	for k, v := range headers {
		if strings.EqualFold(k, "content-language") {
			return normalizeTag(v)
		}
	}
	return ""
}

func normalizeTag(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, ",;"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	if s == "" {
		return ""
	}
	tag, err := language.Parse(s)
	if err != nil || tag == language.Und {
		return ""
	}
	return tag.String()
}
