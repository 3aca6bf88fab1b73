// Package parser turns raw print edition HTML into the issue tree.
package parser

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Adda-Baaj/saptahik/internal/config"
	"github.com/Adda-Baaj/saptahik/internal/domain"
)

// ParseError reports that an expected structural marker is absent from a
// page, usually because the site layout changed.
type ParseError struct {
	URL    string
	Marker string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: missing %q", e.URL, e.Marker)
}

// Parser extracts the issue tree from print edition pages.
type Parser struct {
	baseURL   string
	selectors config.Selectors
}

// New builds a Parser. Relative links are resolved against baseURL.
func New(baseURL string, selectors config.Selectors) *Parser {
	return &Parser{baseURL: baseURL, selectors: selectors}
}

// ParseIssue parses the edition table of contents into an issue skeleton:
// date, title, cover and sections with article URLs. Article bodies are
// filled in later by ParseArticle. finalURL is the ToC URL after
// redirects; its trailing date names the issue.
func (p *Parser) ParseIssue(body []byte, finalURL string) (domain.Issue, error) {
	date, err := issueDate(finalURL)
	if err != nil {
		return domain.Issue{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return domain.Issue{}, fmt.Errorf("parse toc html: %w", err)
	}

	root := doc.Find(p.selectors.TocRoot).First()
	if root.Length() == 0 {
		return domain.Issue{}, &ParseError{URL: finalURL, Marker: p.selectors.TocRoot}
	}

	issue := domain.Issue{
		ID:          "the_economist_" + date,
		Date:        date,
		Title:       "The Economist - " + date,
		SourceURL:   finalURL,
		RetrievedAt: time.Now().UTC(),
	}

	if cover := root.Find(p.selectors.TocCover).First(); cover.Length() > 0 {
		if src, ok := cover.Attr("src"); ok {
			issue.CoverURL = p.absoluteURL(src)
		}
	}

	list := root.Find(p.selectors.TocList).First()
	if list.Length() == 0 {
		return domain.Issue{}, &ParseError{URL: finalURL, Marker: p.selectors.TocList}
	}

	list.Find(p.selectors.TocItem).Each(func(_ int, li *goquery.Selection) {
		name := strings.TrimSpace(li.Find(p.selectors.TocSectionName).First().Text())
		if name == "" {
			return
		}

		section := domain.Section{Title: name}
		li.Find(p.selectors.TocLink).Each(func(_ int, a *goquery.Selection) {
			href, ok := a.Attr("href")
			if !ok || strings.TrimSpace(href) == "" {
				return
			}
			section.Articles = append(section.Articles, domain.Article{
				URL:   p.absoluteURL(href),
				Title: linkTitle(a),
			})
		})

		if len(section.Articles) > 0 {
			issue.Sections = append(issue.Sections, section)
		}
	})

	if len(issue.Sections) == 0 {
		return domain.Issue{}, &ParseError{URL: finalURL, Marker: p.selectors.TocItem}
	}
	return issue, nil
}

// ParseArticle fills in the article's byline, paragraphs and image URLs
// from its page HTML. The ToC title is kept; the page's og:title is only
// used when the ToC gave none.
func (p *Parser) ParseArticle(art domain.Article, body []byte) (domain.Article, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return art, fmt.Errorf("parse article html: %w", err)
	}

	root := doc.Find(p.selectors.ArticleRoot).First()
	if root.Length() == 0 {
		// Older pages carry a bare <article> element.
		root = doc.Find("article").First()
	}
	if root.Length() == 0 {
		return art, &ParseError{URL: art.URL, Marker: p.selectors.ArticleRoot}
	}

	art.Title = firstNonEmpty(art.Title, metaContent(doc, `meta[property="og:title"]`))
	art.Byline = strings.TrimSpace(root.Find(p.selectors.ArticleByline).First().Text())

	root.Find("p").Each(func(_ int, sel *goquery.Selection) {
		if sel.Is(p.selectors.ArticleByline) {
			return
		}
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			art.Paragraphs = append(art.Paragraphs, text)
		}
	})
	if len(art.Paragraphs) == 0 {
		return art, &ParseError{URL: art.URL, Marker: "article paragraphs"}
	}

	if top := metaContent(doc, `meta[property="og:image"]`); top != "" {
		art.TopImageURL = resolveURL(top, art.URL)
	}

	seen := map[string]struct{}{}
	if art.TopImageURL != "" {
		seen[art.TopImageURL] = struct{}{}
	}
	root.Find("img[src]").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok || strings.TrimSpace(src) == "" {
			return
		}
		abs := resolveURL(src, art.URL)
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		art.ImageURLs = append(art.ImageURLs, abs)
	})

	return art, nil
}

// issueDate extracts and validates the trailing YYYY-MM-DD of the
// redirected edition URL.
func issueDate(finalURL string) (string, error) {
	trimmed := strings.TrimRight(finalURL, "/")
	if len(trimmed) < 10 {
		return "", &ParseError{URL: finalURL, Marker: "issue date"}
	}

	date := trimmed[len(trimmed)-10:]
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return "", &ParseError{URL: finalURL, Marker: "issue date"}
	}
	return date, nil
}

// linkTitle joins the spans of a ToC link, e.g. flytitle and headline.
func linkTitle(a *goquery.Selection) string {
	var parts []string
	a.Find("span").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	if len(parts) == 0 {
		return strings.TrimSpace(a.Text())
	}
	return strings.Join(parts, " - ")
}

// metaContent extracts the content attribute of the first match.
func metaContent(doc *goquery.Document, sel string) string {
	if node := doc.Find(sel).First(); node.Length() > 0 {
		if val, ok := node.Attr("content"); ok {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

func (p *Parser) absoluteURL(href string) string {
	if strings.HasPrefix(href, "/") {
		return strings.TrimRight(p.baseURL, "/") + href
	}
	return href
}

// firstNonEmpty returns the first non-empty string from the given values.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// resolveURL resolves a possibly relative URL against a base URL.
func resolveURL(raw, base string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if parsed.IsAbs() {
		return parsed.String()
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return raw
	}

	return baseURL.ResolveReference(parsed).String()
}
