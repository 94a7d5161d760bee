package export

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	urlutil "github.com/shopscan/shopscan/internal/utils/url"
	"github.com/shopscan/shopscan/pkg/models"
)

// SavePageMarkdown converts a fetched page to GitHub-flavored Markdown.
// Relative links are resolved against the page URL so the export stands
// on its own.
func SavePageMarkdown(page *models.Page, path string) error {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	converter.AddRules(md.Rule{
		Filter: []string{"a"},
		Replacement: func(content string, sel *goquery.Selection, opt *md.Options) *string {
			href, ok := sel.Attr("href")
			if !ok {
				return nil
			}
			link := fmt.Sprintf("[%s](%s)", sel.Text(), urlutil.ResolveURL(page.URL, href))
			if title, ok := sel.Attr("title"); ok {
				link += fmt.Sprintf(" %q", title)
			}
			return &link
		},
	})

	cleaned, err := CleanHTML(page.HTML)
	if err != nil {
		return err
	}
	body, err := converter.ConvertString(cleaned)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(body), 0644)
}

// SavePageHTML writes the sanitized HTML excerpt of a fetched page.
func SavePageHTML(page *models.Page, path string) error {
	cleaned, err := CleanHTML(page.HTML)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(cleaned), 0644)
}

// SavePageJSON writes the page metadata and text content. The raw HTML is
// dropped so the export stays readable.
func SavePageJSON(page *models.Page, path string) error {
	copy := *page
	copy.HTML = ""
	content, err := json.MarshalIndent(&copy, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, content, 0644)
}

// keptAttrs lists, per tag, the attributes CleanHTML preserves. Every
// other attribute (classes, ids, inline styles, data-*) is stripped.
var keptAttrs = map[string]map[string]bool{
	"a":   {"href": true, "title": true},
	"img": {"src": true, "alt": true, "title": true},
}

// CleanHTML strips scripts, styles, embedded widgets and presentation
// attributes, leaving an excerpt that converts cleanly to Markdown.
func CleanHTML(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, link, meta, noscript, iframe, svg, form, input, button, select, textarea, canvas").Remove()

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		if len(s.Nodes) == 0 {
			return
		}
		node := s.Nodes[0]
		kept := keptAttrs[node.Data]
		var attrs []html.Attribute
		for _, attr := range node.Attr {
			if kept[attr.Key] {
				attrs = append(attrs, attr)
			}
		}
		node.Attr = attrs
	})

	out, err := doc.Html()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
