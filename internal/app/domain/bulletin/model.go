package bulletin

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Item is an entry of the network news feed: blog posts and incident reports.
type Item struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Link        string    `json:"link"`
	PublishDate time.Time `json:"publish_date"`
	Status      string    `json:"status"`
}

const (
	TypeBlogPost       = "blog_posts"
	TypeIncidentReport = "incident_reports"
	StatusResolved     = "resolved"
)

// Summary returns the description shown on the dashboard. Blog posts are cut
// down to their first paragraph after dropping a leading figure and the date line.
// Descriptions that fail to parse are returned unchanged.
func (i Item) Summary() string {
	if i.Type != TypeBlogPost {
		return i.Description
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(i.Description))
	if err != nil {
		return i.Description
	}
	body := doc.Find("body")

	if first := body.Children().First(); goquery.NodeName(first) == "figure" {
		first.Remove()
	}
	if first := body.Children().First(); isDateLine(first) {
		first.Remove()
	}

	if p := body.Find("p").First(); p.Length() > 0 {
		if html, err := goquery.OuterHtml(p); err == nil {
			return html
		}
	}
	html, err := body.Html()
	if err != nil {
		return i.Description
	}
	return strings.TrimSpace(html)
}

// isDateLine matches a paragraph whose only content is an <em> element.
func isDateLine(s *goquery.Selection) bool {
	if goquery.NodeName(s) != "p" {
		return false
	}
	children := s.Children()
	if children.Length() != 1 || goquery.NodeName(children) != "em" {
		return false
	}
	return strings.TrimSpace(s.Text()) == strings.TrimSpace(children.Text())
}
