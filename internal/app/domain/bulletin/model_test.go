package bulletin

import "testing"

func TestSummaryStripsBlogPreamble(t *testing.T) {
	item := Item{
		Type:        TypeBlogPost,
		Description: `<figure><img src="x.png"></figure><p><em>March 1, 2024</em></p><p>First paragraph.</p><p>Second.</p>`,
	}
	if got := item.Summary(); got != "<p>First paragraph.</p>" {
		t.Fatalf("unexpected summary %q", got)
	}
}

func TestSummaryKeepsIncidentDescription(t *testing.T) {
	item := Item{Type: TypeIncidentReport, Description: "<p>a</p><p>b</p>"}
	if got := item.Summary(); got != item.Description {
		t.Fatalf("incident description should pass through, got %q", got)
	}
}

func TestSummaryWithoutParagraphs(t *testing.T) {
	item := Item{Type: TypeBlogPost, Description: "<figure>f</figure>plain text"}
	if got := item.Summary(); got != "plain text" {
		t.Fatalf("unexpected summary %q", got)
	}
}

func TestSummaryMultilineFigure(t *testing.T) {
	item := Item{
		Type:        TypeBlogPost,
		Description: "<figure>\n<img src=\"a.png\"/>\n</figure><p><em>March 1, 2024</em></p><p>First real paragraph.</p>",
	}
	if got := item.Summary(); got != "<p>First real paragraph.</p>" {
		t.Fatalf("unexpected summary %q", got)
	}
}

func TestSummaryKeepsEmphasisInsideText(t *testing.T) {
	item := Item{
		Type:        TypeBlogPost,
		Description: "<p>Read the <em>full</em> notes.</p><p>Later.</p>",
	}
	if got := item.Summary(); got != "<p>Read the <em>full</em> notes.</p>" {
		t.Fatalf("unexpected summary %q", got)
	}
}
