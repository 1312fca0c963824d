// Package classify turns rendered page text into a tagged outcome by
// scanning for marker strings. The journal system exposes no structured
// status anywhere, so keyword membership on the page is the only oracle;
// keeping it behind one type makes the heuristic testable with synthetic
// text and replaceable should the site ever grow a real response.
package classify

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Kind tags the result of a page scan.
type Kind int

const (
	// Success: a positive marker was found.
	Success Kind = iota
	// ExplicitFailure: a negative marker was found and no positive one.
	ExplicitFailure
	// Ambiguous: neither marker set matched. Some page variants confirm
	// silently, so callers typically treat this as a non-fatal success.
	Ambiguous
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case ExplicitFailure:
		return "failure"
	case Ambiguous:
		return "ambiguous"
	}
	return "unknown"
}

// Outcome is the classification of one page. Reason carries the matched
// negative marker for explicit failures.
type Outcome struct {
	Kind   Kind
	Reason string
}

// Classifier holds ordered marker sets. Positive markers are checked
// first; a page matching both sets classifies as Success.
type Classifier struct {
	Positive []string
	Negative []string
}

// Classify scans text for positive then negative markers.
func (c Classifier) Classify(text string) Outcome {
	for _, m := range c.Positive {
		if m != "" && strings.Contains(text, m) {
			return Outcome{Kind: Success}
		}
	}
	for _, m := range c.Negative {
		if m != "" && strings.Contains(text, m) {
			return Outcome{Kind: ExplicitFailure, Reason: m}
		}
	}
	return Outcome{Kind: Ambiguous}
}

// Matches reports whether any positive marker appears in text.
func (c Classifier) Matches(text string) bool {
	return c.Classify(text).Kind == Success
}

// VisibleText extracts the human-visible text of an HTML document,
// dropping script, style, and chrome elements that would otherwise
// produce false marker hits.
func VisibleText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		// Malformed markup still gets scanned; raw text beats nothing.
		return html
	}
	doc.Find("script, style, noscript, head").Remove()
	return doc.Text()
}

// Submission returns the marker sets for the post-submission page.
func Submission() Classifier {
	return Classifier{
		Positive: []string{"成功", "完成", "新增完成", "儲存成功", "success"},
		Negative: []string{"錯誤", "失敗", "重複", "已存在", "error"},
	}
}

// Login returns the marker sets that identify an authenticated page:
// a logout affordance, the post-login menu, or the account echoed back.
func Login(account string) Classifier {
	return Classifier{
		Positive: []string{"登出", "logout", "Menu", account},
	}
}

// EntryForm returns the markers that identify the journal entry form.
// These are matched against raw page HTML, not visible text, because two
// of them are field names that only appear in attributes.
func EntryForm() Classifier {
	return Classifier{
		Positive: []string{"學習日誌", "工作內容", `id="date"`, `name="work"`},
	}
}
