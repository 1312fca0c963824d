// Package navigate places the browser on the journal entry form. The
// form's location varies between deployments, so four strategies are
// tried in order: an in-page link, the same link inside nested document
// contexts, direct URL construction, and finally a bounded window for
// manual intervention.
package navigate

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/journal-agent/internal/browser"
	"github.com/jonathan/journal-agent/internal/classify"
)

// ErrUnreachable reports that every strategy failed. This is batch-fatal
// on the first attempt; later attempts downgrade it to a warning.
var ErrUnreachable = errors.New("journal entry form unreachable")

// entryURLMarker is the path fragment of the entry form page.
const entryURLMarker = "PunchList_A"

// linkCandidates locate the journal link by text, then by href.
var linkCandidates = []browser.Candidate{
	{Strategy: browser.ByXPath, Selector: `//a[contains(text(), '學習日誌')]`},
	{Strategy: browser.ByXPath, Selector: `//a[contains(text(), '日誌')]`},
	{Strategy: browser.ByXPath, Selector: `//a[contains(@href, 'PunchList_A')]`},
}

// entryPathSuffixes are appended to the session root when constructing
// direct URLs.
var entryPathSuffixes = []string{
	"/punch/PunchList_A.jsp",
	"/PunchList_A.jsp",
	"/punch/journal.jsp",
	"/journal.jsp",
}

// Navigator reaches the entry form from wherever the session currently is.
type Navigator struct {
	Driver   browser.Driver
	Resolver *browser.Resolver
	Logger   *log.Logger

	// BaseURL is the configured endpoint, used to derive direct URLs when
	// the current location yields no usable root.
	BaseURL string

	// LinkTimeout bounds the wait for each link candidate.
	LinkTimeout time.Duration
	// Settle is the pause after page-changing actions.
	Settle time.Duration
	// ManualWindow is the last-resort pause that lets an operator click
	// the link themselves before one final re-check.
	ManualWindow time.Duration
}

func (n *Navigator) linkTimeout() time.Duration {
	if n.LinkTimeout > 0 {
		return n.LinkTimeout
	}
	return 3 * time.Second
}

func (n *Navigator) settleDelay() time.Duration {
	if n.Settle > 0 {
		return n.Settle
	}
	return 2 * time.Second
}

func (n *Navigator) manualWindow() time.Duration {
	if n.ManualWindow > 0 {
		return n.ManualWindow
	}
	return 10 * time.Second
}

// ReachEntryForm tries each strategy in order. It returns ErrUnreachable
// only after all four have failed; the frame scope is back at top level
// on every return path.
func (n *Navigator) ReachEntryForm(ctx context.Context) error {
	if ok, err := n.clickLink(ctx); err != nil {
		return err
	} else if ok {
		return nil
	}

	if ok, err := n.searchFrames(ctx); err != nil {
		return err
	} else if ok {
		return nil
	}

	if ok, err := n.visitDirect(ctx); err != nil {
		return err
	} else if ok {
		return nil
	}

	if ok, err := n.manualAssist(ctx); err != nil {
		return err
	} else if ok {
		return nil
	}

	return ErrUnreachable
}

// onEntryForm checks the current location and page for form markers.
func (n *Navigator) onEntryForm(ctx context.Context) (bool, error) {
	loc, err := n.Driver.Location(ctx)
	if err != nil {
		return false, err
	}
	if strings.Contains(loc, entryURLMarker) {
		return true, nil
	}

	// Raw HTML on purpose: two of the markers are attribute values.
	html, err := n.Driver.PageHTML(ctx)
	if err != nil {
		return false, err
	}
	return classify.EntryForm().Matches(html), nil
}

// clickLink is strategy 1: resolve and click a journal link at top level.
func (n *Navigator) clickLink(ctx context.Context) (bool, error) {
	for _, cand := range linkCandidates {
		el, err := n.Resolver.Resolve(ctx, "journal link", []browser.Candidate{cand}, n.linkTimeout())
		if errors.Is(err, browser.ErrNotFound) {
			continue
		}
		if err != nil {
			return false, err
		}

		if err := n.Driver.Click(ctx, el); err != nil {
			n.logf("[navigate] clicking %s failed: %v", cand, err)
			continue
		}
		if err := browser.Wait(ctx, n.settleDelay()); err != nil {
			return false, err
		}

		ok, err := n.onEntryForm(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			n.logf("[navigate] reached entry form via link %s", cand)
			return true, nil
		}
	}
	return false, nil
}

// searchFrames is strategy 2: repeat the link search one level deep inside
// each nested document context.
func (n *Navigator) searchFrames(ctx context.Context) (bool, error) {
	count, err := n.Driver.FrameCount(ctx)
	if err != nil {
		return false, err
	}
	if count == 0 {
		return false, nil
	}
	n.logf("[navigate] searching %d nested document context(s)", count)

	for i := 0; i < count; i++ {
		clicked := false
		err := browser.WithFrame(ctx, n.Driver, i, func() error {
			for _, cand := range linkCandidates {
				found, err := n.Driver.Probe(ctx, cand)
				if err != nil {
					return err
				}
				if !found {
					continue
				}
				if err := n.Driver.Click(ctx, browser.Element{Candidate: cand}); err != nil {
					n.logf("[navigate] clicking %s in frame %d failed: %v", cand, i, err)
					continue
				}
				clicked = true
				return nil
			}
			return nil
		})
		if err != nil {
			// A broken frame should not end the search; try the next one.
			n.logf("[navigate] frame %d: %v", i, err)
			continue
		}
		if !clicked {
			continue
		}

		if err := browser.Wait(ctx, n.settleDelay()); err != nil {
			return false, err
		}
		ok, err := n.onEntryForm(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			n.logf("[navigate] reached entry form via frame %d", i)
			return true, nil
		}
	}
	return false, nil
}

// visitDirect is strategy 3: build candidate URLs from the session root
// and visit each until one shows the form markers.
func (n *Navigator) visitDirect(ctx context.Context) (bool, error) {
	root, err := n.siteRoot(ctx)
	if err != nil {
		return false, err
	}

	for _, suffix := range entryPathSuffixes {
		target := root + suffix
		n.logf("[navigate] trying direct URL %s", target)
		if err := n.Driver.Navigate(ctx, target); err != nil {
			n.logf("[navigate] %s: %v", target, err)
			continue
		}
		if err := browser.Wait(ctx, n.settleDelay()); err != nil {
			return false, err
		}

		ok, err := n.onEntryForm(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			n.logf("[navigate] reached entry form at %s", target)
			return true, nil
		}
	}
	return false, nil
}

// siteRoot derives the URL prefix the entry paths attach to, preferring
// the browser's current location over the configured endpoint.
func (n *Navigator) siteRoot(ctx context.Context) (string, error) {
	loc, err := n.Driver.Location(ctx)
	if err != nil {
		return "", err
	}
	if root, ok := rootBefore(loc, "/punch/"); ok {
		return root, nil
	}
	if root, ok := rootBefore(n.BaseURL, "/punch/"); ok {
		return root, nil
	}
	return strings.TrimRight(n.BaseURL, "/"), nil
}

func rootBefore(url, marker string) (string, bool) {
	if idx := strings.Index(url, marker); idx > 0 {
		return url[:idx], true
	}
	return "", false
}

// manualAssist is strategy 4: log what the page offers, pause for the
// operator, then re-check once.
func (n *Navigator) manualAssist(ctx context.Context) (bool, error) {
	n.logf("[navigate] automatic navigation failed; waiting %s for manual help", n.manualWindow())

	if html, err := n.Driver.PageHTML(ctx); err == nil {
		if links := anchorTexts(html, 10); len(links) > 0 {
			n.logf("[navigate] links on this page: %v", links)
		}
	}

	if err := browser.Wait(ctx, n.manualWindow()); err != nil {
		return false, err
	}
	return n.onEntryForm(ctx)
}

// anchorTexts lists up to limit non-empty anchor texts on the page.
func anchorTexts(html string, limit int) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var texts []string
	doc.Find("a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			texts = append(texts, text)
		}
		return len(texts) < limit
	})
	return texts
}

func (n *Navigator) logf(format string, args ...any) {
	if n.Logger != nil {
		n.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
