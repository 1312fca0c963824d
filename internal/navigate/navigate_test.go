package navigate

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/jonathan/journal-agent/internal/browser"
	"github.com/jonathan/journal-agent/internal/browser/browsertest"
)

const formHTML = `<html><body><form>` +
	`<input id="date" placeholder="民國yyymmdd">` +
	`<input name="work"></form></body></html>`

func newNavigator(fake *browsertest.Fake) *Navigator {
	quiet := log.New(io.Discard, "", 0)
	return &Navigator{
		Driver:       fake,
		Resolver:     &browser.Resolver{Driver: fake, Logger: quiet, Interval: time.Millisecond},
		Logger:       quiet,
		BaseURL:      "https://example.edu/punch/Menu.jsp",
		LinkTimeout:  5 * time.Millisecond,
		Settle:       time.Millisecond,
		ManualWindow: 5 * time.Millisecond,
	}
}

func TestReachViaLink(t *testing.T) {
	fake := browsertest.New()
	fake.URL = "https://example.edu/punch/Menu.jsp"
	fake.SetPresent(browsertest.TopFrame, linkCandidates[0])
	fake.OnClick = func(string) {
		fake.URL = "https://example.edu/punch/PunchList_A.jsp"
	}

	n := newNavigator(fake)
	if err := n.ReachEntryForm(context.Background()); err != nil {
		t.Fatalf("ReachEntryForm returned error: %v", err)
	}
	if len(fake.Clicked) != 1 {
		t.Errorf("expected one click, got %v", fake.Clicked)
	}
	if len(fake.Navigations) != 0 {
		t.Errorf("direct navigation should not run when the link works: %v", fake.Navigations)
	}
}

func TestReachViaSecondLinkCandidate(t *testing.T) {
	fake := browsertest.New()
	fake.SetPresent(browsertest.TopFrame, linkCandidates[2])
	fake.OnClick = func(string) {
		fake.SetHTML(formHTML)
	}

	n := newNavigator(fake)
	if err := n.ReachEntryForm(context.Background()); err != nil {
		t.Fatalf("ReachEntryForm returned error: %v", err)
	}
	if got := fake.Clicked[0]; got != linkCandidates[2].String() {
		t.Errorf("clicked %s, expected %s", got, linkCandidates[2])
	}
}

func TestReachViaFrame(t *testing.T) {
	fake := browsertest.New()
	fake.Frames = 2
	// Link exists only inside the second frame.
	fake.SetPresent(1, linkCandidates[0])
	fake.OnClick = func(string) {
		fake.URL = "https://example.edu/punch/PunchList_A.jsp"
	}

	n := newNavigator(fake)
	if err := n.ReachEntryForm(context.Background()); err != nil {
		t.Fatalf("ReachEntryForm returned error: %v", err)
	}
	if fake.InFrame() != browsertest.TopFrame {
		t.Errorf("frame scope not restored, still in %d", fake.InFrame())
	}
}

func TestReachViaDirectURL(t *testing.T) {
	fake := browsertest.New()
	fake.URL = "https://example.edu/punch/Menu.jsp"
	fake.OnNavigate = func(url string) {
		if strings.HasSuffix(url, "/punch/PunchList_A.jsp") {
			fake.HTML = formHTML
		} else {
			fake.HTML = "<body>404</body>"
		}
	}

	n := newNavigator(fake)
	if err := n.ReachEntryForm(context.Background()); err != nil {
		t.Fatalf("ReachEntryForm returned error: %v", err)
	}
	want := "https://example.edu/punch/PunchList_A.jsp"
	if len(fake.Navigations) == 0 || fake.Navigations[0] != want {
		t.Errorf("navigations = %v, expected first to be %s", fake.Navigations, want)
	}
}

func TestReachViaManualWindow(t *testing.T) {
	fake := browsertest.New()
	fake.URL = "https://example.edu/other"
	fake.OnNavigate = func(string) {
		// Direct URLs all land somewhere useless, but URL keeps its
		// navigated value, so reset it to something without the marker.
		fake.URL = "https://example.edu/error"
	}

	n := newNavigator(fake)
	// Simulate the operator clicking through during the manual window.
	go func() {
		time.Sleep(2 * time.Millisecond)
		fake.SetHTML(formHTML)
	}()

	if err := n.ReachEntryForm(context.Background()); err != nil {
		t.Fatalf("ReachEntryForm returned error: %v", err)
	}
}

func TestUnreachable(t *testing.T) {
	fake := browsertest.New()
	fake.URL = "https://example.edu/other"
	fake.OnNavigate = func(string) {
		fake.URL = "https://example.edu/error"
	}

	n := newNavigator(fake)
	err := n.ReachEntryForm(context.Background())
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
	// All four direct URL suffixes should have been attempted.
	if len(fake.Navigations) != len(entryPathSuffixes) {
		t.Errorf("tried %d direct URLs, expected %d: %v", len(fake.Navigations), len(entryPathSuffixes), fake.Navigations)
	}
}

func TestAnchorTexts(t *testing.T) {
	html := `<body><a href="#">學習日誌</a><a href="#">  </a><a href="#">登出</a></body>`
	got := anchorTexts(html, 10)
	if len(got) != 2 || got[0] != "學習日誌" || got[1] != "登出" {
		t.Errorf("anchorTexts = %v", got)
	}
}
