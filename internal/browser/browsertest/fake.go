// Package browsertest provides a scripted in-memory browser.Driver for
// controller tests, in the spirit of net/http/httptest.
package browsertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonathan/journal-agent/internal/browser"
)

// TopFrame is the scope key for the top-level document.
const TopFrame = -1

// Fake is a scripted browser.Driver. Presence, page HTML, and select
// options are keyed by locator candidate (and frame scope for presence);
// hooks let tests mutate the scripted page in response to actions.
type Fake struct {
	mu sync.Mutex

	// URL is the current location. Navigate overwrites it.
	URL string
	// HTML is the top-level page HTML; FrameHTML overrides it per frame.
	HTML      string
	FrameHTML map[int]string
	// Frames is the number of nested document contexts on the page.
	Frames int

	// Present marks which candidates exist, keyed by Key. Candidates not
	// in the map are absent.
	Present map[string]bool
	// Options holds select option values keyed by candidate string.
	Options map[string][]string

	// Errs injects an error for the named operation ("navigate", "click",
	// "type", "probe", ...).
	Errs map[string]error

	// OnNavigate and OnClick let a test flip page state after an action.
	OnNavigate func(url string)
	OnClick    func(candidate string)

	// Recorded activity.
	Navigations  []string
	Clicked      []string
	Typed        map[string][]string
	Cleared      []string
	Selected     map[string]string
	EnterPressed []string
	Closed       bool

	frame int // current scope, TopFrame when at top level
}

var _ browser.Driver = (*Fake)(nil)

// New returns a Fake scoped to the top-level document. Always construct
// through New: the zero value's frame scope is not meaningful.
func New() *Fake {
	return &Fake{frame: TopFrame}
}

// Key builds the presence-map key for a candidate in a frame scope. Use
// TopFrame for the top-level document.
func Key(frame int, c browser.Candidate) string {
	return fmt.Sprintf("%d|%s", frame, c)
}

// SetPresent marks a candidate present in the given frame scope.
func (f *Fake) SetPresent(frame int, c browser.Candidate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Present == nil {
		f.Present = make(map[string]bool)
	}
	f.Present[Key(frame, c)] = true
}

// SetAbsent removes a candidate from the given frame scope.
func (f *Fake) SetAbsent(frame int, c browser.Candidate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Present, Key(frame, c))
}

// SetHTML replaces the top-level page HTML.
func (f *Fake) SetHTML(html string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.HTML = html
}

func (f *Fake) err(op string) error {
	if f.Errs == nil {
		return nil
	}
	return f.Errs[op]
}

func (f *Fake) Navigate(_ context.Context, url string) error {
	f.mu.Lock()
	f.Navigations = append(f.Navigations, url)
	f.URL = url
	f.frame = TopFrame
	hook := f.OnNavigate
	err := f.err("navigate")
	f.mu.Unlock()

	if err != nil {
		return err
	}
	if hook != nil {
		hook(url)
	}
	return nil
}

func (f *Fake) Location(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.URL, f.err("location")
}

func (f *Fake) PageHTML(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("pagehtml"); err != nil {
		return "", err
	}
	if f.frame != TopFrame {
		return f.FrameHTML[f.frame], nil
	}
	return f.HTML, nil
}

func (f *Fake) Probe(_ context.Context, c browser.Candidate) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("probe"); err != nil {
		return false, err
	}
	return f.Present[Key(f.frame, c)], nil
}

func (f *Fake) Click(_ context.Context, el browser.Element) error {
	f.mu.Lock()
	f.Clicked = append(f.Clicked, el.Candidate.String())
	hook := f.OnClick
	err := f.err("click")
	f.mu.Unlock()

	if err != nil {
		return err
	}
	if hook != nil {
		hook(el.Candidate.String())
	}
	return nil
}

func (f *Fake) Clear(_ context.Context, el browser.Element) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Cleared = append(f.Cleared, el.Candidate.String())
	return f.err("clear")
}

func (f *Fake) Type(_ context.Context, el browser.Element, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Typed == nil {
		f.Typed = make(map[string][]string)
	}
	key := el.Candidate.String()
	f.Typed[key] = append(f.Typed[key], text)
	return f.err("type")
}

func (f *Fake) SelectValue(_ context.Context, el browser.Element, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Selected == nil {
		f.Selected = make(map[string]string)
	}
	f.Selected[el.Candidate.String()] = value
	return f.err("select")
}

func (f *Fake) OptionValues(_ context.Context, el browser.Element) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("options"); err != nil {
		return nil, err
	}
	return f.Options[el.Candidate.String()], nil
}

func (f *Fake) PressEnter(_ context.Context, el browser.Element) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.EnterPressed = append(f.EnterPressed, el.Candidate.String())
	return f.err("enter")
}

func (f *Fake) FrameCount(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Frames, f.err("framecount")
}

func (f *Fake) EnterFrame(_ context.Context, index int) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("enterframe"); err != nil {
		return nil, err
	}
	if f.frame != TopFrame {
		return nil, fmt.Errorf("already inside a nested document context")
	}
	if index < 0 || index >= f.Frames {
		return nil, fmt.Errorf("frame index %d out of range (%d frames)", index, f.Frames)
	}
	f.frame = index

	var once sync.Once
	release := func() {
		once.Do(func() {
			f.mu.Lock()
			f.frame = TopFrame
			f.mu.Unlock()
		})
	}
	return release, nil
}

// InFrame reports the current frame scope, TopFrame when at top level.
func (f *Fake) InFrame() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frame
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}
