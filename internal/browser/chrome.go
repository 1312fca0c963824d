package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// StartError reports that the underlying browser could not be launched,
// e.g. no Chrome/Chromium binary on the host. It aborts startup before any
// work is attempted.
type StartError struct {
	Message string
	Cause   error
}

func (e *StartError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("browser start failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("browser start failed: %s", e.Message)
}

func (e *StartError) Unwrap() error {
	return e.Cause
}

const (
	// actionTimeout bounds every individual browser action.
	actionTimeout = 10 * time.Second
	// probeTimeout bounds a single element presence check.
	probeTimeout = 2 * time.Second
)

// StartOptions configures the Chrome session.
type StartOptions struct {
	// Headless hides the browser window. The default is a visible window
	// so the operator can watch (and if needed assist) the run.
	Headless bool
}

// Chrome drives a real Chrome/Chromium instance through chromedp.
type Chrome struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	frame  *cdp.Node // non-nil while scoped into an iframe's document
	frames []*cdp.Node
}

var _ Driver = (*Chrome)(nil)

// Start launches a browser session. A missing or broken Chrome install
// surfaces here as a StartError rather than mid-run.
func Start(ctx context.Context, opts StartOptions) (*Chrome, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.WindowSize(1280, 720),
		)...,
	)

	browserCtx, cancel := chromedp.NewContext(allocCtx)

	// Launch eagerly so environment faults abort startup.
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		return nil, &StartError{Message: "could not launch Chrome", Cause: err}
	}

	return &Chrome{
		ctx:         browserCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
	}, nil
}

// Close shuts the browser down. Safe to call on every exit path.
func (d *Chrome) Close() error {
	if d.cancel != nil {
		d.cancel()
	}
	if d.allocCancel != nil {
		d.allocCancel()
	}
	return nil
}

// run executes chromedp actions with a bounded deadline. Actions must run
// on the browser's own context chain; the caller ctx only gates
// cancellation between actions.
func (d *Chrome) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tctx, cancel := context.WithTimeout(d.ctx, timeout)
	defer cancel()
	return chromedp.Run(tctx, actions...)
}

// query translates a Candidate into a chromedp selector and query options,
// scoped to the active frame where the strategy allows it.
func (d *Chrome) query(c Candidate) (string, []chromedp.QueryOption) {
	var sel string
	var opts []chromedp.QueryOption

	switch c.Strategy {
	case ByID:
		sel = "#" + c.Selector
		opts = append(opts, chromedp.ByQuery)
	case ByName:
		sel = fmt.Sprintf(`[name=%q]`, c.Selector)
		opts = append(opts, chromedp.ByQuery)
	case ByXPath:
		// DOM.performSearch descends into same-target frames on its own.
		sel = c.Selector
		opts = append(opts, chromedp.BySearch)
	default: // ByCSS, ByTag
		sel = c.Selector
		opts = append(opts, chromedp.ByQuery)
	}

	if d.frame != nil && c.Strategy != ByXPath {
		opts = append(opts, chromedp.FromNode(d.frame))
	}
	return sel, opts
}

func (d *Chrome) Navigate(ctx context.Context, url string) error {
	d.frame = nil
	d.frames = nil
	return d.run(ctx, actionTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (d *Chrome) Location(ctx context.Context) (string, error) {
	var loc string
	if err := d.run(ctx, actionTimeout, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

func (d *Chrome) PageHTML(ctx context.Context) (string, error) {
	opts := []chromedp.QueryOption{chromedp.ByQuery}
	if d.frame != nil {
		opts = append(opts, chromedp.FromNode(d.frame))
	}
	var html string
	if err := d.run(ctx, actionTimeout, chromedp.OuterHTML("html", &html, opts...)); err != nil {
		return "", err
	}
	return html, nil
}

func (d *Chrome) Probe(ctx context.Context, c Candidate) (bool, error) {
	sel, opts := d.query(c)
	var nodes []*cdp.Node
	err := d.run(ctx, probeTimeout,
		chromedp.Nodes(sel, &nodes, append(opts, chromedp.AtLeast(0))...),
	)
	if err != nil {
		// A probe deadline means "not there yet", not an engine fault.
		if tctxErr := ctx.Err(); tctxErr != nil {
			return false, tctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return false, nil
		}
		return false, err
	}
	return len(nodes) > 0, nil
}

func (d *Chrome) Click(ctx context.Context, el Element) error {
	sel, opts := d.query(el.Candidate)
	return d.run(ctx, actionTimeout, chromedp.Click(sel, append(opts, chromedp.NodeVisible)...))
}

func (d *Chrome) Clear(ctx context.Context, el Element) error {
	sel, opts := d.query(el.Candidate)
	return d.run(ctx, actionTimeout, chromedp.Clear(sel, opts...))
}

func (d *Chrome) Type(ctx context.Context, el Element, text string) error {
	sel, opts := d.query(el.Candidate)
	return d.run(ctx, actionTimeout, chromedp.SendKeys(sel, text, opts...))
}

func (d *Chrome) SelectValue(ctx context.Context, el Element, value string) error {
	sel, opts := d.query(el.Candidate)
	return d.run(ctx, actionTimeout,
		chromedp.SetValue(sel, value, opts...),
		// Setting the value property does not fire onchange; pages that
		// react to the selection need the event a user-driven pick produces.
		chromedp.QueryAfter(sel, dispatchChange, opts...),
	)
}

// changeEventJS fires on the element itself; bubbling matches what a
// user-driven select dispatches.
const changeEventJS = `function() { this.dispatchEvent(new Event('change', { bubbles: true })); }`

func dispatchChange(ctx context.Context, _ runtime.ExecutionContextID, nodes ...*cdp.Node) error {
	if len(nodes) == 0 {
		return fmt.Errorf("no element to dispatch change on")
	}
	obj, err := dom.ResolveNode().WithNodeID(nodes[0].NodeID).Do(ctx)
	if err != nil {
		return err
	}
	_, exp, err := runtime.CallFunctionOn(changeEventJS).WithObjectID(obj.ObjectID).Do(ctx)
	if err != nil {
		return err
	}
	if exp != nil {
		return exp
	}
	return nil
}

func (d *Chrome) OptionValues(ctx context.Context, el Element) ([]string, error) {
	optionSel := optionSelector(el.Candidate)
	opts := []chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}
	if d.frame != nil {
		opts = append(opts, chromedp.FromNode(d.frame))
	}

	var nodes []*cdp.Node
	if err := d.run(ctx, actionTimeout, chromedp.Nodes(optionSel, &nodes, opts...)); err != nil {
		return nil, err
	}

	values := make([]string, 0, len(nodes))
	for _, n := range nodes {
		values = append(values, n.AttributeValue("value"))
	}
	return values, nil
}

// optionSelector widens a select-element candidate to its option children.
func optionSelector(c Candidate) string {
	switch c.Strategy {
	case ByID:
		return "#" + c.Selector + " option"
	case ByName:
		return fmt.Sprintf(`[name=%q] option`, c.Selector)
	default:
		return c.Selector + " option"
	}
}

func (d *Chrome) PressEnter(ctx context.Context, el Element) error {
	sel, opts := d.query(el.Candidate)
	return d.run(ctx, actionTimeout, chromedp.SendKeys(sel, kb.Enter, opts...))
}

func (d *Chrome) FrameCount(ctx context.Context) (int, error) {
	var nodes []*cdp.Node
	err := d.run(ctx, actionTimeout,
		chromedp.Nodes("iframe", &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)),
	)
	if err != nil {
		return 0, err
	}
	d.frames = nodes
	return len(nodes), nil
}

func (d *Chrome) EnterFrame(ctx context.Context, index int) (func(), error) {
	if d.frame != nil {
		return nil, fmt.Errorf("already inside a nested document context")
	}
	if index < 0 || index >= len(d.frames) {
		// Frame list may be stale after navigation; refresh once.
		if _, err := d.FrameCount(ctx); err != nil {
			return nil, err
		}
		if index < 0 || index >= len(d.frames) {
			return nil, fmt.Errorf("frame index %d out of range (%d frames)", index, len(d.frames))
		}
	}

	node := d.frames[index]
	if node.ContentDocument != nil {
		d.frame = node.ContentDocument
	} else {
		d.frame = node
	}

	var once sync.Once
	release := func() {
		once.Do(func() { d.frame = nil })
	}
	return release, nil
}
