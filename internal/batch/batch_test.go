package batch

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/jonathan/journal-agent/internal/browser/browsertest"
	"github.com/jonathan/journal-agent/internal/classify"
	"github.com/jonathan/journal-agent/internal/entry"
	"github.com/jonathan/journal-agent/internal/navigate"
	"github.com/jonathan/journal-agent/internal/session"
)

type stubAuth struct {
	err   error
	calls int
}

func (s *stubAuth) Login(context.Context, session.Credentials) error {
	s.calls++
	return s.err
}

type stubNav struct {
	err   error
	calls int
	// failAfter makes err apply only from call failAfter+1 on; zero means
	// err applies to every call.
	failAfter int
}

func (s *stubNav) ReachEntryForm(context.Context) error {
	s.calls++
	if s.err != nil && (s.failAfter == 0 || s.calls > s.failAfter) {
		return s.err
	}
	return nil
}

type stubSub struct {
	outcomes []classify.Outcome
	specs    []entry.Spec
}

func (s *stubSub) Submit(_ context.Context, spec entry.Spec) classify.Outcome {
	s.specs = append(s.specs, spec)
	if len(s.outcomes) >= len(s.specs) {
		return s.outcomes[len(s.specs)-1]
	}
	return classify.Outcome{Kind: classify.Success}
}

type memRecorder struct {
	startErr error
	dayErr   error
	started  []RunInfo
	days     []DayResult
	finished []*Result
}

func (m *memRecorder) StartRun(_ context.Context, info RunInfo) error {
	m.started = append(m.started, info)
	return m.startErr
}

func (m *memRecorder) RecordDay(_ context.Context, day DayResult) error {
	m.days = append(m.days, day)
	return m.dayErr
}

func (m *memRecorder) FinishRun(_ context.Context, res *Result) error {
	m.finished = append(m.finished, res)
	return nil
}

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC)
}

func newTestDriver(auth *stubAuth, nav *stubNav, sub *stubSub, opts Options) (*Driver, *browsertest.Fake) {
	fake := browsertest.New()
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	d := New(fake, opts)
	d.auth = auth
	d.nav = nav
	d.sub = sub
	return d, fake
}

func TestRunSubmitsEveryDayInRange(t *testing.T) {
	auth := &stubAuth{}
	nav := &stubNav{}
	sub := &stubSub{}
	d, fake := newTestDriver(auth, nav, sub, Options{
		Credentials: session.Credentials{URL: "https://example.edu/punch/Menu.jsp", Username: "u"},
		StartDate:   day(1),
		EndDate:     day(3),
		Content:     "daily note",
		CategoryID:  "1",
	})

	res, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Total != 3 || res.Succeeded != 3 || res.Failed != 0 {
		t.Fatalf("result = %d/%d/%d, want 3/3/0", res.Total, res.Succeeded, res.Failed)
	}
	if auth.calls != 1 {
		t.Errorf("login called %d times", auth.calls)
	}
	// One initial reach plus one hop back before each remaining day.
	if nav.calls != 3 {
		t.Errorf("navigation called %d times, want 3", nav.calls)
	}
	if len(sub.specs) != 3 {
		t.Fatalf("submitted %d days, want 3", len(sub.specs))
	}
	for i, spec := range sub.specs {
		if !spec.Date.Equal(day(i + 1)) {
			t.Errorf("day %d submitted for %s", i, spec.Date.Format("2006-01-02"))
		}
		if spec.Content != "daily note" {
			t.Errorf("day %d content = %q", i, spec.Content)
		}
	}
	if d.State() != Completed {
		t.Errorf("state = %s, want completed", d.State())
	}
	if !fake.Closed {
		t.Error("browser left open")
	}
}

func TestRunStopsOnAuthFailure(t *testing.T) {
	auth := &stubAuth{err: session.ErrAuthFailed}
	nav := &stubNav{}
	sub := &stubSub{}
	d, fake := newTestDriver(auth, nav, sub, Options{
		StartDate: day(1), EndDate: day(7),
	})

	res, err := d.Run(context.Background())
	if !errors.Is(err, session.ErrAuthFailed) {
		t.Fatalf("err = %v, want auth failure", err)
	}
	if res.Total != 0 {
		t.Errorf("total = %d before a session existed, want 0", res.Total)
	}
	if nav.calls != 0 || len(sub.specs) != 0 {
		t.Errorf("work attempted after failed login: nav=%d submits=%d", nav.calls, len(sub.specs))
	}
	if d.State() != Stopped {
		t.Errorf("state = %s, want stopped", d.State())
	}
	if !fake.Closed {
		t.Error("browser left open")
	}
}

func TestRunHonorsStopRequestBetweenDays(t *testing.T) {
	auth := &stubAuth{}
	nav := &stubNav{}
	sub := &stubSub{}
	processed := 0
	d, fake := newTestDriver(auth, nav, sub, Options{
		StartDate: day(1), EndDate: day(7),
		CancelRequested: func() bool { return processed >= 3 },
		Progress: func(p, _, _, _ int) {
			processed = p
		},
	})

	res, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Total != 7 {
		t.Errorf("total = %d, want the full range 7", res.Total)
	}
	if len(res.Days) != 3 {
		t.Errorf("processed %d days before stop, want 3", len(res.Days))
	}
	if d.State() != Stopped {
		t.Errorf("state = %s, want stopped", d.State())
	}
	if !fake.Closed {
		t.Error("browser left open")
	}
}

func TestRunProgressCountersStayConsistent(t *testing.T) {
	auth := &stubAuth{}
	nav := &stubNav{}
	sub := &stubSub{outcomes: []classify.Outcome{
		{Kind: classify.Success},
		{Kind: classify.ExplicitFailure, Reason: "日期重複"},
		{Kind: classify.Ambiguous},
		{Kind: classify.Success},
	}}
	events := 0
	d, _ := newTestDriver(auth, nav, sub, Options{
		StartDate: day(1), EndDate: day(4),
		Progress: func(p, total, ok, bad int) {
			events++
			if ok+bad != p {
				t.Errorf("event %d: succeeded %d + failed %d != processed %d", events, ok, bad, p)
			}
			if total != 4 {
				t.Errorf("event %d: total = %d", events, total)
			}
		},
	})

	res, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if events != 4 {
		t.Errorf("progress fired %d times, want 4", events)
	}
	// The ambiguous day counts as a success.
	if res.Succeeded != 3 || res.Failed != 1 {
		t.Errorf("result = %d succeeded %d failed, want 3/1", res.Succeeded, res.Failed)
	}
}

func TestRunContinuesPastMidRunNavigationFailure(t *testing.T) {
	auth := &stubAuth{}
	// First reach succeeds, every hop back to the form afterwards fails.
	nav := &stubNav{err: navigate.ErrUnreachable, failAfter: 1}
	sub := &stubSub{}
	d, fake := newTestDriver(auth, nav, sub, Options{
		StartDate: day(1), EndDate: day(3),
	})

	res, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Days) != 3 || res.Succeeded != 3 {
		t.Errorf("result = %d days %d succeeded, want 3/3 despite failed hops", len(res.Days), res.Succeeded)
	}
	// Initial reach plus one failed hop before each remaining day.
	if nav.calls != 3 {
		t.Errorf("navigation called %d times, want 3", nav.calls)
	}
	if d.State() != Completed {
		t.Errorf("state = %s, want completed", d.State())
	}
	if !fake.Closed {
		t.Error("browser left open")
	}
}

func TestRunContinuesPastRecorderFaults(t *testing.T) {
	auth := &stubAuth{}
	nav := &stubNav{}
	sub := &stubSub{}
	rec := &memRecorder{startErr: errors.New("db down"), dayErr: errors.New("db down")}
	d, _ := newTestDriver(auth, nav, sub, Options{
		StartDate: day(1), EndDate: day(2),
		Recorder: rec,
	})

	res, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Succeeded != 2 {
		t.Errorf("succeeded = %d despite recorder faults, want 2", res.Succeeded)
	}
	if len(rec.started) != 1 || len(rec.days) != 2 || len(rec.finished) != 1 {
		t.Errorf("recorder saw start=%d days=%d finish=%d", len(rec.started), len(rec.days), len(rec.finished))
	}
}

func TestRunRejectsEmptyRange(t *testing.T) {
	auth := &stubAuth{}
	d, fake := newTestDriver(auth, &stubNav{}, &stubSub{}, Options{
		StartDate: day(7), EndDate: day(1),
	})

	res, err := d.Run(context.Background())
	if err == nil {
		t.Fatal("reversed range accepted")
	}
	if res.Total != 0 {
		t.Errorf("total = %d", res.Total)
	}
	if auth.calls != 0 {
		t.Error("login attempted for an empty range")
	}
	if !fake.Closed {
		t.Error("browser left open")
	}
}

func TestRunStopsWhenContextCancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	auth := &stubAuth{}
	sub := &stubSub{}
	d, _ := newTestDriver(auth, &stubNav{}, sub, Options{
		StartDate: day(1), EndDate: day(5),
		Delay: 50 * time.Millisecond,
		Progress: func(p, _, _, _ int) {
			if p == 2 {
				cancel()
			}
		},
	})

	res, err := d.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Days) != 2 {
		t.Errorf("processed %d days after cancellation, want 2", len(res.Days))
	}
	if d.State() != Stopped {
		t.Errorf("state = %s, want stopped", d.State())
	}
}
