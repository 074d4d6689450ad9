package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/aliskhannn/screenshot/internal/capture"
	"github.com/aliskhannn/screenshot/internal/model"
)

const closeTimeout = 500 * time.Millisecond

// lifecycle event names reported by Chrome for each wait condition.
var lifecycleNames = map[model.WaitCondition]string{
	model.WaitDOMContentLoaded: "DOMContentLoaded",
	model.WaitLoad:             "load",
	model.WaitNetworkIdle0:     "networkIdle",
	model.WaitNetworkIdle2:     "networkAlmostIdle",
}

// Session is a single Chrome tab owned by one capture.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	mu     sync.Mutex
	seen   map[string]map[string]bool // loader ID -> lifecycle events
	notify chan struct{}

	closeOnce sync.Once
	closeErr  error
}

func (s *Session) onEvent(ev interface{}) {
	e, ok := ev.(*page.EventLifecycleEvent)
	if !ok {
		return
	}

	s.mu.Lock()
	loader := string(e.LoaderID)
	if e.Name == "init" || s.seen[loader] == nil {
		s.seen[loader] = make(map[string]bool)
	}
	s.seen[loader][e.Name] = true
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Session) reached(loader string, names []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return satisfied(s.seen[loader], names)
}

func satisfied(seen map[string]bool, names []string) bool {
	for _, n := range names {
		if !seen[n] {
			return false
		}
	}

	return true
}

func eventNames(wait []model.WaitCondition) []string {
	names := make([]string, 0, len(wait))
	for _, w := range wait {
		if n, ok := lifecycleNames[w]; ok {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		names = append(names, lifecycleNames[model.WaitLoad])
	}

	return names
}

// SetScriptingEnabled toggles JavaScript execution for the page.
func (s *Session) SetScriptingEnabled(ctx context.Context, enabled bool) error {
	return s.run(ctx, emulation.SetScriptExecutionDisabled(!enabled))
}

// Navigate loads url and blocks until every wait condition has fired
// for the new document, the timeout elapses or ctx is done.
func (s *Session) Navigate(ctx context.Context, url string, wait []model.WaitCondition, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var loader string
	err := chromedp.Run(tctx,
		page.SetLifecycleEventsEnabled(true),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, loaderID, errText, err := page.Navigate(url).Do(ctx)
			if err != nil {
				return err
			}
			if errText != "" {
				return fmt.Errorf("page load error %s", errText)
			}
			loader = string(loaderID)
			return nil
		}),
	)
	if err != nil {
		return err
	}

	names := eventNames(wait)
	for !s.reached(loader, names) {
		select {
		case <-s.notify:
		case <-tctx.Done():
			return tctx.Err()
		}
	}

	return nil
}

// StopLoading aborts any pending network activity of the page.
func (s *Session) StopLoading(ctx context.Context) error {
	return s.run(ctx, page.StopLoading())
}

// InjectStyle appends a style element with css to the document head.
func (s *Session) InjectStyle(ctx context.Context, css string) error {
	return s.run(ctx, chromedp.Evaluate(injectStyleScript(css), nil))
}

// RequestFontLoad asks the page to load fontSpec and waits for the promise.
func (s *Session) RequestFontLoad(ctx context.Context, fontSpec string) error {
	return s.run(ctx, chromedp.Evaluate(fontLoadScript(fontSpec), nil,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		},
	))
}

// CaptureRegion takes a screenshot clipped to region in CSS pixels.
func (s *Session) CaptureRegion(ctx context.Context, region capture.Region, format model.ImageFormat, quality int) ([]byte, error) {
	params := page.CaptureScreenshot().
		WithFormat(page.CaptureScreenshotFormat(format)).
		WithClip(&page.Viewport{
			X:      float64(region.X),
			Y:      float64(region.Y),
			Width:  float64(region.Width),
			Height: float64(region.Height),
			Scale:  1,
		})
	if format == model.FormatJPEG && quality > 0 {
		params = params.WithQuality(int64(quality))
	}

	var buf []byte
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = params.Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}

	return buf, nil
}

// Close shuts the tab and the browser process down. It is safe to call twice.
// A browser that does not close within closeTimeout is killed.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		done := make(chan error, 1)
		go func() {
			done <- chromedp.Cancel(s.ctx)
		}()

		select {
		case s.closeErr = <-done:
		case <-time.After(closeTimeout):
			s.closeErr = fmt.Errorf("browser did not close within %v", closeTimeout)
		}

		s.cancel()
		s.allocCancel()
	})

	return s.closeErr
}

// run executes actions on the tab, giving up when ctx is done.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	rctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(rctx, actions...)
}

func injectStyleScript(css string) string {
	quoted, _ := json.Marshal(css)

	return fmt.Sprintf(`(() => {
  const style = document.createElement("style");
  style.textContent = %s;
  (document.head || document.documentElement).appendChild(style);
})()`, quoted)
}

func fontLoadScript(spec string) string {
	quoted, _ := json.Marshal(spec)

	return fmt.Sprintf(`document.fonts.load(%s).then(() => true)`, quoted)
}

// parseFlag splits "name=value" command line flags; bare names become true.
func parseFlag(f string) (string, interface{}) {
	f = strings.TrimLeft(f, "-")
	name, value, ok := strings.Cut(f, "=")
	if !ok {
		return name, true
	}

	return name, value
}
