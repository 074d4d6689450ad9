package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/screenshot/internal/model"
)

// WatchdogReserve is kept back from the request timeout so that stopping
// the page and capturing it still finish inside the timeout.
const WatchdogReserve = 1500 * time.Millisecond

const minWatchdog = 100 * time.Millisecond

// fontFaceCSS declares emoji and symbol fallback faces used by the font wait.
const fontFaceCSS = `@font-face {
  font-family: "capture-emoji";
  src: local("Apple Color Emoji"), local("Segoe UI Emoji"), local("Segoe UI Symbol"), local("Noto Color Emoji"), local("Noto Emoji"), local("Android Emoji"), local("EmojiSymbols");
}
body { font-family: inherit, "capture-emoji"; }`

const fontLoadSpec = `16px "capture-emoji"`

// Orchestrator drives one bounded page capture per call.
type Orchestrator struct {
	launcher  Launcher
	inspector inspector
	grace     time.Duration
}

// New creates an Orchestrator. grace is how long to wait after a watchdog
// stop before capturing; it is taken out of the watchdog reserve.
// inspector may be nil.
func New(l Launcher, i inspector, grace time.Duration) *Orchestrator {
	grace = min(max(grace, 0), WatchdogReserve/2)

	return &Orchestrator{launcher: l, inspector: i, grace: grace}
}

// Capture renders req and returns the screenshot or a render failure.
// The session is closed before Capture returns, whatever the outcome.
func (o *Orchestrator) Capture(ctx context.Context, req model.CaptureRequest) model.CaptureResult {
	start := time.Now()

	res, err := o.capture(ctx, req)
	if err != nil {
		zlog.Logger.Err(err).
			Str("url", req.TargetURL).
			Dur("took", time.Since(start)).
			Msg("capture failed")

		return model.Failed(model.RenderFailure(req.Viewport, err))
	}

	zlog.Logger.Info().
		Str("url", req.TargetURL).
		Str("format", string(req.Format)).
		Int("width", req.Viewport.Width).
		Int("height", req.Viewport.Height).
		Float64("scale", req.DeviceScaleFactor).
		Bool("truncated", res.Truncated).
		Dur("took", time.Since(start)).
		Msg("capture finished")

	return res
}

func (o *Orchestrator) capture(ctx context.Context, req model.CaptureRequest) (res model.CaptureResult, err error) {
	timeout := time.Duration(req.TimeoutMs) * time.Millisecond

	// Every step, launch included, shares one deadline.
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	deadline, _ := ctx.Deadline()

	sess, err := o.launch(ctx, req)
	if err != nil {
		return res, fmt.Errorf("launch: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			zlog.Logger.Warn().Err(cerr).Str("url", req.TargetURL).Msg("failed to close session")
		}
	}()

	if !req.ScriptingEnabled {
		err := within(ctx, func() error { return sess.SetScriptingEnabled(ctx, false) })
		if err != nil {
			return res, fmt.Errorf("disable scripting: %w", err)
		}
	}

	watchdog := max(time.Until(deadline)-WatchdogReserve, minWatchdog)
	fontDeadline := time.Now().Add(watchdog)

	settled, err := o.navigate(ctx, sess, req, time.Until(deadline), watchdog)
	if err != nil {
		return res, fmt.Errorf("navigate: %w", err)
	}

	if !settled {
		zlog.Logger.Warn().
			Str("url", req.TargetURL).
			Dur("watchdog", watchdog).
			Msg("navigation did not settle, capturing partial render")

		if err := within(ctx, func() error { return sess.StopLoading(ctx) }); err != nil {
			zlog.Logger.Warn().Err(err).Str("url", req.TargetURL).Msg("stop loading failed")
		}
		if o.grace > 0 {
			sleep(ctx, o.grace)
		}
	} else if req.WaitForFonts {
		o.loadFonts(ctx, sess, req, fontDeadline)
	}

	region := Region{Width: req.Viewport.Width, Height: req.Viewport.Height}

	var img []byte
	err = within(ctx, func() error {
		var cerr error
		img, cerr = sess.CaptureRegion(ctx, region, req.Format, req.Quality)
		return cerr
	})
	if err != nil {
		if ctx.Err() != nil {
			return res, fmt.Errorf("capture: no screenshot within %v: %w", timeout, err)
		}
		return res, fmt.Errorf("capture: %w", err)
	}

	res = model.Succeeded(img, req.Format, req.Viewport)
	res.Truncated = !settled

	if o.inspector != nil {
		if w, h, _, err := o.inspector.Inspect(img); err == nil {
			res.PixelWidth, res.PixelHeight = w, h
		} else {
			zlog.Logger.Debug().Err(err).Msg("could not inspect captured image")
		}
	}

	return res, nil
}

// launch starts a session, giving up when ctx is done.
// A session that comes up after that is closed right away.
func (o *Orchestrator) launch(ctx context.Context, req model.CaptureRequest) (Session, error) {
	type launched struct {
		sess Session
		err  error
	}

	ch := make(chan launched, 1)
	go func() {
		sess, err := o.launcher.Launch(ctx, req.Viewport, req.DeviceScaleFactor)
		ch <- launched{sess, err}
	}()

	select {
	case l := <-ch:
		return l.sess, l.err
	case <-ctx.Done():
		go func() {
			if l := <-ch; l.err == nil && l.sess != nil {
				_ = l.sess.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

// navigate races the page load against the watchdog.
// It returns settled=false when the watchdog fired first.
func (o *Orchestrator) navigate(
	ctx context.Context,
	sess Session,
	req model.CaptureRequest,
	timeout, watchdog time.Duration,
) (bool, error) {
	// Buffered so the navigation goroutine never blocks once the race is lost.
	done := make(chan error, 1)
	go func() {
		done <- sess.Navigate(ctx, req.TargetURL, req.Wait, timeout)
	}()

	timer := time.NewTimer(watchdog)
	defer timer.Stop()

	select {
	case err := <-done:
		return err == nil, err
	case <-timer.C:
		return false, nil
	}
}

// loadFonts injects the fallback font faces and asks the page to load them.
// Failures are logged only; the wait never extends past deadline.
func (o *Orchestrator) loadFonts(ctx context.Context, sess Session, req model.CaptureRequest, deadline time.Time) {
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		if err := sess.InjectStyle(ctx, fontFaceCSS); err != nil {
			done <- fmt.Errorf("inject style: %w", err)
			return
		}
		done <- sess.RequestFontLoad(ctx, fontLoadSpec)
	}()

	select {
	case err := <-done:
		if err != nil {
			zlog.Logger.Warn().Err(err).Str("url", req.TargetURL).Msg("web font wait failed")
		}
	case <-ctx.Done():
		zlog.Logger.Warn().Str("url", req.TargetURL).Msg("web font wait ran out of time")
	}
}

// within runs fn and returns early with ctx's error once ctx is done.
// fn keeps running until the session is closed.
func within(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
