// Package browser implements capture sessions on top of headless Chrome
// through the DevTools protocol.
package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"

	"github.com/aliskhannn/screenshot/internal/capture"
	"github.com/aliskhannn/screenshot/internal/model"
)

// Options configures how Chrome is started.
type Options struct {
	ExecPath  string
	NoSandbox bool
	Flags     []string
}

// Launcher starts one Chrome process per session.
type Launcher struct {
	opts Options
}

// NewLauncher creates a Launcher with the given options.
func NewLauncher(opts Options) *Launcher {
	return &Launcher{opts: opts}
}

func (l *Launcher) allocatorOptions(vp model.Viewport) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.WindowSize(vp.Width, vp.Height),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("mute-audio", true),
	)

	if l.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.opts.ExecPath))
	}
	if l.opts.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	for _, f := range l.opts.Flags {
		name, value := parseFlag(f)
		opts = append(opts, chromedp.Flag(name, value))
	}

	return opts
}

// Launch starts Chrome, opens a tab and applies the viewport and device scale.
// The returned session must be closed by the caller.
func (l *Launcher) Launch(ctx context.Context, vp model.Viewport, deviceScaleFactor float64) (capture.Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), l.allocatorOptions(vp)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		ctx:         tabCtx,
		cancel:      tabCancel,
		allocCancel: allocCancel,
		seen:        make(map[string]map[string]bool),
		notify:      make(chan struct{}, 1),
	}

	chromedp.ListenTarget(tabCtx, s.onEvent)

	// The first run starts Chrome on tabCtx; ctx only bounds the wait.
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(tabCtx,
			emulation.SetDeviceMetricsOverride(int64(vp.Width), int64(vp.Height), deviceScaleFactor, false),
		)
	}()

	select {
	case err := <-done:
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("start browser: %w", err)
		}
	case <-ctx.Done():
		go s.Close()
		return nil, fmt.Errorf("start browser: %w", ctx.Err())
	}

	return s, nil
}
