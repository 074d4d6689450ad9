package browser

import (
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
)

func lifecycle(loader, name string) *page.EventLifecycleEvent {
	return &page.EventLifecycleEvent{LoaderID: cdp.LoaderID(loader), Name: name}
}
