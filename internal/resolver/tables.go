package resolver

import (
	"fmt"

	"github.com/aliskhannn/screenshot/internal/model"
)

const (
	SizeSmall     = "small"
	SizeMedium    = "medium"
	SizeLarge     = "large"
	SizeOpenGraph = "opengraph"

	RatioSquare   = "1:1"
	RatioPortrait = "9:16"

	ZoomSmaller  = "smaller"
	ZoomStandard = "standard"
	ZoomBigger   = "bigger"
)

type dimensionKey struct {
	size  string
	ratio string
}

// viewports maps (size, aspect ratio) to a logical viewport.
// large has no portrait variant.
var viewports = map[dimensionKey]model.Viewport{
	{SizeSmall, RatioSquare}:    {Width: 375, Height: 375},
	{SizeSmall, RatioPortrait}:  {Width: 375, Height: 667},
	{SizeMedium, RatioSquare}:   {Width: 650, Height: 650},
	{SizeMedium, RatioPortrait}: {Width: 650, Height: 1156},
	{SizeLarge, RatioSquare}:    {Width: 1024, Height: 1024},
}

// openGraphViewports keeps the device pixel output near 1200x630 at every zoom.
var openGraphViewports = map[string]model.Viewport{
	ZoomStandard: {Width: 1200, Height: 630},
	ZoomBigger:   {Width: 857, Height: 450},
	ZoomSmaller:  {Width: 1680, Height: 882},
}

var deviceScaleFactors = map[string]float64{
	ZoomSmaller:  1 / 1.4,
	ZoomStandard: 1,
	ZoomBigger:   1.4,
}

var sizes = []string{SizeSmall, SizeMedium, SizeLarge, SizeOpenGraph}
var ratios = []string{RatioSquare, RatioPortrait}
var zooms = []string{ZoomSmaller, ZoomStandard, ZoomBigger}

// unsupported lists the combinations that intentionally have no viewport.
var unsupported = map[dimensionKey]bool{
	{SizeLarge, RatioPortrait}: true,
}

// waitLevels maps the cache buster "wait" option to a wait strategy.
var waitLevels = []struct {
	conditions []model.WaitCondition
	fonts      bool
}{
	{conditions: []model.WaitCondition{model.WaitDOMContentLoaded}},
	{conditions: []model.WaitCondition{model.WaitLoad}},
	{conditions: []model.WaitCondition{model.WaitLoad, model.WaitNetworkIdle0}},
	{conditions: []model.WaitCondition{model.WaitLoad, model.WaitNetworkIdle2}},
	{conditions: []model.WaitCondition{model.WaitLoad, model.WaitNetworkIdle0}, fonts: true},
}

const defaultWaitLevel = 1

func init() {
	if err := validateTables(); err != nil {
		panic(err)
	}
}

// validateTables checks every size/ratio/zoom combination resolves
// to a viewport and scale, except the ones listed as unsupported.
func validateTables() error {
	for _, z := range zooms {
		if s, ok := deviceScaleFactors[z]; !ok || s <= 0 {
			return fmt.Errorf("resolver: no device scale factor for zoom %q", z)
		}
		if vp, ok := openGraphViewports[z]; !ok || vp.Width <= 0 || vp.Height <= 0 {
			return fmt.Errorf("resolver: no opengraph viewport for zoom %q", z)
		}
	}

	for _, s := range sizes {
		if s == SizeOpenGraph {
			continue
		}
		for _, r := range ratios {
			key := dimensionKey{s, r}
			vp, ok := viewports[key]
			if unsupported[key] {
				if ok {
					return fmt.Errorf("resolver: %s/%s is both mapped and unsupported", s, r)
				}
				continue
			}
			if !ok || vp.Width <= 0 || vp.Height <= 0 {
				return fmt.Errorf("resolver: no viewport for %s/%s", s, r)
			}
		}
	}

	return nil
}
