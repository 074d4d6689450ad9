package resolver

import (
	"errors"
	"reflect"
	"testing"

	"github.com/aliskhannn/screenshot/internal/model"
)

const exampleURL = "https%3A%2F%2Fexample.com%2F"

func TestResolveViewportTable(t *testing.T) {
	tests := []struct {
		path   string
		width  int
		height int
	}{
		{"/" + exampleURL + "/", 375, 375},
		{"/" + exampleURL + "/small/", 375, 375},
		{"/" + exampleURL + "/small/1:1/", 375, 375},
		{"/" + exampleURL + "/small/9:16/", 375, 667},
		{"/" + exampleURL + "/medium/", 650, 650},
		{"/" + exampleURL + "/medium/9:16/", 650, 1156},
		{"/" + exampleURL + "/large/", 1024, 1024},
		{"/" + exampleURL + "/large/1:1/", 1024, 1024},
		{"/" + exampleURL + "/opengraph/", 1200, 630},
		{"/" + exampleURL + "/opengraph/9:16/", 1200, 630},
		{"/" + exampleURL + "/opengraph/whatever/", 1200, 630},
		{"/" + exampleURL + "/opengraph/1:1/bigger/", 857, 450},
		{"/" + exampleURL + "/opengraph/1:1/smaller/", 1680, 882},
	}

	r := New(Options{})
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req, err := r.ResolvePath(tt.path)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if req.Viewport.Width != tt.width || req.Viewport.Height != tt.height {
				t.Errorf("expected %dx%d, got %dx%d", tt.width, tt.height, req.Viewport.Width, req.Viewport.Height)
			}
		})
	}
}

func TestResolveUnsupportedDimensions(t *testing.T) {
	r := New(Options{})

	for _, path := range []string{
		"/" + exampleURL + "/large/9:16/",
		"/" + exampleURL + "/huge/",
		"/" + exampleURL + "/small/4:3/",
	} {
		_, err := r.ResolvePath(path)

		var f *model.Failure
		if !errors.As(err, &f) {
			t.Fatalf("%s: expected *model.Failure, got %v", path, err)
		}
		if f.Kind != model.KindUnsupportedDimensions {
			t.Errorf("%s: expected kind %s, got %s", path, model.KindUnsupportedDimensions, f.Kind)
		}
		if !errors.Is(err, model.ErrUnsupportedDimensions) {
			t.Errorf("%s: expected errors.Is ErrUnsupportedDimensions", path)
		}
	}
}

func TestIsFullURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"https://example.com/", true},
		{"http://localhost:8080/path?q=1", true},
		{"https://www.11ty.dev", true},
		{"", false},
		{"not-a-url", false},
		{"/relative/path", false},
		{"example.com", false},
		{"https://", false},
		{"://missing-scheme.com", false},
	}

	for _, tt := range tests {
		if got := IsFullURL(tt.in); got != tt.want {
			t.Errorf("IsFullURL(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestResolveInvalidURL(t *testing.T) {
	r := New(Options{})

	for _, path := range []string{"/not-a-url/", "/", "", "/%2Frelative%2Fpath/small/"} {
		_, err := r.ResolvePath(path)
		if !errors.Is(err, model.ErrInvalidURL) {
			t.Errorf("%q: expected ErrInvalidURL, got %v", path, err)
		}

		var f *model.Failure
		if errors.As(err, &f) {
			if f.Width != model.DefaultPlaceholderWidth || f.Height != model.DefaultPlaceholderHeight {
				t.Errorf("%q: expected default placeholder size, got %dx%d", path, f.Width, f.Height)
			}
		}
	}
}

func TestResolveCacheBusterAnySlot(t *testing.T) {
	r := New(Options{})

	req, err := r.ResolvePath("/" + exampleURL + "/_wait:2_timeout:5/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Size != SizeSmall || req.Viewport != (model.Viewport{Width: 375, Height: 375}) {
		t.Errorf("expected small default, got %s %+v", req.Size, req.Viewport)
	}
	assertWait(t, req, []model.WaitCondition{model.WaitLoad, model.WaitNetworkIdle0}, false)
	if req.TimeoutMs != 5000 {
		t.Errorf("expected timeout 5000, got %d", req.TimeoutMs)
	}
	if req.CacheBuster != "_wait:2_timeout:5" {
		t.Errorf("unexpected cache buster %q", req.CacheBuster)
	}

	req, err = r.ResolvePath("/" + exampleURL + "/medium/_wait:2_timeout:5/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Size != SizeMedium || req.Viewport != (model.Viewport{Width: 650, Height: 650}) {
		t.Errorf("expected medium, got %s %+v", req.Size, req.Viewport)
	}
	assertWait(t, req, []model.WaitCondition{model.WaitLoad, model.WaitNetworkIdle0}, false)
	if req.TimeoutMs != 5000 {
		t.Errorf("expected timeout 5000, got %d", req.TimeoutMs)
	}

	// The cache buster does not consume a positional slot.
	req, err = r.ResolvePath("/" + exampleURL + "/medium/_x:1/9:16/bigger/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.AspectRatio != RatioPortrait || req.Zoom != ZoomBigger {
		t.Errorf("expected 9:16 bigger, got %s %s", req.AspectRatio, req.Zoom)
	}
}

func TestResolveWaitLevels(t *testing.T) {
	r := New(Options{})

	tests := []struct {
		token string
		wait  []model.WaitCondition
		fonts bool
	}{
		{"_wait:0", []model.WaitCondition{model.WaitDOMContentLoaded}, false},
		{"_wait:1", []model.WaitCondition{model.WaitLoad}, false},
		{"_wait:2", []model.WaitCondition{model.WaitLoad, model.WaitNetworkIdle0}, false},
		{"_wait:3", []model.WaitCondition{model.WaitLoad, model.WaitNetworkIdle2}, false},
		{"_wait:4", []model.WaitCondition{model.WaitLoad, model.WaitNetworkIdle0}, true},
		{"_wait:9", []model.WaitCondition{model.WaitLoad}, false},
		{"_wait:abc", []model.WaitCondition{model.WaitLoad}, false},
		{"_unknown:3_nonsense", []model.WaitCondition{model.WaitLoad}, false},
	}

	for _, tt := range tests {
		req, err := r.ResolvePath("/" + exampleURL + "/" + tt.token + "/")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.token, err)
		}
		assertWait(t, req, tt.wait, tt.fonts)
	}
}

func TestResolveTimeoutClamp(t *testing.T) {
	r := New(Options{})

	tests := []struct {
		token string
		want  int
	}{
		{"_timeout:1", 3000},
		{"_timeout:20", 8500},
		{"_timeout:4", 4000},
		{"_timeout:-5", 3000},
		{"_timeout:99999999999", 8500},
		{"_timeout:4.5", 4500},
		{"_timeout:3.2504", 3250},
		{"_timeout:0.5", 3000},
		{"_timeout:12.5", 8500},
		{"_timeout:Inf", 8500},
		{"_timeout:NaN", DefaultTimeoutMs},
		{"_timeout:4,5", DefaultTimeoutMs},
		{"_other:1", DefaultTimeoutMs},
	}

	for _, tt := range tests {
		req, err := r.ResolvePath("/" + exampleURL + "/" + tt.token + "/")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.token, err)
		}
		if req.TimeoutMs != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.token, tt.want, req.TimeoutMs)
		}
	}
}

func TestResolveZoom(t *testing.T) {
	r := New(Options{})

	tests := []struct {
		zoom  string
		want  string
		scale float64
	}{
		{"smaller", ZoomSmaller, 1 / 1.4},
		{"standard", ZoomStandard, 1},
		{"bigger", ZoomBigger, 1.4},
		{"enormous", ZoomStandard, 1},
	}

	for _, tt := range tests {
		req, err := r.ResolvePath("/" + exampleURL + "/small/1:1/" + tt.zoom + "/")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.zoom, err)
		}
		if req.Zoom != tt.want || req.DeviceScaleFactor != tt.scale {
			t.Errorf("%s: expected %s@%v, got %s@%v", tt.zoom, tt.want, tt.scale, req.Zoom, req.DeviceScaleFactor)
		}
		if req.Viewport != (model.Viewport{Width: 375, Height: 375}) {
			t.Errorf("%s: zoom must not change the viewport of fixed sizes, got %+v", tt.zoom, req.Viewport)
		}
	}
}

func TestResolveDefaults(t *testing.T) {
	req, err := New(Options{}).ResolvePath("/https%3A%2F%2Fexample.com%2F/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := model.CaptureRequest{
		TargetURL:         "https://example.com/",
		Size:              SizeSmall,
		AspectRatio:       RatioSquare,
		Zoom:              ZoomStandard,
		Format:            model.FormatJPEG,
		Viewport:          model.Viewport{Width: 375, Height: 375},
		DeviceScaleFactor: 1,
		Wait:              []model.WaitCondition{model.WaitLoad},
		TimeoutMs:         DefaultTimeoutMs,
		Quality:           model.JPEGQuality,
		ScriptingEnabled:  true,
	}
	if !reflect.DeepEqual(req, want) {
		t.Errorf("unexpected request:\n got %+v\nwant %+v", req, want)
	}
}

func TestResolveOptions(t *testing.T) {
	req, err := New(Options{Format: model.FormatPNG, DisableScripting: true}).ResolvePath("/" + exampleURL + "/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Format != model.FormatPNG || req.Quality != 0 {
		t.Errorf("expected png without quality, got %s q=%d", req.Format, req.Quality)
	}
	if req.ScriptingEnabled {
		t.Error("expected scripting disabled")
	}

	req, err = New(Options{Format: "gif"}).ResolvePath("/" + exampleURL + "/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Format != model.FormatJPEG {
		t.Errorf("expected jpeg fallback for unknown format, got %s", req.Format)
	}
}

func TestResolveIdempotent(t *testing.T) {
	r := New(Options{})
	path := "/" + exampleURL + "/medium/9:16/bigger/_wait:4_timeout:6/"

	a, errA := r.ResolvePath(path)
	b, errB := r.ResolvePath(path)
	if errA != nil || errB != nil {
		t.Fatalf("unexpected errors: %v, %v", errA, errB)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("resolving twice differs:\n%+v\n%+v", a, b)
	}
	if a.Canonical() != b.Canonical() {
		t.Errorf("canonical forms differ")
	}
}

func TestSplitPath(t *testing.T) {
	got := SplitPath("//https%3A%2F%2Fexample.com%2F//small///_wait:1/")
	want := []string{"https://example.com/", "small", "_wait:1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitPath = %q, want %q", got, want)
	}
}

func TestValidateTables(t *testing.T) {
	if err := validateTables(); err != nil {
		t.Fatalf("tables incomplete: %v", err)
	}
}

func assertWait(t *testing.T, req model.CaptureRequest, wait []model.WaitCondition, fonts bool) {
	t.Helper()

	if !reflect.DeepEqual(req.Wait, wait) {
		t.Errorf("expected wait %v, got %v", wait, req.Wait)
	}
	if req.WaitForFonts != fonts {
		t.Errorf("expected fonts=%v, got %v", fonts, req.WaitForFonts)
	}
}
