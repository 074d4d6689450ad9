package model

import "errors"

// FailureKind classifies why a screenshot could not be produced.
type FailureKind string

const (
	KindInvalidURL            FailureKind = "invalid_url"
	KindUnsupportedDimensions FailureKind = "unsupported_dimensions"
	KindRenderError           FailureKind = "render_error"
)

// Default placeholder size used when no viewport could be resolved.
const (
	DefaultPlaceholderWidth  = 375
	DefaultPlaceholderHeight = 375
)

var (
	ErrInvalidURL            = errors.New("invalid url")
	ErrUnsupportedDimensions = errors.New("unsupported dimensions")
	ErrRender                = errors.New("render failed")
)

// Failure is a classified capture failure. Width and Height size the placeholder.
type Failure struct {
	Kind    FailureKind
	Message string
	Width   int
	Height  int
	Err     error
}

// Error implements error.
func (f *Failure) Error() string {
	return f.Message
}

// Unwrap returns the cause, falling back to the sentinel for the kind.
func (f *Failure) Unwrap() error {
	if f.Err != nil {
		return f.Err
	}

	switch f.Kind {
	case KindInvalidURL:
		return ErrInvalidURL
	case KindUnsupportedDimensions:
		return ErrUnsupportedDimensions
	default:
		return ErrRender
	}
}

// Is lets errors.Is match the sentinel of the failure kind even when Err is set.
func (f *Failure) Is(target error) bool {
	switch target {
	case ErrInvalidURL:
		return f.Kind == KindInvalidURL
	case ErrUnsupportedDimensions:
		return f.Kind == KindUnsupportedDimensions
	case ErrRender:
		return f.Kind == KindRenderError
	}

	return false
}

// NewFailure builds a failure sized for the default placeholder.
func NewFailure(kind FailureKind, msg string) *Failure {
	return &Failure{
		Kind:    kind,
		Message: msg,
		Width:   DefaultPlaceholderWidth,
		Height:  DefaultPlaceholderHeight,
	}
}

// RenderFailure builds a render failure sized to the requested viewport.
func RenderFailure(vp Viewport, err error) *Failure {
	return &Failure{
		Kind:    KindRenderError,
		Message: err.Error(),
		Width:   vp.Width,
		Height:  vp.Height,
		Err:     err,
	}
}
