package render

import "errors"

var (
	// ErrEngineUnavailable is returned when the rendering engine cannot be
	// started at all. Nothing can be crawled without it.
	ErrEngineUnavailable = errors.New("render engine unavailable")

	// ErrSessionFailed is returned when a browsing session for a site
	// cannot be established.
	ErrSessionFailed = errors.New("render session failed")

	// ErrRenderTimeout is returned when a page does not reach its wait
	// condition before the request timeout.
	ErrRenderTimeout = errors.New("render timed out")

	// ErrNotHTML is returned by the HTTP engine for non-HTML responses.
	ErrNotHTML = errors.New("response is not html")

	// ErrHTTPStatus is returned by the HTTP engine for 4xx and 5xx responses.
	ErrHTTPStatus = errors.New("unexpected http status")

	// ErrPoolClosed is returned when acquiring from a closed pool.
	ErrPoolClosed = errors.New("render pool closed")

	// ErrUnknownWaitCondition is returned for an unknown wait condition name.
	ErrUnknownWaitCondition = errors.New("unknown wait condition")

	// ErrUnknownEngine is returned for an unknown engine name.
	ErrUnknownEngine = errors.New("unknown render engine")

	// ErrInvalidProxy is returned for a malformed proxy address.
	ErrInvalidProxy = errors.New("invalid proxy")
)
