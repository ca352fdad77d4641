// Package media drives long-running generation operations at the provider:
// submit a request, poll the returned operation until it settles, then fetch
// the produced asset.
package media

import (
	"context"
	"strings"

	"adstudio/internal/domain"
)

// Reference is a normalized input image attached to a request.
type Reference struct {
	Data []byte
	MIME string
	Role domain.ReferenceRole
}

// Request describes one generation run.
type Request struct {
	Kind            domain.MediaKind
	Prompt          string
	References      []Reference
	AspectRatio     string
	Resolution      string
	DurationSeconds int
}

// Handle identifies a submitted operation at the provider.
type Handle struct {
	Name string
}

// Operation is one observed state of a submitted run. Errors can surface in
// two places: on the operation itself or inside its response body. Either one
// being set makes the operation terminal and failed, even when Done is false.
type Operation struct {
	Done            bool
	ErrorMessage    string
	ResponseError   string
	FilteredReasons []string
	// Exactly one of AssetURI or AssetData is set on success. Inline data
	// skips the fetch round-trip.
	AssetURI  string
	AssetData []byte
	MIME      string
}

// TerminalError returns the operation's failure message, or "" when it has
// not failed. Filter reasons count as a failure even without an explicit
// error message.
func (o Operation) TerminalError() string {
	if o.ErrorMessage != "" {
		return o.ErrorMessage
	}
	if o.ResponseError != "" {
		return o.ResponseError
	}
	if len(o.FilteredReasons) > 0 {
		return "blocked by safety policy: " + strings.Join(o.FilteredReasons, "; ")
	}
	return ""
}

// Failed reports whether the operation settled with an error.
func (o Operation) Failed() bool {
	return o.TerminalError() != ""
}

// Provider is the capability surface the pipeline drives.
type Provider interface {
	Submit(ctx context.Context, req Request) (Handle, error)
	Poll(ctx context.Context, h Handle) (Operation, error)
	FetchAsset(ctx context.Context, uri string) ([]byte, string, error)
}
