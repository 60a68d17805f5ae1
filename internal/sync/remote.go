// Package sync implements manual cloud synchronization of the whole dataset
// against a single remote document.
//
// The model is deliberately simple — no merging, no CRDTs:
//
//	pull = remote overrides local
//	push = local overrides remote
//
// The remote side is any document store supporting create, conditional
// get-by-id (ETag / If-None-Match, "not modified" short-circuit) and
// full-content replace. The concrete binding is the GitHub Gist API
// (gist.go); the engine depends only on the RemoteStore contract below.
package sync

import "context"

// Document is the result of a conditional fetch. When NotModified is true
// the remote content is unchanged since the supplied revision tag and Body
// is empty.
type Document struct {
	Body        []byte
	ETag        string
	NotModified bool
}

// RemoteStore is the remote document store contract. The token is a
// bearer-style credential sent per request; ids and revision tags are opaque.
type RemoteStore interface {
	// Create stores body as a new private document and returns its id and
	// initial revision tag.
	Create(ctx context.Context, token string, body []byte) (id, etag string, err error)

	// Fetch retrieves the document conditionally: when etag is non-empty and
	// the document is unchanged, it reports NotModified without a body.
	Fetch(ctx context.Context, token, id, etag string) (*Document, error)

	// Replace overwrites the full document content and returns the fresh
	// revision tag.
	Replace(ctx context.Context, token, id string, body []byte) (etag string, err error)
}
