package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrNodeNotFound is returned when a node id does not resolve in the flow.
var ErrNodeNotFound = errors.New("node not found")

// ErrFlowEmpty is returned by surfaces that need a non-empty flow when the
// parsed document yielded no flow order.
var ErrFlowEmpty = errors.New("no flow could be built from the document")

// ErrPromptNotFound is returned when a prompt document id cannot be found in
// the prompt library.
var ErrPromptNotFound = errors.New("prompt document not found")
