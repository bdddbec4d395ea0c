package view

import "fmt"

// FetchError is a failed store List for one view. The view publishes an empty
// snapshot rather than keep showing stale data.
type FetchError struct {
	View string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to load beans: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// AugmentationError is a failed enrichment step. The view carries on with the
// records as fetched.
type AugmentationError struct {
	View string
	Err  error
}

func (e *AugmentationError) Error() string {
	return fmt.Sprintf("%s: augmenting beans failed, showing them as fetched: %v", e.View, e.Err)
}

func (e *AugmentationError) Unwrap() error { return e.Err }
