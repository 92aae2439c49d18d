package indexer

import "errors"

// ErrNotReady is returned when the collection has not been built or loaded
// yet; callers should invoke BuildOrLoad first.
var ErrNotReady = errors.New("collection not ready")
