package vectordb

import "fmt"

// ModelMismatchError reports an attempt to load a collection built under a
// different embedding model version. Vectors of mismatched geometry are
// never served.
type ModelMismatchError struct {
	Collection string
	Want       string
	Got        string
}

// Error implements error.
func (e *ModelMismatchError) Error() string {
	return fmt.Sprintf("collection %s was built with embedding model %q, configured model is %q", e.Collection, e.Got, e.Want)
}
