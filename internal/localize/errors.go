package localize

import "fmt"

// ImageError is a failure on a single image. It never aborts a chapter.
type ImageError struct {
	URL string
	Op  string
	Err error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("image %s: %s: %v", e.URL, e.Op, e.Err)
}

func (e *ImageError) Unwrap() error { return e.Err }
