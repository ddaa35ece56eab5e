package feed

import (
	"errors"
	"fmt"
)

var (
	ErrIneligible = errors.New("item is missing a required field")
	ErrBadPubDate = errors.New("invalid publication date")
)

// FetchError reports a feed that could not be retrieved
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
