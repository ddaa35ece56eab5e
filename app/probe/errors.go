package probe

import (
	"errors"
	"fmt"
)

var (
	ErrNoAddresses = errors.New("lookup returned no addresses")
	ErrTimeout     = errors.New("echo request timed out")
)

// ResolutionError reports an address that is neither an IPv4 literal nor a
// resolvable hostname
type ResolutionError struct {
	Address string
	Err     error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.Address, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}
