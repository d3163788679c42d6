package stack

import (
	"github.com/ethereum/go-ethereum/log"
)

// Common is implemented by every component of a system.
type Common interface {
	// Logger is tagged with the kind and ID of the component.
	Logger() log.Logger
	// T is the test handle the component was created under.
	T() T
}
