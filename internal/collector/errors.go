package collector

import "fmt"

// NoDataCollected reports that a window genuinely contained no matching
// resource for the requested type. It is terminal for the call and is not
// retried.
type NoDataCollected struct {
	Collector string
	Resource  string
}

func (e *NoDataCollected) Error() string {
	return fmt.Sprintf("collector %q gathered no data for resource %q", e.Collector, e.Resource)
}
