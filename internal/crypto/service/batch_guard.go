package service

import (
	"fmt"
)

// checkBatch rejects a batch of n items when it exceeds ceiling. It runs before
// any item is processed so an oversized batch never does partial work.
func checkBatch(n, ceiling int, kind error) error {
	if n > ceiling {
		return fmt.Errorf("%w: %d items, maximum %d", kind, n, ceiling)
	}
	return nil
}
