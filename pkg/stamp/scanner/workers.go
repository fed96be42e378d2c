package scanner

import "runtime"

// Worker limits for the parallel walk.
const (
	// maxWorkers caps the walk to avoid excessive context switching.
	maxWorkers = 64

	// minWorkers keeps metadata-heavy traversal parallel on small systems.
	minWorkers = 4
)

// Workers returns the number of walk workers. An override > 0 is used as
// given (capped at 64); otherwise the count follows the CPU count.
func Workers(override int) int {
	if override > 0 {
		return min(override, maxWorkers)
	}
	return min(max(runtime.NumCPU(), minWorkers), maxWorkers)
}
