package pipeline

// Partition returns the lane that owns a frame index. Ownership is fixed for
// the lifetime of a run: frame i always belongs to lane i mod laneCount, so
// each lane loads a disjoint slice of the stream and the scheduler knows
// exactly where to pop the next frame from.
func Partition(index, laneCount int) int {
	return index % laneCount
}
