package pool

import "github.com/vrampool/gpumempool/internal/align"

// roundUp rounds s up to the next multiple of Unit (spec.md §4.4).
func roundUp(s int64) int64 {
	return align.Up(s, Unit)
}

// binIndex returns the free-list bin a chunk of rounded size s belongs in.
// A chunk of rounded size k*Unit lives in bin k-1 (spec.md §4.4).
func binIndex(s int64) int {
	return int((s - 1) / Unit)
}
