package pane

import "sort"

// RangeSet tracks a set of stable row indices as a sorted list of
// non-overlapping, non-adjacent half-open ranges [start, end). It is used
// by get_changed_since to report which rows changed since a given seqno.
type RangeSet struct {
	ranges [][2]int64 // each entry is [start, end)
}

// Insert adds a single row index y.
func (r *RangeSet) Insert(y int64) {
	r.InsertRange(y, y+1)
}

// InsertRange adds the half-open range [start, end), merging with any
// overlapping or adjacent existing ranges.
func (r *RangeSet) InsertRange(start, end int64) {
	if end <= start {
		return
	}
	i := sort.Search(len(r.ranges), func(i int) bool { return r.ranges[i][0] >= start })
	// merge with the range immediately before, if adjacent/overlapping
	if i > 0 && r.ranges[i-1][1] >= start {
		i--
		start = r.ranges[i][0]
		if r.ranges[i][1] > end {
			end = r.ranges[i][1]
		}
	}
	j := i
	for j < len(r.ranges) && r.ranges[j][0] <= end {
		if r.ranges[j][1] > end {
			end = r.ranges[j][1]
		}
		j++
	}
	merged := [2]int64{start, end}
	out := make([][2]int64, 0, len(r.ranges)-(j-i)+1)
	out = append(out, r.ranges[:i]...)
	out = append(out, merged)
	out = append(out, r.ranges[j:]...)
	r.ranges = out
}

// Contains reports whether y is a member of the set.
func (r *RangeSet) Contains(y int64) bool {
	i := sort.Search(len(r.ranges), func(i int) bool { return r.ranges[i][1] > y })
	return i < len(r.ranges) && r.ranges[i][0] <= y
}

// Ranges returns the ordered, non-overlapping ranges making up the set.
// The returned slice must not be mutated by the caller.
func (r *RangeSet) Ranges() [][2]int64 { return r.ranges }

// Iter enumerates every row index in the set, in increasing order.
func (r *RangeSet) Iter(yield func(int64) bool) {
	for _, rg := range r.ranges {
		for y := rg[0]; y < rg[1]; y++ {
			if !yield(y) {
				return
			}
		}
	}
}
