package reach

import "container/heap"

// frontier is the priority collection of Paths not yet finalized, ordered by
// the Path comparison key. A side map of the best arrival ever queued per
// stop suppresses pushes that are no better than something already queued.
// Worse entries already in the heap are not removed; they pop later and get
// discarded at finalize time.
type frontier struct {
	heap          pathHeap
	bestTentative map[string]int // stopID -> earliest queued arrival offset
}

func newFrontier() *frontier {
	f := &frontier{bestTentative: make(map[string]int)}
	heap.Init(&f.heap)
	return f
}

func (f *frontier) Len() int {
	return f.heap.Len()
}

// Push offers a Path to the frontier, applying the push rule: discard when a
// Path arriving at the same stop at least as early has already been queued.
// Returns whether the Path was queued.
func (f *frontier) Push(p *Path) bool {
	stopID, arrival := p.Last().StopID, p.Last().Arrival
	if best, ok := f.bestTentative[stopID]; ok && best <= arrival {
		return false
	}
	f.bestTentative[stopID] = arrival
	heap.Push(&f.heap, p)
	return true
}

// Pop removes and returns the minimal Path.
func (f *frontier) Pop() *Path {
	return heap.Pop(&f.heap).(*Path)
}

// pathHeap implements heap.Interface over Paths. Paths are immutable, so no
// index bookkeeping: stale entries are discarded by the caller on pop.
type pathHeap []*Path

func (h pathHeap) Len() int { return len(h) }

func (h pathHeap) Less(i, j int) bool {
	return h[i].Less(h[j])
}

func (h pathHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *pathHeap) Push(x interface{}) {
	*h = append(*h, x.(*Path))
}

func (h *pathHeap) Pop() interface{} {
	old := *h
	n := len(old)
	p := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return p
}
