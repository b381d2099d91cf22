package queue

import (
	"container/heap"

	"github.com/primoscope/CoomerDL-sub000/internal/models"
)

// readyItem is one dispatchable job inside the ready heap.
type readyItem struct {
	job *models.Job
	seq uint64
	idx int
}

// readyHeap orders dispatchable jobs by priority (higher first), breaking
// ties by enqueue sequence so equal-priority jobs dispatch FIFO.
type readyHeap []*readyItem

func (h readyHeap) Len() int { return len(h) }

func (h readyHeap) Less(i, j int) bool {
	if h[i].job.Priority != h[j].job.Priority {
		return h[i].job.Priority > h[j].job.Priority
	}
	return h[i].seq < h[j].seq
}

func (h readyHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].idx = i
	h[j].idx = j
}

func (h *readyHeap) Push(x any) {
	it := x.(*readyItem)
	it.idx = len(*h)
	*h = append(*h, it)
}

func (h *readyHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.idx = -1
	*h = old[:n-1]
	return it
}

// readySet is the shared ready queue workers pull from. Not safe for
// concurrent use; the manager guards it with its own mutex.
type readySet struct {
	heap    readyHeap
	byID    map[string]*readyItem
	nextSeq uint64
}

func newReadySet() *readySet {
	return &readySet{byID: make(map[string]*readyItem)}
}

// add enqueues a job, assigning the next dispatch sequence number. A job
// already in the set keeps its single slot: the entry is replaced in place
// so no ID ever holds two heap positions.
func (r *readySet) add(j *models.Job) {
	if it, ok := r.byID[j.ID]; ok {
		it.job = j
		heap.Fix(&r.heap, it.idx)
		return
	}
	it := &readyItem{job: j, seq: r.nextSeq}
	r.nextSeq++
	heap.Push(&r.heap, it)
	r.byID[j.ID] = it
}

// push re-inserts an item popped during a dispatch scan, keeping its
// original sequence so its FIFO position survives being skipped.
func (r *readySet) push(it *readyItem) {
	heap.Push(&r.heap, it)
	r.byID[it.job.ID] = it
}

// popItem removes and returns the top item with its sequence intact.
func (r *readySet) popItem() *readyItem {
	if r.heap.Len() == 0 {
		return nil
	}
	it := heap.Pop(&r.heap).(*readyItem)
	delete(r.byID, it.job.ID)
	return it
}

// remove takes a specific job out of the ready set, reporting whether it
// was present.
func (r *readySet) remove(jobID string) *models.Job {
	it, ok := r.byID[jobID]
	if !ok {
		return nil
	}
	heap.Remove(&r.heap, it.idx)
	delete(r.byID, jobID)
	return it.job
}

func (r *readySet) len() int {
	return r.heap.Len()
}
