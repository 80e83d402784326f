// Package scanner discovers recorded-video files under the configured
// storage roots and feeds each one, in priority order, to
// internal/metadata for analysis. It is the Go reimplementation of
// original_source's FileProcessingQueue/RecordedScanTask pair: a min-heap
// of files freshly reported by a filesystem watcher, drained ahead of an
// initial batch walk's remaining backlog.
package scanner

import (
	"container/heap"
	"sort"
	"sync"
	"time"
)

// PrioritizedFile is one file discovered by the batch walker or the
// filesystem watcher, ordered so that newer files are processed first —
// the same negated-creation-time priority original_source's
// FileProcessingQueue.py.PrioritizedFile uses.
type PrioritizedFile struct {
	FilePath  string
	CreatedAt time.Time
}

func (f PrioritizedFile) priority() int64 {
	return -f.CreatedAt.Unix()
}

// fileHeap is a container/heap.Interface min-heap over PrioritizedFile,
// ordered by ascending priority() (i.e. descending CreatedAt).
type fileHeap []PrioritizedFile

func (h fileHeap) Len() int            { return len(h) }
func (h fileHeap) Less(i, j int) bool  { return h[i].priority() < h[j].priority() }
func (h fileHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *fileHeap) Push(x any)         { *h = append(*h, x.(PrioritizedFile)) }
func (h *fileHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// ProcessingQueue manages the priority-queued file backlog shared between
// a one-shot batch scan and an ongoing filesystem watch, per spec.md §4.K.
// Files reported by the watcher (the priority heap) always drain ahead of
// the batch list's remaining backlog. Safe for concurrent use.
type ProcessingQueue struct {
	mu sync.Mutex

	priorityHeap fileHeap
	batchFiles   []PrioritizedFile
	batchIndex   int

	processedPaths map[string]struct{}
}

// NewProcessingQueue returns an empty queue.
func NewProcessingQueue() *ProcessingQueue {
	return &ProcessingQueue{processedPaths: make(map[string]struct{})}
}

// LoadBatchFiles replaces the batch backlog, sorted newest-first. Intended
// to be called once, at the start of a scan pass.
func (q *ProcessingQueue) LoadBatchFiles(files []PrioritizedFile) {
	q.mu.Lock()
	defer q.mu.Unlock()

	sorted := make([]PrioritizedFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].priority() < sorted[j].priority() })

	q.batchFiles = sorted
	q.batchIndex = 0
}

// AddPriorityFile pushes a newly-observed file onto the priority heap,
// unless it was already processed this run.
func (q *ProcessingQueue) AddPriorityFile(f PrioritizedFile) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, done := q.processedPaths[f.FilePath]; done {
		return
	}
	heap.Push(&q.priorityHeap, f)
}

// NextFile pops the next file to process: the priority heap first, then
// the batch backlog. Already-processed files (a race between the watcher
// and the batch walk naming the same path) are skipped transparently.
func (q *ProcessingQueue) NextFile() (PrioritizedFile, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.priorityHeap.Len() > 0 {
		f := heap.Pop(&q.priorityHeap).(PrioritizedFile)
		if _, done := q.processedPaths[f.FilePath]; !done {
			return f, true
		}
	}
	for q.batchIndex < len(q.batchFiles) {
		f := q.batchFiles[q.batchIndex]
		q.batchIndex++
		if _, done := q.processedPaths[f.FilePath]; !done {
			return f, true
		}
	}
	return PrioritizedFile{}, false
}

// MarkProcessed records path as handled so it is never returned again.
func (q *ProcessingQueue) MarkProcessed(path string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.processedPaths[path] = struct{}{}
}

// IsProcessed reports whether path has already been marked processed.
func (q *ProcessingQueue) IsProcessed(path string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, done := q.processedPaths[path]
	return done
}

// PendingCount returns an approximate count of files left to process.
func (q *ProcessingQueue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.priorityHeap.Len() + (len(q.batchFiles) - q.batchIndex)
}
