package syncmgr

import (
	"container/heap"
)

// queued wraps a task with its heap bookkeeping.
type queued struct {
	task  Task
	index int // maintained by the heap package
}

// taskQueue combines a binary heap with a hash map: the heap yields the
// next task to propagate (high priority first, FIFO within a priority),
// the map gives O(1) key access so a re-written key replaces its queued
// task instead of accumulating duplicates.
//
// Not safe for concurrent use; the coordinator serializes access.
type taskQueue struct {
	items    []*queued
	itemsMap map[string]*queued
}

func newTaskQueue() *taskQueue {
	return &taskQueue{
		itemsMap: make(map[string]*queued),
	}
}

// --------------------------------------------------------------------------
// heap.Interface
// --------------------------------------------------------------------------

func (q *taskQueue) Len() int { return len(q.items) }

func (q *taskQueue) Less(i, j int) bool {
	a, b := q.items[i].task, q.items[j].task
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.Seq < b.Seq
}

func (q *taskQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.items[i].index = i
	q.items[j].index = j
}

func (q *taskQueue) Push(x any) {
	n := len(q.items)
	item := x.(*queued)
	item.index = n
	q.items = append(q.items, item)
	q.itemsMap[item.task.Key] = item
}

func (q *taskQueue) Pop() any {
	old := q.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // avoid memory leak
	item.index = -1
	q.items = old[:n-1]
	delete(q.itemsMap, item.task.Key)
	return item
}

// --------------------------------------------------------------------------
// Queue Operations
// --------------------------------------------------------------------------

// add inserts the task, replacing any queued task for the same key.
func (q *taskQueue) add(task Task) {
	if existing, ok := q.itemsMap[task.Key]; ok {
		existing.task = task
		heap.Fix(q, existing.index)
		return
	}
	heap.Push(q, &queued{task: task})
}

// next removes and returns the highest-priority task.
func (q *taskQueue) next() (Task, bool) {
	if len(q.items) == 0 {
		return Task{}, false
	}
	item := heap.Pop(q).(*queued)
	return item.task, true
}

// contains reports whether a task is queued for key.
func (q *taskQueue) contains(key string) bool {
	_, ok := q.itemsMap[key]
	return ok
}
