package datastructure

import (
	"errors"
)

// CriterionRank lexicographic priority of an open label: time first, then
// number of transfers, insertion order last so that equal-key pops are FIFO.
type CriterionRank struct {
	time      int64
	transfers int32
	seq       int64
}

func NewCriterionRank(time int64, transfers int32, seq int64) CriterionRank {
	return CriterionRank{time: time, transfers: transfers, seq: seq}
}

func (r CriterionRank) GetTime() int64 {
	return r.time
}

func (r CriterionRank) GetTransfers() int32 {
	return r.transfers
}

func (r CriterionRank) Less(o CriterionRank) bool {
	if r.time != o.time {
		return r.time < o.time
	}
	if r.transfers != o.transfers {
		return r.transfers < o.transfers
	}
	return r.seq < o.seq
}

type PriorityQueueNode[T any] struct {
	rank    CriterionRank
	item    T
	itemPos int
}

func (p *PriorityQueueNode[T]) GetItem() T {
	return p.item
}

func (p *PriorityQueueNode[T]) GetRank() CriterionRank {
	return p.rank
}

func (p *PriorityQueueNode[T]) SetRank(rank CriterionRank) {
	p.rank = rank
}

func (p *PriorityQueueNode[T]) SetPos(i int) {
	p.itemPos = i
}

func (p *PriorityQueueNode[T]) GetPos() int {
	return p.itemPos
}

func NewPriorityQueueNode[T any](rank CriterionRank, item T) *PriorityQueueNode[T] {
	return &PriorityQueueNode[T]{rank: rank, item: item}
}

// MinHeap d-ary heap priorityqueue over criterion ranks
type MinHeap[T any] struct {
	heap []*PriorityQueueNode[T]
	d    int
}

func NewBinaryHeap[T any]() *MinHeap[T] {
	return NewdAryHeap[T](2)
}

func NewFourAryHeap[T any]() *MinHeap[T] {
	return NewdAryHeap[T](4)
}

func NewdAryHeap[T any](d int) *MinHeap[T] {
	return &MinHeap[T]{
		heap: make([]*PriorityQueueNode[T], 0),
		d:    d,
	}
}

func (h *MinHeap[T]) Preallocate(maxSearchSize int) {
	h.heap = make([]*PriorityQueueNode[T], 0, maxSearchSize)
}

func (h *MinHeap[T]) parent(index int) int {
	return (index - 1) / h.d
}

// heapifyUp restore heap property bottom-up. O(logN) tree height.
func (h *MinHeap[T]) heapifyUp(index int) {
	for index != 0 && h.heap[index].rank.Less(h.heap[h.parent(index)].rank) {
		h.Swap(index, h.parent(index))
		index = h.parent(index)
	}
}

// heapifyDown restore heap property top-down. O(logN) tree height.
func (h *MinHeap[T]) heapifyDown(index int) {

	leftMostChild := index*h.d + 1
	if leftMostChild >= len(h.heap) {
		return
	}

	sentinel := leftMostChild + h.d
	if sentinel > len(h.heap) {
		sentinel = len(h.heap)
	}

	smallest := leftMostChild
	for i := leftMostChild + 1; i < sentinel; i++ {
		if h.heap[i].rank.Less(h.heap[smallest].rank) {
			smallest = i
		}
	}

	if h.heap[smallest].rank.Less(h.heap[index].rank) {
		h.Swap(index, smallest)

		h.heapifyDown(smallest)
	}
}

func (h *MinHeap[T]) Swap(i, j int) {
	h.heap[i], h.heap[j] = h.heap[j], h.heap[i]

	h.heap[i].SetPos(i)
	h.heap[j].SetPos(j)
}

func (h *MinHeap[T]) isEmpty() bool {
	return len(h.heap) == 0
}

func (h *MinHeap[T]) IsEmpty() bool {
	return len(h.heap) == 0
}

func (h *MinHeap[T]) Size() int {
	return len(h.heap)
}

func (h *MinHeap[T]) Clear() {
	h.heap = make([]*PriorityQueueNode[T], 0)
}

func (h *MinHeap[T]) GetMin() (*PriorityQueueNode[T], error) {
	if h.isEmpty() {
		return &PriorityQueueNode[T]{}, errors.New("heap is empty")
	}
	return h.heap[0], nil
}

func (h *MinHeap[T]) Insert(key *PriorityQueueNode[T]) {
	h.heap = append(h.heap, key)
	index := h.Size() - 1
	key.SetPos(index)
	h.heapifyUp(index)
}

// ExtractMin pop the minimum rank node. O(logN).
func (h *MinHeap[T]) ExtractMin() (*PriorityQueueNode[T], error) {
	if h.isEmpty() {
		return &PriorityQueueNode[T]{}, errors.New("heap is empty")
	}
	root := h.heap[0]

	h.Swap(0, h.Size()-1)

	h.heap = h.heap[:h.Size()-1]
	root.SetPos(-1)
	if len(h.heap) > 0 {
		h.heapifyDown(0)
	}

	return root, nil
}

func (h *MinHeap[T]) getItemPos(item *PriorityQueueNode[T]) int {
	return item.GetPos()
}

// DecreaseKey update rank of a queued node. O(logN) heapify.
func (h *MinHeap[T]) DecreaseKey(item *PriorityQueueNode[T], rank CriterionRank) error {
	itemPos := h.getItemPos(item)
	if itemPos < 0 || itemPos >= h.Size() || h.heap[itemPos].GetRank().Less(rank) {
		return errors.New("invalid index or new value")
	}

	h.heap[itemPos].SetRank(rank)
	h.heapifyUp(itemPos)
	return nil
}
