package services

import (
	"container/heap"
	"sort"

	"github.com/shopspring/decimal"

	"fundfolio-api/internal/models"
)

// mover is one ranking candidate: a fund, its end-date price row, and the
// percent change over the queried window.
type mover struct {
	fund     models.Fund
	endPoint models.PricePoint
	change   decimal.Decimal
}

// moverHeap keeps the k best movers seen so far with the smallest change at
// the root. A new candidate evicts the root only when its change is
// strictly greater.
type moverHeap struct {
	limit int
	items []mover
}

func newMoverHeap(limit int) *moverHeap {
	h := &moverHeap{limit: limit}
	heap.Init(h)
	return h
}

func (h *moverHeap) Len() int           { return len(h.items) }
func (h *moverHeap) Less(i, j int) bool { return h.items[i].change.LessThan(h.items[j].change) }
func (h *moverHeap) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *moverHeap) Push(x interface{}) {
	h.items = append(h.items, x.(mover))
}

func (h *moverHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

// Offer considers one candidate for the top-k set.
func (h *moverHeap) Offer(m mover) {
	if h.Len() < h.limit {
		heap.Push(h, m)
		return
	}
	if m.change.GreaterThan(h.items[0].change) {
		h.items[0] = m
		heap.Fix(h, 0)
	}
}

// SortedDescending drains the heap into a deterministic total order:
// percent change descending, fund code ascending on ties.
func (h *moverHeap) SortedDescending() []mover {
	result := make([]mover, len(h.items))
	copy(result, h.items)

	sort.Slice(result, func(i, j int) bool {
		if !result[i].change.Equal(result[j].change) {
			return result[i].change.GreaterThan(result[j].change)
		}
		return result[i].fund.Code < result[j].fund.Code
	})

	return result
}
