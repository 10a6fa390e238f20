/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

package sampling

import (
	"container/heap"
	"sort"

	"github.com/nethesis/store-verify/internal/document"
)

// scoredKey pairs a business-key value with its deterministic score.
type scoredKey struct {
	value document.Value
	score uint64
}

// topKHeap is a bounded max-heap keyed by score: it keeps the capacity
// smallest-scoring entries seen so far, evicting the current maximum
// whenever a smaller-scoring entry arrives. This is the streaming top-k
// primitive the deterministic sampling mode scans keys with, avoiding
// the need to materialize the full key set.
type topKHeap struct {
	items    []scoredKey
	capacity int
}

func newTopKHeap(capacity int) *topKHeap {
	return &topKHeap{capacity: capacity}
}

func (h *topKHeap) Len() int            { return len(h.items) }
func (h *topKHeap) Less(i, j int) bool  { return h.items[i].score > h.items[j].score }
func (h *topKHeap) Swap(i, j int)       { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *topKHeap) Push(x interface{})  { h.items = append(h.items, x.(scoredKey)) }
func (h *topKHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	last := old[n-1]
	h.items = old[:n-1]
	return last
}

// Offer considers a newly scanned key, admitting it to the heap when
// there is spare capacity or when it scores strictly below the current
// maximum (which is then evicted).
func (h *topKHeap) Offer(value document.Value, s uint64) {
	if h.capacity <= 0 {
		return
	}
	if h.Len() < h.capacity {
		heap.Push(h, scoredKey{value: value, score: s})
		return
	}
	if h.Len() > 0 && s < h.items[0].score {
		heap.Pop(h)
		heap.Push(h, scoredKey{value: value, score: s})
	}
}

// SortedAscending returns the retained keys sorted ascending by score,
// so the same seed and key multiset always yield the same output order.
func (h *topKHeap) SortedAscending() []scoredKey {
	out := make([]scoredKey, len(h.items))
	copy(out, h.items)
	sort.Slice(out, func(i, j int) bool { return out[i].score < out[j].score })
	return out
}
