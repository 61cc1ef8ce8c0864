package ast

import (
	"sort"
	"sync"
)

// notifier is the subscription list shared by extractor variants. Callbacks
// run synchronously on the extracting goroutine and receive private copies.
type notifier struct {
	mu        sync.Mutex
	nextID    int
	symbols   map[int]func([]string)
	positions map[int]func([]SymbolRecord)
}

func (n *notifier) OnSymbolsChanged(fn func([]string)) func() {
	if fn == nil {
		return func() {}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.symbols == nil {
		n.symbols = make(map[int]func([]string))
	}
	id := n.nextID
	n.nextID++
	n.symbols[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.symbols, id)
	}
}

func (n *notifier) OnPositionsChanged(fn func([]SymbolRecord)) func() {
	if fn == nil {
		return func() {}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.positions == nil {
		n.positions = make(map[int]func([]SymbolRecord))
	}
	id := n.nextID
	n.nextID++
	n.positions[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.positions, id)
	}
}

// publish fires symbol subscribers, then position subscribers, in
// subscription order.
func (n *notifier) publish(snap *Snapshot) {
	n.mu.Lock()
	symbolFns := orderedCallbacks(n.symbols)
	positionFns := orderedCallbacks(n.positions)
	n.mu.Unlock()

	for _, fn := range symbolFns {
		fn(cloneStrings(snap.Symbols))
	}
	for _, fn := range positionFns {
		fn(cloneRecords(snap.Records))
	}
}

func orderedCallbacks[T any](subs map[int]T) []T {
	ids := make([]int, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, subs[id])
	}
	return out
}
