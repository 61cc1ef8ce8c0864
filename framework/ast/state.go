package ast

import "sync"

// baseExtractor holds the snapshot and subscription plumbing shared by the
// language variants. Variants build a complete Snapshot privately and hand it
// to commit, so readers only ever see a whole extraction.
type baseExtractor struct {
	notifier

	mu    sync.RWMutex
	state *Snapshot

	// builtinMembers supplies default members for literal shapes and builtin
	// container names once class and inferred-type lookups come up empty.
	builtinMembers func(name string) []string
}

func (b *baseExtractor) current() *Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.state == nil {
		return newSnapshot()
	}
	return b.state
}

func (b *baseExtractor) commit(snap *Snapshot) {
	b.mu.Lock()
	b.state = snap
	b.mu.Unlock()
	b.publish(snap)
}

func (b *baseExtractor) Symbols() []string {
	return cloneStrings(b.current().Symbols)
}

func (b *baseExtractor) Records() []SymbolRecord {
	return cloneRecords(b.current().Records)
}

// SymbolAt returns the first record covering the position, or the empty
// sentinel. Records are scanned in recording order.
func (b *baseExtractor) SymbolAt(line, column int) SymbolRecord {
	for _, rec := range b.current().Records {
		if rec.Contains(line, column) {
			return rec
		}
	}
	return SymbolRecord{}
}

func (b *baseExtractor) ObjectType(name string) string {
	return b.current().ObjectTypes[name]
}

func (b *baseExtractor) ObjectTypes() map[string]string {
	return cloneStringMap(b.current().ObjectTypes)
}

func (b *baseExtractor) ClassMembers() map[string][]string {
	return cloneMembers(b.current().ClassMembers)
}

func (b *baseExtractor) FunctionParameters() map[string]string {
	return cloneStringMap(b.current().FunctionParameters)
}

func (b *baseExtractor) Snapshot() Snapshot {
	return b.current().Clone()
}

// ObjectMembers resolves name as a class, then through its inferred type,
// then through the builtin-shape fallback.
func (b *baseExtractor) ObjectMembers(name string) []string {
	snap := b.current()
	members := snap.ClassMembers[name]
	if len(members) == 0 {
		if className := snap.ObjectTypes[name]; className != "" {
			members = snap.ClassMembers[className]
		}
	}
	if len(members) == 0 && b.builtinMembers != nil {
		members = b.builtinMembers(name)
	}
	return Dedupe(members)
}

// memberSet accumulates ordered unique members per class.
type memberSet map[string][]string

func (ms memberSet) add(class, member string) {
	for _, existing := range ms[class] {
		if existing == member {
			return
		}
	}
	ms[class] = append(ms[class], member)
}
