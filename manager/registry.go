package manager

import (
	"sync"

	"github.com/quilvr/gssync/gsobject"
	"github.com/quilvr/gssync/transceiver"
)

// registration bundles a live transceiver with the keys it is currently
// reachable under, so Unregister can remove it from every map it may
// have been filed in.
type registration struct {
	tr  *transceiver.Transceiver
	id  gsobject.ObjectId
	tag gsobject.Tag
}

// byIDMap is a mutex-guarded ObjectId -> registration table.
type byIDMap struct {
	sync.Mutex
	m map[gsobject.ObjectId]*registration
}

func (b *byIDMap) init() { b.m = make(map[gsobject.ObjectId]*registration) }

func (b *byIDMap) load(key gsobject.ObjectId) (*registration, bool) {
	b.Lock()
	defer b.Unlock()
	r, ok := b.m[key]
	return r, ok
}

func (b *byIDMap) storeIfAbsent(key gsobject.ObjectId, val *registration) bool {
	b.Lock()
	defer b.Unlock()
	if _, ok := b.m[key]; ok {
		return false
	}
	b.m[key] = val
	return true
}

func (b *byIDMap) delete(key gsobject.ObjectId) {
	b.Lock()
	delete(b.m, key)
	b.Unlock()
}

// byTagMap is a mutex-guarded Tag -> registration table.
type byTagMap struct {
	sync.Mutex
	m map[gsobject.Tag]*registration
}

func (b *byTagMap) init() { b.m = make(map[gsobject.Tag]*registration) }

func (b *byTagMap) load(key gsobject.Tag) (*registration, bool) {
	b.Lock()
	defer b.Unlock()
	r, ok := b.m[key]
	return r, ok
}

func (b *byTagMap) storeIfAbsent(key gsobject.Tag, val *registration) bool {
	b.Lock()
	defer b.Unlock()
	if _, ok := b.m[key]; ok {
		return false
	}
	b.m[key] = val
	return true
}

func (b *byTagMap) delete(key gsobject.Tag) {
	b.Lock()
	delete(b.m, key)
	b.Unlock()
}

// allSet is a mutex-guarded set of every registered transceiver,
// iterated by the retransmit driver.
type allSet struct {
	sync.Mutex
	m map[*registration]struct{}
}

func (a *allSet) init() { a.m = make(map[*registration]struct{}) }

func (a *allSet) add(r *registration) {
	a.Lock()
	a.m[r] = struct{}{}
	a.Unlock()
}

func (a *allSet) remove(r *registration) {
	a.Lock()
	delete(a.m, r)
	a.Unlock()
}

func (a *allSet) snapshot() []*registration {
	a.Lock()
	defer a.Unlock()
	out := make([]*registration, 0, len(a.m))
	for r := range a.m {
		out = append(out, r)
	}
	return out
}
