// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msq

import "code.hybscloud.com/atomix"

const (
	epochPinned  = 1
	epochBags    = 3
	epochCadence = 64 // Retirements per participant between two collects
)

// bag holds nodes retired while the global epoch was equal to epoch.
type bag struct {
	epoch uint64
	refs  []ref
}

// epochs is an epoch-based reclamation domain.
//
// A pinned participant publishes local = epoch<<1 | 1. The global epoch
// moves from e to e+1 only when every pinned participant is pinned in e.
// A node is stamped with the global epoch read after it was unlinked;
// any goroutine that could still hold it pinned no later than that
// stamp, so once global reaches stamp+2 all of them have unpinned.
//
// Records are handed out head-first, so a record deep in the registry may
// sit idle with full bags. Every collect therefore also drains the safe
// bags of idle records, not only the caller's own.
type epochs struct {
	registry
	_      pad
	global atomix.Uint64
	_      pad
	free   func(ref)
}

func newEpochs(free func(ref)) *epochs {
	return &epochs{free: free}
}

func (d *epochs) pin() *participant {
	p := d.acquire()
	p.local.Store(d.global.Load()<<1 | epochPinned)
	return p
}

func (d *epochs) protect(*participant, int, ref) {}

func (d *epochs) unpin(p *participant) {
	p.local.Store(0)
	d.release(p)
}

func (d *epochs) retire(p *participant, r ref) {
	e := d.global.Load()
	b := &p.bags[e%epochBags]
	if b.epoch != e {
		// Stamps only grow, so a different stamp in this bag is at most
		// e-3 and already safe.
		d.drop(p, b)
		b.epoch = e
	}
	b.refs = append(b.refs, r)
	p.countRetired(1)

	p.since++
	if p.since >= epochCadence {
		p.since = 0
		d.collect(p)
	}
}

// collect tries to advance the epoch and frees every bag it makes safe,
// in p and in every idle record.
func (d *epochs) collect(p *participant) {
	g := d.tryAdvance()
	d.reclaim(p, g)
	d.reclaimIdle(p, g)
}

// tryAdvance moves the global epoch forward if every pinned participant
// has observed the current one, and returns the resulting epoch.
func (d *epochs) tryAdvance() uint64 {
	e := d.global.Load()
	for p := d.head.Load(); p != nil; p = p.next {
		if l := p.local.Load(); l&epochPinned != 0 && l>>1 != e {
			return e
		}
	}
	if d.global.CompareAndSwapAcqRel(e, e+1) {
		return e + 1
	}
	return d.global.Load()
}

// reclaim frees p's bags stamped two or more epochs before g.
// The caller owns p.
func (d *epochs) reclaim(p *participant, g uint64) {
	for i := range p.bags {
		if b := &p.bags[i]; b.epoch+2 <= g {
			d.drop(p, b)
		}
	}
}

// reclaimIdle borrows every idle record that holds retired nodes, other
// than skip, and frees its safe bags. Records in use are left to their
// owners or to a later pass.
func (d *epochs) reclaimIdle(skip *participant, g uint64) {
	for q := d.head.Load(); q != nil; q = q.next {
		if q == skip || !q.pending() || !d.tryOwn(q) {
			continue
		}
		d.reclaim(q, g)
		d.release(q)
	}
}

func (d *epochs) drop(p *participant, b *bag) {
	if len(b.refs) == 0 {
		return
	}
	for _, r := range b.refs {
		d.free(r)
	}
	p.countReclaimed(len(b.refs))
	clear(b.refs)
	b.refs = b.refs[:0]
}

func (d *epochs) quiesce() {
	// Two advances cover every stamp taken before this call. Pinned
	// participants block the advance and keep their bags safe.
	d.tryAdvance()
	d.reclaimIdle(nil, d.tryAdvance())
}
