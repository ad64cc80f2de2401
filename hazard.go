// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msq

import "slices"

const hazardThreshold = 64 // Minimum retired list length before a scan

// hazards is a hazard-pointer reclamation domain.
//
// Each participant owns hazardSlots published references. A protect is a
// sequentially consistent store; the caller then reloads the location the
// ref was read from and retries if it changed. A retired node is freed by
// a scan that finds no published hazard with the same slot index.
// Matching on the index ignores generations, so a stale hazard can only
// delay a free, never allow one.
type hazards struct {
	registry
	free func(ref)
}

func newHazards(free func(ref)) *hazards {
	return &hazards{free: free}
}

func (d *hazards) pin() *participant {
	return d.acquire()
}

func (d *hazards) protect(p *participant, slot int, r ref) {
	p.hazards[slot].Store(uint64(r))
}

func (d *hazards) unpin(p *participant) {
	for i := range p.hazards {
		p.hazards[i].StoreRelease(uint64(nilRef))
	}
	d.release(p)
}

func (d *hazards) retire(p *participant, r ref) {
	p.retired = append(p.retired, r)
	p.countRetired(1)
	if len(p.retired) >= d.threshold() {
		d.scan(p)
	}
}

// threshold keeps scans amortized: at least twice the number of hazards
// that can be published at once.
func (d *hazards) threshold() int {
	return max(hazardThreshold, 2*hazardSlots*int(d.count.LoadRelaxed()))
}

// scan frees every node on p's retired list that no participant protects.
func (d *hazards) scan(p *participant) {
	live := p.scratch[:0]
	for q := d.head.Load(); q != nil; q = q.next {
		for i := range q.hazards {
			if h := ref(q.hazards[i].Load()); h != nilRef {
				live = append(live, h.index())
			}
		}
	}
	slices.Sort(live)
	p.scratch = live

	kept := p.retired[:0]
	freed := 0
	for _, r := range p.retired {
		if _, found := slices.BinarySearch(live, r.index()); found {
			kept = append(kept, r)
			continue
		}
		d.free(r)
		freed++
	}
	clear(p.retired[len(kept):])
	p.retired = kept
	p.countReclaimed(freed)
}

func (d *hazards) quiesce() {
	for p := d.head.Load(); p != nil; p = p.next {
		if !d.tryOwn(p) {
			continue
		}
		if len(p.retired) > 0 {
			d.scan(p)
		}
		d.release(p)
	}
}
