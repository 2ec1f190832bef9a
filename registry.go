package gcptr

import (
	"sort"
	"unsafe"
)

// record is the bookkeeping for one allocation.
type record struct {
	addr   unsafe.Pointer
	refs   int
	kind   Kind
	length int
	seq    uint64
}

// registry maps allocation identity to its record for a single Key.
//
// It is not safe for concurrent use.
type registry struct {
	key     Key
	records map[unsafe.Pointer]*record
	seq     uint64
	logger  *Logger

	sweeping bool // a sweep is in progress
	shutdown bool // the shutdown hook has run
	releases int  // handle releases since the last sweep
}

func newRegistry(key Key, logger *Logger) *registry {
	return &registry{
		key:     key,
		records: make(map[unsafe.Pointer]*record),
		logger:  logger.WithKey(key),
	}
}

func (r *registry) find(addr unsafe.Pointer) (*record, bool) {
	rec, ok := r.records[addr]
	return rec, ok
}

// findOrRegister returns the record for addr, inserting one with a single
// owner if none exists. It reports whether it inserted. Existing counts are
// left alone; callers decide whether to increment.
func (r *registry) findOrRegister(addr unsafe.Pointer, kind Kind, length int) (*record, bool) {
	if rec, ok := r.records[addr]; ok {
		return rec, false
	}
	r.seq++
	rec := &record{
		addr:   addr,
		refs:   1,
		kind:   kind,
		length: length,
		seq:    r.seq,
	}
	r.records[addr] = rec
	return rec, true
}

func (r *registry) remove(rec *record) {
	delete(r.records, rec.addr)
}

// acquire adds one owner to addr. A nil address is never registered.
func (r *registry) acquire(addr unsafe.Pointer) {
	if addr == nil {
		return
	}
	if rec, inserted := r.findOrRegister(addr, r.key.Kind(), r.key.Length); !inserted {
		rec.refs++
	}
}

// release drops one owner from addr. Unknown addresses and records already at
// zero are left untouched.
func (r *registry) release(addr unsafe.Pointer) {
	if addr == nil {
		return
	}
	if rec, ok := r.records[addr]; ok && rec.refs > 0 {
		rec.refs--
	}
}

func (r *registry) size() int {
	return len(r.records)
}

func (r *registry) firstUnreferenced() *record {
	for _, rec := range r.records {
		if rec.refs == 0 {
			return rec
		}
	}
	return nil
}

// RecordInfo is a diagnostic view of one allocation record.
type RecordInfo struct {
	Addr     uintptr
	RefCount int
	Kind     Kind
	Length   int
	Seq      uint64 // registration order within the registry
}

// sorted returns the records newest first.
func (r *registry) sorted() []*record {
	out := make([]*record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq > out[j].seq })
	return out
}

// snapshot returns the records newest first.
func (r *registry) snapshot() []RecordInfo {
	recs := r.sorted()
	out := make([]RecordInfo, 0, len(recs))
	for _, rec := range recs {
		out = append(out, RecordInfo{
			Addr:     uintptr(rec.addr),
			RefCount: rec.refs,
			Kind:     rec.kind,
			Length:   rec.length,
			Seq:      rec.seq,
		})
	}
	return out
}
