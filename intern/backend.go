// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package intern

import (
	"log"
	"unsafe"

	"golang.org/x/exp/slices"

	"github.com/sneller-labs/bucketintern/ints"
)

// avgWordLength estimates the expected length of an interned string, for
// pre-sizing the span table. Interned strings in most use-cases are
// identifiers, keywords, or similarly short tokens, which average out
// well below a full cache line.
const avgWordLength = 8

// Backend orchestrates a head (open) bucket plus a list of sealed full
// buckets, assigns symbols of type S, and implements resolution,
// iteration and deep clone. It stores every interned string
// unconditionally: deduplication, if wanted, belongs in a layer above
// Backend, not inside it.
//
// Backend is not safe for concurrent use by multiple goroutines while
// any one of them may be mutating it (Intern, InternStatic,
// ShrinkToFit). A Backend with no in-flight mutation may be read
// concurrently (Resolve, Iter) or handed wholesale to another
// goroutine.
type Backend[S Word] struct {
	spans []InternedRef
	head  *openBucket
	full  []*closedBucket

	// logger, when set, receives diagnostics for conditions that should
	// never happen in correct use (e.g. a double-close). It is nil by
	// default, matching the common WithLogger-style opt-in logging
	// pattern rather than always writing to stderr.
	logger *log.Logger
}

// NewBackend returns an empty backend: no head bucket has been
// allocated yet, and the span table and full-bucket list carry small
// preallocated capacities to reduce the number of reallocations during
// typical use.
func NewBackend[S Word]() *Backend[S] {
	return &Backend[S]{
		spans: make([]InternedRef, 0, 32),
		full:  make([]*closedBucket, 0, 8),
	}
}

// NewBackendWithCapacity returns a backend whose head bucket is
// pre-allocated at n bytes. The span table is pre-sized to the next
// power of two of n / avgWordLength.
func NewBackendWithCapacity[S Word](n int) *Backend[S] {
	spanCap := ints.NextPow2(uint(n / avgWordLength))
	return &Backend[S]{
		spans: make([]InternedRef, 0, spanCap),
		head:  withCapacity(n),
		full:  make([]*closedBucket, 0, 8),
	}
}

// New returns a backend with explicit initial sizing: spanCap spans,
// a head bucket of bucketCap bytes, and room for fullCap sealed
// buckets before the full-bucket list must grow.
func New[S Word](spanCap, bucketCap, fullCap int) *Backend[S] {
	return &Backend[S]{
		spans: make([]InternedRef, 0, spanCap),
		head:  withCapacity(bucketCap),
		full:  make([]*closedBucket, 0, fullCap),
	}
}

// SetLogger installs a logger that receives a message if a bucket is
// ever closed twice, a condition that indicates a bug in this package
// rather than in the caller's use of it.
func (b *Backend[S]) SetLogger(l *log.Logger) {
	b.logger = l
}

// nextHeadCapacity computes the capacity of the next head bucket needed
// to store at least atLeast additional bytes: the growth policy is
// next_power_of_two(max(current_head_capacity, atLeast) + 1). The +1
// guarantees that a head whose capacity is already an exact power of
// two still grows on replacement, instead of allocating a same-sized
// bucket that immediately can't fit the string that triggered growth.
func (b *Backend[S]) nextHeadCapacity(atLeast int) int {
	current := 0
	if b.head != nil {
		current = b.head.capacity()
	}
	return int(ints.NextPow2(uint(ints.Max(current, atLeast) + 1)))
}

// newHead seals the current head (if any) into the full list and
// allocates a fresh head of the given capacity.
func (b *Backend[S]) newHead(capacity int) {
	created := withCapacity(capacity)
	if b.head != nil {
		b.full = append(b.full, b.head.close(b.logger))
	}
	b.head = created
}

// alloc copies s into the head bucket, sealing and replacing the head
// first if it cannot currently store s.
func (b *Backend[S]) alloc(s string) InternedRef {
	if b.head == nil || !b.head.canStore(len(s)) {
		b.newHead(b.nextHeadCapacity(len(s)))
	}
	return b.head.pushStr(s)
}

func (b *Backend[S]) nextSymbol() S {
	return FromIndexUnchecked[S](uint64(len(b.spans)))
}

func (b *Backend[S]) pushSpan(ref InternedRef) S {
	symbol := b.nextSymbol()
	b.spans = append(b.spans, ref)
	return symbol
}

// Intern copies s into the backend unconditionally (no deduplication
// against previously interned strings) and returns the symbol assigned
// to this occurrence.
func (b *Backend[S]) Intern(s string) S {
	return b.pushSpan(b.alloc(s))
}

// InternStatic records a reference to a string with indefinite lifetime
// without copying it into a bucket. The returned symbol resolves to a
// text view whose underlying pointer equals s's own address.
func (b *Backend[S]) InternStatic(s string) S {
	return b.pushSpan(newStaticRef(s))
}

// Resolve looks up the string associated with symbol, or reports false
// if symbol's index is past the end of the span table (e.g. a symbol
// forged from an arbitrary integer, or one produced by another
// backend).
func (b *Backend[S]) Resolve(symbol S) (string, bool) {
	idx := ToIndex(symbol)
	if idx >= uint64(len(b.spans)) {
		return "", false
	}
	return b.spans[idx].Text(), true
}

// ResolveUnchecked looks up the string associated with symbol without a
// bounds check. The caller warrants that symbol was produced by this
// backend (or an earlier clone of it) and has not been invalidated.
func (b *Backend[S]) ResolveUnchecked(symbol S) string {
	return b.spans[ToIndex(symbol)].Text()
}

// ShrinkToFit compacts the span table and full-bucket list to their
// current lengths. It does not trim the head bucket's unused tail: doing
// so would require reallocating the head and would invalidate every
// previously issued InternedRef into it, which is exactly the guarantee
// this package exists to uphold (see DESIGN.md).
func (b *Backend[S]) ShrinkToFit() {
	if len(b.spans) < cap(b.spans) {
		b.spans = slices.Clone(b.spans)
	}
	if len(b.full) < cap(b.full) {
		b.full = slices.Clone(b.full)
	}
}

// Iterator yields (symbol, text) pairs in ascending symbol order over
// the spans present at the time the iterator was created. Spans
// interned after creation are not visible to an already-created
// iterator.
type Iterator[S Word] struct {
	backend *Backend[S]
	next    int
	end     int
}

// Iter returns a finite, single-pass iterator over the spans currently
// present in the backend.
func (b *Backend[S]) Iter() *Iterator[S] {
	return &Iterator[S]{backend: b, end: len(b.spans)}
}

// Next returns the next (symbol, text) pair, or ok == false once the
// snapshot taken at iterator creation is exhausted.
func (it *Iterator[S]) Next() (symbol S, text string, ok bool) {
	if it.next >= it.end {
		return symbol, "", false
	}
	idx := it.next
	it.next++
	return FromIndexUnchecked[S](uint64(idx)), it.backend.spans[idx].Text(), true
}

// Len reports the number of pairs remaining in this iterator. It is
// exact, matching the span count frozen at iterator creation.
func (it *Iterator[S]) Len() int {
	return it.end - it.next
}

// section describes one contiguous owned byte range (a sealed bucket,
// or the live head) as it existed in the source backend, along with the
// offset it will occupy inside the clone's single consolidated bucket.
type section struct {
	start, end unsafe.Pointer
	globalOff  int
}

func (s section) contains(p unsafe.Pointer) bool {
	off := uintptr(p) - uintptr(s.start)
	return off < uintptr(s.end)-uintptr(s.start)
}

// Clone produces an independent backend whose resolve and iteration
// results are identical to b's, but whose storage is a single, freshly
// compacted arena: every closed bucket and the live head are
// concatenated in order into one new bucket, collapsing whatever
// fragmentation b had accumulated. Static spans are not copied; they
// keep pointing at their original, externally owned bytes.
func (b *Backend[S]) Clone() *Backend[S] {
	total := 0
	for _, cb := range b.full {
		total += cb.len()
	}
	if b.head != nil {
		total += b.head.len()
	}

	sections := make([]section, 0, len(b.full)+1)
	consolidated := withCapacity(total)
	offset := 0
	for _, cb := range b.full {
		start := cb.ptr()
		sections = append(sections, section{start: start, end: unsafe.Add(start, cb.len()), globalOff: offset})
		consolidated.data = append(consolidated.data, cb.bytes()...)
		offset += cb.len()
	}
	if b.head != nil {
		start := b.head.ptr()
		sections = append(sections, section{start: start, end: unsafe.Add(start, b.head.len()), globalOff: offset})
		consolidated.data = append(consolidated.data, b.head.data...)
		offset += b.head.len()
	}
	sealed := consolidated.close(b.logger)

	newSpans := make([]InternedRef, len(b.spans))
	for i, span := range b.spans {
		if span.isStatic() {
			newSpans[i] = span
			continue
		}
		p := span.Ptr()
		for _, sec := range sections {
			if sec.contains(p) {
				localOff := int(uintptr(p) - uintptr(sec.start))
				newSpans[i] = newBucketRef(unsafe.Add(sealed.ptr(), sec.globalOff+localOff), span.Len())
				break
			}
		}
	}

	var newHead *openBucket
	if b.head != nil {
		newHead = withCapacity(b.head.capacity())
	}

	return &Backend[S]{
		spans:  newSpans,
		head:   newHead,
		full:   []*closedBucket{sealed},
		logger: b.logger,
	}
}

// Equal reports whether b and other resolve every span to byte-equal
// text, in the same order. This is content equality, not pointer
// equality: two backends holding the same strings in different
// buckets are Equal. It is O(total bytes) across both backends, since
// comparing pointers directly would compare meaningless cross-backend
// addresses.
func (b *Backend[S]) Equal(other *Backend[S]) bool {
	if len(b.spans) != len(other.spans) {
		return false
	}
	for i := range b.spans {
		if b.spans[i].Text() != other.spans[i].Text() {
			return false
		}
	}
	return true
}
