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

import "unsafe"

// origin classifies where an InternedRef's bytes live. It is assigned
// once, at construction, rather than re-derived later by scanning every
// bucket's pointer range: the clone algorithm (backend.go) needs to tell
// static spans apart from owned ones, and tagging at creation turns that
// from an O(spans x buckets) containment scan into an O(1) field read.
type origin uint8

const (
	originBucket origin = iota
	originStatic
)

// InternedRef is a pointer+length view of a UTF-8 byte range owned by
// some bucket, or of a caller-supplied static string. Two refs are equal
// iff they point at the same address: separately interned copies of an
// identical non-empty string produce distinct, non-equal refs. Empty
// strings occupy no bytes, so two of them interned back to back into the
// same bucket share an address and are Equal. String-equality
// against a plain string is a byte comparison of the referenced range,
// done through Text.
//
// The zero InternedRef is not meaningful; refs are only produced by
// newBucketRef or newStaticRef.
type InternedRef struct {
	ptr    unsafe.Pointer
	length int
	from   origin
}

// newBucketRef builds a ref into bytes owned by one of the backend's own
// buckets, starting at ptr, extending for length bytes.
func newBucketRef(ptr unsafe.Pointer, length int) InternedRef {
	return InternedRef{ptr: ptr, length: length, from: originBucket}
}

// newStaticRef builds a ref over a caller-supplied string with
// indefinite lifetime. It bypasses bucket allocation entirely.
func newStaticRef(s string) InternedRef {
	var ptr unsafe.Pointer
	if len(s) > 0 {
		ptr = unsafe.Pointer(unsafe.StringData(s))
	}
	return InternedRef{ptr: ptr, length: len(s), from: originStatic}
}

// Text returns the UTF-8 string this reference addresses. The returned
// string aliases the owning bucket's (or the static string's) backing
// storage; it remains valid for as long as the interner that produced it
// is alive.
func (r InternedRef) Text() string {
	if r.length == 0 {
		return ""
	}
	return unsafe.String((*byte)(r.ptr), r.length)
}

// Len reports the byte length of the referenced range.
func (r InternedRef) Len() int {
	return r.length
}

// Ptr returns the address of the first byte of the referenced range.
// Two refs produced from byte-identical non-empty input are only
// Ptr-equal if they were produced by the exact same Intern/InternStatic
// call.
func (r InternedRef) Ptr() unsafe.Pointer {
	return r.ptr
}

// Equal reports whether r and o reference the same address: identity,
// not content, equality.
func (r InternedRef) Equal(o InternedRef) bool {
	return r.ptr == o.ptr
}

// isStatic reports whether r was produced by InternStatic rather than by
// copying into a bucket.
func (r InternedRef) isStatic() bool {
	return r.from == originStatic
}
