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

// closedBucket is an immutable, sealed view of a former openBucket. It
// supports byte access and pointer-range queries only; there is no path
// back to a mutable bucket without copying.
//
// Raw bytes, not a string: what the bytes encode is a property of the
// producer (openBucket.pushStr copies the bytes of a Go string, with no
// UTF-8 check), not of closedBucket itself, so that a byte-generic
// producer could reuse this type without lying about its contents.
type closedBucket struct {
	data []byte
}

// bytes returns the full sealed byte range.
func (c *closedBucket) bytes() []byte {
	return c.data
}

// len returns the number of bytes sealed into the bucket.
func (c *closedBucket) len() int {
	return len(c.data)
}

// ptr returns the address of the first byte, or nil if the bucket is
// empty.
func (c *closedBucket) ptr() unsafe.Pointer {
	if len(c.data) == 0 {
		return nil
	}
	return unsafe.Pointer(unsafe.SliceData(c.data))
}

// containsPtr reports whether p falls within this bucket's byte range.
func (c *closedBucket) containsPtr(p unsafe.Pointer) bool {
	start := uintptr(c.ptr())
	if start == 0 {
		return false
	}
	off := uintptr(p) - start
	return off < uintptr(len(c.data))
}

// text returns a string view over the sealed bytes. The bytes are not
// validated: openBucket.pushStr copies whatever bytes its string holds,
// so the view is valid UTF-8 only if every string pushed into the
// bucket was.
func (c *closedBucket) text() string {
	return unsafe.String(unsafe.SliceData(c.data), len(c.data))
}
