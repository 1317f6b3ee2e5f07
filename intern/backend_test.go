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
	"fmt"
	"testing"
	"unsafe"
)

func TestBasicInternResolve(t *testing.T) {
	b := NewBackend[Symbol32]()
	hello := b.Intern("hello")
	world := b.Intern("world")

	if ToIndex(hello) != 0 {
		t.Fatalf("index of first intern = %d, want 0", ToIndex(hello))
	}
	if ToIndex(world) != 1 {
		t.Fatalf("index of second intern = %d, want 1", ToIndex(world))
	}

	if s, ok := b.Resolve(hello); !ok || s != "hello" {
		t.Fatalf("Resolve(hello) = (%q, %v), want (hello, true)", s, ok)
	}
	if s, ok := b.Resolve(world); !ok || s != "world" {
		t.Fatalf("Resolve(world) = (%q, %v), want (world, true)", s, ok)
	}
	missing, _ := TryFromIndex[Symbol32](2)
	if _, ok := b.Resolve(missing); ok {
		t.Fatal("Resolve of an unassigned index should report false")
	}
}

func TestDuplicateInterningNoDedup(t *testing.T) {
	b := NewBackend[Symbol32]()
	a1 := b.Intern("a")
	a2 := b.Intern("a")

	if ToIndex(a1) != 0 || ToIndex(a2) != 1 {
		t.Fatalf("unexpected indices: %d, %d", ToIndex(a1), ToIndex(a2))
	}
	s1, _ := b.Resolve(a1)
	s2, _ := b.Resolve(a2)
	if s1 != "a" || s2 != "a" {
		t.Fatalf("both should resolve to %q: got %q, %q", "a", s1, s2)
	}
	if b.spans[0].Equal(b.spans[1]) {
		t.Fatal("duplicate interns must produce refs at distinct addresses")
	}
}

func TestAddressStabilityAcrossGrowth(t *testing.T) {
	b := NewBackendWithCapacity[Symbol32](4)
	first := b.Intern("abc")
	text, _ := b.Resolve(first)
	ptr := b.spans[0].Ptr()
	_ = text

	for i := 0; i < 50; i++ {
		b.Intern(fmt.Sprintf("str%05d", i)) // 8 bytes each
	}

	if b.spans[0].Ptr() != ptr {
		t.Fatal("captured pointer for an earlier span must not move")
	}
	got, ok := b.Resolve(first)
	if !ok || got != "abc" {
		t.Fatalf("Resolve(first) after growth = (%q, %v), want (abc, true)", got, ok)
	}
}

func TestOversizeInput(t *testing.T) {
	b := NewBackendWithCapacity[Symbol32](4)
	sym := b.Intern("abcdefghij") // len 10
	got, ok := b.Resolve(sym)
	if !ok || got != "abcdefghij" {
		t.Fatalf("Resolve = (%q, %v), want (abcdefghij, true)", got, ok)
	}
	if len(b.full) != 1 {
		t.Fatalf("expected the undersized initial head to have been sealed, got %d full buckets", len(b.full))
	}
	if b.head.capacity() < 16 {
		t.Fatalf("growth policy should have produced capacity >= 16, got %d", b.head.capacity())
	}
}

func TestCloneRelocation(t *testing.T) {
	b := NewBackend[Symbol32]()
	b.Intern("one")
	b.Intern("two")
	staticSym := b.InternStatic("three")
	pStaticBefore := b.spans[ToIndex(staticSym)].Ptr()

	c := b.Clone()

	if s, ok := c.Resolve(FromIndexUnchecked[Symbol32](0)); !ok || s != "one" {
		t.Fatalf("clone Resolve(0) = (%q, %v), want (one, true)", s, ok)
	}
	if s, ok := c.Resolve(FromIndexUnchecked[Symbol32](1)); !ok || s != "two" {
		t.Fatalf("clone Resolve(1) = (%q, %v), want (two, true)", s, ok)
	}
	if s, ok := c.Resolve(staticSym); !ok || s != "three" {
		t.Fatalf("clone Resolve(2) = (%q, %v), want (three, true)", s, ok)
	}

	if c.spans[0].Ptr() == b.spans[0].Ptr() {
		t.Fatal("clone's owned span 0 must not alias the source's address")
	}
	if c.spans[ToIndex(staticSym)].Ptr() != pStaticBefore {
		t.Fatal("clone's static span must keep the original static pointer")
	}
}

func TestIterationSnapshot(t *testing.T) {
	b := NewBackend[Symbol32]()
	b.Intern("s0")
	b.Intern("s1")
	b.Intern("s2")

	it := b.Iter()
	b.Intern("s3")

	var got []string
	for {
		sym, text, ok := it.Next()
		if !ok {
			break
		}
		if ToIndex(sym) != uint64(len(got)) {
			t.Fatalf("unexpected symbol index %d at position %d", ToIndex(sym), len(got))
		}
		got = append(got, text)
	}
	if len(got) != 3 {
		t.Fatalf("iterator yielded %d items, want 3", len(got))
	}
	want := []string{"s0", "s1", "s2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("item %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestShrinkToFitDoesNotTouchHeadTail(t *testing.T) {
	b := NewBackendWithCapacity[Symbol32](64)
	b.Intern("x")
	before := b.head.capacity()
	b.ShrinkToFit()
	if b.head.capacity() != before {
		t.Fatalf("ShrinkToFit must not change head capacity: before %d, after %d", before, b.head.capacity())
	}
}

func TestEqual(t *testing.T) {
	a := NewBackend[Symbol32]()
	a.Intern("x")
	a.Intern("y")

	b := NewBackendWithCapacity[Symbol32](1) // different bucket layout
	b.Intern("x")
	b.Intern("y")

	if !a.Equal(b) {
		t.Fatal("backends with the same resolved span sequence should be Equal")
	}

	b.Intern("z")
	if a.Equal(b) {
		t.Fatal("backends with different span counts should not be Equal")
	}
}

func TestGrowthMonotonicity(t *testing.T) {
	b := NewBackendWithCapacity[Symbol32](4)
	maxCap := 0
	seen := 0
	for i := 0; i < 200; i++ {
		prevHeadCap := 0
		if b.head != nil {
			prevHeadCap = b.head.capacity()
		}
		b.Intern(fmt.Sprintf("item-%d", i))
		if b.head.capacity() != prevHeadCap {
			if b.head.capacity() < maxCap {
				t.Fatalf("new head capacity %d is smaller than a prior head capacity %d", b.head.capacity(), maxCap)
			}
			maxCap = b.head.capacity()
			seen++
		}
	}
	if seen == 0 {
		t.Fatal("expected at least one head replacement over 200 interns")
	}
}

func TestInternStaticResolvesToOriginalAddress(t *testing.T) {
	const s = "a static string"
	b := NewBackend[Symbol32]()
	sym := b.InternStatic(s)
	text, ok := b.Resolve(sym)
	if !ok || text != s {
		t.Fatalf("Resolve = (%q, %v), want (%q, true)", text, ok, s)
	}
	if unsafe.StringData(text) != unsafe.StringData(s) {
		t.Fatal("resolved static text must point at the original string's data")
	}
}

func TestResolveUnchecked(t *testing.T) {
	b := NewBackend[Symbol32]()
	sym := b.Intern("unchecked")
	if b.ResolveUnchecked(sym) != "unchecked" {
		t.Fatalf("ResolveUnchecked = %q, want unchecked", b.ResolveUnchecked(sym))
	}
}
