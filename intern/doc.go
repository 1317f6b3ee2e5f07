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

// Package intern implements a bucket-based backend for string interning:
// it maps strings to small integer Symbols and resolves them to strings
// that alias bucket storage whose address is guaranteed stable for the
// lifetime of the owning Backend, so callers may retain resolved strings
// while interning continues.
//
// Backend stores every interned string unconditionally; it performs no
// deduplication. A caller that wants get-or-intern semantics should keep
// its own map[string]Symbol above this package and only call Intern on a
// miss.
package intern
