/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

// Common illegal/default values used by enums.
const (
	IllegalValue = -1
	IllegalName  = "unknown"
	IllegalDesc  = "unknown"
)

// BaseEnum represents a basic enum contract used by domain types.
type BaseEnum interface {
	IsValid() bool
	Number() int
	String() string
	Desc() string
	Name() string
}

// Direction is the sort direction of an ordered query. The zero value
// DirectionDefault defers to the default of the query family it is used in.
type Direction int

const (
	DirectionDefault Direction = iota
	Ascending
	Descending
)

// Family defaults applied when a Sort carries DirectionDefault.
const (
	FindDefaultDirection    = Descending
	FindAllDefaultDirection = Descending
	FirstDefaultDirection   = Ascending
	LastDefaultDirection    = Ascending
)

var _ BaseEnum = Direction(0)

func (d Direction) IsValid() bool {
	return d >= DirectionDefault && d <= Descending
}

func (d Direction) Number() int {
	if !d.IsValid() {
		return IllegalValue
	}
	return int(d)
}

func (d Direction) String() string {
	return d.Name()
}

func (d Direction) Name() string {
	switch d {
	case DirectionDefault:
		return "default"
	case Ascending:
		return "asc"
	case Descending:
		return "desc"
	default:
		return IllegalName
	}
}

func (d Direction) Desc() string {
	switch d {
	case DirectionDefault:
		return "query family default"
	case Ascending:
		return "ascending order"
	case Descending:
		return "descending order"
	default:
		return IllegalDesc
	}
}

// Resolve returns def when d is DirectionDefault, d otherwise.
func (d Direction) Resolve(def Direction) Direction {
	if d == DirectionDefault {
		return def
	}
	return d
}

// Invert flips an explicit direction. DirectionDefault is returned unchanged,
// so callers resolve before inverting.
func (d Direction) Invert() Direction {
	switch d {
	case Ascending:
		return Descending
	case Descending:
		return Ascending
	default:
		return d
	}
}

// IsDescending reports whether d is Descending.
func (d Direction) IsDescending() bool { return d == Descending }

// SortValue returns the value used in a sort document: 1 or -1.
func (d Direction) SortValue() int {
	if d == Descending {
		return -1
	}
	return 1
}

// DirectionOf maps an isDescending flag onto a Direction.
func DirectionOf(isDescending bool) Direction {
	if isDescending {
		return Descending
	}
	return Ascending
}
