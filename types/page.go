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

// DefaultPageSize is used when a PageRequest of the FindAll family carries
// no size.
const DefaultPageSize = 10

// PageRequest selects one zero-based page of a result set: skip Index*Size,
// limit Size.
//
// Negative values are read as 0: a negative index is the first page and a
// negative size is no limit. The driver would otherwise send a negative
// skip, which the server rejects, or a negative limit, which the server reads
// as "single batch" and which silently truncates the page.
type PageRequest struct {
	Index int
	Size  int
}

// NewPageRequest constructs a PageRequest for the given zero-based index.
func NewPageRequest(index int, size int) PageRequest {
	return PageRequest{Index: index, Size: size}
}

// DefaultPageRequest is page 0 of DefaultPageSize documents.
func DefaultPageRequest() PageRequest {
	return PageRequest{Index: 0, Size: DefaultPageSize}
}

// GetPageIndex returns the page index, never negative.
func (p PageRequest) GetPageIndex() int {
	if p.Index < 0 {
		return 0
	}
	return p.Index
}

// GetPageSize returns the page size, never negative. A zero size means no limit.
func (p PageRequest) GetPageSize() int {
	if p.Size < 0 {
		return 0
	}
	return p.Size
}

// GetSkip returns the number of documents to skip.
func (p PageRequest) GetSkip() int64 {
	return int64(p.GetPageIndex()) * int64(p.GetPageSize())
}

// GetLimit returns the maximum number of documents to return.
func (p PageRequest) GetLimit() int64 {
	return int64(p.GetPageSize())
}

// WithDefaultSize returns p with Size replaced by size when p has none.
func (p PageRequest) WithDefaultSize(size int) PageRequest {
	if p.Size <= 0 {
		p.Size = size
	}
	return p
}

// Sort orders a query by a single field.
type Sort struct {
	Field     string
	Direction Direction
}

// SortBy orders by field using the query family's default direction.
func SortBy(field string) Sort {
	return Sort{Field: field}
}

// Asc returns s ordered ascending.
func (s Sort) Asc() Sort {
	s.Direction = Ascending
	return s
}

// Desc returns s ordered descending.
func (s Sort) Desc() Sort {
	s.Direction = Descending
	return s
}

// WithDirection returns s with an explicit isDescending flag applied.
func (s Sort) WithDirection(isDescending bool) Sort {
	s.Direction = DirectionOf(isDescending)
	return s
}

// Resolve fills in the family default direction and the identity field when
// s carries none.
func (s Sort) Resolve(def Direction) Sort {
	if s.Field == "" {
		s.Field = IDField
	}
	s.Direction = s.Direction.Resolve(def)
	return s
}

// Invert returns s with its direction flipped. s must be resolved.
func (s Sort) Invert() Sort {
	s.Direction = s.Direction.Invert()
	return s
}

// Pagination holds paged result items along with pagination metadata.
type Pagination[T any] struct {
	Page     int
	PageSize int
	Total    int64
	Items    []*T
}

// NewDefaultPagination constructs an empty pagination container.
func NewDefaultPagination[T any](page int, pageSize int) *Pagination[T] {
	return &Pagination[T]{page, pageSize, 0, make([]*T, 0)}
}

// TotalPages returns the number of pages needed for Total items.
func (p *Pagination[T]) TotalPages() int64 {
	if p.PageSize <= 0 {
		if p.Total > 0 {
			return 1
		}
		return 0
	}
	size := int64(p.PageSize)
	return (p.Total + size - 1) / size
}
