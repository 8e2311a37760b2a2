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

// Package memstore is an in-memory stand-in for a MongoDB collection. It
// understands equality and comparison filters, $and, $or, $in, sort, skip,
// limit and the $set, $unset, $inc and $currentDate update operators.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const duplicateKeyCode = 11000

// Call records one operation issued against the collection.
type Call struct {
	Op     string
	Filter bson.D
	Update bson.D
	Find   *options.FindOptions
	Count  *options.CountOptions
}

// Collection stores documents as bson.M in insertion order.
type Collection struct {
	mu    sync.Mutex
	name  string
	docs  []bson.M
	now   func() time.Time
	err   error
	calls []Call
}

// New returns an empty collection called name.
func New(name string) *Collection {
	return &Collection{name: name, now: time.Now}
}

// SetClock replaces the time source used by $currentDate.
func (c *Collection) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// FailWith makes every following operation return err. A nil err clears it.
func (c *Collection) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Calls returns the operations issued so far.
func (c *Collection) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// LastCall returns the most recent operation with the given name.
func (c *Collection) LastCall(op string) (Call, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.calls) - 1; i >= 0; i-- {
		if c.calls[i].Op == op {
			return c.calls[i], true
		}
	}
	return Call{}, false
}

// Len returns the number of stored documents.
func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs)
}

func (c *Collection) Name() string { return c.name }

func (c *Collection) InsertOne(_ context.Context, document any, _ ...options.Lister[options.InsertOneOptions]) (*mongo.InsertOneResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{Op: "insertOne"})
	if c.err != nil {
		return nil, c.err
	}
	doc, err := c.prepare(document, 0)
	if err != nil {
		return nil, err
	}
	c.docs = append(c.docs, doc)
	return &mongo.InsertOneResult{InsertedID: doc["_id"], Acknowledged: true}, nil
}

func (c *Collection) InsertMany(_ context.Context, documents any, _ ...options.Lister[options.InsertManyOptions]) (*mongo.InsertManyResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{Op: "insertMany"})
	if c.err != nil {
		return nil, c.err
	}
	items, err := toSlice(documents)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, mongo.ErrEmptySlice
	}
	result := &mongo.InsertManyResult{Acknowledged: true}
	for i, item := range items {
		doc, err := c.prepare(item, i)
		if err != nil {
			return result, err
		}
		c.docs = append(c.docs, doc)
		result.InsertedIDs = append(result.InsertedIDs, doc["_id"])
	}
	return result, nil
}

func (c *Collection) DeleteOne(_ context.Context, filter any, _ ...options.Lister[options.DeleteOneOptions]) (*mongo.DeleteResult, error) {
	return c.delete("deleteOne", filter, 1)
}

func (c *Collection) DeleteMany(_ context.Context, filter any, _ ...options.Lister[options.DeleteManyOptions]) (*mongo.DeleteResult, error) {
	return c.delete("deleteMany", filter, -1)
}

func (c *Collection) delete(op string, filter any, max int) (*mongo.DeleteResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, err := normalize(filter)
	c.calls = append(c.calls, Call{Op: op, Filter: f})
	if c.err != nil {
		return nil, c.err
	}
	if err != nil {
		return nil, err
	}
	kept := c.docs[:0:0]
	var deleted int64
	for _, doc := range c.docs {
		if (max < 0 || deleted < int64(max)) && matches(doc, f) {
			deleted++
			continue
		}
		kept = append(kept, doc)
	}
	c.docs = kept
	return &mongo.DeleteResult{DeletedCount: deleted, Acknowledged: true}, nil
}

func (c *Collection) Find(_ context.Context, filter any, opts ...options.Lister[options.FindOptions]) (*mongo.Cursor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, err := normalize(filter)
	fo := &options.FindOptions{}
	for _, o := range opts {
		for _, set := range o.List() {
			if e := set(fo); e != nil && err == nil {
				err = e
			}
		}
	}
	c.calls = append(c.calls, Call{Op: "find", Filter: f, Find: fo})
	if c.err != nil {
		return nil, c.err
	}
	if err != nil {
		return nil, err
	}

	found := c.match(f)
	if fo.Sort != nil {
		keys, err := normalize(fo.Sort)
		if err != nil {
			return nil, err
		}
		sortDocs(found, keys)
	}
	found = window(found, fo.Skip, fo.Limit)

	out := make([]any, len(found))
	for i, doc := range found {
		out[i] = doc
	}
	return mongo.NewCursorFromDocuments(out, nil, nil)
}

func (c *Collection) UpdateMany(_ context.Context, filter any, update any, _ ...options.Lister[options.UpdateManyOptions]) (*mongo.UpdateResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, err := normalize(filter)
	u, uerr := normalize(update)
	c.calls = append(c.calls, Call{Op: "updateMany", Filter: f, Update: u})
	if c.err != nil {
		return nil, c.err
	}
	if err != nil {
		return nil, err
	}
	if uerr != nil {
		return nil, uerr
	}
	if len(u) == 0 {
		return nil, fmt.Errorf("update document must not be empty")
	}
	result := &mongo.UpdateResult{Acknowledged: true}
	for _, doc := range c.docs {
		if !matches(doc, f) {
			continue
		}
		result.MatchedCount++
		if err := applyUpdate(doc, u, c.now()); err != nil {
			return nil, err
		}
		result.ModifiedCount++
	}
	return result, nil
}

func (c *Collection) CountDocuments(_ context.Context, filter any, opts ...options.Lister[options.CountOptions]) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, err := normalize(filter)
	co := &options.CountOptions{}
	for _, o := range opts {
		for _, set := range o.List() {
			if e := set(co); e != nil && err == nil {
				err = e
			}
		}
	}
	c.calls = append(c.calls, Call{Op: "count", Filter: f, Count: co})
	if c.err != nil {
		return 0, c.err
	}
	if err != nil {
		return 0, err
	}
	return int64(len(window(c.match(f), co.Skip, co.Limit))), nil
}

func (c *Collection) match(filter bson.D) []bson.M {
	var found []bson.M
	for _, doc := range c.docs {
		if matches(doc, filter) {
			found = append(found, doc)
		}
	}
	return found
}

func (c *Collection) prepare(document any, index int) (bson.M, error) {
	data, err := bson.Marshal(document)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if _, ok := doc["_id"]; !ok {
		doc["_id"] = bson.NewObjectID()
	}
	for _, existing := range c.docs {
		if cmp, ok := compare(existing["_id"], doc["_id"]); ok && cmp == 0 {
			return nil, mongo.WriteException{WriteErrors: mongo.WriteErrors{{
				Index:   index,
				Code:    duplicateKeyCode,
				Message: fmt.Sprintf("E11000 duplicate key error collection: %s index: _id_ dup key: { _id: %v }", c.name, doc["_id"]),
			}}}
		}
	}
	return doc, nil
}

func toSlice(documents any) ([]any, error) {
	switch v := documents.(type) {
	case []any:
		return v, nil
	case nil:
		return nil, fmt.Errorf("documents must not be nil")
	}
	data, err := bson.Marshal(bson.D{{Key: "v", Value: documents}})
	if err != nil {
		return nil, err
	}
	var wrapped struct {
		V bson.A `bson:"v"`
	}
	if err := bson.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	return []any(wrapped.V), nil
}

// normalize converts any marshalable document to bson.D with the driver's
// decoded value types.
func normalize(v any) (bson.D, error) {
	if v == nil {
		return bson.D{}, nil
	}
	data, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var d bson.D
	if err := bson.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return d, nil
}

func window(docs []bson.M, skip, limit *int64) []bson.M {
	if skip != nil && *skip > 0 {
		if *skip >= int64(len(docs)) {
			return nil
		}
		docs = docs[*skip:]
	}
	if limit != nil && *limit != 0 {
		n := *limit
		if n < 0 {
			n = -n
		}
		if n < int64(len(docs)) {
			docs = docs[:n]
		}
	}
	return docs
}

func sortDocs(docs []bson.M, keys bson.D) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, key := range keys {
			a, _ := lookup(docs[i], key.Key)
			b, _ := lookup(docs[j], key.Key)
			cmp := order(a, b)
			if cmp == 0 {
				continue
			}
			if direction(key.Value) < 0 {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func direction(v any) int {
	if f, ok := number(v); ok && f < 0 {
		return -1
	}
	return 1
}

func lookup(doc any, path string) (any, bool) {
	cur := doc
	for _, part := range strings.Split(path, ".") {
		switch d := cur.(type) {
		case bson.M:
			v, ok := d[part]
			if !ok {
				return nil, false
			}
			cur = v
		case bson.D:
			found := false
			for _, e := range d {
				if e.Key == part {
					cur, found = e.Value, true
					break
				}
			}
			if !found {
				return nil, false
			}
		default:
			return nil, false
		}
	}
	return cur, true
}

func matches(doc bson.M, filter bson.D) bool {
	for _, e := range filter {
		switch e.Key {
		case "$and":
			for _, sub := range subFilters(e.Value) {
				if !matches(doc, sub) {
					return false
				}
			}
		case "$or":
			matched := false
			for _, sub := range subFilters(e.Value) {
				if matches(doc, sub) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		default:
			value, present := lookup(doc, e.Key)
			if !matchField(value, present, e.Value) {
				return false
			}
		}
	}
	return true
}

func subFilters(v any) []bson.D {
	arr, _ := v.(bson.A)
	out := make([]bson.D, 0, len(arr))
	for _, item := range arr {
		if d, ok := item.(bson.D); ok {
			out = append(out, d)
		}
	}
	return out
}

func isOperatorDoc(v any) (bson.D, bool) {
	d, ok := v.(bson.D)
	if !ok || len(d) == 0 {
		return nil, false
	}
	for _, e := range d {
		if !strings.HasPrefix(e.Key, "$") {
			return nil, false
		}
	}
	return d, true
}

func matchField(value any, present bool, cond any) bool {
	ops, ok := isOperatorDoc(cond)
	if !ok {
		return present && equal(value, cond)
	}
	for _, op := range ops {
		cmp, comparable := compare(value, op.Value)
		switch op.Key {
		case "$eq":
			if !present || !equal(value, op.Value) {
				return false
			}
		case "$ne":
			if present && equal(value, op.Value) {
				return false
			}
		case "$gt":
			if !present || !comparable || cmp <= 0 {
				return false
			}
		case "$gte":
			if !present || !comparable || cmp < 0 {
				return false
			}
		case "$lt":
			if !present || !comparable || cmp >= 0 {
				return false
			}
		case "$lte":
			if !present || !comparable || cmp > 0 {
				return false
			}
		case "$in":
			if !present || !contains(op.Value, value) {
				return false
			}
		case "$nin":
			if present && contains(op.Value, value) {
				return false
			}
		case "$exists":
			if want, _ := op.Value.(bool); want != present {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func contains(list any, value any) bool {
	arr, _ := list.(bson.A)
	for _, item := range arr {
		if equal(value, item) {
			return true
		}
	}
	return false
}

func equal(a, b any) bool {
	if arr, ok := a.(bson.A); ok {
		for _, item := range arr {
			if equal(item, b) {
				return true
			}
		}
		return false
	}
	cmp, ok := compare(a, b)
	return ok && cmp == 0
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// compare orders two values of the same kind.
func compare(a, b any) (int, bool) {
	if x, ok := number(a); ok {
		y, ok := number(b)
		if !ok {
			return 0, false
		}
		return cmpOrdered(x, y), true
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		return cmpOrdered(boolInt(x), boolInt(y)), true
	case bson.DateTime:
		y, ok := b.(bson.DateTime)
		if !ok {
			return 0, false
		}
		return cmpOrdered(int64(x), int64(y)), true
	case bson.ObjectID:
		y, ok := b.(bson.ObjectID)
		if !ok {
			return 0, false
		}
		return strings.Compare(x.Hex(), y.Hex()), true
	case nil:
		if b == nil {
			return 0, true
		}
	}
	return 0, false
}

// order is a total order for sorting: values of different kinds are ranked
// by kind.
func order(a, b any) int {
	if cmp, ok := compare(a, b); ok {
		return cmp
	}
	return cmpOrdered(rank(a), rank(b))
}

func rank(v any) int {
	if _, ok := number(v); ok {
		return 2
	}
	switch v.(type) {
	case nil:
		return 1
	case string:
		return 3
	case bson.D, bson.M:
		return 4
	case bson.A:
		return 5
	case bson.ObjectID:
		return 7
	case bool:
		return 8
	case bson.DateTime:
		return 9
	}
	return 10
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func cmpOrdered[N int | int64 | float64](a, b N) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func applyUpdate(doc bson.M, update bson.D, now time.Time) error {
	for _, op := range update {
		fields, ok := op.Value.(bson.D)
		if !ok {
			return fmt.Errorf("update operator %s requires a document", op.Key)
		}
		for _, f := range fields {
			switch op.Key {
			case "$set":
				doc[f.Key] = f.Value
			case "$unset":
				delete(doc, f.Key)
			case "$inc":
				delta, ok := number(f.Value)
				if !ok {
					return fmt.Errorf("cannot increment with non-numeric argument")
				}
				current, _ := number(doc[f.Key])
				switch f.Value.(type) {
				case float64:
					doc[f.Key] = current + delta
				case int32:
					if _, isFloat := doc[f.Key].(float64); isFloat {
						doc[f.Key] = current + delta
					} else if _, isLong := doc[f.Key].(int64); isLong {
						doc[f.Key] = int64(current + delta)
					} else {
						doc[f.Key] = int32(current + delta)
					}
				default:
					doc[f.Key] = int64(current + delta)
				}
			case "$currentDate":
				doc[f.Key] = bson.NewDateTimeFromTime(now)
			default:
				return fmt.Errorf("unknown update operator %s", op.Key)
			}
		}
	}
	return nil
}
