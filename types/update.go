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

import "go.mongodb.org/mongo-driver/v2/bson"

// Set assigns value to field.
func Set(field string, value any) bson.D {
	return bson.D{{Key: "$set", Value: bson.D{{Key: field, Value: value}}}}
}

// Unset removes field.
func Unset(field string) bson.D {
	return bson.D{{Key: "$unset", Value: bson.D{{Key: field, Value: ""}}}}
}

// Inc increments field by delta.
func Inc(field string, delta any) bson.D {
	return bson.D{{Key: "$inc", Value: bson.D{{Key: field, Value: delta}}}}
}

// CurrentDate sets field to the server's current date.
func CurrentDate(field string) bson.D {
	return bson.D{{Key: "$currentDate", Value: bson.D{{Key: field, Value: true}}}}
}

// Combine merges update documents into one. Operators that occur in more than
// one update have their field lists concatenated in argument order; operator
// order follows first appearance. Operator values that are not documents are
// kept as the last value seen.
func Combine(updates ...bson.D) bson.D {
	combined := bson.D{}
	index := make(map[string]int)
	for _, update := range updates {
		for _, op := range update {
			fields, isDoc := asD(op.Value)
			pos, seen := index[op.Key]
			if !seen {
				index[op.Key] = len(combined)
				if isDoc {
					combined = append(combined, bson.E{Key: op.Key, Value: append(bson.D{}, fields...)})
				} else {
					combined = append(combined, op)
				}
				continue
			}
			existing, existingIsDoc := asD(combined[pos].Value)
			if isDoc && existingIsDoc {
				combined[pos].Value = append(existing, fields...)
			} else {
				combined[pos].Value = op.Value
			}
		}
	}
	return combined
}

func asD(v any) (bson.D, bool) {
	switch doc := v.(type) {
	case bson.D:
		return doc, true
	case bson.M:
		d := make(bson.D, 0, len(doc))
		for k, val := range doc {
			d = append(d, bson.E{Key: k, Value: val})
		}
		return d, true
	default:
		return nil, false
	}
}
