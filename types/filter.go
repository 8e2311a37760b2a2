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

// All matches every document in a collection.
func All() bson.D {
	return bson.D{}
}

// ByID matches the document whose identity equals id. Hex identities match
// ObjectID keys.
func ByID(id string) bson.D {
	return Eq(IDField, ID(id).BSONValue())
}

// Eq matches documents whose field equals value.
func Eq(field string, value any) bson.D {
	return bson.D{{Key: field, Value: value}}
}

// Ne matches documents whose field does not equal value.
func Ne(field string, value any) bson.D {
	return bson.D{{Key: field, Value: bson.D{{Key: "$ne", Value: value}}}}
}

// In matches documents whose field equals any of values.
func In(field string, values ...any) bson.D {
	return bson.D{{Key: field, Value: bson.D{{Key: "$in", Value: bson.A(values)}}}}
}

// Gt matches documents whose field is greater than value.
func Gt(field string, value any) bson.D {
	return bson.D{{Key: field, Value: bson.D{{Key: "$gt", Value: value}}}}
}

// Lt matches documents whose field is less than value.
func Lt(field string, value any) bson.D {
	return bson.D{{Key: field, Value: bson.D{{Key: "$lt", Value: value}}}}
}

// And matches documents satisfying every filter.
func And(filters ...any) bson.D {
	return bson.D{{Key: "$and", Value: bson.A(filters)}}
}

// Or matches documents satisfying at least one filter.
func Or(filters ...any) bson.D {
	return bson.D{{Key: "$or", Value: bson.A(filters)}}
}
