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

import (
	"fmt"
	"reflect"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Document field names shared by every entity.
const (
	IDField         = "_id"
	CreatedOnField  = "createdOn"
	ModifiedOnField = "modifiedOn"
)

// Entity is implemented by every type a repository can store: a string
// identity assigned by the store plus creation and modification timestamps.
type Entity interface {
	GetID() string
	SetID(id string)
	GetCreatedOn() time.Time
	SetCreatedOn(t time.Time)
	GetModifiedOn() time.Time
	SetModifiedOn(t time.Time)
}

// EntityPtr constrains P to be *T and an Entity, so repositories can both
// allocate a T and use its Entity methods.
type EntityPtr[T any] interface {
	*T
	Entity
}

// CollectionNamer lets an entity override the collection it is stored in.
type CollectionNamer interface {
	CollectionName() string
}

// ID is a document identity. A lowercase 24 character hex string is stored
// as an ObjectID, any other value as a string, so documents keyed by
// store-assigned ObjectIDs decode into the same field.
type ID string

func (id ID) String() string { return string(id) }

// BSONValue returns the value id is stored and matched as.
func (id ID) BSONValue() any {
	if oid, err := bson.ObjectIDFromHex(string(id)); err == nil && oid.Hex() == string(id) {
		return oid
	}
	return string(id)
}

func (id ID) MarshalBSONValue() (byte, []byte, error) {
	t, data, err := bson.MarshalValue(id.BSONValue())
	return byte(t), data, err
}

func (id *ID) UnmarshalBSONValue(typ byte, data []byte) error {
	rv := bson.RawValue{Type: bson.Type(typ), Value: data}
	switch rv.Type {
	case bson.TypeObjectID:
		*id = ID(rv.ObjectID().Hex())
	case bson.TypeString:
		*id = ID(rv.StringValue())
	case bson.TypeNull, bson.TypeUndefined:
		*id = ""
	default:
		return fmt.Errorf("cannot decode BSON %s into an ID", rv.Type)
	}
	return nil
}

// Document is the embeddable base of an entity.
//
//	type Product struct {
//		types.Document `bson:",inline"`
//		Name string   `bson:"name"`
//	}
type Document struct {
	ID         ID        `bson:"_id,omitempty" json:"id" yaml:"id"`
	CreatedOn  time.Time `bson:"createdOn" json:"createdOn" yaml:"createdOn"`
	ModifiedOn time.Time `bson:"modifiedOn" json:"modifiedOn" yaml:"modifiedOn"`
}

// NewDocument returns a Document with both timestamps set to now.
func NewDocument() Document {
	now := time.Now()
	return Document{CreatedOn: now, ModifiedOn: now}
}

func (d *Document) GetID() string { return string(d.ID) }

func (d *Document) SetID(id string) { d.ID = ID(id) }

func (d *Document) GetCreatedOn() time.Time { return d.CreatedOn }

func (d *Document) SetCreatedOn(t time.Time) { d.CreatedOn = t }

func (d *Document) GetModifiedOn() time.Time { return d.ModifiedOn }

func (d *Document) SetModifiedOn(t time.Time) { d.ModifiedOn = t }

// CollectionName returns the collection an entity type T is stored in: the
// value of CollectionName() when *T or T implements CollectionNamer, the Go
// type name otherwise.
func CollectionName[T any]() string {
	var zero T
	if n, ok := any(&zero).(CollectionNamer); ok {
		if name := n.CollectionName(); name != "" {
			return name
		}
	}
	if n, ok := any(zero).(CollectionNamer); ok {
		if name := n.CollectionName(); name != "" {
			return name
		}
	}
	t := reflect.TypeOf(zero)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return t.Name()
}
