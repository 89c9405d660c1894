// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the persisted domain types. Timestamps are stored
// as Unix microseconds and come back in UTC, so a round trip preserves
// them to microsecond precision.
var (
	IDMUS           = idMUS{}
	NoteRecordMUS   = noteRecordMUS{}
	EntityRecordMUS = entityRecordMUS{}
)

type idMUS struct{}

func (idMUS) Size(id ID) int {
	return varint.Uint64.Size(uint64(id))
}

func (idMUS) Marshal(id ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

type timeMUS struct{}

func (timeMUS) Size(t time.Time) int {
	return varint.Int64.Size(t.UnixMicro())
}

func (timeMUS) Marshal(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

func (timeMUS) Unmarshal(bs []byte) (time.Time, int, error) {
	us, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(us).UTC(), n, nil
}

type float32MUS struct{}

func (float32MUS) Size(f float32) int {
	return varint.Uint32.Size(math.Float32bits(f))
}

func (float32MUS) Marshal(f float32, bs []byte) int {
	return varint.Uint32.Marshal(math.Float32bits(f), bs)
}

func (float32MUS) Unmarshal(bs []byte) (float32, int, error) {
	bits, n, err := varint.Uint32.Unmarshal(bs)
	if err != nil {
		return 0, n, err
	}
	return math.Float32frombits(bits), n, nil
}

type stringSliceMUS struct{}

func (stringSliceMUS) Size(v []string) (size int) {
	size = varint.Int.Size(len(v))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return size
}

func (stringSliceMUS) Marshal(v []string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, s := range v {
		n += ord.String.Marshal(s, bs[n:])
	}
	return n
}

func (stringSliceMUS) Unmarshal(bs []byte) ([]string, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length == 0 {
		return nil, n, nil
	}
	v := make([]string, 0, length)
	for i := 0; i < length; i++ {
		s, sn, err := ord.String.Unmarshal(bs[n:])
		n += sn
		if err != nil {
			return nil, n, err
		}
		v = append(v, s)
	}
	return v, n, nil
}

type vectorMUS struct{}

func (vectorMUS) Size(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	f32 := float32MUS{}
	for _, f := range v {
		size += f32.Size(f)
	}
	return size
}

func (vectorMUS) Marshal(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	f32 := float32MUS{}
	for _, f := range v {
		n += f32.Marshal(f, bs[n:])
	}
	return n
}

func (vectorMUS) Unmarshal(bs []byte) ([]float32, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length == 0 {
		return nil, n, nil
	}
	f32 := float32MUS{}
	v := make([]float32, 0, length)
	for i := 0; i < length; i++ {
		f, fn, err := f32.Unmarshal(bs[n:])
		n += fn
		if err != nil {
			return nil, n, err
		}
		v = append(v, f)
	}
	return v, n, nil
}

type entityRefMUS struct{}

func (entityRefMUS) Size(ref EntityRef) int {
	return IDMUS.Size(ref.EntityId) + float32MUS{}.Size(ref.Strength)
}

func (entityRefMUS) Marshal(ref EntityRef, bs []byte) (n int) {
	n = IDMUS.Marshal(ref.EntityId, bs)
	n += float32MUS{}.Marshal(ref.Strength, bs[n:])
	return n
}

func (entityRefMUS) Unmarshal(bs []byte) (EntityRef, int, error) {
	var ref EntityRef
	id, n, err := IDMUS.Unmarshal(bs)
	if err != nil {
		return ref, n, err
	}
	ref.EntityId = id
	strength, sn, err := float32MUS{}.Unmarshal(bs[n:])
	n += sn
	if err != nil {
		return ref, n, err
	}
	ref.Strength = strength
	return ref, n, nil
}

type payloadMUS struct{}

func (payloadMUS) Size(p NotePayload) int {
	ss := stringSliceMUS{}
	return ord.String.Size(p.Summary) +
		ss.Size(p.Categories) +
		ss.Size(p.Entities) +
		ss.Size(p.Activities)
}

func (payloadMUS) Marshal(p NotePayload, bs []byte) (n int) {
	ss := stringSliceMUS{}
	n = ord.String.Marshal(p.Summary, bs)
	n += ss.Marshal(p.Categories, bs[n:])
	n += ss.Marshal(p.Entities, bs[n:])
	n += ss.Marshal(p.Activities, bs[n:])
	return n
}

func (payloadMUS) Unmarshal(bs []byte) (NotePayload, int, error) {
	var p NotePayload
	ss := stringSliceMUS{}

	summary, n, err := ord.String.Unmarshal(bs)
	if err != nil {
		return p, n, err
	}
	p.Summary = summary

	categories, cn, err := ss.Unmarshal(bs[n:])
	n += cn
	if err != nil {
		return p, n, err
	}
	p.Categories = categories

	entities, en, err := ss.Unmarshal(bs[n:])
	n += en
	if err != nil {
		return p, n, err
	}
	p.Entities = entities

	activities, an, err := ss.Unmarshal(bs[n:])
	n += an
	if err != nil {
		return p, n, err
	}
	p.Activities = activities

	return p, n, nil
}

type noteRecordMUS struct{}

func (noteRecordMUS) Size(note NoteRecord) int {
	tm := timeMUS{}
	size := IDMUS.Size(note.Id)
	size += varint.Int.Size(int(note.Type))
	size += tm.Size(note.Start)
	size += tm.Size(note.End)
	size += ord.String.Size(note.FileRef)
	size += payloadMUS{}.Size(note.Payload)
	size += varint.Int.Size(len(note.Entities))
	refs := entityRefMUS{}
	for _, ref := range note.Entities {
		size += refs.Size(ref)
	}
	size += vectorMUS{}.Size(note.Vector)
	size += tm.Size(note.InsertedAt)
	size += tm.Size(note.UpdatedAt)
	return size
}

func (noteRecordMUS) Marshal(note NoteRecord, bs []byte) (n int) {
	tm := timeMUS{}
	n = IDMUS.Marshal(note.Id, bs)
	n += varint.Int.Marshal(int(note.Type), bs[n:])
	n += tm.Marshal(note.Start, bs[n:])
	n += tm.Marshal(note.End, bs[n:])
	n += ord.String.Marshal(note.FileRef, bs[n:])
	n += payloadMUS{}.Marshal(note.Payload, bs[n:])
	n += varint.Int.Marshal(len(note.Entities), bs[n:])
	refs := entityRefMUS{}
	for _, ref := range note.Entities {
		n += refs.Marshal(ref, bs[n:])
	}
	n += vectorMUS{}.Marshal(note.Vector, bs[n:])
	n += tm.Marshal(note.InsertedAt, bs[n:])
	n += tm.Marshal(note.UpdatedAt, bs[n:])
	return n
}

func (noteRecordMUS) Unmarshal(bs []byte) (NoteRecord, int, error) {
	var note NoteRecord
	tm := timeMUS{}

	id, n, err := IDMUS.Unmarshal(bs)
	if err != nil {
		return note, n, err
	}
	note.Id = id

	noteType, tn, err := varint.Int.Unmarshal(bs[n:])
	n += tn
	if err != nil {
		return note, n, err
	}
	note.Type = NoteType(noteType)

	start, sn, err := tm.Unmarshal(bs[n:])
	n += sn
	if err != nil {
		return note, n, err
	}
	note.Start = start

	end, en, err := tm.Unmarshal(bs[n:])
	n += en
	if err != nil {
		return note, n, err
	}
	note.End = end

	fileRef, fn, err := ord.String.Unmarshal(bs[n:])
	n += fn
	if err != nil {
		return note, n, err
	}
	note.FileRef = fileRef

	payload, pn, err := payloadMUS{}.Unmarshal(bs[n:])
	n += pn
	if err != nil {
		return note, n, err
	}
	note.Payload = payload

	refCount, rn, err := varint.Int.Unmarshal(bs[n:])
	n += rn
	if err != nil {
		return note, n, err
	}
	refs := entityRefMUS{}
	if refCount > 0 {
		note.Entities = make([]EntityRef, 0, refCount)
	}
	for i := 0; i < refCount; i++ {
		ref, refN, err := refs.Unmarshal(bs[n:])
		n += refN
		if err != nil {
			return note, n, err
		}
		note.Entities = append(note.Entities, ref)
	}

	vector, vn, err := vectorMUS{}.Unmarshal(bs[n:])
	n += vn
	if err != nil {
		return note, n, err
	}
	note.Vector = vector

	insertedAt, in, err := tm.Unmarshal(bs[n:])
	n += in
	if err != nil {
		return note, n, err
	}
	note.InsertedAt = insertedAt

	updatedAt, un, err := tm.Unmarshal(bs[n:])
	n += un
	if err != nil {
		return note, n, err
	}
	note.UpdatedAt = updatedAt

	return note, n, nil
}

type entityRecordMUS struct{}

func (entityRecordMUS) Size(entity EntityRecord) int {
	tm := timeMUS{}
	return IDMUS.Size(entity.Id) +
		ord.String.Size(entity.Type) +
		ord.String.Size(entity.CanonicalName) +
		stringSliceMUS{}.Size(entity.Aliases) +
		tm.Size(entity.InsertedAt) +
		tm.Size(entity.UpdatedAt)
}

func (entityRecordMUS) Marshal(entity EntityRecord, bs []byte) (n int) {
	tm := timeMUS{}
	n = IDMUS.Marshal(entity.Id, bs)
	n += ord.String.Marshal(entity.Type, bs[n:])
	n += ord.String.Marshal(entity.CanonicalName, bs[n:])
	n += stringSliceMUS{}.Marshal(entity.Aliases, bs[n:])
	n += tm.Marshal(entity.InsertedAt, bs[n:])
	n += tm.Marshal(entity.UpdatedAt, bs[n:])
	return n
}

func (entityRecordMUS) Unmarshal(bs []byte) (EntityRecord, int, error) {
	var entity EntityRecord
	tm := timeMUS{}

	id, n, err := IDMUS.Unmarshal(bs)
	if err != nil {
		return entity, n, err
	}
	entity.Id = id

	entityType, tn, err := ord.String.Unmarshal(bs[n:])
	n += tn
	if err != nil {
		return entity, n, err
	}
	entity.Type = entityType

	name, cn, err := ord.String.Unmarshal(bs[n:])
	n += cn
	if err != nil {
		return entity, n, err
	}
	entity.CanonicalName = name

	aliases, an, err := stringSliceMUS{}.Unmarshal(bs[n:])
	n += an
	if err != nil {
		return entity, n, err
	}
	entity.Aliases = aliases

	insertedAt, in, err := tm.Unmarshal(bs[n:])
	n += in
	if err != nil {
		return entity, n, err
	}
	entity.InsertedAt = insertedAt

	updatedAt, un, err := tm.Unmarshal(bs[n:])
	n += un
	if err != nil {
		return entity, n, err
	}
	entity.UpdatedAt = updatedAt

	return entity, n, nil
}
