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


package storage

import (
	"github.com/poiesic/recall/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	var id core.ID
	id, _, err := core.IDMUS.Unmarshal(data)
	return id, err
}

// MarshalNoteRecord serializes a NoteRecord to bytes.
func MarshalNoteRecord(note *core.NoteRecord) []byte {
	buf := make([]byte, core.NoteRecordMUS.Size(*note))
	core.NoteRecordMUS.Marshal(*note, buf)
	return buf
}

// UnmarshalNoteRecord deserializes a NoteRecord from bytes.
func UnmarshalNoteRecord(data []byte) (*core.NoteRecord, error) {
	note, _, err := core.NoteRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// MarshalEntityRecord serializes an EntityRecord to bytes.
func MarshalEntityRecord(entity *core.EntityRecord) []byte {
	buf := make([]byte, core.EntityRecordMUS.Size(*entity))
	core.EntityRecordMUS.Marshal(*entity, buf)
	return buf
}

// UnmarshalEntityRecord deserializes an EntityRecord from bytes.
func UnmarshalEntityRecord(data []byte) (*core.EntityRecord, error) {
	entity, _, err := core.EntityRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &entity, nil
}
