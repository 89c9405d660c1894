package badger

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/poiesic/recall/core"
)

// Key prefixes for different data types
const (
	noteRecordPrefix       = "notrec"
	noteRecordDatePrefix   = "notrecd"
	noteRecordEntityPrefix = "notrece"
	noteRecordIDSeq        = "notrecseq"
	entityRecordPrefix     = "entrec"
	entityTypeNamePrefix   = "enttyna"
	entityNamePrefix       = "entnam"
)

// makeNoteRecordKey generates a key for a note record by ID.
func makeNoteRecordKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", noteRecordPrefix, id))
}

// makeNoteDateKey generates a composite key for the date index.
// Format: prefix:start:id
func makeNoteDateKey(start time.Time, id core.ID) []byte {
	prefix := noteRecordDatePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for start + 8 bytes for ID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(start.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialNoteDateKey generates a partial key for date range queries.
// Format: prefix:start
func makePartialNoteDateKey(start time.Time) []byte {
	prefix := noteRecordDatePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 // 8 bytes for start
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(start.UnixMicro()))
	return buf
}

// makeNoteEntityKey generates a composite key for the entity index.
// Format: prefix:entityID:noteID
func makeNoteEntityKey(entityID, noteID core.ID) []byte {
	prefix := noteRecordEntityPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for entityID + 8 bytes for noteID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(entityID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(noteID))
	return buf
}

// makePartialNoteEntityKey generates a partial key for entity queries.
// Format: prefix:entityID
func makePartialNoteEntityKey(entityID core.ID) []byte {
	prefix := noteRecordEntityPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 // 8 bytes for entityID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(entityID))
	return buf
}

// makeEntityKey generates a key for an entity by ID.
func makeEntityKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", entityRecordPrefix, id))
}

// makeEntityTupleKey generates a composite key for entity lookup by (type, name).
// Names are folded to lower case so lookups are case-insensitive.
// Format: prefix:type:name
func makeEntityTupleKey(name, entityType string) []byte {
	return []byte(entityTypeNamePrefix + ":" + strings.ToLower(entityType) + ":" + strings.ToLower(name))
}

// makeEntityNameKey generates a composite key for the name index, written once
// for the canonical name and once per alias.
// Format: prefix:name:id
func makeEntityNameKey(name string, id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%s:%d", entityNamePrefix, strings.ToLower(name), id))
}

// makePartialEntityNameKey generates a partial key for name lookups.
func makePartialEntityNameKey(name string) []byte {
	return []byte(entityNamePrefix + ":" + strings.ToLower(name) + ":")
}
