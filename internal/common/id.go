package common

import (
	"github.com/google/uuid"
)

// NewChunkID generates a unique chunk point ID. Qdrant only accepts
// unsigned integers or bare UUIDs as point IDs, so no prefix here.
func NewChunkID() string {
	return uuid.New().String()
}

// NewRecordID generates a unique memory record ID with the "mem_" prefix
// Format: mem_<uuid>
func NewRecordID() string {
	return "mem_" + uuid.New().String()
}
