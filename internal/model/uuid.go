package model

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// UUIDFactory supplies event and command identifiers. Backtests use the
// deterministic variant so replays serialize byte-identically.
type UUIDFactory interface {
	Generate() uuid.UUID
}

// LiveUUIDFactory generates random version-4 UUIDs.
type LiveUUIDFactory struct{}

func (LiveUUIDFactory) Generate() uuid.UUID {
	return uuid.New()
}

// DeterministicUUIDFactory generates a reproducible UUID sequence from a
// counter. Two factories with the same seed yield the same sequence.
type DeterministicUUIDFactory struct {
	seed  uint64
	count uint64
}

// NewDeterministicUUIDFactory creates a factory for the given seed.
func NewDeterministicUUIDFactory(seed uint64) *DeterministicUUIDFactory {
	return &DeterministicUUIDFactory{seed: seed}
}

func (f *DeterministicUUIDFactory) Generate() uuid.UUID {
	f.count++
	var id uuid.UUID
	binary.BigEndian.PutUint64(id[:8], f.seed)
	binary.BigEndian.PutUint64(id[8:], f.count)
	// Stamp version 4 / RFC 4122 variant bits so the value parses as a v4.
	id[6] = (id[6] & 0x0f) | 0x40
	id[8] = (id[8] & 0x3f) | 0x80
	return id
}

// Reset brings the counter back to 0.
func (f *DeterministicUUIDFactory) Reset() {
	f.count = 0
}
