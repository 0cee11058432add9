// Copyright 2025 The clarinet-go Authors
// This file is part of the clarinet-go library.
//
// The clarinet-go library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The clarinet-go library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the clarinet-go library. If not, see <http://www.gnu.org/licenses/>.

package datastore

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/hirosystems/clarinet-sub006/common"
	"github.com/hirosystems/clarinet-sub006/crypto"
)

// versionedEntry is one write of a key, pinned to the height it landed at.
type versionedEntry struct {
	height uint32
	value  string
}

// MemoryStore is an in-memory Store. Per-key history is append-only; the
// read tip selects which slice of history is visible.
type MemoryStore struct {
	mu sync.RWMutex

	data     map[string][]versionedEntry
	metadata map[string]string

	heightToID map[uint32]common.BlockID
	idToHeight map[common.BlockID]uint32

	tipHeight  uint32 // read tip
	openHeight uint32 // block open for writing
	closed     bool
}

// NewMemoryStore returns a store seeded with a genesis block at height 0.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		data:       make(map[string][]versionedEntry),
		metadata:   make(map[string]string),
		heightToID: make(map[uint32]common.BlockID),
		idToHeight: make(map[common.BlockID]uint32),
	}
	genesis := deriveBlockID(0)
	s.heightToID[0] = genesis
	s.idToHeight[genesis] = 0
	return s
}

// deriveBlockID produces the deterministic id for a freshly appended block.
func deriveBlockID(height uint32) common.BlockID {
	var raw [8]byte
	binary.BigEndian.PutUint32(raw[4:], height)
	return crypto.BlockIDFromBytes(raw[:])
}

func (s *MemoryStore) PutAll(entries []KV) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for _, kv := range entries {
		s.data[kv.Key] = append(s.data[kv.Key], versionedEntry{height: s.openHeight, value: kv.Value})
	}
	return nil
}

func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, ErrClosed
	}
	history := s.data[key]
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].height <= s.tipHeight {
			return history[i].value, true, nil
		}
	}
	return "", false, nil
}

func (s *MemoryStore) CurrentBlockHeight() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tipHeight
}

func (s *MemoryStore) OpenChainTip() common.BlockID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.heightToID[s.openHeight]
}

func (s *MemoryStore) SetBlockHash(tip common.BlockID) (common.BlockID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return common.BlockID{}, ErrClosed
	}
	height, ok := s.idToHeight[tip]
	if !ok {
		return common.BlockID{}, fmt.Errorf("%w: %s", ErrUnknownBlock, tip.Hex())
	}
	prev := s.heightToID[s.tipHeight]
	s.tipHeight = height
	return prev, nil
}

func (s *MemoryStore) BlockAtHeight(height uint32) (common.BlockID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.heightToID[height]
	return id, ok
}

func (s *MemoryStore) HeightOfBlock(id common.BlockID) (uint32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	height, ok := s.idToHeight[id]
	return height, ok
}

func (s *MemoryStore) AdvanceChainTip(count uint32) (common.BlockID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return common.BlockID{}, ErrClosed
	}
	for i := uint32(0); i < count; i++ {
		s.openHeight++
		id := deriveBlockID(s.openHeight)
		s.heightToID[s.openHeight] = id
		s.idToHeight[id] = s.openHeight
	}
	s.tipHeight = s.openHeight
	return s.heightToID[s.openHeight], nil
}

func (s *MemoryStore) CommitTo(final common.BlockID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	old := s.heightToID[s.openHeight]
	delete(s.idToHeight, old)
	s.heightToID[s.openHeight] = final
	s.idToHeight[final] = s.openHeight
	return nil
}

func (s *MemoryStore) InsertMetadata(contract, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	mk := metadataKey(contract, key)
	if _, ok := s.metadata[mk]; ok {
		return fmt.Errorf("%w: %s %s", ErrMetadataExists, contract, key)
	}
	s.metadata[mk] = value
	return nil
}

func (s *MemoryStore) GetMetadata(contract, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, ErrClosed
	}
	v, ok := s.metadata[metadataKey(contract, key)]
	return v, ok, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func metadataKey(contract, key string) string {
	return contract + "\x00" + key
}
