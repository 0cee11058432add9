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

	lru "github.com/hashicorp/golang-lru"
	"github.com/inconshreveable/log15"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/hirosystems/clarinet-sub006/common"
)

// metadataCacheSize bounds the ARC cache in front of metadata reads.
// Descriptors are read on every typed access, so the hit rate is high.
const metadataCacheSize = 1024

// Key prefixes in the underlying leveldb namespace.
var (
	prefixData     = []byte("d")
	prefixMetadata = []byte("m")
	prefixHeight   = []byte("h")
	prefixBlockID  = []byte("i")
	keyTipHeight   = []byte("s:tip")
	keyOpenHeight  = []byte("s:open")
)

// LevelStore is a Store persisted in a leveldb database. Each write of a
// logical key lands under key || 0x00 || heightBE, so the per-key history
// is a contiguous, height-ordered run of physical keys.
type LevelStore struct {
	mu sync.RWMutex

	db        *leveldb.DB
	metaCache *lru.ARCCache
	logger    log15.Logger

	tipHeight  uint32
	openHeight uint32
	closed     bool
}

// OpenLevelStore opens (or creates) a persistent store at path. A store
// opened on an empty directory is seeded with a genesis block at height 0.
func OpenLevelStore(path string) (*LevelStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("datastore: open %s: %w", path, err)
	}
	cache, err := lru.NewARC(metadataCacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}
	s := &LevelStore{
		db:        db,
		metaCache: cache,
		logger:    log15.New("module", "datastore"),
	}
	if err := s.loadOrSeed(); err != nil {
		db.Close()
		return nil, err
	}
	s.logger.Info("Opened versioned store", "path", path, "tip", s.tipHeight)
	return s, nil
}

func (s *LevelStore) loadOrSeed() error {
	raw, err := s.db.Get(keyTipHeight, nil)
	switch err {
	case nil:
		s.tipHeight = binary.BigEndian.Uint32(raw)
		rawOpen, err := s.db.Get(keyOpenHeight, nil)
		if err != nil {
			return err
		}
		s.openHeight = binary.BigEndian.Uint32(rawOpen)
		return nil
	case leveldb.ErrNotFound:
		genesis := deriveBlockID(0)
		batch := new(leveldb.Batch)
		batch.Put(heightKey(0), genesis.Bytes())
		batch.Put(blockIDKey(genesis), heightBytes(0))
		batch.Put(keyTipHeight, heightBytes(0))
		batch.Put(keyOpenHeight, heightBytes(0))
		return s.db.Write(batch, nil)
	default:
		return err
	}
}

func (s *LevelStore) PutAll(entries []KV) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	batch := new(leveldb.Batch)
	for _, kv := range entries {
		batch.Put(dataKey(kv.Key, s.openHeight), []byte(kv.Value))
	}
	return s.db.Write(batch, nil)
}

func (s *LevelStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, ErrClosed
	}
	it := s.db.NewIterator(util.BytesPrefix(dataKeyPrefix(key)), nil)
	defer it.Release()

	var (
		found bool
		best  []byte
	)
	for it.Next() {
		physical := it.Key()
		height := binary.BigEndian.Uint32(physical[len(physical)-4:])
		if height > s.tipHeight {
			break
		}
		found = true
		best = append(best[:0], it.Value()...)
	}
	if err := it.Error(); err != nil {
		return "", false, err
	}
	if !found {
		return "", false, nil
	}
	return string(best), true, nil
}

func (s *LevelStore) CurrentBlockHeight() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tipHeight
}

func (s *LevelStore) OpenChainTip() common.BlockID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, _ := s.blockAtHeight(s.openHeight)
	return id
}

func (s *LevelStore) SetBlockHash(tip common.BlockID) (common.BlockID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return common.BlockID{}, ErrClosed
	}
	raw, err := s.db.Get(blockIDKey(tip), nil)
	if err == leveldb.ErrNotFound {
		return common.BlockID{}, fmt.Errorf("%w: %s", ErrUnknownBlock, tip.Hex())
	}
	if err != nil {
		return common.BlockID{}, err
	}
	prev, _ := s.blockAtHeight(s.tipHeight)
	s.tipHeight = binary.BigEndian.Uint32(raw)
	if err := s.db.Put(keyTipHeight, heightBytes(s.tipHeight), nil); err != nil {
		return common.BlockID{}, err
	}
	return prev, nil
}

func (s *LevelStore) BlockAtHeight(height uint32) (common.BlockID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blockAtHeight(height)
}

func (s *LevelStore) blockAtHeight(height uint32) (common.BlockID, bool) {
	raw, err := s.db.Get(heightKey(height), nil)
	if err != nil {
		return common.BlockID{}, false
	}
	return common.BytesToBlockID(raw), true
}

func (s *LevelStore) HeightOfBlock(id common.BlockID) (uint32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, err := s.db.Get(blockIDKey(id), nil)
	if err != nil {
		return 0, false
	}
	return binary.BigEndian.Uint32(raw), true
}

func (s *LevelStore) AdvanceChainTip(count uint32) (common.BlockID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return common.BlockID{}, ErrClosed
	}
	batch := new(leveldb.Batch)
	var id common.BlockID
	for i := uint32(0); i < count; i++ {
		s.openHeight++
		id = deriveBlockID(s.openHeight)
		batch.Put(heightKey(s.openHeight), id.Bytes())
		batch.Put(blockIDKey(id), heightBytes(s.openHeight))
	}
	s.tipHeight = s.openHeight
	batch.Put(keyTipHeight, heightBytes(s.tipHeight))
	batch.Put(keyOpenHeight, heightBytes(s.openHeight))
	if err := s.db.Write(batch, nil); err != nil {
		return common.BlockID{}, err
	}
	return id, nil
}

func (s *LevelStore) CommitTo(final common.BlockID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	old, ok := s.blockAtHeight(s.openHeight)
	batch := new(leveldb.Batch)
	if ok {
		batch.Delete(blockIDKey(old))
	}
	batch.Put(heightKey(s.openHeight), final.Bytes())
	batch.Put(blockIDKey(final), heightBytes(s.openHeight))
	return s.db.Write(batch, nil)
}

func (s *LevelStore) InsertMetadata(contract, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	physical := metadataDBKey(contract, key)
	if _, ok := s.metaCache.Get(string(physical)); ok {
		return fmt.Errorf("%w: %s %s", ErrMetadataExists, contract, key)
	}
	exists, err := s.db.Has(physical, nil)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s %s", ErrMetadataExists, contract, key)
	}
	if err := s.db.Put(physical, []byte(value), nil); err != nil {
		return err
	}
	s.metaCache.Add(string(physical), value)
	return nil
}

func (s *LevelStore) GetMetadata(contract, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, ErrClosed
	}
	physical := metadataDBKey(contract, key)
	if v, ok := s.metaCache.Get(string(physical)); ok {
		return v.(string), true, nil
	}
	raw, err := s.db.Get(physical, nil)
	if err == leveldb.ErrNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	s.metaCache.Add(string(physical), string(raw))
	return string(raw), true, nil
}

func (s *LevelStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Info("Closed versioned store", "tip", s.tipHeight)
	return s.db.Close()
}

// ---- Physical key layout ----

func dataKeyPrefix(key string) []byte {
	out := make([]byte, 0, 1+len(key)+1)
	out = append(out, prefixData...)
	out = append(out, key...)
	return append(out, 0x00)
}

func dataKey(key string, height uint32) []byte {
	out := dataKeyPrefix(key)
	var raw [4]byte
	binary.BigEndian.PutUint32(raw[:], height)
	return append(out, raw[:]...)
}

func metadataDBKey(contract, key string) []byte {
	out := make([]byte, 0, 1+len(contract)+1+len(key))
	out = append(out, prefixMetadata...)
	out = append(out, contract...)
	out = append(out, 0x00)
	return append(out, key...)
}

func heightKey(height uint32) []byte {
	out := make([]byte, 5)
	copy(out, prefixHeight)
	binary.BigEndian.PutUint32(out[1:], height)
	return out
}

func blockIDKey(id common.BlockID) []byte {
	out := make([]byte, 0, 1+common.BlockIDLength)
	out = append(out, prefixBlockID...)
	return append(out, id.Bytes()...)
}

func heightBytes(height uint32) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, height)
	return out
}
