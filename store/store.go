package store

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/syndtr/goleveldb/leveldb"
	lvlerrs "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/protolambda/beacon-participation/participation"
)

const (
	// KeySummary is a:
	// 3 byte prefix for the last summary of a range, keyed by range name
	// Key: KeySummary | <range name>
	// Value: validators (uint64) | source | target | head | inactivity (float64 bits), big endian
	KeySummary string = "sum"

	// KeyLastSlot is a:
	// 3 byte key for the slot of the state the stored summaries were computed from
	// Value: slot (uint64), big endian
	KeyLastSlot string = "slt"

	summaryValueLen = 8 * 5
)

// Store keeps the last published summaries, so a restarted exporter can serve them right away.
type Store struct {
	db *leveldb.DB
}

// Open opens the summary db at path, creating it if needed.
// A corrupted db is recovered instead of failing the exporter.
func Open(path string) (*Store, error) {
	// A handful of keys per range, small caches are plenty.
	options := &opt.Options{
		Filter:                 filter.NewBloomFilter(10),
		OpenFilesCacheCapacity: 16,
		BlockCacheCapacity:     2 * opt.MiB,
		WriteBuffer:            opt.MiB,
	}
	db, err := leveldb.OpenFile(path, options)
	if _, corrupted := err.(*lvlerrs.ErrCorrupted); corrupted {
		db, err = leveldb.RecoverFile(path, options)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open summary db %q: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes the summaries computed from the state at slot.
// Ranges not present in summaries keep their stored values.
func (s *Store) Save(slot common.Slot, summaries map[string]participation.Summary) error {
	var batch leveldb.Batch
	for name, sum := range summaries {
		batch.Put(summaryKey(name), encodeSummary(sum))
	}
	var slotBytes [8]byte
	binary.BigEndian.PutUint64(slotBytes[:], uint64(slot))
	batch.Put([]byte(KeyLastSlot), slotBytes[:])
	if err := s.db.Write(&batch, nil); err != nil {
		return fmt.Errorf("failed to write summaries: %w", err)
	}
	return nil
}

// Load returns all stored summaries and the slot of the last save.
// An empty store returns no summaries and slot 0.
func (s *Store) Load() (common.Slot, map[string]participation.Summary, error) {
	var slot common.Slot
	v, err := s.db.Get([]byte(KeyLastSlot), nil)
	if err == leveldb.ErrNotFound {
		return 0, map[string]participation.Summary{}, nil
	} else if err != nil {
		return 0, nil, fmt.Errorf("failed to read last slot: %w", err)
	} else if len(v) != 8 {
		return 0, nil, fmt.Errorf("invalid last slot value length %d", len(v))
	}
	slot = common.Slot(binary.BigEndian.Uint64(v))

	out := make(map[string]participation.Summary)
	iter := s.db.NewIterator(util.BytesPrefix([]byte(KeySummary)), nil)
	defer iter.Release()
	for iter.Next() {
		name := string(iter.Key()[len(KeySummary):])
		sum, err := decodeSummary(iter.Value())
		if err != nil {
			return 0, nil, fmt.Errorf("range %q: %w", name, err)
		}
		out[name] = sum
	}
	if err := iter.Error(); err != nil {
		return 0, nil, fmt.Errorf("failed to iterate summaries: %w", err)
	}
	return slot, out, nil
}

func summaryKey(name string) []byte {
	key := make([]byte, 0, len(KeySummary)+len(name))
	key = append(key, KeySummary...)
	return append(key, name...)
}

func encodeSummary(s participation.Summary) []byte {
	out := make([]byte, summaryValueLen)
	binary.BigEndian.PutUint64(out[0:8], uint64(s.Validators))
	binary.BigEndian.PutUint64(out[8:16], math.Float64bits(s.SourceRatio))
	binary.BigEndian.PutUint64(out[16:24], math.Float64bits(s.TargetRatio))
	binary.BigEndian.PutUint64(out[24:32], math.Float64bits(s.HeadRatio))
	binary.BigEndian.PutUint64(out[32:40], math.Float64bits(s.InactivityScoresAvg))
	return out
}

func decodeSummary(v []byte) (participation.Summary, error) {
	if len(v) != summaryValueLen {
		return participation.Summary{}, fmt.Errorf("invalid summary value length %d", len(v))
	}
	return participation.Summary{
		Validators:          int(binary.BigEndian.Uint64(v[0:8])),
		SourceRatio:         math.Float64frombits(binary.BigEndian.Uint64(v[8:16])),
		TargetRatio:         math.Float64frombits(binary.BigEndian.Uint64(v[16:24])),
		HeadRatio:           math.Float64frombits(binary.BigEndian.Uint64(v[24:32])),
		InactivityScoresAvg: math.Float64frombits(binary.BigEndian.Uint64(v[32:40])),
	}, nil
}
