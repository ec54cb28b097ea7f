package era

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/golang/snappy"
	"github.com/protolambda/zrnt/eth2/beacon/common"
)

// Era file format
//
// from specs: https://github.com/status-im/nimbus-eth2/blob/stable/docs/e2store.md
//
// entry commons:
//   header := type | length | reserved
//   type := [2]byte
//   length := LE uint32
//   reserved := [2]byte zeroes
//
// Version := header | data
//   type: [0x65, 0x32]
//   length: 0
//
// SlotIndex := header | data
//   type: [0x69, 0x32]
//   data: starting-slot | index | index | index ... | count
//
// era := group+
// group := Version | block* | era-state | other-entries* | slot-index(block)? | slot-index(state)
// era-state := CompressedBeaconState, snappy framed
// slot-index(state) := SlotIndex where count == 1
//
// Only the state of the last group is read here, the blocks are of no use for participation.

const (
	headerSize         = 8
	stateSlotIndexSize = headerSize + 8 + 8 + 8

	// maxStateSize bounds the decompressed state, mainnet states are a few hundred MB.
	maxStateSize = 1 << 30
)

var ErrNotExist = errors.New("entry does not exist")

type EntryType [2]byte

var (
	SlotIndexType             = EntryType{'i', '2'}
	VersionType               = EntryType{'e', '2'}
	CompressedBeaconStateType = EntryType{2, 0}
)

func ReadHeader(f io.Reader) (EntryType, uint32, error) {
	var x [headerSize]byte
	if _, err := io.ReadFull(f, x[:]); err != nil {
		return EntryType{}, 0, fmt.Errorf("failed to read header: %w", err)
	}
	if x[6] != 0 || x[7] != 0 {
		return EntryType{}, 0, fmt.Errorf("reserved value is not 0, got %04x", x[6:])
	}
	return EntryType{x[0], x[1]}, binary.LittleEndian.Uint32(x[2:6]), nil
}

func ReadUint64(f io.Reader) (uint64, error) {
	var x [8]byte
	if _, err := io.ReadFull(f, x[:]); err != nil {
		return 0, fmt.Errorf("failed to read value: %w", err)
	}
	return binary.LittleEndian.Uint64(x[:]), nil
}

func ReadInt64(f io.Reader) (int64, error) {
	x, err := ReadUint64(f)
	return int64(x), err
}

// ReadStateOffsetAndSlot reads the file offset and slot of the state of the group that ends at the
// current position of f. The returned offset is relative to the start of the file.
func ReadStateOffsetAndSlot(f io.ReadSeeker) (offset int64, slot common.Slot, err error) {
	n, err := f.Seek(-stateSlotIndexSize, io.SeekCurrent)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to lookup state slot-index: %w", err)
	}

	typ, length, err := ReadHeader(f)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read state slot-index header: %w", err)
	}
	if typ != SlotIndexType {
		return 0, 0, fmt.Errorf("expected state slot-index type, got %x", typ)
	}
	if length != 8*3 {
		return 0, 0, fmt.Errorf("unexpected state slot-index size: %d", length)
	}

	start, err := ReadUint64(f)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read starting slot: %w", err)
	}
	rel, err := ReadInt64(f)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read offset: %w", err)
	}
	count, err := ReadUint64(f)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read count: %w", err)
	}
	if count != 1 {
		return 0, 0, fmt.Errorf("unexpected number of states: %d", count)
	}
	if rel == 0 {
		return 0, 0, ErrNotExist
	}
	return n + rel, common.Slot(start), nil
}

// SeekState positions f at the state entry of the group ending at groupEnd.
func SeekState(f io.ReadSeeker, groupEnd int64) (common.Slot, error) {
	if _, err := f.Seek(groupEnd, io.SeekStart); err != nil {
		return 0, fmt.Errorf("failed to seek to end of group: %w", err)
	}
	offset, slot, err := ReadStateOffsetAndSlot(f)
	if err != nil {
		return 0, fmt.Errorf("failed to read state offset: %w", err)
	}
	if offset < 0 || offset >= groupEnd {
		return 0, fmt.Errorf("state offset %d out of file range", offset)
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return 0, fmt.Errorf("failed to seek to state at offset %d: %w", offset, err)
	}
	return slot, nil
}

// CopySnappyEntry decompresses the snappy framed entry at the current position of f into w.
func CopySnappyEntry(f io.Reader, w io.Writer, sr *snappy.Reader, expectType EntryType) error {
	typ, length, err := ReadHeader(f)
	if err != nil {
		return fmt.Errorf("failed to read entry header: %w", err)
	}
	if typ != expectType {
		return fmt.Errorf("expected type %x but got type %x", expectType, typ)
	}
	sr.Reset(io.LimitReader(f, int64(length)))
	n, err := io.Copy(w, io.LimitReader(sr, maxStateSize+1))
	if err != nil {
		return fmt.Errorf("failed to copy snappy output into writer: %w", err)
	}
	if n > maxStateSize {
		return fmt.Errorf("entry exceeds %d bytes when decompressed", maxStateSize)
	}
	return nil
}

// ReadState reads the SSZ encoded state stored in the last group of the era file at path.
func ReadState(path string) (common.Slot, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to open era file: %w", err)
	}
	defer f.Close()
	return readState(f)
}

// CheckVersion checks that f starts with the version entry of an e2store file.
func CheckVersion(f io.ReadSeeker) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}
	typ, length, err := ReadHeader(f)
	if err != nil {
		return fmt.Errorf("failed to read version entry: %w", err)
	}
	if typ != VersionType {
		return fmt.Errorf("expected version type %x at start, got %x", VersionType, typ)
	}
	if length != 0 {
		return fmt.Errorf("unexpected version entry length: %d", length)
	}
	return nil
}

func readState(f io.ReadSeeker) (common.Slot, []byte, error) {
	if err := CheckVersion(f); err != nil {
		return 0, nil, err
	}
	end, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to seek era to end: %w", err)
	}
	slot, err := SeekState(f, end)
	if err != nil {
		return 0, nil, err
	}
	var buf bytes.Buffer
	if err := CopySnappyEntry(f, &buf, snappy.NewReader(nil), CompressedBeaconStateType); err != nil {
		return 0, nil, fmt.Errorf("failed to read state at slot %d: %w", slot, err)
	}
	return slot, buf.Bytes(), nil
}
