package era

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/snappy"
	"github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeHeader(buf *bytes.Buffer, typ EntryType, length uint32) {
	var x [headerSize]byte
	copy(x[:2], typ[:])
	binary.LittleEndian.PutUint32(x[2:6], length)
	buf.Write(x[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var x [8]byte
	binary.LittleEndian.PutUint64(x[:], v)
	buf.Write(x[:])
}

// buildEra writes a single group era file: version, state, state slot-index.
func buildEra(t *testing.T, slot common.Slot, state []byte) []byte {
	var compressed bytes.Buffer
	w := snappy.NewBufferedWriter(&compressed)
	_, err := w.Write(state)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	var buf bytes.Buffer
	writeHeader(&buf, VersionType, 0)
	stateStart := int64(buf.Len())
	writeHeader(&buf, CompressedBeaconStateType, uint32(compressed.Len()))
	buf.Write(compressed.Bytes())
	indexStart := int64(buf.Len())
	writeHeader(&buf, SlotIndexType, 8*3)
	writeUint64(&buf, uint64(slot))
	writeUint64(&buf, uint64(stateStart-indexStart))
	writeUint64(&buf, 1)
	return buf.Bytes()
}

func TestReadState(t *testing.T) {
	state := bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef}, 10_000)
	path := filepath.Join(t.TempDir(), "test-00001.era")
	require.NoError(t, os.WriteFile(path, buildEra(t, 8192, state), 0o644))

	slot, data, err := ReadState(path)
	require.NoError(t, err)
	assert.Equal(t, common.Slot(8192), slot)
	assert.Equal(t, state, data)
}

func TestSeekState(t *testing.T) {
	data := buildEra(t, 16384, []byte{1, 2, 3})
	f := bytes.NewReader(data)
	slot, err := SeekState(f, int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, common.Slot(16384), slot)

	typ, _, err := ReadHeader(f)
	require.NoError(t, err)
	assert.Equal(t, CompressedBeaconStateType, typ)
}

func TestReadHeaderReserved(t *testing.T) {
	_, _, err := ReadHeader(bytes.NewReader([]byte{'e', '2', 0, 0, 0, 0, 1, 0}))
	assert.Error(t, err)
}

func TestReadStateInvalid(t *testing.T) {
	dir := t.TempDir()

	short := filepath.Join(dir, "short.era")
	require.NoError(t, os.WriteFile(short, []byte{1, 2, 3}, 0o644))
	_, _, err := ReadState(short)
	assert.Error(t, err)

	// slot-index that points at the version entry instead of a state
	var buf bytes.Buffer
	writeHeader(&buf, VersionType, 0)
	writeHeader(&buf, SlotIndexType, 8*3)
	rel := int64(-headerSize)
	writeUint64(&buf, 0)
	writeUint64(&buf, uint64(rel))
	writeUint64(&buf, 1)
	wrongType := filepath.Join(dir, "wrong.era")
	require.NoError(t, os.WriteFile(wrongType, buf.Bytes(), 0o644))
	_, _, err = ReadState(wrongType)
	assert.Error(t, err)

	_, _, err = ReadState(filepath.Join(dir, "missing.era"))
	assert.Error(t, err)
}

func TestCheckVersion(t *testing.T) {
	data := buildEra(t, 8192, []byte{1, 2, 3})
	require.NoError(t, CheckVersion(bytes.NewReader(data)))

	// valid group, but without the leading version entry
	noVersion := data[headerSize:]
	err := CheckVersion(bytes.NewReader(noVersion))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected version type")
	_, _, err = readState(bytes.NewReader(noVersion))
	assert.Error(t, err)

	withData := append([]byte(nil), data...)
	withData[2] = 4
	err = CheckVersion(bytes.NewReader(withData))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected version entry length")

	assert.Error(t, CheckVersion(bytes.NewReader(data[:3])))
}

func TestStore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a-00001.era"), buildEra(t, 8192, []byte{1}), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "a-00002.era"), buildEra(t, 16384, []byte{2, 2}), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not an era"), 0o644))

	s := NewStore()
	require.NoError(t, s.Load(dir))
	require.Len(t, s.Files, 2)
	min, max := s.Bounds()
	assert.Equal(t, common.Slot(8192), min)
	assert.Equal(t, common.Slot(16384), max)

	data, err := s.State(8192)
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, data)

	slot, data, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, common.Slot(16384), slot)
	assert.Equal(t, []byte{2, 2}, data)

	_, err = s.State(100)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, _, err = NewStore().Latest()
	assert.ErrorIs(t, err, ErrNotExist)
}
