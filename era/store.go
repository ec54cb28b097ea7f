package era

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/protolambda/zrnt/eth2/beacon/common"
)

// Store indexes a directory of era files.
type Store struct {
	// era file paths indexed by state slot
	Files map[common.Slot]string
}

func NewStore() *Store {
	return &Store{
		Files: make(map[common.Slot]string),
	}
}

// Load adds every .era file under dirPath to the store.
func (s *Store) Load(dirPath string) error {
	return filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".era") {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to read %q: %w", path, err)
		}
		defer f.Close()
		end, err := f.Seek(0, io.SeekEnd)
		if err != nil {
			return fmt.Errorf("failed to seek era %q to end: %w", path, err)
		}
		slot, err := SeekState(f, end)
		if err != nil {
			return fmt.Errorf("failed to seek era %q to state: %w", path, err)
		}
		s.Files[slot] = path
		return nil
	})
}

func (s *Store) Bounds() (min, max common.Slot) {
	min = ^common.Slot(0)
	max = common.Slot(0)
	for k := range s.Files {
		if k < min {
			min = k
		}
		if k > max {
			max = k
		}
	}
	return
}

// State reads the state at slot, which must be the state slot of one of the era files.
func (s *Store) State(slot common.Slot) ([]byte, error) {
	p, ok := s.Files[slot]
	if !ok {
		return nil, fmt.Errorf("no era file with state at slot %d: %w", slot, os.ErrNotExist)
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open era: %w", err)
	}
	defer f.Close()
	got, data, err := readState(f)
	if err != nil {
		return nil, err
	}
	if got != slot {
		return nil, fmt.Errorf("era %q changed, state slot is %d, expected %d", p, got, slot)
	}
	return data, nil
}

// Latest reads the state with the highest slot in the store.
func (s *Store) Latest() (common.Slot, []byte, error) {
	if len(s.Files) == 0 {
		return 0, nil, ErrNotExist
	}
	_, max := s.Bounds()
	data, err := s.State(max)
	return max, data, err
}
