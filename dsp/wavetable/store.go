package wavetable

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrUnknownWaveform is returned by Store.Get for names never added.
	ErrUnknownWaveform = errors.New("wavetable: unknown waveform")
	// ErrDuplicateWaveform is returned when a name is added twice.
	ErrDuplicateWaveform = errors.New("wavetable: duplicate waveform")
)

// DefaultSize is the table length used by the standard store.
const DefaultSize = 2048

// Store maps waveform names to their table sets. Memories are immutable,
// so a Memory obtained from Get can be read without holding any lock.
type Store struct {
	mu   sync.RWMutex
	size int
	mems map[string]*Memory
}

// NewStore returns an empty store whose Build calls use size-sample tables.
func NewStore(size int) (*Store, error) {
	if !isPowerOfTwo(size) {
		return nil, fmt.Errorf("%w: %d", ErrNotPowerOfTwo, size)
	}
	return &Store{size: size, mems: make(map[string]*Memory)}, nil
}

// NewStandardStore returns a store holding the built-in waveforms. The
// table sets are synthesized concurrently.
func NewStandardStore(size int) (*Store, error) {
	s, err := NewStore(size)
	if err != nil {
		return nil, err
	}

	built := make([]*Memory, len(standardWaves))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, w := range standardWaves {
		g.Go(func() error {
			spec, err := w.spectrum(size)
			if err != nil {
				return err
			}
			mem, err := FromSpectrum(w.name, spec)
			if err != nil {
				return err
			}
			built[i] = mem
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, mem := range built {
		if err := s.Add(mem); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Size returns the table length used by Build.
func (s *Store) Size() int { return s.size }

// Add registers a prebuilt memory under its name.
func (s *Store) Add(mem *Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.mems[mem.name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateWaveform, mem.name)
	}
	s.mems[mem.name] = mem
	return nil
}

// Build synthesizes a table set from spec and adds it under name.
func (s *Store) Build(name string, spec Spectrum) (*Memory, error) {
	if spec.Len() != s.size {
		return nil, fmt.Errorf("wavetable: spectrum for %q has %d bins, store uses %d", name, spec.Len(), s.size)
	}
	mem, err := FromSpectrum(name, spec)
	if err != nil {
		return nil, err
	}
	if err := s.Add(mem); err != nil {
		return nil, err
	}
	return mem, nil
}

// Get returns the memory registered under name.
func (s *Store) Get(name string) (*Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mem, ok := s.mems[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWaveform, name)
	}
	return mem, nil
}

// Names returns the registered waveform names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.mems))
	for name := range s.mems {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
