// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dash

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
)

// FormatVersion is the layout format this binary writes. Stored layouts with a
// higher version are ignored.
const FormatVersion uint8 = 1

// Blob names in the persistent store.
const (
	LayoutFile  = "button_layout.cbor"
	VersionFile = "layout_version"
)

// Storage reads and writes named blobs. A missing blob must return an error
// matching fs.ErrNotExist.
type Storage interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte) error
}

// DirStorage keeps blobs as files in a directory.
type DirStorage struct {
	Dir string
}

func (d DirStorage) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(d.Dir, name))
}

// WriteFile replaces the whole file through a temporary file and rename.
func (d DirStorage) WriteFile(name string, data []byte) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(d.Dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadResult says where a loaded layout came from.
type LoadResult int

const (
	LoadedStored LoadResult = iota
	LoadedDefaults
	LoadFailed
)

func (l LoadResult) String() string {
	switch l {
	case LoadedStored:
		return "stored"
	case LoadedDefaults:
		return "defaults"
	default:
		return "failed"
	}
}

// Store persists the slot layout with its format version.
type Store struct {
	storage Storage
	logger  *log.Logger
}

// NewStore creates a store. logger may be nil.
func NewStore(storage Storage, logger *log.Logger) *Store {
	return &Store{storage: storage, logger: logger}
}

// Save writes the full layout, then the version byte.
func (s *Store) Save(cfgs [NumSlots]SlotConfig) error {
	data, err := cbor.Marshal(cfgs[:])
	if err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}
	if err := s.storage.WriteFile(LayoutFile, data); err != nil {
		return fmt.Errorf("write layout: %w", err)
	}
	if err := s.storage.WriteFile(VersionFile, []byte{FormatVersion}); err != nil {
		return fmt.Errorf("write layout version: %w", err)
	}
	return nil
}

// Load populates r from the store.
//
// A missing layout, a newer format version or an undecodable layout puts the
// defaults into r and saves them. Any other read failure leaves r as it is and
// is returned; the caller carries on with the in-memory layout.
func (s *Store) Load(r *Runtime) (LoadResult, error) {
	cfgs, err := s.read()
	if err == nil {
		r.Apply(cfgs)
		return LoadedStored, nil
	}
	if !errors.Is(err, errAbsent) {
		return LoadFailed, err
	}

	if s.logger != nil {
		s.logger.Printf("layout: %v, writing defaults", err)
	}
	r.Apply(DefaultLayout())
	if err := s.Save(r.Configs()); err != nil {
		return LoadedDefaults, err
	}
	return LoadedDefaults, nil
}

var errAbsent = errors.New("no usable stored layout")

func (s *Store) read() ([NumSlots]SlotConfig, error) {
	var out [NumSlots]SlotConfig

	version, err := s.storage.ReadFile(VersionFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return out, fmt.Errorf("%w: version file missing", errAbsent)
	case err != nil:
		return out, fmt.Errorf("read layout version: %w", err)
	case len(version) == 0:
		return out, fmt.Errorf("%w: version file empty", errAbsent)
	case version[0] > FormatVersion:
		return out, fmt.Errorf("%w: stored version %d is newer than %d", errAbsent, version[0], FormatVersion)
	}

	data, err := s.storage.ReadFile(LayoutFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return out, fmt.Errorf("%w: layout file missing", errAbsent)
	case err != nil:
		return out, fmt.Errorf("read layout: %w", err)
	}

	var stored []SlotConfig
	if err := cbor.Unmarshal(data, &stored); err != nil {
		return out, fmt.Errorf("%w: %v", errAbsent, err)
	}
	if len(stored) != NumSlots {
		return out, fmt.Errorf("%w: %d slots stored, want %d", errAbsent, len(stored), NumSlots)
	}
	copy(out[:], stored)
	return out, nil
}
