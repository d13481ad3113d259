package store

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
	"github.com/go-logr/logr"
	"github.com/klauspost/compress/zstd"

	"github.com/hailam/nnueaffine/nnue"
	"github.com/hailam/nnueaffine/nnue/layers"
)

// Storage key prefixes
const (
	prefixMeta = "meta/"
	prefixBlob = "blob/"
	prefixArch = "arch/"
)

var (
	// ErrNotFound is returned for an ID with no stored network.
	ErrNotFound = errors.New("store: network not found")

	// ErrAmbiguous is returned when an ID prefix matches several networks.
	ErrAmbiguous = errors.New("store: ambiguous network id")

	// ErrCorrupt is returned when a stored blob fails its checksum.
	ErrCorrupt = errors.New("store: checksum mismatch")
)

// Entry describes one stored network file. ID is the xxhash64 of the file
// bytes, so two networks with the same architecture hash never collide.
type Entry struct {
	ID          uint64    `json:"id"`
	Hash        uint32    `json:"hash"`
	Dims        string    `json:"dims"`
	Description string    `json:"description"`
	Size        int       `json:"size"`
	Stored      int       `json:"stored"`
	Added       time.Time `json:"added"`
}

// Store wraps BadgerDB for persistent network storage. File bytes are kept
// zstd-compressed under "blob/<id>" and their Entry as JSON under
// "meta/<id>". "arch/<hash>/<id>" indexes entries by architecture hash.
type Store struct {
	db  *badger.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
	log logr.Logger
}

// Open opens or creates a store in dir.
func Open(dir string, log logr.Logger) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable logging
	return open(opts, log)
}

// OpenInMemory opens a store that lives only as long as the process.
func OpenInMemory(log logr.Logger) (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts, log)
}

func open(opts badger.Options, log logr.Logger) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, err
	}
	return &Store{db: db, enc: enc, dec: dec, log: log.WithName("store")}, nil
}

// Close closes the database
func (s *Store) Close() error {
	s.dec.Close()
	if err := s.enc.Close(); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}

func idKey(prefix string, id uint64) []byte {
	return []byte(fmt.Sprintf("%s%016x", prefix, id))
}

func archPrefix(hash uint32) []byte {
	return []byte(fmt.Sprintf("%s%08x/", prefixArch, hash))
}

func archKey(hash uint32, id uint64) []byte {
	return fmt.Appendf(archPrefix(hash), "%016x", id)
}

// Put validates data as a complete network file for the chain described by
// dims (e.g. "512,32,32") and stores it under its content ID. Storing the
// same bytes again refreshes the entry; a different network with the same
// architecture hash gets an entry of its own.
func (s *Store) Put(dims string, data []byte) (Entry, error) {
	inputDims, hidden, err := nnue.ParseDimensions(dims)
	if err != nil {
		return Entry{}, err
	}
	arch, err := nnue.NewArchitecture(inputDims, hidden, layers.WithKernel(layers.Scalar))
	if err != nil {
		return Entry{}, err
	}
	net := nnue.NewNetwork(arch)
	if err := net.LoadFromReader(bytes.NewReader(data)); err != nil {
		return Entry{}, fmt.Errorf("not a valid %s network: %w", arch, err)
	}

	blob := s.enc.EncodeAll(data, nil)
	entry := Entry{
		ID:          xxhash.Sum64(data),
		Hash:        net.Hash,
		Dims:        dims,
		Description: net.NetDescription,
		Size:        len(data),
		Stored:      len(blob),
		Added:       time.Now(),
	}
	meta, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(idKey(prefixBlob, entry.ID), blob); err != nil {
			return err
		}
		if err := txn.Set(idKey(prefixMeta, entry.ID), meta); err != nil {
			return err
		}
		return txn.Set(archKey(entry.Hash, entry.ID), nil)
	})
	if err != nil {
		return Entry{}, fmt.Errorf("failed to store network %016x: %w", entry.ID, err)
	}

	s.log.V(1).Info("stored network", "id", fmt.Sprintf("%016x", entry.ID), "hash", fmt.Sprintf("%08x", entry.Hash),
		"dims", dims, "size", entry.Size, "stored", entry.Stored)
	return entry, nil
}

func getEntry(txn *badger.Txn, id uint64) (Entry, error) {
	var entry Entry
	item, err := txn.Get(idKey(prefixMeta, id))
	if err == badger.ErrKeyNotFound {
		return entry, ErrNotFound
	}
	if err != nil {
		return entry, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entry)
	})
	return entry, err
}

// Entry returns the metadata stored for id.
func (s *Store) Entry(id uint64) (Entry, error) {
	var entry Entry
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		entry, err = getEntry(txn, id)
		return err
	})
	return entry, err
}

// Resolve expands a hex ID prefix, as printed by the CLI, to the full ID of
// the one network it matches.
func (s *Store) Resolve(prefix string) (uint64, error) {
	prefix = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(prefix)), "0x")
	if prefix == "" || len(prefix) > 16 {
		return 0, fmt.Errorf("invalid network id %q", prefix)
	}
	if _, err := strconv.ParseUint(prefix, 16, 64); err != nil {
		return 0, fmt.Errorf("invalid network id %q: %w", prefix, err)
	}

	var ids []uint64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefixMeta + prefix)
		for it.Seek(p); it.ValidForPrefix(p) && len(ids) < 2; it.Next() {
			id, err := strconv.ParseUint(string(it.Item().Key()[len(prefixMeta):]), 16, 64)
			if err != nil {
				return fmt.Errorf("%w: bad key %q", ErrCorrupt, it.Item().Key())
			}
			ids = append(ids, id)
		}
		return nil
	})
	switch {
	case err != nil:
		return 0, err
	case len(ids) == 0:
		return 0, fmt.Errorf("%w: %s", ErrNotFound, prefix)
	case len(ids) > 1:
		return 0, fmt.Errorf("%w: %s", ErrAmbiguous, prefix)
	}
	return ids[0], nil
}

// Get returns the metadata and the original file bytes for id.
func (s *Store) Get(id uint64) (Entry, []byte, error) {
	var (
		entry Entry
		blob  []byte
	)
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		if entry, err = getEntry(txn, id); err != nil {
			return err
		}

		item, err := txn.Get(idKey(prefixBlob, id))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("%w: blob missing for %016x", ErrCorrupt, id)
		}
		if err != nil {
			return err
		}
		blob, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return Entry{}, nil, err
	}

	data, err := s.dec.DecodeAll(blob, make([]byte, 0, entry.Size))
	if err != nil {
		return Entry{}, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if xxhash.Sum64(data) != id {
		return Entry{}, nil, fmt.Errorf("%w: network %016x", ErrCorrupt, id)
	}
	return entry, data, nil
}

// List returns every stored entry, ordered by architecture hash and then by
// time added.
func (s *Store) List() ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(prefixMeta)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var entry Entry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	})
	slices.SortFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(a.Hash, b.Hash); c != 0 {
			return c
		}
		return a.Added.Compare(b.Added)
	})
	return entries, err
}

// ByHash returns the entries whose architecture hash is hash.
func (s *Store) ByHash(hash uint32) ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := archPrefix(hash)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id, err := strconv.ParseUint(string(it.Item().Key()[len(prefix):]), 16, 64)
			if err != nil {
				return fmt.Errorf("%w: bad key %q", ErrCorrupt, it.Item().Key())
			}
			entry, err := getEntry(txn, id)
			if err != nil {
				return fmt.Errorf("index entry %016x: %w", id, err)
			}
			entries = append(entries, entry)
		}
		return nil
	})
	return entries, err
}

// Delete removes the network stored under id.
func (s *Store) Delete(id uint64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		entry, err := getEntry(txn, id)
		if err != nil {
			return err
		}
		if err := txn.Delete(idKey(prefixMeta, id)); err != nil {
			return err
		}
		if err := txn.Delete(archKey(entry.Hash, id)); err != nil {
			return err
		}
		return txn.Delete(idKey(prefixBlob, id))
	})
}

// LoadNetwork rebuilds the architecture recorded for id and loads the
// stored parameters into it.
func (s *Store) LoadNetwork(id uint64, opts ...layers.Option) (*nnue.Network, error) {
	entry, data, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	inputDims, hidden, err := nnue.ParseDimensions(entry.Dims)
	if err != nil {
		return nil, err
	}
	arch, err := nnue.NewArchitecture(inputDims, hidden, opts...)
	if err != nil {
		return nil, err
	}
	net := nnue.NewNetwork(arch)
	if err := net.LoadFromReader(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return net, nil
}
