package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/burntcarrot/nvspad/commons"
	"gopkg.in/yaml.v3"
)

// Namespaces and keys are limited to 15 characters, as on the device.
const maxNameLen = 15

var (
	ErrNotFound    = errors.New("not found")
	ErrBadValue    = errors.New("bad value")
	ErrBadType     = errors.New("unknown dtype")
	ErrNameTooLong = fmt.Errorf("name longer than %d characters", maxNameLen)
)

// store is an in-memory NVS partition: namespaces of typed key/value entries.
type store struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]commons.Entry
}

func newStore() *store {
	return &store{namespaces: make(map[string]map[string]commons.Entry)}
}

// put creates or replaces an entry, normalizing its value for its dtype.
func (s *store) put(e commons.Entry) error {
	if err := checkName(e.Namespace); err != nil {
		return err
	}
	if err := checkName(e.Key); err != nil {
		return err
	}

	value, size, err := normalize(e.DType, e.Value)
	if err != nil {
		return fmt.Errorf("%s/%s: %w", e.Namespace, e.Key, err)
	}
	e.Value, e.Size = value, size

	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[e.Namespace]
	if !ok {
		ns = make(map[string]commons.Entry)
		s.namespaces[e.Namespace] = ns
	}
	ns[e.Key] = e
	return nil
}

// get returns a single entry.
func (s *store) get(namespace, key string) (commons.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.namespaces[namespace][key]
	if !ok {
		return commons.Entry{}, fmt.Errorf("%s/%s: %w", namespace, key, ErrNotFound)
	}
	return e, nil
}

// list returns the entries of namespace, or of every namespace when namespace is empty, sorted by namespace and key.
func (s *store) list(namespace string) commons.Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()

	listing := commons.Listing{Contents: []commons.Entry{}}
	for name, ns := range s.namespaces {
		if namespace != "" && name != namespace {
			continue
		}
		for _, e := range ns {
			listing.Contents = append(listing.Contents, e)
		}
	}

	sort.Slice(listing.Contents, func(i, j int) bool {
		a, b := listing.Contents[i], listing.Contents[j]
		if a.Namespace != b.Namespace {
			return a.Namespace < b.Namespace
		}
		return a.Key < b.Key
	})

	return listing
}

// update sets existing keys of namespace to new values.
// Every value is checked against the stored dtype before anything is written, so either all keys change or none do.
func (s *store) update(namespace string, req commons.EditRequest) ([]commons.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		return nil, fmt.Errorf("namespace %q: %w", namespace, ErrNotFound)
	}

	keys := make([]string, 0, len(req))
	for key := range req {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	changed := make([]commons.Entry, 0, len(keys))
	for _, key := range keys {
		e, ok := ns[key]
		if !ok {
			return nil, fmt.Errorf("key %q in namespace %q: %w", key, namespace, ErrNotFound)
		}

		value, size, err := normalize(e.DType, req[key])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		e.Value, e.Size = value, size
		changed = append(changed, e)
	}

	for _, e := range changed {
		ns[e.Key] = e
	}
	return changed, nil
}

func checkName(name string) error {
	if name == "" {
		return fmt.Errorf("empty name: %w", ErrBadValue)
	}
	if len(name) > maxNameLen {
		return fmt.Errorf("%q: %w", name, ErrNameTooLong)
	}
	return nil
}

// normalize parses value as dtype and returns its canonical string form and stored size in bytes.
func normalize(dtype commons.DType, value string) (string, int, error) {
	switch dtype {
	case commons.DTypeString:
		// Stored strings carry their terminator.
		return value, len(value) + 1, nil

	case commons.DTypeBinary:
		b, err := hex.DecodeString(strings.TrimSpace(value))
		if err != nil {
			return "", 0, fmt.Errorf("%w: must be a hex string", ErrBadValue)
		}
		return hex.EncodeToString(b), len(b), nil
	}

	size, signed := dtype.IntSize()
	if size == 0 {
		return "", 0, fmt.Errorf("%w %q", ErrBadType, dtype)
	}

	value = strings.TrimSpace(value)
	if signed {
		n, err := strconv.ParseInt(value, 10, size*8)
		if err != nil {
			return "", 0, fmt.Errorf("%w: %q is not a valid %s", ErrBadValue, value, dtype)
		}
		return strconv.FormatInt(n, 10), size, nil
	}

	n, err := strconv.ParseUint(value, 10, size*8)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q is not a valid %s", ErrBadValue, value, dtype)
	}
	return strconv.FormatUint(n, 10), size, nil
}

// seedEntry is a single value in a seed file.
type seedEntry struct {
	DType commons.DType `yaml:"dtype"`
	Value string        `yaml:"value"`
}

// seed fills the store from namespace -> key -> entry.
func (s *store) seed(seed map[string]map[string]seedEntry) error {
	for namespace, keys := range seed {
		for key, v := range keys {
			err := s.put(commons.Entry{Namespace: namespace, Key: key, DType: v.DType, Value: v.Value})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// loadSeed reads a seed file:
//
//	network:
//	  wifi_ssid:
//	    dtype: string
//	    value: MyNetwork
func loadSeed(path string) (map[string]map[string]seedEntry, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var seed map[string]map[string]seedEntry
	if err := yaml.Unmarshal(file, &seed); err != nil {
		return nil, fmt.Errorf("parsing seed %s: %w", path, err)
	}
	return seed, nil
}

// defaultSeed is used when no seed file is given.
func defaultSeed() map[string]map[string]seedEntry {
	return map[string]map[string]seedEntry{
		"network": {
			"wifi_ssid": {DType: commons.DTypeString, Value: "MyNetwork"},
			"wifi_pass": {DType: commons.DTypeString, Value: "changeme"},
			"port":      {DType: commons.DTypeU16, Value: "80"},
		},
		"app": {
			"timeout":   {DType: commons.DTypeU8, Value: "30"},
			"offset":    {DType: commons.DTypeI32, Value: "-5"},
			"device_id": {DType: commons.DTypeBinary, Value: "deadbeef"},
		},
	}
}
