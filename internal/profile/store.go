package profile

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/armon/go-radix"

	"github.com/debashish-mukherjee/go-snmpfleet/internal/simulate"
)

// Store holds the static OID dataset for one device profile. Exact lookups go
// through a radix tree; GETNEXT walks use a pre-sorted OID list.
type Store struct {
	tree   *radix.Tree
	sorted []string
	dirty  bool
	mu     sync.RWMutex
}

// NewStore creates an empty profile store.
func NewStore() *Store {
	return &Store{tree: radix.New()}
}

// Insert adds or replaces the datum for an OID.
func (s *Store) Insert(oid string, d simulate.Datum) {
	oid = normalizeOID(oid)
	if oid == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, updated := s.tree.Insert(oid, d); !updated {
		s.sorted = append(s.sorted, oid)
		s.dirty = true
	}
}

// Get retrieves the datum for an exact OID.
func (s *Store) Get(oid string) (simulate.Datum, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.tree.Get(normalizeOID(oid))
	if !ok {
		return simulate.Datum{}, false
	}
	return v.(simulate.Datum), true
}

// Next returns the first OID strictly after oid in lexicographic MIB order,
// with its datum. ok is false at the end of the dataset.
func (s *Store) Next(oid string) (string, simulate.Datum, bool) {
	oid = normalizeOID(oid)
	s.mu.Lock()
	s.sortLocked()
	sorted := s.sorted
	s.mu.Unlock()

	i := sort.Search(len(sorted), func(i int) bool {
		return compareOIDs(sorted[i], oid) > 0
	})
	if i >= len(sorted) {
		return "", simulate.Datum{}, false
	}

	next := sorted[i]
	d, ok := s.Get(next)
	if !ok {
		return "", simulate.Datum{}, false
	}
	return next, d, true
}

// Walk visits every OID in MIB order until fn returns false.
func (s *Store) Walk(fn func(oid string, d simulate.Datum) bool) {
	s.mu.Lock()
	s.sortLocked()
	sorted := append([]string(nil), s.sorted...)
	s.mu.Unlock()

	for _, oid := range sorted {
		d, ok := s.Get(oid)
		if !ok {
			continue
		}
		if !fn(oid, d) {
			return
		}
	}
}

// Len returns the number of OIDs in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}

func (s *Store) sortLocked() {
	if !s.dirty {
		return
	}
	sort.Slice(s.sorted, func(i, j int) bool {
		return compareOIDs(s.sorted[i], s.sorted[j]) < 0
	})
	s.dirty = false
}

func normalizeOID(oid string) string {
	oid = strings.TrimSpace(oid)
	return strings.TrimPrefix(oid, ".")
}

// compareOIDs orders dotted OIDs by numeric components, the MIB walk order.
func compareOIDs(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, _ := strconv.Atoi(as[i])
		bn, _ := strconv.Atoi(bs[i])
		if an != bn {
			if an < bn {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	default:
		return 0
	}
}
