package models

import (
	"io"
	"sync"

	"github.com/aukilabs/askr/spatial"
	"github.com/aukilabs/go-tooling/pkg/errors"
)

// FootprintPair is an unordered pair of footprints whose bounding boxes
// overlap.
type FootprintPair struct {
	A *Footprint `json:"a"`
	B *Footprint `json:"b"`
}

// FootprintStore indexes footprints by id and by position. It adds the
// locking the spatial tree itself does not do, so all methods are safe for
// concurrent use.
type FootprintStore struct {
	mutex      sync.RWMutex
	footprints map[string]*Footprint
	index      *spatial.Tree
}

// NewFootprintStore returns a store indexing the given initial region. The
// region grows as footprints outside it are added.
func NewFootprintStore(bounds spatial.BBox, maxDepth int) (*FootprintStore, error) {
	index, err := spatial.New(bounds, spatial.WithMaxDepth(maxDepth))
	if err != nil {
		return nil, errors.New("creating spatial index failed").Wrap(err)
	}
	return &FootprintStore{
		footprints: make(map[string]*Footprint),
		index:      index,
	}, nil
}

// Add indexes f. Footprint ids are unique within a store.
func (s *FootprintStore) Add(f *Footprint) error {
	if f == nil {
		return errors.New("nil footprint").WithType(ErrTypeInvalidFootprint)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.footprints[f.ID]; ok {
		instrumentFootprintRejected(ErrTypeDuplicateFootprint)
		return errors.New("footprint id already indexed").
			WithType(ErrTypeDuplicateFootprint).
			WithTag("id", f.ID)
	}
	if err := s.index.Add(f); err != nil {
		instrumentFootprintRejected(errors.Type(err))
		return errors.New("indexing footprint failed").
			WithTag("id", f.ID).
			Wrap(err)
	}
	s.footprints[f.ID] = f

	instrumentFootprintAdded(s.index.Stats())
	return nil
}

// Get returns the footprint with the given id.
func (s *FootprintStore) Get(id string) (*Footprint, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	f, ok := s.footprints[id]
	return f, ok
}

// Count returns the number of indexed footprints.
func (s *FootprintStore) Count() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.index.Len()
}

// Bounds returns the currently indexed region.
func (s *FootprintStore) Bounds() spatial.BBox {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.index.Bounds()
}

// Stats returns counters describing the index shape.
func (s *FootprintStore) Stats() spatial.Stats {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.index.Stats()
}

// FindAt returns every footprint containing p, in index traversal order.
func (s *FootprintStore) FindAt(p spatial.Vector) []*Footprint {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	prims := s.index.FindAll(p)
	found := make([]*Footprint, len(prims))
	for i, prim := range prims {
		found[i] = prim.(*Footprint)
	}
	return found
}

// FirstAt returns the first footprint containing p on the index path, or
// nil when no footprint contains it.
func (s *FootprintStore) FirstAt(p spatial.Vector) *Footprint {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	prim := s.index.Find(p)
	if prim == nil {
		return nil
	}
	return prim.(*Footprint)
}

// OverlapPairs returns every unordered pair of footprints whose bounding
// boxes overlap, each pair exactly once.
func (s *FootprintStore) OverlapPairs() []FootprintPair {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	pairs := s.index.OverlapPairs()
	out := make([]FootprintPair, len(pairs))
	for i, p := range pairs {
		out[i] = FootprintPair{A: p.A.(*Footprint), B: p.B.(*Footprint)}
	}
	return out
}

// DumpTree writes the index structure as text.
func (s *FootprintStore) DumpTree(w io.Writer) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.index.Print(w)
}

// WriteVRML writes the index structure as a VRML 2.0 scene.
func (s *FootprintStore) WriteVRML(w io.Writer) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.index.WriteVRML(w)
}
