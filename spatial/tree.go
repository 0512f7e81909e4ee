package spatial

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	// DefaultMaxDepth bounds subdivision for degenerate geometry, such as
	// point-sized primitives that would otherwise split forever.
	DefaultMaxDepth = 64

	// maxGrows bounds region doubling when a primitive lies outside the
	// indexed region. Doubling any positive extent overflows float64 well
	// within this many steps, so reaching the cap means an axis that must
	// grow has zero extent and never will.
	maxGrows = 4096
)

// Error types returned by Tree operations.
const (
	ErrTypeInvalidBounds  = "invalid_bounds"
	ErrTypeNilPrimitive   = "nil_primitive"
	ErrTypeUnsupportedDim = "unsupported_dimension"
)

// Tree is an adaptive spatial index over a D-dimensional region. The region
// splits recursively into 2^D equal children, and a primitive lives at the
// deepest node whose region fully contains its bounding box. Adding a
// primitive outside the region doubles the region until it fits.
//
// Tree is not safe for concurrent use. Callers needing concurrency
// synchronize around it.
type Tree struct {
	dim      int
	maxDepth int
	root     *node
	count    int
	nodes    int
	depth    int
	grows    int
}

// Option configures a Tree.
type Option func(*Tree)

// WithMaxDepth sets the maximum node depth. Primitives that would need
// deeper subdivision stay resident at the capped node.
func WithMaxDepth(depth int) Option {
	return func(t *Tree) {
		t.maxDepth = depth
	}
}

// New returns a tree indexing the given initial region.
func New(bounds BBox, opts ...Option) (*Tree, error) {
	if err := checkBounds(bounds); err != nil {
		return nil, err
	}

	t := &Tree{
		dim:      bounds.Dim(),
		maxDepth: DefaultMaxDepth,
		root:     &node{bounds: bounds.clone()},
		nodes:    1,
	}
	for _, o := range opts {
		o(t)
	}
	if t.maxDepth < 1 {
		return nil, errors.New("max depth must be positive").
			WithType(ErrTypeInvalidBounds).
			WithTag("max_depth", t.maxDepth)
	}
	return t, nil
}

// Add indexes p. The primitive is stored by reference and must keep its
// bounding box unchanged for as long as it is indexed. The tree is left
// untouched when an error is returned.
func (t *Tree) Add(p Primitive) error {
	if p == nil {
		return errors.New("nil primitive").WithType(ErrTypeNilPrimitive)
	}

	bb := p.BoundingBox()
	if err := checkBounds(bb); err != nil {
		return err
	}
	if bb.Dim() != t.dim {
		return errors.New("primitive dimension does not match tree").
			WithType(ErrTypeInvalidBounds).
			WithTag("tree_dim", t.dim).
			WithTag("primitive_dim", bb.Dim())
	}

	grows, err := growsNeeded(t.root.bounds, bb)
	if err != nil {
		return err
	}
	for i := 0; i < grows; i++ {
		t.grow(bb)
	}

	t.insert(t.root, p, bb, 0)
	t.count++
	return nil
}

// Find returns the first indexed primitive containing p on the
// root-to-leaf path, or nil when no primitive contains it.
func (t *Tree) Find(p Vector) Primitive {
	if !t.root.bounds.ContainsPoint(p) {
		return nil
	}
	for n := t.root; n != nil; n = n.childAt(p) {
		for _, prim := range n.primitives {
			if prim.BoundingBox().ContainsPoint(p) && prim.Contains(p) {
				return prim
			}
		}
	}
	return nil
}

// FindAll returns every indexed primitive containing p, in root-to-leaf
// traversal order. The result is a fresh slice on every call.
func (t *Tree) FindAll(p Vector) []Primitive {
	if !t.root.bounds.ContainsPoint(p) {
		return nil
	}
	var found []Primitive
	for n := t.root; n != nil; n = n.childAt(p) {
		for _, prim := range n.primitives {
			if prim.BoundingBox().ContainsPoint(p) && prim.Contains(p) {
				found = append(found, prim)
			}
		}
	}
	return found
}

// OverlapPairs returns every unordered pair of indexed primitives whose
// bounding boxes overlap, each pair exactly once.
func (t *Tree) OverlapPairs() []Pair {
	var pairs []Pair
	t.root.overlapPairs(&pairs)
	return pairs
}

// Bounds returns the currently indexed region. It expands as primitives
// outside it are added.
func (t *Tree) Bounds() BBox {
	return t.root.bounds.clone()
}

// Len returns the number of indexed primitives.
func (t *Tree) Len() int {
	return t.count
}

// Stats describes the shape of a Tree.
type Stats struct {
	Primitives int
	Nodes      int
	Depth      int
	Grows      int
	Bounds     BBox
}

// Stats returns counters describing the tree shape.
func (t *Tree) Stats() Stats {
	return Stats{
		Primitives: t.count,
		Nodes:      t.nodes,
		Depth:      t.depth,
		Grows:      t.grows,
		Bounds:     t.Bounds(),
	}
}

// Print writes a textual dump of the tree: one "+ " line per node, depth
// first and indented two spaces per level, each followed by one line per
// resident primitive at the next indent.
func (t *Tree) Print(w io.Writer) error {
	return t.root.print(w, 0)
}

// growsNeeded returns how many doublings take bounds to contain target.
// The arithmetic mirrors grow exactly, on scratch vectors, so a target the
// region can never reach is detected before the tree is touched.
func growsNeeded(bounds, target BBox) (int, error) {
	lo := bounds.Min.Clone()
	hi := bounds.Max.Clone()

	cannotGrow := func() error {
		return errors.New("region cannot grow to fit primitive").
			WithType(ErrTypeInvalidBounds).
			WithTag("region_min", bounds.Min).
			WithTag("region_max", bounds.Max).
			WithTag("primitive_min", target.Min).
			WithTag("primitive_max", target.Max)
	}

	for n := 0; n < maxGrows; n++ {
		if (BBox{Min: lo, Max: hi}).ContainsBox(target) {
			return n, nil
		}
		moved := false
		for i := range lo {
			extent := hi[i] - lo[i]
			if target.Min[i] < lo[i] {
				if next := lo[i] - extent; next != lo[i] {
					lo[i] = next
					moved = true
				}
			} else {
				if next := hi[i] + extent; next != hi[i] {
					hi[i] = next
					moved = true
				}
			}
		}
		if !moved {
			return 0, cannotGrow()
		}
	}
	return 0, cannotGrow()
}

// grow doubles the root region on every axis and keeps the old root as the
// child it becomes in the doubled region. Each axis is anchored by target:
// the region extends downward iff target lies below it on that axis,
// upward otherwise.
func (t *Tree) grow(target BBox) {
	old := t.root
	lo := old.bounds.Min.Clone()
	hi := old.bounds.Max.Clone()

	slot := 0
	for i := 0; i < t.dim; i++ {
		extent := hi[i] - lo[i]
		if target.Min[i] < lo[i] {
			lo[i] -= extent
		} else {
			hi[i] += extent
			slot |= 1 << (t.dim - 1 - i)
		}
	}

	root := &node{
		bounds:   BBox{Min: lo, Max: hi},
		children: make([]*node, 1<<t.dim),
	}
	for c := range root.children {
		if c == slot {
			root.children[c] = old
			continue
		}
		root.children[c] = &node{bounds: root.bounds.quadrant(c)}
	}

	t.root = root
	t.nodes += 1 << t.dim
	t.depth++
	t.grows++
}

// insert places p at the deepest node whose region fully contains bb,
// splitting childless nodes on the way down while the depth budget lasts.
func (t *Tree) insert(n *node, p Primitive, bb BBox, depth int) {
	for {
		if n.children == nil {
			if depth >= t.maxDepth {
				break
			}
			q := quadrantFor(n.bounds, bb)
			if q < 0 {
				break
			}
			t.split(n, depth)
			n = n.children[q]
			depth++
			continue
		}

		q := quadrantFor(n.bounds, bb)
		if q < 0 || !n.children[q].bounds.ContainsBox(bb) {
			break
		}
		n = n.children[q]
		depth++
	}
	n.primitives = append(n.primitives, p)
}

// split creates all child quadrants of n and re-buckets residents that fit
// entirely inside one of them.
func (t *Tree) split(n *node, depth int) {
	n.children = make([]*node, 1<<t.dim)
	for c := range n.children {
		n.children[c] = &node{bounds: n.bounds.quadrant(c)}
	}
	t.nodes += 1 << t.dim
	if depth+1 > t.depth {
		t.depth = depth + 1
	}

	kept := n.primitives[:0]
	for _, p := range n.primitives {
		if q := quadrantFor(n.bounds, p.BoundingBox()); q >= 0 {
			child := n.children[q]
			child.primitives = append(child.primitives, p)
			continue
		}
		kept = append(kept, p)
	}
	n.primitives = kept
}

type node struct {
	bounds     BBox
	primitives []Primitive
	children   []*node // nil, or all 1<<dim quadrants in slot order
}

// childAt returns the child whose region contains p, nil on leaves. Points
// exactly on a midpoint belong to the high side, matching half-open
// containment.
func (n *node) childAt(p Vector) *node {
	if n.children == nil {
		return nil
	}
	d := len(p)
	slot := 0
	for i := 0; i < d; i++ {
		if p[i] < mid(n.bounds.Min[i], n.bounds.Max[i]) {
			slot |= 1 << (d - 1 - i)
		}
	}
	return n.children[slot]
}

func (n *node) overlapPairs(pairs *[]Pair) {
	for i := 0; i < len(n.primitives); i++ {
		bb := n.primitives[i].BoundingBox()
		for j := i + 1; j < len(n.primitives); j++ {
			if bb.Overlaps(n.primitives[j].BoundingBox()) {
				*pairs = append(*pairs, Pair{A: n.primitives[i], B: n.primitives[j]})
			}
		}
	}

	for _, p := range n.primitives {
		bb := p.BoundingBox()
		for _, c := range n.children {
			if bb.Overlaps(c.bounds) {
				c.overlapsWith(p, bb, pairs)
			}
		}
	}

	for _, c := range n.children {
		c.overlapPairs(pairs)
	}
}

// overlapsWith collects pairs between p and every primitive in n's subtree,
// pruning children whose regions do not overlap p's bounding box.
func (n *node) overlapsWith(p Primitive, bb BBox, pairs *[]Pair) {
	for _, q := range n.primitives {
		if bb.Overlaps(q.BoundingBox()) {
			*pairs = append(*pairs, Pair{A: p, B: q})
		}
	}
	for _, c := range n.children {
		if bb.Overlaps(c.bounds) {
			c.overlapsWith(p, bb, pairs)
		}
	}
}

func (n *node) print(w io.Writer, depth int) error {
	indent := strings.Repeat("  ", depth)
	if _, err := fmt.Fprintf(w, "%s+ Min[%s] Max[%s]\n", indent, n.bounds.Min, n.bounds.Max); err != nil {
		return err
	}
	for _, p := range n.primitives {
		bb := p.BoundingBox()
		if _, err := fmt.Fprintf(w, "%s  Min[%s] Max[%s]\n", indent, bb.Min, bb.Max); err != nil {
			return err
		}
	}
	for _, c := range n.children {
		if err := c.print(w, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// quadrant returns the sub-box for child slot c. Axis i takes the low half
// iff bit (D-1-i) of c is set, so slot 0 is the all-high quadrant and slot
// 2^D-1 the all-low one.
func (b BBox) quadrant(c int) BBox {
	d := len(b.Min)
	lo := make(Vector, d)
	hi := make(Vector, d)
	for i := 0; i < d; i++ {
		m := mid(b.Min[i], b.Max[i])
		if c&(1<<(d-1-i)) != 0 {
			lo[i], hi[i] = b.Min[i], m
		} else {
			lo[i], hi[i] = m, b.Max[i]
		}
	}
	return BBox{Min: lo, Max: hi}
}

// quadrantFor returns the child slot of bounds whose region fully contains
// bb, or -1 if bb straddles a midpoint. bb must be contained in bounds.
func quadrantFor(bounds, bb BBox) int {
	d := len(bounds.Min)
	slot := 0
	for i := 0; i < d; i++ {
		m := mid(bounds.Min[i], bounds.Max[i])
		switch {
		case bb.Max[i] <= m:
			slot |= 1 << (d - 1 - i)
		case bb.Min[i] >= m:
		default:
			return -1
		}
	}
	return slot
}

func checkBounds(b BBox) error {
	if len(b.Min) == 0 || len(b.Min) != len(b.Max) {
		return errors.New("malformed bounding box").
			WithType(ErrTypeInvalidBounds).
			WithTag("min_dim", len(b.Min)).
			WithTag("max_dim", len(b.Max))
	}
	for i := range b.Min {
		lo, hi := b.Min[i], b.Max[i]
		if math.IsNaN(lo) || math.IsInf(lo, 0) || math.IsNaN(hi) || math.IsInf(hi, 0) {
			return errors.New("bounding box must be finite").
				WithType(ErrTypeInvalidBounds).
				WithTag("axis", i)
		}
		if lo > hi {
			return errors.New("bounding box min exceeds max").
				WithType(ErrTypeInvalidBounds).
				WithTag("axis", i).
				WithTag("min", lo).
				WithTag("max", hi)
		}
	}
	return nil
}
