package resolver

import (
	"fmt"

	"github.com/tsawler/pdfengine/core"
)

// DefaultMaxDepth bounds deep resolution, matching the parser's nesting cap.
const DefaultMaxDepth = core.MaxDepth

// ObjectReader is the object source the resolver pulls from. *reader.Reader
// satisfies it.
type ObjectReader interface {
	GetObject(objNum int) (core.Object, error)
	ResolveReference(ref core.IndirectRef) (core.Object, error)
}

// ObjectResolver expands indirect references. A resolver is not safe for
// concurrent use.
type ObjectResolver struct {
	reader   ObjectReader
	maxDepth int

	// references on the current resolution path
	onPath map[core.IndirectRef]bool
	depth  int
}

// Option configures the resolver.
type Option func(*ObjectResolver)

// WithMaxDepth sets the maximum recursion depth (default 100).
func WithMaxDepth(depth int) Option {
	return func(r *ObjectResolver) {
		r.maxDepth = depth
	}
}

// NewResolver creates a resolver over reader.
func NewResolver(reader ObjectReader, opts ...Option) *ObjectResolver {
	r := &ObjectResolver{
		reader:   reader,
		maxDepth: DefaultMaxDepth,
		onPath:   make(map[core.IndirectRef]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve follows obj while it is an indirect reference, including chains
// of references to references. Containers are returned as they are.
func (r *ObjectResolver) Resolve(obj core.Object) (core.Object, error) {
	defer r.Reset()
	return r.resolve(obj, false)
}

// ResolveDeep returns a copy of obj with every reference inside
// dictionaries, arrays and stream dictionaries replaced by its target.
// A reference that leads back to one of its own ancestors is an
// ErrCircularReference; the same object reached through sibling branches
// is resolved each time.
func (r *ObjectResolver) ResolveDeep(obj core.Object) (core.Object, error) {
	defer r.Reset()
	return r.resolve(obj, true)
}

func (r *ObjectResolver) resolve(obj core.Object, deep bool) (core.Object, error) {
	if r.depth >= r.maxDepth {
		return nil, fmt.Errorf("resolving beyond depth %d: %w", r.maxDepth, core.ErrMaxDepth)
	}

	switch v := obj.(type) {
	case core.IndirectRef:
		if r.onPath[v] {
			return nil, fmt.Errorf("object %s: %w", v, core.ErrCircularReference)
		}
		r.onPath[v] = true
		defer delete(r.onPath, v)

		target, err := r.reader.ResolveReference(v)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", v, err)
		}
		r.depth++
		defer func() { r.depth-- }()
		return r.resolve(target, deep)

	case core.Dict:
		if !deep {
			return v, nil
		}
		return r.resolveDict(v)

	case core.Array:
		if !deep {
			return v, nil
		}
		out := make(core.Array, len(v))
		r.depth++
		defer func() { r.depth-- }()
		for i, elem := range v {
			res, err := r.resolve(elem, true)
			if err != nil {
				return nil, fmt.Errorf("array element %d: %w", i, err)
			}
			out[i] = res
		}
		return out, nil

	case *core.Stream:
		if !deep {
			return v, nil
		}
		dict, err := r.resolveDict(v.Dict)
		if err != nil {
			return nil, fmt.Errorf("stream dictionary: %w", err)
		}
		return &core.Stream{Dict: dict, Data: v.Data}, nil
	}
	return obj, nil
}

func (r *ObjectResolver) resolveDict(d core.Dict) (core.Dict, error) {
	out := make(core.Dict, len(d))
	r.depth++
	defer func() { r.depth-- }()
	for key, value := range d {
		res, err := r.resolve(value, true)
		if err != nil {
			return nil, fmt.Errorf("key /%s: %w", key, err)
		}
		out[key] = res
	}
	return out, nil
}

// Reset clears the resolution path. Resolve and ResolveDeep call it on
// return, so it is only needed after a panic in a caller's ObjectReader.
func (r *ObjectResolver) Reset() {
	clear(r.onPath)
	r.depth = 0
}

// ResolveDict deep-resolves a dictionary.
func (r *ObjectResolver) ResolveDict(dict core.Dict) (core.Dict, error) {
	res, err := r.ResolveDeep(dict)
	if err != nil {
		return nil, err
	}
	return res.(core.Dict), nil
}

// ResolveArray deep-resolves an array.
func (r *ObjectResolver) ResolveArray(arr core.Array) (core.Array, error) {
	res, err := r.ResolveDeep(arr)
	if err != nil {
		return nil, err
	}
	return res.(core.Array), nil
}

// ResolveReference resolves a single reference one level, without
// following a reference chain.
func (r *ObjectResolver) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	return r.reader.ResolveReference(ref)
}

// ResolveReferenceDeep resolves ref and everything reachable from it.
func (r *ObjectResolver) ResolveReferenceDeep(ref core.IndirectRef) (core.Object, error) {
	return r.ResolveDeep(ref)
}

// GetObject loads an object by number.
func (r *ObjectResolver) GetObject(objNum int) (core.Object, error) {
	return r.reader.GetObject(objNum)
}

// GetObjectResolved loads an object by number and follows references.
func (r *ObjectResolver) GetObjectResolved(objNum int) (core.Object, error) {
	obj, err := r.reader.GetObject(objNum)
	if err != nil {
		return nil, err
	}
	return r.Resolve(obj)
}

// GetObjectResolvedDeep loads an object by number and deep-resolves it.
func (r *ObjectResolver) GetObjectResolvedDeep(objNum int) (core.Object, error) {
	obj, err := r.reader.GetObject(objNum)
	if err != nil {
		return nil, err
	}
	return r.ResolveDeep(obj)
}
