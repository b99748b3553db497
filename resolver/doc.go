// Package resolver expands PDF indirect references.
//
// An [ObjectResolver] wraps any [ObjectReader] (such as *reader.Reader)
// and follows references:
//
//	r := resolver.NewResolver(doc)
//	obj, err := r.Resolve(ref)        // follow a reference chain
//	full, err := r.ResolveDeep(obj)   // expand every nested reference
//
// Deep resolution returns copies; the input objects are not modified.
//
// # Cycles and depth
//
// A reference that leads back to one of its ancestors fails with
// core.ErrCircularReference. Nesting beyond the maximum depth (100 unless
// set with [WithMaxDepth]) fails with core.ErrMaxDepth. Objects such as
// page dictionaries point back to their /Parent, so deep-resolving them
// fails by construction; resolve the keys you need instead.
package resolver
