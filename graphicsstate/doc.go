// Package graphicsstate holds the PDF graphics state and the values it is
// made of.
//
// A [GraphicsState] is a plain value. [Stack] implements q and Q by
// pushing deep copies, so restoring a state is a slice truncation and no
// two entries share mutable memory:
//
//	s := graphicsstate.NewStack(nil)
//	s.Push()                                // q
//	s.Current().Transform(model.Scale(2, 2)) // cm
//	s.Pop()                                 // Q
//
// The base entry is never popped; an unbalanced Q reports false.
//
// [Path] records construction operators (m, l, c, v, y, h, re) in user
// space. [ColorSpace] describes the current fill and stroke spaces and
// [LoadColorSpace] builds one from a resource entry.
package graphicsstate
