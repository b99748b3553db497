// Package pages walks the PDF page tree.
//
// A [Catalog] wraps the document catalog and yields the [PageTree]:
//
//	cat, err := pages.NewCatalog(catalogDict, resolver)
//	tree, err := cat.PageTree()
//	n, err := tree.Count()
//	page, err := tree.GetPage(0)
//
// The tree is flattened on first use. Intermediate Pages nodes may nest to
// any depth up to core.MaxDepth; a node reached twice is reported as
// core.ErrCircularReference. An index outside [0, Count) returns a
// [*RangeError].
//
// # Inheritance
//
// Resources, MediaBox, CropBox and Rotate are inherited from the nearest
// ancestor that sets them. A page with no MediaBox anywhere is US Letter,
// [0 0 612 792]. Rotate is normalized to 0, 90, 180 or 270.
package pages
