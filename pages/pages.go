package pages

import (
	"fmt"
	"math"

	"github.com/tsawler/pdfengine/core"
)

// LetterBox is the MediaBox assumed when a page and its ancestors have none.
var LetterBox = []float64{0, 0, 612, 792}

// inheritable lists the page attributes a Pages node passes to its kids.
var inheritable = []string{"Resources", "MediaBox", "CropBox", "Rotate"}

// ObjectResolver resolves indirect references.
type ObjectResolver interface {
	Resolve(obj core.Object) (core.Object, error)
}

// RangeError reports a page index outside [0, Count).
type RangeError struct {
	Index int
	Count int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("page index %d out of range [0, %d)", e.Index, e.Count)
}

// Catalog is the document catalog, the root of the document structure.
type Catalog struct {
	dict     core.Dict
	resolver ObjectResolver
}

// NewCatalog wraps a catalog dictionary. A /Type other than Catalog or a
// missing /Pages entry is an error.
func NewCatalog(dict core.Dict, resolver ObjectResolver) (*Catalog, error) {
	if typ, ok := dict.GetName("Type"); ok && typ != "Catalog" {
		return nil, fmt.Errorf("catalog has /Type /%s: %w", typ, core.ErrWrongType)
	}
	if !dict.Has("Pages") {
		return nil, fmt.Errorf("catalog missing /Pages: %w", core.ErrWrongType)
	}
	return &Catalog{dict: dict, resolver: resolver}, nil
}

// Dict returns the catalog dictionary.
func (c *Catalog) Dict() core.Dict {
	return c.dict
}

// Pages returns the root node of the page tree.
func (c *Catalog) Pages() (core.Dict, error) {
	obj, err := c.resolver.Resolve(c.dict.Get("Pages"))
	if err != nil {
		return nil, fmt.Errorf("resolving /Pages: %w", err)
	}
	d, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("/Pages is %s: %w", typeName(obj), core.ErrWrongType)
	}
	return d, nil
}

// PageTree returns the page tree rooted at /Pages.
func (c *Catalog) PageTree() (*PageTree, error) {
	root, err := c.Pages()
	if err != nil {
		return nil, err
	}
	tree := NewPageTree(root, c.resolver)
	if ref, ok := c.dict.GetIndirectRef("Pages"); ok {
		tree.rootRef = ref
	}
	return tree, nil
}

// Metadata returns the XMP metadata stream, or nil if there is none.
func (c *Catalog) Metadata() (*core.Stream, error) {
	obj := c.dict.Get("Metadata")
	if obj == nil {
		return nil, nil
	}
	obj, err := c.resolver.Resolve(obj)
	if err != nil {
		return nil, fmt.Errorf("resolving /Metadata: %w", err)
	}
	s, ok := obj.(*core.Stream)
	if !ok {
		return nil, fmt.Errorf("/Metadata is %s: %w", typeName(obj), core.ErrWrongType)
	}
	return s, nil
}

// Version returns the /Version entry, which overrides the header version
// when it is later.
func (c *Catalog) Version() string {
	v, _ := c.dict.GetName("Version")
	return string(v)
}

// PageTree flattens the page tree into its leaf pages on first use.
type PageTree struct {
	root     core.Dict
	rootRef  core.IndirectRef
	resolver ObjectResolver
	pages    []*Page
}

// NewPageTree creates a page tree from its root Pages dictionary.
func NewPageTree(root core.Dict, resolver ObjectResolver) *PageTree {
	return &PageTree{root: root, resolver: resolver}
}

// Count returns the number of leaf pages found by traversal. The declared
// /Count of the root is not trusted.
func (t *PageTree) Count() (int, error) {
	if err := t.load(); err != nil {
		return 0, err
	}
	return len(t.pages), nil
}

// GetPage returns the page at index, counting from 0.
func (t *PageTree) GetPage(index int) (*Page, error) {
	if err := t.load(); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(t.pages) {
		return nil, &RangeError{Index: index, Count: len(t.pages)}
	}
	return t.pages[index], nil
}

// Pages returns every leaf page in document order.
func (t *PageTree) Pages() ([]*Page, error) {
	if err := t.load(); err != nil {
		return nil, err
	}
	return t.pages, nil
}

func (t *PageTree) load() error {
	if t.pages != nil {
		return nil
	}
	w := walker{
		resolver: t.resolver,
		pages:    make([]*Page, 0),
		seen:     make(map[core.IndirectRef]bool),
	}
	if t.rootRef.Number > 0 {
		w.seen[t.rootRef] = true
	}
	if err := w.visit(t.root, core.IndirectRef{}, core.Dict{}, 0); err != nil {
		return fmt.Errorf("page tree: %w", err)
	}
	t.pages = w.pages
	return nil
}

type walker struct {
	resolver ObjectResolver
	pages    []*Page
	seen     map[core.IndirectRef]bool
}

// visit appends the leaves below node. inherited holds the inheritable
// attributes of node's ancestors.
func (w *walker) visit(node core.Dict, ref core.IndirectRef, inherited core.Dict, depth int) error {
	if depth > core.MaxDepth {
		return fmt.Errorf("page tree deeper than %d: %w", core.MaxDepth, core.ErrMaxDepth)
	}

	typ, _ := node.GetName("Type")
	kids, hasKids := node["Kids"]
	// A missing /Type is tolerated: /Kids marks an intermediate node.
	if typ == "Page" || (typ == "" && !hasKids) {
		w.pages = append(w.pages, &Page{
			dict:      node,
			ref:       ref,
			inherited: inherited,
			resolver:  w.resolver,
		})
		return nil
	}
	if typ != "Pages" && typ != "" {
		return fmt.Errorf("unexpected page tree node /Type /%s: %w", typ, core.ErrWrongType)
	}

	if !hasKids {
		return fmt.Errorf("Pages node missing /Kids: %w", core.ErrWrongType)
	}

	next := inherited
	copied := false
	for _, key := range inheritable {
		if v, ok := node[key]; ok {
			if !copied {
				next, copied = inherited.Clone(), true
			}
			next[key] = v
		}
	}

	kidsObj, err := w.resolver.Resolve(kids)
	if err != nil {
		return fmt.Errorf("resolving /Kids: %w", err)
	}
	arr, ok := kidsObj.(core.Array)
	if !ok {
		return fmt.Errorf("/Kids is %s: %w", typeName(kidsObj), core.ErrWrongType)
	}

	for i, kid := range arr {
		kidRef, isRef := kid.(core.IndirectRef)
		if isRef {
			if w.seen[kidRef] {
				return fmt.Errorf("kid %s: %w", kidRef, core.ErrCircularReference)
			}
			w.seen[kidRef] = true
		}
		obj, err := w.resolver.Resolve(kid)
		if err != nil {
			return fmt.Errorf("resolving kid %d: %w", i, err)
		}
		d, ok := obj.(core.Dict)
		if !ok {
			return fmt.Errorf("kid %d is %s: %w", i, typeName(obj), core.ErrWrongType)
		}
		if err := w.visit(d, kidRef, next, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// Page is a leaf of the page tree.
type Page struct {
	dict      core.Dict
	ref       core.IndirectRef
	inherited core.Dict // inheritable attributes of the ancestors
	resolver  ObjectResolver
}

// NewPage creates a page from its dictionary. parent supplies inherited
// attributes and may be nil.
func NewPage(dict core.Dict, parent core.Dict, resolver ObjectResolver) *Page {
	inherited := core.Dict{}
	for _, key := range inheritable {
		if v, ok := parent[key]; ok {
			inherited[key] = v
		}
	}
	return &Page{dict: dict, inherited: inherited, resolver: resolver}
}

// Dict returns the page dictionary.
func (p *Page) Dict() core.Dict {
	return p.dict
}

// Ref returns the page's object reference; the zero value for a page that
// was not reached through a reference.
func (p *Page) Ref() core.IndirectRef {
	return p.ref
}

// attr looks key up on the page, then on its ancestors.
func (p *Page) attr(key string) core.Object {
	if v, ok := p.dict[key]; ok {
		return v
	}
	return p.inherited[key]
}

// MediaBox returns the page boundaries [llx lly urx ury], normalized so
// the lower-left corner comes first. A page without one in its ancestry
// gets [LetterBox].
func (p *Page) MediaBox() ([]float64, error) {
	box, err := p.box("MediaBox")
	if err != nil {
		return nil, err
	}
	if box == nil {
		return append([]float64(nil), LetterBox...), nil
	}
	return box, nil
}

// CropBox returns the visible region, defaulting to the MediaBox.
func (p *Page) CropBox() ([]float64, error) {
	box, err := p.box("CropBox")
	if err != nil {
		return nil, err
	}
	if box == nil {
		return p.MediaBox()
	}
	return box, nil
}

func (p *Page) box(key string) ([]float64, error) {
	obj := p.attr(key)
	if obj == nil {
		return nil, nil
	}
	obj, err := p.resolver.Resolve(obj)
	if err != nil {
		return nil, fmt.Errorf("resolving /%s: %w", key, err)
	}
	arr, ok := obj.(core.Array)
	if !ok || len(arr) != 4 {
		return nil, fmt.Errorf("/%s is %s, want a 4-element array: %w", key, obj, core.ErrWrongType)
	}
	box := make([]float64, 4)
	for i, elem := range arr {
		elem, err := p.resolver.Resolve(elem)
		if err != nil {
			return nil, fmt.Errorf("resolving /%s[%d]: %w", key, i, err)
		}
		v, ok := core.Number(elem)
		if !ok {
			return nil, fmt.Errorf("/%s[%d] is %s: %w", key, i, typeName(elem), core.ErrWrongType)
		}
		box[i] = v
	}
	if box[0] > box[2] {
		box[0], box[2] = box[2], box[0]
	}
	if box[1] > box[3] {
		box[1], box[3] = box[3], box[1]
	}
	return box, nil
}

// Resources returns the resource dictionary, inherited if the page has
// none. A page without resources anywhere gets an empty dictionary.
func (p *Page) Resources() (core.Dict, error) {
	obj := p.attr("Resources")
	if obj == nil {
		return core.Dict{}, nil
	}
	obj, err := p.resolver.Resolve(obj)
	if err != nil {
		return nil, fmt.Errorf("resolving /Resources: %w", err)
	}
	switch v := obj.(type) {
	case core.Dict:
		return v, nil
	case core.Null:
		return core.Dict{}, nil
	}
	return nil, fmt.Errorf("/Resources is %s: %w", typeName(obj), core.ErrWrongType)
}

// Contents returns the page's content streams in order. A page without
// /Contents has none.
func (p *Page) Contents() ([]*core.Stream, error) {
	obj := p.dict.Get("Contents")
	if obj == nil {
		return nil, nil
	}
	obj, err := p.resolver.Resolve(obj)
	if err != nil {
		return nil, fmt.Errorf("resolving /Contents: %w", err)
	}

	switch v := obj.(type) {
	case *core.Stream:
		return []*core.Stream{v}, nil
	case core.Null:
		return nil, nil
	case core.Array:
		streams := make([]*core.Stream, 0, len(v))
		for i, elem := range v {
			res, err := p.resolver.Resolve(elem)
			if err != nil {
				return nil, fmt.Errorf("resolving /Contents[%d]: %w", i, err)
			}
			s, ok := res.(*core.Stream)
			if !ok {
				return nil, fmt.Errorf("/Contents[%d] is %s: %w", i, typeName(res), core.ErrWrongType)
			}
			streams = append(streams, s)
		}
		return streams, nil
	}
	return nil, fmt.Errorf("/Contents is %s: %w", typeName(obj), core.ErrWrongType)
}

// Rotate returns the inheritable clockwise rotation normalized to 0, 90,
// 180 or 270. Values that are not a multiple of 90 count as 0.
func (p *Page) Rotate() int {
	obj := p.attr("Rotate")
	if obj == nil {
		return 0
	}
	obj, err := p.resolver.Resolve(obj)
	if err != nil {
		return 0
	}
	v, ok := core.Number(obj)
	if !ok || v != math.Trunc(v) {
		return 0
	}
	r := int(v) % 360
	if r < 0 {
		r += 360
	}
	if r%90 != 0 {
		return 0
	}
	return r
}

// Width returns the MediaBox width, swapped with the height when the page
// is rotated by 90 or 270 degrees.
func (p *Page) Width() (float64, error) {
	w, _, err := p.size()
	return w, err
}

// Height returns the MediaBox height, accounting for rotation like Width.
func (p *Page) Height() (float64, error) {
	_, h, err := p.size()
	return h, err
}

func (p *Page) size() (float64, float64, error) {
	box, err := p.MediaBox()
	if err != nil {
		return 0, 0, err
	}
	w, h := box[2]-box[0], box[3]-box[1]
	if r := p.Rotate(); r == 90 || r == 270 {
		w, h = h, w
	}
	return w, h, nil
}

func typeName(obj core.Object) string {
	if obj == nil {
		return "missing"
	}
	return obj.Type().String()
}
