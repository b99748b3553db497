package reader

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/edsrzf/mmap-go"

	"github.com/tsawler/pdfengine/core"
	"github.com/tsawler/pdfengine/internal/crypt"
	"github.com/tsawler/pdfengine/internal/filters"
	"github.com/tsawler/pdfengine/logging"
	"github.com/tsawler/pdfengine/pages"
	"github.com/tsawler/pdfengine/resolver"
)

// headerWindow is how far into the file the %PDF- header is searched.
const headerWindow = 1024

// ErrNoHeader is returned when no %PDF-x.y header is found.
var ErrNoHeader = errors.New("no %PDF- header")

// PDFVersion is the version from the file header.
type PDFVersion struct {
	Major int
	Minor int
}

// String returns the version as "major.minor".
func (v PDFVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

type config struct {
	maxDecoded int64
	password   string
	logger     *slog.Logger
	recovery   bool
}

// Option configures a Reader.
type Option func(*config)

// WithMaxDecodedSize caps the decoded size of any one stream. 0, the
// default, means no limit.
func WithMaxDecodedSize(n int64) Option {
	return func(c *config) {
		c.maxDecoded = n
	}
}

// WithPassword sets the password for encrypted documents. It is tried as
// the user password and then as the owner password.
func WithPassword(password string) Option {
	return func(c *config) {
		c.password = password
	}
}

// WithLogger sets the logger for this reader instead of the process-wide
// one from package logging.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithRecovery enables rebuilding the cross-reference table by scanning
// the file when the stored one cannot be read.
func WithRecovery(enabled bool) Option {
	return func(c *config) {
		c.recovery = enabled
	}
}

// Reader is an open PDF document. It resolves objects lazily and caches
// them by object number and generation.
//
// A Reader is not safe for concurrent use. Callers that share one across
// goroutines must serialize access themselves.
type Reader struct {
	data    []byte
	mapping mmap.MMap
	file    *os.File

	cfg     config
	log     *slog.Logger
	version PDFVersion

	xref      *core.XRefTable
	trailer   core.Dict
	recovered bool

	crypt      *crypt.Handler
	encryptRef core.IndirectRef

	cache     map[core.IndirectRef]core.Object
	resolving map[core.IndirectRef]bool
	objStms   map[int]*core.ObjectStream

	pageTree *pages.PageTree
}

var (
	_ pages.ObjectResolver   = (*Reader)(nil)
	_ resolver.ObjectReader  = (*Reader)(nil)
	_ core.ReferenceResolver = (*Reader)(nil)
)

// Open memory-maps the file at path read-only and opens it. Close releases
// the mapping.
func Open(path string, opts ...Option) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fi.Size() == 0 {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrNoHeader)
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mapping %s: %w", path, err)
	}

	r, err := NewReader(m, opts...)
	if err != nil {
		m.Unmap()
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.mapping = m
	r.file = f
	return r, nil
}

// FromBytes opens a document from a copy of data.
func FromBytes(data []byte, opts ...Option) (*Reader, error) {
	return NewReader(bytes.Clone(data), opts...)
}

// NewReader opens a document held in data. data must not be modified while
// the Reader is in use.
func NewReader(data []byte, opts ...Option) (*Reader, error) {
	r := &Reader{
		data:      data,
		cache:     make(map[core.IndirectRef]core.Object),
		resolving: make(map[core.IndirectRef]bool),
		objStms:   make(map[int]*core.ObjectStream),
	}
	for _, opt := range opts {
		opt(&r.cfg)
	}
	r.log = logging.Or(r.cfg.logger)

	version, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	r.version = version

	if err := r.loadXRef(); err != nil {
		return nil, err
	}
	if err := r.setupEncryption(); err != nil {
		return nil, err
	}
	return r, nil
}

// Close releases the file mapping, if any. Objects already returned stay
// valid. Close is idempotent.
func (r *Reader) Close() error {
	var err error
	if r.mapping != nil {
		err = r.mapping.Unmap()
		r.mapping = nil
	}
	if r.file != nil {
		if cerr := r.file.Close(); err == nil {
			err = cerr
		}
		r.file = nil
	}
	r.data = nil
	return err
}

// parseHeader finds "%PDF-major.minor" within the first headerWindow bytes.
func parseHeader(data []byte) (PDFVersion, error) {
	window := data
	if len(window) > headerWindow {
		window = window[:headerWindow]
	}
	i := bytes.Index(window, []byte("%PDF-"))
	if i < 0 {
		return PDFVersion{}, ErrNoHeader
	}

	rest := data[i+5:]
	major, n := leadingInt(rest)
	if n == 0 || n >= len(rest) || rest[n] != '.' {
		return PDFVersion{}, &core.SyntaxError{Offset: int64(i), Msg: "malformed version in header", Err: ErrNoHeader}
	}
	minor, m := leadingInt(rest[n+1:])
	if m == 0 {
		return PDFVersion{}, &core.SyntaxError{Offset: int64(i), Msg: "malformed version in header", Err: ErrNoHeader}
	}
	return PDFVersion{Major: major, Minor: minor}, nil
}

func leadingInt(b []byte) (int, int) {
	n := 0
	for n < len(b) && n < 4 && b[n] >= '0' && b[n] <= '9' {
		n++
	}
	v, _ := strconv.Atoi(string(b[:n]))
	return v, n
}

func (r *Reader) loadXRef() error {
	xp := core.NewXRefParser(r.data)
	xp.Resolver = r
	xp.Options = r.decodeOptions()

	table, err := r.readXRef(xp)
	if err == nil {
		if _, ok := table.Trailer.GetIndirectRef("Root"); !ok {
			err = fmt.Errorf("trailer has no /Root reference: %w", core.ErrWrongType)
		}
	}
	if err != nil {
		if !r.cfg.recovery {
			return err
		}
		r.log.Warn("rebuilding cross-reference table", "error", err)
		rebuilt, rerr := xp.Reconstruct()
		if rerr != nil {
			return fmt.Errorf("%w (reconstruction failed: %v)", err, rerr)
		}
		table = rebuilt
		r.recovered = true
		r.log.Info("cross-reference table rebuilt", "objects", table.Size())
	}

	r.xref = table
	r.trailer = table.Trailer
	return nil
}

func (r *Reader) readXRef(xp *core.XRefParser) (*core.XRefTable, error) {
	tables, err := xp.ParseXRefsFromEOF()
	if err != nil {
		return nil, err
	}
	if len(tables) > 1 {
		r.log.Debug("merging incremental xref sections", "sections", len(tables))
	}
	return core.MergeXRefTables(tables...), nil
}

// setupEncryption builds the security handler when the trailer names an
// encryption dictionary. The dictionary itself is read in the clear.
func (r *Reader) setupEncryption() error {
	encObj := r.trailer.Get("Encrypt")
	if encObj == nil {
		return nil
	}
	if ref, ok := encObj.(core.IndirectRef); ok {
		r.encryptRef = ref
	}
	obj, err := r.Resolve(encObj)
	if err != nil {
		return fmt.Errorf("resolving /Encrypt: %w", err)
	}
	dict, ok := obj.(core.Dict)
	if !ok {
		return fmt.Errorf("/Encrypt is %s: %w", typeName(obj), core.ErrWrongType)
	}

	var id []byte
	if idObj, err := r.Resolve(r.trailer.Get("ID")); err == nil {
		if arr, ok := idObj.(core.Array); ok && len(arr) > 0 {
			if first, err := r.Resolve(arr[0]); err == nil {
				if s, ok := first.(core.String); ok {
					id = []byte(s)
				}
			}
		}
	}

	h, err := crypt.New(dict, id, r.cfg.password)
	if err != nil {
		return err
	}

	// Anything cached while reading the dictionary was not decrypted.
	clear(r.cache)
	clear(r.objStms)
	if r.encryptRef.Number > 0 {
		r.cache[r.encryptRef] = dict
	}
	r.crypt = h
	r.log.Debug("document is encrypted", "V", h.V, "R", h.R, "owner", h.OwnerAuthenticated())
	return nil
}

// GetObject resolves object objNum at the generation its xref entry
// records.
func (r *Reader) GetObject(objNum int) (core.Object, error) {
	entry, ok := r.xref.Get(objNum)
	if !ok {
		return nil, fmt.Errorf("object %d: %w", objNum, core.ErrNotFound)
	}
	gen := 0
	switch entry.Type {
	case core.XRefEntryFree:
		return nil, fmt.Errorf("object %d: %w", objNum, core.ErrFreeObject)
	case core.XRefEntryUncompressed:
		gen = entry.Generation
	}
	return r.ResolveReference(core.IndirectRef{Number: objNum, Generation: gen})
}

// ResolveReference returns the object ref points to. Results are cached;
// a failed resolution caches nothing.
func (r *Reader) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	if obj, ok := r.cache[ref]; ok {
		return obj, nil
	}
	if r.xref == nil {
		// An xref stream with an indirect /Length is being read.
		return nil, fmt.Errorf("object %s: %w", ref, core.ErrNotFound)
	}
	if ref.Number <= 0 {
		return nil, fmt.Errorf("object %s: %w", ref, core.ErrFreeObject)
	}
	if r.resolving[ref] {
		return nil, fmt.Errorf("object %s: %w", ref, core.ErrCircularReference)
	}
	r.resolving[ref] = true
	defer delete(r.resolving, ref)

	entry, ok := r.xref.Get(ref.Number)
	if !ok {
		return nil, fmt.Errorf("object %s: %w", ref, core.ErrNotFound)
	}

	var (
		obj core.Object
		err error
	)
	switch entry.Type {
	case core.XRefEntryFree:
		return nil, fmt.Errorf("object %s: %w", ref, core.ErrFreeObject)
	case core.XRefEntryUncompressed:
		obj, err = r.loadAt(ref, entry)
		if err == nil && r.crypt != nil && ref != r.encryptRef {
			obj, err = r.crypt.DecryptObject(obj, ref)
		}
	case core.XRefEntryCompressed:
		obj, err = r.loadCompressed(ref, entry)
	default:
		err = fmt.Errorf("object %s has xref entry type %d: %w", ref, entry.Type, core.ErrWrongType)
	}
	if err != nil {
		return nil, err
	}

	r.cache[ref] = obj
	return obj, nil
}

// loadAt parses an uncompressed object.
func (r *Reader) loadAt(ref core.IndirectRef, entry *core.XRefEntry) (core.Object, error) {
	if ref.Generation != entry.Generation {
		return nil, fmt.Errorf("object %s: xref has generation %d: %w", ref, entry.Generation, core.ErrObjectMismatch)
	}
	if entry.Offset < 0 || entry.Offset >= int64(len(r.data)) {
		return nil, &core.SyntaxError{
			Offset: entry.Offset,
			Msg:    fmt.Sprintf("object %s offset outside the file (%d bytes)", ref, len(r.data)),
		}
	}

	p := core.NewParserAt(r.data, entry.Offset)
	p.SetReferenceResolver(r)
	p.OnLengthFallback = func(offset int64, reason string) {
		r.log.Warn("stream /Length unusable, scanned for endstream",
			"object", ref.String(), "offset", offset, "reason", reason)
	}
	ind, err := p.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", ref, err)
	}
	if ind.Ref != ref {
		return nil, fmt.Errorf("xref entry for %s points at object %s: %w", ref, ind.Ref, core.ErrObjectMismatch)
	}
	return ind.Object, nil
}

// loadCompressed reads an object stored in an object stream.
func (r *Reader) loadCompressed(ref core.IndirectRef, entry *core.XRefEntry) (core.Object, error) {
	if ref.Generation != 0 {
		return nil, fmt.Errorf("compressed object %s must have generation 0: %w", ref, core.ErrObjectMismatch)
	}

	stm, err := r.objectStream(entry.StreamObj)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", ref, err)
	}

	obj, num, err := stm.GetObjectByIndex(entry.StreamIndex)
	if err == nil && num != ref.Number {
		err = fmt.Errorf("object stream %d index %d holds object %d: %w",
			entry.StreamObj, entry.StreamIndex, num, core.ErrObjectMismatch)
	}
	if err != nil && r.cfg.recovery {
		if alt, _, aerr := stm.GetObjectByNumber(ref.Number); aerr == nil {
			r.log.Warn("compressed object found by number instead of index",
				"object", ref.String(), "stream", entry.StreamObj, "index", entry.StreamIndex)
			return alt, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", ref, err)
	}
	return obj, nil
}

func (r *Reader) objectStream(num int) (*core.ObjectStream, error) {
	if stm, ok := r.objStms[num]; ok {
		return stm, nil
	}
	obj, err := r.GetObject(num)
	if err != nil {
		return nil, fmt.Errorf("object stream %d: %w", num, err)
	}
	stream, ok := obj.(*core.Stream)
	if !ok {
		return nil, fmt.Errorf("object stream %d is %s: %w", num, typeName(obj), core.ErrWrongType)
	}
	stm, err := core.NewObjectStream(stream)
	if err != nil {
		return nil, fmt.Errorf("object stream %d: %w", num, err)
	}
	stm.SetDecodeOptions(r.decodeOptions())
	r.objStms[num] = stm
	return stm, nil
}

// Resolve follows obj while it is a reference and returns the first
// direct object. A chain that loops is an ErrCircularReference.
func (r *Reader) Resolve(obj core.Object) (core.Object, error) {
	var seen []core.IndirectRef
	for {
		ref, ok := obj.(core.IndirectRef)
		if !ok {
			return obj, nil
		}
		for _, s := range seen {
			if s == ref {
				return nil, fmt.Errorf("reference chain through %s: %w", ref, core.ErrCircularReference)
			}
		}
		if len(seen) >= core.MaxDepth {
			return nil, fmt.Errorf("reference chain longer than %d: %w", core.MaxDepth, core.ErrMaxDepth)
		}
		seen = append(seen, ref)

		var err error
		if obj, err = r.ResolveReference(ref); err != nil {
			return nil, err
		}
	}
}

// ResolveDeep returns a copy of obj with every nested reference resolved.
func (r *Reader) ResolveDeep(obj core.Object) (core.Object, error) {
	return resolver.NewResolver(r).ResolveDeep(obj)
}

// GetCatalog returns the document catalog.
func (r *Reader) GetCatalog() (core.Dict, error) {
	obj, err := r.Resolve(r.trailer.Get("Root"))
	if err != nil {
		return nil, fmt.Errorf("resolving catalog: %w", err)
	}
	catalog, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("catalog is %s: %w", typeName(obj), core.ErrWrongType)
	}
	return catalog, nil
}

// GetInfo returns the document information dictionary, or nil if there
// is none.
func (r *Reader) GetInfo() (core.Dict, error) {
	infoObj := r.trailer.Get("Info")
	if infoObj == nil {
		return nil, nil
	}
	obj, err := r.Resolve(infoObj)
	if err != nil {
		return nil, fmt.Errorf("resolving /Info: %w", err)
	}
	switch v := obj.(type) {
	case core.Dict:
		return v, nil
	case core.Null:
		return nil, nil
	}
	return nil, fmt.Errorf("/Info is %s: %w", typeName(obj), core.ErrWrongType)
}

// Version returns the header version.
func (r *Reader) Version() PDFVersion {
	return r.version
}

// Trailer returns the merged trailer dictionary.
func (r *Reader) Trailer() core.Dict {
	return r.trailer
}

// IsEncrypted reports whether the document has an encryption dictionary.
func (r *Reader) IsEncrypted() bool {
	return r.crypt != nil
}

// Recovered reports whether the cross-reference table was rebuilt by
// scanning the file.
func (r *Reader) Recovered() bool {
	return r.recovered
}

// NumObjects returns the trailer's /Size.
func (r *Reader) NumObjects() int {
	size, _ := r.trailer.GetInt("Size")
	return int(size)
}

// ObjectNumbers returns the in-use object numbers in ascending order.
func (r *Reader) ObjectNumbers() []int {
	return r.xref.ObjectNumbers()
}

// XRefTable returns the merged cross-reference table.
func (r *Reader) XRefTable() *core.XRefTable {
	return r.xref
}

// Size returns the length of the document in bytes.
func (r *Reader) Size() int64 {
	return int64(len(r.data))
}

// ClearCache drops every cached object.
func (r *Reader) ClearCache() {
	clear(r.cache)
	clear(r.objStms)
	r.pageTree = nil
}

// CacheSize returns the number of cached objects.
func (r *Reader) CacheSize() int {
	return len(r.cache)
}

func (r *Reader) decodeOptions() filters.Options {
	return filters.Options{MaxDecodedSize: r.cfg.maxDecoded}
}

// DecodeStream decodes s through its filters, subject to the reader's
// decoded size limit. Indirect /Filter and /DecodeParms values are
// resolved first.
func (r *Reader) DecodeStream(s *core.Stream) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("nil stream: %w", core.ErrWrongType)
	}
	target := s
	for _, key := range []string{"Filter", "DecodeParms"} {
		v := s.Dict.Get(key)
		if v == nil || !hasReference(v) {
			continue
		}
		res, err := r.ResolveDeep(v)
		if err != nil {
			return nil, fmt.Errorf("resolving /%s: %w", key, err)
		}
		if target == s {
			target = &core.Stream{Dict: s.Dict.Clone(), Data: s.Data}
		}
		target.Dict[key] = res
	}
	return target.DecodeWith(r.decodeOptions())
}

func hasReference(obj core.Object) bool {
	switch v := obj.(type) {
	case core.IndirectRef:
		return true
	case core.Array:
		for _, e := range v {
			if hasReference(e) {
				return true
			}
		}
	case core.Dict:
		for _, e := range v {
			if hasReference(e) {
				return true
			}
		}
	}
	return false
}

func (r *Reader) ensurePageTree() error {
	if r.pageTree != nil {
		return nil
	}
	catDict, err := r.GetCatalog()
	if err != nil {
		return err
	}
	cat, err := pages.NewCatalog(catDict, r)
	if err != nil {
		return err
	}
	tree, err := cat.PageTree()
	if err != nil {
		return err
	}
	r.pageTree = tree
	return nil
}

// PageCount returns the number of pages.
func (r *Reader) PageCount() (int, error) {
	if err := r.ensurePageTree(); err != nil {
		return 0, err
	}
	return r.pageTree.Count()
}

// GetPage returns the page at index, counting from 0. An index outside
// [0, PageCount) returns a *pages.RangeError.
func (r *Reader) GetPage(index int) (*pages.Page, error) {
	if err := r.ensurePageTree(); err != nil {
		return nil, err
	}
	return r.pageTree.GetPage(index)
}

// Pages returns every page in order.
func (r *Reader) Pages() ([]*pages.Page, error) {
	if err := r.ensurePageTree(); err != nil {
		return nil, err
	}
	return r.pageTree.Pages()
}

// PageContents returns the decoded content of page: its content streams
// joined by a single newline.
func (r *Reader) PageContents(page *pages.Page) ([]byte, error) {
	streams, err := page.Contents()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	for i, s := range streams {
		data, err := r.DecodeStream(s)
		if err != nil {
			return nil, fmt.Errorf("content stream %d: %w", i, err)
		}
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(data)
	}
	return buf.Bytes(), nil
}

func typeName(obj core.Object) string {
	if obj == nil {
		return "missing"
	}
	return obj.Type().String()
}
