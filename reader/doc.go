// Package reader opens PDF documents and resolves their objects.
//
// A [Reader] is the document store: it finds the cross-reference data
// (classic tables, xref streams, hybrid files and /Prev chains of
// incremental updates), then loads objects on demand and caches them by
// object number and generation.
//
//	r, err := reader.Open("document.pdf")
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	n, err := r.PageCount()
//	page, err := r.GetPage(0)
//	content, err := r.PageContents(page)
//
// [Open] memory-maps the file. [NewReader] and [FromBytes] work on data
// already in memory.
//
// # Options
//
//   - [WithPassword] opens encrypted documents (RC4, AES-128, AES-256).
//   - [WithMaxDecodedSize] caps the decoded size of each stream.
//   - [WithRecovery] rebuilds a damaged cross-reference table by scanning.
//   - [WithLogger] routes warnings to a specific *slog.Logger.
//
// # Errors
//
// Resolution failures wrap the sentinels in package core: ErrNotFound,
// ErrFreeObject, ErrObjectMismatch when the xref entry and the object
// header disagree, and ErrCircularReference. Parse failures are
// *core.SyntaxError values carrying a byte offset. Failed lookups are
// never cached.
//
// A Reader is not safe for concurrent use.
package reader
