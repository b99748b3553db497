// Package font loads the font metrics a content stream interpreter needs
// to position glyphs.
//
// [Load] reads a font dictionary: /FirstChar, /Widths and the font
// descriptor for simple fonts, and the descendant CIDFont's /W, /DW, /W2
// and /DW2 for Type0 fonts. The standard 14 fonts, and common aliases such
// as ArialMT, fall back to built-in widths when /Widths is absent.
//
//	f, err := font.Load(fontDict, r)
//	for _, code := range f.Codes(shown) {
//	    advance := f.Width(code) / 1000 * fontSize
//	    ...
//	}
//
// Composite fonts split strings into codes with their encoding [CMap]
// (Identity-H and Identity-V, or an embedded CMap). An embedded /ToUnicode
// CMap is used by [Font.Text]; simple fonts without one decode through
// WinAnsi or MacRoman.
//
// Glyph outlines and embedded font programs are not read.
package font
