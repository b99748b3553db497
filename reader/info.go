package reader

import (
	"github.com/tsawler/pdfengine/core"
)

// DocumentInfo holds the entries of the document information dictionary,
// decoded from PDF text strings.
type DocumentInfo struct {
	Title        string
	Author       string
	Subject      string
	Keywords     string
	Creator      string
	Producer     string
	CreationDate string
	ModDate      string
	Trapped      string
}

// Info returns the decoded document information. A document without an
// information dictionary yields the zero value.
func (r *Reader) Info() (DocumentInfo, error) {
	d, err := r.GetInfo()
	if err != nil || d == nil {
		return DocumentInfo{}, err
	}

	text := func(key string) string {
		obj, err := r.Resolve(d.Get(key))
		if err != nil {
			return ""
		}
		switch v := obj.(type) {
		case core.String:
			return core.DecodeTextString([]byte(v))
		case core.Name:
			return string(v)
		case core.Bool:
			return v.String()
		}
		return ""
	}

	return DocumentInfo{
		Title:        text("Title"),
		Author:       text("Author"),
		Subject:      text("Subject"),
		Keywords:     text("Keywords"),
		Creator:      text("Creator"),
		Producer:     text("Producer"),
		CreationDate: text("CreationDate"),
		ModDate:      text("ModDate"),
		Trapped:      text("Trapped"),
	}, nil
}
