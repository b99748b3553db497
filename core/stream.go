package core

import (
	"fmt"

	"github.com/tsawler/pdfengine/internal/filters"
)

// Decode decodes the stream data through the filters named by /Filter,
// without a memory ceiling. See DecodeWith.
func (s *Stream) Decode() ([]byte, error) {
	return s.DecodeWith(filters.Options{})
}

// DecodeWith decodes the stream data through the filters named by /Filter
// (a name or an array of names), with /DecodeParms (a dictionary, or an
// array holding a dictionary or null per filter). Image codecs pass
// through undecoded.
func (s *Stream) DecodeWith(opts filters.Options) ([]byte, error) {
	names, params, err := s.Filters()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return s.Data, nil
	}
	return filters.Decode(s.Data, names, params, opts)
}

// Filters returns the stream's filter names and matching decode parameters.
func (s *Stream) Filters() ([]string, []filters.Params, error) {
	filterObj := s.Dict.Get("Filter")
	paramsObj := s.Dict.Get("DecodeParms")

	var names []string
	switch f := filterObj.(type) {
	case nil:
		return nil, nil, nil
	case Name:
		names = []string{string(f)}
	case Array:
		for i, obj := range f {
			name, ok := obj.(Name)
			if !ok {
				return nil, nil, fmt.Errorf("filter %d: %w", i, wrongType("filter name", obj))
			}
			names = append(names, string(name))
		}
	default:
		return nil, nil, wrongType("/Filter", filterObj)
	}

	params := make([]filters.Params, len(names))
	switch p := paramsObj.(type) {
	case Dict:
		params[0] = dictToParams(p)
	case Array:
		for i := range names {
			if d, ok := p.Get(i).(Dict); ok {
				params[i] = dictToParams(d)
			}
		}
	}

	// Crypt filters are applied by the security handler when the object is
	// resolved, so they are dropped from the decode chain.
	outNames, outParams := names[:0], params[:0]
	for i, name := range names {
		if name == "Crypt" {
			continue
		}
		outNames = append(outNames, name)
		outParams = append(outParams, params[i])
	}
	return outNames, outParams, nil
}

// dictToParams converts a core.Dict to filters.Params, translating PDF object
// types to Go primitive types (Int->int, Real->float64, Bool->bool, etc.).
func dictToParams(dict Dict) filters.Params {
	if dict == nil {
		return nil
	}

	params := make(filters.Params)
	for k, v := range dict {
		switch obj := v.(type) {
		case Int:
			params[k] = int(obj)
		case Real:
			params[k] = float64(obj)
		case Bool:
			params[k] = bool(obj)
		case String:
			params[k] = string(obj)
		case Name:
			params[k] = string(obj)
		default:
			params[k] = v
		}
	}
	return params
}
