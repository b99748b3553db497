package graphicsstate

import (
	"errors"
	"fmt"

	"github.com/tsawler/pdfengine/core"
)

// ErrColorSpace is returned for color space objects that cannot be used.
var ErrColorSpace = errors.New("invalid color space")

// Resolver resolves indirect objects and decodes streams.
// *reader.Reader implements it.
type Resolver interface {
	Resolve(obj core.Object) (core.Object, error)
	DecodeStream(s *core.Stream) ([]byte, error)
}

// ColorSpace describes how color components are interpreted.
type ColorSpace struct {
	// Family is the color space name, such as DeviceRGB or Indexed.
	Family string

	// N is the number of components an sc or scn operator takes,
	// excluding a pattern name.
	N int

	// Base is the underlying space of Indexed and Pattern spaces and the
	// alternate space of ICCBased, Separation and DeviceN spaces.
	Base *ColorSpace

	HiVal  int
	Lookup []byte

	// Colorants names the inks of Separation and DeviceN spaces.
	Colorants []string
}

// The device color spaces. They are shared and must not be modified.
var (
	DeviceGray = &ColorSpace{Family: "DeviceGray", N: 1}
	DeviceRGB  = &ColorSpace{Family: "DeviceRGB", N: 3}
	DeviceCMYK = &ColorSpace{Family: "DeviceCMYK", N: 4}
	PatternCS  = &ColorSpace{Family: "Pattern"}
)

// Components returns the number of color components.
func (cs *ColorSpace) Components() int {
	return cs.N
}

// IsPattern reports whether painting uses a pattern instead of a color.
func (cs *ColorSpace) IsPattern() bool {
	return cs.Family == "Pattern"
}

// InitialColor returns the color selected by cs and CS.
func (cs *ColorSpace) InitialColor() []float64 {
	switch cs.Family {
	case "Pattern":
		if cs.Base == nil {
			return nil
		}
		return cs.Base.InitialColor()
	case "DeviceCMYK":
		return []float64{0, 0, 0, 1}
	case "Separation", "DeviceN":
		c := make([]float64, cs.N)
		for i := range c {
			c[i] = 1
		}
		return c
	}
	return make([]float64, cs.N)
}

func (cs *ColorSpace) String() string {
	if cs.Base != nil {
		return fmt.Sprintf("%s(%s)", cs.Family, cs.Base)
	}
	return cs.Family
}

// LoadColorSpace builds a color space from a name or array, resolving
// indirect references through res.
func LoadColorSpace(obj core.Object, res Resolver) (*ColorSpace, error) {
	return loadColorSpace(obj, res, 0)
}

func loadColorSpace(obj core.Object, res Resolver, depth int) (*ColorSpace, error) {
	if depth > 8 {
		return nil, fmt.Errorf("color space nested too deeply: %w", ErrColorSpace)
	}
	obj, err := res.Resolve(obj)
	if err != nil {
		return nil, err
	}

	var family core.Name
	var args core.Array
	switch v := obj.(type) {
	case core.Name:
		family = v
	case core.Array:
		if len(v) == 0 {
			return nil, fmt.Errorf("empty color space array: %w", ErrColorSpace)
		}
		name, err := res.Resolve(v[0])
		if err != nil {
			return nil, err
		}
		n, ok := name.(core.Name)
		if !ok {
			return nil, fmt.Errorf("color space family is %s: %w", typeName(name), ErrColorSpace)
		}
		family, args = n, v[1:]
	default:
		return nil, fmt.Errorf("color space is %s: %w", typeName(obj), ErrColorSpace)
	}

	switch family {
	case "DeviceGray", "G":
		return DeviceGray, nil
	case "DeviceRGB", "RGB":
		return DeviceRGB, nil
	case "DeviceCMYK", "CMYK":
		return DeviceCMYK, nil
	case "CalGray":
		return &ColorSpace{Family: "CalGray", N: 1}, nil
	case "CalRGB":
		return &ColorSpace{Family: "CalRGB", N: 3}, nil
	case "Lab":
		return &ColorSpace{Family: "Lab", N: 3}, nil
	case "Pattern":
		if len(args) == 0 {
			return PatternCS, nil
		}
		base, err := loadColorSpace(args[0], res, depth+1)
		if err != nil {
			return nil, fmt.Errorf("pattern base: %w", err)
		}
		return &ColorSpace{Family: "Pattern", N: base.N, Base: base}, nil
	case "ICCBased":
		return loadICCBased(args, res, depth)
	case "Indexed", "I":
		return loadIndexed(args, res, depth)
	case "Separation":
		if len(args) < 2 {
			return nil, fmt.Errorf("separation needs a name and an alternate: %w", ErrColorSpace)
		}
		cs := &ColorSpace{Family: "Separation", N: 1}
		if n, ok := args[0].(core.Name); ok {
			cs.Colorants = []string{string(n)}
		}
		if cs.Base, err = loadColorSpace(args[1], res, depth+1); err != nil {
			return nil, fmt.Errorf("separation alternate: %w", err)
		}
		return cs, nil
	case "DeviceN":
		if len(args) < 2 {
			return nil, fmt.Errorf("DeviceN needs names and an alternate: %w", ErrColorSpace)
		}
		names, err := res.Resolve(args[0])
		if err != nil {
			return nil, err
		}
		arr, ok := names.(core.Array)
		if !ok || len(arr) == 0 {
			return nil, fmt.Errorf("DeviceN names: %w", ErrColorSpace)
		}
		cs := &ColorSpace{Family: "DeviceN", N: len(arr)}
		for _, n := range arr {
			if name, ok := n.(core.Name); ok {
				cs.Colorants = append(cs.Colorants, string(name))
			}
		}
		if cs.Base, err = loadColorSpace(args[1], res, depth+1); err != nil {
			return nil, fmt.Errorf("DeviceN alternate: %w", err)
		}
		return cs, nil
	}
	return nil, fmt.Errorf("unknown color space /%s: %w", family, ErrColorSpace)
}

func loadICCBased(args core.Array, res Resolver, depth int) (*ColorSpace, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("ICCBased without a profile: %w", ErrColorSpace)
	}
	obj, err := res.Resolve(args[0])
	if err != nil {
		return nil, err
	}
	s, ok := obj.(*core.Stream)
	if !ok {
		return nil, fmt.Errorf("ICC profile is %s: %w", typeName(obj), ErrColorSpace)
	}
	n, _ := s.Dict.GetInt("N")
	switch n {
	case 1, 3, 4:
	default:
		return nil, fmt.Errorf("ICCBased /N %d: %w", n, ErrColorSpace)
	}
	cs := &ColorSpace{Family: "ICCBased", N: int(n)}
	if alt := s.Dict.Get("Alternate"); alt != nil {
		if cs.Base, err = loadColorSpace(alt, res, depth+1); err != nil {
			return nil, fmt.Errorf("ICCBased alternate: %w", err)
		}
	}
	return cs, nil
}

func loadIndexed(args core.Array, res Resolver, depth int) (*ColorSpace, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("indexed needs base, hival and lookup: %w", ErrColorSpace)
	}
	base, err := loadColorSpace(args[0], res, depth+1)
	if err != nil {
		return nil, fmt.Errorf("indexed base: %w", err)
	}
	hiObj, err := res.Resolve(args[1])
	if err != nil {
		return nil, err
	}
	hival, ok := core.Number(hiObj)
	if !ok || hival < 0 || hival > 255 {
		return nil, fmt.Errorf("indexed hival %v: %w", hiObj, ErrColorSpace)
	}

	lookup, err := res.Resolve(args[2])
	if err != nil {
		return nil, err
	}
	cs := &ColorSpace{Family: "Indexed", N: 1, Base: base, HiVal: int(hival)}
	switch v := lookup.(type) {
	case core.String:
		cs.Lookup = []byte(v)
	case *core.Stream:
		if cs.Lookup, err = res.DecodeStream(v); err != nil {
			return nil, fmt.Errorf("indexed lookup: %w", err)
		}
	default:
		return nil, fmt.Errorf("indexed lookup is %s: %w", typeName(lookup), ErrColorSpace)
	}
	return cs, nil
}

func typeName(obj core.Object) string {
	if obj == nil {
		return "null"
	}
	return obj.Type().String()
}
