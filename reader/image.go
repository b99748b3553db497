package reader

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/tsawler/pdfengine/core"
	"github.com/tsawler/pdfengine/pages"
)

// ErrEncodedImage is returned by [PageImage.Raster] for images whose data is
// still in an image codec (DCT, JPX, JBIG2) that is passed through
// undecoded.
var ErrEncodedImage = errors.New("image data is codec-encoded")

// PageImage is an image XObject reachable from a page.
type PageImage struct {
	Name             string // resource name, e.g. "Im1"; nested forms give "Fm1/Im1"
	Ref              core.IndirectRef
	Width            int
	Height           int
	ColorSpace       string // family name: DeviceGray, DeviceRGB, Indexed, ...
	Components       int
	BitsPerComponent int
	ImageMask        bool
	Filter           string // last filter in the chain, empty if none
	Palette          []byte // Indexed lookup table, base color space samples
	PaletteBase      int    // components of the Indexed base space
	Data             []byte // output of the filter chain
}

// passThrough lists the filters whose output is still encoded.
var passThrough = map[string]bool{"DCTDecode": true, "JPXDecode": true, "JBIG2Decode": true}

// PageImages returns the image XObjects used by page's resources, including
// those inside form XObjects, in resource-name order. Each image stream
// appears once even when several names point at it.
func (r *Reader) PageImages(page *pages.Page) ([]PageImage, error) {
	res, err := page.Resources()
	if err != nil {
		return nil, err
	}
	c := &imageCollector{r: r, seen: make(map[core.IndirectRef]bool)}
	if err := c.collect(res, "", 0); err != nil {
		return nil, err
	}
	return c.images, nil
}

type imageCollector struct {
	r      *Reader
	seen   map[core.IndirectRef]bool
	images []PageImage
}

func (c *imageCollector) collect(res core.Dict, prefix string, depth int) error {
	if depth > core.MaxDepth {
		return fmt.Errorf("form XObjects nested too deeply: %w", core.ErrMaxDepth)
	}
	xobjObj, err := c.r.Resolve(res.Get("XObject"))
	if err != nil {
		return fmt.Errorf("resolving /XObject: %w", err)
	}
	xobjects, ok := xobjObj.(core.Dict)
	if !ok {
		return nil
	}

	for _, name := range xobjects.Keys() {
		entry := xobjects[name]
		ref, isRef := entry.(core.IndirectRef)
		if isRef {
			if c.seen[ref] {
				continue
			}
			c.seen[ref] = true
		}
		obj, err := c.r.Resolve(entry)
		if err != nil {
			c.r.log.Warn("skipping unresolvable XObject", "name", name, "error", err)
			continue
		}
		stream, ok := obj.(*core.Stream)
		if !ok {
			continue
		}

		switch subtype, _ := stream.Dict.GetName("Subtype"); subtype {
		case "Image":
			img, err := c.r.image(prefix+name, ref, stream)
			if err != nil {
				c.r.log.Warn("skipping image", "name", prefix+name, "error", err)
				continue
			}
			c.images = append(c.images, *img)
		case "Form":
			formRes, err := c.r.Resolve(stream.Dict.Get("Resources"))
			if err != nil {
				return err
			}
			if d, ok := formRes.(core.Dict); ok {
				if err := c.collect(d, prefix+name+"/", depth+1); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (r *Reader) image(name string, ref core.IndirectRef, stream *core.Stream) (*PageImage, error) {
	d := stream.Dict
	w, wok := d.GetInt("Width")
	h, hok := d.GetInt("Height")
	if !wok || !hok || w <= 0 || h <= 0 {
		return nil, fmt.Errorf("image has no usable /Width and /Height: %w", core.ErrWrongType)
	}

	img := &PageImage{
		Name:             name,
		Ref:              ref,
		Width:            int(w),
		Height:           int(h),
		ColorSpace:       "DeviceGray",
		Components:       1,
		BitsPerComponent: 8,
	}
	if mask, ok := d.GetBool("ImageMask"); ok && bool(mask) {
		img.ImageMask = true
		img.BitsPerComponent = 1
	} else if bpc, ok := d.GetInt("BitsPerComponent"); ok {
		img.BitsPerComponent = int(bpc)
	}

	if !img.ImageMask && d.Has("ColorSpace") {
		if err := r.imageColorSpace(img, d.Get("ColorSpace")); err != nil {
			return nil, err
		}
	}

	switch f := d.Get("Filter").(type) {
	case core.Name:
		img.Filter = string(f)
	case core.Array:
		if len(f) > 0 {
			if n, ok := f[len(f)-1].(core.Name); ok {
				img.Filter = string(n)
			}
		}
	}

	data, err := r.DecodeStream(stream)
	if err != nil {
		return nil, err
	}
	img.Data = data
	return img, nil
}

func (r *Reader) imageColorSpace(img *PageImage, obj core.Object) error {
	cs, err := r.ResolveDeep(obj)
	if err != nil {
		return fmt.Errorf("resolving image color space: %w", err)
	}
	family, base, n := colorSpaceInfo(cs)
	img.ColorSpace = family
	img.Components = n

	arr, _ := cs.(core.Array)
	if family != "Indexed" || len(arr) < 4 {
		return nil
	}
	_, _, img.PaletteBase = colorSpaceInfo(base)
	switch lookup := arr[3].(type) {
	case core.String:
		img.Palette = []byte(lookup)
	case *core.Stream:
		if img.Palette, err = r.DecodeStream(lookup); err != nil {
			return fmt.Errorf("decoding Indexed lookup: %w", err)
		}
	}
	return nil
}

// colorSpaceInfo returns the family of cs, the base space for Indexed, and
// the number of components per sample.
func colorSpaceInfo(cs core.Object) (family string, base core.Object, n int) {
	switch v := cs.(type) {
	case core.Name:
		family = string(v)
	case core.Array:
		if len(v) == 0 {
			return "DeviceGray", nil, 1
		}
		name, _ := v[0].(core.Name)
		family = string(name)
		switch family {
		case "Indexed":
			if len(v) > 1 {
				base = v[1]
			}
			return family, base, 1
		case "ICCBased":
			if len(v) > 1 {
				if s, ok := v[1].(*core.Stream); ok {
					if k, ok := s.Dict.GetInt("N"); ok {
						return family, nil, int(k)
					}
				}
			}
			return family, nil, 3
		case "DeviceN":
			if len(v) > 1 {
				if names, ok := v[1].(core.Array); ok {
					return family, nil, len(names)
				}
			}
		}
	}

	switch family {
	case "DeviceRGB", "CalRGB", "Lab", "RGB":
		return family, nil, 3
	case "DeviceCMYK", "CMYK":
		return family, nil, 4
	case "":
		return "DeviceGray", nil, 1
	}
	return family, nil, 1
}

// Raster converts the decoded samples to an image. Gray, RGB, CMYK and
// Indexed data at 1, 2, 4, 8 or 16 bits per component is supported.
func (img *PageImage) Raster() (image.Image, error) {
	if passThrough[img.Filter] {
		return nil, fmt.Errorf("%s: %w", img.Filter, ErrEncodedImage)
	}
	bpc := img.BitsPerComponent
	switch bpc {
	case 1, 2, 4, 8, 16:
	default:
		return nil, fmt.Errorf("unsupported bits per component: %d", bpc)
	}

	n := img.Components
	if n <= 0 {
		n = 1
	}
	rowBytes := (img.Width*n*bpc + 7) / 8
	if need := rowBytes * img.Height; len(img.Data) < need {
		return nil, fmt.Errorf("insufficient image data: got %d, need %d", len(img.Data), need)
	}

	bounds := image.Rect(0, 0, img.Width, img.Height)
	maxVal := uint32(1)<<bpc - 1
	samples := make([]uint32, n)
	var (
		gray *image.Gray
		rgba *image.RGBA
	)
	if img.ColorSpace == "Indexed" || n >= 3 {
		rgba = image.NewRGBA(bounds)
	} else {
		gray = image.NewGray(bounds)
	}

	for y := 0; y < img.Height; y++ {
		row := img.Data[y*rowBytes : (y+1)*rowBytes]
		for x := 0; x < img.Width; x++ {
			for c := 0; c < n; c++ {
				samples[c] = sample(row, (x*n+c)*bpc, bpc)
			}
			switch {
			case img.ColorSpace == "Indexed":
				rgba.SetRGBA(x, y, img.paletteColor(int(samples[0])))
			case gray != nil:
				// For masks, sample 0 paints and renders black.
				gray.SetGray(x, y, color.Gray{Y: scale8(samples[0], maxVal)})
			case n == 4:
				cr, cg, cb := color.CMYKToRGB(scale8(samples[0], maxVal), scale8(samples[1], maxVal),
					scale8(samples[2], maxVal), scale8(samples[3], maxVal))
				rgba.SetRGBA(x, y, color.RGBA{cr, cg, cb, 255})
			default:
				rgba.SetRGBA(x, y, color.RGBA{scale8(samples[0], maxVal), scale8(samples[1], maxVal),
					scale8(samples[2], maxVal), 255})
			}
		}
	}
	if gray != nil {
		return gray, nil
	}
	return rgba, nil
}

func (img *PageImage) paletteColor(i int) color.RGBA {
	base := img.PaletteBase
	if base <= 0 {
		base = 1
	}
	off := i * base
	if off+base > len(img.Palette) {
		return color.RGBA{0, 0, 0, 255}
	}
	p := img.Palette[off : off+base]
	switch base {
	case 1:
		return color.RGBA{p[0], p[0], p[0], 255}
	case 4:
		r, g, b := color.CMYKToRGB(p[0], p[1], p[2], p[3])
		return color.RGBA{r, g, b, 255}
	}
	return color.RGBA{p[0], p[1], p[2], 255}
}

// sample reads a bpc-bit big-endian value at bit offset off.
func sample(row []byte, off, bpc int) uint32 {
	if bpc == 16 {
		i := off / 8
		return uint32(row[i])<<8 | uint32(row[i+1])
	}
	if bpc == 8 {
		return uint32(row[off/8])
	}
	b := row[off/8]
	shift := 8 - bpc - off%8
	return uint32(b>>shift) & (1<<bpc - 1)
}

func scale8(v, maxVal uint32) uint8 {
	return uint8(v * 255 / maxVal)
}

// ToPNG encodes the image as PNG.
func (img *PageImage) ToPNG() ([]byte, error) {
	raster, err := img.Raster()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, raster); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}
