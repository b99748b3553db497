package font

import (
	"fmt"

	"github.com/tsawler/pdfengine/core"
)

// CIDSystemInfo identifies a character collection
type CIDSystemInfo struct {
	Registry   string
	Ordering   string
	Supplement int
}

// WidthRange represents a width specification in the W array
type WidthRange struct {
	StartCID int
	EndCID   int
	Width    float64   // Single width for range
	Widths   []float64 // Individual widths (if Widths != nil)
}

// VerticalMetrics represents vertical writing metrics in the W2 array
type VerticalMetrics struct {
	StartCID int
	EndCID   int
	Metric
	Metrics []Metric // Individual metrics (if Metrics != nil)
}

// Metric is a vertical displacement W1 and the position vector (VX, VY)
// from the horizontal to the vertical origin.
type Metric struct {
	W1     float64
	VX, VY float64
}

// cidMetrics are the widths of a descendant CIDFont.
type cidMetrics struct {
	SystemInfo CIDSystemInfo
	DW         float64
	W          []WidthRange
	DW2        [2]float64 // [vy w1]
	W2         []VerticalMetrics
}

func (m *cidMetrics) width(cid int) float64 {
	for _, wr := range m.W {
		if cid < wr.StartCID || cid > wr.EndCID {
			continue
		}
		if wr.Widths != nil {
			return wr.Widths[cid-wr.StartCID]
		}
		return wr.Width
	}
	return m.DW
}

func (m *cidMetrics) vertical(cid int) (vy, w1 float64) {
	for _, vm := range m.W2 {
		if cid < vm.StartCID || cid > vm.EndCID {
			continue
		}
		if vm.Metrics != nil {
			mt := vm.Metrics[cid-vm.StartCID]
			return mt.VY, mt.W1
		}
		return vm.VY, vm.W1
	}
	return m.DW2[0], m.DW2[1]
}

func (f *Font) loadComposite(dict core.Dict, res Resolver) error {
	f.composite = true

	encObj := dict.Get("Encoding")
	if encObj == nil {
		encObj = core.Name("Identity-H")
	}
	enc, err := loadCMapStream(encObj, res)
	if err != nil {
		// Predefined CJK CMaps are not built in; their codes are two bytes.
		enc = IdentityCMap("")
		enc.identity = false
	}
	if len(enc.codespace) == 0 {
		enc.defaultLen = 2
	}
	f.encoding = enc
	f.Encoding = enc.Name
	if n, ok := encObj.(core.Name); ok {
		f.Encoding = string(n)
	}
	f.Vertical = len(f.Encoding) > 2 && f.Encoding[len(f.Encoding)-2:] == "-V"
	f.spaceIs1Byte = enc.HasSingleByte(32)

	descendants, err := resolveArray(dict.Get("DescendantFonts"), res)
	if err != nil || len(descendants) == 0 {
		return fmt.Errorf("DescendantFonts: %w", core.ErrWrongType)
	}
	obj, err := res.Resolve(descendants[0])
	if err != nil {
		return fmt.Errorf("descendant font: %w", err)
	}
	cidDict, ok := obj.(core.Dict)
	if !ok {
		return fmt.Errorf("descendant font is %s: %w", typeName(obj), core.ErrWrongType)
	}

	m := &cidMetrics{DW: 1000, DW2: [2]float64{880, -1000}}
	if dw, err := resolveNumber(cidDict.Get("DW"), res); err == nil {
		m.DW = dw
	}
	if dw2, err := resolveArray(cidDict.Get("DW2"), res); err == nil && len(dw2) == 2 {
		m.DW2[0], _ = core.Number(dw2[0])
		m.DW2[1], _ = core.Number(dw2[1])
	}
	if info, err := res.Resolve(cidDict.Get("CIDSystemInfo")); err == nil {
		if d, ok := info.(core.Dict); ok {
			reg, _ := d.GetString("Registry")
			ord, _ := d.GetString("Ordering")
			sup, _ := d.GetInt("Supplement")
			m.SystemInfo = CIDSystemInfo{Registry: string(reg), Ordering: string(ord), Supplement: int(sup)}
		}
	}
	if w, err := resolveArray(cidDict.Get("W"), res); err == nil {
		m.W = parseWidthArray(w, res)
	}
	if w2, err := resolveArray(cidDict.Get("W2"), res); err == nil {
		m.W2 = parseW2Array(w2, res)
	}
	f.cid = m

	if err := f.loadDescriptor(cidDict.Get("FontDescriptor"), res); err != nil {
		return err
	}
	return nil
}

// parseWidthArray parses the W array for CIDFont widths
// Format: [c [w1 w2 ... wn]] or [cfirst clast w]
func parseWidthArray(w core.Array, res Resolver) []WidthRange {
	var out []WidthRange
	for i := 0; i+1 < len(w); {
		start, err := resolveNumber(w[i], res)
		if err != nil {
			break
		}
		next, err := res.Resolve(w[i+1])
		if err != nil {
			break
		}
		if arr, ok := next.(core.Array); ok {
			widths := make([]float64, len(arr))
			for j, v := range arr {
				widths[j], _ = resolveNumber(v, res)
			}
			if len(widths) > 0 {
				out = append(out, WidthRange{
					StartCID: int(start),
					EndCID:   int(start) + len(widths) - 1,
					Widths:   widths,
				})
			}
			i += 2
			continue
		}

		if i+2 >= len(w) {
			break
		}
		end, _ := core.Number(next)
		width, _ := resolveNumber(w[i+2], res)
		out = append(out, WidthRange{StartCID: int(start), EndCID: int(end), Width: width})
		i += 3
	}
	return out
}

// parseW2Array parses the W2 array for vertical metrics
// Format: [c [w1y vx vy ...]] or [cfirst clast w1y vx vy]
func parseW2Array(w2 core.Array, res Resolver) []VerticalMetrics {
	var out []VerticalMetrics
	for i := 0; i+1 < len(w2); {
		start, err := resolveNumber(w2[i], res)
		if err != nil {
			break
		}
		next, err := res.Resolve(w2[i+1])
		if err != nil {
			break
		}
		if arr, ok := next.(core.Array); ok {
			var metrics []Metric
			for j := 0; j+2 < len(arr); j += 3 {
				var mt Metric
				mt.W1, _ = resolveNumber(arr[j], res)
				mt.VX, _ = resolveNumber(arr[j+1], res)
				mt.VY, _ = resolveNumber(arr[j+2], res)
				metrics = append(metrics, mt)
			}
			if len(metrics) > 0 {
				out = append(out, VerticalMetrics{
					StartCID: int(start),
					EndCID:   int(start) + len(metrics) - 1,
					Metrics:  metrics,
				})
			}
			i += 2
			continue
		}

		if i+4 >= len(w2) {
			break
		}
		end, _ := core.Number(next)
		vm := VerticalMetrics{StartCID: int(start), EndCID: int(end)}
		vm.W1, _ = resolveNumber(w2[i+2], res)
		vm.VX, _ = resolveNumber(w2[i+3], res)
		vm.VY, _ = resolveNumber(w2[i+4], res)
		out = append(out, vm)
		i += 5
	}
	return out
}
