package font

// standardMetrics are the widths of a standard 14 font for the printable
// ASCII codes 32 through 126.
type standardMetrics struct {
	ascii        *[95]float64
	defaultWidth float64
	ascent       float64
	descent      float64
}

func (m *standardMetrics) width(code int) float64 {
	if m.ascii != nil && code >= 32 && code <= 126 {
		return m.ascii[code-32]
	}
	return m.defaultWidth
}

var (
	helvetica     = &standardMetrics{&helveticaWidths, 556, 718, -207}
	helveticaBold = &standardMetrics{&helveticaBoldWidths, 556, 718, -207}
	times         = &standardMetrics{&timesWidths, 500, 683, -217}
	timesBold     = &standardMetrics{&timesBoldWidths, 500, 676, -205}
	courier       = &standardMetrics{nil, 600, 629, -157}
	symbol        = &standardMetrics{nil, 500, 1010, -293}
	dingbats      = &standardMetrics{nil, 788, 820, -143}
)

// Italic faces reuse the upright widths.
var standardFonts = map[string]*standardMetrics{
	"Helvetica":             helvetica,
	"Helvetica-Bold":        helveticaBold,
	"Helvetica-Oblique":     helvetica,
	"Helvetica-BoldOblique": helveticaBold,
	"Times-Roman":           times,
	"Times-Bold":            timesBold,
	"Times-Italic":          times,
	"Times-BoldItalic":      timesBold,
	"Courier":               courier,
	"Courier-Bold":          courier,
	"Courier-Oblique":       courier,
	"Courier-BoldOblique":   courier,
	"Symbol":                symbol,
	"ZapfDingbats":          dingbats,
}

// Names producers use for the standard fonts.
var standardAliases = map[string]string{
	"Arial":                        "Helvetica",
	"ArialMT":                      "Helvetica",
	"Arial,Bold":                   "Helvetica-Bold",
	"Arial-BoldMT":                 "Helvetica-Bold",
	"Arial,Italic":                 "Helvetica-Oblique",
	"Arial-ItalicMT":               "Helvetica-Oblique",
	"Arial,BoldItalic":             "Helvetica-BoldOblique",
	"Arial-BoldItalicMT":           "Helvetica-BoldOblique",
	"TimesNewRoman":                "Times-Roman",
	"TimesNewRomanPSMT":            "Times-Roman",
	"TimesNewRoman,Bold":           "Times-Bold",
	"TimesNewRomanPS-BoldMT":       "Times-Bold",
	"TimesNewRoman,Italic":         "Times-Italic",
	"TimesNewRomanPS-ItalicMT":     "Times-Italic",
	"TimesNewRoman,BoldItalic":     "Times-BoldItalic",
	"TimesNewRomanPS-BoldItalicMT": "Times-BoldItalic",
	"CourierNew":                   "Courier",
	"CourierNewPSMT":               "Courier",
	"CourierNew,Bold":              "Courier-Bold",
	"CourierNewPS-BoldMT":          "Courier-Bold",
}

func standardName(name string) (string, bool) {
	if _, ok := standardFonts[name]; ok {
		return name, true
	}
	alias, ok := standardAliases[name]
	return alias, ok
}

var helveticaWidths = [95]float64{
	278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278,
	556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 278, 278, 584, 584, 584, 556,
	1015, 667, 667, 722, 722, 667, 611, 778, 722, 278, 500, 667, 556, 833, 722, 778,
	667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 278, 278, 278, 469, 556,
	333, 556, 556, 500, 556, 556, 278, 556, 556, 222, 222, 500, 222, 833, 556, 556,
	556, 556, 333, 500, 278, 556, 500, 722, 500, 500, 500, 334, 260, 334, 584,
}

var helveticaBoldWidths = [95]float64{
	278, 333, 474, 556, 556, 889, 722, 238, 333, 333, 389, 584, 278, 333, 278, 278,
	556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 333, 333, 584, 584, 584, 611,
	975, 722, 722, 722, 722, 667, 611, 778, 722, 278, 556, 722, 611, 833, 722, 778,
	667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 333, 278, 333, 584, 556,
	333, 556, 611, 556, 611, 556, 333, 611, 611, 278, 278, 556, 278, 889, 611, 611,
	611, 611, 389, 556, 333, 611, 556, 778, 556, 556, 500, 389, 280, 389, 584,
}

var timesWidths = [95]float64{
	250, 333, 408, 500, 500, 833, 778, 180, 333, 333, 500, 564, 250, 333, 250, 278,
	500, 500, 500, 500, 500, 500, 500, 500, 500, 500, 278, 278, 564, 564, 564, 444,
	921, 722, 667, 667, 722, 611, 556, 722, 722, 333, 389, 722, 611, 889, 722, 722,
	556, 722, 667, 556, 611, 722, 722, 944, 722, 722, 611, 333, 278, 333, 469, 500,
	333, 444, 500, 444, 500, 444, 333, 500, 500, 278, 278, 500, 278, 778, 500, 500,
	500, 500, 333, 389, 278, 500, 500, 722, 500, 500, 444, 480, 200, 480, 541,
}

var timesBoldWidths = [95]float64{
	250, 333, 555, 500, 500, 1000, 833, 278, 333, 333, 500, 570, 250, 333, 250, 278,
	500, 500, 500, 500, 500, 500, 500, 500, 500, 500, 333, 333, 570, 570, 570, 500,
	930, 722, 667, 722, 722, 667, 611, 778, 778, 389, 500, 778, 667, 944, 722, 778,
	611, 778, 722, 556, 667, 722, 722, 1000, 722, 722, 667, 333, 278, 333, 581, 500,
	333, 500, 556, 444, 556, 444, 333, 500, 556, 278, 333, 556, 278, 833, 556, 500,
	556, 556, 444, 389, 333, 556, 500, 722, 500, 500, 444, 394, 220, 394, 520,
}
