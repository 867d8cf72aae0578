package extraction

import (
	"math"

	"github.com/ledongthuc/pdf"
)

// Form XObjects may reference each other; deeper nesting is ignored
const maxFormDepth = 8

// white fills at or above this component intensity occlude what lies below
const whiteThreshold = 0.99

type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

func translate(tx, ty float64) matrix {
	return matrix{1, 0, 0, 1, tx, ty}
}

// mul returns m × n in the row vector convention of the PDF imaging model
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return x*m[0] + y*m[2] + m[4], x*m[1] + y*m[3] + m[5]
}

// glyph is one painted character in user space
type glyph struct {
	text     string
	font     string
	size     float64
	x0, x1   float64
	baseline float64
	hidden   bool
}

func (g glyph) rect() Rect {
	return Rect{X0: g.x0, Y0: g.baseline - 0.2*g.size, X1: g.x1, Y1: g.baseline + 0.8*g.size}
}

func (g glyph) center() (float64, float64) {
	return (g.x0 + g.x1) / 2, g.baseline + 0.3*g.size
}

// graphicsState is the subset of the PDF graphics state that affects where
// text lands and whether later fills cover it
type graphicsState struct {
	ctm       matrix
	whiteFill bool
	charSpace float64
	wordSpace float64
	scale     float64
	leading   float64
	rise      float64
	render    int
	font      pdf.Font
	fontName  string
	fontSize  float64
	encoder   pdf.TextEncoding
	composite bool
	hasFont   bool
	resources pdf.Value
}

// interpreter walks page content and records visible glyphs in paint order
type interpreter struct {
	metrics *metrics
	glyphs  []glyph

	gs    graphicsState
	stack []graphicsState
	tm    matrix
	tlm   matrix
	path  []Rect
	depth int
}

func newInterpreter(m *metrics) *interpreter {
	return &interpreter{metrics: m}
}

// page runs the content of p and returns its glyphs, hidden ones included
func (in *interpreter) page(p pdf.Page) []glyph {
	in.glyphs = nil
	in.stack = nil
	in.path = nil
	in.tm, in.tlm = identity, identity
	in.gs = graphicsState{ctm: identity, scale: 1, resources: p.Resources()}

	contents := p.V.Key("Contents")
	switch contents.Kind() {
	case pdf.Array:
		for i := 0; i < contents.Len(); i++ {
			in.run(contents.Index(i))
		}
	case pdf.Stream:
		in.run(contents)
	}

	return in.glyphs
}

func (in *interpreter) run(strm pdf.Value) {
	pdf.Interpret(strm, func(stk *pdf.Stack, op string) {
		n := stk.Len()
		args := make([]pdf.Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}
		in.exec(op, args)
	})
}

func num(args []pdf.Value, i int) float64 {
	if i < len(args) {
		return args[i].Float64()
	}
	return 0
}

func (in *interpreter) exec(op string, args []pdf.Value) {
	switch op {
	case "q":
		in.stack = append(in.stack, in.gs)
	case "Q":
		if n := len(in.stack); n > 0 {
			in.gs = in.stack[n-1]
			in.stack = in.stack[:n-1]
		}
	case "cm":
		if len(args) == 6 {
			in.gs.ctm = toMatrix(args).mul(in.gs.ctm)
		}

	// colour
	case "g":
		in.gs.whiteFill = num(args, 0) >= whiteThreshold
	case "rg":
		in.gs.whiteFill = isWhiteRGB(args)
	case "k":
		in.gs.whiteFill = isWhiteCMYK(args)
	case "sc", "scn":
		in.gs.whiteFill = isWhiteComponents(args)
	case "cs":
		in.gs.whiteFill = false

	// paths
	case "re":
		if len(args) == 4 {
			in.path = append(in.path, in.userRect(num(args, 0), num(args, 1), num(args, 2), num(args, 3)))
		}
	case "f", "F", "f*", "B", "B*", "b", "b*":
		if in.gs.whiteFill {
			for _, r := range in.path {
				in.occlude(r)
			}
		}
		in.path = in.path[:0]
	case "S", "s", "n":
		in.path = in.path[:0]

	// text objects and state
	case "BT":
		in.tm, in.tlm = identity, identity
	case "Tf":
		if len(args) == 2 {
			in.setFont(args[0].Name(), num(args, 1))
		}
	case "Tc":
		in.gs.charSpace = num(args, 0)
	case "Tw":
		in.gs.wordSpace = num(args, 0)
	case "Tz":
		in.gs.scale = num(args, 0) / 100
	case "TL":
		in.gs.leading = num(args, 0)
	case "Ts":
		in.gs.rise = num(args, 0)
	case "Tr":
		in.gs.render = int(num(args, 0))
	case "Td":
		in.moveText(num(args, 0), num(args, 1))
	case "TD":
		in.gs.leading = -num(args, 1)
		in.moveText(num(args, 0), num(args, 1))
	case "Tm":
		if len(args) == 6 {
			in.tlm = toMatrix(args)
			in.tm = in.tlm
		}
	case "T*":
		in.moveText(0, -in.gs.leading)

	// text showing
	case "Tj":
		if len(args) == 1 {
			in.show(args[0].RawString())
		}
	case "'":
		in.moveText(0, -in.gs.leading)
		if len(args) == 1 {
			in.show(args[0].RawString())
		}
	case "\"":
		if len(args) == 3 {
			in.gs.wordSpace = num(args, 0)
			in.gs.charSpace = num(args, 1)
			in.moveText(0, -in.gs.leading)
			in.show(args[2].RawString())
		}
	case "TJ":
		if len(args) == 1 {
			arr := args[0]
			for i := 0; i < arr.Len(); i++ {
				v := arr.Index(i)
				if v.Kind() == pdf.String {
					in.show(v.RawString())
					continue
				}
				tx := -v.Float64() / 1000 * in.gs.fontSize * in.gs.scale
				in.tm = translate(tx, 0).mul(in.tm)
			}
		}

	case "Do":
		if len(args) == 1 {
			in.form(args[0].Name())
		}
	}
}

func toMatrix(args []pdf.Value) matrix {
	var m matrix
	for i := range m {
		m[i] = args[i].Float64()
	}
	return m
}

func isWhiteRGB(args []pdf.Value) bool {
	if len(args) != 3 {
		return false
	}
	return num(args, 0) >= whiteThreshold && num(args, 1) >= whiteThreshold && num(args, 2) >= whiteThreshold
}

func isWhiteCMYK(args []pdf.Value) bool {
	if len(args) != 4 {
		return false
	}
	for i := 0; i < 4; i++ {
		if num(args, i) > 1-whiteThreshold {
			return false
		}
	}
	return true
}

// isWhiteComponents guesses the colour space from the operand count
func isWhiteComponents(args []pdf.Value) bool {
	for _, a := range args {
		if a.Kind() == pdf.Name {
			return false
		}
	}
	switch len(args) {
	case 1:
		return num(args, 0) >= whiteThreshold
	case 3:
		return isWhiteRGB(args)
	case 4:
		return isWhiteCMYK(args)
	}
	return false
}

func (in *interpreter) userRect(x, y, w, h float64) Rect {
	xs := [4]float64{}
	ys := [4]float64{}
	xs[0], ys[0] = in.gs.ctm.apply(x, y)
	xs[1], ys[1] = in.gs.ctm.apply(x+w, y)
	xs[2], ys[2] = in.gs.ctm.apply(x, y+h)
	xs[3], ys[3] = in.gs.ctm.apply(x+w, y+h)

	r := Rect{X0: xs[0], Y0: ys[0], X1: xs[0], Y1: ys[0]}
	for i := 1; i < 4; i++ {
		r.X0 = math.Min(r.X0, xs[i])
		r.X1 = math.Max(r.X1, xs[i])
		r.Y0 = math.Min(r.Y0, ys[i])
		r.Y1 = math.Max(r.Y1, ys[i])
	}
	return r
}

// occlude hides every glyph painted so far whose centre lies inside r
func (in *interpreter) occlude(r Rect) {
	for i := range in.glyphs {
		if in.glyphs[i].hidden {
			continue
		}
		if r.Contains(in.glyphs[i].center()) {
			in.glyphs[i].hidden = true
		}
	}
}

func (in *interpreter) setFont(name string, size float64) {
	v := in.gs.resources.Key("Font").Key(name)
	f := pdf.Font{V: v}

	in.gs.font = f
	in.gs.fontSize = size
	in.gs.hasFont = !v.IsNull()
	in.gs.fontName = name
	if base := v.Key("BaseFont").Name(); base != "" {
		in.gs.fontName = StripSubset(base)
	}
	in.gs.composite = v.Key("Subtype").Name() == "Type0"
	in.gs.encoder = f.Encoder()
}

func (in *interpreter) moveText(tx, ty float64) {
	in.tlm = translate(tx, ty).mul(in.tlm)
	in.tm = in.tlm
}

func (in *interpreter) show(raw string) {
	if in.gs.encoder == nil {
		in.gs.encoder = in.gs.font.Encoder()
	}

	codeLen := 1
	if in.gs.composite {
		codeLen = 2
	}

	fs := in.gs.fontSize
	for i := 0; i+codeLen <= len(raw); i += codeLen {
		code := raw[i : i+codeLen]
		text := in.gs.encoder.Decode(code)

		w0 := in.advance(code, text)
		trm := in.tm.mul(in.gs.ctm)

		ox, oy := trm.apply(0, in.gs.rise)
		ex, _ := trm.apply(w0*fs*in.gs.scale, in.gs.rise)
		size := math.Abs(fs) * math.Hypot(trm[2], trm[3])

		if text != "" && in.gs.render != 3 {
			g := glyph{
				text:     text,
				font:     in.gs.fontName,
				size:     math.Round(size*100) / 100,
				x0:       math.Min(ox, ex),
				x1:       math.Max(ox, ex),
				baseline: oy,
			}
			in.glyphs = append(in.glyphs, g)
		}

		tx := w0*fs + in.gs.charSpace
		if codeLen == 1 && code == " " {
			tx += in.gs.wordSpace
		}
		in.tm = translate(tx*in.gs.scale, 0).mul(in.tm)
	}
}

// advance returns the horizontal displacement of one code in text space units
func (in *interpreter) advance(code, text string) float64 {
	if !in.gs.composite && in.gs.hasFont {
		if w := in.gs.font.Width(int(code[0])); w > 0 {
			return w / 1000
		}
	}
	if text == "" {
		return fallbackAdvance
	}
	return in.metrics.advance(in.gs.fontName, text)
}

// form runs a Form XObject with its own matrix and resources
func (in *interpreter) form(name string) {
	xobj := in.gs.resources.Key("XObject").Key(name)
	if xobj.Kind() != pdf.Stream || xobj.Key("Subtype").Name() != "Form" {
		return
	}
	if in.depth >= maxFormDepth {
		return
	}

	saved, savedStack := in.gs, len(in.stack)
	savedTm, savedTlm, savedPath := in.tm, in.tlm, in.path

	m := identity
	if mv := xobj.Key("Matrix"); mv.Kind() == pdf.Array && mv.Len() == 6 {
		for i := range m {
			m[i] = mv.Index(i).Float64()
		}
	}
	in.gs.ctm = m.mul(in.gs.ctm)
	if res := xobj.Key("Resources"); !res.IsNull() {
		in.gs.resources = res
	}
	in.path = nil

	in.depth++
	in.run(xobj)
	in.depth--

	in.gs = saved
	in.stack = in.stack[:savedStack]
	in.tm, in.tlm, in.path = savedTm, savedTlm, savedPath
}
