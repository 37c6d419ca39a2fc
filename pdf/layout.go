package pdf

import (
	"math"

	"github.com/ledongthuc/pdf"
)

// matrix is a PDF transformation matrix [a b c d e f].
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// mul returns m × n.
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
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// placement is where an image XObject is painted, in user space.
type placement struct {
	name           string
	x0, y0, x1, y1 float64
}

// placements walks the page content streams and records the bounding box
// of every image XObject painted with Do.
func placements(page pdf.Page) []placement {
	xobjects := page.Resources().Key("XObject")
	if xobjects.IsNull() {
		return nil
	}

	var (
		out   []placement
		ctm   = identity
		saved []matrix
	)
	visit := func(stk *pdf.Stack, op string) {
		n := stk.Len()
		args := make([]pdf.Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}
		switch op {
		case "q":
			saved = append(saved, ctm)
		case "Q":
			if len(saved) > 0 {
				ctm = saved[len(saved)-1]
				saved = saved[:len(saved)-1]
			}
		case "cm":
			if n != 6 {
				return
			}
			var m matrix
			for i := range m {
				m[i] = args[i].Float64()
			}
			ctm = m.mul(ctm)
		case "Do":
			if n != 1 {
				return
			}
			name := args[0].Name()
			if xobjects.Key(name).Key("Subtype").Name() != "Image" {
				return
			}
			out = append(out, bbox(name, ctm))
		}
	}

	contents := page.V.Key("Contents")
	if contents.Kind() == pdf.Array {
		for i := range contents.Len() {
			pdf.Interpret(contents.Index(i), visit)
		}
	} else {
		pdf.Interpret(contents, visit)
	}
	return out
}

// bbox maps the unit square through ctm.
func bbox(name string, ctm matrix) placement {
	p := placement{
		name: name,
		x0:   math.Inf(1), y0: math.Inf(1),
		x1: math.Inf(-1), y1: math.Inf(-1),
	}
	for _, c := range [][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		x, y := ctm.apply(c[0], c[1])
		p.x0, p.x1 = math.Min(p.x0, x), math.Max(p.x1, x)
		p.y0, p.y1 = math.Min(p.y0, y), math.Max(p.y1, y)
	}
	return p
}
