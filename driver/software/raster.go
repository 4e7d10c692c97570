package software

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/gogpu/engine/buffer"
	"github.com/gogpu/engine/render"
	"github.com/gogpu/engine/vertex"
	"github.com/gogpu/gputypes"
)

var (
	errNoPosition       = errors.New("software: draw has no position binding")
	errUnreadableBuffer = errors.New("software: buffer contents are not addressable")
	errPositionFormat   = errors.New("software: unsupported position format")
	errIndexFormat      = errors.New("software: unsupported index format")
	errOutOfRange       = errors.New("software: vertex out of range")
)

// point is a vertex in target pixel space.
type point struct{ x, y float32 }

// raster fills a host RGBA target.
type raster struct {
	pix    []byte
	stride int
	bounds image.Rectangle
}

func newRaster(t render.PixelTarget) *raster {
	return &raster{
		pix:    t.Pixels(),
		stride: t.Stride(),
		bounds: image.Rect(0, 0, t.Width(), t.Height()),
	}
}

func (r *raster) clear(c color.RGBA) {
	for y := r.bounds.Min.Y; y < r.bounds.Max.Y; y++ {
		row := r.pix[y*r.stride : y*r.stride+r.bounds.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			row[x], row[x+1], row[x+2], row[x+3] = c.R, c.G, c.B, c.A
		}
	}
}

func (r *raster) set(x, y int, clip image.Rectangle, c color.RGBA) {
	if !image.Pt(x, y).In(clip) {
		return
	}
	i := y*r.stride + x*4
	r.pix[i], r.pix[i+1], r.pix[i+2], r.pix[i+3] = c.R, c.G, c.B, c.A
}

// draw rasterizes one subcommand and returns the number of primitives
// that reached the target.
func (r *raster) draw(m vertex.AttributesMap, method render.DrawMethod, p render.Parameters) (int, error) {
	pts, err := fetch(m, viewportOf(p, r.bounds))
	if err != nil {
		return 0, err
	}

	clip := r.bounds
	if s := p.Scissor; s != nil {
		clip = clip.Intersect(image.Rect(int(s.X), int(s.Y), int(s.X+s.Width), int(s.Y+s.Height)))
	}
	c := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	if p.BlendConstant != nil {
		c = render.ColorRGBA(*p.BlendConstant)
	}

	n := 0
	switch method {
	case render.DrawPoints:
		for _, v := range pts {
			r.set(int(v.x), int(v.y), clip, c)
		}
		n = len(pts)
	case render.DrawLines:
		for i := 0; i+1 < len(pts); i += 2 {
			r.line(pts[i], pts[i+1], clip, c)
			n++
		}
	default:
		for i := 0; i+2 < len(pts); i += 3 {
			r.triangle(pts[i], pts[i+1], pts[i+2], clip, c)
			n++
		}
	}
	return n, nil
}

// line draws a Bresenham segment.
func (r *raster) line(a, b point, clip image.Rectangle, c color.RGBA) {
	x0, y0 := int(a.x), int(a.y)
	x1, y1 := int(b.x), int(b.y)
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := sign(x1-x0), sign(y1-y0)
	e := dx + dy
	for {
		r.set(x0, y0, clip, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// triangle fills pixels whose centers lie inside abc, either winding.
func (r *raster) triangle(a, b, c point, clip image.Rectangle, col color.RGBA) {
	area := edge(a, b, c)
	if area == 0 {
		return
	}
	box := image.Rect(
		int(math.Floor(float64(min(a.x, b.x, c.x)))),
		int(math.Floor(float64(min(a.y, b.y, c.y)))),
		int(math.Ceil(float64(max(a.x, b.x, c.x))))+1,
		int(math.Ceil(float64(max(a.y, b.y, c.y))))+1,
	).Intersect(clip)

	for y := box.Min.Y; y < box.Max.Y; y++ {
		for x := box.Min.X; x < box.Max.X; x++ {
			p := point{float32(x) + 0.5, float32(y) + 0.5}
			w0, w1, w2 := edge(b, c, p), edge(c, a, p), edge(a, b, p)
			if area < 0 {
				w0, w1, w2 = -w0, -w1, -w2
			}
			if w0 >= 0 && w1 >= 0 && w2 >= 0 {
				r.set(x, y, clip, col)
			}
		}
	}
}

func edge(a, b, p point) float32 {
	return (b.x-a.x)*(p.y-a.y) - (b.y-a.y)*(p.x-a.x)
}

func viewportOf(p render.Parameters, bounds image.Rectangle) render.Viewport {
	if p.Viewport != nil {
		return *p.Viewport
	}
	return render.FullViewport(bounds.Dx(), bounds.Dy())
}

// fetch reads the Position binding of m for the selected vertices and
// maps them from normalized device coordinates into the viewport.
func fetch(m vertex.AttributesMap, vp render.Viewport) ([]point, error) {
	var pos *vertex.Binding
	for i := range m.Bindings {
		if m.Bindings[i].Component == vertex.Position {
			pos = &m.Bindings[i]
			break
		}
	}
	if pos == nil {
		return nil, errNoPosition
	}
	switch pos.Format {
	case gputypes.VertexFormatFloat32x2, gputypes.VertexFormatFloat32x3, gputypes.VertexFormatFloat32x4:
	default:
		return nil, fmt.Errorf("%w: %v", errPositionFormat, pos.Format)
	}
	data, ok := bytesOf(pos.Buffer)
	if !ok {
		return nil, errUnreadableBuffer
	}

	indices, err := indicesOf(m)
	if err != nil {
		return nil, err
	}

	stride := pos.EffectiveStride()
	out := make([]point, 0, len(indices))
	for _, i := range indices {
		off := pos.Offset + uint64(i)*stride
		if off+8 > uint64(len(data)) {
			return nil, fmt.Errorf("%w: %d", errOutOfRange, i)
		}
		x := math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
		y := math.Float32frombits(binary.LittleEndian.Uint32(data[off+4:]))
		out = append(out, point{
			x: vp.X + (x+1)/2*vp.Width,
			y: vp.Y + (1-y)/2*vp.Height,
		})
	}
	return out, nil
}

// indicesOf returns the vertex numbers a draw reads, in order.
func indicesOf(m vertex.AttributesMap) ([]uint32, error) {
	out := make([]uint32, 0, m.Count)
	if !m.Indexed() {
		for i := range m.Count {
			out = append(out, m.First+i)
		}
		return out, nil
	}

	data, ok := bytesOf(m.Index.Buffer)
	if !ok {
		return nil, errUnreadableBuffer
	}
	var size uint64
	switch m.Index.Format {
	case gputypes.IndexFormatUint16:
		size = 2
	case gputypes.IndexFormatUint32:
		size = 4
	default:
		return nil, fmt.Errorf("%w: %v", errIndexFormat, m.Index.Format)
	}
	for i := range m.Count {
		off := m.Index.Offset + uint64(m.First+i)*size
		if off+size > uint64(len(data)) {
			return nil, fmt.Errorf("%w: index %d", errOutOfRange, m.First+i)
		}
		if size == 2 {
			out = append(out, uint32(binary.LittleEndian.Uint16(data[off:])))
		} else {
			out = append(out, binary.LittleEndian.Uint32(data[off:]))
		}
	}
	return out, nil
}

// bytesOf reads the contents of a buffer the backend can address: its own
// buffers and host buffers used as fallbacks.
func bytesOf(b buffer.Buffer) ([]byte, bool) {
	v, ok := b.(interface{ Bytes() []byte })
	if !ok {
		return nil, false
	}
	return v.Bytes(), true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
