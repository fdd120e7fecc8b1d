package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/code-animator/backend/internal/models"
)

const (
	padding      = 8.0
	codePadding  = 16.0
	baseFontSize = 16.0
)

var (
	defaultBackground = color.NRGBA{R: 0x11, G: 0x18, B: 0x27, A: 0xff}
	defaultTextColor  = color.NRGBA{R: 0xe5, G: 0xe7, B: 0xeb, A: 0xff}
	defaultBorder     = color.NRGBA{R: 0xe5, G: 0xe7, B: 0xeb, A: 0xff}
	codeBackground    = color.NRGBA{R: 0x11, G: 0x18, B: 0x27, A: 0xff}
	codeBorder        = color.NRGBA{R: 0x4b, G: 0x55, B: 0x63, A: 0xff}
	pointerBorder     = color.NRGBA{R: 0x38, G: 0xbd, B: 0xf8, A: 0xff}
)

// PNGRenderer rasterises frames with a fixed bitmap font.
type PNGRenderer struct {
	Background color.NRGBA
	// Scale resizes the output image; 1 keeps scene pixels.
	Scale float64
}

// NewPNGRenderer creates a renderer with the default dark canvas at scale 1.
func NewPNGRenderer() *PNGRenderer {
	return &PNGRenderer{Background: defaultBackground, Scale: 1}
}

func (r *PNGRenderer) ContentType() string { return "image/png" }
func (r *PNGRenderer) Extension() string { return ".png" }

func (r *PNGRenderer) Render(w io.Writer, frame models.Frame) error {
	img, err := r.Rasterize(frame)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// Rasterize paints frame onto a new image the size of the scene.
func (r *PNGRenderer) Rasterize(frame models.Frame) (*image.RGBA, error) {
	width := int(math.Ceil(frame.Scene.Width))
	height := int(math.Ceil(frame.Scene.Height))
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid scene size %gx%g", frame.Scene.Width, frame.Scene.Height)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(r.Background), image.Point{}, draw.Src)

	scene := Rect{W: frame.Scene.Width, H: frame.Scene.Height}
	for _, el := range PaintOrder(frame.Elements) {
		if err := r.paint(canvas, el, scene, 1); err != nil {
			return nil, err
		}
	}

	if r.Scale <= 0 || r.Scale == 1 {
		return canvas, nil
	}
	scaled := image.NewRGBA(image.Rect(0, 0, int(float64(width)*r.Scale), int(float64(height)*r.Scale)))
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), canvas, canvas.Bounds(), xdraw.Src, nil)
	return scaled, nil
}

// chrome is the per-type look applied when the style leaves it unset.
type chrome struct {
	background  *color.NRGBA
	border      *color.NRGBA
	borderWidth float64
	pad         float64
	center      bool
	minW, minH  float64
}

func chromeFor(t models.ElementType) (chrome, error) {
	switch t {
	case models.ElementTypeBox:
		return chrome{border: &defaultBorder, borderWidth: 1, pad: padding, center: true, minW: 40, minH: 40}, nil
	case models.ElementTypeText:
		return chrome{pad: padding, center: true}, nil
	case models.ElementTypeCode:
		return chrome{background: &codeBackground, border: &codeBorder, borderWidth: 1, pad: codePadding}, nil
	case models.ElementTypePointer:
		return chrome{border: &pointerBorder, borderWidth: 2, pad: padding, center: true, minW: 24, minH: 24}, nil
	case models.ElementTypeArray:
		return chrome{}, nil
	}
	return chrome{}, fmt.Errorf("%w: %q", ErrUnknownElementType, t)
}

func (r *PNGRenderer) paint(dst *image.RGBA, el models.Element, parent Rect, opacity float64) error {
	look, err := chromeFor(el.Type)
	if err != nil {
		return fmt.Errorf("element %s: %w", el.ID, err)
	}

	alpha := opacity * Opacity(el.Style)
	if alpha <= 0 {
		return CheckTypes(el.Children)
	}

	st := el.Style
	lines := ContentLines(el)
	scale := FontSize(st.FontSize) / baseFontSize
	textW, textH := measure(lines, scale)

	box := Rect{
		X: parent.X + lengthOr(st.Left, parent.W, 0),
		Y: parent.Y + lengthOr(st.Top, parent.H, 0),
		W: lengthOr(st.Width, parent.W, math.Max(textW+2*look.pad, look.minW)),
		H: lengthOr(st.Height, parent.H, math.Max(textH+2*look.pad, look.minH)),
	}
	if el.Type == models.ElementTypeArray && st.Width == nil && st.Height == nil {
		box.W, box.H = 0, 0
	}
	if st.Transform != nil {
		box = ParseTransform(*st.Transform).Apply(box)
	}

	background := look.background
	if st.BackgroundColor != nil {
		if c, ok := ParseColor(*st.BackgroundColor); ok {
			background = &c
		}
	}
	if background != nil {
		fillRect(dst, box, withAlpha(*background, alpha))
	}

	border, bw := look.border, look.borderWidth
	if st.BorderColor != nil {
		if c, ok := ParseColor(*st.BorderColor); ok {
			border = &c
			if bw == 0 {
				bw = 1
			}
		}
	}
	if st.BorderWidth != nil {
		if w, ok := BorderWidth(*st.BorderWidth); ok {
			bw = w
		}
	}
	dashed := false
	if st.BorderStyle != nil {
		switch strings.TrimPrefix(*st.BorderStyle, "border-") {
		case "none":
			bw = 0
		case "dashed", "dotted":
			dashed = true
		}
	}
	if border != nil && bw > 0 {
		strokeRect(dst, box, bw, withAlpha(*border, alpha), dashed)
	}

	if len(lines) > 0 {
		fg := defaultTextColor
		if st.Color != nil {
			if c, ok := ParseColor(*st.Color); ok {
				fg = c
			}
		}
		drawText(dst, lines, box, look.pad, scale, withAlpha(fg, alpha), look.center)
	}

	if el.Type == models.ElementTypeArray {
		for _, child := range PaintOrder(el.Children) {
			if err := r.paint(dst, child, box, alpha); err != nil {
				return err
			}
		}
	}
	return nil
}

func toImageRect(r Rect) image.Rectangle {
	return image.Rect(
		int(math.Round(r.X)), int(math.Round(r.Y)),
		int(math.Round(r.X+r.W)), int(math.Round(r.Y+r.H)),
	)
}

func fillRect(dst *image.RGBA, r Rect, c color.NRGBA) {
	if c.A == 0 || r.W <= 0 || r.H <= 0 {
		return
	}
	draw.Draw(dst, toImageRect(r).Intersect(dst.Bounds()), image.NewUniform(c), image.Point{}, draw.Over)
}

func strokeRect(dst *image.RGBA, r Rect, width float64, c color.NRGBA, dashed bool) {
	edges := []Rect{
		{X: r.X, Y: r.Y, W: r.W, H: width},
		{X: r.X, Y: r.Y + r.H - width, W: r.W, H: width},
		{X: r.X, Y: r.Y + width, W: width, H: r.H - 2*width},
		{X: r.X + r.W - width, Y: r.Y + width, W: width, H: r.H - 2*width},
	}
	for _, e := range edges {
		if !dashed {
			fillRect(dst, e, c)
			continue
		}
		const on, off = 6.0, 4.0
		if e.W >= e.H {
			for x := e.X; x < e.X+e.W; x += on + off {
				fillRect(dst, Rect{X: x, Y: e.Y, W: math.Min(on, e.X+e.W-x), H: e.H}, c)
			}
		} else {
			for y := e.Y; y < e.Y+e.H; y += on + off {
				fillRect(dst, Rect{X: e.X, Y: y, W: e.W, H: math.Min(on, e.Y+e.H-y)}, c)
			}
		}
	}
}

var face = basicfont.Face7x13

// measure returns the scaled extent of lines in the bitmap face.
func measure(lines []string, scale float64) (float64, float64) {
	var w int
	for _, line := range lines {
		if lw := font.MeasureString(face, line).Ceil(); lw > w {
			w = lw
		}
	}
	return float64(w) * scale, float64(len(lines)*face.Height) * scale
}

// drawText paints each line at native size and scales it into place.
func drawText(dst *image.RGBA, lines []string, area Rect, pad, scale float64, c color.NRGBA, center bool) {
	_, totalH := measure(lines, scale)
	y := area.Y + pad
	if center {
		y = area.Y + (area.H-totalH)/2
	}

	lineH := float64(face.Height) * scale
	for _, line := range lines {
		if line == "" {
			y += lineH
			continue
		}
		nativeW := font.MeasureString(face, line).Ceil()
		glyphs := image.NewRGBA(image.Rect(0, 0, nativeW, face.Height))
		d := &font.Drawer{
			Dst:  glyphs,
			Src:  image.NewUniform(c),
			Face: face,
			Dot:  fixed.P(0, face.Ascent),
		}
		d.DrawString(line)

		w := float64(nativeW) * scale
		x := area.X + pad
		if center {
			x = area.X + (area.W-w)/2
		}
		target := toImageRect(Rect{X: x, Y: y, W: w, H: lineH})
		xdraw.ApproxBiLinear.Scale(dst, target, glyphs, glyphs.Bounds(), xdraw.Over, nil)
		y += lineH
	}
}
