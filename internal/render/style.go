package render

import (
	"sort"
	"strconv"
	"strings"

	"github.com/code-animator/backend/internal/models"
)

// Rect is an axis-aligned box in scene pixels.
type Rect struct {
	X, Y, W, H float64
}

// Length parses a CSS length. Plain numbers and px are pixels, percentages are
// relative to ref. It reports false for anything else.
func Length(v string, ref float64) (float64, bool) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return 0, false
	case strings.HasSuffix(v, "px"):
		v = strings.TrimSuffix(v, "px")
	case strings.HasSuffix(v, "%"):
		f, err := strconv.ParseFloat(strings.TrimSuffix(v, "%"), 64)
		if err != nil {
			return 0, false
		}
		return f * ref / 100, true
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func lengthOr(v *string, ref, def float64) float64 {
	if v == nil {
		return def
	}
	if f, ok := Length(*v, ref); ok {
		return f
	}
	return def
}

// Transform is the subset of CSS transforms the rasteriser honours.
type Transform struct {
	Scale  float64
	DX, DY float64
}

// ParseTransform understands scale(), translate(), translateX() and
// translateY(). Unknown functions are ignored.
func ParseTransform(v string) Transform {
	t := Transform{Scale: 1}
	rest := strings.TrimSpace(v)
	for rest != "" {
		open := strings.IndexByte(rest, '(')
		end := strings.IndexByte(rest, ')')
		if open < 0 || end < open {
			break
		}
		name := strings.TrimSpace(rest[:open])
		args := strings.Split(rest[open+1:end], ",")
		rest = strings.TrimSpace(rest[end+1:])

		switch name {
		case "scale":
			if f, err := strconv.ParseFloat(strings.TrimSpace(args[0]), 64); err == nil {
				t.Scale *= f
			}
		case "translate":
			t.DX += lengthArg(args, 0)
			t.DY += lengthArg(args, 1)
		case "translateX":
			t.DX += lengthArg(args, 0)
		case "translateY":
			t.DY += lengthArg(args, 0)
		}
	}
	return t
}

func lengthArg(args []string, i int) float64 {
	if i >= len(args) {
		return 0
	}
	f, _ := Length(args[i], 0)
	return f
}

// Apply scales r around its centre and then translates it.
func (t Transform) Apply(r Rect) Rect {
	cx, cy := r.X+r.W/2, r.Y+r.H/2
	w, h := r.W*t.Scale, r.H*t.Scale
	return Rect{X: cx - w/2 + t.DX, Y: cy - h/2 + t.DY, W: w, H: h}
}

// BorderWidth reads a border width utility ("border", "border-2") or length.
func BorderWidth(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	if v == "border" {
		return 1, true
	}
	if strings.HasPrefix(v, "border-") {
		n, err := strconv.Atoi(strings.TrimPrefix(v, "border-"))
		if err != nil {
			return 0, false
		}
		return float64(n), true
	}
	return Length(v, 0)
}

var fontSizes = map[string]float64{
	"text-xs":   12,
	"text-sm":   14,
	"text-base": 16,
	"text-lg":   18,
	"text-xl":   20,
	"text-2xl":  24,
	"text-3xl":  30,
	"text-4xl":  36,
	"text-5xl":  48,
}

// FontSize returns the font size in pixels, 16 when unset or unknown.
func FontSize(v *string) float64 {
	if v == nil {
		return 16
	}
	if px, ok := fontSizes[strings.TrimSpace(*v)]; ok {
		return px
	}
	if px, ok := Length(*v, 16); ok && px > 0 {
		return px
	}
	return 16
}

// Opacity returns the effective opacity, 1 when unset.
func Opacity(s models.ElementStyle) float64 {
	if s.Opacity == nil {
		return 1
	}
	return clamp01(*s.Opacity)
}

// Visible reports whether an element would paint anything.
func Visible(el models.Element) bool {
	return Opacity(el.Style) > 0
}

// PaintOrder returns elements sorted by zIndex, keeping declaration order for ties.
func PaintOrder(elements []models.Element) []models.Element {
	out := make([]models.Element, len(elements))
	copy(out, elements)
	sort.SliceStable(out, func(i, j int) bool {
		return zIndex(out[i]) < zIndex(out[j])
	})
	return out
}

func zIndex(el models.Element) float64 {
	if el.Style.ZIndex == nil {
		return 0
	}
	return *el.Style.ZIndex
}

// ContentLines splits the element content into display lines honouring whiteSpace.
// Code defaults to pre-wrap, everything else to normal.
func ContentLines(el models.Element) []string {
	if el.Style.Content == nil || *el.Style.Content == "" {
		return nil
	}
	content := *el.Style.Content

	mode := models.WhiteSpaceNormal
	if el.Type == models.ElementTypeCode {
		mode = models.WhiteSpacePreWrap
	}
	if el.Style.WhiteSpace != nil {
		mode = *el.Style.WhiteSpace
	}

	if mode == models.WhiteSpacePreWrap {
		return strings.Split(strings.ReplaceAll(content, "\t", "    "), "\n")
	}
	return []string{strings.Join(strings.Fields(content), " ")}
}
