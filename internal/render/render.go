// Package render paints resolved frames. Every renderer switches over the
// closed set of element types and rejects anything else.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/code-animator/backend/internal/models"
)

// ErrUnknownElementType is returned when a frame holds an element type no
// renderer knows how to paint.
var ErrUnknownElementType = errors.New("unknown element type")

// Renderer paints one frame to w.
type Renderer interface {
	Render(w io.Writer, frame models.Frame) error
	ContentType() string
	Extension() string
}

// Format names a renderer.
type Format string

const (
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
	FormatPNG     Format = "png"
	FormatText    Format = "text"
)

// New returns the renderer for format.
func New(format Format) (Renderer, error) {
	switch Format(strings.ToLower(string(format))) {
	case FormatJSON:
		return JSONRenderer{}, nil
	case FormatMsgpack:
		return MsgpackRenderer{}, nil
	case FormatPNG:
		return NewPNGRenderer(), nil
	case FormatText:
		return TextRenderer{}, nil
	}
	return nil, fmt.Errorf("no renderer for format: %s", format)
}

// CheckTypes walks elements and their children and reports the first
// element whose type is not renderable.
func CheckTypes(elements []models.Element) error {
	for _, el := range elements {
		switch el.Type {
		case models.ElementTypeBox, models.ElementTypeText, models.ElementTypeCode, models.ElementTypePointer:
		case models.ElementTypeArray:
			if err := CheckTypes(el.Children); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %q (element %s)", ErrUnknownElementType, el.Type, el.ID)
		}
	}
	return nil
}

// JSONRenderer writes the frame as a JSON document.
type JSONRenderer struct{}

func (JSONRenderer) Render(w io.Writer, frame models.Frame) error {
	if err := CheckTypes(frame.Elements); err != nil {
		return err
	}
	return json.NewEncoder(w).Encode(frame)
}

func (JSONRenderer) ContentType() string { return "application/json" }
func (JSONRenderer) Extension() string { return ".json" }

// MsgpackRenderer writes the frame as MessagePack using the JSON field names.
type MsgpackRenderer struct{}

func (MsgpackRenderer) Render(w io.Writer, frame models.Frame) error {
	if err := CheckTypes(frame.Elements); err != nil {
		return err
	}
	enc := msgpack.NewEncoder(w)
	enc.SetCustomStructTag("json")
	return enc.Encode(frame)
}

func (MsgpackRenderer) ContentType() string { return "application/msgpack" }
func (MsgpackRenderer) Extension() string { return ".msgpack" }

// TextRenderer prints an indented outline of the frame for terminals.
type TextRenderer struct {
	// ShowHidden also lists fully transparent elements.
	ShowHidden bool
}

func (r TextRenderer) Render(w io.Writer, frame models.Frame) error {
	var b strings.Builder
	s := frame.State
	fmt.Fprintf(&b, "[%s] %s\n", s.Counter, s.Description)
	if err := r.writeElements(&b, PaintOrder(frame.Elements), 1); err != nil {
		return err
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (r TextRenderer) writeElements(b *strings.Builder, elements []models.Element, depth int) error {
	indent := strings.Repeat("  ", depth)
	for _, el := range elements {
		if !r.ShowHidden && !Visible(el) {
			continue
		}
		lines := ContentLines(el)
		label := strings.Join(lines, " ")

		switch el.Type {
		case models.ElementTypeBox:
			fmt.Fprintf(b, "%s[%s] %s\n", indent, label, el.ID)
		case models.ElementTypeText:
			fmt.Fprintf(b, "%s%s\n", indent, label)
		case models.ElementTypeCode:
			fmt.Fprintf(b, "%s--- %s\n", indent, el.ID)
			for _, line := range lines {
				fmt.Fprintf(b, "%s| %s\n", indent, line)
			}
		case models.ElementTypePointer:
			fmt.Fprintf(b, "%s^ %s (%s)\n", indent, label, el.ID)
		case models.ElementTypeArray:
			fmt.Fprintf(b, "%s%s:\n", indent, el.ID)
			if err := r.writeElements(b, PaintOrder(el.Children), depth+1); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %q (element %s)", ErrUnknownElementType, el.Type, el.ID)
		}
	}
	return nil
}

func (TextRenderer) ContentType() string { return "text/plain; charset=utf-8" }
func (TextRenderer) Extension() string { return ".txt" }
