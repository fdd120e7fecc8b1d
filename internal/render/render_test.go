package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/color"
	"os"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/code-animator/backend/internal/engine"
	"github.com/code-animator/backend/internal/library"
	"github.com/code-animator/backend/internal/models"
)

func str(s string) *string { return &s }

func num(f float64) *float64 { return &f }

func testFrame(elements ...models.Element) models.Frame {
	return models.Frame{
		State:    models.StateAt(&models.AnimationPlan{Steps: make([]models.Step, 2)}, 0),
		Scene:    models.Scene{Width: 200, Height: 100},
		Elements: elements,
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
		ok   bool
	}{
		{"bg-red-500", color.NRGBA{R: 0xef, G: 0x44, B: 0x44, A: 0xff}, true},
		{"border-sky-400", color.NRGBA{R: 0x38, G: 0xbd, B: 0xf8, A: 0xff}, true},
		{"text-white", color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, true},
		{"bg-gray-900/50", color.NRGBA{R: 0x11, G: 0x18, B: 0x27, A: 127}, true},
		{"#0f0", color.NRGBA{G: 0xff, A: 0xff}, true},
		{"#112233", color.NRGBA{R: 0x11, G: 0x22, B: 0x33, A: 0xff}, true},
		{"rgb(1, 2, 3)", color.NRGBA{R: 1, G: 2, B: 3, A: 0xff}, true},
		{"transparent", color.NRGBA{}, true},
		{"bg-gray-950", color.NRGBA{}, false},
		{"bg-chartreuse-500", color.NRGBA{}, false},
		{"#12", color.NRGBA{}, false},
		{"", color.NRGBA{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseColor(tt.in)
			if ok != tt.ok || (ok && got != tt.want) {
				t.Errorf("ParseColor(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestLength(t *testing.T) {
	tests := []struct {
		in   string
		ref  float64
		want float64
		ok   bool
	}{
		{"80px", 0, 80, true},
		{"12.5", 0, 12.5, true},
		{"50%", 300, 150, true},
		{"0", 0, 0, true},
		{"auto", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, tt := range tests {
		got, ok := Length(tt.in, tt.ref)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Length(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseTransform(t *testing.T) {
	tr := ParseTransform("scale(2) translateX(10px)")
	if tr.Scale != 2 || tr.DX != 10 || tr.DY != 0 {
		t.Errorf("Unexpected transform %+v", tr)
	}

	r := tr.Apply(Rect{X: 10, Y: 10, W: 10, H: 10})
	if r != (Rect{X: 15, Y: 5, W: 20, H: 20}) {
		t.Errorf("Unexpected rect %+v", r)
	}

	if got := ParseTransform("rotate(45deg)"); got.Scale != 1 {
		t.Errorf("Expected unknown functions to be ignored, got %+v", got)
	}
}

func TestStyleHelpers(t *testing.T) {
	if w, ok := BorderWidth("border-2"); !ok || w != 2 {
		t.Errorf("Expected border-2 to be 2, got %v", w)
	}
	if w, ok := BorderWidth("border"); !ok || w != 1 {
		t.Errorf("Expected border to be 1, got %v", w)
	}
	if got := FontSize(str("text-2xl")); got != 24 {
		t.Errorf("Expected 24, got %v", got)
	}
	if got := FontSize(nil); got != 16 {
		t.Errorf("Expected default 16, got %v", got)
	}
	if got := Opacity(models.ElementStyle{}); got != 1 {
		t.Errorf("Expected unset opacity to be 1, got %v", got)
	}

	code := models.Element{Type: models.ElementTypeCode, Style: models.ElementStyle{Content: str("a\n  b")}}
	if lines := ContentLines(code); len(lines) != 2 || lines[1] != "  b" {
		t.Errorf("Expected code to keep lines, got %q", lines)
	}
	text := models.Element{Type: models.ElementTypeText, Style: models.ElementStyle{Content: str("a\n  b")}}
	if lines := ContentLines(text); len(lines) != 1 || lines[0] != "a b" {
		t.Errorf("Expected text to collapse whitespace, got %q", lines)
	}
}

func TestPaintOrder(t *testing.T) {
	z := 5.0
	elements := []models.Element{
		{ID: "top", Style: models.ElementStyle{ZIndex: &z}},
		{ID: "a"},
		{ID: "b"},
	}
	got := PaintOrder(elements)
	if got[0].ID != "a" || got[1].ID != "b" || got[2].ID != "top" {
		t.Errorf("Unexpected order %s %s %s", got[0].ID, got[1].ID, got[2].ID)
	}
	if elements[0].ID != "top" {
		t.Errorf("Expected input to be left alone")
	}
}

func TestRenderers_RejectUnknownType(t *testing.T) {
	frame := testFrame(models.Element{ID: "arr", Type: models.ElementTypeArray, Children: []models.Element{
		{ID: "odd", Type: "circle"},
	}})

	for _, format := range []Format{FormatJSON, FormatMsgpack, FormatPNG, FormatText} {
		r, err := New(format)
		if err != nil {
			t.Fatalf("New(%s) failed: %v", format, err)
		}
		err = r.Render(&bytes.Buffer{}, frame)
		if !errors.Is(err, ErrUnknownElementType) {
			t.Errorf("%s: expected ErrUnknownElementType, got %v", format, err)
		}
	}

	if _, err := New("gif"); err == nil {
		t.Error("Expected error for unknown format")
	}
}

func TestJSONAndMsgpackRenderers(t *testing.T) {
	frame := testFrame(models.Element{ID: "b", Type: models.ElementTypeBox, Style: models.ElementStyle{Content: str("7")}})

	var buf bytes.Buffer
	if err := (JSONRenderer{}).Render(&buf, frame); err != nil {
		t.Fatalf("JSON render failed: %v", err)
	}
	var decoded models.Frame
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if decoded.Elements[0].ID != "b" || decoded.State.Counter != "1 / 2" {
		t.Errorf("Unexpected frame %+v", decoded)
	}

	buf.Reset()
	if err := (MsgpackRenderer{}).Render(&buf, frame); err != nil {
		t.Fatalf("msgpack render failed: %v", err)
	}
	var generic map[string]interface{}
	if err := msgpack.Unmarshal(buf.Bytes(), &generic); err != nil {
		t.Fatalf("Invalid msgpack: %v", err)
	}
	if _, ok := generic["elements"]; !ok {
		t.Errorf("Expected json field names in msgpack output, got keys %v", generic)
	}
}

func TestTextRenderer(t *testing.T) {
	frame := testFrame(
		models.Element{ID: "title", Type: models.ElementTypeText, Style: models.ElementStyle{Content: str("Sorting")}},
		models.Element{ID: "ghost", Type: models.ElementTypeBox, Style: models.ElementStyle{Content: str("x"), Opacity: num(0)}},
		models.Element{ID: "arr", Type: models.ElementTypeArray, Children: []models.Element{
			{ID: "cell-0", Type: models.ElementTypeBox, Style: models.ElementStyle{Content: str("5")}},
		}},
		models.Element{ID: "i", Type: models.ElementTypePointer, Style: models.ElementStyle{Content: str("i")}},
		models.Element{ID: "src", Type: models.ElementTypeCode, Style: models.ElementStyle{Content: str("x := 1\ny := 2")}},
	)

	var buf bytes.Buffer
	if err := (TextRenderer{}).Render(&buf, frame); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"[1 / 2]", "Sorting", "arr:", "[5] cell-0", "^ i (i)", "| y := 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "ghost") {
		t.Errorf("Expected hidden element to be skipped:\n%s", out)
	}

	buf.Reset()
	(TextRenderer{ShowHidden: true}).Render(&buf, frame)
	if !strings.Contains(buf.String(), "ghost") {
		t.Errorf("Expected hidden element with ShowHidden")
	}
}

func TestPNGRenderer_Rasterize(t *testing.T) {
	r := NewPNGRenderer()
	frame := testFrame(
		models.Element{ID: "red", Type: models.ElementTypeBox, Style: models.ElementStyle{
			Left: str("10px"), Top: str("10px"), Width: str("20px"), Height: str("20px"),
			BackgroundColor: str("#ff0000"),
		}},
		models.Element{ID: "hidden", Type: models.ElementTypeBox, Style: models.ElementStyle{
			Left: str("50px"), Top: str("10px"), Width: str("20px"), Height: str("20px"),
			BackgroundColor: str("#ff0000"), Opacity: num(0),
		}},
		models.Element{ID: "arr", Type: models.ElementTypeArray, Style: models.ElementStyle{Left: str("100px")}, Children: []models.Element{
			{ID: "cell", Type: models.ElementTypeBox, Style: models.ElementStyle{
				Left: str("10px"), Top: str("10px"), Width: str("10px"), Height: str("10px"),
				BackgroundColor: str("#00ff00"), BorderStyle: str("border-none"),
			}},
		}},
	)

	img, err := r.Rasterize(frame)
	if err != nil {
		t.Fatalf("Rasterize failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 100 {
		t.Fatalf("Expected 200x100, got %v", b)
	}

	bg := color.RGBA{R: 0x11, G: 0x18, B: 0x27, A: 0xff}
	if got := img.RGBAAt(20, 20); got != (color.RGBA{R: 0xff, A: 0xff}) {
		t.Errorf("Expected red box interior, got %v", got)
	}
	if got := img.RGBAAt(10, 10); got == (color.RGBA{R: 0xff, A: 0xff}) {
		t.Errorf("Expected the default border on the box edge")
	}
	if got := img.RGBAAt(60, 20); got != bg {
		t.Errorf("Expected hidden box to leave the background, got %v", got)
	}
	if got := img.RGBAAt(115, 15); got != (color.RGBA{G: 0xff, A: 0xff}) {
		t.Errorf("Expected child positioned inside its array, got %v", got)
	}
	if got := img.RGBAAt(5, 90); got != bg {
		t.Errorf("Expected background elsewhere, got %v", got)
	}

	r.Scale = 2
	img, err = r.Rasterize(frame)
	if err != nil {
		t.Fatalf("Scaled rasterize failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 200 {
		t.Errorf("Expected 400x200, got %v", b)
	}

	if _, err := NewPNGRenderer().Rasterize(models.Frame{}); err == nil {
		t.Error("Expected error for an empty scene")
	}
}

func TestPNGRenderer_Examples(t *testing.T) {
	lib, err := library.Load()
	if err != nil {
		t.Fatalf("library.Load failed: %v", err)
	}
	r := NewPNGRenderer()
	for _, ex := range lib.List() {
		tl := engine.NewTimeline(ex.Plan)
		for step := -1; step < tl.Len(); step++ {
			var buf bytes.Buffer
			if err := r.Render(&buf, tl.Frame(models.StateAt(ex.Plan, step))); err != nil {
				t.Fatalf("%s step %d: %v", ex.Title, step, err)
			}
			if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
				t.Fatalf("%s step %d: output is not a PNG", ex.Title, step)
			}
		}
	}
}

func TestExportTimeline(t *testing.T) {
	lib, err := library.Load()
	if err != nil {
		t.Fatalf("library.Load failed: %v", err)
	}
	ex, _ := lib.Get("bubble-sort")
	tl := engine.NewTimeline(ex.Plan)
	dir := t.TempDir()

	paths, err := ExportTimeline(context.Background(), tl, TextRenderer{}, dir, ExportOptions{Workers: 3, IncludeInitial: true})
	if err != nil {
		t.Fatalf("ExportTimeline failed: %v", err)
	}
	if len(paths) != tl.Len()+1 {
		t.Fatalf("Expected %d files, got %d", tl.Len()+1, len(paths))
	}
	if !strings.HasSuffix(paths[0], "step-000.txt") || !strings.HasSuffix(paths[len(paths)-1], "step-009.txt") {
		t.Errorf("Unexpected file names %s .. %s", paths[0], paths[len(paths)-1])
	}
	data, err := os.ReadFile(paths[1])
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.HasPrefix(string(data), "[1 / 9] ") {
		t.Errorf("Unexpected first step output %q", data)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ExportTimeline(ctx, tl, TextRenderer{}, t.TempDir(), ExportOptions{}); err == nil {
		t.Error("Expected cancelled export to fail")
	}
}
