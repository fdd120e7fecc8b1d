package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/code-animator/backend/internal/narration"
	"github.com/code-animator/backend/internal/parser"
	"github.com/code-animator/backend/internal/render"
	"github.com/code-animator/backend/internal/testutil"
)

const planJSON = `{
  "scene": {"width": 200, "height": 100},
  "elements": [
    {"id": "box", "type": "box", "style": {"content": "7", "opacity": 0}},
    {"id": "label", "type": "text", "style": {"content": "start"}}
  ],
  "steps": [
    {"description": "Show the box", "actions": [{"elementId": "box", "type": "FADE_IN"}]},
    {"description": "Rename the label", "actions": [{"elementId": "label", "type": "UPDATE", "payload": {"content": "done"}}]},
    {"description": "Hide the box", "actions": [{"elementId": "box", "type": "FADE_OUT"}]}
  ]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	gt.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// runApp runs the CLI with args and returns its output.
func runApp(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	app.Reader = strings.NewReader(input)
	err := app.Run(context.Background(), append([]string{"animator"}, args...))
	return out.String(), err
}

func TestLoadPlan(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		path := writeFile(t, "plan.json", planJSON)
		title, plan, err := loadPlan(path)
		gt.NoError(t, err)
		gt.Equal(t, path, title)
		gt.Equal(t, 3, plan.TotalSteps())
	})

	t.Run("example by slug", func(t *testing.T) {
		title, plan, err := loadPlan("bubble-sort")
		gt.NoError(t, err)
		gt.Equal(t, "Bubble Sort", title)
		gt.Equal(t, 9, plan.TotalSteps())
	})

	t.Run("example by title", func(t *testing.T) {
		title, _, err := loadPlan("JavaScript Closures")
		gt.NoError(t, err)
		gt.Equal(t, "JavaScript Closures", title)
	})

	t.Run("unknown", func(t *testing.T) {
		_, _, err := loadPlan("quick-sort")
		gt.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, _, err := loadPlan("")
		gt.Error(t, err)
	})
}

func TestRunPlayer(t *testing.T) {
	plan, err := parser.Decode("plan.json", []byte(planJSON))
	gt.NoError(t, err)

	var out bytes.Buffer
	input := "n\nn\nbogus\ng 99\np\nr\nq\nn\n"
	err = runPlayer(context.Background(), plan, strings.NewReader(input), &out, playOptions{
		Clock:   testutil.NewFakeClock(),
		Speaker: narration.NoopSpeaker{},
	})
	gt.NoError(t, err)

	got := out.String()
	for _, want := range []string{
		"[0 / 3] Initial state. Press play to begin.",
		"[1 / 3] Show the box",
		"[7] box",
		"[2 / 3] Rename the label",
		"done",
		`unknown command "bogus"`,
		"[3 / 3] Hide the box",
	} {
		gt.True(t, strings.Contains(got, want))
	}

	// g 99 clamps to the last step, p goes back one, r returns to the start
	last := strings.Index(got, "[3 / 3]")
	back := strings.LastIndex(got, "[2 / 3]")
	reset := strings.LastIndex(got, "[0 / 3]")
	gt.True(t, last < back)
	gt.True(t, back < reset)

	// nothing after q is processed
	gt.Equal(t, 1, strings.Count(got, "[1 / 3]"))
}

func TestRunPlayer_NarrationAndPlayback(t *testing.T) {
	plan, err := parser.Decode("plan.json", []byte(planJSON))
	gt.NoError(t, err)

	var out bytes.Buffer
	err = runPlayer(context.Background(), plan, strings.NewReader("v\n \nq\n"), &out, playOptions{
		Clock:     testutil.NewFakeClock(),
		Rendering: render.TextRenderer{ShowHidden: true},
	})
	gt.NoError(t, err)

	got := out.String()
	gt.True(t, strings.Contains(got, "(narration)"))
	gt.True(t, strings.Contains(got, "(playing, narration)"))
	// hidden elements are listed on request
	gt.True(t, strings.Contains(got, "[7] box"))
}

func TestValidateCommand(t *testing.T) {
	good := writeFile(t, "good.json", planJSON)
	out, err := runApp(t, "", "validate", good)
	gt.NoError(t, err)
	gt.True(t, strings.Contains(out, "ok (3 steps, 2 elements)"))

	warn := writeFile(t, "warn.yaml", `
scene: {width: 10, height: 10}
elements:
  - {id: a, type: box}
  - {id: a, type: text}
steps:
  - description: d
    actions:
      - {elementId: ghost, type: FADE_IN}
`)
	out, err = runApp(t, "", "validate", warn)
	gt.NoError(t, err)
	gt.True(t, strings.Contains(out, "duplicate element ids: a"))
	gt.True(t, strings.Contains(out, "unknown elements: ghost"))

	bad := writeFile(t, "bad.json", `{"scene":{"width":0,"height":1},"elements":[],"steps":[]}`)
	out, err = runApp(t, "", "validate", good, bad)
	gt.Error(t, err)
	gt.True(t, strings.Contains(out, "bad.json: invalid"))
	gt.True(t, strings.Contains(out, "/scene/width"))
	gt.True(t, strings.Contains(err.Error(), "1 of 2 plans are invalid"))
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := runApp(t, "", "export", "--out", dir, "--format", "text", "--initial", "bubble-sort")
	gt.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	gt.Equal(t, 10, len(lines))
	gt.Equal(t, filepath.Join(dir, "step-000.txt"), lines[0])
	gt.Equal(t, filepath.Join(dir, "step-009.txt"), lines[9])

	data, err := os.ReadFile(lines[1])
	gt.NoError(t, err)
	gt.True(t, strings.Contains(string(data), "Initial setup of the array for Bubble Sort."))
}

func TestExportCommand_UnknownFormat(t *testing.T) {
	_, err := runApp(t, "", "export", "--out", t.TempDir(), "--format", "gif", "bubble-sort")
	gt.Error(t, err)
}

func TestExamplesCommand(t *testing.T) {
	out, err := runApp(t, "", "examples")
	gt.NoError(t, err)
	gt.True(t, strings.Contains(out, "bubble-sort"))
	gt.True(t, strings.Contains(out, "javascript-closures"))
}

func TestPlayCommand(t *testing.T) {
	out, err := runApp(t, "n\nq\n", "play", "bubble-sort")
	gt.NoError(t, err)
	gt.True(t, strings.Contains(out, "Playing Bubble Sort (9 steps)"))
	gt.True(t, strings.Contains(out, "[1 / 9] Initial setup of the array for Bubble Sort."))
}

func TestWritePlan(t *testing.T) {
	plan, err := parser.Decode("plan.json", []byte(planJSON))
	gt.NoError(t, err)

	for _, format := range []string{"json", "yaml"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			gt.NoError(t, writePlan(&buf, plan, format))
			decoded, err := parser.Decode("plan."+format, buf.Bytes())
			gt.NoError(t, err)
			gt.Equal(t, plan.TotalSteps(), decoded.TotalSteps())
			gt.Equal(t, len(plan.Elements), len(decoded.Elements))
		})
	}

	gt.Equal(t, "yaml", planFormat("out/plan.YML"))
	gt.Equal(t, "json", planFormat("plan.json"))
	gt.Equal(t, "json", planFormat("plan"))
}
