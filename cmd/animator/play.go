package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/code-animator/backend/internal/engine"
	"github.com/code-animator/backend/internal/models"
	"github.com/code-animator/backend/internal/narration"
	"github.com/code-animator/backend/internal/playback"
	"github.com/code-animator/backend/internal/render"
)

const playHelp = `commands:
  n        next step
  p        previous step
  space    play / pause (also "play")
  g N      go to step N (1-based, 0 for the initial state)
  r        reset
  v        toggle narration
  h        help
  q        quit
`

func playCommand() *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     "Step through a plan in the terminal",
		ArgsUsage: "<plan file | example>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "narrate",
				Usage: "Speak step descriptions through a text-to-speech program",
			},
			&cli.StringFlag{
				Name:    "tts",
				Value:   "espeak",
				Sources: cli.EnvVars("ANIMATOR_TTS_COMMAND"),
				Usage:   "Text-to-speech program used for narration",
			},
			&cli.StringFlag{
				Name:  "voice-flag",
				Value: "-v",
				Usage: "Flag the TTS program takes before a voice name",
			},
			&cli.BoolFlag{
				Name:  "autoplay",
				Usage: "Start playing immediately",
			},
			&cli.BoolFlag{
				Name:  "hidden",
				Usage: "Also list fully transparent elements",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			title, plan, err := loadPlan(cmd.Args().First())
			if err != nil {
				return err
			}

			var speaker narration.Speaker = narration.NoopSpeaker{}
			if cmd.Bool("narrate") {
				speaker = narration.NewCommandSpeaker(cmd.String("tts"), cmd.String("voice-flag"))
			}

			out := stdout(cmd)
			fmt.Fprintf(out, "Playing %s (%d steps). Type h for help.\n", title, plan.TotalSteps())
			return runPlayer(ctx, plan, stdin(cmd), out, playOptions{
				Clock:     playback.SystemClock,
				Speaker:   speaker,
				Narrate:   cmd.Bool("narrate"),
				Autoplay:  cmd.Bool("autoplay"),
				Rendering: render.TextRenderer{ShowHidden: cmd.Bool("hidden")},
			})
		},
	}
}

type playOptions struct {
	Clock     playback.Clock
	Speaker   narration.Speaker
	Narrate   bool
	Autoplay  bool
	Rendering render.TextRenderer
}

// terminalPlayer drives one controller from line commands and prints a frame
// whenever the visible state changes.
type terminalPlayer struct {
	controller *playback.Controller
	timeline   *engine.Timeline
	renderer   render.TextRenderer
	out        io.Writer

	printed bool
	last    models.PlayerState
}

// runPlayer reads commands from in until q, EOF or ctx is done.
func runPlayer(ctx context.Context, plan *models.AnimationPlan, in io.Reader, out io.Writer, opts playOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	controller := playback.NewController(plan, opts.Clock)
	defer controller.Close()

	narrator := narration.NewCoordinator(opts.Speaker)
	detach := narrator.Attach(controller)
	defer detach()
	defer narrator.Stop()

	// Auto-advance fires on the clock's goroutine; the loop below does the printing.
	changes := make(chan struct{}, 1)
	unsubscribe := controller.Subscribe(func(playback.Event) {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	tp := &terminalPlayer{
		controller: controller,
		timeline:   engine.NewTimeline(plan),
		renderer:   opts.Rendering,
		out:        out,
	}

	if opts.Narrate {
		controller.SetNarration(true)
	}
	if opts.Autoplay {
		controller.Play()
	}
	if err := tp.refresh(); err != nil {
		return err
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			if err := tp.refresh(); err != nil {
				return err
			}
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := tp.handle(line)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
			if quit {
				return nil
			}
			if err := tp.refresh(); err != nil {
				return err
			}
		}
	}
}

// handle applies one command line. It reports true when the user asked to quit.
func (tp *terminalPlayer) handle(line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		if line != "" {
			// a bare space toggles playback
			tp.controller.PlayPause()
		}
		return false, nil
	}

	c := tp.controller
	switch strings.ToLower(fields[0]) {
	case "n", "next":
		c.Next()
	case "p", "prev":
		c.Prev()
	case "play", "pause":
		c.PlayPause()
	case "r", "reset":
		c.Reset()
	case "v", "narration":
		c.ToggleNarration()
	case "g", "go":
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: g <step>")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return false, fmt.Errorf("invalid step %q", fields[1])
		}
		c.Scrub(engine.ClampStep(n-1, tp.timeline.Len()))
	case "h", "help", "?":
		fmt.Fprint(tp.out, playHelp)
	case "q", "quit", "exit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q (h for help)", fields[0])
	}
	return false, nil
}

// refresh prints the current frame when the state differs from the last one printed.
func (tp *terminalPlayer) refresh() error {
	state := tp.controller.State()
	if tp.printed && state == tp.last {
		return nil
	}
	tp.printed = true
	tp.last = state

	flags := []string{}
	if state.IsPlaying {
		flags = append(flags, "playing")
	}
	if state.NarrationEnabled {
		flags = append(flags, "narration")
	}
	if len(flags) > 0 {
		fmt.Fprintf(tp.out, "(%s)\n", strings.Join(flags, ", "))
	}
	return tp.renderer.Render(tp.out, tp.timeline.Frame(state))
}
