package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/jwebster45206/dungeon-master/pkg/dice"
)

const replHelp = `# Dungeon Master

Describe what your character does and press **Enter**.

| Command | Effect |
|---|---|
| ` + "`/roll 2d6+1 [advantage]`" + ` | roll dice |
| ` + "`/session`" + ` | show the session |
| ` + "`exit`" + ` or ` + "`quit`" + ` | leave |
`

// REPL is the plain line-based console: the session in cyan, a yellow
// prompt and the narration in green.
type REPL struct {
	engine  Runner
	roller  *dice.Roller
	timeout time.Duration
	in      io.Reader
	out     *termenv.Output
	render  func(string) (string, error)
	logger  *slog.Logger
}

// NewREPL returns a REPL reading from in and writing to out. Color is used
// only when out is a terminal that supports it.
func NewREPL(engine Runner, roller *dice.Roller, timeout time.Duration, in io.Reader, out io.Writer, logger *slog.Logger) *REPL {
	output := termenv.NewOutput(out)
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))
	render := func(md string) (string, error) { return md, nil }
	if err == nil {
		render = r.Render
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &REPL{
		engine:  engine,
		roller:  roller,
		timeout: timeout,
		in:      in,
		out:     output,
		render:  render,
		logger:  logger,
	}
}

func (r *REPL) color(s, c string) string {
	return r.out.String(s).Foreground(r.out.Color(c)).String()
}

// Run loops until exit, quit, end of input or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	if help, err := r.render(replHelp); err == nil {
		fmt.Fprint(r.out, help)
	}

	scanner := bufio.NewScanner(r.in)
	for {
		fmt.Fprintln(r.out, r.color(sessionJSON(r.engine.Session()), "6"))
		fmt.Fprint(r.out, r.color(">>> ", "3"))

		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		input := strings.TrimSpace(scanner.Text())
		switch lower := strings.ToLower(input); {
		case lower == "exit" || lower == "quit":
			return nil
		case input == "":
			continue
		case lower == "/session":
			continue // printed at the top of every loop
		case strings.HasPrefix(lower, "/roll"):
			out, err := rollCommand(r.roller, strings.Fields(input)[1:])
			if err != nil {
				fmt.Fprintln(r.out, r.color(err.Error(), "1"))
				continue
			}
			fmt.Fprintln(r.out, out)
			continue
		}

		if err := r.turn(ctx, input); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			r.logger.Warn("Turn failed", "error", err)
			fmt.Fprintln(r.out, r.color("Error: "+err.Error(), "1"))
		}
	}
}

func (r *REPL) turn(ctx context.Context, input string) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	tr, err := r.engine.RunTurn(ctx, input)
	if err != nil {
		return err
	}
	for _, line := range resultLines(tr.Results) {
		fmt.Fprintln(r.out, line)
	}
	fmt.Fprintln(r.out, r.color(tr.Narrative.Text(), "2"))
	return nil
}
