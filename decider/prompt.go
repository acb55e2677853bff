package decider

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hupe1980/retryit/action"
	"github.com/hupe1980/retryit/alert"
)

// Prompt asks a human to resolve decisions over a line-oriented reader and
// writer, typically stdin and stdout.
type Prompt struct {
	in        *bufio.Reader
	out       io.Writer
	describer alert.Describer
}

// NewPrompt creates a Prompt. describer may be nil.
func NewPrompt(in io.Reader, out io.Writer, describer alert.Describer) *Prompt {
	return &Prompt{in: bufio.NewReader(in), out: out, describer: describer}
}

// Resolve shows the alert for d and applies the answer. Retry is only
// accepted when the error is retryable. End of input ignores the failure.
func (p *Prompt) Resolve(d *action.Decision) (action.Resolution, error) {
	a := alert.ForDecision(d, p.describer)

	options := "[i]gnore"
	if a.Retry != nil {
		options = "[r]etry / [i]gnore"
	}
	fmt.Fprintf(p.out, "%s: %s\n", a.Title, a.Message)

	for {
		fmt.Fprintf(p.out, "%s > ", options)
		line, err := p.in.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))

		switch {
		case a.Retry != nil && (answer == "r" || answer == "retry" || answer == "y"):
			a.Retry.Press()
			return d.Resolution(), nil
		case answer == "i" || answer == "ignore" || answer == "n":
			a.Ignore.Press()
			return d.Resolution(), nil
		}

		if err != nil {
			a.Ignore.Press()
			if errors.Is(err, io.EOF) {
				return d.Resolution(), nil
			}
			return d.Resolution(), fmt.Errorf("read answer: %w", err)
		}
		fmt.Fprintf(p.out, "Unrecognised answer %q\n", answer)
	}
}
