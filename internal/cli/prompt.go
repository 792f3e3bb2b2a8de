package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// prompter asks questions on out and reads answers from in. A single
// reader is shared by every question of one invocation so buffered input
// is never lost between prompts.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	yes bool
}

func newPrompter(in io.Reader, out io.Writer, yes bool) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out, yes: yes}
}

func (p *prompter) readLine() string {
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return strings.TrimSpace(line)
}

// Confirm asks a yes/no question. Anything but y/yes is a no, and so is
// end of input.
func (p *prompter) Confirm(question string) bool {
	if p.yes {
		return true
	}
	fmt.Fprintf(p.out, "%s [y/N] ", question)
	switch strings.ToLower(p.readLine()) {
	case "y", "yes":
		return true
	}
	return false
}

// Ask reads a free-text answer, returning def when it is blank.
func (p *prompter) Ask(question, def string) string {
	if p.yes {
		return def
	}
	fmt.Fprintf(p.out, "%s (%s): ", question, def)
	if answer := p.readLine(); answer != "" {
		return answer
	}
	return def
}
