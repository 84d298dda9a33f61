// Package prompt reads answers for the setup wizard from a terminal or from
// piped input.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// Prompter asks questions on Out and reads answers from In.
type Prompter struct {
	In  io.Reader
	Out io.Writer

	lines *bufio.Scanner
	eof   bool
}

// Stdio returns a Prompter on stdin and stdout.
func Stdio() *Prompter {
	return &Prompter{In: os.Stdin, Out: os.Stdout}
}

func (p *Prompter) line() string {
	if p.lines == nil {
		p.lines = bufio.NewScanner(p.In)
	}
	if !p.lines.Scan() {
		p.eof = true
		return ""
	}
	return strings.TrimSpace(p.lines.Text())
}

func (p *Prompter) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.Out, format, args...)
}

// Ask reads one line. An empty answer returns def.
func (p *Prompter) Ask(question, def string) string {
	if def != "" {
		p.printf("%s [%s]: ", question, def)
	} else {
		p.printf("%s: ", question)
	}
	if ans := p.line(); ans != "" {
		return ans
	}
	return def
}

// AskSecret reads a value without echo when In is a terminal. Answers shorter
// than minLen are asked again; at end of input whatever was read is returned.
func (p *Prompter) AskSecret(question string, minLen int) string {
	for {
		p.printf("%s: ", question)
		ans := p.readHidden()
		if len(ans) >= minLen || p.eof {
			return ans
		}
		p.printf("  Must be at least %d characters.\n", minLen)
	}
}

func (p *Prompter) readHidden() string {
	if f, ok := p.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		p.printf("\n")
		if err == nil {
			return strings.TrimSpace(string(b))
		}
	}
	return p.line()
}

// AskFloat reads a positive number, asking again on bad input.
func (p *Prompter) AskFloat(question string, def float64) float64 {
	for {
		ans := p.Ask(question, strconv.FormatFloat(def, 'f', -1, 64))
		n, err := strconv.ParseFloat(ans, 64)
		if err == nil && n > 0 {
			return n
		}
		if p.eof {
			return def
		}
		p.printf("  Please enter a positive number.\n")
	}
}

// Choose lists options and returns the picked one. Answers may be the option
// number or the option text.
func (p *Prompter) Choose(question string, options []string, def int) string {
	p.printf("%s\n", question)
	for i, opt := range options {
		marker := "  "
		if i == def {
			marker = "> "
		}
		p.printf("%s%d) %s\n", marker, i+1, opt)
	}

	for {
		ans := p.Ask("Choice", strconv.Itoa(def+1))
		if n, err := strconv.Atoi(ans); err == nil && n >= 1 && n <= len(options) {
			return options[n-1]
		}
		for _, opt := range options {
			if strings.EqualFold(ans, opt) {
				return opt
			}
		}
		if p.eof {
			return options[def]
		}
		p.printf("  Please enter a number between 1 and %d.\n", len(options))
	}
}

// Confirm asks a yes/no question.
func (p *Prompter) Confirm(question string, def bool) bool {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	ans := strings.ToLower(p.Ask(question+" ["+hint+"]", ""))
	switch {
	case ans == "":
		return def
	case strings.HasPrefix(ans, "y"):
		return true
	default:
		return false
	}
}
