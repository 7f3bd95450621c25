package hostlink

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/google/shlex"
)

// Handler runs one console command and returns the text to print back
// to the operator.
type Handler func(args []string) (string, error)

// Console is a line-oriented debug shell, generalizing gopper-host's
// interactive command loop: commands are tokenized with shlex instead
// of strings.Fields, so a quoted argument ("home x y") can carry spaces,
// and handlers are registered rather than switched on inline.
type Console struct {
	in       *bufio.Scanner
	out      io.Writer
	handlers map[string]Handler
	prompt   string
}

// NewConsole builds a console reading commands from in and writing
// output to out.
func NewConsole(in io.Reader, out io.Writer) *Console {
	c := &Console{
		in:       bufio.NewScanner(in),
		out:      out,
		handlers: make(map[string]Handler),
		prompt:   "> ",
	}
	c.Register("help", c.help)
	return c
}

// Register adds or replaces the handler for a command name.
func (c *Console) Register(name string, h Handler) {
	c.handlers[name] = h
}

// Run reads commands until EOF or a handler returns io.EOF, printing
// each result (or error) to out.
func (c *Console) Run() error {
	for {
		fmt.Fprint(c.out, c.prompt)
		if !c.in.Scan() {
			return c.in.Err()
		}
		line := c.in.Text()
		if line == "" {
			continue
		}
		args, err := shlex.Split(line)
		if err != nil {
			fmt.Fprintf(c.out, "parse error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		h, ok := c.handlers[args[0]]
		if !ok {
			fmt.Fprintf(c.out, "unknown command: %s (try help)\n", args[0])
			continue
		}
		result, err := h(args[1:])
		if err == io.EOF {
			return nil
		}
		if err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
			continue
		}
		if result != "" {
			fmt.Fprintln(c.out, result)
		}
	}
}

func (c *Console) help(args []string) (string, error) {
	names := make([]string, 0, len(c.handlers))
	for name := range c.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	out := "available commands:"
	for _, n := range names {
		out += " " + n
	}
	return out, nil
}
