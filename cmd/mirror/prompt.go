package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/b1naryth1ef/mirror"
	"github.com/b1naryth1ef/mirror/transport"
	"github.com/dustin/go-humanize"
)

// prompt lists a deletion plan and asks once for the whole of it. Only a
// literal "y" counts as yes.
type prompt struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompt(in io.Reader, out io.Writer) *prompt {
	return &prompt{in: bufio.NewReader(in), out: out}
}

func (p *prompt) Confirm(side mirror.Side, items []mirror.PlanItem) (bool, error) {
	fmt.Fprintf(p.out, "Items on %s missing from the other side:\n", side)
	for _, item := range items {
		switch {
		case item.Err != nil:
			fmt.Fprintf(p.out, "[?] %s\n", item.Path)
		case item.Kind == transport.KindDir:
			fmt.Fprintf(p.out, "[D] %s\n", item.Path)
		case item.Kind == transport.KindFile:
			fmt.Fprintf(p.out, "[F] %s | %s\n", item.Path, humanize.Bytes(uint64(item.Size)))
		default:
			fmt.Fprintf(p.out, "[?] %s\n", item.Path)
		}
	}
	fmt.Fprint(p.out, "Are you sure want to remove files in above? (y/N): ")

	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	return strings.TrimSpace(line) == "y", nil
}
