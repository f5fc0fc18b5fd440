package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/krantius/raftsim/raft"
)

var palette = []color.Attribute{
	color.FgCyan,
	color.FgMagenta,
	color.FgYellow,
	color.FgGreen,
	color.FgBlue,
	color.FgRed,
}

// printer writes one colored line per event, a color per node
type printer struct {
	out    io.Writer
	colors map[string]*color.Color
}

func newPrinter(out io.Writer) *printer {
	return &printer{
		out:    out,
		colors: make(map[string]*color.Color),
	}
}

func (p *printer) run(events <-chan raft.Event) {
	for e := range events {
		p.print(e)
	}
}

func (p *printer) print(e raft.Event) {
	p.color(e.Node).Fprintf(p.out, "%s %-3s %-9s t%-3d %s\n",
		e.At.Format("15:04:05.000"), e.Node, e.State, e.Term, describe(e))
}

func (p *printer) color(node string) *color.Color {
	c, ok := p.colors[node]
	if !ok {
		c = color.New(palette[len(p.colors)%len(palette)])
		p.colors[node] = c
	}
	return c
}

func describe(e raft.Event) string {
	switch e.Kind {
	case raft.EventSentMessage:
		h := e.Message.Head()

		switch m := e.Message.(type) {
		case *raft.AppendEntries:
			return fmt.Sprintf("sent %s to %s after %d with %d entries (%v)", m.Kind(), h.To, m.PrevIndex, len(m.Entries), e.Delay)
		case *raft.RequestVoteResponse:
			return fmt.Sprintf("sent %s to %s granted=%t (%v)", m.Kind(), h.To, m.Granted, e.Delay)
		case *raft.AppendEntriesResponse:
			return fmt.Sprintf("sent %s to %s success=%t match=%d (%v)", m.Kind(), h.To, m.Success, m.MatchIndex, e.Delay)
		}
		return fmt.Sprintf("sent %s to %s (%v)", e.Message.Kind(), h.To, e.Delay)
	case raft.EventSetElectionTimeout:
		return fmt.Sprintf("election timeout in %v", e.Delay)
	case raft.EventCommitted:
		return fmt.Sprintf("committed up to %d", e.CommitIndex)
	}

	return strings.ReplaceAll(string(e.Kind), "_", " ")
}
