package presenter

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/park285/board-coverage/internal/tracker"
)

// Presenter writes a progress block for every update. It is a tracker.Sink.
type Presenter struct {
	mu   sync.Mutex
	out  io.Writer
	form *Formatter
	user string
	done bool
}

func NewPresenter(out io.Writer, f *Formatter, user string) *Presenter {
	return &Presenter{out: out, form: f, user: user}
}

func (p *Presenter) Publish(_ context.Context, u tracker.Update) error {
	if p == nil || p.out == nil {
		return nil
	}
	snap := ToDTO(u, p.user)

	head, err := p.form.Game(snap)
	if err != nil {
		return err
	}
	body, err := p.form.Progress(snap)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := fmt.Fprintf(p.out, "%s\n%s\n\n", head, body); err != nil {
		return err
	}
	if snap.Stats.Visited == snap.Stats.TotalSquares && !p.done {
		p.done = true
		line, err := p.form.Finished(snap)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(p.out, line); err != nil {
			return err
		}
	}
	return nil
}
