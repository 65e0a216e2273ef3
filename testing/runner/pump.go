package runner

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/circleci/testdriver/internal/linequeue"
)

// pump copies lines from each stream onto a queue until the stream ends.
type pump struct {
	done chan struct{}
	err  error
}

func startPump(q *linequeue.Queue, streams ...io.ReadCloser) *pump {
	p := &pump{done: make(chan struct{})}

	var g errgroup.Group
	for _, s := range streams {
		s := s
		g.Go(func() error {
			return drain(q, s)
		})
	}
	go func() {
		p.err = g.Wait()
		close(p.done)
	}()
	return p
}

// drain keeps the newline on each line. A final line without one is still delivered.
func drain(q *linequeue.Queue, s io.ReadCloser) error {
	defer s.Close()

	r := bufio.NewReader(s)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			q.Push(strings.ToValidUTF8(line, "\uFFFD"))
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, os.ErrClosed):
			return nil
		default:
			return err
		}
	}
}

// Done is closed once every stream has ended.
func (p *pump) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until every stream has ended and returns the first read error.
func (p *pump) Wait() error {
	<-p.done
	return p.err
}
