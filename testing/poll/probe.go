package poll

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/circleci/testdriver/o11y"
)

// Policy bounds a readiness probe. The probe gives up after Attempts checks or
// after Attempts x Delay of wall-clock time, whichever comes first. A zero Delay
// checks back to back and is bounded by Attempts alone.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// LocalPolicy suits a local process: 10 attempts 100ms apart.
func LocalPolicy() Policy {
	return Policy{Attempts: 10, Delay: 100 * time.Millisecond}
}

// ContainerPolicy suits a container that takes seconds to boot: 20 attempts 500ms apart.
func ContainerPolicy() Policy {
	return Policy{Attempts: 20, Delay: 500 * time.Millisecond}
}

// Budget is the wall-clock ceiling of the policy, 0 when only Attempts bounds it.
func (p Policy) Budget() time.Duration {
	return time.Duration(p.attempts()) * p.Delay
}

func (p Policy) attempts() int {
	if p.Attempts < 1 {
		return 1
	}
	return p.Attempts
}

// Source returns the text to search for the marker. For a process this is its
// accumulated output, for a container its log.
type Source func(ctx context.Context) (string, error)

// Outcome reports how a probe went. Ready is false on a soft timeout.
type Outcome struct {
	Ready    bool
	Attempts int
	Elapsed  time.Duration
}

var errMarkerMissing = errors.New("marker not seen")

// Probe repeatedly asks source for text until it contains marker or the policy is
// exhausted. It never fails: running out of attempts is reported through Outcome,
// and callers decide whether that matters.
func Probe(ctx context.Context, policy Policy, source Source, marker string) (out Outcome) {
	ctx, span := o11y.StartSpan(ctx, "poll: probe")
	span.AddField("marker", marker)
	span.AddField("max_attempts", policy.attempts())
	span.AddField("delay", policy.Delay)
	span.RecordMetric(o11y.Timing("poll.probe", "ready"))
	defer func() {
		span.AddField("attempts", out.Attempts)
		span.AddField("ready", out.Ready)
		if !out.Ready {
			span.AddRawField("warning", "readiness marker not seen within budget")
		}
		span.End()
	}()

	start := time.Now()
	if budget := policy.Budget(); budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	var lastErr error
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(policy.Delay), uint64(policy.attempts()-1)),
		ctx,
	)
	err := backoff.Retry(func() error {
		out.Attempts++
		text, err := source(ctx)
		if err != nil {
			lastErr = err
			return err
		}
		if strings.Contains(text, marker) {
			return nil
		}
		return errMarkerMissing
	}, b)

	out.Elapsed = time.Since(start)
	out.Ready = err == nil
	if lastErr != nil {
		span.AddField("last_source_error", lastErr.Error())
	}
	return out
}
