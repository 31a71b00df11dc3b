package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Fanout delivers every message to all of its sinks, in order.
type Fanout struct {
	sinks []Sink
}

// NewFanout drops nil sinks.
func NewFanout(sinks ...Sink) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Name lists the member sinks.
func (f *Fanout) Name() string {
	names := make([]string, 0, len(f.sinks))
	for _, s := range f.sinks {
		names = append(names, s.Name())
	}
	return strings.Join(names, ",")
}

// Len reports how many sinks are attached.
func (f *Fanout) Len() int { return len(f.sinks) }

// Deliver tries every sink even when an earlier one fails; failures are joined.
func (f *Fanout) Deliver(ctx context.Context, msg Message) error {
	if len(f.sinks) == 0 {
		return ErrNoSink
	}
	var errs []error
	for _, s := range f.sinks {
		if err := s.Deliver(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
