package async

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// StatusOK is the only application-level status that counts as success.
const StatusOK = "ok"

// Status is implemented by payloads that carry an application-level status.
type Status interface {
	ResponseStatus() string
}

// Leg is one of the two calls joined by Join. Name is used in failure messages.
type Leg[T Status] struct {
	Name string
	Call Call[T]
}

// Join issues both legs concurrently, waits for both, and combines their
// payloads when each reported StatusOK.
//
// Any other combination yields a single failure whose message describes
// both legs, so the caller can tell which one failed. Join never
// short-circuits and never panics; a panic in a leg or in combine becomes
// a KindUnexpected failure.
func Join[A Status, B Status, C any](ctx context.Context, a Leg[A], b Leg[B], combine func(A, B) C) Outcome[C] {
	var (
		ra Outcome[A]
		rb Outcome[B]
	)

	// Legs report through their outcomes, never through the group error,
	// so the derived context is only cancelled once both are done.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ra = runLeg(gctx, a)
		return nil
	})
	g.Go(func() error {
		rb = runLeg(gctx, b)
		return nil
	})
	_ = g.Wait()

	descA, okA := describeLeg(a.Name, ra)
	descB, okB := describeLeg(b.Name, rb)
	if okA && okB {
		return combineSafely(ra.Value(), rb.Value(), combine)
	}

	kind := KindSemanticStatus
	if f := ra.Failure(); f != nil {
		kind = f.Kind
	} else if f := rb.Failure(); f != nil {
		kind = f.Kind
	}
	return Fail[C](kind, descA+", "+descB)
}

func runLeg[T Status](ctx context.Context, leg Leg[T]) (o Outcome[T]) {
	defer func() {
		if r := recover(); r != nil {
			o = Failed[T](Recovered(r))
		}
	}()
	return Await(ctx, leg.Call)
}

// describeLeg renders one leg for a failure message and reports whether it succeeded.
func describeLeg[T Status](name string, o Outcome[T]) (string, bool) {
	if f := o.Failure(); f != nil {
		return fmt.Sprintf("%s request failed: %s", name, f.Message), false
	}
	status := o.Value().ResponseStatus()
	return fmt.Sprintf("%s response status is %s", name, status), status == StatusOK
}

func combineSafely[A, B, C any](a A, b B, combine func(A, B) C) (o Outcome[C]) {
	defer func() {
		if r := recover(); r != nil {
			o = Failed[C](Recovered(r))
		}
	}()
	return Success(combine(a, b))
}
