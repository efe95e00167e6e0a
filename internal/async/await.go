package async

import (
	"context"
	"sync"
)

// Callback receives the completion of a Call. Exactly one of the two
// functions is expected to be invoked, once.
type Callback[T any] struct {
	OnSuccess func(body *T)
	OnFailure func(err error)
}

// Call is a request that completes asynchronously through a Callback.
// Enqueue must not block waiting for the response.
type Call[T any] interface {
	Enqueue(ctx context.Context, cb Callback[T])
}

// CallFunc adapts an ordinary function to the Call interface.
type CallFunc[T any] func(ctx context.Context, cb Callback[T])

// Enqueue calls f(ctx, cb).
func (f CallFunc[T]) Enqueue(ctx context.Context, cb Callback[T]) {
	f(ctx, cb)
}

const emptyBodyMessage = "response body is null"

// Await enqueues call and blocks until it resolves or ctx is done.
//
// A nil body is reported as KindEmptyBody, a transport error as
// KindTransport. Only the first resolution counts; later callbacks are
// ignored. Await never retries.
func Await[T any](ctx context.Context, call Call[T]) Outcome[T] {
	resolved := make(chan Outcome[T], 1)
	var once sync.Once
	resolve := func(o Outcome[T]) {
		once.Do(func() { resolved <- o })
	}

	cb := Callback[T]{
		OnSuccess: func(body *T) {
			if body == nil {
				resolve(Fail[T](KindEmptyBody, emptyBodyMessage))
				return
			}
			resolve(Success(*body))
		},
		OnFailure: func(err error) {
			if err == nil {
				resolve(Fail[T](KindTransport, "request failed"))
				return
			}
			resolve(Failed[T](WrapFailure(KindTransport, err.Error(), err)))
		},
	}

	if f := enqueue(ctx, call, cb); f != nil {
		return Failed[T](f)
	}

	select {
	case o := <-resolved:
		return o
	case <-ctx.Done():
		// A resolution that raced the cancellation still wins.
		select {
		case o := <-resolved:
			return o
		default:
		}
		err := ctx.Err()
		return Failed[T](WrapFailure(KindTransport, err.Error(), err))
	}
}

func enqueue[T any](ctx context.Context, call Call[T], cb Callback[T]) (f *Failure) {
	defer func() {
		if r := recover(); r != nil {
			f = Recovered(r)
		}
	}()
	if call == nil {
		return NewFailure(KindUnexpected, "nil call")
	}
	call.Enqueue(ctx, cb)
	return nil
}
