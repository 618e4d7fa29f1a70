package clientenv

import "context"

// waitSettled returns the first value sent on done, or ctx.Err() when ctx ends first.
// release runs once a value has arrived, including a value that arrives after ctx ended.
func waitSettled[T any](ctx context.Context, done <-chan T, release func()) (T, error) {
	select {
	case v := <-done:
		release()
		return v, nil
	case <-ctx.Done():
		go func() {
			<-done
			release()
		}()
		var zero T
		return zero, ctx.Err()
	}
}
