package resolver

import "context"

// bookAdded streams each successfully added book to this subscriber.  The
// stream starts at subscription time (no replay) and ends only when the
// connection's context is cancelled.
func (r *Root) bookAdded(ctx context.Context) <-chan Book {
	return r.books.Subscribe(ctx)
}
