package kafka

import "context"

// Controller bounds the number of frames emitted but not yet acknowledged.
type Controller struct {
	tokens chan struct{}
}

func NewController(capacity int64) *Controller {
	if capacity <= 0 {
		capacity = 1
	}
	return &Controller{tokens: make(chan struct{}, capacity)}
}

func (c *Controller) Acquire(ctx context.Context) error {
	select {
	case c.tokens <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) TryAcquire() bool {
	select {
	case c.tokens <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release returns n tokens. Releasing more than was acquired is a no-op.
func (c *Controller) Release(n int) {
	for i := 0; i < n; i++ {
		select {
		case <-c.tokens:
		default:
			return
		}
	}
}

func (c *Controller) InFlight() int { return len(c.tokens) }
