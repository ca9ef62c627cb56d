package device

import (
	"context"
	"time"

	"h2oclear/api/utils"
)

// Connector pairs with a detector. The simulated one stands in until a real
// Bluetooth transport exists.
type Connector interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
}

// Simulated succeeds after Delay.
type Simulated struct {
	Delay time.Duration
}

func (s Simulated) Connect(ctx context.Context) error {
	return utils.Sleep(ctx, s.Delay)
}

func (s Simulated) Disconnect(ctx context.Context) error {
	return ctx.Err()
}
