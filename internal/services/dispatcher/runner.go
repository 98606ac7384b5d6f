package dispatcher

import (
	"context"

	"github.com/denisAlshanov/tgrelay/internal/models"
	"github.com/denisAlshanov/tgrelay/internal/services/telegram"
	"github.com/denisAlshanov/tgrelay/internal/utils"
)

// MessageHandler handles a single incoming message.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg *models.IncomingMessage)
}

// Runner feeds updates to the handler one at a time, in arrival order.
type Runner struct {
	source  telegram.UpdateSource
	handler MessageHandler
}

func NewRunner(source telegram.UpdateSource, handler MessageHandler) *Runner {
	return &Runner{
		source:  source,
		handler: handler,
	}
}

// Run blocks until ctx is cancelled or the update channel is closed.
func (r *Runner) Run(ctx context.Context) error {
	updates := r.source.Updates(ctx)
	utils.LogInfo(ctx, "Update loop started")

	for {
		select {
		case <-ctx.Done():
			utils.LogInfo(ctx, "Update loop stopped")
			return ctx.Err()
		case msg, ok := <-updates:
			if !ok {
				utils.LogInfo(ctx, "Update channel closed")
				return nil
			}
			r.handler.HandleMessage(ctx, &msg)
		}
	}
}
