package dispatcher

import (
	"context"
	"errors"

	"github.com/garyjia/groupware-approval/internal/domain/event"
)

// ErrClosed is returned once the dispatcher has been closed
var ErrClosed = errors.New("dispatcher is closed")

// Handler processes domain events
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo contains handler metadata for debugging
type HandlerInfo struct {
	Name        string
	EventType   event.Type
	Handler     Handler
	Description string
}
