package gamehandlers

import (
	"github.com/ThreeDotsLabs/watermill/message"
)

// Handlers consumes match lifecycle messages.
type Handlers interface {
	HandleMatchCompleted(msg *message.Message) error
}
