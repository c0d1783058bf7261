package app

import (
	"github.com/nfrund/tafep-voice/internal/module"
	"github.com/nfrund/tafep-voice/internal/modules/assistant"
)

// NewModules returns every active module in boot order.
func NewModules() []module.Module {
	return []module.Module{
		assistant.New(),
	}
}
