package discord

import (
	"strings"
	"sync"

	"github.com/IsekaiTavern/TavernBotGo/pkg/logger"
)

// ComponentHandler routes component interactions (buttons, selects) by
// custom ID prefix. Each prefix is bound to a Command so the same checks
// as slash commands apply; only its flags and Run are used.
type ComponentHandler struct {
	mu       sync.RWMutex
	handlers map[string]*Command
}

// NewComponentHandler creates an empty ComponentHandler
func NewComponentHandler() *ComponentHandler {
	return &ComponentHandler{handlers: make(map[string]*Command)}
}

// Register binds cmd to every custom ID starting with prefix
func (h *ComponentHandler) Register(prefix string, cmd *Command) {
	h.mu.Lock()
	h.handlers[prefix] = cmd
	h.mu.Unlock()
	logger.Debug("Componente registrado: "+prefix, "ComponentHandler")
}

// Find returns the command with the longest prefix matching customID
func (h *ComponentHandler) Find(customID string) (*Command, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var (
		best    *Command
		bestLen = -1
	)
	for prefix, fn := range h.handlers {
		if strings.HasPrefix(customID, prefix) && len(prefix) > bestLen {
			best, bestLen = fn, len(prefix)
		}
	}
	return best, best != nil
}
