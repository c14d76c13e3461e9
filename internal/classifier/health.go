package classifier

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// capabilityHealth logs an external capability outage once when it starts
// and once when it ends, instead of on every failed call.
type capabilityHealth struct {
	name     string
	degraded atomic.Bool
	logger   *zap.Logger
}

func newCapabilityHealth(name string, logger *zap.Logger) *capabilityHealth {
	return &capabilityHealth{name: name, logger: logger}
}

func (h *capabilityHealth) failed(err error) {
	if h.degraded.CompareAndSwap(false, true) {
		h.logger.Warn("Capability degraded, using fallback",
			zap.String("capability", h.name),
			zap.Error(err))
	}
}

func (h *capabilityHealth) succeeded() {
	if h.degraded.CompareAndSwap(true, false) {
		h.logger.Info("Capability recovered", zap.String("capability", h.name))
	}
}

func (h *capabilityHealth) isDegraded() bool {
	return h.degraded.Load()
}
