package usecase

import (
	"fmt"
	"sync/atomic"

	"RiskPulse/internal/domain/models"
	"RiskPulse/internal/services/aggregation"
)

// EngineHolder gives request paths access to the engine. Until an engine is
// installed, or when building it failed, Get returns models.ErrEngineUnavailable.
type EngineHolder struct {
	engine atomic.Pointer[aggregation.Engine]
	cause  atomic.Pointer[error]
}

func NewEngineHolder() *EngineHolder { return &EngineHolder{} }

// NewEngineHolderFromConfig builds the engine from cfg. A configuration error
// is kept as the unavailability cause instead of being returned.
func NewEngineHolderFromConfig(cfg aggregation.Config, opts ...aggregation.Option) *EngineHolder {
	h := NewEngineHolder()
	e, err := aggregation.New(cfg, opts...)
	if err != nil {
		h.Fail(err)
		return h
	}
	h.Install(e)
	return h
}

// Fail records why no engine could be built.
func (h *EngineHolder) Fail(cause error) {
	if cause != nil {
		h.cause.Store(&cause)
	}
}

// Install swaps in e.
func (h *EngineHolder) Install(e *aggregation.Engine) {
	h.engine.Store(e)
	if e != nil {
		h.cause.Store(nil)
	}
}

// Cause is the error that kept the engine from being built, if any.
func (h *EngineHolder) Cause() error {
	if p := h.cause.Load(); p != nil {
		return *p
	}
	return nil
}

func (h *EngineHolder) Get() (*aggregation.Engine, error) {
	if e := h.engine.Load(); e != nil {
		return e, nil
	}
	if cause := h.Cause(); cause != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEngineUnavailable, cause)
	}
	return nil, models.ErrEngineUnavailable
}
