package chart

import (
	"errors"
	"fmt"
)

var ErrCanvasTaken = errors.New("canvas already holds a chart")

// Instance is a chart bound to one canvas.
type Instance struct {
	CanvasID string
	Config   Config
}

// Registry collects the charts of one rendered page, at most one per
// canvas. It is not shared between requests.
type Registry struct {
	instances map[string]*Instance
	order     []string
}

func NewRegistry() *Registry {
	return &Registry{instances: make(map[string]*Instance)}
}

// Create binds cfg to canvasID. A canvas can only be drawn on once per page.
func (r *Registry) Create(canvasID string, cfg Config) (*Instance, error) {
	if _, ok := r.instances[canvasID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrCanvasTaken, canvasID)
	}
	inst := &Instance{CanvasID: canvasID, Config: cfg}
	r.instances[canvasID] = inst
	r.order = append(r.order, canvasID)
	return inst, nil
}

// Instances lists the charts in the order they were created.
func (r *Registry) Instances() []*Instance {
	out := make([]*Instance, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.instances[id])
	}
	return out
}
