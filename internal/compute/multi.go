package compute

import (
	"context"
	"fmt"
	"sync"
)

// Combine merges several runtimes into one. Provider ids are reassigned
// sequentially in runtime order at each enumeration; ComputeLabels routes
// an id back to the runtime and local id it came from.
func Combine(runtimes ...Runtime) Runtime {
	return &multiRuntime{runtimes: runtimes}
}

type route struct {
	rt    Runtime
	local ID
}

type multiRuntime struct {
	runtimes []Runtime

	mu     sync.Mutex
	routes []route
}

func (m *multiRuntime) Enumerate(dst []Provider) int {
	if dst == nil {
		total := 0
		for _, rt := range m.runtimes {
			total += rt.Enumerate(nil)
		}
		return total
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = m.routes[:0]

	written := 0
	for _, rt := range m.runtimes {
		n := rt.Enumerate(nil)
		if n <= 0 {
			continue
		}
		local := make([]Provider, n)
		n = rt.Enumerate(local)
		for _, p := range local[:n] {
			if written == len(dst) {
				return written
			}
			m.routes = append(m.routes, route{rt: rt, local: p.ID})
			p.ID = ID(written)
			dst[written] = p
			written++
		}
	}
	return written
}

func (m *multiRuntime) ComputeLabels(ctx context.Context, id ID, job *Job) (Stats, error) {
	m.mu.Lock()
	if int(id) >= len(m.routes) {
		m.mu.Unlock()
		return Stats{}, fmt.Errorf("unknown provider id %d", id)
	}
	r := m.routes[id]
	m.mu.Unlock()
	return r.rt.ComputeLabels(ctx, r.local, job)
}
