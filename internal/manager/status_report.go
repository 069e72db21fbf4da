package manager

import (
	"time"

	"modelhost/pkg/types"
)

// Snapshot returns a read-only view of the manager state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Snapshot{State: m.state, Err: m.err}
	for _, id := range m.loadedIDs() {
		if m.instances[id].State == StateReady {
			s.Loaded = append(s.Loaded, id)
		}
	}
	return s
}

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now()
	resp := types.StatusResponse{
		State:          string(m.state),
		LastError:      m.err,
		UptimeSeconds:  int64(now.Sub(m.startTime) / time.Second),
		ServerTimeUnix: now.Unix(),
		LoadsTotal:     m.loadsTotal,
		UnloadsTotal:   m.unloadsTotal,
	}
	resp.Instances = make([]types.InstanceStatus, 0, len(m.instances))
	for _, id := range m.loadedIDs() {
		inst := m.instances[id]
		if inst.State == StateLoading {
			resp.WarmupsInProgress++
		}
		if inst.State == StateDraining {
			resp.DrainingCount++
		}
		resp.Instances = append(resp.Instances, types.InstanceStatus{
			ModelID:       inst.ID,
			Version:       inst.Version,
			Backend:       inst.Backend,
			State:         string(inst.State),
			LastUsed:      inst.LastUsed.Unix(),
			QueueLen:      len(inst.queueCh),
			Inflight:      len(inst.genCh),
			MaxQueueDepth: cap(inst.queueCh),
			Error:         inst.Err,
		})
	}
	return resp
}
