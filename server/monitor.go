// Package server exposes the progress of a training run over HTTP. It is
// read only: nothing it receives reaches the trainer.
package server

import (
	"sync"
	"time"

	"github.com/zeu5/edgeracer/dqn"
	"github.com/zeu5/edgeracer/racing"
)

// ExperimentStatus is the latest known state of one experiment
type ExperimentStatus struct {
	Name     string              `json:"name"`
	Run      int                 `json:"run"`
	Episodes int                 `json:"episodes"`
	Last     *dqn.EpisodeSummary `json:"last,omitempty"`
	Pose     *racing.Pose        `json:"pose,omitempty"`
	Updated  time.Time           `json:"updated"`
}

// Monitor collects the poses and the episode summaries reported by the
// training hooks. It is safe for concurrent use.
type Monitor struct {
	lock        *sync.Mutex
	started     time.Time
	order       []string
	experiments map[string]*ExperimentStatus
	rewards     map[string][]float64
	maxRewards  int
}

// NewMonitor keeps at most maxRewards rewards per experiment, all of them when zero
func NewMonitor(maxRewards int) *Monitor {
	return &Monitor{
		lock:        new(sync.Mutex),
		started:     time.Now(),
		order:       make([]string, 0),
		experiments: make(map[string]*ExperimentStatus),
		rewards:     make(map[string][]float64),
		maxRewards:  maxRewards,
	}
}

func (m *Monitor) status(name string) *ExperimentStatus {
	s, ok := m.experiments[name]
	if !ok {
		s = &ExperimentStatus{Name: name}
		m.experiments[name] = s
		m.order = append(m.order, name)
		m.rewards[name] = make([]float64, 0)
	}
	return s
}

// ObserveFrame records the pose of the car of an experiment
func (m *Monitor) ObserveFrame(name string, pose racing.Pose) {
	m.lock.Lock()
	defer m.lock.Unlock()
	s := m.status(name)
	p := pose
	s.Pose = &p
	s.Updated = time.Now()
}

// ObserveEpisode records the summary of a finished episode. A new run of an
// experiment drops the rewards of the previous one.
func (m *Monitor) ObserveEpisode(name string, run int, summary dqn.EpisodeSummary) {
	m.lock.Lock()
	defer m.lock.Unlock()
	s := m.status(name)
	if s.Run != run || s.Last == nil {
		m.rewards[name] = m.rewards[name][:0]
		s.Episodes = 0
	}
	s.Run = run
	s.Episodes++
	last := summary
	s.Last = &last
	s.Updated = time.Now()

	rewards := append(m.rewards[name], summary.Reward)
	if m.maxRewards > 0 && len(rewards) > m.maxRewards {
		rewards = rewards[len(rewards)-m.maxRewards:]
	}
	m.rewards[name] = rewards
}

// Statuses returns a copy of every experiment status in the order they were first seen
func (m *Monitor) Statuses() []ExperimentStatus {
	m.lock.Lock()
	defer m.lock.Unlock()
	out := make([]ExperimentStatus, 0, len(m.order))
	for _, name := range m.order {
		s := *m.experiments[name]
		if s.Last != nil {
			last := *s.Last
			s.Last = &last
		}
		if s.Pose != nil {
			pose := *s.Pose
			s.Pose = &pose
		}
		out = append(out, s)
	}
	return out
}

func (m *Monitor) Pose(name string) (racing.Pose, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	s, ok := m.experiments[name]
	if !ok || s.Pose == nil {
		return racing.Pose{}, false
	}
	return *s.Pose, true
}

func (m *Monitor) Rewards(name string) ([]float64, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	rewards, ok := m.rewards[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(rewards))
	copy(out, rewards)
	return out, true
}

func (m *Monitor) Uptime() time.Duration {
	return time.Since(m.started)
}
