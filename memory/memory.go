// Package memory implements the bounded replay memory the trainer samples
// its batches from.
package memory

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zeu5/edgeracer/types"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"
)

var (
	ErrInvalidCapacity = errors.New("memory: capacity must be greater than zero")
	ErrBatchTooLarge   = errors.New("memory: batch larger than the stored transitions")
)

// ReplayMemory is a fixed capacity FIFO of transitions. Once full, every
// push evicts the oldest transition.
type ReplayMemory struct {
	mu    sync.Mutex
	items []types.Transition // ring buffer
	head  int                // index of the oldest transition
	size  int
	rand  *rand.Rand
}

func NewReplayMemory(capacity int, seed uint64) (*ReplayMemory, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &ReplayMemory{
		items: make([]types.Transition, capacity),
		rand:  rand.New(rand.NewSource(seed)),
	}, nil
}

func (m *ReplayMemory) Push(t types.Transition) {
	m.mu.Lock()
	defer m.mu.Unlock()

	capacity := len(m.items)
	if m.size == capacity {
		// overwrite the oldest and move the head forward
		m.items[m.head] = t
		m.head = (m.head + 1) % capacity
		return
	}
	m.items[(m.head+m.size)%capacity] = t
	m.size++
}

// Sample picks batchSize distinct transitions uniformly at random
func (m *ReplayMemory) Sample(batchSize int) ([]types.Transition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if batchSize < 0 || batchSize > m.size {
		return nil, fmt.Errorf("%w: requested %d, have %d", ErrBatchTooLarge, batchSize, m.size)
	}
	if batchSize == 0 {
		return []types.Transition{}, nil
	}

	indices := make([]int, batchSize)
	sampleuv.WithoutReplacement(indices, m.size, m.rand)

	batch := make([]types.Transition, batchSize)
	for i, idx := range indices {
		batch[i] = m.items[(m.head+idx)%len(m.items)]
	}
	return batch, nil
}

func (m *ReplayMemory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.items {
		m.items[i] = types.Transition{}
	}
	m.head = 0
	m.size = 0
}

func (m *ReplayMemory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.size
}

func (m *ReplayMemory) Capacity() int {
	return len(m.items)
}

// Items returns the stored transitions oldest first
func (m *ReplayMemory) Items() []types.Transition {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]types.Transition, m.size)
	for i := 0; i < m.size; i++ {
		out[i] = m.items[(m.head+i)%len(m.items)]
	}
	return out
}
