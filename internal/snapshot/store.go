// Package snapshot holds the one published playlist and the last cycle's
// report. Both are replaced as whole values, so readers never see a
// partially updated playlist.
package snapshot

import (
	"sync/atomic"

	"github.com/user/livecast-service/internal/entity"
)

type Store struct {
	current    atomic.Pointer[entity.PlaylistSnapshot]
	lastReport atomic.Pointer[entity.CycleReport]
}

func NewStore() *Store {
	return &Store{}
}

// Publish replaces the current snapshot. The caller must not modify s
// afterwards.
func (s *Store) Publish(snap *entity.PlaylistSnapshot) {
	if snap == nil {
		return
	}
	s.current.Store(snap)
}

// Current returns the published snapshot, or false before the first one.
func (s *Store) Current() (*entity.PlaylistSnapshot, bool) {
	snap := s.current.Load()
	return snap, snap != nil
}

// RecordCycle stores the report of the most recent cycle.
func (s *Store) RecordCycle(r entity.CycleReport) {
	s.lastReport.Store(&r)
}

// LastCycle returns the most recent cycle report, if any.
func (s *Store) LastCycle() (entity.CycleReport, bool) {
	r := s.lastReport.Load()
	if r == nil {
		return entity.CycleReport{}, false
	}
	return *r, true
}

// Health is degraded when nothing is published yet or the last cycle lost
// any channel.
func (s *Store) Health() entity.Health {
	h := entity.Health{Status: entity.HealthOK}

	snap, ok := s.Current()
	if ok {
		at := snap.GeneratedAt
		h.LastSuccessfulCycle = &at
		h.SuccessCount = snap.SuccessCount
		h.FailureCount = snap.FailureCount
	} else {
		h.Status = entity.HealthDegraded
	}

	if r, ok := s.LastCycle(); ok {
		at := r.FinishedAt
		h.LastCycleAt = &at
		h.SuccessCount = r.SuccessCount
		h.FailureCount = r.FailureCount
	}
	if h.FailureCount > 0 {
		h.Status = entity.HealthDegraded
	}
	return h
}
