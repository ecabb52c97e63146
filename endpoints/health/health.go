package health

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

type HealthService interface {
	ServiceName() string
	Ok() (bool, string)
}

type Status struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message"`
}

type HealthServiceRegister struct {
	services []HealthService
	mu       sync.RWMutex
}

func NewHealthServiceRegister() *HealthServiceRegister {
	return &HealthServiceRegister{
		services: []HealthService{},
	}
}

func (hr *HealthServiceRegister) Register(s ...HealthService) {
	hr.mu.Lock()
	defer hr.mu.Unlock()
	hr.services = append(hr.services, s...)
}

// CheckAll checks every service concurrently.
func (hr *HealthServiceRegister) CheckAll() map[string]Status {
	hr.mu.RLock()
	services := append([]HealthService(nil), hr.services...)
	hr.mu.RUnlock()

	statuses := make([]Status, len(services))
	var g errgroup.Group
	for i, service := range services {
		g.Go(func() error {
			ok, msg := service.Ok()
			statuses[i] = Status{Healthy: ok, Message: msg}
			return nil
		})
	}
	_ = g.Wait()

	results := make(map[string]Status, len(services))
	for i, service := range services {
		results[service.ServiceName()] = statuses[i]
	}
	return results
}

// Report returns the per-service statuses and whether all of them are healthy.
func (hr *HealthServiceRegister) Report() (bool, map[string]Status) {
	results := hr.CheckAll()
	for _, s := range results {
		if !s.Healthy {
			return false, results
		}
	}
	return true, results
}
