package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultCycleInterval = 1 * time.Minute
	cycleTimeout         = 5 * time.Minute
)

type CycleResult struct {
	ScarsDecayed          int  `json:"scars_decayed"`
	Detected              int  `json:"detected"`
	Metabolized           int  `json:"metabolized"`
	ConservationInjection bool `json:"conservation_injection"`
	Persisted             bool `json:"persisted"`
}

// RunCycle performs one metabolic round: decay scars, detect, metabolize,
// enforce conservation, and persist when stores are configured. Each step
// holds the lock on its own.
func (s *SubstrateService) RunCycle(ctx context.Context) (*CycleResult, error) {
	result := &CycleResult{}

	s.mu.Lock()
	result.ScarsDecayed = s.decayLocked()
	result.Detected = len(s.detectLocked())
	scars, err := s.metabolizeLocked()
	result.Metabolized = len(scars)
	s.mu.Unlock()
	if err != nil {
		return result, err
	}

	s.mu.Lock()
	injected, err := s.conserveLocked()
	s.mu.Unlock()
	if err != nil {
		return result, err
	}
	result.ConservationInjection = injected != nil

	s.mu.Lock()
	persist := s.stores.enabled()
	s.mu.Unlock()
	if persist {
		if _, err := s.Persist(ctx); err != nil {
			return result, err
		}
		result.Persisted = true
	}
	return result, nil
}

// CycleService drives RunCycle on a ticker.
type CycleService struct {
	svc    *SubstrateService
	logger *zap.Logger

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewCycleService(svc *SubstrateService, logger *zap.Logger) *CycleService {
	return &CycleService{
		svc:      svc,
		logger:   logger,
		interval: defaultCycleInterval,
		stopCh:   make(chan struct{}),
	}
}

func (c *CycleService) SetInterval(d time.Duration) {
	if d > 0 {
		c.interval = d
	}
}

func (c *CycleService) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		c.logger.Info("cycle worker started", zap.Duration("interval", c.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
				c.RunOnce(ctx)
				cancel()
			case <-c.stopCh:
				c.logger.Info("cycle worker stopped")
				return
			}
		}
	}()
}

func (c *CycleService) Stop() {
	close(c.stopCh)
	c.wg.Wait()
}

// RunOnce runs a single cycle and logs its outcome.
func (c *CycleService) RunOnce(ctx context.Context) *CycleResult {
	result, err := c.svc.RunCycle(ctx)
	if err != nil {
		c.logger.Error("cycle failed", zap.Error(err))
		return result
	}

	if result.Detected > 0 || result.Metabolized > 0 || result.ConservationInjection {
		c.logger.Info("cycle complete",
			zap.Int("scars_decayed", result.ScarsDecayed),
			zap.Int("detected", result.Detected),
			zap.Int("metabolized", result.Metabolized),
			zap.Bool("conservation_injection", result.ConservationInjection),
			zap.Bool("persisted", result.Persisted))
	}
	return result
}
