package confidence

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/yosuke-kuroki/jito-solana-sub003/shared/params"
	"github.com/yosuke-kuroki/jito-solana-sub003/validator/forks"
	"go.opencensus.io/trace"
)

// Request asks the service to rebuild the confidence view from one bank,
// against the total stake the submitter observed.
type Request struct {
	Bank        *forks.Bank
	TotalStaked uint64
}

// Service aggregates fork confidence off the replay path. Replay submits
// the bank it just voted on; the service folds every vote account into a
// fresh view and swaps it into the cache. Only the most recent request
// matters, so a busy service skips straight to the newest one.
type Service struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cache    *ForkConfidenceCache
	requests chan Request
}

// Config options for the confidence service.
type Config struct {
	// Cache receives the aggregated views. Nil means the service creates
	// its own, reachable through Cache.
	Cache *ForkConfidenceCache
	// QueueSize bounds pending requests. Zero means the configured default.
	QueueSize int
}

// NewService instantiates the confidence aggregation service.
func NewService(ctx context.Context, cfg *Config) *Service {
	ctx, cancel := context.WithCancel(ctx)
	cache := cfg.Cache
	if cache == nil {
		cache = NewForkConfidenceCache()
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = params.TowerConfig().ConfidenceQueueSize
	}
	return &Service{
		ctx:      ctx,
		cancel:   cancel,
		cache:    cache,
		requests: make(chan Request, queueSize),
	}
}

// Start the service's aggregation loop.
func (s *Service) Start() {
	go s.run()
}

// Stop the service's aggregation loop.
func (s *Service) Stop() error {
	defer s.cancel()
	return nil
}

// Status always returns nil; a wedged aggregation loop only delays the
// confidence view, it cannot corrupt it.
func (s *Service) Status() error {
	return nil
}

// Cache returns the cache the service writes aggregated views into.
func (s *Service) Cache() *ForkConfidenceCache {
	return s.cache
}

// Submit queues a bank for aggregation without blocking the caller. A full
// queue drops the request: the next round's view supersedes it anyway.
func (s *Service) Submit(req Request) bool {
	select {
	case s.requests <- req:
		return true
	default:
		confidenceRequestsDropped.Inc()
		return false
	}
}

func (s *Service) run() {
	for {
		select {
		case <-s.ctx.Done():
			log.Debug("Context closed, exiting routine")
			return
		case req := <-s.requests:
			// Skip ahead to the newest pending request.
		drain:
			for {
				select {
				case next := <-s.requests:
					confidenceRequestsSuperseded.Inc()
					req = next
				default:
					break drain
				}
			}
			s.aggregate(req)
		}
	}
}

func (s *Service) aggregate(req Request) {
	_, span := trace.StartSpan(s.ctx, "confidence.aggregate")
	defer span.End()

	ancestors := bankAncestors(req.Bank)
	confidence := AggregateConfidence(ancestors, req.Bank)
	s.cache.Set(confidence, req.TotalStaked)
	confidenceAggregations.Inc()
	confidenceTotalStake.Set(float64(req.TotalStaked))
	log.WithFields(logrus.Fields{
		"slot":  req.Bank.Slot(),
		"forks": len(confidence),
	}).Debug("Updated fork confidence")
}

// bankAncestors returns the bank's ancestor slots plus its own, sorted
// ascending, the shape the aggregation walk expects.
func bankAncestors(bank *forks.Bank) []uint64 {
	parents := bank.Parents()
	ancestors := make([]uint64, 0, len(parents)+1)
	ancestors = append(ancestors, bank.Slot())
	for _, parent := range parents {
		ancestors = append(ancestors, parent.Slot())
	}
	sort.Slice(ancestors, func(i, j int) bool { return ancestors[i] < ancestors[j] })
	return ancestors
}
