package service

import "github.com/sylvaincormier/bittensor-async-api/internal/domain"

// NopResolverMetrics discards all resolver metrics.
type NopResolverMetrics struct{}

func (NopResolverMetrics) CacheHit()                    {}
func (NopResolverMetrics) CacheMiss()                   {}
func (NopResolverMetrics) LedgerResolved(domain.Source) {}
func (NopResolverMetrics) LedgerFailed()                {}

// NopTraderMetrics discards all trader metrics.
type NopTraderMetrics struct{}

func (NopTraderMetrics) JobFinished(domain.JobStatus, domain.StakeOp) {}
