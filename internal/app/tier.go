package app

import (
	"github.com/tracechain/tracechain/internal/config"
	"github.com/tracechain/tracechain/internal/service"
	"github.com/tracechain/tracechain/internal/workload"
)

func workloadConfig(cfg *config.Config) service.WorkloadConfig {
	wc := service.WorkloadConfig{
		Service: cfg.ServiceName,
		Digest:  workload.Digest(cfg.HashDigest),
		Limits: service.WorkloadLimits{
			MaxAllocateMB: cfg.WorkloadMaxAllocateMB,
			MaxItems:      cfg.WorkloadMaxItems,
			MaxDelay:      cfg.WorkloadMaxDelay,
		},
	}
	switch cfg.Tier {
	case config.TierFront:
		wc.DisplayName, wc.SeedPrefix = "Service A", "ServiceA"
	case config.TierMiddle:
		wc.DisplayName, wc.SeedPrefix = "Service B", "ServiceB"
	default:
		wc.DisplayName, wc.SeedPrefix = "Service C", "ServiceC"
	}
	return wc
}

// forwardProfile describes the hop from a forwarding tier to the next one.
func forwardProfile(cfg *config.Config) service.ForwardProfile {
	p := service.ForwardProfile{
		Service:    cfg.ServiceName,
		BaseURL:    cfg.DownstreamURL,
		UserDelay:  cfg.UserForwardDelay(),
		OrderDelay: cfg.OrderForwardDelay(),
	}
	if cfg.Tier == config.TierMiddle {
		p.PathPrefix = "/api/data"
		p.NestField = "dataFromServiceC"
		p.Processed = true
	} else {
		p.PathPrefix = "/api"
		p.NestField = "data"
	}
	return p
}

func downstreamName(tier config.Tier) string {
	if tier == config.TierFront {
		return config.TierMiddle.DefaultServiceName()
	}
	return config.TierData.DefaultServiceName()
}
