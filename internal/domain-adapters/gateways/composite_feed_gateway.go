package gateways

import (
	"context"

	"github.com/ochairo/threatfeed/internal/domain/entities"
	"github.com/ochairo/threatfeed/internal/domain/interfaces/gateways"
)

// compositeFeedGateway implements the ThreatFeedGateway interface by composing
// the individual feed gateways together
type compositeFeedGateway struct {
	vulnerabilities gateways.VulnerabilityFeed
	breaches        gateways.BreachFeed
}

// FeedConfig selects endpoints and HTTP behavior for NewCompositeFeedGateway
type FeedConfig struct {
	NVDURL    string
	NVDAPIKey string
	HIBPURL   string
	HTTP      HTTPOptions
}

// NewCompositeFeedGateway creates the NVD + HIBP gateway used in production
func NewCompositeFeedGateway(cfg FeedConfig) gateways.ThreatFeedGateway {
	return &compositeFeedGateway{
		vulnerabilities: NewNVDGateway(cfg.NVDURL, cfg.NVDAPIKey, cfg.HTTP),
		breaches:        NewHIBPGateway(cfg.HIBPURL, cfg.HTTP),
	}
}

// NewCompositeFeedGatewayWithDeps creates a composite gateway with custom dependencies
// This is useful for testing or when you want to inject specific implementations
func NewCompositeFeedGatewayWithDeps(vulns gateways.VulnerabilityFeed, breaches gateways.BreachFeed) gateways.ThreatFeedGateway {
	return &compositeFeedGateway{
		vulnerabilities: vulns,
		breaches:        breaches,
	}
}

// FetchVulnerabilities queries the vulnerability feed
func (c *compositeFeedGateway) FetchVulnerabilities(ctx context.Context, query gateways.VulnerabilityQuery) ([]entities.VulnerabilityRecord, error) {
	return c.vulnerabilities.FetchVulnerabilities(ctx, query)
}

// FetchBreaches queries the breach feed
func (c *compositeFeedGateway) FetchBreaches(ctx context.Context) ([]entities.BreachRecord, error) {
	return c.breaches.FetchBreaches(ctx)
}
