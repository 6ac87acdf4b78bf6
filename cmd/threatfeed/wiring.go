package main

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"

	"github.com/ochairo/threatfeed/internal/config"
	orchestrators "github.com/ochairo/threatfeed/internal/domain-orchestrators"
	"github.com/ochairo/threatfeed/internal/domain-adapters/gateways"
	"github.com/ochairo/threatfeed/internal/domain/interfaces"
	svcinterfaces "github.com/ochairo/threatfeed/internal/domain/interfaces/services"
	"github.com/ochairo/threatfeed/internal/domain/services"
	"github.com/ochairo/threatfeed/internal/external-adapters/filesystem"
	"github.com/ochairo/threatfeed/internal/external-adapters/yaml"
)

// newFeedService wires the NVD and HIBP gateways behind the feed service
func newFeedService(cfg *config.Config, logger interfaces.Logger) svcinterfaces.FeedService {
	gateway := gateways.NewCompositeFeedGateway(gateways.FeedConfig{
		NVDURL:    cfg.NVD.URL,
		NVDAPIKey: cfg.NVD.APIKey,
		HIBPURL:   cfg.HIBP.URL,
		HTTP: gateways.HTTPOptions{
			Timeout:   cfg.Timeout,
			Retries:   cfg.Retries,
			UserAgent: cfg.UserAgent,
		},
	})

	opts := services.DefaultFeedOptions()
	opts.LookbackDays = cfg.NVD.LookbackDays
	opts.BatchSize = cfg.NVD.BatchSize
	opts.SkipUnscored = cfg.NVD.SkipUnscored
	opts.DescriptionLength = cfg.Render.DescriptionLength
	opts.MaxDataClasses = cfg.Render.MaxDataClasses

	return services.NewFeedService(gateway, opts, logger)
}

// newFormatter builds the section renderer from the render and marker settings
func newFormatter(cfg *config.Config) *services.Formatter {
	return services.NewFormatter(services.RenderOptions{
		Title:          cfg.Render.Title,
		IndicatorStyle: services.IndicatorStyle(cfg.Render.IndicatorStyle),
		StartMarker:    cfg.Markers.Start,
		EndMarker:      cfg.Markers.End,
	})
}

// newUpdateOrchestrator wires the full update pipeline, including the
// optional signer, archiver and notifier when they are configured
func newUpdateOrchestrator(ctx context.Context, cfg *config.Config, logger interfaces.Logger, dryRun bool) (*orchestrators.UpdateOrchestrator, error) {
	var opts []orchestrators.Option

	if cfg.Sign.Enabled() {
		signer, err := gateways.NewGPGSigner(cfg.Sign.KeyFile, []byte(os.Getenv(cfg.Sign.PassphraseEnv)))
		if err != nil {
			return nil, err
		}
		logger.Debug("signing enabled", interfaces.F("fingerprint", signer.Fingerprint()))
		opts = append(opts, orchestrators.WithSigner(signer))
	}

	if cfg.Archive.Enabled() {
		format, err := yaml.ParseFormat(cfg.Archive.Format)
		if err != nil {
			return nil, errors.Wrap(err, "archive")
		}
		client, err := gateways.NewS3Client(ctx, cfg.Archive.Region, cfg.Archive.Endpoint)
		if err != nil {
			return nil, err
		}
		opts = append(opts, orchestrators.WithArchiver(
			gateways.NewS3Archiver(client, cfg.Archive.Bucket, cfg.Archive.Prefix, format)))
	}

	if cfg.Slack.Enabled() {
		opts = append(opts, orchestrators.WithNotifier(
			gateways.NewSlackNotifier(cfg.Slack.WebhookURL, cfg.Slack.Channel, cfg.Timeout)))
	}

	return newPipeline(cfg, logger, dryRun, opts...), nil
}

// newPipeline wires the feeds, renderer, splicer and document repository.
// fetch and render use it without publishing options.
func newPipeline(cfg *config.Config, logger interfaces.Logger, dryRun bool, opts ...orchestrators.Option) *orchestrators.UpdateOrchestrator {
	return orchestrators.NewUpdateOrchestrator(
		newFeedService(cfg, logger),
		newFormatter(cfg),
		services.NewSplicer(cfg.Markers.Start, cfg.Markers.End),
		filesystem.NewDocumentRepository(afero.NewOsFs(), cfg.Readme),
		logger,
		orchestrators.UpdateOrchestratorConfig{
			Count:           cfg.Count,
			Strict:          cfg.Strict,
			DryRun:          dryRun,
			SignatureSuffix: cfg.Sign.Suffix,
			Digest:          gateways.SumBytes,
		},
		opts...,
	)
}
