// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/ochairo/threatfeed/internal/domain/entities"
	"github.com/ochairo/threatfeed/internal/domain/interfaces"
	"github.com/ochairo/threatfeed/internal/domain/interfaces/gateways"
	"github.com/ochairo/threatfeed/internal/domain/interfaces/repositories"
	"github.com/ochairo/threatfeed/internal/domain/interfaces/services"
)

// DefaultSignatureSuffix names the detached signature written next to the document
const DefaultSignatureSuffix = ".asc"

// UpdateOrchestratorConfig holds configuration for the orchestrator
type UpdateOrchestratorConfig struct {
	// Count is the number of records requested from each feed
	Count int
	// Strict aborts the run when any feed falls back to placeholders
	Strict bool
	// DryRun renders and splices but never writes
	DryRun          bool
	SignatureSuffix string
	// Digest fingerprints the rendered section; nil leaves SectionSHA256 empty
	Digest   func([]byte) string
	Now      func() time.Time
	NewRunID func() string
}

// UpdateOrchestrator coordinates fetch, render, splice and write-back
// of the threat feed section, plus the optional publishing steps.
type UpdateOrchestrator struct {
	feeds    services.FeedService
	renderer services.SectionRenderer
	splicer  services.Splicer
	docs     repositories.DocumentRepository
	signer   gateways.DocumentSigner
	archiver gateways.SnapshotArchiver
	notifier gateways.Notifier
	logger   interfaces.Logger
	config   UpdateOrchestratorConfig
}

// Option attaches an optional publishing step
type Option func(*UpdateOrchestrator)

// WithSigner signs the written document
func WithSigner(signer gateways.DocumentSigner) Option {
	return func(o *UpdateOrchestrator) { o.signer = signer }
}

// WithArchiver stores the run snapshot after a write
func WithArchiver(archiver gateways.SnapshotArchiver) Option {
	return func(o *UpdateOrchestrator) { o.archiver = archiver }
}

// WithNotifier announces a write
func WithNotifier(notifier gateways.Notifier) Option {
	return func(o *UpdateOrchestrator) { o.notifier = notifier }
}

// NewUpdateOrchestrator creates a new update orchestrator
func NewUpdateOrchestrator(
	feeds services.FeedService,
	renderer services.SectionRenderer,
	splicer services.Splicer,
	docs repositories.DocumentRepository,
	logger interfaces.Logger,
	config UpdateOrchestratorConfig,
	opts ...Option,
) *UpdateOrchestrator {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	if config.Count <= 0 {
		config.Count = 5
	}
	if config.SignatureSuffix == "" {
		config.SignatureSuffix = DefaultSignatureSuffix
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.NewRunID == nil {
		config.NewRunID = uuid.NewString
	}

	o := &UpdateOrchestrator{
		feeds:    feeds,
		renderer: renderer,
		splicer:  splicer,
		docs:     docs,
		logger:   logger,
		config:   config,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// UpdateResult contains the result of an update run
type UpdateResult struct {
	Snapshot      *entities.Snapshot
	Section       string
	Changed       bool
	Written       bool
	SignaturePath string
	ArchiveURI    string
	Duration      time.Duration
}

// Collect fetches both feeds with the same count and builds a snapshot.
// Feed failures are recorded in the snapshot; in strict mode they abort.
func (o *UpdateOrchestrator) Collect(ctx context.Context) (*entities.Snapshot, error) {
	vulns := o.feeds.FetchVulnerabilities(ctx, o.config.Count)
	o.logFeed(entities.FeedNVD, len(vulns.Records), vulns.Err)

	breaches := o.feeds.FetchBreaches(ctx, o.config.Count)
	o.logFeed(entities.FeedHIBP, len(breaches.Records), breaches.Err)

	if len(vulns.Records) != len(breaches.Records) {
		return nil, errors.AssertionFailedf("feed lengths differ: %d CVEs, %d breaches",
			len(vulns.Records), len(breaches.Records))
	}

	if o.config.Strict {
		if err := errors.CombineErrors(vulns.Err, breaches.Err); err != nil {
			return nil, errors.Mark(errors.Wrap(err, "strict mode"), entities.ErrFeedUnavailable)
		}
	}

	snapshot := &entities.Snapshot{
		RunID:           o.config.NewRunID(),
		GeneratedAt:     o.config.Now().UTC(),
		Vulnerabilities: vulns.Records,
		Breaches:        breaches.Records,
	}
	if vulns.Err != nil {
		snapshot.NVDError = vulns.Err.Error()
	}
	if breaches.Err != nil {
		snapshot.HIBPError = breaches.Err.Error()
	}
	return snapshot, nil
}

// Render produces the marker-wrapped section for a snapshot and records its digest
func (o *UpdateOrchestrator) Render(snapshot *entities.Snapshot) string {
	section := o.renderer.RenderSection(snapshot.Vulnerabilities, snapshot.Breaches, snapshot.GeneratedAt)
	if o.config.Digest != nil {
		snapshot.SectionSHA256 = o.config.Digest([]byte(section))
	}
	return section
}

// Update runs the full pipeline. Missing documents and markers are fatal and
// leave the file untouched; publishing failures are logged and ignored.
func (o *UpdateOrchestrator) Update(ctx context.Context) (*UpdateResult, error) {
	startTime := time.Now()

	// Step 1: Fetch
	snapshot, err := o.Collect(ctx)
	if err != nil {
		return nil, err
	}
	result := &UpdateResult{Snapshot: snapshot}

	// Step 2: Render
	result.Section = o.Render(snapshot)

	// Step 3: Read and splice
	current, err := o.docs.ReadDocument(ctx)
	if err != nil {
		return nil, err
	}
	updated, err := o.splicer.Splice(current, result.Section)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot update %s", o.docs.Path())
	}
	result.Changed = updated != current

	// Step 4: Write
	switch {
	case o.config.DryRun:
		o.logger.Info("dry run, document not written",
			interfaces.F("path", o.docs.Path()),
			interfaces.F("changed", result.Changed))
	case !result.Changed:
		o.logger.Info("document already up to date", interfaces.F("path", o.docs.Path()))
	default:
		if err := o.docs.WriteDocument(ctx, updated); err != nil {
			return nil, errors.Wrapf(err, "failed to write %s", o.docs.Path())
		}
		result.Written = true
		o.logger.Info("document updated",
			interfaces.F("path", o.docs.Path()),
			interfaces.F("run_id", snapshot.RunID))

		// Step 5: Publish
		o.publish(ctx, result, updated)
	}

	result.Duration = time.Since(startTime)
	return result, nil
}

// publish runs the optional post-write steps
func (o *UpdateOrchestrator) publish(ctx context.Context, result *UpdateResult, document string) {
	if o.signer != nil {
		path, err := o.sign(ctx, document)
		if err != nil {
			o.logger.Warn("signing failed", interfaces.Err(err))
		} else {
			result.SignaturePath = path
			o.logger.Info("signature written", interfaces.F("path", path))
		}
	}

	if o.archiver != nil {
		uri, err := o.archiver.ArchiveSnapshot(ctx, result.Snapshot)
		if err != nil {
			o.logger.Warn("snapshot archive failed", interfaces.Err(err))
		} else {
			result.ArchiveURI = uri
			o.logger.Info("snapshot archived", interfaces.F("uri", uri))
		}
	}

	if o.notifier != nil {
		if err := o.notifier.NotifyUpdate(ctx, result.Snapshot); err != nil {
			o.logger.Warn("notification failed", interfaces.Err(err))
		}
	}
}

func (o *UpdateOrchestrator) sign(ctx context.Context, document string) (string, error) {
	sig, err := o.signer.SignDetached(ctx, []byte(document))
	if err != nil {
		return "", err
	}
	return o.docs.WriteSidecar(ctx, o.config.SignatureSuffix, sig)
}

func (o *UpdateOrchestrator) logFeed(feed string, count int, err error) {
	if err != nil {
		o.logger.Warn("feed unavailable, using placeholders",
			interfaces.F("feed", feed),
			interfaces.Err(err))
		return
	}
	o.logger.Debug("feed fetched", interfaces.F("feed", feed), interfaces.F("records", count))
}
