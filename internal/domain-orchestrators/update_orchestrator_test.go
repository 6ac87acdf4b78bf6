package orchestrators

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/threatfeed/internal/domain/entities"
	"github.com/ochairo/threatfeed/internal/domain/interfaces"
	"github.com/ochairo/threatfeed/internal/domain/services"
)

// Mock implementations for testing
type mockFeedService struct {
	vulns     []entities.VulnerabilityRecord
	vulnErr   error
	breaches  []entities.BreachRecord
	breachErr error
	counts    []int
}

func (m *mockFeedService) FetchVulnerabilities(_ context.Context, count int) entities.FeedResult[entities.VulnerabilityRecord] {
	m.counts = append(m.counts, count)
	if m.vulnErr != nil {
		return entities.FeedResult[entities.VulnerabilityRecord]{Records: services.PlaceholderVulnerabilities(count), Err: m.vulnErr}
	}
	return entities.FeedResult[entities.VulnerabilityRecord]{Records: m.vulns}
}

func (m *mockFeedService) FetchBreaches(_ context.Context, count int) entities.FeedResult[entities.BreachRecord] {
	m.counts = append(m.counts, count)
	if m.breachErr != nil {
		return entities.FeedResult[entities.BreachRecord]{Records: services.PlaceholderBreaches(count), Err: m.breachErr}
	}
	return entities.FeedResult[entities.BreachRecord]{Records: m.breaches}
}

type mockDocumentRepository struct {
	content  string
	readErr  error
	writeErr error
	writes   []string
	sidecars map[string][]byte
}

func (m *mockDocumentRepository) Path() string { return "README.md" }

func (m *mockDocumentRepository) ReadDocument(_ context.Context) (string, error) {
	return m.content, m.readErr
}

func (m *mockDocumentRepository) WriteDocument(_ context.Context, content string) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes = append(m.writes, content)
	m.content = content
	return nil
}

func (m *mockDocumentRepository) WriteSidecar(_ context.Context, suffix string, data []byte) (string, error) {
	if m.sidecars == nil {
		m.sidecars = make(map[string][]byte)
	}
	m.sidecars[suffix] = data
	return m.Path() + suffix, nil
}

type mockSigner struct {
	err    error
	signed []byte
}

func (m *mockSigner) SignDetached(_ context.Context, content []byte) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.signed = content
	return []byte("-----BEGIN PGP SIGNATURE-----"), nil
}

type mockArchiver struct {
	err   error
	calls int
}

func (m *mockArchiver) ArchiveSnapshot(_ context.Context, snapshot *entities.Snapshot) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return "s3://bucket/" + snapshot.RunID + ".json", nil
}

type mockNotifier struct {
	err   error
	calls int
}

func (m *mockNotifier) NotifyUpdate(_ context.Context, _ *entities.Snapshot) error {
	m.calls++
	return m.err
}

type recordingLogger struct {
	warnings []string
}

func (l *recordingLogger) Debug(_ string, _ ...interfaces.Field) {}

func (l *recordingLogger) Info(_ string, _ ...interfaces.Field) {}

func (l *recordingLogger) Warn(msg string, _ ...interfaces.Field) {
	l.warnings = append(l.warnings, msg)
}

func (l *recordingLogger) Error(_ string, _ ...interfaces.Field) {}

var testNow = time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

const testDocument = "# Project\n\n<!-- SECURITY-START -->\nold table\n<!-- SECURITY-END -->\n\nFooter\n"

func score(v float64) *float64 { return &v }

func sampleFeeds() *mockFeedService {
	return &mockFeedService{
		vulns: []entities.VulnerabilityRecord{
			{ID: "CVE-2024-0001", Description: "Buffer overflow", Score: score(9.8), Severity: entities.SeverityCritical, PublishedDate: "2024-05-09"},
			{ID: "CVE-2024-0002", Description: "XSS", Score: score(5.4), Severity: entities.SeverityMedium, PublishedDate: "2024-05-08"},
		},
		breaches: []entities.BreachRecord{
			{Name: "Acme", PwnCount: 1200, AddedDate: "2024-05-01", DataClasses: []string{"Emails"}},
			{Name: "Globex", PwnCount: 50, AddedDate: "2024-04-20", DataClasses: []string{}},
		},
	}
}

func newTestOrchestrator(feeds *mockFeedService, docs *mockDocumentRepository, cfg UpdateOrchestratorConfig, opts ...Option) *UpdateOrchestrator {
	cfg.Count = 2
	cfg.Now = func() time.Time { return testNow }
	cfg.NewRunID = func() string { return "run-1" }
	return NewUpdateOrchestrator(
		feeds,
		services.NewFormatter(services.DefaultRenderOptions()),
		services.NewSplicer("", ""),
		docs,
		nil,
		cfg,
		opts...,
	)
}

// Test that a normal run replaces only the marker span and publishes
func TestUpdateOrchestrator_Update(t *testing.T) {
	feeds := sampleFeeds()
	docs := &mockDocumentRepository{content: testDocument}
	signer := &mockSigner{}
	archiver := &mockArchiver{}
	notifier := &mockNotifier{}

	o := newTestOrchestrator(feeds, docs, UpdateOrchestratorConfig{
		Digest: func([]byte) string { return "digest" },
	}, WithSigner(signer), WithArchiver(archiver), WithNotifier(notifier))

	result, err := o.Update(context.Background())

	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.True(t, result.Written)
	assert.Equal(t, []int{2, 2}, feeds.counts, "both feeds get the same count")
	require.Len(t, docs.writes, 1)

	written := docs.writes[0]
	assert.True(t, strings.HasPrefix(written, "# Project\n\n<!-- SECURITY-START -->"))
	assert.True(t, strings.HasSuffix(written, "<!-- SECURITY-END -->\n\nFooter\n"))
	assert.NotContains(t, written, "old table")
	assert.Contains(t, written, "CVE-2024-0001")
	assert.Contains(t, written, "Globex")

	assert.Equal(t, "run-1", result.Snapshot.RunID)
	assert.Equal(t, testNow, result.Snapshot.GeneratedAt)
	assert.Equal(t, "digest", result.Snapshot.SectionSHA256)
	assert.Equal(t, "README.md.asc", result.SignaturePath)
	assert.Equal(t, written, string(signer.signed), "the written document is signed")
	assert.Equal(t, "s3://bucket/run-1.json", result.ArchiveURI)
	assert.Equal(t, 1, notifier.calls)
}

// Test that a second run over the same data leaves the document unchanged
func TestUpdateOrchestrator_Idempotent(t *testing.T) {
	docs := &mockDocumentRepository{content: testDocument}
	notifier := &mockNotifier{}

	_, err := newTestOrchestrator(sampleFeeds(), docs, UpdateOrchestratorConfig{}).Update(context.Background())
	require.NoError(t, err)
	first := docs.content

	result, err := newTestOrchestrator(sampleFeeds(), docs, UpdateOrchestratorConfig{}, WithNotifier(notifier)).Update(context.Background())

	require.NoError(t, err)
	assert.False(t, result.Changed)
	assert.False(t, result.Written)
	assert.Equal(t, first, docs.content)
	assert.Len(t, docs.writes, 1)
	assert.Zero(t, notifier.calls, "nothing is published when nothing was written")
}

// Test that dry runs never write
func TestUpdateOrchestrator_DryRun(t *testing.T) {
	docs := &mockDocumentRepository{content: testDocument}
	signer := &mockSigner{}

	result, err := newTestOrchestrator(sampleFeeds(), docs, UpdateOrchestratorConfig{DryRun: true}, WithSigner(signer)).
		Update(context.Background())

	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.False(t, result.Written)
	assert.Empty(t, docs.writes)
	assert.Nil(t, signer.signed)
	assert.Contains(t, result.Section, "CVE-2024-0002")
}

// Test that missing markers abort without touching the document
func TestUpdateOrchestrator_MissingMarkers(t *testing.T) {
	docs := &mockDocumentRepository{content: "# Project\n\nno markers here\n"}

	_, err := newTestOrchestrator(sampleFeeds(), docs, UpdateOrchestratorConfig{}).Update(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, entities.ErrMarkersNotFound), "got %v", err)
	assert.Empty(t, docs.writes)
}

// Test that read and write failures are surfaced
func TestUpdateOrchestrator_DocumentErrors(t *testing.T) {
	t.Run("missing document", func(t *testing.T) {
		docs := &mockDocumentRepository{readErr: errors.Wrap(entities.ErrDocumentNotFound, "README.md")}
		_, err := newTestOrchestrator(sampleFeeds(), docs, UpdateOrchestratorConfig{}).Update(context.Background())
		assert.True(t, errors.Is(err, entities.ErrDocumentNotFound), "got %v", err)
	})

	t.Run("write failure", func(t *testing.T) {
		docs := &mockDocumentRepository{content: testDocument, writeErr: errors.New("disk full")}
		_, err := newTestOrchestrator(sampleFeeds(), docs, UpdateOrchestratorConfig{}).Update(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
	})
}

// Test that feed failures render placeholders unless strict mode is on
func TestUpdateOrchestrator_FeedFailure(t *testing.T) {
	feedErr := &entities.FeedError{Feed: entities.FeedNVD, Kind: entities.FeedErrorStatus, StatusCode: 503}

	t.Run("lenient", func(t *testing.T) {
		feeds := sampleFeeds()
		feeds.vulnErr = feedErr
		docs := &mockDocumentRepository{content: testDocument}

		result, err := newTestOrchestrator(feeds, docs, UpdateOrchestratorConfig{}).Update(context.Background())

		require.NoError(t, err)
		assert.True(t, result.Written)
		assert.Equal(t, feedErr.Error(), result.Snapshot.NVDError)
		assert.Empty(t, result.Snapshot.HIBPError)
		assert.Contains(t, docs.content, "**N/A**")
		assert.Contains(t, docs.content, "Acme")
	})

	t.Run("strict", func(t *testing.T) {
		feeds := sampleFeeds()
		feeds.breachErr = feedErr
		docs := &mockDocumentRepository{content: testDocument}

		_, err := newTestOrchestrator(feeds, docs, UpdateOrchestratorConfig{Strict: true}).Update(context.Background())

		require.Error(t, err)
		assert.True(t, errors.Is(err, entities.ErrFeedUnavailable), "got %v", err)
		assert.Empty(t, docs.writes)
	})
}

// Test that publishing failures are logged but do not fail the run
func TestUpdateOrchestrator_PublishFailuresAreNonFatal(t *testing.T) {
	docs := &mockDocumentRepository{content: testDocument}
	logger := &recordingLogger{}
	o := NewUpdateOrchestrator(
		sampleFeeds(),
		services.NewFormatter(services.DefaultRenderOptions()),
		services.NewSplicer("", ""),
		docs,
		logger,
		UpdateOrchestratorConfig{Count: 2},
		WithSigner(&mockSigner{err: errors.New("no key")}),
		WithArchiver(&mockArchiver{err: errors.New("access denied")}),
		WithNotifier(&mockNotifier{err: errors.New("webhook 500")}),
	)

	result, err := o.Update(context.Background())

	require.NoError(t, err)
	assert.True(t, result.Written)
	assert.Empty(t, result.SignaturePath)
	assert.Empty(t, result.ArchiveURI)
	assert.Equal(t, []string{"signing failed", "snapshot archive failed", "notification failed"}, logger.warnings)
	assert.NotEmpty(t, result.Snapshot.RunID, "a run ID is generated by default")
}

// Test that mismatched feed lengths are treated as a programming error
func TestUpdateOrchestrator_LengthMismatch(t *testing.T) {
	feeds := sampleFeeds()
	feeds.breaches = feeds.breaches[:1]

	_, err := newTestOrchestrator(feeds, &mockDocumentRepository{content: testDocument}, UpdateOrchestratorConfig{}).
		Collect(context.Background())

	require.Error(t, err)
	assert.True(t, errors.HasAssertionFailure(err))
}
