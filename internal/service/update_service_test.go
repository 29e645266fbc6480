package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"factorsync/internal/classifier"
	"factorsync/internal/domain"
	"factorsync/internal/feed"
	"factorsync/internal/port"
	"factorsync/internal/service"
	"factorsync/mocks"
)

const (
	feedURL    = "https://example.test/Base_Carbone_V23.6.csv"
	feedHeader = "Identifiant de l'élément;Nom base français;Unité français;Total poste non décomposé;" +
		"Statut de l'élément;Localisation géographique;Catégorie de l'élément"

	rowArchived = "1;Gazole B7;kgCO2e/litre;3,10;Archivé;France continentale;Combustibles"
	rowGazole   = "2;Gazole routier;kgCO2e/litre;3,17;Valide générique;France continentale;Combustibles"
	rowNoRule   = "3;Charbon à coke;kgCO2e/kg;2,9;Valide générique;France continentale;Combustibles"
	rowGaz      = "4;Gaz naturel;kgCO2e/kWh PCI;0,227;Valide générique;France continentale;Combustibles"
)

type updateFixture struct {
	configRepo *mocks.MockFeedConfigRepo
	source     *mocks.MockFeedSource
	store      *mocks.MockFactorStore
	archive    *mocks.MockObjectStorage
	lock       *mocks.MockRunLock
}

func newUpdateFixture() *updateFixture {
	return &updateFixture{
		configRepo: new(mocks.MockFeedConfigRepo),
		source:     new(mocks.MockFeedSource),
		store:      new(mocks.MockFactorStore),
		archive:    new(mocks.MockObjectStorage),
		lock:       new(mocks.MockRunLock),
	}
}

func (f *updateFixture) service(settings service.UpdateSettings, withLock bool) service.UpdateService {
	var lock port.RunLock
	if withLock {
		lock = f.lock
	}
	return service.NewUpdateService(
		service.NewFeedConfigService(f.configRepo, testDefaults),
		f.source,
		classifier.New(classifier.DefaultRules()),
		f.store,
		f.archive,
		lock,
		settings,
		zap.NewNop(),
	)
}

func (f *updateFixture) withConfig(sectors ...string) {
	f.configRepo.On("Get", mock.Anything).Return(&domain.FeedConfiguration{
		ID:                    1,
		CSVURL:                feedURL,
		UpdateFrequencyMonths: 6,
		ActiveSectors:         domain.SectorList(sectors),
	}, nil)
}

func (f *updateFixture) withFeed(rows ...string) string {
	text := feedHeader + "\n" + strings.Join(rows, "\n") + "\n"
	f.source.On("Fetch", mock.Anything, feedURL).Return(&feed.Payload{URL: feedURL, Raw: []byte(text), Text: text}, nil)
	return text
}

func TestUpdateService_ThreeRowFeedCreatesOneFactor(t *testing.T) {
	f := newUpdateFixture()
	f.withConfig("vehicles")
	f.withFeed(rowArchived, rowGazole, rowNoRule)

	f.store.On("FindByKey", mock.Anything, "vehicles_gazole_routier", "vehicles").Return(nil, domain.ErrNotFound)
	f.store.On("Upsert", mock.Anything, mock.AnythingOfType("*domain.EmissionFactor")).Return(domain.UpsertCreated, nil)
	f.configRepo.On("MarkUpdated", mock.Anything, mock.AnythingOfType("time.Time"), "V23.6").Return(nil)

	report, err := f.service(service.UpdateSettings{}, false).Run(context.Background(), service.UpdateOptions{})

	require.NoError(t, err)
	require.Len(t, report.Sectors, 1)
	assert.Equal(t, service.SectorSummary{Sector: "vehicles", Found: 1, Created: 1}, report.Sectors[0])
	assert.Equal(t, 1, report.TotalCreated)
	assert.Equal(t, 0, report.TotalUpdated)
	assert.Equal(t, "V23.6", report.Version)
	assert.Equal(t, 3, report.Extract.Rows)
	assert.Equal(t, 2, report.Extract.Accepted)
	assert.Equal(t, 1, report.Extract.Skipped[feed.SkipArchived])
	f.store.AssertNumberOfCalls(t, "Upsert", 1)
	f.configRepo.AssertExpectations(t)
}

func TestUpdateService_NoActiveSectorsFailsBeforeDownload(t *testing.T) {
	f := newUpdateFixture()
	f.withConfig()

	_, err := f.service(service.UpdateSettings{}, false).Run(context.Background(), service.UpdateOptions{})

	assert.ErrorIs(t, err, domain.ErrNoActiveSectors)
	f.source.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestUpdateService_ExplicitSectorsOverrideConfig(t *testing.T) {
	f := newUpdateFixture()
	f.withConfig("buildings")
	f.withFeed(rowGazole, rowGaz)

	f.store.On("FindByKey", mock.Anything, "vehicles_gazole_routier", "vehicles").Return(nil, domain.ErrNotFound)
	f.store.On("Upsert", mock.Anything, mock.Anything).Return(domain.UpsertCreated, nil)
	f.configRepo.On("MarkUpdated", mock.Anything, mock.Anything, "V23.6").Return(nil)

	report, err := f.service(service.UpdateSettings{}, false).Run(context.Background(), service.UpdateOptions{
		Sectors: []string{"vehicles", "vehicles"},
	})

	require.NoError(t, err)
	require.Len(t, report.Sectors, 1)
	assert.Equal(t, "vehicles", report.Sectors[0].Sector)
	f.store.AssertNotCalled(t, "FindByKey", mock.Anything, "buildings_gaz_naturel", "buildings")
}

func TestUpdateService_DryRunLeavesNoTrace(t *testing.T) {
	f := newUpdateFixture()
	f.withConfig("vehicles")
	f.withFeed(rowGazole)

	f.store.On("FindByKey", mock.Anything, "vehicles_gazole_routier", "vehicles").Return(nil, domain.ErrNotFound)

	report, err := f.service(service.UpdateSettings{ArchiveEnabled: true, ArchivePrefix: "feeds"}, false).
		Run(context.Background(), service.UpdateOptions{DryRun: true})

	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.TotalCreated)
	assert.Empty(t, report.ArchiveLocation)
	f.store.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	f.archive.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.configRepo.AssertNotCalled(t, "MarkUpdated", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateService_DownloadFailureIsFatal(t *testing.T) {
	f := newUpdateFixture()
	f.withConfig("vehicles")
	f.source.On("Fetch", mock.Anything, feedURL).
		Return(nil, fmt.Errorf("%w: unexpected status 503 Service Unavailable", domain.ErrDownloadFailed))

	report, err := f.service(service.UpdateSettings{}, false).Run(context.Background(), service.UpdateOptions{})

	assert.Nil(t, report)
	assert.ErrorIs(t, err, domain.ErrDownloadFailed)
	f.store.AssertNotCalled(t, "FindByKey", mock.Anything, mock.Anything, mock.Anything)
	f.configRepo.AssertNotCalled(t, "MarkUpdated", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateService_SectorFailureDoesNotAbortOthers(t *testing.T) {
	f := newUpdateFixture()
	f.withConfig("vehicles", "buildings")
	f.withFeed(rowGazole, rowGaz)

	f.store.On("FindByKey", mock.Anything, "vehicles_gazole_routier", "vehicles").Return(nil, errors.New("deadlock detected"))
	f.store.On("FindByKey", mock.Anything, "buildings_gaz_naturel", "buildings").Return(nil, domain.ErrNotFound)
	f.store.On("Upsert", mock.Anything, mock.Anything).Return(domain.UpsertCreated, nil)

	report, err := f.service(service.UpdateSettings{}, false).Run(context.Background(), service.UpdateOptions{})

	assert.ErrorIs(t, err, domain.ErrReconcile)
	require.Len(t, report.Sectors, 2)
	assert.Error(t, report.Sectors[0].Err)
	assert.NoError(t, report.Sectors[1].Err)
	assert.Equal(t, 1, report.Sectors[1].Created)
	assert.Equal(t, 1, report.TotalCreated)
	f.configRepo.AssertNotCalled(t, "MarkUpdated", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateService_CancelBeforeReconcileHasNoSideEffects(t *testing.T) {
	f := newUpdateFixture()
	f.withConfig("vehicles")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	text := feedHeader + "\n" + rowGazole + "\n"
	f.source.On("Fetch", mock.Anything, feedURL).
		Run(func(mock.Arguments) { cancel() }).
		Return(&feed.Payload{URL: feedURL, Raw: []byte(text), Text: text}, nil)

	_, err := f.service(service.UpdateSettings{}, false).Run(ctx, service.UpdateOptions{})

	assert.ErrorIs(t, err, context.Canceled)
	f.store.AssertNotCalled(t, "FindByKey", mock.Anything, mock.Anything, mock.Anything)
	f.store.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	f.configRepo.AssertNotCalled(t, "MarkUpdated", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateService_CancelDuringReconcileKeepsPartialWrites(t *testing.T) {
	f := newUpdateFixture()
	f.withConfig("vehicles", "buildings")
	f.withFeed(rowGazole, rowGaz)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.store.On("FindByKey", mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	f.store.On("Upsert", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(domain.UpsertCreated, nil)

	report, err := f.service(service.UpdateSettings{}, false).Run(ctx, service.UpdateOptions{})

	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, report.Sectors, 2)
	assert.Equal(t, 1, report.Sectors[0].Created)
	assert.ErrorIs(t, report.Sectors[1].Err, context.Canceled)
	f.store.AssertNumberOfCalls(t, "Upsert", 1)
	f.configRepo.AssertNotCalled(t, "MarkUpdated", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateService_ArchivesRawPayload(t *testing.T) {
	f := newUpdateFixture()
	f.withConfig("vehicles")
	text := f.withFeed(rowNoRule)

	f.archive.On("Put", mock.Anything,
		mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "feeds/V23.6/") && strings.HasSuffix(key, ".csv")
		}),
		[]byte(text), mock.Anything).
		Return("https://bucket.test/feeds/V23.6/x.csv", nil)
	f.configRepo.On("MarkUpdated", mock.Anything, mock.Anything, "V23.6").Return(nil)

	report, err := f.service(service.UpdateSettings{ArchiveEnabled: true, ArchivePrefix: "feeds/"}, false).
		Run(context.Background(), service.UpdateOptions{})

	require.NoError(t, err)
	assert.Equal(t, "https://bucket.test/feeds/V23.6/x.csv", report.ArchiveLocation)
	f.archive.AssertExpectations(t)
}

func TestUpdateService_ArchiveFailureIsNotFatal(t *testing.T) {
	f := newUpdateFixture()
	f.withConfig("vehicles")
	f.withFeed(rowNoRule)

	f.archive.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("access denied"))
	f.configRepo.On("MarkUpdated", mock.Anything, mock.Anything, "V23.6").Return(nil)

	report, err := f.service(service.UpdateSettings{ArchiveEnabled: true, ArchivePrefix: "feeds/"}, false).
		Run(context.Background(), service.UpdateOptions{})

	require.NoError(t, err)
	assert.Empty(t, report.ArchiveLocation)
	f.configRepo.AssertExpectations(t)
}

func TestUpdateService_RunInProgress(t *testing.T) {
	f := newUpdateFixture()
	f.lock.On("TryAcquire", mock.Anything).Return(nil, domain.ErrRunInProgress)

	_, err := f.service(service.UpdateSettings{}, true).Run(context.Background(), service.UpdateOptions{})

	assert.ErrorIs(t, err, domain.ErrRunInProgress)
	f.configRepo.AssertNotCalled(t, "Get", mock.Anything)
	f.source.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestUpdateService_ReleasesLock(t *testing.T) {
	f := newUpdateFixture()
	released := false
	f.lock.On("TryAcquire", mock.Anything).Return(func() { released = true }, nil)
	f.withConfig()

	_, err := f.service(service.UpdateSettings{}, true).Run(context.Background(), service.UpdateOptions{})

	assert.ErrorIs(t, err, domain.ErrNoActiveSectors)
	assert.True(t, released)
}
