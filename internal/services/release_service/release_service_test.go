package releaseservice

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"appdist/internal/db"
	"appdist/internal/models"
	"appdist/internal/parser"
	"appdist/internal/storage"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubExtractor struct {
	meta parser.PackageMetadata
	err  error
}

func (s stubExtractor) Extract(string) (*parser.PackageMetadata, error) {
	if s.err != nil {
		return nil, s.err
	}
	m := s.meta
	return &m, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Trigger(event string, _ *models.Channel, _ *models.Release) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(10000)"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	return gdb
}

func newTestService(t *testing.T, gdb *gorm.DB, extractor parser.Extractor, notifier Notifier) *ReleaseService {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)
	return NewReleaseService(gdb, extractor, store, notifier, nil)
}

func writeUpload(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "build.ipa")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func seedUser(t *testing.T, gdb *gorm.DB) *models.User {
	t.Helper()
	user := models.User{Username: "dev", Email: "dev@example.com", PasswordHash: "x"}
	require.NoError(t, gdb.Create(&user).Error)
	return &user
}

func seedChannel(t *testing.T, gdb *gorm.DB, key, bundleID string) *models.Channel {
	t.Helper()
	app := models.App{Name: "demo"}
	require.NoError(t, gdb.Create(&app).Error)
	scheme := models.Scheme{AppID: app.ID, Name: "production variant"}
	require.NoError(t, gdb.Create(&scheme).Error)
	channel := models.Channel{
		SchemeID:   scheme.ID,
		Name:       "iOS",
		Slug:       "demo-" + key,
		Key:        key,
		DeviceType: models.DeviceTypeIOS,
		BundleID:   bundleID,
	}
	require.NoError(t, gdb.Create(&channel).Error)
	return &channel
}

func iosMeta(bundleID string) parser.PackageMetadata {
	return parser.PackageMetadata{
		Name:           "Demo",
		BundleID:       bundleID,
		ReleaseVersion: "1.2.0",
		BuildVersion:   "42",
		DeviceType:     models.DeviceTypeIOS,
		ReleaseType:    parser.ReleaseTypeRelease,
	}
}

func TestIngestSequentialVersionsStrictlyIncrease(t *testing.T) {
	gdb := newTestDB(t)
	channel := seedChannel(t, gdb, "key1", "")
	svc := newTestService(t, gdb, stubExtractor{meta: iosMeta("com.demo.app")}, nil)
	upload := writeUpload(t, "binary-1")

	first, err := svc.Ingest(IngestParams{ChannelKey: channel.Key, FileName: "demo.ipa", File: upload})
	require.NoError(t, err)
	second, err := svc.Ingest(IngestParams{ChannelKey: channel.Key, FileName: "demo.ipa", File: upload})
	require.NoError(t, err)

	assert.Equal(t, 1, first.Version)
	assert.Greater(t, second.Version, first.Version)
}

func TestIngestConcurrentUploadsGetDistinctVersions(t *testing.T) {
	const uploads = 8

	gdb := newTestDB(t)
	channel := seedChannel(t, gdb, "key1", "")
	svc := newTestService(t, gdb, stubExtractor{meta: iosMeta("com.demo.app")}, nil)
	upload := writeUpload(t, "binary-1")

	var wg sync.WaitGroup
	errs := make([]error, uploads)
	for i := 0; i < uploads; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Ingest(IngestParams{ChannelKey: channel.Key, FileName: "demo.ipa", File: upload})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "upload %d", i)
	}

	var versions []int
	require.NoError(t, gdb.Model(&models.Release{}).
		Where("channel_id = ?", channel.ID).
		Order("version").
		Pluck("version", &versions).Error)
	require.Len(t, versions, uploads)

	seen := make(map[int]bool, uploads)
	for _, v := range versions {
		assert.False(t, seen[v], "duplicate version %d", v)
		seen[v] = true
	}
}

func TestIngestBundleMismatchPersistsNothing(t *testing.T) {
	gdb := newTestDB(t)
	channel := seedChannel(t, gdb, "key1", "com.demo.app")
	svc := newTestService(t, gdb, stubExtractor{meta: iosMeta("com.other.app")}, nil)
	upload := writeUpload(t, "binary-1")

	_, err := svc.Ingest(IngestParams{ChannelKey: channel.Key, FileName: "demo.ipa", File: upload})

	var mismatch *BundleMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "com.demo.app", mismatch.Expected)
	assert.Equal(t, "com.other.app", mismatch.Actual)

	// No release row, and the next valid upload still gets version 1.
	var count int64
	require.NoError(t, gdb.Model(&models.Release{}).Where("channel_id = ?", channel.ID).Count(&count).Error)
	assert.Zero(t, count)

	okSvc := newTestService(t, gdb, stubExtractor{meta: iosMeta("com.demo.app")}, nil)
	release, err := okSvc.Ingest(IngestParams{ChannelKey: channel.Key, FileName: "demo.ipa", File: upload})
	require.NoError(t, err)
	assert.Equal(t, 1, release.Version)
}

func TestIngestExplicitKeyNeverDuplicatesIdentity(t *testing.T) {
	gdb := newTestDB(t)
	channel := seedChannel(t, gdb, "key1", "")
	svc := newTestService(t, gdb, stubExtractor{meta: iosMeta("com.demo.app")}, nil)
	upload := writeUpload(t, "binary-1")

	for i := 0; i < 3; i++ {
		_, err := svc.Ingest(IngestParams{ChannelKey: channel.Key, FileName: "demo.ipa", File: upload})
		require.NoError(t, err)
	}

	var apps, schemes, channels int64
	require.NoError(t, gdb.Model(&models.App{}).Count(&apps).Error)
	require.NoError(t, gdb.Model(&models.Scheme{}).Count(&schemes).Error)
	require.NoError(t, gdb.Model(&models.Channel{}).Count(&channels).Error)
	assert.EqualValues(t, 1, apps)
	assert.EqualValues(t, 1, schemes)
	assert.EqualValues(t, 1, channels)
}

func TestIngestCreatePathBuildsIdentityOnce(t *testing.T) {
	gdb := newTestDB(t)
	user := seedUser(t, gdb)
	svc := newTestService(t, gdb, stubExtractor{meta: iosMeta("com.demo.app")}, nil)
	upload := writeUpload(t, "binary-1")

	first, err := svc.Ingest(IngestParams{UserID: user.ID, FileName: "demo.ipa", File: upload})
	require.NoError(t, err)
	second, err := svc.Ingest(IngestParams{UserID: user.ID, FileName: "demo.ipa", File: upload})
	require.NoError(t, err)

	assert.Equal(t, first.ChannelID, second.ChannelID)

	var scheme models.Scheme
	require.NoError(t, gdb.First(&scheme).Error)
	assert.Equal(t, "production variant", scheme.Name)

	var channels int64
	require.NoError(t, gdb.Model(&models.Channel{}).Count(&channels).Error)
	assert.EqualValues(t, 1, channels)
}

func TestIngestCreatePathWithoutOwnerFails(t *testing.T) {
	gdb := newTestDB(t)
	svc := newTestService(t, gdb, stubExtractor{meta: iosMeta("com.demo.app")}, nil)
	upload := writeUpload(t, "binary-1")

	_, err := svc.Ingest(IngestParams{FileName: "demo.ipa", File: upload})
	require.ErrorIs(t, err, ErrOwnerRequired)
}

func TestIngestAdHocRegistersDistinctDevices(t *testing.T) {
	gdb := newTestDB(t)
	channel := seedChannel(t, gdb, "key1", "")
	meta := iosMeta("com.demo.app")
	meta.ReleaseType = parser.ReleaseTypeAdHoc
	meta.Devices = []string{"UDID1", "UDID2", "UDID1"}
	svc := newTestService(t, gdb, stubExtractor{meta: meta}, nil)
	upload := writeUpload(t, "binary-1")

	release, err := svc.Ingest(IngestParams{ChannelKey: channel.Key, FileName: "demo.ipa", File: upload})
	require.NoError(t, err)
	assert.Equal(t, 1, release.Version)

	var got models.Release
	require.NoError(t, gdb.Preload("Devices").First(&got, release.ID).Error)
	require.Len(t, got.Devices, 2)

	udids := []string{got.Devices[0].UDID, got.Devices[1].UDID}
	assert.ElementsMatch(t, []string{"UDID1", "UDID2"}, udids)

	// A second upload reuses the existing device rows.
	_, err = svc.Ingest(IngestParams{ChannelKey: channel.Key, FileName: "demo.ipa", File: upload})
	require.NoError(t, err)
	var devices int64
	require.NoError(t, gdb.Model(&models.Device{}).Count(&devices).Error)
	assert.EqualValues(t, 2, devices)
}

func TestIngestTriggersUploadWebhookAfterCommit(t *testing.T) {
	gdb := newTestDB(t)
	channel := seedChannel(t, gdb, "key1", "")
	notifier := &recordingNotifier{}
	svc := newTestService(t, gdb, stubExtractor{meta: iosMeta("com.demo.app")}, notifier)
	upload := writeUpload(t, "binary-1")

	_, err := svc.Ingest(IngestParams{ChannelKey: channel.Key, FileName: "demo.ipa", File: upload})
	require.NoError(t, err)
	assert.Equal(t, []string{"upload"}, notifier.events)

	// A rejected upload never reaches the notifier.
	badSvc := newTestService(t, gdb, stubExtractor{err: parser.ErrUnsupportedFileType()}, notifier)
	_, err = badSvc.Ingest(IngestParams{ChannelKey: channel.Key, FileName: "demo.txt", File: upload})
	require.Error(t, err)
	assert.Equal(t, []string{"upload"}, notifier.events)
}

func TestIngestNormalizesFieldsIntoRelease(t *testing.T) {
	gdb := newTestDB(t)
	channel := seedChannel(t, gdb, "key1", "")
	svc := newTestService(t, gdb, stubExtractor{meta: iosMeta("com.demo.app")}, nil)
	upload := writeUpload(t, "binary-1")

	release, err := svc.Ingest(IngestParams{
		ChannelKey: channel.Key,
		Changelog:  RawField{Text: "fix crash\nadd dark mode"},
		Branch:     "origin/main",
		GitCommit:  "abc123",
		Source:     "Web",
		FileName:   "demo.ipa",
		File:       upload,
	})
	require.NoError(t, err)

	assert.Equal(t, models.ChangelogList{{Message: "fix crash"}, {Message: "add dark mode"}}, release.Changelog)
	assert.Equal(t, "main", release.Branch)
	assert.Equal(t, models.SourceWeb, release.Source)
	assert.Equal(t, models.DeviceTypeIOS, release.DeviceType)
	assert.NotEmpty(t, release.FileSHA256)
	assert.EqualValues(t, len("binary-1"), release.FileSize)
}

func TestDestroyKeepsSurvivorVersionsAndNeverReusesNumbers(t *testing.T) {
	gdb := newTestDB(t)
	channel := seedChannel(t, gdb, "key1", "")
	svc := newTestService(t, gdb, stubExtractor{meta: iosMeta("com.demo.app")}, nil)
	upload := writeUpload(t, "binary-1")

	var ids []uint
	for i := 0; i < 3; i++ {
		release, err := svc.Ingest(IngestParams{ChannelKey: channel.Key, FileName: "demo.ipa", File: upload})
		require.NoError(t, err)
		ids = append(ids, release.ID)
	}

	require.NoError(t, svc.Destroy(ids[2]))

	var survivors []int
	require.NoError(t, gdb.Model(&models.Release{}).
		Where("channel_id = ?", channel.ID).
		Order("version").
		Pluck("version", &survivors).Error)
	assert.Equal(t, []int{1, 2}, survivors)

	// The torn-down number 3 stays burned.
	release, err := svc.Ingest(IngestParams{ChannelKey: channel.Key, FileName: "demo.ipa", File: upload})
	require.NoError(t, err)
	assert.Equal(t, 4, release.Version)
}
