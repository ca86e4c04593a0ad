package releaseservice

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"appdist/internal/metrics"
	"appdist/internal/models"
	"appdist/internal/parser"
	"appdist/internal/storage"

	"gorm.io/gorm"
)

// maxIngestAttempts bounds the retry loop around identity and version
// races. Exhaustion fails the upload instead of livelocking.
const maxIngestAttempts = 10

// Notifier triggers post-commit event delivery for a channel. Delivery
// failures stay inside the implementation and never reach the uploader.
type Notifier interface {
	Trigger(event string, channel *models.Channel, release *models.Release)
}

// ReleaseService runs the ingestion pipeline: extract metadata, resolve
// identity, guard the bundle id, assign the next version, normalize
// fields, select an icon, persist everything in one transaction, then
// hand the committed release to the notifier.
type ReleaseService struct {
	db        *gorm.DB
	extractor parser.Extractor
	store     *storage.Store
	notifier  Notifier
	metrics   metrics.Metrics
}

func NewReleaseService(database *gorm.DB, extractor parser.Extractor, store *storage.Store, notifier Notifier, m metrics.Metrics) *ReleaseService {
	if m == nil {
		m = metrics.Noop{}
	}
	return &ReleaseService{
		db:        database,
		extractor: extractor,
		store:     store,
		notifier:  notifier,
		metrics:   m,
	}
}

// IngestParams carries one upload request. File points at the temporary
// upload on disk; FileName is the client-reported name.
type IngestParams struct {
	ChannelKey   string
	UserID       uint // authenticated uploader, 0 when anonymous
	AppName      string
	Password     string // download gate seeded onto a newly created channel
	ReleaseType  string // hint used when the package does not report one
	Source       string
	Changelog    RawField
	CustomFields RawField
	Branch       string
	GitCommit    string
	CIURL        string
	Devices      []string // request-declared UDIDs, used when the package reports none
	FileName     string
	File         string
}

// Ingest runs the full pipeline for one upload and returns the committed
// release. Everything before commit is atomic: a failure at any stage
// leaves no release, no version consumed, and no identity rows behind.
func (s *ReleaseService) Ingest(p IngestParams) (*models.Release, error) {
	meta, err := s.extractor.Extract(p.File)
	if err != nil {
		s.metrics.IncUploadRejected("parse")
		return nil, err
	}
	s.metrics.IncUploadReceived(string(meta.DeviceType))

	if meta.ReleaseType == "" && p.ReleaseType != "" {
		meta.ReleaseType = parser.EnumReleaseType(strings.ToLower(p.ReleaseType))
	}
	if len(meta.Devices) == 0 {
		meta.Devices = p.Devices
	}

	// Stage the files once, before the retry loop. Only the attempt that
	// commits promotes them into the version directory, so a lost race
	// can never clobber another upload's files.
	staged, err := s.stageFiles(p, meta)
	if err != nil {
		s.metrics.IncUploadRejected("storage")
		return nil, err
	}
	defer staged.discard(s.store)

	var release *models.Release
	for attempt := 1; attempt <= maxIngestAttempts; attempt++ {
		release, err = s.ingestOnce(p, meta, staged)
		if err == nil {
			break
		}
		if !isRetryableConflict(err) {
			s.metrics.IncUploadRejected(rejectReason(err))
			return nil, err
		}
		// Lost an identity or version race; re-run the find step.
		log.Printf("[ingest] conflict on attempt %d/%d, retrying: %v", attempt, maxIngestAttempts, err)
		time.Sleep(time.Duration(attempt) * 5 * time.Millisecond)
	}
	if err != nil {
		s.metrics.IncUploadRejected("conflict")
		return nil, fmt.Errorf("persisting release after %d attempts: %w", maxIngestAttempts, err)
	}

	// The row is committed; move the staged files to the paths it names.
	// A rename on the same filesystem should not fail, but if it does the
	// release survives with its assets missing and we log loudly.
	if err := staged.promote(s.store, release); err != nil {
		log.Printf("[ingest] finalizing assets for %s v%d: %v", release.Channel.Slug, release.Version, err)
	}

	s.metrics.IncReleaseCreated(string(release.DeviceType))
	if s.notifier != nil {
		// Post-commit, fire-and-forget. A webhook failure never unwinds
		// the already-committed release.
		s.notifier.Trigger("upload", &release.Channel, release)
	}
	return release, nil
}

// stagedFiles holds the artifact (and optional icon) copied into the
// staging area for one upload.
type stagedFiles struct {
	artifact string
	size     int64
	sha256   string
	fileName string

	icon     string // staged icon path, "" when the package has none
	iconName string // original icon name, carries the extension
}

func (s *ReleaseService) stageFiles(p IngestParams, meta *parser.PackageMetadata) (*stagedFiles, error) {
	src, err := os.Open(p.File)
	if err != nil {
		return nil, fmt.Errorf("opening upload: %w", err)
	}
	defer src.Close()

	staged := &stagedFiles{fileName: p.FileName}
	staged.artifact, staged.size, staged.sha256, err = s.store.Stage(src)
	if err != nil {
		return nil, fmt.Errorf("staging artifact: %w", err)
	}

	if candidate, ok := SelectIconPath(meta); ok {
		staged.icon, err = s.store.StageFile(candidate)
		if err != nil {
			// Treated like "no icon": the release is still valid.
			log.Printf("[ingest] icon %s unusable: %v", candidate, err)
			staged.icon = ""
		} else {
			staged.iconName = candidate
		}
	}
	return staged, nil
}

// promote moves the staged files to the paths the committed release row
// names. Clears the staged paths so the deferred discard is a no-op.
func (f *stagedFiles) promote(store *storage.Store, release *models.Release) error {
	if err := store.Promote(f.artifact, release.FilePath); err != nil {
		return err
	}
	f.artifact = ""
	if f.icon != "" && release.IconPath != "" {
		if err := store.Promote(f.icon, release.IconPath); err != nil {
			return err
		}
		f.icon = ""
	}
	return nil
}

func (f *stagedFiles) discard(store *storage.Store) {
	for _, path := range []string{f.artifact, f.icon} {
		if err := store.Discard(path); err != nil {
			log.Printf("[ingest] leftover staged file %s: %v", path, err)
		}
	}
}

func (s *ReleaseService) ingestOnce(p IngestParams, meta *parser.PackageMetadata, staged *stagedFiles) (*models.Release, error) {
	var release *models.Release

	err := s.db.Transaction(func(tx *gorm.DB) error {
		channel, err := s.resolveIdentity(tx, p, meta)
		if err != nil {
			return err
		}

		// Bundle consistency guard runs before any release-side write,
		// on the update path and the create path alike.
		if channel.EnforcesBundleID() && channel.BundleID != meta.BundleID {
			return &BundleMismatchError{Expected: channel.BundleID, Actual: meta.BundleID}
		}

		version, err := nextVersion(tx, channel.ID)
		if err != nil {
			return err
		}

		iconPath := ""
		if staged.icon != "" {
			iconPath = s.store.IconPath(channel.Slug, version, staged.iconName)
		}

		source := models.SourceAPI
		if strings.EqualFold(p.Source, "web") {
			source = models.SourceWeb
		}
		deviceType := meta.DeviceType
		if deviceType == "" {
			deviceType = channel.DeviceType
		}

		rel := &models.Release{
			ChannelID:      channel.ID,
			Version:        version,
			ReleaseVersion: meta.ReleaseVersion,
			BuildVersion:   meta.BuildVersion,
			BundleID:       meta.BundleID,
			FilePath:       s.store.ArtifactPath(channel.Slug, version, staged.fileName),
			FileSize:       staged.size,
			FileSHA256:     staged.sha256,
			IconPath:       iconPath,
			Changelog:      NormalizeChangelog(p.Changelog),
			CustomFields:   NormalizeCustomFields(p.CustomFields),
			Branch:         NormalizeBranch(p.Branch),
			GitCommit:      p.GitCommit,
			CIURL:          p.CIURL,
			Source:         source,
			DeviceType:     deviceType,
		}
		if err := tx.Create(rel).Error; err != nil {
			return err
		}
		if err := s.registerDevices(tx, rel, meta); err != nil {
			return err
		}

		rel.Channel = *channel
		release = rel
		return nil
	})
	if err != nil {
		return nil, err
	}
	return release, nil
}

// nextVersion computes max(version)+1 for the channel inside the
// ingestion transaction. Two concurrent assigners can compute the same
// number; the unique index on (channel_id, version) makes the loser's
// commit fail, and the caller retries the whole transaction. A skipped
// number on a lost race is fine, a duplicate is impossible.
func nextVersion(tx *gorm.DB, channelID uint) (int, error) {
	// Unscoped: a torn-down (soft-deleted) release still owns its number
	// under the unique index, so it must stay in the MAX.
	var current int
	err := tx.Unscoped().Model(&models.Release{}).
		Where("channel_id = ?", channelID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&current).Error
	if err != nil {
		return 0, err
	}
	return current + 1, nil
}

// registerDevices upserts the UDIDs an ad-hoc iOS package declares and
// associates them with the release. Duplicates inside one package
// collapse to a single association.
func (s *ReleaseService) registerDevices(tx *gorm.DB, release *models.Release, meta *parser.PackageMetadata) error {
	if meta.DeviceType != models.DeviceTypeIOS || meta.ReleaseType != parser.ReleaseTypeAdHoc || len(meta.Devices) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(meta.Devices))
	for _, udid := range meta.Devices {
		udid = strings.TrimSpace(udid)
		if udid == "" || seen[udid] {
			continue
		}
		seen[udid] = true

		var device models.Device
		err := tx.Where("udid = ?", udid).First(&device).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			device = models.Device{UDID: udid}
			if err := tx.Create(&device).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		if err := tx.Model(release).Association("Devices").Append(&device); err != nil {
			return err
		}
	}
	return nil
}

// Destroy removes a release row and defers asset cleanup. Surviving
// releases keep their version numbers.
func (s *ReleaseService) Destroy(id uint) error {
	var release models.Release
	if err := s.db.Preload("Channel").First(&release, id).Error; err != nil {
		return err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&release).Association("Devices").Clear(); err != nil {
			return err
		}
		return tx.Delete(&release).Error
	})
	if err != nil {
		return err
	}

	go func(slug string, version int) {
		if err := s.store.RemoveVersionDir(slug, version); err != nil {
			log.Printf("[teardown] assets for %s v%d: %v", slug, version, err)
		}
	}(release.Channel.Slug, release.Version)

	if s.notifier != nil {
		s.notifier.Trigger("delete", &release.Channel, &release)
	}
	return nil
}

// FetchChannelBySlug loads a channel with its scheme and app.
func (s *ReleaseService) FetchChannelBySlug(slug string) (*models.Channel, error) {
	var channel models.Channel
	if err := s.db.Preload("Scheme.App").Where("slug = ?", slug).First(&channel).Error; err != nil {
		return nil, err
	}
	return &channel, nil
}

// FetchChannelReleases lists a channel's releases, newest first.
func (s *ReleaseService) FetchChannelReleases(channelID uint) ([]models.Release, error) {
	var releases []models.Release
	err := s.db.Where("channel_id = ?", channelID).
		Order("version desc").
		Preload("Devices").
		Find(&releases).Error
	if err != nil {
		return nil, err
	}
	return releases, nil
}

// isRetryableConflict matches the duplicate-key and lock-contention
// shapes of both supported drivers (postgres in production, sqlite in
// tests) without importing either.
func isRetryableConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}

func rejectReason(err error) string {
	var mismatch *BundleMismatchError
	switch {
	case errors.As(err, &mismatch):
		return "bundle_mismatch"
	case errors.Is(err, ErrOwnerRequired):
		return "owner_required"
	default:
		return "persistence"
	}
}
