package releaseservice

import (
	"errors"
	"strings"

	"appdist/internal/models"
	"appdist/internal/parser"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// resolveIdentity finds or creates the App → Scheme → Channel chain for
// an upload, inside the ingestion transaction.
//
// An explicit channel key that resolves pins the whole chain (update
// path). Otherwise the chain is built under the authenticated owner
// (create path); unique constraints on scheme and channel make a lost
// race surface as a duplicate-key error, which the caller retries by
// re-running this find step.
func (s *ReleaseService) resolveIdentity(tx *gorm.DB, p IngestParams, meta *parser.PackageMetadata) (*models.Channel, error) {
	if p.ChannelKey != "" {
		var channel models.Channel
		err := tx.Where("key = ?", p.ChannelKey).First(&channel).Error
		if err == nil {
			return &channel, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		// Unknown key: fall through to the create path.
	}

	if p.UserID == 0 {
		return nil, ErrOwnerRequired
	}

	appName := strings.TrimSpace(p.AppName)
	if appName == "" {
		appName = meta.Name
	}
	if appName == "" {
		appName = meta.BundleID
	}

	var app models.App
	err := tx.Joins("JOIN app_users ON app_users.app_id = apps.id").
		Where("app_users.user_id = ? AND apps.name = ?", p.UserID, appName).
		First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		var owner models.User
		if err := tx.First(&owner, p.UserID).Error; err != nil {
			return nil, err
		}
		app = models.App{Name: appName, Users: []models.User{owner}}
		if err := tx.Create(&app).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	schemeName := schemeNameFor(meta)
	var scheme models.Scheme
	err = tx.Where("app_id = ? AND name = ?", app.ID, schemeName).First(&scheme).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		scheme = models.Scheme{AppID: app.ID, Name: schemeName}
		if err := tx.Create(&scheme).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	channelName := channelNameFor(meta.DeviceType)
	var channel models.Channel
	err = tx.Where("scheme_id = ? AND name = ?", scheme.ID, channelName).First(&channel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		channel = models.Channel{
			SchemeID:   scheme.ID,
			Name:       channelName,
			Slug:       uuid.New().String()[:8],
			Key:        strings.ReplaceAll(uuid.New().String(), "-", ""),
			DeviceType: meta.DeviceType,
			BundleID:   models.BundleIDWildcard,
		}
		if p.Password != "" {
			if err := channel.SetDownloadPassword(p.Password); err != nil {
				return nil, err
			}
		}
		if err := tx.Create(&channel).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	return &channel, nil
}

// schemeNameFor maps an iOS release type onto the fixed scheme
// vocabulary. Other platforms all land in "default".
func schemeNameFor(meta *parser.PackageMetadata) string {
	if meta.DeviceType != models.DeviceTypeIOS {
		return "default"
	}
	switch meta.ReleaseType {
	case parser.ReleaseTypeDebug:
		return "dev variant"
	case parser.ReleaseTypeAdHoc:
		return "test variant"
	case parser.ReleaseTypeInHouse:
		return "enterprise variant"
	case parser.ReleaseTypeRelease:
		return "production variant"
	default:
		return "default"
	}
}

func channelNameFor(deviceType models.EnumDeviceType) string {
	switch deviceType {
	case models.DeviceTypeIOS:
		return "iOS"
	case models.DeviceTypeAndroid:
		return "Android"
	case models.DeviceTypeMacOS:
		return "macOS"
	default:
		return string(deviceType)
	}
}
