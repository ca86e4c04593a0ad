package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
)

const (
	SourceAPI = "api"
	SourceWeb = "web"
)

// ChangelogEntry is the canonical changelog unit.
type ChangelogEntry struct {
	Message string `json:"message"`
}

// ChangelogList is stored as a JSON text column.
type ChangelogList []ChangelogEntry

func (l ChangelogList) Value() (driver.Value, error) {
	if l == nil {
		l = ChangelogList{}
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func (l *ChangelogList) Scan(value any) error {
	return scanJSON(value, l)
}

// CustomField is one free-form metadata entry attached to a release.
type CustomField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Icon  string `json:"icon,omitempty"`
}

// CustomFieldList is stored as a JSON text column.
type CustomFieldList []CustomField

func (l CustomFieldList) Value() (driver.Value, error) {
	if l == nil {
		l = CustomFieldList{}
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func (l *CustomFieldList) Scan(value any) error {
	return scanJSON(value, l)
}

func scanJSON(value, dest any) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported column type %T", value)
	}
}

// Release 구조체는 하나의 업로드된 빌드를 추적합니다.
// One immutable build artifact plus its metadata. Version numbers are
// unique per channel and strictly increasing from 1 in creation order.
type Release struct {
	gorm.Model
	ChannelID      uint            `gorm:"not null;uniqueIndex:uniq_channel_version"`
	Channel        Channel         `gorm:"foreignKey:ChannelID"`
	Version        int             `gorm:"column:version;not null;uniqueIndex:uniq_channel_version"`
	ReleaseVersion string          `gorm:"column:release_version"` // platform-reported, not unique
	BuildVersion   string          `gorm:"column:build_version"`
	BundleID       string          `gorm:"column:bundle_id"`
	FilePath       string          `gorm:"column:file_path"`
	FileSize       int64           `gorm:"column:file_size"`
	FileSHA256     string          `gorm:"column:file_sha256;size:64"`
	IconPath       string          `gorm:"column:icon_path"`
	Changelog      ChangelogList   `gorm:"column:changelog;type:text"`
	CustomFields   CustomFieldList `gorm:"column:custom_fields;type:text"`
	Branch         string          `gorm:"column:branch"`
	GitCommit      string          `gorm:"column:git_commit"`
	CIURL          string          `gorm:"column:ci_url"`
	Source         string          `gorm:"column:source;default:api"`
	DeviceType     EnumDeviceType  `gorm:"column:device_type"`
	Devices        []Device        `gorm:"many2many:release_devices"` // ad-hoc iOS only
}
