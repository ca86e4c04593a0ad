package models

import (
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type EnumDeviceType string

const (
	DeviceTypeIOS     EnumDeviceType = "ios"
	DeviceTypeAndroid EnumDeviceType = "android"
	DeviceTypeMacOS   EnumDeviceType = "macos"
)

// BundleIDWildcard disables bundle id enforcement on a channel.
const BundleIDWildcard = "*"

// Channel is one distribution line within a Scheme: one platform, one
// cadence. The slug addresses the channel in public URLs, the key
// addresses it for unauthenticated uploads. Both are unique.
type Channel struct {
	gorm.Model
	SchemeID     uint           `gorm:"not null;uniqueIndex:uniq_scheme_channel"`
	Scheme       Scheme         `gorm:"foreignKey:SchemeID"`
	Name         string         `gorm:"column:name;not null;uniqueIndex:uniq_scheme_channel"`
	Slug         string         `gorm:"column:slug;not null;uniqueIndex"`
	Key          string         `gorm:"column:key;not null;uniqueIndex"`
	DeviceType   EnumDeviceType `gorm:"column:device_type;not null"`
	BundleID     string         `gorm:"column:bundle_id"` // enforcement anchor once set, "*" = any
	PasswordHash string         `gorm:"column:password_hash" json:"-"`
	Releases     []Release      `gorm:"foreignKey:ChannelID"`
	Webhooks     []Webhook      `gorm:"foreignKey:ChannelID"`
}

// EnforcesBundleID reports whether uploads into this channel must carry
// the channel's configured bundle identifier.
func (c *Channel) EnforcesBundleID() bool {
	return c.BundleID != "" && c.BundleID != BundleIDWildcard
}

// SetDownloadPassword stores a bcrypt hash of the download gate password.
// An empty password removes the gate.
func (c *Channel) SetDownloadPassword(password string) error {
	if password == "" {
		c.PasswordHash = ""
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	c.PasswordHash = string(hash)
	return nil
}

// CheckDownloadPassword 함수는 입력된 비밀번호가 저장된 해시와 일치하는지 확인합니다.
func (c *Channel) CheckDownloadPassword(password string) bool {
	if c.PasswordHash == "" {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) == nil
}
