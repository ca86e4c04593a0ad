package models

import "gorm.io/gorm"

// Webhook is one external notification target configured on a channel.
type Webhook struct {
	gorm.Model
	ChannelID uint    `gorm:"not null;index"`
	Channel   Channel `gorm:"foreignKey:ChannelID"`
	URL       string  `gorm:"column:url;not null"`
	Enabled   bool    `gorm:"column:enabled"`
	OnUpload  bool    `gorm:"column:on_upload"`
	OnDelete  bool    `gorm:"column:on_delete"`
}
