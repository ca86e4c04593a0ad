package models

import "gorm.io/gorm"

// Device is one installation target (UDID) referenced by ad-hoc iOS
// releases. Created on demand, referenced but never owned by releases.
type Device struct {
	gorm.Model
	UDID      string `gorm:"column:udid;not null;uniqueIndex"`
	ModelName string `gorm:"column:model_name"`
}
