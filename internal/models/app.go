package models

import "gorm.io/gorm"

// App is one logical product. It is created on the first upload that
// cannot be matched to an existing app and is never auto-deleted.
type App struct {
	gorm.Model
	Name    string   `gorm:"column:name;not null;index"`
	Users   []User   `gorm:"many2many:app_users"` // owning users
	Schemes []Scheme `gorm:"foreignKey:AppID"`
}

// Scheme is a named build variant within an App ("dev variant",
// "production variant", ...). Created on demand per upload.
type Scheme struct {
	gorm.Model
	AppID    uint      `gorm:"not null;uniqueIndex:uniq_app_scheme"`
	App      App       `gorm:"foreignKey:AppID"`
	Name     string    `gorm:"column:name;not null;uniqueIndex:uniq_app_scheme"`
	Channels []Channel `gorm:"foreignKey:SchemeID"`
}
