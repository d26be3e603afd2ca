package model

import "time"

// PushSubscription holds a dashboard browser's push subscription and the
// machines it watches. An empty watch list means every machine.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey" json:"endpoint"`
	P256DH    string    `gorm:"column:p256dh;not null" json:"-"`
	Auth      string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`

	// Associations
	Machines []*Machine `gorm:"many2many:subscription_machine_watch;" json:"-"`
}
