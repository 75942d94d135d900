package model

import (
	"time"

	"github.com/deadbird/kpi-crawler/cfg"
	"github.com/deadbird/kpi-crawler/pkg/db"
	"github.com/deadbird/kpi-crawler/pkg/log"
)

type Model struct {
	Config    *cfg.Config `gorm:"-"`
	Logger    log.Logger  `gorm:"-"`
	Mysql     *db.Mysql   `gorm:"-"`
	ID        uint        `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// All trả về danh sách model để migrate.
func All() []interface{} {
	return []interface{}{
		&Star{}, &Fork{}, &Watcher{},
		&Issue{}, &Pull{},
		&IssueComment{}, &IssueEvent{}, &IssueReaction{},
		&Release{}, &Commit{},
		&SyncWatermark{},
	}
}
