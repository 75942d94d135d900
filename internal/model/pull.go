package model

import (
	"time"
)

type Pull struct {
	Model
	RepoName   string    `json:"repo_name" gorm:"column:repo_name;type:varchar(255);not null;uniqueIndex:idx_pull_key,priority:1"`
	PullNumber int64     `json:"pull_number" gorm:"column:pull_number;not null;uniqueIndex:idx_pull_key,priority:2"`
	OpenedAt   time.Time `json:"opened_at" gorm:"column:opened_at"`
	ActivityAt time.Time `json:"activity_at" gorm:"column:activity_at;index"`
	RawJSON    string    `json:"raw_json" gorm:"column:raw_json;type:mediumtext"`
}

func (p *Pull) TableName() string {
	return "pulls"
}
