package model

import (
	"time"
)

type Fork struct {
	Model
	RepoName string    `json:"repo_name" gorm:"column:repo_name;type:varchar(255);not null;uniqueIndex:idx_fork_key,priority:1"`
	ForkID   int64     `json:"fork_id" gorm:"column:fork_id;not null;uniqueIndex:idx_fork_key,priority:2"`
	ForkedAt time.Time `json:"forked_at" gorm:"column:forked_at;index"`
	RawJSON  string    `json:"raw_json" gorm:"column:raw_json;type:mediumtext"`
}

func (f *Fork) TableName() string {
	return "forks"
}
