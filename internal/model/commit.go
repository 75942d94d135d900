package model

import (
	"time"
)

type Commit struct {
	Model
	RepoName    string    `json:"repo_name" gorm:"column:repo_name;type:varchar(255);not null;uniqueIndex:idx_commit_key,priority:1"`
	Hash        string    `json:"hash" gorm:"column:hash;type:varchar(64);not null;uniqueIndex:idx_commit_key,priority:2"`
	CommittedAt time.Time `json:"committed_at" gorm:"column:committed_at;index"`
	RawJSON     string    `json:"raw_json" gorm:"column:raw_json;type:mediumtext"`
}

func (c *Commit) TableName() string {
	return "commits"
}
