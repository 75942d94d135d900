package model

import (
	"time"
)

type Release struct {
	Model
	RepoName   string    `json:"repo_name" gorm:"column:repo_name;type:varchar(255);not null;uniqueIndex:idx_release_key,priority:1"`
	ReleaseID  int64     `json:"release_id" gorm:"column:release_id;not null;uniqueIndex:idx_release_key,priority:2"`
	TagName    string    `json:"tag_name" gorm:"column:tag_name;type:varchar(255)"`
	ReleasedAt time.Time `json:"released_at" gorm:"column:released_at;index"`
	RawJSON    string    `json:"raw_json" gorm:"column:raw_json;type:mediumtext"`
}

func (r *Release) TableName() string {
	return "releases"
}
