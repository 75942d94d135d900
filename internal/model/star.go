package model

import (
	"time"
)

type Star struct {
	Model
	RepoName  string    `json:"repo_name" gorm:"column:repo_name;type:varchar(255);not null;uniqueIndex:idx_star_key,priority:1"`
	UserLogin string    `json:"user_login" gorm:"column:user_login;type:varchar(255);not null;uniqueIndex:idx_star_key,priority:2"`
	StarredAt time.Time `json:"starred_at" gorm:"column:starred_at;index"`
	RawJSON   string    `json:"raw_json" gorm:"column:raw_json;type:mediumtext"`
}

func (s *Star) TableName() string {
	return "stars"
}
