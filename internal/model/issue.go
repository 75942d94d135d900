package model

import (
	"time"
)

type Issue struct {
	Model
	RepoName    string    `json:"repo_name" gorm:"column:repo_name;type:varchar(255);not null;uniqueIndex:idx_issue_key,priority:1"`
	IssueNumber int64     `json:"issue_number" gorm:"column:issue_number;not null;uniqueIndex:idx_issue_key,priority:2"`
	OpenedAt    time.Time `json:"opened_at" gorm:"column:opened_at"`
	ActivityAt  time.Time `json:"activity_at" gorm:"column:activity_at;index"`
	RawJSON     string    `json:"raw_json" gorm:"column:raw_json;type:mediumtext"`
}

func (i *Issue) TableName() string {
	return "issues"
}
