package model

import (
	"time"
)

type IssueEvent struct {
	Model
	RepoName   string    `json:"repo_name" gorm:"column:repo_name;type:varchar(255);not null;uniqueIndex:idx_event_key,priority:1"`
	EventID    int64     `json:"event_id" gorm:"column:event_id;not null;uniqueIndex:idx_event_key,priority:2"`
	HappenedAt time.Time `json:"happened_at" gorm:"column:happened_at;index"`
	RawJSON    string    `json:"raw_json" gorm:"column:raw_json;type:mediumtext"`
}

func (e *IssueEvent) TableName() string {
	return "issue_events"
}
