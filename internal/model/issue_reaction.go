package model

import (
	"time"
)

type IssueReaction struct {
	Model
	RepoName   string    `json:"repo_name" gorm:"column:repo_name;type:varchar(255);not null;uniqueIndex:idx_reaction_key,priority:1"`
	ReactionID int64     `json:"reaction_id" gorm:"column:reaction_id;not null;uniqueIndex:idx_reaction_key,priority:2"`
	ReactedAt  time.Time `json:"reacted_at" gorm:"column:reacted_at;index"`
	RawJSON    string    `json:"raw_json" gorm:"column:raw_json;type:mediumtext"`
}

func (r *IssueReaction) TableName() string {
	return "issue_reactions"
}
