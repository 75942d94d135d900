package model

import (
	"time"
)

type IssueComment struct {
	Model
	RepoName  string    `json:"repo_name" gorm:"column:repo_name;type:varchar(255);not null;uniqueIndex:idx_comment_key,priority:1"`
	CommentID int64     `json:"comment_id" gorm:"column:comment_id;not null;uniqueIndex:idx_comment_key,priority:2"`
	PostedAt  time.Time `json:"posted_at" gorm:"column:posted_at;index"`
	RawJSON   string    `json:"raw_json" gorm:"column:raw_json;type:mediumtext"`
}

func (c *IssueComment) TableName() string {
	return "issue_comments"
}
