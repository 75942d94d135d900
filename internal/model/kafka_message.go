package model

import (
	"encoding/json"
	"time"
)

// RawItemMessage là một item đã được chấp nhận, gửi tới Kafka để
// consumer ghi vào MySQL. Key của Kafka message là resource type.
type RawItemMessage struct {
	RepoName   string          `json:"repo_name"`
	Resource   string          `json:"resource"`
	NaturalKey string          `json:"natural_key"`
	ActivityAt time.Time       `json:"activity_at"`
	Raw        json.RawMessage `json:"raw"`
}
