package model

type Watcher struct {
	Model
	RepoName  string `json:"repo_name" gorm:"column:repo_name;type:varchar(255);not null;uniqueIndex:idx_watcher_key,priority:1"`
	UserLogin string `json:"user_login" gorm:"column:user_login;type:varchar(255);not null;uniqueIndex:idx_watcher_key,priority:2"`
	RawJSON   string `json:"raw_json" gorm:"column:raw_json;type:mediumtext"`
}

func (w *Watcher) TableName() string {
	return "watchers"
}
