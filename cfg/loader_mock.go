package cfg

type MockLoader struct{}

func NewMockLoader() (*MockLoader, error) {
	return &MockLoader{}, nil
}

func (yl *MockLoader) Load() (*Config, error) {
	cfg := &Config{
		// App
		App: App{
			Name:    "kpi-crawler",
			Version: "0.0.1",
		},

		// Mysql
		Mysql: Mysql{
			Host:                  "127.0.0.1",
			Password:              "root",
			Username:              "root",
			Port:                  "3306",
			Database:              "kpi_crawler",
			MaxIdleConnection:     10,
			MaxOpenConnection:     100,
			MaxLifeTimeConnection: 3600,
		},

		// Kafka
		Kafka: Kafka{
			Brokers:       []string{"127.0.0.1:9092"},
			TopicRawItems: "kpi-raw-items",
			ConsumerGroup: "kpi-raw-items-group",
		},

		// GithubApi
		GithubApi: GithubApi{
			ApiUrl: "https://api.github.com",
			Tokens: []string{},
		},

		// Repos
		Repos: []Repo{
			{Owner: "ni", Name: "labview-icon-editor", Enabled: true, StartDate: "2019-01-01"},
		},
	}
	applyDefaults(cfg)
	return cfg, nil
}
