package cfg

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var (
	cfgIns     *Config
	cfgInsOnce sync.Once
	cfgMutex   sync.RWMutex
)

type ViperLoader struct {
	configChangeCallbacks []func(*Config)
}

func NewViperLoader() (*ViperLoader, error) {
	return &ViperLoader{
		configChangeCallbacks: make([]func(*Config), 0),
	}, nil
}

// Load đọc config một lần duy nhất và bật watch để reload khi file thay
// đổi. Các lần gọi sau trả về bản config mới nhất, vì vậy syncer có thể
// gọi lại Load() giữa các trang để lấy baseline/enabled hiện hành.
func (yl *ViperLoader) Load() (*Config, error) {
	var err error
	cfgInsOnce.Do(func() {
		err = yl.loadConfig()
		if err == nil && yl.IsWatchChange() {
			viper.WatchConfig()
			viper.OnConfigChange(func(e fsnotify.Event) {
				fmt.Printf("[INFO][CONFIG] Config file changed: %s\n", e.Name)
				if errReload := yl.reloadConfig(); errReload != nil {
					fmt.Printf("[ERROR][CONFIG] Failed to reload config: %v\n", errReload)
				}
			})
		}
	})

	if err != nil {
		return nil, err
	}

	cfgMutex.RLock()
	defer cfgMutex.RUnlock()
	return cfgIns, nil
}

func (yl *ViperLoader) IsWatchChange() bool {
	return true
}

func (yl *ViperLoader) RegisterConfigChangeCallback(callback func(*Config)) {
	cfgMutex.Lock()
	yl.configChangeCallbacks = append(yl.configChangeCallbacks, callback)
	cfgMutex.Unlock()
}

func (yl *ViperLoader) loadConfig() error {
	viper.AddConfigPath("cfg/yaml")
	viper.SetConfigName("mode")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("[ERROR][CONFIG] failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("[ERROR][CONFIG] failed to unmarshal config: %w", err)
	}
	applyDefaults(cfg)

	cfgMutex.Lock()
	cfgIns = cfg
	cfgMutex.Unlock()

	return nil
}

func (yl *ViperLoader) reloadConfig() error {
	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("[ERROR][CONFIG] failed to unmarshal config during reload: %w", err)
	}
	applyDefaults(cfg)

	cfgMutex.Lock()
	cfgIns = cfg
	callbacks := make([]func(*Config), len(yl.configChangeCallbacks))
	copy(callbacks, yl.configChangeCallbacks)
	cfgMutex.Unlock()
	for _, callback := range callbacks {
		go callback(cfg)
	}

	fmt.Println("[INFO][CONFIG] Configuration reloaded successfully")
	return nil
}

// Các ngưỡng lấy từ hành vi tham chiếu: mini-retry 3 lần, low water mark
// 5 request còn lại, early exit sau 3 trang không có item mới.
func applyDefaults(cfg *Config) {
	api := &cfg.GithubApi
	if api.ApiUrl == "" {
		api.ApiUrl = "https://api.github.com"
	}
	if api.PageSize <= 0 {
		api.PageSize = 100
	}
	if api.MaxRetryAttempts <= 0 {
		api.MaxRetryAttempts = 20
	}
	if api.MiniRetryAttempts <= 0 {
		api.MiniRetryAttempts = 3
	}
	if api.LowWaterMark <= 0 {
		api.LowWaterMark = 5
	}
	if api.EarlyExitRunLength <= 0 {
		api.EarlyExitRunLength = 3
	}
	if api.RateLimitResetMin <= 0 {
		api.RateLimitResetMin = 60
	}
	if api.RequestsPerSecond <= 0 {
		api.RequestsPerSecond = 5
	}
	if cfg.Crawl.Sink == "" {
		cfg.Crawl.Sink = "db"
	}
}
