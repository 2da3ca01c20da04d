package config

type AppConfig struct {
	Workdir              string `envconfig:"WORK_DIR"`
	Port                 string `envconfig:"PORT" default:"2210"`
	DatabaseUri          string `envconfig:"DATABASE_URI" default:"dressing.db"`
	LogLevel             string `envconfig:"LOG_LEVEL" default:"info"`
	LogToFile            bool   `envconfig:"LOG_TO_FILE" default:"true"`
	LogDBQueries         bool   `envconfig:"LOG_DB_QUERIES" default:"false"`
	BaseUrl              string `envconfig:"BASE_URL"`
	FrontendUrl          string `envconfig:"FRONTEND_URL"`
	AutoUnlockPassword   string `envconfig:"AUTO_UNLOCK_PASSWORD"`
	StorageEncryptionKey string `envconfig:"STORAGE_ENCRYPTION_KEY"`
	BackendURL           string `envconfig:"BACKEND_URL"`
	CatalogURL           string `envconfig:"CATALOG_URL" default:"https://raw.githubusercontent.com/dressinghq/dressing-catalog/refs/heads/main"`
	GoProfilerAddr       string `envconfig:"GO_PROFILER_ADDR"`
}

func (c *AppConfig) GetBaseFrontendUrl() string {
	url := c.FrontendUrl
	if url == "" {
		url = c.BaseUrl
	}
	return url
}

type Config interface {
	Unlock(encryptionKey string) error
	Get(key string, encryptionKey string) (string, error)
	SetIgnore(key string, value string, encryptionKey string) error
	SetUpdate(key string, value string, encryptionKey string) error
	GetJWTSecret() (string, error)
	GetEnv() *AppConfig
	CheckUnlockPassword(password string) bool
	ChangeUnlockPassword(currentUnlockPassword string, newUnlockPassword string) error
	SetAutoUnlockPassword(unlockPassword string) error
	SaveUnlockPasswordCheck(encryptionKey string) error
	SetupCompleted() bool
	GetBackendURL() string
	SetBackendURL(value string) error
	GetCatalogURL() string
	SetCatalogURL(value string) error
	GetDefaultWorkDir() string
}
