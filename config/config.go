package config

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"

	"github.com/dressinghq/dressinghub/db"
	"github.com/dressinghq/dressinghub/logger"
	"github.com/dressinghq/dressinghub/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type config struct {
	Env        *AppConfig
	db         *gorm.DB
	cache      map[string]map[string]string // key -> encryptionKeyHash -> value
	cacheMutex sync.Mutex
	jwtSecret  string
}

const (
	unlockPasswordCheck = "THIS STRING SHOULD MATCH IF PASSWORD IS CORRECT"
)

func NewConfig(env *AppConfig, db *gorm.DB) (*config, error) {
	cfg := &config{
		db:    db,
		cache: map[string]map[string]string{},
	}
	err := cfg.init(env)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func (cfg *config) init(env *AppConfig) error {
	cfg.Env = env

	if cfg.Env.BackendURL != "" {
		err := cfg.SetUpdate("BackendURL", cfg.Env.BackendURL, "")
		if err != nil {
			return err
		}
	}
	// Seed the catalog URL only once so a user-customized value survives
	// restarts with the env default present.
	if cfg.Env.CatalogURL != "" {
		err := cfg.SetIgnore("CatalogURL", cfg.Env.CatalogURL, "")
		if err != nil {
			return err
		}
	}

	return nil
}

func (cfg *config) SetupCompleted() bool {
	unlockPasswordCheck, _ := cfg.Get("UnlockPasswordCheck", "")

	logger.Logger.Debug().
		Bool("has_unlock_password_check", unlockPasswordCheck != "").
		Msg("Checking if setup is completed")
	return unlockPasswordCheck != ""
}

func (cfg *config) GetJWTSecret() (string, error) {
	if cfg.jwtSecret == "" {
		return "", errors.New("config not unlocked")
	}

	return cfg.jwtSecret, nil
}

func (cfg *config) Unlock(encryptionKey string) error {
	if !cfg.CheckUnlockPassword(encryptionKey) {
		return errors.New("incorrect password")
	}

	jwtSecret, err := cfg.Get("JWTSecret", encryptionKey)
	if err != nil {
		return err
	}
	if jwtSecret == "" {
		jwtSecret, err = randomHex(32)
		if err != nil {
			logger.Logger.Error().Err(err).Msg("failed to generate JWT secret")
			return err
		}
		logger.Logger.Info().Msg("Generated new JWT secret")

		err = cfg.SetUpdate("JWTSecret", jwtSecret, encryptionKey)
		if err != nil {
			logger.Logger.Error().Err(err).Msg("failed to save JWT secret")
			return err
		}
	}
	cfg.jwtSecret = jwtSecret
	return nil
}

func (cfg *config) getEncryptionKeyHash(encryptionKey string) string {
	if encryptionKey == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(encryptionKey))
	// 8 bytes (16 hex chars) is plenty to keep cache entries for different
	// encryption keys apart
	return hex.EncodeToString(hash[:8])
}

func (cfg *config) Get(key string, encryptionKey string) (string, error) {
	cfg.cacheMutex.Lock()
	defer cfg.cacheMutex.Unlock()

	encKeyHash := cfg.getEncryptionKeyHash(encryptionKey)

	if keyCache, ok := cfg.cache[key]; ok {
		if cachedValue, ok := keyCache[encKeyHash]; ok {
			logger.Logger.Debug().Str("key", key).Msg("hit config cache")
			return cachedValue, nil
		}
	}
	logger.Logger.Debug().Str("key", key).Msg("missed config cache")

	value, err := cfg.get(key, encryptionKey, cfg.db)
	if err != nil {
		return "", err
	}

	if cfg.cache[key] == nil {
		cfg.cache[key] = make(map[string]string)
	}
	cfg.cache[key][encKeyHash] = value
	logger.Logger.Debug().Str("key", key).Msg("set config cache")
	return value, nil
}

func (cfg *config) get(key string, encryptionKey string, gormDB *gorm.DB) (string, error) {
	var userConfig db.UserConfig
	err := gormDB.Where(&db.UserConfig{Key: key}).Limit(1).Find(&userConfig).Error
	if err != nil {
		return "", fmt.Errorf("failed to get configuration value: %w", err)
	}

	value := userConfig.Value
	if userConfig.Value != "" && encryptionKey != "" && userConfig.Encrypted {
		decrypted, err := AesGcmDecryptWithPassword(value, encryptionKey)
		if err != nil {
			return "", err
		}
		value = decrypted
	}
	return value, nil
}

func (cfg *config) set(key string, value string, clauses clause.OnConflict, encryptionKey string, gormDB *gorm.DB) error {
	if encryptionKey != "" {
		encrypted, err := AesGcmEncryptWithPassword(value, encryptionKey)
		if err != nil {
			return fmt.Errorf("failed to encrypt: %v", err)
		}
		value = encrypted
	}
	userConfig := db.UserConfig{Key: key, Value: value, Encrypted: encryptionKey != ""}
	result := gormDB.Clauses(clauses).Create(&userConfig)

	if result.Error != nil {
		return fmt.Errorf("failed to save key to config: %v", result.Error)
	}

	logger.Logger.Debug().Str("key", key).Msg("clearing config cache")
	cfg.cacheMutex.Lock()
	defer cfg.cacheMutex.Unlock()
	delete(cfg.cache, key)

	return nil
}

func (cfg *config) SetIgnore(key string, value string, encryptionKey string) error {
	clauses := clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}
	err := cfg.set(key, value, clauses, encryptionKey, cfg.db)
	if err != nil {
		logger.Logger.Error().Err(err).Str("key", key).Msg("Failed to set config key with ignore")
		return err
	}
	return nil
}

func (cfg *config) SetUpdate(key string, value string, encryptionKey string) error {
	clauses := clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "encrypted"}),
	}
	err := cfg.set(key, value, clauses, encryptionKey, cfg.db)
	if err != nil {
		logger.Logger.Error().Err(err).Str("key", key).Msg("Failed to set config key with update")
		return err
	}
	return nil
}

func (cfg *config) ChangeUnlockPassword(currentUnlockPassword string, newUnlockPassword string) error {
	if newUnlockPassword == "" {
		return errors.New("new unlock password must not be empty")
	}
	if !cfg.CheckUnlockPassword(currentUnlockPassword) {
		return errors.New("incorrect password")
	}
	err := cfg.db.Transaction(func(tx *gorm.DB) error {

		var encryptedUserConfigs []db.UserConfig
		err := tx.Where(&db.UserConfig{Encrypted: true}).Find(&encryptedUserConfigs).Error
		if err != nil {
			return err
		}

		logger.Logger.Info().Int("count", len(encryptedUserConfigs)).Msg("Updating encrypted entries")

		for _, userConfig := range encryptedUserConfigs {
			decryptedValue, err := cfg.get(userConfig.Key, currentUnlockPassword, tx)
			if err != nil {
				logger.Logger.Error().Err(err).Str("key", userConfig.Key).Msg("Failed to decrypt key")
				return err
			}
			clauses := clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value"}),
			}
			err = cfg.set(userConfig.Key, decryptedValue, clauses, newUnlockPassword, tx)
			if err != nil {
				logger.Logger.Error().Err(err).Str("key", userConfig.Key).Msg("Failed to encrypt key")
				return err
			}
			logger.Logger.Info().Str("key", userConfig.Key).Msg("re-encrypted key")
		}

		// delete the JWT secret so it will be re-generated on next unlock (to log all sessions out on password change)
		err = tx.Where(&db.UserConfig{Key: "JWTSecret"}).Delete(&db.UserConfig{}).Error
		if err != nil {
			logger.Logger.Error().Err(err).Msg("failed to remove JWT secret during password change transaction")
			return fmt.Errorf("failed to delete JWT secret: %w", err)
		}

		return nil
	})

	if err != nil {
		logger.Logger.Error().Err(err).Msg("failed to execute password change transaction")
		return err
	}

	// JWT secret will be set on config unlock (required after password change)
	cfg.jwtSecret = ""
	return nil
}

func (cfg *config) SetAutoUnlockPassword(unlockPassword string) error {
	if unlockPassword != "" && !cfg.CheckUnlockPassword(unlockPassword) {
		return errors.New("incorrect password")
	}

	err := cfg.SetUpdate("AutoUnlockPassword", unlockPassword, "")
	if err != nil {
		logger.Logger.Error().Err(err).Msg("failed to update auto unlock password")
		return err
	}

	return nil
}

func (cfg *config) CheckUnlockPassword(encryptionKey string) bool {
	decryptedValue, err := cfg.Get("UnlockPasswordCheck", encryptionKey)

	return err == nil && (decryptedValue == "" || decryptedValue == unlockPasswordCheck)
}

func (cfg *config) SaveUnlockPasswordCheck(encryptionKey string) error {
	err := cfg.SetUpdate("UnlockPasswordCheck", unlockPasswordCheck, encryptionKey)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to save unlock password check to config")
		return err
	}
	return nil
}

func (cfg *config) GetEnv() *AppConfig {
	return cfg.Env
}

func (cfg *config) GetBackendURL() string {
	url, err := cfg.Get("BackendURL", "")
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to fetch BackendURL")
	}
	if url != "" {
		return url
	}
	return cfg.Env.BackendURL
}

func (cfg *config) SetBackendURL(value string) error {
	// BackendURL can be empty to run fully offline
	if value != "" {
		if err := utils.ValidateHTTPURL(value); err != nil {
			return err
		}
	}
	err := cfg.SetUpdate("BackendURL", value, "")
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to update BackendURL")
		return err
	}
	return nil
}

func (cfg *config) GetCatalogURL() string {
	url, err := cfg.Get("CatalogURL", "")
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to fetch CatalogURL")
	}
	if url != "" {
		return url
	}
	return cfg.Env.CatalogURL
}

func (cfg *config) SetCatalogURL(value string) error {
	if value == "" {
		return errors.New("CatalogURL cannot be empty")
	}
	if err := utils.ValidateHTTPURL(value); err != nil {
		return err
	}
	err := cfg.SetUpdate("CatalogURL", value, "")
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to update CatalogURL")
		return err
	}
	return nil
}

func (cfg *config) GetDefaultWorkDir() string {
	if cfg.Env.Workdir != "" {
		return cfg.Env.Workdir
	}
	return filepath.Join(xdg.DataHome, "dressinghub")
}

func randomHex(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
