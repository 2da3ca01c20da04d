package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/dressinghq/dressinghub/config"
	"github.com/dressinghq/dressinghub/constants"
	"github.com/dressinghq/dressinghub/logger"
)

type catalogService struct {
	cfg        config.Config
	catalog    Catalog
	mu         sync.RWMutex
	httpClient *http.Client
}

func NewCatalogService(cfg config.Config) *catalogService {
	return &catalogService{
		cfg:     cfg,
		catalog: builtinCatalog(),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// builtinCatalog covers a fresh install before the first successful sync.
func builtinCatalog() Catalog {
	return Catalog{
		Version:    "0.0.0",
		Categories: constants.GetCategories(),
		Colors: []string{
			"black", "white", "gray", "beige", "cream", "navy",
			"blue", "denim", "red", "green", "olive", "yellow",
			"orange", "pink", "purple", "brown",
		},
	}
}

func (s *catalogService) Start(ctx context.Context) {
	if err := s.loadFromCache(); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to load catalog from cache")
	}

	go func() {
		// Initial sync
		s.Sync()

		ticker := time.NewTicker(constants.CATALOG_SYNC_INTERVAL)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sync()
			}
		}
	}()
}

func (s *catalogService) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// hand out a copy, callers may keep it across syncs
	categories := make([]string, len(s.catalog.Categories))
	copy(categories, s.catalog.Categories)
	return categories
}

func (s *catalogService) Colors() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	colors := make([]string, len(s.catalog.Colors))
	copy(colors, s.catalog.Colors)
	return colors
}

func (s *catalogService) Version() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.Version
}

func (s *catalogService) Sync() {
	logger.Logger.Info().Msg("Catalog sync started")

	remoteCatalog, err := s.fetchRemoteCatalog()
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to fetch remote catalog")
		return
	}

	currentVersion := s.Version()
	isNewer, err := isVersionNewer(remoteCatalog.Version, currentVersion)
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("Invalid catalog version format, skipping version check")
		// If the versions don't parse, take the remote when it differs.
		isNewer = remoteCatalog.Version != currentVersion
	}
	if !isNewer {
		logger.Logger.Debug().Str("version", currentVersion).Msg("Catalog already up to date")
		return
	}

	s.mu.Lock()
	s.catalog = *remoteCatalog
	s.mu.Unlock()

	if err := s.saveToCache(remoteCatalog); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to save catalog to cache")
	}

	logger.Logger.Info().Str("version", remoteCatalog.Version).Msg("Catalog sync completed")
}

func (s *catalogService) fetchRemoteCatalog() (*Catalog, error) {
	url := strings.TrimSuffix(s.cfg.GetCatalogURL(), "/")

	resp, err := s.httpClient.Get(url + "/catalog.json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	var remoteCatalog Catalog
	if err := json.NewDecoder(resp.Body).Decode(&remoteCatalog); err != nil {
		return nil, err
	}
	if len(remoteCatalog.Categories) == 0 || len(remoteCatalog.Colors) == 0 {
		return nil, errors.New("remote catalog is missing categories or colors")
	}
	return &remoteCatalog, nil
}

func (s *catalogService) loadFromCache() error {
	cachePath := filepath.Join(s.cfg.GetDefaultWorkDir(), constants.CATALOG_CACHE_DIR, "catalog.json")
	file, err := os.Open(cachePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	var cached Catalog
	if err := json.NewDecoder(file).Decode(&cached); err != nil {
		return err
	}

	isNewer, err := isVersionNewer(cached.Version, s.Version())
	if err != nil || !isNewer {
		return nil
	}

	s.mu.Lock()
	s.catalog = cached
	s.mu.Unlock()
	return nil
}

func (s *catalogService) saveToCache(catalog *Catalog) error {
	cacheDir := filepath.Join(s.cfg.GetDefaultWorkDir(), constants.CATALOG_CACHE_DIR)
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return err
	}

	cachePath := filepath.Join(cacheDir, "catalog.json")
	file, err := os.Create(cachePath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(catalog)
}

func isVersionNewer(v1, v2 string) (bool, error) {
	ver1, err := semver.NewVersion(v1)
	if err != nil {
		return false, err
	}
	ver2, err := semver.NewVersion(v2)
	if err != nil {
		return false, err
	}
	return ver1.GreaterThan(ver2), nil
}
