package tests

import (
	"context"
	"testing"

	"github.com/dressinghq/dressinghub/service"
	"github.com/dressinghq/dressinghub/storage"
)

// CreateTestService boots a full service against a throwaway workdir. The
// catalog and backend URLs are blanked so nothing leaves the process. Tests
// using it must not run in parallel because configuration comes from the
// process environment.
func CreateTestService(t *testing.T) (service.Service, error) {
	t.Helper()

	t.Setenv("WORK_DIR", t.TempDir())
	t.Setenv("LOG_TO_FILE", "false")
	t.Setenv("CATALOG_URL", "")
	t.Setenv("BACKEND_URL", "")
	t.Setenv("AUTO_UNLOCK_PASSWORD", "")
	t.Setenv("STORAGE_ENCRYPTION_KEY", "")

	ctx, cancel := context.WithCancel(context.Background())
	svc, err := service.NewService(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	t.Cleanup(func() {
		cancel()
		svc.Shutdown()
		storage.SetDefault(nil)
	})

	return svc, nil
}
