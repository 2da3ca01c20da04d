package profiles

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dressinghq/dressinghub/config"
	"github.com/dressinghq/dressinghub/db"
	"github.com/dressinghq/dressinghub/db/migrations"
	"github.com/dressinghq/dressinghub/events"
	"github.com/dressinghq/dressinghub/pkg/remote"
	"github.com/dressinghq/dressinghub/state"
	"github.com/dressinghq/dressinghub/storage"
)

type testEventSubscriber struct {
	mtx      sync.Mutex
	received []*events.Event
}

func (s *testEventSubscriber) ConsumeEvent(ctx context.Context, event *events.Event, globalProperties map[string]interface{}) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.received = append(s.received, event)
}

func (s *testEventSubscriber) find(name string) *events.Event {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for _, event := range s.received {
		if event.Event == name {
			return event
		}
	}
	return nil
}

type testSetup struct {
	svc          *profilesService
	gormDB       *gorm.DB
	store        *storage.Store
	profileState *state.Container[state.ProfileState]
	subscriber   *testEventSubscriber
	backendCalls func() [][]remote.ProfileSwitch
}

// newTestSetup wires a profiles service against a temp database and cache. A
// non-empty backend flag starts a stub backend that records pushed switches.
func newTestSetup(t *testing.T, withBackend bool) *testSetup {
	t.Helper()

	gormDB, err := db.NewDB(filepath.Join(t.TempDir(), "test.db"), false)
	require.NoError(t, err)
	require.NoError(t, migrations.Migrate(gormDB))
	t.Cleanup(func() {
		_ = db.Stop(gormDB)
	})

	store := storage.Open(storage.Config{Dir: t.TempDir()}, nil)
	t.Cleanup(func() {
		_ = store.Close()
	})

	cfg, err := config.NewConfig(&config.AppConfig{}, gormDB)
	require.NoError(t, err)

	var callsMtx sync.Mutex
	var calls [][]remote.ProfileSwitch
	if withBackend {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/v1/health" {
				w.WriteHeader(http.StatusOK)
				return
			}
			var payload struct {
				Switches []remote.ProfileSwitch `json:"switches"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			callsMtx.Lock()
			calls = append(calls, payload.Switches)
			callsMtx.Unlock()
			fmt.Fprintf(w, `{"accepted": %d}`, len(payload.Switches))
		}))
		t.Cleanup(server.Close)
		require.NoError(t, cfg.SetBackendURL(server.URL))
	}

	publisher := events.NewEventPublisher()
	subscriber := &testEventSubscriber{}
	publisher.RegisterSubscriber(subscriber)

	profileState := state.NewProfileContainer(store, nil)
	svc := NewProfilesService(gormDB, store, profileState, remote.NewClient(cfg), publisher)

	return &testSetup{
		svc:          svc,
		gormDB:       gormDB,
		store:        store,
		profileState: profileState,
		subscriber:   subscriber,
		backendCalls: func() [][]remote.ProfileSwitch {
			callsMtx.Lock()
			defer callsMtx.Unlock()
			return calls
		},
	}
}

func TestCreateProfile(t *testing.T) {
	t.Parallel()

	setup := newTestSetup(t, false)
	ctx := context.TODO()

	profile, err := setup.svc.CreateProfile(ctx, "Summer")
	require.NoError(t, err)
	assert.NotEmpty(t, profile.ID)
	assert.Equal(t, "Summer", profile.Name)

	profiles, err := setup.svc.ListProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, profile.ID, profiles[0].ID)

	assert.Eventually(t, func() bool {
		return setup.subscriber.find("profile_created") != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCreateProfile_RejectsInvalidName(t *testing.T) {
	t.Parallel()

	setup := newTestSetup(t, false)

	_, err := setup.svc.CreateProfile(context.TODO(), "")
	assert.Error(t, err)

	_, err = setup.svc.CreateProfile(context.TODO(), "  ")
	assert.Error(t, err)
}

func TestCreateProfile_EnforcesLimit(t *testing.T) {
	t.Parallel()

	setup := newTestSetup(t, false)
	ctx := context.TODO()

	for i := 0; i < 5; i++ {
		_, err := setup.svc.CreateProfile(ctx, fmt.Sprintf("Profile %d", i))
		require.NoError(t, err)
	}

	_, err := setup.svc.CreateProfile(ctx, "One too many")
	assert.ErrorIs(t, err, ErrProfileLimitReached)
}

func TestRenameProfile(t *testing.T) {
	t.Parallel()

	setup := newTestSetup(t, false)
	ctx := context.TODO()

	profile, err := setup.svc.CreateProfile(ctx, "Work")
	require.NoError(t, err)

	renamed, err := setup.svc.RenameProfile(ctx, profile.ID, "Office")
	require.NoError(t, err)
	assert.Equal(t, "Office", renamed.Name)

	reloaded, err := setup.svc.GetProfile(ctx, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, "Office", reloaded.Name)

	_, err = setup.svc.RenameProfile(ctx, "missing", "Anything")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestDeleteProfile(t *testing.T) {
	t.Parallel()

	setup := newTestSetup(t, false)
	ctx := context.TODO()

	keep, err := setup.svc.CreateProfile(ctx, "Keep")
	require.NoError(t, err)
	doomed, err := setup.svc.CreateProfile(ctx, "Doomed")
	require.NoError(t, err)

	require.NoError(t, setup.gormDB.Create(&db.WardrobeItem{
		ID:        "item-1",
		ProfileID: doomed.ID,
		Name:      "Blue shirt",
	}).Error)

	// A stale cache snapshot and a pending marker for the doomed profile
	// must both go away with it.
	require.NoError(t, storage.SetJSON(ctx, setup.store, storage.KeyWardrobeCache, map[string]interface{}{
		"profileId": doomed.ID,
		"total":     1,
	}))
	setup.profileState.Update(ctx, func(profileState *state.ProfileState) {
		profileState.ActiveProfileID = keep.ID
		profileState.PendingSwitches = []state.PendingSwitch{
			{ProfileID: doomed.ID, RequestedAt: 1},
			{ProfileID: keep.ID, RequestedAt: 2},
		}
	})

	require.NoError(t, setup.svc.DeleteProfile(ctx, doomed.ID))

	_, err = setup.svc.GetProfile(ctx, doomed.ID)
	assert.ErrorIs(t, err, ErrProfileNotFound)

	var itemCount int64
	require.NoError(t, setup.gormDB.Model(&db.WardrobeItem{}).Where("profile_id = ?", doomed.ID).Count(&itemCount).Error)
	assert.Zero(t, itemCount)

	cached, err := storage.Has(ctx, setup.store, storage.KeyWardrobeCache)
	require.NoError(t, err)
	assert.False(t, cached)

	pending := setup.profileState.Get().PendingSwitches
	require.Len(t, pending, 1)
	assert.Equal(t, keep.ID, pending[0].ProfileID)
}

func TestDeleteProfile_RejectsActiveProfile(t *testing.T) {
	t.Parallel()

	setup := newTestSetup(t, false)
	ctx := context.TODO()

	profile, err := setup.svc.CreateProfile(ctx, "Active")
	require.NoError(t, err)

	_, err = setup.svc.SwitchProfile(ctx, profile.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, setup.svc.DeleteProfile(ctx, profile.ID), ErrProfileActive)
}

func TestSwitchProfile_PushesWhenBackendReachable(t *testing.T) {
	t.Parallel()

	setup := newTestSetup(t, true)
	ctx := context.TODO()

	profile, err := setup.svc.CreateProfile(ctx, "Travel")
	require.NoError(t, err)

	profileState, err := setup.svc.SwitchProfile(ctx, profile.ID)
	require.NoError(t, err)

	assert.Equal(t, profile.ID, profileState.ActiveProfileID)
	assert.Empty(t, profileState.PendingSwitches)
	assert.Equal(t, profile.ID, setup.svc.ActiveProfileID())

	calls := setup.backendCalls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0], 1)
	assert.Equal(t, profile.ID, calls[0][0].ProfileID)
}

func TestSwitchProfile_RecordsPendingWhenOffline(t *testing.T) {
	t.Parallel()

	setup := newTestSetup(t, false)
	ctx := context.TODO()

	profile, err := setup.svc.CreateProfile(ctx, "Offline")
	require.NoError(t, err)

	profileState, err := setup.svc.SwitchProfile(ctx, profile.ID)
	require.NoError(t, err)

	assert.Equal(t, profile.ID, profileState.ActiveProfileID)
	require.Len(t, profileState.PendingSwitches, 1)
	assert.Equal(t, profile.ID, profileState.PendingSwitches[0].ProfileID)
	assert.Greater(t, profileState.PendingSwitches[0].RequestedAt, int64(0))
}

func TestSwitchProfile_NotFound(t *testing.T) {
	t.Parallel()

	setup := newTestSetup(t, false)

	_, err := setup.svc.SwitchProfile(context.TODO(), "missing")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}
