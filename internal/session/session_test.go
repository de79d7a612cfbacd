package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ledgeros/console-bfa-go/internal/session"
)

// memStore is an in-memory port.TokenStore.
type memStore struct {
	mu      sync.Mutex
	token   string
	loadErr error
	deletes int
}

func (m *memStore) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.loadErr
}

func (m *memStore) Save(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *memStore) Delete(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.deletes++
	return nil
}

func TestInit_LoadsPersistedToken(t *testing.T) {
	store := &memStore{token: "persisted"}
	s := session.New(store, zap.NewNop())

	require.NoError(t, s.Init(context.Background()))
	assert.Equal(t, "persisted", s.Token())
	assert.True(t, s.Authenticated())
}

func TestInit_StoreFailureLeavesLoggedOut(t *testing.T) {
	store := &memStore{loadErr: errors.New("disk gone")}
	s := session.New(store, zap.NewNop())

	assert.Error(t, s.Init(context.Background()))
	assert.False(t, s.Authenticated())
}

func TestSetAndClear(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	s := session.New(store, zap.NewNop())

	g0 := s.Generation()
	s.Set(ctx, "abc")
	assert.Equal(t, "abc", s.Token())
	assert.Equal(t, "abc", store.token)
	assert.Greater(t, s.Generation(), g0)

	s.Set(ctx, "def")
	assert.Equal(t, "def", s.Token(), "set replaces the live token")

	g1 := s.Generation()
	s.Clear(ctx)
	assert.Empty(t, s.Token())
	assert.Empty(t, store.token)
	assert.Greater(t, s.Generation(), g1)
}

func TestExpire_OnlyLiveToken(t *testing.T) {
	ctx := context.Background()
	s := session.New(&memStore{}, zap.NewNop())
	s.Set(ctx, "new")

	assert.False(t, s.Expire(ctx, "old"), "a stale token must not end the new session")
	assert.Equal(t, "new", s.Token())

	assert.True(t, s.Expire(ctx, "new"))
	assert.False(t, s.Authenticated())
	assert.False(t, s.Expire(ctx, "new"))
}

func TestExpire_ConcurrentRejectionsExpireOnce(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	s := session.New(store, zap.NewNop())
	s.Set(ctx, "tok")

	var hooks int32
	s.OnExpire(func() { atomic.AddInt32(&hooks, 1) })

	var winners int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Expire(ctx, "tok") {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, winners)
	assert.EqualValues(t, 1, hooks)
	assert.Equal(t, 1, store.deletes)
}

func TestTeardown_KeepsPersistedToken(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	s := session.New(store, zap.NewNop())
	s.Set(ctx, "tok")

	s.Teardown(ctx)

	assert.False(t, s.Authenticated())
	assert.Equal(t, "tok", store.token)
}
