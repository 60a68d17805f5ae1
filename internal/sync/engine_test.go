package sync

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sakif/prompt-manager/internal/apperror"
	"github.com/sakif/prompt-manager/internal/model"
	"github.com/sakif/prompt-manager/internal/service"
	"github.com/sakif/prompt-manager/internal/storage"
)

// fakeRemote implements RemoteStore with pluggable behavior per call. Tests
// only set the functions they expect to be hit; an unexpected call fails loud.
type fakeRemote struct {
	createFn  func(ctx context.Context, token string, body []byte) (string, string, error)
	fetchFn   func(ctx context.Context, token, id, etag string) (*Document, error)
	replaceFn func(ctx context.Context, token, id string, body []byte) (string, error)
}

func (f *fakeRemote) Create(ctx context.Context, token string, body []byte) (string, string, error) {
	if f.createFn == nil {
		return "", "", errors.New("unexpected Create call")
	}
	return f.createFn(ctx, token, body)
}

func (f *fakeRemote) Fetch(ctx context.Context, token, id, etag string) (*Document, error) {
	if f.fetchFn == nil {
		return nil, errors.New("unexpected Fetch call")
	}
	return f.fetchFn(ctx, token, id, etag)
}

func (f *fakeRemote) Replace(ctx context.Context, token, id string, body []byte) (string, error) {
	if f.replaceFn == nil {
		return "", errors.New("unexpected Replace call")
	}
	return f.replaceFn(ctx, token, id, body)
}

type engineFixture struct {
	engine  *Engine
	state   *StateStore
	remote  *fakeRemote
	prompts *service.PromptService
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	store := storage.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	prompts := service.NewPromptService(store, logger)
	settings := service.NewSettingsService(store, logger)
	transfer := service.NewTransferService(prompts, settings, logger)
	state := NewStateStore(store, logger)
	remote := &fakeRemote{}
	return &engineFixture{
		engine:  NewEngine(state, remote, transfer, logger),
		state:   state,
		remote:  remote,
		prompts: prompts,
	}
}

// configure stores a token and gist binding so sync operations can run.
func (f *engineFixture) configure(t *testing.T, gistID string) {
	t.Helper()
	require.NoError(t, f.state.SetToken(context.Background(), "ghp_test"))
	if gistID != "" {
		require.NoError(t, f.state.SetGistID(context.Background(), gistID))
	}
}

// remotePayload builds the wire form of a sync payload holding the given
// prompts.
func remotePayload(t *testing.T, prompts ...model.Prompt) []byte {
	t.Helper()
	body, err := json.Marshal(model.SyncPayload{
		Version:   1,
		UpdatedAt: 1700000000000,
		DeviceID:  "other-device",
		Data:      &model.ExportDocument{Prompts: prompts},
	})
	require.NoError(t, err)
	return body
}

func TestPull_NotConfigured(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.Pull(context.Background())
	require.ErrorIs(t, err, apperror.ErrConfiguration)
}

func TestPull_TokenWithoutBinding(t *testing.T) {
	f := newEngineFixture(t)
	f.configure(t, "")

	_, err := f.engine.Pull(context.Background())
	require.ErrorIs(t, err, apperror.ErrConfiguration)
}

func TestPull_ReplacesLocalData(t *testing.T) {
	f := newEngineFixture(t)
	f.configure(t, "gist-1")

	_, err := f.prompts.Add(context.Background(), "local only", "will be replaced", nil)
	require.NoError(t, err)

	f.remote.fetchFn = func(_ context.Context, token, id, etag string) (*Document, error) {
		require.Equal(t, "ghp_test", token)
		require.Equal(t, "gist-1", id)
		return &Document{
			Body: remotePayload(t, model.Prompt{ID: "r1", Title: "remote", Content: "c", CreateTime: 5}),
			ETag: `W/"rev2"`,
		}, nil
	}

	updated, err := f.engine.Pull(context.Background())
	require.NoError(t, err)
	require.True(t, updated)

	all, err := f.prompts.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "remote", all[0].Title)

	st, err := f.state.State(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.SyncOK, st.Status)
	require.Equal(t, `W/"rev2"`, st.LastETag)
	require.NotZero(t, st.LastSyncAt)
}

func TestPull_NotModified(t *testing.T) {
	f := newEngineFixture(t)
	f.configure(t, "gist-1")

	_, err := f.state.Update(context.Background(), func(st *model.SyncState) {
		st.LastETag = `W/"rev1"`
	})
	require.NoError(t, err)

	_, err = f.prompts.Add(context.Background(), "untouched", "stays put", nil)
	require.NoError(t, err)

	f.remote.fetchFn = func(_ context.Context, _, _, etag string) (*Document, error) {
		require.Equal(t, `W/"rev1"`, etag, "the stored etag should ride the conditional request")
		return &Document{ETag: etag, NotModified: true}, nil
	}

	updated, err := f.engine.Pull(context.Background())
	require.NoError(t, err)
	require.False(t, updated)

	// No local mutation on a 304.
	all, err := f.prompts.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "untouched", all[0].Title)

	st, err := f.state.State(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.SyncOK, st.Status)
	require.NotZero(t, st.LastSyncAt)
}

func TestPull_RemoteFailurePersistsErrorState(t *testing.T) {
	f := newEngineFixture(t)
	f.configure(t, "gist-1")

	f.remote.fetchFn = func(_ context.Context, _, _, _ string) (*Document, error) {
		return nil, apperror.RemoteFailed("gist gist-1 not found")
	}

	_, err := f.engine.Pull(context.Background())
	require.ErrorIs(t, err, apperror.ErrRemote)

	st, serr := f.state.State(context.Background())
	require.NoError(t, serr)
	require.Equal(t, model.SyncError, st.Status)
	require.Contains(t, st.LastError, "not found")
}

func TestPull_MalformedRemoteDocument(t *testing.T) {
	f := newEngineFixture(t)
	f.configure(t, "gist-1")

	f.remote.fetchFn = func(_ context.Context, _, _, _ string) (*Document, error) {
		return &Document{Body: []byte("not a payload"), ETag: `W/"x"`}, nil
	}

	_, err := f.engine.Pull(context.Background())
	require.ErrorIs(t, err, apperror.ErrRemote)
}

func TestPush_ReplacesRemote(t *testing.T) {
	f := newEngineFixture(t)
	f.configure(t, "gist-1")

	_, err := f.prompts.Add(context.Background(), "local", "goes up", nil)
	require.NoError(t, err)

	var pushed []byte
	f.remote.replaceFn = func(_ context.Context, token, id string, body []byte) (string, error) {
		require.Equal(t, "ghp_test", token)
		require.Equal(t, "gist-1", id)
		pushed = body
		return `W/"rev3"`, nil
	}

	require.NoError(t, f.engine.Push(context.Background()))

	var payload model.SyncPayload
	require.NoError(t, json.Unmarshal(pushed, &payload))
	require.NotNil(t, payload.Data)
	require.Len(t, payload.Data.Prompts, 1)
	require.Equal(t, "local", payload.Data.Prompts[0].Title)
	require.NotEmpty(t, payload.DeviceID)

	st, err := f.state.State(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.SyncOK, st.Status)
	require.Equal(t, `W/"rev3"`, st.LastETag)
}

func TestBind_CreatesAndRecordsBinding(t *testing.T) {
	f := newEngineFixture(t)
	f.configure(t, "") // token only — bind needs no prior binding

	f.remote.createFn = func(_ context.Context, token string, body []byte) (string, string, error) {
		require.Equal(t, "ghp_test", token)
		var payload model.SyncPayload
		require.NoError(t, json.Unmarshal(body, &payload))
		require.NotNil(t, payload.Data, "the new gist is seeded with local data")
		return "gist-new", `W/"rev1"`, nil
	}

	id, err := f.engine.Bind(context.Background())
	require.NoError(t, err)
	require.Equal(t, "gist-new", id)

	st, err := f.state.State(context.Background())
	require.NoError(t, err)
	require.Equal(t, "gist-new", st.GistID)
	require.Equal(t, `W/"rev1"`, st.LastETag)
	require.Equal(t, model.SyncOK, st.Status)
}

func TestValidateBinding(t *testing.T) {
	f := newEngineFixture(t)
	f.configure(t, "gist-1")

	f.remote.fetchFn = func(_ context.Context, _, _, _ string) (*Document, error) {
		return &Document{NotModified: true}, nil
	}

	valid, err := f.engine.ValidateBinding(context.Background())
	require.NoError(t, err)
	require.True(t, valid)

	f.remote.fetchFn = func(_ context.Context, _, _, _ string) (*Document, error) {
		return nil, apperror.RemoteFailed("gone")
	}

	_, err = f.engine.ValidateBinding(context.Background())
	require.ErrorIs(t, err, apperror.ErrRemote)
}

func TestSingleFlight(t *testing.T) {
	f := newEngineFixture(t)
	f.configure(t, "gist-1")

	entered := make(chan struct{})
	release := make(chan struct{})
	f.remote.fetchFn = func(_ context.Context, _, _, _ string) (*Document, error) {
		close(entered)
		<-release
		return &Document{NotModified: true}, nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.engine.Pull(context.Background())
		done <- err
	}()

	<-entered // the first pull is mid-flight now

	err := f.engine.Push(context.Background())
	require.ErrorIs(t, err, apperror.ErrConflict, "a second operation must be rejected while one runs")

	close(release)
	require.NoError(t, <-done)

	// Once the first operation finishes, the engine accepts work again.
	f.remote.replaceFn = func(_ context.Context, _, _ string, _ []byte) (string, error) {
		return `W/"rev2"`, nil
	}
	require.NoError(t, f.engine.Push(context.Background()))
}

func TestInitOnLoad_SkipsWhenUnconfigured(t *testing.T) {
	f := newEngineFixture(t)

	// No token, no binding: must be a silent no-op, no remote calls.
	f.engine.InitOnLoad(context.Background())

	st, err := f.state.State(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.SyncIdle, st.Status)
}

func TestInitOnLoad_SwallowsFailure(t *testing.T) {
	f := newEngineFixture(t)
	f.configure(t, "gist-1")

	f.remote.fetchFn = func(_ context.Context, _, _, _ string) (*Document, error) {
		return nil, apperror.RemoteFailed("network down")
	}

	// Must not panic or propagate; the failure lands in the persisted state.
	f.engine.InitOnLoad(context.Background())

	st, err := f.state.State(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.SyncError, st.Status)
	require.Contains(t, st.LastError, "network down")
}

func TestInitOnLoad_PullsWhenConfigured(t *testing.T) {
	f := newEngineFixture(t)
	f.configure(t, "gist-1")

	f.remote.fetchFn = func(_ context.Context, _, _, _ string) (*Document, error) {
		return &Document{
			Body: remotePayload(t, model.Prompt{ID: "r1", Title: "from cloud", Content: "c"}),
			ETag: `W/"rev1"`,
		}, nil
	}

	f.engine.InitOnLoad(context.Background())

	all, err := f.prompts.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "from cloud", all[0].Title)
}
