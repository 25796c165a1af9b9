package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/scopulus/internal/models"
)

// fakeAPI is a minimal dispatch API for client tests.
type fakeAPI struct {
	t             *testing.T
	token         string
	loginCount    int
	pollCount     int
	resultCount   int
	rejectToken   bool // next authenticated call returns 401 once
	failResults   int  // number of result POSTs to fail with 500
	assignment    *models.JobAssignment
	lastResult    *models.JobResult
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		f.loginCount++
		var creds map[string]string
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&creds))
		if creds["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.token = "token-v" + time.Now().Format("150405.000000")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"token":      f.token,
			"expires_at": time.Now().Add(time.Hour),
		})
	})
	mux.HandleFunc("/jobs/poll", func(w http.ResponseWriter, r *http.Request) {
		f.pollCount++
		if !f.authorized(w, r) {
			return
		}
		if f.assignment == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		json.NewEncoder(w).Encode(f.assignment)
	})
	mux.HandleFunc("/jobs/assignments/", func(w http.ResponseWriter, r *http.Request) {
		f.resultCount++
		if !f.authorized(w, r) {
			return
		}
		if f.failResults > 0 {
			f.failResults--
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var result models.JobResult
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&result))
		f.lastResult = &result
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (f *fakeAPI) authorized(w http.ResponseWriter, r *http.Request) bool {
	if f.rejectToken {
		f.rejectToken = false
		w.WriteHeader(http.StatusUnauthorized)
		return false
	}
	if r.Header.Get("Authorization") != "Bearer "+f.token {
		w.WriteHeader(http.StatusUnauthorized)
		return false
	}
	return true
}

func newTestClient(t *testing.T, f *fakeAPI) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(f.handler())
	t.Cleanup(server.Close)

	client := NewClient(server.URL, "worker", "secret", WithRateLimit(1000))
	client.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return client, server
}

func TestLogin_Success(t *testing.T) {
	fake := &fakeAPI{t: t}
	client, _ := newTestClient(t, fake)

	require.NoError(t, client.Login(context.Background()))
	assert.Equal(t, 1, fake.loginCount)
	require.NotNil(t, client.token)
	assert.True(t, client.token.Valid())
}

func TestLogin_CredentialRejection(t *testing.T) {
	fake := &fakeAPI{t: t}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	client := NewClient(server.URL, "worker", "wrong", WithRateLimit(1000))
	err := client.Login(context.Background())
	require.Error(t, err)
	assert.Equal(t, models.ErrKindAuthFailure, models.KindOf(err))
}

func TestPollJob_NoJob(t *testing.T) {
	fake := &fakeAPI{t: t}
	client, _ := newTestClient(t, fake)

	assignment, err := client.PollJob(context.Background(), []models.JobType{models.JobTypeTest})
	require.NoError(t, err)
	assert.Nil(t, assignment)
}

func TestPollJob_Assignment(t *testing.T) {
	fake := &fakeAPI{t: t, assignment: &models.JobAssignment{
		AssignmentID: "a-1",
		JobID:        "j-1",
		Type:         models.JobTypeTest,
		InputPayload: json.RawMessage(`{"id":42}`),
		StorageURI:   "s3://bucket/jobs/j-1",
	}}
	client, _ := newTestClient(t, fake)

	assignment, err := client.PollJob(context.Background(), []models.JobType{models.JobTypeTest})
	require.NoError(t, err)
	require.NotNil(t, assignment)
	assert.Equal(t, "a-1", assignment.AssignmentID)
	assert.Equal(t, models.JobTypeTest, assignment.Type)
}

func TestPollJob_RefreshOn401RetriesExactlyOnce(t *testing.T) {
	fake := &fakeAPI{t: t}
	client, _ := newTestClient(t, fake)
	require.NoError(t, client.Login(context.Background()))

	fake.rejectToken = true
	assignment, err := client.PollJob(context.Background(), []models.JobType{models.JobTypeTest})
	require.NoError(t, err)
	assert.Nil(t, assignment)

	// One rejected poll, one re-login, one retried poll.
	assert.Equal(t, 2, fake.pollCount)
	assert.Equal(t, 2, fake.loginCount)
}

func TestSubmitResult_Success(t *testing.T) {
	fake := &fakeAPI{t: t}
	client, _ := newTestClient(t, fake)

	result := models.SucceededResult(json.RawMessage(`{}`))
	require.NoError(t, client.SubmitResult(context.Background(), "a-1", result))
	require.NotNil(t, fake.lastResult)
	assert.Equal(t, models.ResultSucceeded, fake.lastResult.Status)
}

func TestSubmitResult_RetriesTransientThenSucceeds(t *testing.T) {
	fake := &fakeAPI{t: t, failResults: 2}
	client, _ := newTestClient(t, fake)

	result := models.FailedResult(models.ErrKindInternal, "boom")
	require.NoError(t, client.SubmitResult(context.Background(), "a-1", result))
	assert.Equal(t, 3, fake.resultCount)
}

func TestSubmitResult_ExhaustsAttempts(t *testing.T) {
	fake := &fakeAPI{t: t, failResults: 5}
	client, _ := newTestClient(t, fake)

	err := client.SubmitResult(context.Background(), "a-1", models.SucceededResult(nil))
	require.Error(t, err)
	assert.Equal(t, models.ErrKindTransient, models.KindOf(err))
	assert.Equal(t, 3, fake.resultCount)
}

func TestTokenExpiry_OpaqueToken(t *testing.T) {
	assert.True(t, tokenExpiry("not-a-jwt").IsZero())
}
