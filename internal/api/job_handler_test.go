package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phelanor/goalforge/internal/domain"
	"github.com/phelanor/goalforge/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockManager implements JobManager with configurable behavior.
type mockManager struct {
	submitID    uuid.UUID
	submitErr   error
	state       *domain.ProcessingState
	getErr      error
	cancelErr   error
	cancelledID uuid.UUID
}

func (m *mockManager) Submit(ctx context.Context, ownerID uuid.UUID, jobType domain.JobType, targetID uuid.UUID) (uuid.UUID, error) {
	if m.submitErr != nil {
		return uuid.Nil, m.submitErr
	}
	return m.submitID, nil
}

func (m *mockManager) GetStatus(ctx context.Context, id uuid.UUID) (*domain.ProcessingState, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.state, nil
}

func (m *mockManager) Cancel(ctx context.Context, id uuid.UUID) error {
	m.cancelledID = id
	return m.cancelErr
}

// newTestRouter mounts the handler under /api the way the server does.
func newTestRouter(manager JobManager) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/api", NewJobHandler(manager).Routes)
	return r
}

func submitBody(t *testing.T, ownerID, jobType, targetID string) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(map[string]string{
		"owner_id":  ownerID,
		"job_type":  jobType,
		"target_id": targetID,
	})
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func TestSubmitJobAccepted(t *testing.T) {
	jobID := uuid.New()
	router := newTestRouter(&mockManager{submitID: jobID})

	req := httptest.NewRequest(
		http.MethodPost,
		"/api/jobs",
		submitBody(t, uuid.New().String(), "subgoal_generation", uuid.New().String()),
	)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp SubmitJobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, jobID.String(), resp.JobID)
	assert.Equal(t, "pending", resp.Status)
}

func TestSubmitJobValidation(t *testing.T) {
	router := newTestRouter(&mockManager{submitID: uuid.New()})

	tests := []struct {
		name string
		body *bytes.Reader
	}{
		{"malformed json", bytes.NewReader([]byte("{not json"))},
		{"missing owner", submitBody(t, "", "subgoal_generation", uuid.New().String())},
		{"unknown job type", submitBody(t, uuid.New().String(), "essay_generation", uuid.New().String())},
		{"non-uuid target", submitBody(t, uuid.New().String(), "task_generation", "goal-42")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/jobs", tc.body)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSubmitJobConflict(t *testing.T) {
	router := newTestRouter(&mockManager{
		submitErr: fmt.Errorf("%w: job %s", store.ErrActiveJobExists, uuid.New()),
	})

	req := httptest.NewRequest(
		http.MethodPost,
		"/api/jobs",
		submitBody(t, uuid.New().String(), "plan_generation", uuid.New().String()),
	)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSubmitJobInternalError(t *testing.T) {
	router := newTestRouter(&mockManager{submitErr: fmt.Errorf("connection refused")})

	req := httptest.NewRequest(
		http.MethodPost,
		"/api/jobs",
		submitBody(t, uuid.New().String(), "task_generation", uuid.New().String()),
	)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotContains(t, resp.Error, "connection refused")
}

func TestGetJob(t *testing.T) {
	now := time.Now().UTC()
	state := &domain.ProcessingState{
		ID:        uuid.New(),
		OwnerID:   uuid.New(),
		JobType:   domain.JobTypeSubgoals,
		Status:    domain.ProcessingStatusProcessing,
		TargetID:  uuid.New(),
		Progress:  40,
		CreatedAt: now,
		UpdatedAt: now,
	}
	router := newTestRouter(&mockManager{state: state})

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+state.ID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp JobStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, state.ID.String(), resp.JobID)
	assert.Equal(t, "processing", resp.Status)
	assert.Equal(t, 40, resp.Progress)
	assert.Nil(t, resp.Result)
}

func TestGetJobNotFound(t *testing.T) {
	router := newTestRouter(&mockManager{getErr: store.ErrStateNotFound})

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetJobInvalidID(t *testing.T) {
	router := newTestRouter(&mockManager{})

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelJob(t *testing.T) {
	manager := &mockManager{}
	router := newTestRouter(manager)
	jobID := uuid.New()

	req := httptest.NewRequest(http.MethodDelete, "/api/jobs/"+jobID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, jobID, manager.cancelledID)
}

func TestCancelJobNotFound(t *testing.T) {
	router := newTestRouter(&mockManager{cancelErr: store.ErrStateNotFound})

	req := httptest.NewRequest(http.MethodDelete, "/api/jobs/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
