package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mixnote/mixnote/internal/model"
)

func TestHealthcheck_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/healthcheck", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	assert.NoError(t, c.Healthcheck(context.Background()))
}

func TestHealthcheck_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	err := c.Healthcheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestListMarkers_SortsResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/recordings/7/markers", r.URL.Path)
		// Deliberately out of order
		json.NewEncoder(w).Encode([]model.Marker{
			{TimestampSeconds: 100},
			{TimestampSeconds: 10},
			{TimestampSeconds: 42},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	markers, err := c.ListMarkers(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, markers, 3)
	assert.Equal(t, 10.0, markers[0].TimestampSeconds)
	assert.Equal(t, 42.0, markers[1].TimestampSeconds)
	assert.Equal(t, 100.0, markers[2].TimestampSeconds)
}

func TestCreateMarker_CopiesServerFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/recordings/7/markers", r.URL.Path)
		assert.Equal(t, "Bearer sekrit", r.Header.Get("Authorization"))

		var in model.Marker
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		in.ID = 41
		json.NewEncoder(w).Encode(in)
	}))
	defer srv.Close()

	c := New(srv.URL, "sekrit")
	m := &model.Marker{RecordingID: 7, TimestampSeconds: 42, Type: model.MarkerNote}
	require.NoError(t, c.CreateMarker(context.Background(), m))
	assert.Equal(t, uint(41), m.ID)
	assert.Equal(t, 42.0, m.TimestampSeconds)
}

func TestUpdateMarker_SendsPatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/v1/markers/41", r.URL.Path)

		var patch map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
		assert.Contains(t, patch, "timestampSeconds")
		assert.NotContains(t, patch, "text", "nil patch fields must be omitted")

		json.NewEncoder(w).Encode(model.Marker{TimestampSeconds: 50})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	ts := 50.0
	updated, err := c.UpdateMarker(context.Background(), 41, model.MarkerPatch{TimestampSeconds: &ts})
	require.NoError(t, err)
	assert.Equal(t, 50.0, updated.TimestampSeconds)
}

func TestDeleteMarker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/markers/41", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	assert.NoError(t, c.DeleteMarker(context.Background(), 41))
}

func TestErrorStatusSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	err := c.DeleteMarker(context.Background(), 41)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestCreateTask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/tasks", r.URL.Path)

		var in model.Task
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		in.ID = 9
		json.NewEncoder(w).Encode(in)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	task := &model.Task{LinkedMarkerID: 41, LinkedTimestampSeconds: 42, Category: model.DefaultTaskCategory}
	require.NoError(t, c.CreateTask(context.Background(), task))
	assert.Equal(t, uint(9), task.ID)
	assert.Equal(t, uint(41), task.LinkedMarkerID)
}

func TestBaseURLTrailingSlashTrimmed(t *testing.T) {
	c := New("http://example.com/", "")
	assert.Equal(t, "http://example.com", c.baseURL)
}
