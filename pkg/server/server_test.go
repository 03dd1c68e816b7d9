package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/galleria-app/galleria/pkg/logger"
	"github.com/galleria-app/galleria/pkg/server/auth"
	"github.com/galleria-app/galleria/pkg/storage"
	"github.com/galleria-app/galleria/pkg/storage/sqlcommon"
	"github.com/galleria-app/galleria/pkg/storage/sqlite"
)

const testJWTSecret = "test-secret"

func newTestServer(t *testing.T) (*gin.Engine, storage.GalleryDatastore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	uri := "file:" + filepath.Join(t.TempDir(), "galleria.db")

	err := sqlite.NewMigrationProvider().RunMigrations(context.Background(), storage.MigrationConfig{
		Engine:  "sqlite",
		URI:     uri,
		Timeout: 30 * time.Second,
	})
	require.NoError(t, err)

	ds, err := sqlite.New(uri, sqlcommon.NewConfig())
	require.NoError(t, err)
	t.Cleanup(ds.Close)

	srv := New(ds, logger.NewNoopLogger(), Config{JWTSecret: testJWTSecret})
	return srv.Router(), ds
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	claims := &auth.Claims{
		Username: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, router *gin.Engine, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var payload *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewBuffer(raw)
	} else {
		payload = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, userID))
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func TestAuthentication(t *testing.T) {
	router, _ := newTestServer(t)

	resp := doJSON(t, router, http.MethodGet, "/api/items", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)

	resp = doJSON(t, router, http.MethodGet, "/api/items", "alice", nil)
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestItemLifecycleOverHTTP(t *testing.T) {
	router, _ := newTestServer(t)

	resp := doJSON(t, router, http.MethodPost, "/api/items", "alice", gin.H{
		"title":      "first",
		"body":       "body",
		"visibility": "public",
		"category":   "art",
	})
	require.Equal(t, http.StatusCreated, resp.Code)
	created := decodeBody(t, resp)
	itemID := created["id"].(string)
	require.NotEmpty(t, itemID)

	resp = doJSON(t, router, http.MethodPost, "/api/items", "alice", gin.H{"body": "no title"})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, "validation_error", decodeBody(t, resp)["error"])

	resp = doJSON(t, router, http.MethodGet, "/api/items/"+itemID, "bob", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = doJSON(t, router, http.MethodPut, "/api/items/"+itemID, "bob", gin.H{
		"title":      "hijacked",
		"body":       "body",
		"visibility": "public",
	})
	require.Equal(t, http.StatusForbidden, resp.Code)

	resp = doJSON(t, router, http.MethodGet, "/api/items/unknown", "alice", nil)
	require.Equal(t, http.StatusNotFound, resp.Code)

	resp = doJSON(t, router, http.MethodPost, "/api/items/"+itemID+"/favorite", "bob", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	body := decodeBody(t, resp)
	require.Equal(t, itemID, body["id"])
	require.Equal(t, true, body["favorite"])

	resp = doJSON(t, router, http.MethodPost, "/api/items/"+itemID+"/favorite", "bob", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, false, decodeBody(t, resp)["favorite"])

	resp = doJSON(t, router, http.MethodPut, "/api/items/"+itemID+"/rating", "bob", gin.H{"rating": 9})
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = doJSON(t, router, http.MethodPut, "/api/items/"+itemID+"/rating", "bob", gin.H{"rating": 4})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = doJSON(t, router, http.MethodDelete, "/api/items/"+itemID, "alice", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, true, decodeBody(t, resp)["success"])

	resp = doJSON(t, router, http.MethodGet, "/api/items/"+itemID, "alice", nil)
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestPrivateItemsAreHiddenOverHTTP(t *testing.T) {
	router, _ := newTestServer(t)

	resp := doJSON(t, router, http.MethodPost, "/api/items", "alice", gin.H{
		"title": "secret", "body": "body",
	})
	require.Equal(t, http.StatusCreated, resp.Code)
	itemID := decodeBody(t, resp)["id"].(string)

	resp = doJSON(t, router, http.MethodGet, "/api/items/"+itemID, "bob", nil)
	require.Equal(t, http.StatusNotFound, resp.Code, "a private item must look nonexistent to strangers")

	resp = doJSON(t, router, http.MethodGet, "/api/items?tab=mine", "alice", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	body := decodeBody(t, resp)
	pagination := body["pagination"].(map[string]any)
	require.EqualValues(t, 1, pagination["total"])
}

func TestListValidationOverHTTP(t *testing.T) {
	router, _ := newTestServer(t)

	resp := doJSON(t, router, http.MethodGet, "/api/items?sort=secret_column", "alice", nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, "validation_error", decodeBody(t, resp)["error"])

	resp = doJSON(t, router, http.MethodGet, "/api/items?limit=0", "alice", nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestTournamentConflictCodesOverHTTP(t *testing.T) {
	router, ds := newTestServer(t)
	now := time.Now().UTC()

	tournament := &storage.Tournament{
		Title:              "showcase",
		Status:             storage.TournamentActive,
		StartDate:          now.Add(-time.Hour),
		EndDate:            now.Add(48 * time.Hour),
		SubmissionDeadline: now.Add(24 * time.Hour),
		MaxParticipants:    1,
	}
	require.NoError(t, ds.CreateTournament(context.Background(), tournament))

	resp := doJSON(t, router, http.MethodGet, "/api/tournaments/"+tournament.ID+"/participation", "alice", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Nil(t, decodeBody(t, resp)["participation"])

	resp = doJSON(t, router, http.MethodPost, "/api/tournaments/"+tournament.ID+"/register", "alice", nil)
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = doJSON(t, router, http.MethodPost, "/api/tournaments/"+tournament.ID+"/register", "alice", nil)
	require.Equal(t, http.StatusConflict, resp.Code)
	require.Equal(t, "duplicate_registration", decodeBody(t, resp)["code"])

	resp = doJSON(t, router, http.MethodPost, "/api/tournaments/"+tournament.ID+"/register", "bob", nil)
	require.Equal(t, http.StatusConflict, resp.Code)
	require.Equal(t, "capacity_exceeded", decodeBody(t, resp)["code"])

	resp = doJSON(t, router, http.MethodPost, "/api/tournaments/"+tournament.ID+"/submit", "alice", gin.H{
		"submission_url": "https://example.com/entry",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "submitted", decodeBody(t, resp)["status"])

	resp = doJSON(t, router, http.MethodGet, "/api/tournaments/"+tournament.ID, "alice", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	body := decodeBody(t, resp)
	require.EqualValues(t, 1, body["participants"])
	require.Equal(t, true, body["registered"])
}

func TestCollectionsOverHTTP(t *testing.T) {
	router, _ := newTestServer(t)

	resp := doJSON(t, router, http.MethodPost, "/api/collections", "alice", gin.H{
		"name":       "favorites",
		"visibility": "public",
	})
	require.Equal(t, http.StatusCreated, resp.Code)
	collectionID := decodeBody(t, resp)["id"].(string)

	resp = doJSON(t, router, http.MethodPost, "/api/items", "alice", gin.H{
		"title": "member", "body": "body", "visibility": "public",
	})
	require.Equal(t, http.StatusCreated, resp.Code)
	itemID := decodeBody(t, resp)["id"].(string)

	resp = doJSON(t, router, http.MethodPost, "/api/collections/"+collectionID+"/items/"+itemID, "alice", nil)
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = doJSON(t, router, http.MethodPost, "/api/collections/"+collectionID+"/items/"+itemID, "alice", nil)
	require.Equal(t, http.StatusConflict, resp.Code)
	require.Equal(t, "already_exists", decodeBody(t, resp)["code"])

	resp = doJSON(t, router, http.MethodGet, "/api/collections/"+collectionID+"/items", "bob", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	pagination := decodeBody(t, resp)["pagination"].(map[string]any)
	require.EqualValues(t, 1, pagination["total"])

	resp = doJSON(t, router, http.MethodDelete, "/api/collections/"+collectionID+"/items/"+itemID, "bob", nil)
	require.Equal(t, http.StatusForbidden, resp.Code)

	resp = doJSON(t, router, http.MethodDelete, "/api/collections/"+collectionID, "alice", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = doJSON(t, router, http.MethodGet, "/api/collections/"+collectionID, "alice", nil)
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestHealthz(t *testing.T) {
	router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code)
}
