package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klab-verein/kassenwart/internal/domain/member"
	"github.com/klab-verein/kassenwart/internal/domain/recon"
	"github.com/klab-verein/kassenwart/internal/infrastructure/config"
	"github.com/klab-verein/kassenwart/internal/infrastructure/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.Storage) {
	t.Helper()
	repo, err := storage.NewStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return serverOver(repo), repo
}

// serverOver builds a fresh server (and engine) over an existing store, as
// happens after a process restart.
func serverOver(repo *storage.Storage) *Server {
	logger := slog.New(slog.DiscardHandler)
	engine := recon.New(repo, repo, repo, logger)
	cfg := config.APIConfig{Port: 0, AllowedOrigins: []string{"http://localhost:3000"}}
	return NewServer(cfg, repo, engine, nil, logger)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func importCSV(t *testing.T, s *Server, filename, csv string) recon.Proposal {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var proposal recon.Proposal
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &proposal))
	return proposal
}

const statementCSV = `Datum;Gutschrift CHF;Zahlungszweck;Details;ZKB-Referenz
29.08.2025;50.00;Mitgliederbeitrag;Max Mustermann;SL250829579C9948
30.08.2025;notanumber;Mitgliederbeitrag;Anna Schmidt;SL250830579C0001
`

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestMemberLifecycle(t *testing.T) {
	// Arrange
	s, _ := newTestServer(t)

	// Act: create
	w := doJSON(t, s, http.MethodPost, "/api/members", gin.H{
		"name": "Max Mustermann", "category": "Aktiv",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created member.Member
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "M001", created.ID)

	// update
	w = doJSON(t, s, http.MethodPut, "/api/members/M001", gin.H{
		"name": "Max Mustermann", "category": "Passiv", "telegram_chat_id": "123",
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// list
	w = doJSON(t, s, http.MethodGet, "/api/members", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var members []member.Member
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &members))
	require.Len(t, members, 1)
	assert.Equal(t, member.CategoryPassive, members[0].Category)

	// deactivate
	w = doJSON(t, s, http.MethodDelete, "/api/members/M001", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, s, http.MethodDelete, "/api/members/M999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// invalid body
	w = doJSON(t, s, http.MethodPost, "/api/members", gin.H{"name": "No Category"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportConfirmFlow(t *testing.T) {
	// Arrange
	s, _ := newTestServer(t)
	w := doJSON(t, s, http.MethodPost, "/api/members", gin.H{"name": "Max Mustermann", "category": "Aktiv"})
	require.Equal(t, http.StatusCreated, w.Code)

	// Act: import
	proposal := importCSV(t, s, "august.csv", statementCSV)

	// Assert: one matched candidate, one diagnostic for the bad amount.
	require.Len(t, proposal.Candidates, 1)
	require.Len(t, proposal.Diagnostics, 1)
	cand := proposal.Candidates[0]
	assert.Equal(t, recon.StatusMatched, cand.Status)
	assert.Equal(t, "M001", cand.MemberID)

	// Act: confirm
	w = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/candidates/%s/confirm", cand.ID), gin.H{"member_id": "M001"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rec recon.PaymentRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, "2025-08", rec.Month.String())

	// Confirming again conflicts.
	w = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/candidates/%s/confirm", cand.ID), gin.H{"member_id": "M001"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// The payment shows up on the member.
	w = doJSON(t, s, http.MethodGet, "/api/members/M001/payments", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "SL250829579C9948")

	// Re-importing the same statement flags the row as a duplicate.
	again := importCSV(t, s, "august.csv", statementCSV)
	require.Len(t, again.Candidates, 1)
	assert.Equal(t, recon.StatusDuplicate, again.Candidates[0].Status)

	// Batch listing shows review progress.
	w = doJSON(t, s, http.MethodGet, "/api/batches", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var batches []storage.BatchSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &batches))
	assert.Len(t, batches, 2)
}

func TestConfirm_AfterRestartRehydrates(t *testing.T) {
	// Arrange: import with one server, confirm with a fresh one over the
	// same database.
	s, repo := newTestServer(t)
	w := doJSON(t, s, http.MethodPost, "/api/members", gin.H{"name": "Max Mustermann", "category": "Aktiv"})
	require.Equal(t, http.StatusCreated, w.Code)
	proposal := importCSV(t, s, "august.csv", statementCSV)
	cand := proposal.Candidates[0]

	restarted := serverOver(repo)

	// Act
	w = doJSON(t, restarted, http.MethodPost, fmt.Sprintf("/api/candidates/%s/confirm", cand.ID), gin.H{"member_id": "M001"})

	// Assert
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored, err := repo.GetCandidate(t.Context(), cand.ID)
	require.NoError(t, err)
	assert.Equal(t, recon.StatusConfirmed, stored.Status)
}

func TestReject(t *testing.T) {
	// Arrange
	s, repo := newTestServer(t)
	w := doJSON(t, s, http.MethodPost, "/api/members", gin.H{"name": "Max Mustermann", "category": "Aktiv"})
	require.Equal(t, http.StatusCreated, w.Code)
	proposal := importCSV(t, s, "august.csv", statementCSV)
	cand := proposal.Candidates[0]

	// Act
	w = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/candidates/%s/reject", cand.ID), nil)

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	stored, err := repo.GetCandidate(t.Context(), cand.ID)
	require.NoError(t, err)
	assert.Equal(t, recon.StatusRejected, stored.Status)

	w = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/candidates/%s/reject", cand.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestConfirm_UnknownCandidate(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/candidates/nope/confirm", gin.H{"member_id": "M001"})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSendReminders_NotConfigured(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/reminders/send", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStats(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(t, s, http.MethodPost, "/api/members", gin.H{"name": "Max Mustermann", "category": "Aktiv"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/stats", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_members":1`)
}
