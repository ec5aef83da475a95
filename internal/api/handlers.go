package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/klab-verein/kassenwart/internal/application/statement"
	"github.com/klab-verein/kassenwart/internal/domain/member"
	"github.com/klab-verein/kassenwart/internal/domain/recon"
	"github.com/klab-verein/kassenwart/internal/infrastructure/storage"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listMembers(c *gin.Context) {
	members, err := s.repo.ListMembers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list members"})
		return
	}
	c.JSON(http.StatusOK, members)
}

func (s *Server) createMember(c *gin.Context) {
	var m member.Member
	if err := c.ShouldBindJSON(&m); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := s.repo.CreateMember(c.Request.Context(), m)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) updateMember(c *gin.Context) {
	var m member.Member
	if err := c.ShouldBindJSON(&m); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m.ID = c.Param("id")
	if err := s.repo.UpdateMember(c.Request.Context(), m); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, storage.ErrMemberNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, m)
}

// deactivateMember retires a member. There is no hard delete; history must
// survive for reconciliation.
func (s *Server) deactivateMember(c *gin.Context) {
	if err := s.repo.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, storage.ErrMemberNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}

func (s *Server) listPayments(c *gin.Context) {
	records, err := s.repo.Payments(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list payments"})
		return
	}
	c.JSON(http.StatusOK, records)
}

// importStatement accepts a multipart CSV upload, proposes candidates and
// persists the batch for review.
func (s *Server) importStatement(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing statement file"})
		return
	}
	defer file.Close()

	batch, err := statement.Parse(file, header.Filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	proposal, err := s.engine.Propose(c.Request.Context(), batch)
	if err != nil {
		s.logger.Error("propose failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reconciliation failed"})
		return
	}
	if err := s.repo.SaveProposal(c.Request.Context(), proposal, batch.ImportedAt); err != nil {
		s.logger.Error("saving proposal failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist batch"})
		return
	}

	c.JSON(http.StatusOK, proposal)
}

func (s *Server) listBatches(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	batches, err := s.repo.ListBatches(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list batches"})
		return
	}
	c.JSON(http.StatusOK, batches)
}

func (s *Server) listCandidates(c *gin.Context) {
	candidates, err := s.repo.CandidatesByBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list candidates"})
		return
	}
	c.JSON(http.StatusOK, candidates)
}

type confirmRequest struct {
	MemberID string `json:"member_id" binding:"required"`
	Month    string `json:"month"`
	Purpose  string `json:"purpose"`
}

func (s *Server) confirmCandidate(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	assignment := recon.Assignment{MemberID: req.MemberID, Purpose: req.Purpose}
	if req.Month != "" {
		m, err := member.ParseMonth(req.Month)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		assignment.Month = m
	}

	id := c.Param("id")
	if err := s.rehydrate(c, id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown candidate"})
		return
	}

	rec, err := s.engine.Confirm(c.Request.Context(), id, assignment)
	if err != nil {
		s.persistCandidate(c, id)
		c.JSON(confirmStatus(err), gin.H{"error": err.Error()})
		return
	}
	s.persistCandidate(c, id)
	c.JSON(http.StatusOK, rec)
}

func (s *Server) rejectCandidate(c *gin.Context) {
	id := c.Param("id")
	if err := s.rehydrate(c, id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown candidate"})
		return
	}
	if err := s.engine.Reject(c.Request.Context(), id); err != nil {
		c.JSON(confirmStatus(err), gin.H{"error": err.Error()})
		return
	}
	s.persistCandidate(c, id)
	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}

// rehydrate re-registers a persisted candidate with the engine when the
// in-memory registry does not know it, e.g. after a restart.
func (s *Server) rehydrate(c *gin.Context, id string) error {
	if _, err := s.engine.Candidate(id); err == nil {
		return nil
	}
	stored, err := s.repo.GetCandidate(c.Request.Context(), id)
	if err != nil {
		return err
	}
	s.engine.Register(stored)
	return nil
}

// persistCandidate mirrors the engine's candidate state back into storage.
func (s *Server) persistCandidate(c *gin.Context, id string) {
	cand, err := s.engine.Candidate(id)
	if err != nil {
		return
	}
	if err := s.repo.UpdateCandidate(c.Request.Context(), cand); err != nil {
		s.logger.Warn("persisting candidate state failed", "candidate_id", id, "error", err)
	}
}

func confirmStatus(err error) int {
	switch {
	case errors.Is(err, recon.ErrUnknownCandidate):
		return http.StatusNotFound
	case errors.Is(err, recon.ErrAlreadyResolved):
		return http.StatusConflict
	case errors.Is(err, recon.ErrDuplicatePayment), errors.Is(err, recon.ErrCandidateBlocked):
		return http.StatusConflict
	case errors.Is(err, recon.ErrMemberNotObligated):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) sendReminders(c *gin.Context) {
	if s.reminders == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "telegram bot not configured"})
		return
	}
	results, err := s.reminders.SendAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "sent_at": time.Now()})
}

func (s *Server) stats(c *gin.Context) {
	stats, err := s.repo.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
