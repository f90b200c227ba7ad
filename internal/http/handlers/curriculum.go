package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/lingua-backend/internal/cache"
	"github.com/yungbote/lingua-backend/internal/domain/learning"
	"github.com/yungbote/lingua-backend/internal/http/response"
	"github.com/yungbote/lingua-backend/internal/services"
)

type CurriculumHandler struct {
	curricula services.CurriculumService
}

func NewCurriculumHandler(curricula services.CurriculumService) *CurriculumHandler {
	return &CurriculumHandler{curricula: curricula}
}

type turnRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type createCurriculumRequest struct {
	OwnerID        *string       `json:"owner_id"`
	RequestText    string        `json:"request_text"`
	Conversation   []turnRequest `json:"conversation"`
	NativeLanguage string        `json:"native_language"`
	TargetLanguage string        `json:"target_language"`
	Proficiency    string        `json:"proficiency"`
}

// POST /api/curricula
func (h *CurriculumHandler) CreateCurriculum(c *gin.Context) {
	var req createCurriculumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	in := services.StartCurriculumInput{
		OwnerID:     trimmedOrNil(req.OwnerID),
		RequestText: req.RequestText,
		Metadata: learning.LearnerMetadata{
			NativeLanguage: req.NativeLanguage,
			TargetLanguage: req.TargetLanguage,
			Proficiency:    learning.Proficiency(req.Proficiency),
		},
	}
	for _, t := range req.Conversation {
		in.Conversation = append(in.Conversation, cache.Turn{Role: t.Role, Content: t.Content})
	}
	view, err := h.curricula.Start(c.Request.Context(), in)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{"curriculum_id": view.CurriculumID, "status": view})
}

// GET /api/curricula?owner_id=
func (h *CurriculumHandler) ListCurricula(c *gin.Context) {
	var owner *string
	if v, ok := c.GetQuery("owner_id"); ok {
		owner = trimmedOrNil(&v)
	}
	list, err := h.curricula.List(c.Request.Context(), owner)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"curricula": list})
}

// GET /api/curricula/:id
func (h *CurriculumHandler) GetCurriculum(c *gin.Context) {
	id, ok := parseID(c, "invalid_curriculum_id")
	if !ok {
		return
	}
	tree, err := h.curricula.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"curriculum": tree})
}

// GET /api/curricula/:id/status
func (h *CurriculumHandler) GetStatus(c *gin.Context) {
	id, ok := parseID(c, "invalid_curriculum_id")
	if !ok {
		return
	}
	view, err := h.curricula.Status(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"status": view})
}

// POST /api/curricula/:id/retry
func (h *CurriculumHandler) RetryCurriculum(c *gin.Context) {
	id, ok := parseID(c, "invalid_curriculum_id")
	if !ok {
		return
	}
	view, err := h.curricula.Retry(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{"status": view})
}

// DELETE /api/curricula/:id
func (h *CurriculumHandler) DeleteCurriculum(c *gin.Context) {
	id, ok := parseID(c, "invalid_curriculum_id")
	if !ok {
		return
	}
	if err := h.curricula.Delete(c.Request.Context(), id); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/lessons/:id/artifacts/:kind
func (h *CurriculumHandler) GetLessonArtifacts(c *gin.Context) {
	id, ok := parseID(c, "invalid_lesson_id")
	if !ok {
		return
	}
	var kind learning.ArtifactKind
	if raw := c.Param("kind"); raw != "all" {
		k, valid := learning.ParseArtifactKind(raw)
		if !valid {
			response.RespondError(c, http.StatusBadRequest, "invalid_artifact_kind", errInvalidKind(raw))
			return
		}
		kind = k
	}
	arts, err := h.curricula.LessonArtifacts(c.Request.Context(), id, kind)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"lesson_id": id, "kind": c.Param("kind"), "artifacts": arts})
}

func parseID(c *gin.Context, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, code, err)
		return uuid.Nil, false
	}
	return id, true
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

type errInvalidKind string

func (e errInvalidKind) Error() string {
	return "unknown artifact kind " + string(e) + " (want flashcards, exercises, simulation or all)"
}
