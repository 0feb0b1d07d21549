package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ats-platform/ats-backend/internal/models"
	pgrepo "github.com/ats-platform/ats-backend/internal/repositories/postgres"
	"github.com/ats-platform/ats-backend/internal/services"
	"github.com/ats-platform/ats-backend/internal/utils"
	"github.com/ats-platform/ats-backend/internal/workflow"
)

const maxResumeSize = 10 << 20 // 10MB

var resumeContentTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

type ApplicationHandler struct {
	svc  services.ApplicationService
	auth services.AuthService
}

func NewApplicationHandler(svc services.ApplicationService, auth services.AuthService) *ApplicationHandler {
	return &ApplicationHandler{svc: svc, auth: auth}
}

// Submit is the public application endpoint: multipart form with the
// candidate's details and resume. No token required.
func (h *ApplicationHandler) Submit(c *gin.Context) {
	const op = "ApplicationHandler.Submit"

	jobID, err := strconv.ParseInt(c.PostForm("job_id"), 10, 64)
	if err != nil || jobID <= 0 {
		writeError(c, utils.EFields(op, "invalid application", map[string]string{
			"job_id": "job_id must be a positive integer",
		}))
		return
	}

	fh, err := c.FormFile("resume_file")
	if err != nil {
		writeError(c, utils.EFields(op, "invalid application", map[string]string{
			"resume_file": "missing multipart field 'resume_file'",
		}))
		return
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	contentType, allowed := resumeContentTypes[ext]
	if !allowed {
		writeError(c, utils.EFields(op, "invalid application", map[string]string{
			"resume_file": "only PDF, DOC and DOCX files are allowed",
		}))
		return
	}
	if fh.Size <= 0 || fh.Size > maxResumeSize {
		writeError(c, utils.EFields(op, "invalid application", map[string]string{
			"resume_file": "resume file size cannot exceed 10MB",
		}))
		return
	}

	file, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to open upload", err))
		return
	}
	defer file.Close()

	// sniff the first 512 bytes; PDFs must really be PDFs
	head := make([]byte, 512)
	n, _ := file.Read(head)
	head = head[:n]
	if ext == ".pdf" && http.DetectContentType(head) != "application/pdf" {
		writeError(c, utils.EFields(op, "invalid application", map[string]string{
			"resume_file": "file content does not match the .pdf extension",
		}))
		return
	}

	app, err := h.svc.Submit(c.Request.Context(), services.SubmitApplicationInput{
		JobID:             jobID,
		CandidateName:     c.PostForm("candidate_name"),
		CandidateEmail:    c.PostForm("candidate_email"),
		CandidatePhone:    c.PostForm("candidate_phone"),
		LinkedinURL:       c.PostForm("linkedin_url"),
		CoverLetter:       c.PostForm("cover_letter"),
		ResumeName:        fh.Filename,
		ResumeSize:        fh.Size,
		ResumeContentType: contentType,
		Resume:            io.MultiReader(bytes.NewReader(head), file),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

func (h *ApplicationHandler) List(c *gin.Context) {
	p := parsePageParams(c)
	f := pgrepo.ApplicationFilter{
		Status:   workflow.Status(c.Query("status")),
		Search:   c.Query("search"),
		Ordering: c.Query("ordering"),
		Limit:    p.Size,
		Offset:   p.Offset,
	}
	if job := c.Query("job"); job != "" {
		id, err := strconv.ParseInt(job, 10, 64)
		if err != nil || id <= 0 {
			writeError(c, utils.E(utils.CodeInvalidArgument, "ApplicationHandler.List", "job must be a positive integer", err))
			return
		}
		f.JobID = id
	}
	if f.Status != "" && !f.Status.Valid() {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ApplicationHandler.List",
			fmt.Sprintf("invalid status %q", f.Status), nil))
		return
	}

	rows, count, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, paginated(c, p, count, rows))
}

func (h *ApplicationHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	app, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

type updateStatusRequest struct {
	Status workflow.Status `json:"status" binding:"required"`
}

// UpdateStatus applies one status transition. The response carries the
// updated application together with its history, so the client needs
// no follow-up fetch.
func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	actor, ok := currentUser(c, h.auth)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ApplicationHandler.UpdateStatus", "status is required", err))
		return
	}

	app, err := h.svc.Transition(c.Request.Context(), id, req.Status, actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

type bulkUpdateRequest struct {
	ApplicationIDs []int64         `json:"application_ids" binding:"required"`
	Status         workflow.Status `json:"status" binding:"required"`
}

func (h *ApplicationHandler) BulkUpdate(c *gin.Context) {
	actor, ok := currentUser(c, h.auth)
	if !ok {
		return
	}

	var req bulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ApplicationHandler.BulkUpdate", "application_ids and status are required", err))
		return
	}

	res, err := h.svc.BulkTransition(c.Request.Context(), req.ApplicationIDs, req.Status, actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"updated_count": res.UpdatedCount,
		"message":       fmt.Sprintf("%d applications updated to %s", res.UpdatedCount, req.Status),
	})
}

func (h *ApplicationHandler) History(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	entries, err := h.svc.History(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		name := ""
		if e.ChangedBy != nil {
			name = e.ChangedBy.FullName()
		}
		out = append(out, gin.H{
			"id":              e.ID,
			"from_status":     e.FromStatus,
			"to_status":       e.ToStatus,
			"changed_by":      e.ChangedByID,
			"changed_by_name": name,
			"changed_at":      e.ChangedAt,
			"notes":           e.Notes,
		})
	}
	c.JSON(http.StatusOK, out)
}

// ParseRuns exposes the analyzer audit log for one application.
func (h *ApplicationHandler) ParseRuns(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	runs, err := h.svc.ParseRuns(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if runs == nil {
		runs = []models.ParseRun{}
	}
	c.JSON(http.StatusOK, runs)
}

func (h *ApplicationHandler) Reparse(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	app, err := h.svc.Reparse(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Resume parsing triggered",
		"data":    app,
	})
}
