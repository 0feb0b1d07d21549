package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ats-platform/ats-backend/internal/models"
	pgrepo "github.com/ats-platform/ats-backend/internal/repositories/postgres"
	"github.com/ats-platform/ats-backend/internal/services"
	"github.com/ats-platform/ats-backend/internal/utils"
)

type JobHandler struct {
	jobs services.JobService
	apps services.ApplicationService
	auth services.AuthService
}

func NewJobHandler(jobs services.JobService, apps services.ApplicationService, auth services.AuthService) *JobHandler {
	return &JobHandler{jobs: jobs, apps: apps, auth: auth}
}

func (h *JobHandler) List(c *gin.Context) {
	p := parsePageParams(c)
	f := pgrepo.JobFilter{
		Status:   models.JobStatus(c.Query("status")),
		Location: c.Query("location"),
		Search:   c.Query("search"),
		Ordering: c.Query("ordering"),
		Limit:    p.Size,
		Offset:   p.Offset,
	}
	if f.Status != "" && !f.Status.Valid() {
		writeError(c, utils.E(utils.CodeInvalidArgument, "JobHandler.List", "status must be active or closed", nil))
		return
	}

	rows, count, err := h.jobs.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, paginated(c, p, count, rows))
}

func (h *JobHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	j, err := h.jobs.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, j)
}

func (h *JobHandler) Create(c *gin.Context) {
	actor, ok := currentUser(c, h.auth)
	if !ok {
		return
	}

	var req services.JobInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "JobHandler.Create", "invalid request body", err))
		return
	}

	j, err := h.jobs.Create(c.Request.Context(), req, actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, j)
}

func (h *JobHandler) Update(c *gin.Context) {
	actor, ok := currentUser(c, h.auth)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req services.JobInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "JobHandler.Update", "invalid request body", err))
		return
	}

	j, err := h.jobs.Update(c.Request.Context(), id, req, actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, j)
}

func (h *JobHandler) Delete(c *gin.Context) {
	actor, ok := currentUser(c, h.auth)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.jobs.Delete(c.Request.Context(), id, actor); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *JobHandler) Close(c *gin.Context) {
	h.setStatus(c, true)
}

func (h *JobHandler) Reopen(c *gin.Context) {
	h.setStatus(c, false)
}

func (h *JobHandler) setStatus(c *gin.Context, closed bool) {
	actor, ok := currentUser(c, h.auth)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var (
		j   *models.Job
		err error
	)
	if closed {
		j, err = h.jobs.Close(c.Request.Context(), id, actor)
	} else {
		j, err = h.jobs.Reopen(c.Request.Context(), id, actor)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, j)
}

// Applications lists every application for one job, public like the
// job detail itself.
func (h *JobHandler) Applications(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if _, err := h.jobs.Get(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	rows, err := h.apps.ListByJob(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}
