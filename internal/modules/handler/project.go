package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ucu-innovators/hub/internal/middleware"
	"github.com/ucu-innovators/hub/internal/modules/serializer"
	"github.com/ucu-innovators/hub/internal/modules/service"
)

type ProjectHandler struct {
	svc service.ProjectService
}

func NewProjectHandler(s service.ProjectService) *ProjectHandler {
	return &ProjectHandler{svc: s}
}

func projectID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("invalid project id", err))
		return uuid.Nil, false
	}
	return id, true
}

// ListProjects godoc
//
//	@Summary		List projects
//	@Description	List projects newest first. Omitting status returns every status.
//	@Tags			project
//	@Produce		json
//	@Param			status		query	string	false	"pending, approved or rejected"
//	@Param			search		query	string	false	"Substring of title or description"
//	@Param			faculty		query	string	false	"Faculty substring"
//	@Param			category	query	string	false	"Case-insensitive category substring"
//	@Param			technology	query	string	false	"Technology substring"
//	@Param			year		query	integer	false	"Academic year"
//	@Param			mine		query	bool	false	"Only the caller's projects"
//	@Param			limit		query	integer	false	"Page size, 0 for everything. Max 100."
//	@Param			cursor		query	string	false	"Cursor from the previous page"
//	@Success		200	{object}	serializer.Response{data=service.ListProjectsOutput}
//	@Router			/projects [get]
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	req := service.ListProjectsInput{}
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	out, err := h.svc.List(c.Request.Context(), middleware.PrincipalFrom(c), req)
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// GetProject godoc
//
//	@Summary	Get project
//	@Tags		project
//	@Produce	json
//	@Param		id	path	string	true	"Project ID"	Format(uuid)
//	@Success	200	{object}	serializer.Response{data=model.Project}
//	@Router		/projects/{id} [get]
func (h *ProjectHandler) GetProject(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	p, err := h.svc.Get(c.Request.Context(), middleware.PrincipalFrom(c), id)
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: p})
}

// GetProjectDocument godoc
//
//	@Summary		Download project document
//	@Description	Redirects to the project's document. Uploaded files get a short-lived signed URL on every request.
//	@Tags			project
//	@Param			id	path	string	true	"Project ID"	Format(uuid)
//	@Success		302
//	@Failure		404	{object}	serializer.Response
//	@Router			/projects/{id}/document [get]
func (h *ProjectHandler) GetProjectDocument(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	url, err := h.svc.DocumentURL(c.Request.Context(), middleware.PrincipalFrom(c), id)
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Redirect(http.StatusFound, url)
}

// SubmitProject godoc
//
//	@Summary		Submit project
//	@Description	Students submit a new project. It always starts out pending.
//	@Tags			project
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	service.SubmitProjectInput	true	"Project draft"
//	@Security		BearerAuth
//	@Success		201	{object}	serializer.Response{data=model.Project}
//	@Router			/projects [post]
func (h *ProjectHandler) SubmitProject(c *gin.Context) {
	req := service.SubmitProjectInput{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	p, err := h.svc.Submit(c.Request.Context(), middleware.PrincipalFrom(c), req)
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: p})
}

// UpdateProject godoc
//
//	@Summary	Update project
//	@Tags		project
//	@Accept		json
//	@Produce	json
//	@Param		id		path	string						true	"Project ID"	Format(uuid)
//	@Param		payload	body	service.UpdateProjectInput	true	"Fields to change"
//	@Security	BearerAuth
//	@Success	200	{object}	serializer.Response{data=model.Project}
//	@Router		/projects/{id} [put]
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	req := service.UpdateProjectInput{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	p, err := h.svc.Update(c.Request.Context(), middleware.PrincipalFrom(c), id, req)
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: p})
}

type ReviewProjectReq struct {
	Status   string `json:"status" binding:"required" example:"approved"`
	Comments string `json:"comments" example:"Great work"`
}

// ReviewProject godoc
//
//	@Summary		Review project
//	@Description	Approve or reject a pending project. Reviewing a decided project is a conflict.
//	@Tags			project
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string						true	"Project ID"	Format(uuid)
//	@Param			payload	body	handler.ReviewProjectReq	true	"Decision"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.Project}
//	@Failure		409	{object}	serializer.Response
//	@Router			/projects/{id}/review [patch]
func (h *ProjectHandler) ReviewProject(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	req := ReviewProjectReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	p, err := h.svc.Review(c.Request.Context(), middleware.PrincipalFrom(c), id, service.ReviewInput{
		Status:   req.Status,
		Comments: req.Comments,
	})
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: p})
}

// CommentReq is not bound with required tags: authorization is decided
// before the body is validated.
type CommentReq struct {
	Comment string `json:"comment"`
}

// AddComment godoc
//
//	@Summary	Comment on project
//	@Tags		project
//	@Accept		json
//	@Produce	json
//	@Param		id		path	string				true	"Project ID"	Format(uuid)
//	@Param		payload	body	handler.CommentReq	true	"Comment"
//	@Security	BearerAuth
//	@Success	201	{object}	serializer.Response{data=model.Comment}
//	@Router		/projects/{id}/comments [post]
func (h *ProjectHandler) AddComment(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	req := CommentReq{}
	// an unreadable body is treated as an empty comment
	_ = c.ShouldBindJSON(&req)

	comment, err := h.svc.AddComment(c.Request.Context(), middleware.PrincipalFrom(c), id, req.Comment)
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: comment})
}

// AddTeamMember godoc
//
//	@Summary	Add team member
//	@Tags		project
//	@Accept		json
//	@Produce	json
//	@Param		id		path	string					true	"Project ID"	Format(uuid)
//	@Param		payload	body	service.TeamMemberInput	true	"Member"
//	@Security	BearerAuth
//	@Success	201	{object}	serializer.Response{data=model.TeamMember}
//	@Router		/projects/{id}/team-members [post]
func (h *ProjectHandler) AddTeamMember(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	req := service.TeamMemberInput{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	m, err := h.svc.AddTeamMember(c.Request.Context(), middleware.PrincipalFrom(c), id, req)
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: m})
}

// UploadDocument godoc
//
//	@Summary	Upload project document
//	@Tags		project
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		id		path		string	true	"Project ID"	Format(uuid)
//	@Param		file	formData	file	true	"PDF, Word, PowerPoint, zip or image"
//	@Security	BearerAuth
//	@Success	200	{object}	serializer.Response{data=model.Project}
//	@Router		/projects/{id}/document [post]
func (h *ProjectHandler) UploadDocument(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("file is required", err))
		return
	}
	p, err := h.svc.UploadDocument(c.Request.Context(), middleware.PrincipalFrom(c), id, fh)
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: p})
}
