package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ucu-innovators/hub/internal/middleware"
	"github.com/ucu-innovators/hub/internal/modules/serializer"
	"github.com/ucu-innovators/hub/internal/modules/service"
)

type UserHandler struct {
	svc service.UserService
}

func NewUserHandler(s service.UserService) *UserHandler {
	return &UserHandler{svc: s}
}

type RegisterReq struct {
	Email      string `json:"email" binding:"required" example:"amina@ucu.ac.ug"`
	Password   string `json:"password" binding:"required"`
	FullName   string `json:"full_name" binding:"required" example:"Amina Nakato"`
	Role       string `json:"role" binding:"required,oneof=student supervisor" example:"student"`
	Faculty    string `json:"faculty" example:"Engineering"`
	Department string `json:"department" example:"Computing"`
	StudentID  string `json:"student_id" example:"S123"`
}

// Register godoc
//
//	@Summary		Register
//	@Description	Create a student or supervisor account and sign in.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.RegisterReq	true	"Account"
//	@Success		201	{object}	serializer.Response{data=service.AuthOutput}
//	@Router			/auth/register [post]
func (h *UserHandler) Register(c *gin.Context) {
	req := RegisterReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	out, err := h.svc.Register(c.Request.Context(), service.RegisterInput{
		Email:      req.Email,
		Password:   req.Password,
		FullName:   req.FullName,
		Role:       req.Role,
		Faculty:    req.Faculty,
		Department: req.Department,
		StudentID:  req.StudentID,
	})
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: out})
}

type LoginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login godoc
//
//	@Summary	Login
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		payload	body	handler.LoginReq	true	"Credentials"
//	@Success	200	{object}	serializer.Response{data=service.AuthOutput}
//	@Failure	401	{object}	serializer.Response
//	@Router		/auth/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	req := LoginReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	out, err := h.svc.Login(c.Request.Context(), service.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

type ForgotPasswordReq struct {
	Email string `json:"email" binding:"required"`
}

// ForgotPassword godoc
//
//	@Summary		Request password reset
//	@Description	Always succeeds. A reset link is sent when the email is registered.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			payload	body	handler.ForgotPasswordReq	true	"Email"
//	@Success		200	{object}	serializer.Response
//	@Router			/auth/forgot-password [post]
func (h *UserHandler) ForgotPassword(c *gin.Context) {
	req := ForgotPasswordReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	if err := h.svc.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Msg: "if the email is registered, a reset link has been sent"})
}

type ResetPasswordReq struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ResetPassword godoc
//
//	@Summary	Reset password
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		payload	body	handler.ResetPasswordReq	true	"Token and new password"
//	@Success	200	{object}	serializer.Response
//	@Router		/auth/reset-password [post]
func (h *UserHandler) ResetPassword(c *gin.Context) {
	req := ResetPasswordReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	if err := h.svc.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Msg: "password updated"})
}

// Me godoc
//
//	@Summary	Current user
//	@Tags		auth
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	serializer.Response{data=model.User}
//	@Router		/auth/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	u, err := h.svc.Me(c.Request.Context(), middleware.PrincipalFrom(c))
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: u})
}

// GetUser godoc
//
//	@Summary	User profile
//	@Tags		user
//	@Produce	json
//	@Param		id	path	string	true	"User ID"	Format(uuid)
//	@Security	BearerAuth
//	@Success	200	{object}	serializer.Response{data=service.ProfileOutput}
//	@Router		/users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("invalid user id", err))
		return
	}
	out, err := h.svc.GetProfile(c.Request.Context(), middleware.PrincipalFrom(c), id)
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: out})
}

// UpdateUser godoc
//
//	@Summary		Update profile
//	@Description	Only full_name, faculty and department can change.
//	@Tags			user
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string						true	"User ID"	Format(uuid)
//	@Param			payload	body	service.UpdateProfileInput	true	"Profile fields"
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=model.User}
//	@Router			/users/{id} [put]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("invalid user id", err))
		return
	}
	req := service.UpdateProfileInput{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	u, err := h.svc.UpdateProfile(c.Request.Context(), middleware.PrincipalFrom(c), id, req)
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: u})
}
