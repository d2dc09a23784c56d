package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ucu-innovators/hub/internal/middleware"
	"github.com/ucu-innovators/hub/internal/modules/serializer"
	"github.com/ucu-innovators/hub/internal/modules/service"
)

type AssistantHandler struct {
	svc service.AssistantService
}

func NewAssistantHandler(s service.AssistantService) *AssistantHandler {
	return &AssistantHandler{svc: s}
}

type ChatReq struct {
	Message string `json:"message" example:"How do I submit a project?"`
}

type ChatResp struct {
	Response string `json:"response"`
}

// Chat godoc
//
//	@Summary	Ask the assistant
//	@Tags		assistant
//	@Accept		json
//	@Produce	json
//	@Param		payload	body	handler.ChatReq	true	"Message"
//	@Success	200	{object}	serializer.Response{data=handler.ChatResp}
//	@Failure	503	{object}	serializer.Response
//	@Router		/assistant/chat [post]
func (h *AssistantHandler) Chat(c *gin.Context) {
	req := ChatReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	reply, err := h.svc.Chat(c.Request.Context(), middleware.PrincipalFrom(c), req.Message)
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: ChatResp{Response: reply}})
}
