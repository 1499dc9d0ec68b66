package controller

import (
	"edu_assistant_backend/internal/service"

	"github.com/gin-gonic/gin"
)

type NotificationController struct {
	Hub *service.NotificationHub
}

func NewNotificationController(hub *service.NotificationHub) *NotificationController {
	return &NotificationController{Hub: hub}
}

// @Summary 成绩通知 WebSocket
// @Description 浏览器无法设置请求头时可通过 token 查询参数传递 JWT；服务端推送 grade.updated 事件
// @Tags 通知
// @Security ApiKeyAuth
// @Param token query string false "JWT"
// @Router /api/ws [get]
func (c *NotificationController) Connect(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	c.Hub.ServeWs(ctx.Writer, ctx.Request, actor.UserID)
}
