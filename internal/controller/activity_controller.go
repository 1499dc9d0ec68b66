package controller

import (
	"edu_assistant_backend/internal/service"
	"edu_assistant_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ActivityController struct {
	ActivityService *service.ActivityService
}

func NewActivityController(activityService *service.ActivityService) *ActivityController {
	return &ActivityController{ActivityService: activityService}
}

// @Summary 记录学习行为
// @Tags 学习行为
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.RecordActivityRequest true "学习行为"
// @Success 201 {object} util.Response{data=model.LearningActivity}
// @Router /api/activities [post]
func (c *ActivityController) Record(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	var req service.RecordActivityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	activity, err := c.ActivityService.RecordActivity(ctx.Request.Context(), actor.UserID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Created(ctx, activity)
}

// @Summary 最近的学习行为
// @Tags 学习行为
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "数量，默认 20"
// @Success 200 {object} util.Response{data=util.ListResponse}
// @Router /api/activities [get]
func (c *ActivityController) Recent(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}

	list, err := c.ActivityService.ListRecent(ctx.Request.Context(), actor.UserID, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, util.ListResponse{List: list, Total: len(list)})
}
