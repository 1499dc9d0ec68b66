package controller

import (
	"edu_assistant_backend/internal/service"
	"edu_assistant_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

// currentActor 读取 AuthMiddleware 写入的身份，缺失时已写出 401
func currentActor(ctx *gin.Context) (service.Actor, bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return service.Actor{}, false
	}
	return service.ActorFromClaims(claims), true
}

// pathIDs 依次解析路径参数，任一非法时已写出 400
func pathIDs(ctx *gin.Context, names ...string) ([]uint, bool) {
	ids := make([]uint, 0, len(names))
	for _, name := range names {
		id, err := util.ParamUint(ctx, name)
		if err != nil {
			util.HandleError(ctx, err)
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

func queryUintPtr(ctx *gin.Context, name string) (*uint, bool) {
	raw := ctx.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid "+name)
		return nil, false
	}
	id := uint(v)
	return &id, true
}

func queryBoolPtr(ctx *gin.Context, name string) (*bool, bool) {
	raw := ctx.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		util.BadRequest(ctx, "invalid "+name)
		return nil, false
	}
	return &v, true
}
