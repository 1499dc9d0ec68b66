package util

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ParamUint 读取路径参数中的正整数 ID
func ParamUint(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %s 无效", ErrValidation, name)
	}
	return uint(id), nil
}
