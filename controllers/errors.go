package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/toolshed/common"
	"github.com/cppla/toolshed/utils"
)

var errorStatuses = []struct {
	err    error
	status int
	code   int
}{
	{common.ErrValidation, http.StatusBadRequest, 40000},
	{common.ErrUnauthorized, http.StatusUnauthorized, 40100},
	{common.ErrForbidden, http.StatusForbidden, 40300},
	{common.ErrNotFound, http.StatusNotFound, 40400},
	{common.ErrConflict, http.StatusConflict, 40900},
	{common.ErrAssetGeneration, http.StatusUnprocessableEntity, 42200},
}

// respondError writes the envelope for a service error. Server side failures are logged and
// answered with a generic message.
func respondError(ctx *gin.Context, err error) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			utils.Error(ctx, e.status, e.code, err.Error())
			return
		}
	}

	code := 50000
	switch {
	case errors.Is(err, common.ErrStore):
		code = 50001
	case errors.Is(err, common.ErrFilesystem):
		code = 50002
	}
	utils.Logger.Error("request failed",
		zap.String("method", ctx.Request.Method),
		zap.String("path", ctx.Request.URL.Path),
		zap.Error(err),
	)
	_ = ctx.Error(err)
	utils.Error(ctx, http.StatusInternalServerError, code, "internal server error")
}

func parseID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(ctx.Param(name)), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
