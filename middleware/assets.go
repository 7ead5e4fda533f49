package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/toolshed/assets"
)

// AssetHeaders stops browsers from sniffing stored uploads and forces anything that is
// not a listing image to download instead of rendering on the API origin.
func AssetHeaders() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		h := ctx.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		if !assets.IsImage(ctx.Request.URL.Path) {
			h.Set("Content-Disposition", "attachment")
		}
		ctx.Next()
	}
}
