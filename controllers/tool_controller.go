package controllers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/toolshed/middleware"
	"github.com/cppla/toolshed/services"
	"github.com/cppla/toolshed/utils"
)

// ToolController serves listing search, detail, upload and delete.
type ToolController struct {
	tools         *services.ToolService
	uploads       *services.UploadService
	maxUploadBody int64
}

// NewToolController creates a ToolController. maxUploadBody caps the whole multipart request.
func NewToolController(tools *services.ToolService, uploads *services.UploadService, maxUploadBody int64) *ToolController {
	return &ToolController{tools: tools, uploads: uploads, maxUploadBody: maxUploadBody}
}

// Search lists listings whose title or description contains ?query=, all of them when empty.
func (c *ToolController) Search(ctx *gin.Context) {
	query := ctx.Query("query")
	rows, err := c.tools.Search(ctx.Request.Context(), query)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"query": query, "items": rows})
}

// Get returns one listing with its images and previews.
func (c *ToolController) Get(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	detail, err := c.tools.Detail(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, detail)
}

// Create accepts a multipart listing upload. The identity is checked before the body is read.
func (c *ToolController) Create(ctx *gin.Context) {
	owner, ok := middleware.IdentityFrom(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40102, "login required")
		return
	}

	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, c.maxUploadBody)
	form, err := ctx.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.Error(ctx, http.StatusRequestEntityTooLarge, 41300, "upload too large")
			return
		}
		utils.Error(ctx, http.StatusBadRequest, 40005, "multipart form expected")
		return
	}
	defer func() { _ = form.RemoveAll() }()

	id, err := c.uploads.Ingest(ctx.Request.Context(), &owner, services.UploadForm{
		Title:       formValue(form, "title"),
		Description: formValue(form, "description"),
		Location:    formValue(form, "location"),
		Images:      form.File["images"],
		Manual:      form.File["manual"],
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, gin.H{"id": id})
}

// Delete removes a listing owned by the caller.
func (c *ToolController) Delete(ctx *gin.Context) {
	requester, ok := middleware.IdentityFrom(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40103, "login required")
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := c.tools.Delete(ctx.Request.Context(), id, requester.UserID); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"ok": true})
}

// ListByUser lists the listings of the user in the path.
func (c *ToolController) ListByUser(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	c.listFor(ctx, id)
}

// ListMine lists the caller's own listings.
func (c *ToolController) ListMine(ctx *gin.Context) {
	me, ok := middleware.IdentityFrom(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40104, "login required")
		return
	}
	c.listFor(ctx, me.UserID)
}

func (c *ToolController) listFor(ctx *gin.Context, userID uint) {
	rows, err := c.tools.ListByUser(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"user_id": userID, "items": rows})
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}
