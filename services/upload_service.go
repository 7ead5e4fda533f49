package services

import (
	"context"
	"fmt"
	"mime/multipart"

	"go.uber.org/zap"

	"github.com/cppla/toolshed/assets"
	"github.com/cppla/toolshed/common"
	"github.com/cppla/toolshed/utils"
)

// UploadForm is a parsed multipart listing submission.
type UploadForm struct {
	Title       string
	Description string
	Location    string
	Images      []*multipart.FileHeader
	Manual      []*multipart.FileHeader
}

// UploadService stores submitted files and creates the listing that references them.
type UploadService struct {
	store     *assets.Store
	tools     *ToolService
	maxImages int
	log       *zap.Logger
}

// NewUploadService creates an UploadService accepting up to maxImages images per listing.
func NewUploadService(store *assets.Store, tools *ToolService, maxImages int, log *zap.Logger) *UploadService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UploadService{store: store, tools: tools, maxImages: maxImages, log: log}
}

// Ingest validates the form, saves the files under generated names and creates the listing.
// It fails with common.ErrUnauthorized when owner is nil.
func (s *UploadService) Ingest(ctx context.Context, owner *common.Identity, form UploadForm) (uint, error) {
	if owner == nil {
		return 0, fmt.Errorf("%w: login required", common.ErrUnauthorized)
	}

	title := utils.PlainText(form.Title)
	if title == "" {
		return 0, fmt.Errorf("%w: title is required", common.ErrValidation)
	}
	if len(form.Images) > s.maxImages {
		return 0, fmt.Errorf("%w: at most %d images", common.ErrValidation, s.maxImages)
	}
	if len(form.Manual) > 1 {
		return 0, fmt.Errorf("%w: at most one manual", common.ErrValidation)
	}
	for _, fh := range form.Images {
		if !assets.IsImage(fh.Filename) {
			return 0, fmt.Errorf("%w: unsupported image type %q", common.ErrValidation, assets.Ext(fh.Filename))
		}
	}
	for _, fh := range form.Manual {
		if !assets.IsManual(fh.Filename) {
			return 0, fmt.Errorf("%w: unsupported manual type %q", common.ErrValidation, assets.Ext(fh.Filename))
		}
	}

	var saved []string
	cleanup := func() {
		for _, p := range saved {
			if err := s.store.Remove(p); err != nil {
				s.log.Warn("upload cleanup failed", zap.String("path", p), zap.Error(err))
			}
		}
	}

	in := CreateToolInput{
		OwnerID:     owner.UserID,
		Title:       title,
		Description: utils.Sanitize(form.Description),
		Location:    utils.PlainText(form.Location),
	}
	for _, fh := range form.Manual {
		p, err := s.save(fh)
		if err != nil {
			cleanup()
			return 0, err
		}
		saved = append(saved, p)
		in.ManualPath = &p
	}
	for _, fh := range form.Images {
		p, err := s.save(fh)
		if err != nil {
			cleanup()
			return 0, err
		}
		saved = append(saved, p)
		in.ImagePaths = append(in.ImagePaths, p)
	}

	id, err := s.tools.Create(ctx, in)
	if err != nil {
		// Once the listing row exists its files are left for the owner's delete to clean up.
		if id == 0 {
			cleanup()
		}
		return id, err
	}
	s.log.Info("tool created", zap.Uint("tool_id", id), zap.Uint("user_id", owner.UserID), zap.Int("images", len(in.ImagePaths)))
	return id, nil
}

func (s *UploadService) save(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("%w: open upload %s: %v", common.ErrValidation, fh.Filename, err)
	}
	defer f.Close()
	return s.store.Save(f, fh.Filename)
}
