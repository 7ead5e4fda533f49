package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/toolshed/assets"
	"github.com/cppla/toolshed/common"
	"github.com/cppla/toolshed/models"
)

// ToolSummary is a listing row annotated with the thumbnail of its representative image.
type ToolSummary struct {
	ID             uint      `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Location       string    `json:"location"`
	UserManualPath *string   `json:"user_manual_path"`
	UserID         uint      `json:"user_id"`
	CreatedAt      time.Time `json:"created_at"`
	ImagePath      *string   `json:"image_path"`
}

// ImageView is one image of a listing with its preview variant.
type ImageView struct {
	ID          uint   `json:"id"`
	ImagePath   string `json:"image_path"`
	PreviewPath string `json:"preview_path"`
}

// ToolDetail is a listing with all of its images in insertion order.
type ToolDetail struct {
	Tool   models.Tool `json:"tool"`
	Images []ImageView `json:"images"`
}

// CreateToolInput carries an already stored upload. Paths are relative to the asset root.
type CreateToolInput struct {
	OwnerID     uint
	Title       string
	Description string
	Location    string
	ManualPath  *string
	ImagePaths  []string
}

// ToolService implements listing queries and the owner-only delete.
type ToolService struct {
	db    *gorm.DB
	store *assets.Store
	cache *assets.Cache
	log   *zap.Logger
}

// NewToolService wires the listing store with the asset store and variant cache.
func NewToolService(db *gorm.DB, store *assets.Store, cache *assets.Cache, log *zap.Logger) *ToolService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ToolService{db: db, store: store, cache: cache, log: log}
}

// Each listing joins the image with the lowest id among its images, if any.
const summaryQuery = `SELECT t.id, t.title, t.description, t.location, t.user_manual_path, t.user_id, t.created_at, i.image_path
FROM tools t
LEFT JOIN (SELECT tool_id, MIN(id) AS min_id FROM tool_images GROUP BY tool_id) sub ON t.id = sub.tool_id
LEFT JOIN tool_images i ON sub.min_id = i.id`

// Search returns listings whose title or description contains text, ignoring case.
// An empty text matches every listing. Results carry no particular order.
// The query is folded with full Unicode rules; stored columns are folded by the
// database's LOWER, which on SQLite only covers ASCII letters.
func (s *ToolService) Search(ctx context.Context, text string) ([]ToolSummary, error) {
	pattern := "%" + escapeLike(strings.ToLower(text)) + "%"
	var rows []ToolSummary
	err := s.db.WithContext(ctx).
		Raw(summaryQuery+` WHERE LOWER(t.title) LIKE ? ESCAPE '!' OR LOWER(t.description) LIKE ? ESCAPE '!'`, pattern, pattern).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: search tools: %v", common.ErrStore, err)
	}
	return s.withThumbnails(rows)
}

// ListByUser returns the listings owned by userID.
func (s *ToolService) ListByUser(ctx context.Context, userID uint) ([]ToolSummary, error) {
	var owner models.User
	if err := s.db.WithContext(ctx).Select("id").First(&owner, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d", common.ErrNotFound, userID)
		}
		return nil, fmt.Errorf("%w: load user: %v", common.ErrStore, err)
	}

	var rows []ToolSummary
	if err := s.db.WithContext(ctx).Raw(summaryQuery+` WHERE t.user_id = ?`, userID).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: list tools of user %d: %v", common.ErrStore, userID, err)
	}
	return s.withThumbnails(rows)
}

func (s *ToolService) withThumbnails(rows []ToolSummary) ([]ToolSummary, error) {
	if rows == nil {
		rows = []ToolSummary{}
	}
	for i := range rows {
		if rows[i].ImagePath == nil {
			continue
		}
		thumb, err := s.cache.Ensure(*rows[i].ImagePath, assets.Thumb)
		if err != nil {
			return nil, err
		}
		rows[i].ImagePath = &thumb
	}
	return rows, nil
}

// Detail returns one listing with every image and its preview.
func (s *ToolService) Detail(ctx context.Context, id uint) (*ToolDetail, error) {
	var tool models.Tool
	if err := s.db.WithContext(ctx).First(&tool, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: tool %d", common.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: load tool %d: %v", common.ErrStore, id, err)
	}

	var images []models.ToolImage
	if err := s.db.WithContext(ctx).Where("tool_id = ?", id).Order("id").Find(&images).Error; err != nil {
		return nil, fmt.Errorf("%w: load images of tool %d: %v", common.ErrStore, id, err)
	}

	detail := &ToolDetail{Tool: tool, Images: make([]ImageView, 0, len(images))}
	for _, img := range images {
		preview, err := s.cache.Ensure(img.ImagePath, assets.Preview)
		if err != nil {
			return nil, err
		}
		detail.Images = append(detail.Images, ImageView{ID: img.ID, ImagePath: img.ImagePath, PreviewPath: preview})
	}
	return detail, nil
}

// Create inserts the listing, pre-generates a thumbnail per image, then inserts all image rows
// in one statement. When a step after the listing insert fails, the listing row stays and its
// id is returned together with the error.
func (s *ToolService) Create(ctx context.Context, in CreateToolInput) (uint, error) {
	tool := models.Tool{
		Title:          in.Title,
		Description:    in.Description,
		Location:       in.Location,
		UserManualPath: in.ManualPath,
		UserID:         in.OwnerID,
	}
	if err := s.db.WithContext(ctx).Omit("User", "Images").Create(&tool).Error; err != nil {
		return 0, fmt.Errorf("%w: insert tool: %v", common.ErrStore, err)
	}
	if len(in.ImagePaths) == 0 {
		return tool.ID, nil
	}

	images := make([]models.ToolImage, 0, len(in.ImagePaths))
	for _, p := range in.ImagePaths {
		if _, err := s.cache.Ensure(p, assets.Thumb); err != nil {
			return tool.ID, err
		}
		images = append(images, models.ToolImage{ToolID: tool.ID, ImagePath: p})
	}
	if err := s.db.WithContext(ctx).Create(&images).Error; err != nil {
		return tool.ID, fmt.Errorf("%w: insert images of tool %d: %v", common.ErrStore, tool.ID, err)
	}
	return tool.ID, nil
}

// Delete removes a listing owned by requesterID. File removal is best effort: every failure is
// logged and skipped, and the delete succeeds once the rows are gone.
func (s *ToolService) Delete(ctx context.Context, id, requesterID uint) error {
	var tool models.Tool
	err := s.db.WithContext(ctx).Select("id", "user_id", "user_manual_path").First(&tool, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: tool %d", common.ErrNotFound, id)
		}
		return fmt.Errorf("%w: load tool %d: %v", common.ErrStore, id, err)
	}
	if tool.UserID != requesterID {
		return fmt.Errorf("%w: tool %d belongs to another user", common.ErrForbidden, id)
	}

	if tool.UserManualPath != nil && *tool.UserManualPath != "" {
		s.removeFile(id, *tool.UserManualPath)
	}

	var images []models.ToolImage
	if err := s.db.WithContext(ctx).Where("tool_id = ?", id).Find(&images).Error; err != nil {
		return fmt.Errorf("%w: load images of tool %d: %v", common.ErrStore, id, err)
	}
	for _, img := range images {
		s.removeFile(id, img.ImagePath)
		s.removeVariant(id, assets.VariantPath(img.ImagePath, assets.Thumb))
		s.removeVariant(id, assets.VariantPath(img.ImagePath, assets.Preview))
	}

	// Foreign keys are not created by the migration, so image rows are removed explicitly.
	if err := s.db.WithContext(ctx).Where("tool_id = ?", id).Delete(&models.ToolImage{}).Error; err != nil {
		return fmt.Errorf("%w: delete images of tool %d: %v", common.ErrStore, id, err)
	}
	if err := s.db.WithContext(ctx).Delete(&models.Tool{}, id).Error; err != nil {
		return fmt.Errorf("%w: delete tool %d: %v", common.ErrStore, id, err)
	}
	return nil
}

func (s *ToolService) removeFile(toolID uint, p string) {
	if err := s.store.Remove(p); err != nil {
		s.log.Warn("tool file not removed", zap.Uint("tool_id", toolID), zap.String("path", p), zap.Error(err))
	}
}

// removeVariant skips variants that were never generated.
func (s *ToolService) removeVariant(toolID uint, p string) {
	if ok, err := s.store.Exists(p); err == nil && !ok {
		return
	}
	s.removeFile(toolID, p)
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
