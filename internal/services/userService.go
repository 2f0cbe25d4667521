package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/arzan03/EduHub/internal/apperr"
	"github.com/arzan03/EduHub/internal/models"
	"github.com/arzan03/EduHub/internal/utils"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MaxAvatarSize bounds profile picture uploads.
const MaxAvatarSize = 2 << 20

var avatarTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type UpdateProfileInput struct {
	Name  string `json:"name" validate:"required,min=2,max=100"`
	Bio   string `json:"bio" validate:"max=500"`
	Phone string `json:"phone" validate:"max=30"`
}

// AvatarUpload is an uploaded profile image.
type AvatarUpload struct {
	Body        io.Reader
	Size        int64
	ContentType string
}

type UserService struct {
	stores  Stores
	objects ObjectStore
	log     *zap.Logger
}

func NewUserService(stores Stores, objects ObjectStore, log *zap.Logger) *UserService {
	return &UserService{stores: stores, objects: objects, log: log}
}

func (s *UserService) List(ctx context.Context, f models.UserFilter) ([]models.User, error) {
	if f.Role != "" && !models.ValidRole(f.Role) {
		return nil, apperr.BadRequest("Invalid role filter")
	}
	f.Query = strings.TrimSpace(f.Query)
	users, err := s.stores.Users.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return users, nil
}

func (s *UserService) Students(ctx context.Context) ([]models.User, error) {
	return s.List(ctx, models.UserFilter{Role: models.RoleStudent})
}

func (s *UserService) Get(ctx context.Context, idHex string) (models.User, error) {
	id, err := parseID(idHex, "user")
	if err != nil {
		return models.User{}, err
	}
	user, err := s.stores.Users.FindByID(ctx, id)
	if err != nil {
		return models.User{}, notFoundOr(err, "User not found")
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, actor Actor, in UpdateProfileInput) (models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Bio = strings.TrimSpace(in.Bio)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := validateStruct(in); err != nil {
		return models.User{}, err
	}

	user, err := s.stores.Users.FindByID(ctx, actor.ID)
	if err != nil {
		return models.User{}, notFoundOr(err, "User not found")
	}
	user.Name = in.Name
	user.Bio = in.Bio
	user.Phone = in.Phone
	user.UpdatedAt = time.Now().UTC()
	if err := s.stores.Users.Update(ctx, &user); err != nil {
		return models.User{}, apperr.Internal(err)
	}
	return user, nil
}

// UploadAvatar stores a new profile image and drops the previous one.
func (s *UserService) UploadAvatar(ctx context.Context, actor Actor, up AvatarUpload) (models.User, error) {
	if up.Size <= 0 {
		return models.User{}, apperr.BadRequest("Avatar file is empty")
	}
	if up.Size > MaxAvatarSize {
		return models.User{}, apperr.BadRequest(fmt.Sprintf("Avatar exceeds %s (got %s)",
			humanize.IBytes(MaxAvatarSize), humanize.IBytes(uint64(up.Size))))
	}
	ext, ok := avatarTypes[strings.ToLower(up.ContentType)]
	if !ok {
		return models.User{}, apperr.BadRequest("Avatar must be a JPEG, PNG, GIF or WebP image")
	}

	user, err := s.stores.Users.FindByID(ctx, actor.ID)
	if err != nil {
		return models.User{}, notFoundOr(err, "User not found")
	}

	key := path.Join(user.ID.Hex(), uuid.NewString()+ext)
	url, err := s.objects.Put(ctx, key, up.Body, up.Size, up.ContentType)
	if err != nil {
		return models.User{}, apperr.Internal(err)
	}

	oldKey := user.AvatarKey
	user.AvatarURL = url
	user.AvatarKey = key
	user.UpdatedAt = time.Now().UTC()
	if err := s.stores.Users.Update(ctx, &user); err != nil {
		// Try to clean up the uploaded file if metadata update fails
		if rmErr := s.objects.Remove(ctx, key); rmErr != nil {
			s.log.Warn("failed to remove orphaned avatar", zap.String("key", key), zap.Error(rmErr))
		}
		return models.User{}, apperr.Internal(err)
	}

	if oldKey != "" {
		if err := s.objects.Remove(ctx, oldKey); err != nil {
			s.log.Warn("failed to remove previous avatar", zap.String("key", oldKey), zap.Error(err))
		}
	}
	return user, nil
}

// Delete removes a user together with everything that references them.
func (s *UserService) Delete(ctx context.Context, actor Actor, idHex string) error {
	id, err := parseID(idHex, "user")
	if err != nil {
		return err
	}
	if id == actor.ID {
		return apperr.BadRequest("You cannot delete your own account")
	}
	user, err := s.stores.Users.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "User not found")
	}
	if !user.IsStudent() {
		return apperr.Forbidden("Only student accounts can be deleted")
	}

	if err := s.stores.Users.Delete(ctx, id); err != nil {
		return notFoundOr(err, "User not found")
	}
	s.purge(ctx, user)
	s.log.Info("user deleted", zap.String("user_id", id.Hex()), zap.String("by", actor.ID.Hex()))
	return nil
}

// purge removes data owned by a deleted user. Failures are logged, the
// account itself is already gone.
func (s *UserService) purge(ctx context.Context, user models.User) {
	steps := []struct {
		name string
		run  func(context.Context, primitive.ObjectID) error
	}{
		{"tasks", s.stores.Tasks.DeleteByUser},
		{"results", s.stores.Results.DeleteByStudent},
		{"messages", s.stores.Messages.DeleteByUser},
		{"exams", s.stores.Exams.RemoveAssignee},
	}

	tasks := make([]utils.ParallelTask, 0, len(steps))
	for _, step := range steps {
		step := step
		tasks = append(tasks, func(ctx context.Context) error {
			if err := step.run(ctx, user.ID); err != nil {
				s.log.Error("failed to purge user data", zap.String("collection", step.name), zap.String("user_id", user.ID.Hex()), zap.Error(err))
			}
			return nil
		})
	}
	_ = utils.RunParallelTasksLimit(ctx, 2, tasks...)

	if user.AvatarKey != "" {
		if err := s.objects.Remove(ctx, user.AvatarKey); err != nil {
			s.log.Warn("failed to remove avatar", zap.String("key", user.AvatarKey), zap.Error(err))
		}
	}
}
