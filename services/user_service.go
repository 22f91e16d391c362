package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/bloghub/apperror"
	"github.com/cppla/bloghub/models"
	"github.com/cppla/bloghub/utils"
)

const (
	msgUserNotFound      = "User not found"
	msgUsernameDuplicate = "Username already exists"
	msgUserExists        = "User already exists"
	noReplyEmailDomain   = "users.noreply.bloghub"
	lastLoginGrace       = 5 * time.Minute
	maxUsernameLen       = 30
)

var usernameInvalid = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// ProfileInput carries self-service profile changes. Nil pointers leave fields unchanged.
type ProfileInput struct {
	Username     *string
	FirstName    *string
	LastName     *string
	Bio          *string
	ProfileImage *string
}

type UserService struct {
	db            *gorm.DB
	adminSubjects map[string]struct{}
	now           func() time.Time
}

// NewUserService creates the service. Subjects in adminSubjects are provisioned as admins.
func NewUserService(db *gorm.DB, adminSubjects []string) *UserService {
	set := make(map[string]struct{}, len(adminSubjects))
	for _, s := range adminSubjects {
		set[s] = struct{}{}
	}
	return &UserService{db: db, adminSubjects: set, now: time.Now}
}

// ResolveIdentity finds the local user for a verified identity, provisioning one on first sight.
func (s *UserService) ResolveIdentity(ctx context.Context, claims *utils.IdentityClaims) (*models.User, error) {
	user, err := s.findByExternalID(ctx, claims.Subject)
	if err == nil {
		s.touchLastLogin(ctx, user)
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, dbError(err, msgUserNotFound, msgUserExists)
	}

	user, err = s.provision(ctx, claims)
	if err != nil && isDuplicateKey(err) {
		// a concurrent request provisioned the same subject first
		if existing, findErr := s.findByExternalID(ctx, claims.Subject); findErr == nil {
			return existing, nil
		}
	}
	if err != nil {
		return nil, dbError(err, msgUserNotFound, msgUserExists)
	}
	return user, nil
}

func (s *UserService) findByExternalID(ctx context.Context, subject string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "external_id = ?", subject).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) touchLastLogin(ctx context.Context, user *models.User) {
	now := s.now()
	if now.Sub(user.LastLogin) < lastLoginGrace {
		return
	}
	if err := s.db.WithContext(ctx).Model(user).UpdateColumn("last_login", now).Error; err == nil {
		user.LastLogin = now
	}
}

func (s *UserService) provision(ctx context.Context, claims *utils.IdentityClaims) (*models.User, error) {
	username, err := s.uniqueUsername(ctx, usernameCandidate(claims))
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(claims.Email))
	if email != "" {
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
			return nil, err
		}
		if n > 0 {
			email = ""
		}
	}
	if email == "" {
		email = claims.Subject + "@" + noReplyEmailDomain
	}

	user := &models.User{
		ExternalID: claims.Subject,
		Username:   username,
		Email:      email,
		FirstName:  truncateRunes(claims.FirstName, 50),
		LastName:   truncateRunes(claims.LastName, 50),
		Role:       models.RoleUser,
		IsActive:   true,
		LastLogin:  s.now(),
	}
	if claims.ImageURL != "" {
		img := claims.ImageURL
		user.ProfileImage = &img
	}
	if _, ok := s.adminSubjects[claims.Subject]; ok {
		user.Role = models.RoleAdmin
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func usernameCandidate(claims *utils.IdentityClaims) string {
	candidates := []string{claims.Username}
	if at := strings.IndexByte(claims.Email, '@'); at > 0 {
		candidates = append(candidates, claims.Email[:at])
	}
	candidates = append(candidates, claims.FirstName+claims.LastName)
	for _, c := range candidates {
		if c = usernameInvalid.ReplaceAllString(c, ""); len(c) >= 3 {
			return c
		}
	}
	return "user"
}

// uniqueUsername appends _1, _2, ... until base is free.
func (s *UserService) uniqueUsername(ctx context.Context, base string) (string, error) {
	if len(base) > maxUsernameLen-4 {
		base = base[:maxUsernameLen-4]
	}
	candidate := base
	for i := 1; ; i++ {
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", candidate).Count(&n).Error; err != nil {
			return "", err
		}
		if n == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d", base, i)
	}
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, dbError(err, msgUserNotFound, "")
	}
	return &user, nil
}

// GetPublic returns an active user by username.
func (s *UserService) GetPublic(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "username = ? AND is_active = ?", username, true).Error; err != nil {
		return nil, dbError(err, msgUserNotFound, "")
	}
	return &user, nil
}

// UpdateProfile applies self-service profile changes.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*models.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if username != user.Username {
			var n int64
			if err := s.db.WithContext(ctx).Model(&models.User{}).
				Where("username = ? AND id <> ?", username, user.ID).
				Count(&n).Error; err != nil {
				return nil, dbError(err, msgUserNotFound, "")
			}
			if n > 0 {
				return nil, apperror.NewDuplicate(msgUsernameDuplicate, nil)
			}
			user.Username = username
		}
	}
	if in.FirstName != nil {
		user.FirstName = utils.StripTags(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = utils.StripTags(*in.LastName)
	}
	if in.Bio != nil {
		user.Bio = utils.StripTags(*in.Bio)
	}
	if in.ProfileImage != nil {
		if img := strings.TrimSpace(*in.ProfileImage); img != "" {
			user.ProfileImage = &img
		} else {
			user.ProfileImage = nil
		}
	}

	if err := s.db.WithContext(ctx).Model(user).
		Select("username", "first_name", "last_name", "bio", "profile_image", "updated_at").
		Updates(user).Error; err != nil {
		return nil, dbError(err, msgUserNotFound, msgUsernameDuplicate)
	}
	return user, nil
}

func truncateRunes(s string, max int) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > max {
		return string(r[:max])
	}
	return s
}
