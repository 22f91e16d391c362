package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/bloghub/middleware"
	"github.com/cppla/bloghub/services"
	"github.com/cppla/bloghub/utils"
)

// AuthController serves the authenticated user's own profile and public profiles.
type AuthController struct {
	users *services.UserService
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(users *services.UserService) *AuthController {
	return &AuthController{users: users}
}

// Me returns the authenticated user's profile.
func (a *AuthController) Me(ctx *gin.Context) {
	utils.Success(ctx, newSelfUserView(middleware.CurrentUser(ctx)))
}

// UpdateProfile updates the authenticated user's profile fields.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	var req updateProfileRequest
	if err := bindJSON(ctx, &req); err != nil {
		utils.Fail(ctx, err)
		return
	}

	user, err := a.users.UpdateProfile(ctx.Request.Context(), middleware.CurrentUser(ctx).ID, services.ProfileInput{
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Bio:          req.Bio,
		ProfileImage: req.ProfileImage,
	})
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.SuccessWithMessage(ctx, "Profile updated successfully", newSelfUserView(user))
}

// GetUserPublicByUsername returns the public profile of an active user.
func (a *AuthController) GetUserPublicByUsername(ctx *gin.Context) {
	user, err := a.users.GetPublic(ctx.Request.Context(), ctx.Param("username"))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, newPublicUserView(user))
}
