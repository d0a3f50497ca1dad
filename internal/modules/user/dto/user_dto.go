package dto

import (
	"github.com/ShahriarTWS/TutorHub-Client/internal/entity"
	commonDto "github.com/ShahriarTWS/TutorHub-Client/pkg/dto"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Redirect string `json:"redirect"`
}

// RegisterRequest is posted as a multipart form with an optional "avatar".
type RegisterRequest struct {
	Name     string `form:"name" json:"name" binding:"required,notblank,max=100"`
	Email    string `form:"email" json:"email" binding:"required,email"`
	Password string `form:"password" json:"password" binding:"required,min=6"`
	PhotoURL string `form:"photoURL" json:"photoURL" binding:"omitempty,url"`
	Redirect string `form:"redirect" json:"redirect"`
}

type ResetPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type UserFilter struct {
	Search string `form:"search" binding:"max=100"`
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

type UserListResponse struct {
	Data []entity.User            `json:"data"`
	Meta commonDto.PaginationMeta `json:"meta"`
}

type UpdateRoleRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required,oneof=admin tutor student"`
}
