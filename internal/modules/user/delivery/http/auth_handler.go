package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/ShahriarTWS/TutorHub-Client/internal/guard"
	"github.com/ShahriarTWS/TutorHub-Client/internal/modules/user/dto"
	"github.com/ShahriarTWS/TutorHub-Client/internal/modules/user/service"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/apperror"
	commonDto "github.com/ShahriarTWS/TutorHub-Client/pkg/dto"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/response"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/validator"
	"github.com/gin-gonic/gin"
)

// returnCookie carries the return path across the google round trip.
const returnCookie = "tutorhub_return"

type AuthHandler struct {
	authService   service.AuthService
	googleEnabled bool
	secureCookies bool
}

func NewAuthHandler(authService service.AuthService, googleEnabled, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		googleEnabled: googleEnabled,
		secureCookies: secureCookies,
	}
}

// LoginPage is the login entry. It only echoes a sanitized return path.
func (h *AuthHandler) LoginPage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"redirect": guard.SafeReturnPath(c.Query("redirect")),
		"google":   h.googleEnabled,
		"error":    c.Query("error"),
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	id, err := h.authService.Login(c.Request.Context(), c.Writer, c.Request, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":     id,
		"redirect": guard.SafeReturnPath(req.Redirect),
	})
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	var avatar *commonDto.UploadedFile
	fh, err := c.FormFile("avatar")
	switch {
	case err == nil:
		file, closeFile, openErr := commonDto.OpenUpload(fh)
		if openErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "avatar could not be read"})
			return
		}
		defer closeFile()
		avatar = file
	case !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid avatar upload"})
		return
	}

	id, err := h.authService.Register(c.Request.Context(), c.Writer, c.Request, req, avatar)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":     id,
		"redirect": guard.SafeReturnPath(req.Redirect),
	})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), req.Email); err != nil {
		// unknown emails are not disclosed
		if !errors.Is(err, apperror.ErrNotFound) {
			response.ResponseError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "if the account exists, a reset link has been sent"})
}

func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	authURL, err := h.authService.GoogleAuthURL(c.Writer, c.Request)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(returnCookie, guard.SafeReturnPath(c.Query("redirect")), 600, "/", "", h.secureCookies, true)
	c.Redirect(http.StatusTemporaryRedirect, authURL)
}

func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.Redirect(http.StatusTemporaryRedirect, response.LoginPath+"?error="+url.QueryEscape("google sign-in was cancelled"))
		return
	}

	returnPath, _ := c.Cookie(returnCookie)
	c.SetCookie(returnCookie, "", -1, "/", "", h.secureCookies, true)

	if _, err := h.authService.CompleteGoogle(c.Request.Context(), c.Writer, c.Request, c.Query("state"), code); err != nil {
		c.Redirect(http.StatusTemporaryRedirect, response.LoginPath+"?error="+url.QueryEscape(apperror.Message(err)))
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, guard.SafeReturnPath(returnPath))
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Writer, c.Request); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "signed out", "redirect": response.LoginPath})
}
