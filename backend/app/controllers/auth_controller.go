package controllers

import (
	"net/http"

	"trackdash/backend/app/dto"
	jwtutil "trackdash/backend/app/jwt"
	"trackdash/backend/app/services"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	Users  *services.UserService
	Signer *jwtutil.Signer
}

func NewAuthController(users *services.UserService, signer *jwtutil.Signer) *AuthController {
	return &AuthController{Users: users, Signer: signer}
}

func (ctl *AuthController) Login(c *gin.Context) {
	var req dto.LoginRequest
	_ = c.ShouldBindJSON(&req)
	if req.Username == "" || req.Password == "" {
		badRequest(c, "missing credentials")
		return
	}
	u, err := ctl.Users.ValidateCredentials(req.Username, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	token, err := ctl.Signer.Sign(u.ID, u.Username, u.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "token error"})
		return
	}
	c.JSON(http.StatusOK, dto.TokenResponse{AccessToken: token})
}
