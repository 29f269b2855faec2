package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handlers serves the operator login endpoint
type Handlers struct {
	jwt          *JWTManager
	passwordHash string
}

// NewHandlers creates login handlers. An empty password hash disables login.
func NewHandlers(jwt *JWTManager, passwordHash string) *Handlers {
	return &Handlers{jwt: jwt, passwordHash: passwordHash}
}

// Login exchanges the operator password for an access token
// POST /api/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "VALIDATION_ERROR",
			"message": err.Error(),
		})
		return
	}

	if h.passwordHash == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   ErrLoginDisabled.Code,
			"message": ErrLoginDisabled.Message,
		})
		return
	}
	if !VerifyPassword(req.Password, h.passwordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   ErrInvalidCredentials.Code,
			"message": ErrInvalidCredentials.Message,
		})
		return
	}

	operator := req.Operator
	if operator == "" {
		operator = "operator"
	}
	resp, err := h.jwt.IssueToken(OperatorClaims{Operator: operator})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "INTERNAL_ERROR",
			"message": "failed to issue token",
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RegisterRoutes mounts the login route
func (h *Handlers) RegisterRoutes(r gin.IRouter) {
	r.POST("/auth/login", h.Login)
}
