package handler

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
)

const ctxModeratorID = "moderator_id"

func jwtSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "insecure-dev-secret"
	}
	return []byte(secret)
}

func generateJWT(moderatorID int64) (string, error) {
	claims := jwt.MapClaims{
		"moderator_id": strconv.FormatInt(moderatorID, 10),
		"exp":          time.Now().Add(time.Hour * 72).Unix(),
		"iss":          "modguard-service",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

func validateAndGetModeratorID(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return jwtSecret(), nil
	})
	if err != nil {
		return 0, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, fmt.Errorf("invalid token claims")
	}
	idStr, ok := claims["moderator_id"].(string)
	if !ok {
		return 0, fmt.Errorf("moderator_id claim missing")
	}
	return strconv.ParseInt(idStr, 10, 64)
}

type loginRequest struct {
	ModeratorID int64  `json:"moderator_id" binding:"required"`
	APIKey      string `json:"api_key" binding:"required"`
}

// Login exchanges the shared dashboard key for a moderator session JWT.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	apiKey := os.Getenv("MODERATOR_API_KEY")
	if apiKey == "" || req.APIKey != apiKey {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
		return
	}

	token, err := generateJWT(req.ModeratorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "moderator_id": req.ModeratorID})
}

// AuthRequired validates the Bearer token and stores the moderator id
// in the request context.
func (h *Handler) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization token missing"})
			return
		}

		moderatorID, err := validateAndGetModeratorID(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token or expired"})
			return
		}

		c.Set(ctxModeratorID, moderatorID)
		c.Next()
	}
}
