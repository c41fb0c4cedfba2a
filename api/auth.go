package api

import (
	"crypto"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"sokoni/models"
)

// contextUserKey 是通過驗證的使用者在 gin context 中的鍵
const contextUserKey = "auth.user"

type JWT struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func ParseAndValidateJWT(tokenString string, secret crypto.Signer) (*JWT, error) {
	const op = "ParseJWT"
	token, err := jwt.ParseWithClaims(tokenString, &JWT{}, func(token *jwt.Token) (interface{}, error) {
		return secret.Public(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%s: token is invalid", op)
	}
	claims, ok := token.Claims.(*JWT)
	if !ok {
		return nil, fmt.Errorf("%s: token claims are invalid", op)
	}
	return claims, nil
}

// issueAccessToken 為通過驗證的使用者簽發存取憑證
func (impl *ServerImpl) issueAccessToken(user *models.User) (string, error) {
	const op = "IssueAccessToken"
	token := jwt.NewWithClaims(&jwt.SigningMethodEd25519{}, JWT{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(impl.config.Auth.ExpireDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    impl.config.Auth.Issuer,
			Subject:   user.ID.String(),
			ID:        uuid.NewString(),
			Audience:  []string{impl.config.Auth.Audience},
		},
	})
	tokenString, err := token.SignedString(impl.config.Auth.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("[%s] Fail to sign JWT, err=%w", op, err)
	}
	return tokenString, nil
}

// bearerToken 自 Authorization 標頭取出憑證字串
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

// loadTokenUser 驗證憑證並載入對應的使用者
func (impl *ServerImpl) loadTokenUser(c *gin.Context) (*models.User, error) {
	tokenString, ok := bearerToken(c)
	if !ok {
		return nil, models.Errorf(models.ErrValidation, "Not authenticated")
	}
	claims, err := ParseAndValidateJWT(tokenString, impl.config.Auth.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("fail to validate access token, err=%w", err)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("fail to parse token subject, err=%w", err)
	}
	user := models.User{ID: userID}
	if result := impl.db.WithContext(c.Request.Context()).First(&user); result.Error != nil {
		return nil, fmt.Errorf("fail to find token user, err=%w", result.Error)
	}
	return &user, nil
}

// authRequired 要求請求帶有合法的存取憑證
func (impl *ServerImpl) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := impl.loadTokenUser(c)
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			abortWithMessage(c, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		c.Set(contextUserKey, user)
		c.Next()
	}
}

// authOptional 嘗試載入使用者，沒有憑證或憑證無效時以匿名身分繼續
func (impl *ServerImpl) authOptional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, err := impl.loadTokenUser(c); err == nil {
			c.Set(contextUserKey, user)
		}
		c.Next()
	}
}

// adminRequired 要求使用者具有管理員身分，必須接在 authRequired 之後
func (impl *ServerImpl) adminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil || !user.IsAdmin {
			abortWithMessage(c, http.StatusForbidden, "Admin privileges required")
			return
		}
		c.Next()
	}
}

// currentUser 取出通過驗證的使用者，匿名請求回傳 nil
func currentUser(c *gin.Context) *models.User {
	value, exists := c.Get(contextUserKey)
	if !exists {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register a new account
// (POST /api/auth/register)
func (impl *ServerImpl) PostRegister(c *gin.Context) {
	const op = "PostRegister"
	ctx := c.Request.Context()
	var body RegisterRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithMessage(c, http.StatusBadRequest, "Username and password are required")
		return
	}
	// 檢查密碼長度，bcrypt 的輸入上限是72個位元組
	if len(body.Password) < 6 {
		abortWithMessage(c, http.StatusBadRequest, "Password must be at least 6 characters long")
		return
	}
	if len(body.Password) > 72 {
		abortWithMessage(c, http.StatusBadRequest, "Password is too long. Maximum length is 72 characters.")
		return
	}
	// 檢查帳號與信箱是否已被使用
	var count int64
	if result := impl.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", body.Username).Count(&count); result.Error != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to check username, err=%w", op, result.Error))
		return
	}
	if count > 0 {
		abortWithMessage(c, http.StatusBadRequest, "Username already registered")
		return
	}
	if body.Email != "" {
		if result := impl.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", body.Email).Count(&count); result.Error != nil {
			abortWithError(c, fmt.Errorf("[%s] Fail to check email, err=%w", op, result.Error))
			return
		}
		if count > 0 {
			abortWithMessage(c, http.StatusBadRequest, "Email already registered")
			return
		}
	}
	// 建立使用者
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to hash password, err=%w", op, err))
		return
	}
	user := models.User{
		Username:     body.Username,
		Email:        body.Email,
		FullName:     body.FullName,
		PasswordHash: string(passwordHash),
	}
	if result := impl.db.WithContext(ctx).Create(&user); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			abortWithMessage(c, http.StatusBadRequest, "Username already registered")
			return
		}
		abortWithError(c, fmt.Errorf("[%s] Fail to create user, err=%w", op, result.Error))
		return
	}
	tokenString, err := impl.issueAccessToken(&user)
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to issue access token, err=%w", op, err))
		return
	}
	c.JSON(http.StatusCreated, TokenResponse{
		AccessToken: tokenString,
		TokenType:   "bearer",
		User:        impl.toUserResponse(&user),
	})
}

// Sign in with username and password
// (POST /api/auth/login)
func (impl *ServerImpl) PostLogin(c *gin.Context) {
	const op = "PostLogin"
	ctx := c.Request.Context()
	var body LoginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithMessage(c, http.StatusBadRequest, "Username and password are required")
		return
	}
	var user models.User
	if result := impl.db.WithContext(ctx).Where("username = ?", body.Username).First(&user); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			abortWithMessage(c, http.StatusUnauthorized, "Incorrect username or password")
			return
		}
		abortWithError(c, fmt.Errorf("[%s] Fail to find user, err=%w", op, result.Error))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
		abortWithMessage(c, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	tokenString, err := impl.issueAccessToken(&user)
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to issue access token, err=%w", op, err))
		return
	}
	c.JSON(http.StatusOK, TokenResponse{
		AccessToken: tokenString,
		TokenType:   "bearer",
		User:        impl.toUserResponse(&user),
	})
}

// Get the authenticated user's profile
// (GET /api/auth/me)
func (impl *ServerImpl) GetAuthMe(c *gin.Context) {
	user := currentUser(c)
	c.JSON(http.StatusOK, impl.toUserResponse(user))
}
