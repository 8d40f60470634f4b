package authorization

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	jwt "github.com/appleboy/gin-jwt/v2"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	identityKey    = "user_id"
	defaultTimeout = time.Hour
)

// Module wires together the JWT middleware and backing services.
type Module struct {
	db            *gorm.DB
	userStore     *UserStore
	jwtMiddleware *jwt.GinJWTMiddleware
	captcha       *CaptchaStore
}

// RegisterRoutes bootstraps the authentication endpoints under /auth.
func RegisterRoutes(router *gin.Engine) (*Module, error) {
	dsn := strings.TrimSpace(os.Getenv("DATABASE_DSN"))
	if dsn == "" {
		return nil, errors.New("authorization: DATABASE_DSN environment variable is required")
	}

	driver := strings.TrimSpace(os.Getenv("DATABASE_DRIVER"))
	if driver == "" {
		driver = inferDriverFromDSN(dsn)
		if driver == "" {
			return nil, errors.New("authorization: DATABASE_DRIVER environment variable is required when DSN does not contain a scheme")
		}
	}

	db, err := openDatabase(driver, dsn)
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&User{}); err != nil {
		return nil, fmt.Errorf("authorization: migrate models: %w", err)
	}

	userStore := &UserStore{db: db}
	captchaStore := NewCaptchaStore(3 * time.Minute)
	authService := &AuthService{users: userStore}

	middleware, err := buildJWTMiddleware(authService, userStore)
	if err != nil {
		return nil, err
	}

	module := &Module{db: db, userStore: userStore, jwtMiddleware: middleware, captcha: captchaStore}

	authGroup := router.Group("/auth")
	authGroup.GET("/captcha", module.handleCaptcha)
	authGroup.POST("/signup", func(c *gin.Context) { module.handleSignup(c, authService) })
	authGroup.POST("/login", module.handleLogin)
	authGroup.POST("/refresh", middleware.RefreshHandler)

	secured := authGroup.Group("")
	secured.Use(middleware.MiddlewareFunc())
	secured.GET("/profile", module.handleGetProfile)
	secured.PUT("/profile", module.handleUpdateProfile)

	return module, nil
}

func (m *Module) handleCaptcha(c *gin.Context) {
	challenge := m.captcha.Issue()
	c.JSON(http.StatusOK, gin.H{
		"captcha_id": challenge.ID,
		"image":      challenge.ImageBase64,
		"expires_at": challenge.ExpiresAt.UTC(),
	})
}

func (m *Module) handleSignup(c *gin.Context, service *AuthService) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	if m.captcha != nil && !m.captcha.Verify(req.CaptchaID, req.CaptchaAnswer) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid captcha"})
		return
	}

	user, err := service.Signup(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidEmail):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email address"})
		case errors.Is(err, ErrWeakPassword):
			c.JSON(http.StatusBadRequest, gin.H{"error": ErrWeakPassword.Error()})
		case errors.Is(err, ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign up"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "user created successfully",
		"user":    buildUserPayload(user),
	})
}

func (m *Module) handleLogin(c *gin.Context) {
	// Peek at the body for captcha verification, then hand the untouched
	// payload to the JWT login handler.
	var req LoginRequest
	if err := bindAndRestore(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	if m.captcha != nil && !m.captcha.Verify(req.CaptchaID, req.CaptchaAnswer) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid captcha"})
		return
	}

	m.jwtMiddleware.LoginHandler(c)
}

func (m *Module) handleGetProfile(c *gin.Context) {
	userID := extractUserID(jwt.ExtractClaims(c))
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	user, err := m.userStore.FindByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": buildUserPayload(user)})
}

func (m *Module) handleUpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	if req.Username == nil && req.Preferences == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
		return
	}

	userID := extractUserID(jwt.ExtractClaims(c))
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	updated, err := m.userStore.UpdateProfile(c.Request.Context(), userID, UpdateProfileParams{
		Username:    req.Username,
		Preferences: req.Preferences,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": buildUserPayload(updated)})
}

// bindAndRestore decodes the request body into target and then rewinds it so
// a downstream handler can bind it again.
func bindAndRestore(c *gin.Context, target interface{}) error {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return errors.New("authorization: empty request body")
	}
	if err := json.Unmarshal(body, target); err != nil {
		return err
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	return nil
}

func openDatabase(driver, dsn string) (*gorm.DB, error) {
	config := &gorm.Config{NowFunc: func() time.Time { return time.Now().UTC() }}
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "pg":
		return gorm.Open(postgres.Open(dsn), config)
	case "mysql":
		return gorm.Open(mysql.Open(dsn), config)
	case "sqlite", "sqlite3":
		return gorm.Open(sqlite.Open(dsn), config)
	default:
		return nil, fmt.Errorf("authorization: unsupported database driver %q", driver)
	}
}

func inferDriverFromDSN(dsn string) string {
	lower := strings.ToLower(dsn)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return "postgres"
	case strings.HasPrefix(lower, "mysql://"):
		return "mysql"
	case strings.HasPrefix(lower, "sqlite://"), strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"):
		return "sqlite"
	default:
		return ""
	}
}

func buildJWTMiddleware(service *AuthService, users *UserStore) (*jwt.GinJWTMiddleware, error) {
	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		return nil, errors.New("authorization: JWT_SECRET environment variable is required")
	}

	return jwt.New(&jwt.GinJWTMiddleware{
		Realm:       "vocalia",
		Key:         []byte(secret),
		Timeout:     defaultTimeout,
		MaxRefresh:  24 * time.Hour,
		IdentityKey: identityKey,
		PayloadFunc: func(data interface{}) jwt.MapClaims {
			if user, ok := data.(*User); ok {
				return jwt.MapClaims{
					identityKey: user.ID,
					"username":  user.Username,
					"email":     user.Email,
				}
			}
			return jwt.MapClaims{}
		},
		IdentityHandler: func(c *gin.Context) interface{} {
			claims := jwt.ExtractClaims(c)
			return &AuthenticatedUser{
				ID:       extractUserID(claims),
				Username: extractStringClaim(claims, "username"),
				Email:    extractStringClaim(claims, "email"),
			}
		},
		Authenticator: func(c *gin.Context) (interface{}, error) {
			var req LoginRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				return nil, jwt.ErrMissingLoginValues
			}

			user, err := service.Authenticate(c.Request.Context(), req.Email, req.Password)
			if err != nil {
				return nil, jwt.ErrFailedAuthentication
			}

			c.Set("authenticated_user", user)
			return user, nil
		},
		Authorizator: func(data interface{}, c *gin.Context) bool {
			user, ok := data.(*AuthenticatedUser)
			return ok && user.ID != 0
		},
		Unauthorized: func(c *gin.Context, code int, message string) {
			c.JSON(code, gin.H{"error": message})
		},
		LoginResponse: func(c *gin.Context, code int, token string, expire time.Time) {
			response := gin.H{
				"token":  token,
				"expire": expire,
			}
			if value, ok := c.Get("authenticated_user"); ok {
				if user, ok := value.(*User); ok && user != nil {
					response["message"] = "welcome " + user.Username
					response["user"] = buildUserPayload(user)
				}
			}
			c.JSON(code, response)
		},
		RefreshResponse: func(c *gin.Context, code int, token string, expire time.Time) {
			response := gin.H{
				"token":  token,
				"expire": expire,
			}
			if userID := extractUserID(jwt.ExtractClaims(c)); userID != 0 {
				if user, err := users.FindByID(c.Request.Context(), userID); err == nil {
					response["user"] = buildUserPayload(user)
				}
			}
			c.JSON(code, response)
		},
		TokenLookup:   "header: Authorization, cookie: jwt, cookie: token",
		TokenHeadName: "Bearer",
		TimeFunc:      time.Now,
	})
}

// SignupRequest captures the payload for account creation.
type SignupRequest struct {
	Username      string `json:"username"`
	Email         string `json:"email" binding:"required"`
	Password      string `json:"password" binding:"required"`
	CaptchaID     string `json:"captcha_id" binding:"required"`
	CaptchaAnswer string `json:"captcha_answer" binding:"required"`
}

// LoginRequest represents the expected payload for the login endpoint.
type LoginRequest struct {
	Email         string `json:"email" binding:"required"`
	Password      string `json:"password" binding:"required"`
	CaptchaID     string `json:"captcha_id" binding:"required"`
	CaptchaAnswer string `json:"captcha_answer" binding:"required"`
}

// UpdateProfileRequest captures profile update fields.
type UpdateProfileRequest struct {
	Username    *string                `json:"username"`
	Preferences map[string]interface{} `json:"preferences"`
}

// AuthenticatedUser is the minimal identity stored inside JWT claims.
type AuthenticatedUser struct {
	ID       uint
	Username string
	Email    string
}

func extractUserID(claims jwt.MapClaims) uint {
	if claims == nil {
		return 0
	}
	idValue, ok := claims[identityKey]
	if !ok {
		return 0
	}

	switch v := idValue.(type) {
	case float64:
		return uint(v)
	case int64:
		return uint(v)
	case uint64:
		return uint(v)
	case int:
		return uint(v)
	case uint:
		return v
	case json.Number:
		if parsed, err := v.Int64(); err == nil {
			return uint(parsed)
		}
	}
	return 0
}

func extractStringClaim(claims jwt.MapClaims, key string) string {
	if claims == nil {
		return ""
	}
	value, _ := claims[key].(string)
	return value
}

func buildUserPayload(user *User) gin.H {
	if user == nil {
		return gin.H{}
	}

	preferences := user.Preferences
	if preferences == nil {
		preferences = map[string]interface{}{}
	}

	return gin.H{
		"id":            user.ID,
		"username":      user.Username,
		"email":         user.Email,
		"auth_provider": user.AuthProvider,
		"preferences":   preferences,
		"last_login_at": user.LastLoginAt,
		"created_at":    user.CreatedAt,
		"updated_at":    user.UpdatedAt,
	}
}
