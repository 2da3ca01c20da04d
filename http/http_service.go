package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/dressinghq/dressinghub/api"
	"github.com/dressinghq/dressinghub/config"
	"github.com/dressinghq/dressinghub/events"
	"github.com/dressinghq/dressinghub/logger"
	"github.com/dressinghq/dressinghub/profiles"
	"github.com/dressinghq/dressinghub/service"
	"github.com/dressinghq/dressinghub/state"
	"github.com/dressinghq/dressinghub/storage"
	"github.com/dressinghq/dressinghub/wardrobe"
)

type authTokenResponse struct {
	Token string `json:"token"`
}

type jwtCustomClaims struct {
	// we can add extra claims here
	// Name  string `json:"name"`
	// Admin bool   `json:"admin"`
	jwt.RegisteredClaims
}

type HttpService struct {
	api            api.API
	cfg            config.Config
	eventPublisher events.EventPublisher
	db             *gorm.DB
	store          *storage.Store
	authState      *state.Container[state.AuthState]
}

func NewHttpService(svc service.Service, eventPublisher events.EventPublisher) *HttpService {
	return &HttpService{
		api:            api.NewAPI(svc, svc.GetDB(), svc.GetConfig(), eventPublisher),
		cfg:            svc.GetConfig(),
		eventPublisher: eventPublisher,
		db:             svc.GetDB(),
		store:          svc.GetCacheStore(),
		authState:      svc.GetAuthState(),
	}
}

func (httpSvc *HttpService) RegisterSharedRoutes(e *echo.Echo) {
	e.HideBanner = true

	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ContentSecurityPolicy: "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; connect-src 'self'; img-src 'self' data:; frame-src 'none'; object-src 'none'; base-uri 'self';",
		ReferrerPolicy:        "no-referrer",
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogHost:      true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			logger.HttpLogger.Info().
				Str("uri", values.URI).
				Int("status", values.Status).
				Str("remote_ip", values.RemoteIP).
				Str("user_agent", values.UserAgent).
				Str("host", values.Host).
				Str("request_id", values.RequestID).
				Msg("handled API request")
			return nil
		},
	}))

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	e.GET("/api/info", httpSvc.infoHandler)
	e.POST("/api/setup", httpSvc.setupHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// allow one unlock request per second
	unlockRateLimiter := middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(1))
	e.POST("/api/unlock", httpSvc.unlockHandler, unlockRateLimiter)

	// restricted routes
	// Configure middleware with the custom claims type
	jwtConfig := echojwt.Config{
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(jwtCustomClaims)
		},
		// use a custom key func as the JWT secret will change if the user changes their unlock password
		KeyFunc: func(token *jwt.Token) (interface{}, error) {
			secret, err := httpSvc.cfg.GetJWTSecret()
			if err != nil {
				return nil, err
			}
			return []byte(secret), nil
		},
		TokenLookup: "header:Authorization:Bearer ,query:token",
	}

	apiGroup := e.Group("/api")
	apiGroup.Use(echojwt.WithConfig(jwtConfig))
	apiGroup.Use(httpSvc.touchActivity)

	apiGroup.GET("/health", httpSvc.healthHandler)

	apiGroup.GET("/profiles", httpSvc.listProfilesHandler)
	apiGroup.POST("/profiles", httpSvc.createProfileHandler)
	apiGroup.PATCH("/profiles/:id", httpSvc.renameProfileHandler)
	apiGroup.DELETE("/profiles/:id", httpSvc.deleteProfileHandler)
	apiGroup.POST("/profiles/:id/switch", httpSvc.switchProfileHandler)

	apiGroup.GET("/wardrobe/items", httpSvc.listWardrobeItemsHandler)
	apiGroup.POST("/wardrobe/items", httpSvc.addWardrobeItemHandler)
	apiGroup.DELETE("/wardrobe/items/:id", httpSvc.deleteWardrobeItemHandler)

	apiGroup.GET("/recommendations", httpSvc.getRecommendationsHandler)
	apiGroup.POST("/recommendations/refresh", httpSvc.refreshRecommendationsHandler)

	apiGroup.GET("/settings", httpSvc.getSettingsHandler)
	apiGroup.PATCH("/settings", httpSvc.updateSettingsHandler)

	apiGroup.PATCH("/unlock-password", httpSvc.changeUnlockPasswordHandler)
	apiGroup.PATCH("/auto-unlock", httpSvc.autoUnlockHandler)

	apiGroup.GET("/diagnostics", httpSvc.getDiagnosticsHandler)
	apiGroup.GET("/log", httpSvc.getLogOutputHandler)
	apiGroup.POST("/event", httpSvc.eventHandler)
	apiGroup.POST("/logout", httpSvc.logoutHandler)
}

// touchActivity records the last-activity timestamp for authenticated
// requests without delaying the response.
func (httpSvc *HttpService) touchActivity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := storage.UpdateLastActivity(ctx, httpSvc.store); err != nil {
				logger.Logger.Debug().Err(err).Msg("Failed to update last activity")
			}
		}()
		return next(c)
	}
}

func (httpSvc *HttpService) infoHandler(c echo.Context) error {
	// Check if user is unlocked
	unlocked := false
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			tokenString := parts[1]
			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				secret, err := httpSvc.cfg.GetJWTSecret()
				if err != nil {
					return nil, err
				}
				return []byte(secret), nil
			})
			if err == nil && token != nil && token.Valid {
				unlocked = true
			}
		}
	}

	responseBody, err := httpSvc.api.GetInfo(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: err.Error(),
		})
	}

	if !unlocked {
		responseBody.WorkDir = "" // Don't expose workdir if not unlocked
	}
	responseBody.Unlocked = unlocked

	return c.JSON(http.StatusOK, responseBody)
}

func (httpSvc *HttpService) setupHandler(c echo.Context) error {
	var setupRequest api.SetupRequest
	if err := c.Bind(&setupRequest); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: fmt.Sprintf("Bad request: %s", err.Error()),
		})
	}

	err := httpSvc.api.Setup(c.Request().Context(), &setupRequest)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: fmt.Sprintf("Failed to setup hub: %s", err.Error()),
		})
	}

	return c.NoContent(http.StatusNoContent)
}

func (httpSvc *HttpService) unlockHandler(c echo.Context) error {
	var unlockRequest api.UnlockRequest
	if err := c.Bind(&unlockRequest); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: fmt.Sprintf("Bad request: %s", err.Error()),
		})
	}

	if !httpSvc.cfg.CheckUnlockPassword(unlockRequest.UnlockPassword) {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "Invalid password",
		})
	}

	if err := httpSvc.cfg.Unlock(unlockRequest.UnlockPassword); err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: fmt.Sprintf("Failed to unlock: %s", err.Error()),
		})
	}

	token, err := httpSvc.createJWT(nil)

	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: fmt.Sprintf("Failed to save session: %s", err.Error()),
		})
	}

	httpSvc.authState.Update(c.Request().Context(), func(authState *state.AuthState) {
		authState.SessionIssuedAt = time.Now().UnixMilli()
	})

	httpSvc.eventPublisher.Publish(&events.Event{
		Event: "hub_unlocked",
	})

	return c.JSON(http.StatusOK, &authTokenResponse{
		Token: token,
	})
}

func (httpSvc *HttpService) createJWT(tokenExpiryDays *uint64) (string, error) {
	expiryDays := uint64(30)
	if tokenExpiryDays != nil {
		expiryDays = *tokenExpiryDays
	}

	// Set custom claims
	claims := &jwtCustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 24 * time.Duration(expiryDays))),
		},
	}

	// Create token with claims
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	if token == nil {
		return "", errors.New("failed to create token")
	}

	secret, err := httpSvc.cfg.GetJWTSecret()
	if err != nil {
		return "", err
	}

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}
	return signed, nil
}

func (httpSvc *HttpService) healthHandler(c echo.Context) error {
	healthResponse, err := httpSvc.api.Health(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: fmt.Sprintf("Failed to check hub health: %v", err),
		})
	}

	return c.JSON(http.StatusOK, healthResponse)
}

func (httpSvc *HttpService) listProfilesHandler(c echo.Context) error {
	responseBody, err := httpSvc.api.ListProfiles(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: fmt.Sprintf("Failed to list profiles: %s", err.Error()),
		})
	}

	return c.JSON(http.StatusOK, responseBody)
}

func (httpSvc *HttpService) createProfileHandler(c echo.Context) error {
	var createProfileRequest api.CreateProfileRequest
	if err := c.Bind(&createProfileRequest); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: fmt.Sprintf("Bad request: %s", err.Error()),
		})
	}

	profile, err := httpSvc.api.CreateProfile(c.Request().Context(), &createProfileRequest)
	if err != nil {
		if errors.Is(err, profiles.ErrProfileLimitReached) {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: err.Error(),
			})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: fmt.Sprintf("Failed to create profile: %s", err.Error()),
		})
	}

	return c.JSON(http.StatusOK, profile)
}

func (httpSvc *HttpService) renameProfileHandler(c echo.Context) error {
	var renameProfileRequest api.RenameProfileRequest
	if err := c.Bind(&renameProfileRequest); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: fmt.Sprintf("Bad request: %s", err.Error()),
		})
	}

	profile, err := httpSvc.api.RenameProfile(c.Request().Context(), c.Param("id"), &renameProfileRequest)
	if err != nil {
		if errors.Is(err, profiles.ErrProfileNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Message: "Profile not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: fmt.Sprintf("Failed to rename profile: %s", err.Error()),
		})
	}

	return c.JSON(http.StatusOK, profile)
}

func (httpSvc *HttpService) deleteProfileHandler(c echo.Context) error {
	err := httpSvc.api.DeleteProfile(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, profiles.ErrProfileNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Message: "Profile not found",
			})
		}
		if errors.Is(err, profiles.ErrProfileActive) {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: err.Error(),
			})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: fmt.Sprintf("Failed to delete profile: %s", err.Error()),
		})
	}

	return c.NoContent(http.StatusNoContent)
}

func (httpSvc *HttpService) switchProfileHandler(c echo.Context) error {
	responseBody, err := httpSvc.api.SwitchProfile(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, profiles.ErrProfileNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Message: "Profile not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: fmt.Sprintf("Failed to switch profile: %s", err.Error()),
		})
	}

	return c.JSON(http.StatusOK, responseBody)
}

func (httpSvc *HttpService) listWardrobeItemsHandler(c echo.Context) error {
	responseBody, err := httpSvc.api.ListWardrobeItems(c.Request().Context(), c.QueryParam("profileId"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: fmt.Sprintf("Failed to list wardrobe items: %s", err.Error()),
		})
	}

	return c.JSON(http.StatusOK, responseBody)
}

func (httpSvc *HttpService) addWardrobeItemHandler(c echo.Context) error {
	var addWardrobeItemRequest api.AddWardrobeItemRequest
	if err := c.Bind(&addWardrobeItemRequest); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: fmt.Sprintf("Bad request: %s", err.Error()),
		})
	}

	item, err := httpSvc.api.AddWardrobeItem(c.Request().Context(), &addWardrobeItemRequest)
	if err != nil {
		if errors.Is(err, profiles.ErrProfileNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Message: "Profile not found",
			})
		}
		if errors.Is(err, wardrobe.ErrInvalidColor) {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: err.Error(),
			})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: fmt.Sprintf("Failed to add wardrobe item: %s", err.Error()),
		})
	}

	return c.JSON(http.StatusOK, item)
}

func (httpSvc *HttpService) deleteWardrobeItemHandler(c echo.Context) error {
	err := httpSvc.api.DeleteWardrobeItem(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, wardrobe.ErrItemNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Message: "Wardrobe item not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: fmt.Sprintf("Failed to delete wardrobe item: %s", err.Error()),
		})
	}

	return c.NoContent(http.StatusNoContent)
}

func (httpSvc *HttpService) getRecommendationsHandler(c echo.Context) error {
	responseBody, err := httpSvc.api.GetRecommendations(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: fmt.Sprintf("Failed to get recommendations: %s", err.Error()),
		})
	}

	return c.JSON(http.StatusOK, responseBody)
}

func (httpSvc *HttpService) refreshRecommendationsHandler(c echo.Context) error {
	responseBody, err := httpSvc.api.RefreshRecommendations(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: fmt.Sprintf("Failed to refresh recommendations: %s", err.Error()),
		})
	}

	return c.JSON(http.StatusOK, responseBody)
}

func (httpSvc *HttpService) getSettingsHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, httpSvc.api.GetSettings())
}

func (httpSvc *HttpService) updateSettingsHandler(c echo.Context) error {
	var updateSettingsRequest api.UpdateSettingsRequest
	if err := c.Bind(&updateSettingsRequest); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: fmt.Sprintf("Bad request: %s", err.Error()),
		})
	}

	responseBody, err := httpSvc.api.UpdateSettings(c.Request().Context(), &updateSettingsRequest)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: fmt.Sprintf("Failed to update settings: %s", err.Error()),
		})
	}

	return c.JSON(http.StatusOK, responseBody)
}

func (httpSvc *HttpService) changeUnlockPasswordHandler(c echo.Context) error {
	var changeUnlockPasswordRequest api.ChangeUnlockPasswordRequest
	if err := c.Bind(&changeUnlockPasswordRequest); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: fmt.Sprintf("Bad request: %s", err.Error()),
		})
	}

	err := httpSvc.api.ChangeUnlockPassword(&changeUnlockPasswordRequest)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: fmt.Sprintf("Failed to change unlock password: %s", err.Error()),
		})
	}

	return c.NoContent(http.StatusNoContent)
}

func (httpSvc *HttpService) autoUnlockHandler(c echo.Context) error {
	var autoUnlockRequest api.AutoUnlockRequest
	if err := c.Bind(&autoUnlockRequest); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: fmt.Sprintf("Bad request: %s", err.Error()),
		})
	}

	err := httpSvc.api.SetAutoUnlockPassword(autoUnlockRequest.UnlockPassword)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: fmt.Sprintf("Failed to set auto unlock password: %s", err.Error()),
		})
	}

	return c.NoContent(http.StatusNoContent)
}

func (httpSvc *HttpService) getDiagnosticsHandler(c echo.Context) error {
	limit := uint64(0)
	if limitParam := c.QueryParam("limit"); limitParam != "" {
		var err error
		limit, err = strconv.ParseUint(limitParam, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: fmt.Sprintf("Invalid limit parameter: %s", limitParam),
			})
		}
	}

	responseBody, err := httpSvc.api.GetDiagnostics(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: fmt.Sprintf("Failed to get diagnostics: %s", err.Error()),
		})
	}

	return c.JSON(http.StatusOK, responseBody)
}

func (httpSvc *HttpService) getLogOutputHandler(c echo.Context) error {
	var getLogRequest api.GetLogOutputRequest
	if err := c.Bind(&getLogRequest); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: fmt.Sprintf("Bad request: %s", err.Error()),
		})
	}

	getLogResponse, err := httpSvc.api.GetLogOutput(c.Request().Context(), &getLogRequest)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: fmt.Sprintf("Failed to get log output: %v", err),
		})
	}

	return c.JSON(http.StatusOK, getLogResponse)
}

func (httpSvc *HttpService) eventHandler(c echo.Context) error {
	var sendEventRequest api.SendEventRequest
	if err := c.Bind(&sendEventRequest); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: fmt.Sprintf("Bad request: %s", err.Error()),
		})
	}

	httpSvc.api.SendEvent(sendEventRequest.Event, sendEventRequest.Properties)

	return c.NoContent(http.StatusOK)
}

func (httpSvc *HttpService) logoutHandler(c echo.Context) error {
	err := httpSvc.api.Logout(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: fmt.Sprintf("Failed to log out: %s", err.Error()),
		})
	}

	return c.NoContent(http.StatusNoContent)
}
