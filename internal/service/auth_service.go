package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muni-gth/papeletas-api/internal/dto"
	"github.com/muni-gth/papeletas-api/internal/models"
	"github.com/muni-gth/papeletas-api/internal/remote"
	"github.com/muni-gth/papeletas-api/internal/repository"
	"github.com/muni-gth/papeletas-api/internal/store"
	appErrors "github.com/muni-gth/papeletas-api/pkg/errors"
)

type authSessionRepository interface {
	Save(ctx context.Context, session models.Session, ttl time.Duration) error
	Find(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}

// AuditRecorder journals gateway actions. A nil recorder disables
// journaling.
type AuditRecorder interface {
	Record(ctx context.Context, entry *models.AuditLog) error
}

type sessionGauge interface {
	SetActiveSessions(n int)
}

// AuthConfig defines configuration for session issuance.
type AuthConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// AuthService authenticates employees by DNI against the remote service
// and manages gateway sessions.
type AuthService struct {
	registry  *store.Registry
	sessions  authSessionRepository
	audit     AuditRecorder
	gauge     sessionGauge
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(registry *store.Registry, sessions authSessionRepository, audit AuditRecorder, gauge sessionGauge, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Expiration <= 0 {
		config.Expiration = 12 * time.Hour
	}
	return &AuthService{
		registry:  registry,
		sessions:  sessions,
		audit:     audit,
		gauge:     gauge,
		validator: validate,
		logger:    logger,
		config:    config,
	}
}

// Login authenticates a DNI and issues a session token. A failed lookup
// never tears down an existing session for the same employee.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "el DNI debe tener 8 dígitos")
	}

	sessionID := uuid.NewString()
	session := s.registry.GetOrCreate(sessionID)

	identity, err := session.Store.Authenticate(ctx, req.NroDocumento)
	if err != nil {
		s.registry.Remove(sessionID)
		var rejected *remote.RejectedError
		if errors.As(err, &rejected) {
			if rejected.Mensaje != "" {
				return nil, appErrors.Clone(appErrors.ErrInvalidDocument, rejected.Mensaje)
			}
			return nil, appErrors.ErrInvalidDocument
		}
		return nil, mapRemoteError(err)
	}

	now := time.Now().UTC()
	expiresAt := now.Add(s.config.Expiration)

	token, err := s.generateToken(sessionID, identity.NroDocumento, now, expiresAt)
	if err != nil {
		s.registry.Remove(sessionID)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue session token")
	}

	if err := s.sessions.Save(ctx, models.Session{
		ID:           sessionID,
		NroDocumento: identity.NroDocumento,
		Identity:     *identity,
		CreatedAt:    now,
		ExpiresAt:    expiresAt,
	}, s.config.Expiration); err != nil {
		s.logger.Warn("failed to persist session", zap.String("session_id", sessionID), zap.Error(err))
	}

	s.emitAudit(ctx, identity.NroDocumento, models.AuditActionLogin, "auth", nil, req.IP, req.UserAgent)
	s.updateGauge()

	snap := session.Store.Snapshot()
	return &dto.LoginResponse{
		Token:      token,
		ExpiresAt:  expiresAt,
		Identity:   *identity,
		Papeletas:  snap.Papeletas,
		Pagination: snap.Pagination,
	}, nil
}

// ValidateToken parses and verifies a session token.
func (s *AuthService) ValidateToken(tokenString string) (*models.SessionClaims, error) {
	claims := &models.SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErrors.ErrSessionExpired
		}
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session token")
	}
	if !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session token")
	}
	return claims, nil
}

// Resume returns the live session for the claims, rehydrating the store
// from the persisted session after a gateway restart.
func (s *AuthService) Resume(ctx context.Context, claims *models.SessionClaims) (*store.Session, error) {
	if claims == nil || claims.SessionID == "" {
		return nil, appErrors.ErrUnauthorized
	}

	if session := s.registry.Get(claims.SessionID); session != nil {
		return session, nil
	}

	persisted, err := s.sessions.Find(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, appErrors.ErrSessionExpired
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	session := s.registry.GetOrCreate(claims.SessionID)
	session.Store.Hydrate(persisted.Identity)
	s.updateGauge()
	return session, nil
}

// Logout revokes the session and clears its store. Idempotent.
func (s *AuthService) Logout(ctx context.Context, claims *models.SessionClaims, ip, userAgent string) error {
	if claims == nil || claims.SessionID == "" {
		return nil
	}
	s.registry.Remove(claims.SessionID)
	if err := s.sessions.Delete(ctx, claims.SessionID); err != nil {
		s.logger.Warn("failed to delete persisted session", zap.String("session_id", claims.SessionID), zap.Error(err))
	}
	s.emitAudit(ctx, claims.NroDocumento, models.AuditActionLogout, "auth", nil, ip, userAgent)
	s.updateGauge()
	return nil
}

func (s *AuthService) generateToken(sessionID, nroDocumento string, issuedAt, expiresAt time.Time) (string, error) {
	claims := models.SessionClaims{
		SessionID:    sessionID,
		NroDocumento: nroDocumento,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   nroDocumento,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Secret))
}

func (s *AuthService) emitAudit(ctx context.Context, nroDocumento, action, resource string, payload interface{}, ip, userAgent string) {
	if s.audit == nil {
		return
	}
	var body []byte
	if payload != nil {
		body, _ = json.Marshal(payload)
	}
	entry := &models.AuditLog{
		NroDocumento: nroDocumento,
		Action:       action,
		Resource:     resource,
		Payload:      body,
		IPAddress:    ip,
		UserAgent:    userAgent,
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit entry", zap.String("action", action), zap.Error(err))
	}
}

func (s *AuthService) updateGauge() {
	if s.gauge != nil {
		s.gauge.SetActiveSessions(s.registry.Len())
	}
}
