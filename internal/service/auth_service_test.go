package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muni-gth/papeletas-api/internal/dto"
	"github.com/muni-gth/papeletas-api/internal/models"
	"github.com/muni-gth/papeletas-api/internal/remote"
	"github.com/muni-gth/papeletas-api/internal/repository"
	"github.com/muni-gth/papeletas-api/internal/store"
	appErrors "github.com/muni-gth/papeletas-api/pkg/errors"
)

type stubRemote struct {
	mu sync.Mutex

	resumen    *remote.Resumen
	resumenErr error

	listPapeletas  []models.Papeleta
	listPagination models.Pagination
	listErr        error
	listCalls      int
	lastQuery      models.ListQuery

	registro      *remote.RegistroResult
	registroErr   error
	registroCalls int
}

func (s *stubRemote) ResumenInicial(_ context.Context, _ string) (*remote.Resumen, error) {
	if s.resumenErr != nil {
		return nil, s.resumenErr
	}
	return s.resumen, nil
}

func (s *stubRemote) Listar(_ context.Context, q models.ListQuery) ([]models.Papeleta, models.Pagination, error) {
	s.mu.Lock()
	s.listCalls++
	s.lastQuery = q
	s.mu.Unlock()
	if s.listErr != nil {
		return nil, models.Pagination{}, s.listErr
	}
	return s.listPapeletas, s.listPagination, nil
}

func (s *stubRemote) Registrar(_ context.Context, _ models.RegistroPapeleta, _ *models.Attachment) (*remote.RegistroResult, error) {
	s.mu.Lock()
	s.registroCalls++
	s.mu.Unlock()
	if s.registroErr != nil {
		return nil, s.registroErr
	}
	return s.registro, nil
}

func stubResumen() *remote.Resumen {
	return &remote.Resumen{
		Identity: models.Identity{
			NroDocumento: "12345678",
			Contrato:     models.Contrato{CodigoContrato: "C-9", NombreCompleto: "Juana Quispe"},
			Motivos: []models.Motivo{
				{IDMotivo: "1", Nombre: "COMISION DE SERVICIO"},
				{IDMotivo: "5", Nombre: "OTROS"},
			},
		},
		Papeletas: []models.Papeleta{
			{IDPapeleta: "10", NumeroPapeleta: "N-0010", Estado: models.EstadoPendiente},
		},
		Pagination: models.Pagination{TotalRecords: 1, TotalPages: 1, CurrentPage: 1},
	}
}

type stubSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]models.Session
	saveErr  error
}

func (s *stubSessionRepo) Save(_ context.Context, session models.Session, _ time.Duration) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions == nil {
		s.sessions = make(map[string]models.Session)
	}
	s.sessions[session.ID] = session
	return nil
}

func (s *stubSessionRepo) Find(_ context.Context, id string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	return &session, nil
}

func (s *stubSessionRepo) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

type stubAudit struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (s *stubAudit) Record(_ context.Context, entry *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *entry)
	return nil
}

func newAuthFixture(remoteAPI *stubRemote) (*AuthService, *store.Registry, *stubSessionRepo, *stubAudit) {
	registry := store.NewRegistry(remoteAPI, nil, nil, 9)
	sessions := &stubSessionRepo{}
	audit := &stubAudit{}
	svc := NewAuthService(registry, sessions, audit, nil, nil, nil, AuthConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "papeletas-api",
	})
	return svc, registry, sessions, audit
}

func TestLoginIssuesTokenAndSeedsSession(t *testing.T) {
	remoteAPI := &stubRemote{resumen: stubResumen()}
	svc, registry, sessions, audit := newAuthFixture(remoteAPI)

	res, err := svc.Login(context.Background(), dto.LoginRequest{NroDocumento: "12345678"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "12345678", res.Identity.NroDocumento)
	assert.Len(t, res.Papeletas, 1)
	assert.Equal(t, 1, res.Pagination.TotalPages)
	assert.Equal(t, 1, registry.Len())
	assert.Len(t, sessions.sessions, 1)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionLogin, audit.entries[0].Action)

	claims, err := svc.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "12345678", claims.NroDocumento)
	assert.NotEmpty(t, claims.SessionID)
}

func TestLoginValidatesDocument(t *testing.T) {
	remoteAPI := &stubRemote{resumen: stubResumen()}
	svc, registry, _, _ := newAuthFixture(remoteAPI)

	for _, doc := range []string{"", "1234", "abcdefgh", "123456789"} {
		_, err := svc.Login(context.Background(), dto.LoginRequest{NroDocumento: doc})
		require.Error(t, err, doc)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code, doc)
	}
	assert.Equal(t, 0, registry.Len())
}

func TestLoginUnknownDocumentKeepsRemoteMessage(t *testing.T) {
	remoteAPI := &stubRemote{resumenErr: &remote.RejectedError{Codigo: 1, Mensaje: "documento no encontrado"}}
	svc, registry, _, _ := newAuthFixture(remoteAPI)

	_, err := svc.Login(context.Background(), dto.LoginRequest{NroDocumento: "99999999"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidDocument.Code, appErr.Code)
	assert.Equal(t, "documento no encontrado", appErr.Message)
	assert.Equal(t, 0, registry.Len())
}

func TestLoginRemoteDownIsBadGateway(t *testing.T) {
	remoteAPI := &stubRemote{resumenErr: errors.New("connection refused")}
	svc, _, _, _ := newAuthFixture(remoteAPI)

	_, err := svc.Login(context.Background(), dto.LoginRequest{NroDocumento: "12345678"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRemoteUnavailable.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsForgedToken(t *testing.T) {
	remoteAPI := &stubRemote{resumen: stubResumen()}
	svc, _, _, _ := newAuthFixture(remoteAPI)

	other := NewAuthService(store.NewRegistry(remoteAPI, nil, nil, 9), &stubSessionRepo{}, nil, nil, nil, nil, AuthConfig{
		Secret:     "other-secret",
		Expiration: time.Hour,
	})
	res, err := other.Login(context.Background(), dto.LoginRequest{NroDocumento: "12345678"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(res.Token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenExpired(t *testing.T) {
	remoteAPI := &stubRemote{resumen: stubResumen()}
	registry := store.NewRegistry(remoteAPI, nil, nil, 9)
	svc := NewAuthService(registry, &stubSessionRepo{}, nil, nil, nil, nil, AuthConfig{
		Secret:     "test-secret",
		Expiration: -time.Minute,
	})

	res, err := svc.Login(context.Background(), dto.LoginRequest{NroDocumento: "12345678"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(res.Token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSessionExpired.Code, appErrors.FromError(err).Code)
}

func TestResumeRehydratesFromPersistedSession(t *testing.T) {
	remoteAPI := &stubRemote{resumen: stubResumen()}
	svc, registry, _, _ := newAuthFixture(remoteAPI)

	res, err := svc.Login(context.Background(), dto.LoginRequest{NroDocumento: "12345678"})
	require.NoError(t, err)
	claims, err := svc.ValidateToken(res.Token)
	require.NoError(t, err)

	// Simulate a gateway restart: live sessions are gone, Redis survives.
	registry.Remove(claims.SessionID)
	require.Equal(t, 0, registry.Len())

	session, err := svc.Resume(context.Background(), claims)
	require.NoError(t, err)
	snap := session.Store.Snapshot()
	require.NotNil(t, snap.Identity)
	assert.Equal(t, "12345678", snap.Identity.NroDocumento)
}

func TestResumeUnknownSessionIsExpired(t *testing.T) {
	remoteAPI := &stubRemote{resumen: stubResumen()}
	svc, _, _, _ := newAuthFixture(remoteAPI)

	claims := &models.SessionClaims{SessionID: "gone", NroDocumento: "12345678"}
	_, err := svc.Resume(context.Background(), claims)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSessionExpired.Code, appErrors.FromError(err).Code)
}

func TestLogoutIsIdempotent(t *testing.T) {
	remoteAPI := &stubRemote{resumen: stubResumen()}
	svc, registry, sessions, _ := newAuthFixture(remoteAPI)

	res, err := svc.Login(context.Background(), dto.LoginRequest{NroDocumento: "12345678"})
	require.NoError(t, err)
	claims, err := svc.ValidateToken(res.Token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), claims, "", ""))
	require.NoError(t, svc.Logout(context.Background(), claims, "", ""))

	assert.Equal(t, 0, registry.Len())
	assert.Empty(t, sessions.sessions)
}
