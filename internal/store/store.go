package store

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/muni-gth/papeletas-api/internal/models"
	"github.com/muni-gth/papeletas-api/internal/remote"
)

// Sentinel errors surfaced by the store. Services map them onto the HTTP
// error taxonomy.
var (
	ErrNotAuthenticated = errors.New("store: no authenticated identity")
)

// RemoteAPI is the slice of the remote client the store depends on.
type RemoteAPI interface {
	ResumenInicial(ctx context.Context, nroDocumento string) (*remote.Resumen, error)
	Listar(ctx context.Context, q models.ListQuery) ([]models.Papeleta, models.Pagination, error)
	Registrar(ctx context.Context, reg models.RegistroPapeleta, attachment *models.Attachment) (*remote.RegistroResult, error)
}

// StaleObserver counts fetch responses dropped because a newer fetch was
// issued while they were in flight.
type StaleObserver interface {
	IncStaleFetchDropped()
}

// Snapshot is a read-only copy of the store state.
type Snapshot struct {
	Identity   *models.Identity
	Papeletas  []models.Papeleta
	Pagination models.Pagination
	Loading    bool
}

// Store is the single source of truth for one session: the authenticated
// identity, the current page of papeletas and its pagination metadata. It
// owns all remote I/O for that session and is the only writer of its state.
type Store struct {
	remote RemoteAPI
	logger *zap.Logger
	stale  StaleObserver

	mu         sync.Mutex
	identity   *models.Identity
	papeletas  []models.Papeleta
	pagination models.Pagination
	inflight   int
	generation uint64
}

// New builds an empty store bound to the remote API.
func New(remoteAPI RemoteAPI, logger *zap.Logger, stale StaleObserver) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{remote: remoteAPI, logger: logger, stale: stale}
}

// Authenticate looks the document id up against the remote service. On
// success the whole identity is replaced and the record state is reseeded
// from the resumen. On failure any prior identity and records are left
// untouched, so a failed re-auth never tears down a live session.
func (s *Store) Authenticate(ctx context.Context, nroDocumento string) (*models.Identity, error) {
	resumen, err := s.remote.ResumenInicial(ctx, nroDocumento)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	identity := resumen.Identity
	s.identity = &identity
	s.papeletas = resumen.Papeletas
	s.pagination = resumen.Pagination
	s.generation++
	return &identity, nil
}

// Hydrate restores a persisted identity after a gateway restart. It does
// nothing when the store is already authenticated.
func (s *Store) Hydrate(identity models.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		s.identity = &identity
	}
}

// FetchRecords issues one listing request. Each call is stamped with a
// generation; a response that resolves after a newer fetch was issued is
// returned to its caller but never committed, so the store always reflects
// the latest query. On failure the previous list and pagination are kept
// (last-known-good) and the error is surfaced to the caller.
func (s *Store) FetchRecords(ctx context.Context, q models.ListQuery) ([]models.Papeleta, models.Pagination, error) {
	s.mu.Lock()
	if s.identity == nil {
		s.mu.Unlock()
		return nil, models.Pagination{}, ErrNotAuthenticated
	}
	if q.NroDocumento == "" {
		q.NroDocumento = s.identity.NroDocumento
	}
	s.generation++
	gen := s.generation
	s.inflight++
	s.mu.Unlock()

	papeletas, pagination, err := s.remote.Listar(ctx, q)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--

	if err != nil {
		return nil, models.Pagination{}, err
	}

	if gen != s.generation {
		// A newer fetch (or a submit refresh) superseded this one while it
		// was in flight. The caller still gets its own result.
		if s.stale != nil {
			s.stale.IncStaleFetchDropped()
		}
		s.logger.Debug("dropped stale listing response",
			zap.Uint64("generation", gen),
			zap.Uint64("latest", s.generation))
		return papeletas, pagination, nil
	}

	s.papeletas = papeletas
	s.pagination = pagination
	return papeletas, pagination, nil
}

// SubmitRecord sends one registration request. On success the confirmed
// papeleta is prepended optimistically, then page 1 is refetched with the
// session's document id so the pagination totals stay authoritative. The
// server success message is returned for the UI. A failed refresh does not
// fail the submission; the next fetch supersedes the optimistic entry.
func (s *Store) SubmitRecord(ctx context.Context, reg models.RegistroPapeleta, attachment *models.Attachment, pageSize int) (*remote.RegistroResult, error) {
	s.mu.Lock()
	if s.identity == nil {
		s.mu.Unlock()
		return nil, ErrNotAuthenticated
	}
	nroDocumento := s.identity.NroDocumento
	s.mu.Unlock()

	result, err := s.remote.Registrar(ctx, reg, attachment)
	if err != nil {
		return nil, err
	}

	confirmed := models.Papeleta{
		IDPapeleta:     result.IDPapeleta,
		NumeroPapeleta: result.NumeroPapeleta,
		FechaPapeleta:  reg.FechaPapeleta,
		HoraSalida:     reg.HoraSalida,
		HoraRetorno:    reg.HoraRetorno,
		LugarDestino:   reg.LugarDestino,
		MotivoNombre:   reg.MotivoNombre,
		Motivo:         reg.MotivoDetalle,
		Estado:         models.EstadoPendiente,
	}

	s.mu.Lock()
	s.papeletas = append([]models.Papeleta{confirmed}, s.papeletas...)
	s.mu.Unlock()

	refresh := models.ListQuery{
		NroDocumento: nroDocumento,
		Page:         1,
		PageSize:     pageSize,
	}
	if _, _, err := s.FetchRecords(ctx, refresh); err != nil {
		s.logger.Warn("post-registration refresh failed",
			zap.String("nro_documento", nroDocumento),
			zap.Error(err))
	}

	return result, nil
}

// Logout clears the identity, records and pagination metadata. Idempotent.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = nil
	s.papeletas = nil
	s.pagination = models.Pagination{}
	s.generation++
}

// Snapshot returns a copy of the current state for read-only consumers.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Pagination: s.pagination,
		Loading:    s.inflight > 0,
	}
	if s.identity != nil {
		identity := *s.identity
		snap.Identity = &identity
	}
	if s.papeletas != nil {
		snap.Papeletas = make([]models.Papeleta, len(s.papeletas))
		copy(snap.Papeletas, s.papeletas)
	}
	return snap
}
