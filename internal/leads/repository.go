package leads

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for lead storage
type Repository interface {
	Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error)
	GetByID(ctx context.Context, id string) (*Lead, error)
	GetByReference(ctx context.Context, reference string) (*Lead, error)
}

// InMemoryRepository keeps leads in a map. It backs local development and
// tests, and serves as the primary store when no database is configured.
type InMemoryRepository struct {
	mu    sync.RWMutex
	leads map[string]*Lead
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads: make(map[string]*Lead),
	}
}

// Create stores a new lead in memory
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	lead := &Lead{
		ID:              uuid.New().String(),
		SessionID:       req.SessionID,
		ReferenceNumber: req.ReferenceNumber,
		Name:            req.Name,
		Company:         req.Company,
		Email:           req.Email,
		Phone:           req.Phone,
		ProjectType:     req.ProjectType,
		Timeline:        req.Timeline,
		Budget:          req.Budget,
		Summary:         req.Summary,
		Score:           req.Score,
		Qualified:       req.Qualified,
		CreatedAt:       time.Now().UTC(),
	}

	r.mu.Lock()
	r.leads[lead.ID] = lead
	r.mu.Unlock()

	return lead, nil
}

// GetByID retrieves a lead by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}

	return lead, nil
}

// GetByReference retrieves a lead by its customer-facing reference number
func (r *InMemoryRepository) GetByReference(ctx context.Context, reference string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, lead := range r.leads {
		if lead.ReferenceNumber == reference {
			return lead, nil
		}
	}
	return nil, ErrLeadNotFound
}
