package leads

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for lead storage
type Repository interface {
	Upsert(ctx context.Context, req *UpsertLeadRequest) (*Lead, error)
	GetByID(ctx context.Context, orgID, id string) (*Lead, error)
	ListByOrg(ctx context.Context, orgID string, filter ListLeadsFilter) ([]*Lead, error)
	MarkNotified(ctx context.Context, orgID, id string, at time.Time) error
}

// InMemoryRepository implements Repository with in-memory storage
type InMemoryRepository struct {
	mu             sync.RWMutex
	leads          map[string]*Lead
	byConversation map[string]string
	now            func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads:          make(map[string]*Lead),
		byConversation: make(map[string]string),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Upsert creates the lead for a conversation or refreshes it.
func (r *InMemoryRepository) Upsert(ctx context.Context, req *UpsertLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	next := req.fields()
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	key := req.OrgID + ":" + req.ConversationID
	if id, ok := r.byConversation[key]; ok {
		lead := r.leads[id]
		lead.Name = mergeString(lead.Name, next.Name)
		lead.Email = mergeString(lead.Email, next.Email)
		lead.Phone = mergeString(lead.Phone, next.Phone)
		lead.Service = mergeString(lead.Service, next.Service)
		lead.Company = mergeString(lead.Company, next.Company)
		lead.Urgency = next.Urgency
		lead.Score = next.Score
		lead.Confidence = next.Confidence
		lead.IsHot = next.IsHot
		lead.Classification = next.Classification
		lead.Signals = next.Signals
		lead.Reason = next.Reason
		lead.UpdatedAt = now
		return copyLead(lead), nil
	}

	next.ID = uuid.New().String()
	next.CreatedAt = now
	next.UpdatedAt = now
	r.leads[next.ID] = &next
	r.byConversation[key] = next.ID
	return copyLead(&next), nil
}

// GetByID retrieves a lead by ID within an org
func (r *InMemoryRepository) GetByID(ctx context.Context, orgID, id string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok || lead.OrgID != orgID {
		return nil, ErrLeadNotFound
	}
	return copyLead(lead), nil
}

// ListByOrg returns leads newest first.
func (r *InMemoryRepository) ListByOrg(ctx context.Context, orgID string, filter ListLeadsFilter) ([]*Lead, error) {
	r.mu.RLock()
	var out []*Lead
	for _, lead := range r.leads {
		if lead.OrgID != orgID || !filter.matches(lead) {
			continue
		}
		out = append(out, copyLead(lead))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})

	if filter.Offset >= len(out) {
		return []*Lead{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

// MarkNotified stamps the time the hot-lead alert went out.
func (r *InMemoryRepository) MarkNotified(ctx context.Context, orgID, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[id]
	if !ok || lead.OrgID != orgID {
		return ErrLeadNotFound
	}
	at = at.UTC()
	lead.NotifiedAt = &at
	return nil
}

func copyLead(l *Lead) *Lead {
	c := *l
	if l.Signals != nil {
		c.Signals = make([]string, len(l.Signals))
		copy(c.Signals, l.Signals)
	}
	if l.NotifiedAt != nil {
		t := *l.NotifiedAt
		c.NotifiedAt = &t
	}
	return &c
}
