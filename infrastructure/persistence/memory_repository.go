package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"slack-connect/domain/model"
	"slack-connect/domain/repository"
)

// MemoryCredentialRepository keeps credentials in process. Used with DB_VENDOR=memory and in tests.
type MemoryCredentialRepository struct {
	mu    sync.Mutex
	creds map[string]model.Credential
	seq   int64
}

func NewMemoryCredentialRepository() *MemoryCredentialRepository {
	return &MemoryCredentialRepository{creds: make(map[string]model.Credential)}
}

func (r *MemoryCredentialRepository) Get(_ context.Context, workspaceID string) (*model.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.creds[workspaceID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyCredential(c), nil
}

func (r *MemoryCredentialRepository) Upsert(_ context.Context, c *model.Credential) error {
	stampCredential(c)
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *copyCredential(*c)
	if prev, ok := r.creds[c.WorkspaceID]; ok {
		stored.ID = prev.ID
		stored.CreatedAt = prev.CreatedAt
	} else {
		r.seq++
		stored.ID = r.seq
	}
	c.ID = stored.ID
	r.creds[c.WorkspaceID] = stored
	return nil
}

func (r *MemoryCredentialRepository) List(_ context.Context) ([]model.Workspace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]model.Credential, 0, len(r.creds))
	for _, c := range r.creds {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt != all[j].CreatedAt {
			return all[i].CreatedAt > all[j].CreatedAt
		}
		return all[i].ID > all[j].ID
	})
	list := make([]model.Workspace, 0, len(all))
	for _, c := range all {
		list = append(list, model.Workspace{WorkspaceID: c.WorkspaceID, WorkspaceName: c.WorkspaceName})
	}
	return list, nil
}

func (r *MemoryCredentialRepository) Delete(_ context.Context, workspaceID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.creds[workspaceID]; !ok {
		return 0, nil
	}
	delete(r.creds, workspaceID)
	return 1, nil
}

func copyCredential(c model.Credential) *model.Credential {
	if c.ExpiresAt != nil {
		v := *c.ExpiresAt
		c.ExpiresAt = &v
	}
	return &c
}

// MemoryScheduledMessageRepository keeps scheduled messages in process.
// SetStatus is atomic with respect to every other call.
type MemoryScheduledMessageRepository struct {
	mu   sync.Mutex
	msgs map[int64]model.ScheduledMessage
	seq  int64
}

func NewMemoryScheduledMessageRepository() *MemoryScheduledMessageRepository {
	return &MemoryScheduledMessageRepository{msgs: make(map[int64]model.ScheduledMessage)}
}

func (r *MemoryScheduledMessageRepository) Create(_ context.Context, m *model.ScheduledMessage) (int64, error) {
	stampMessage(m)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	m.ID = r.seq
	r.msgs[m.ID] = *m
	return m.ID, nil
}

func (r *MemoryScheduledMessageRepository) GetByID(_ context.Context, id int64) (*model.ScheduledMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.msgs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (r *MemoryScheduledMessageRepository) FindDue(_ context.Context, now int64) ([]model.ScheduledMessage, error) {
	return r.filter(func(m model.ScheduledMessage) bool { return m.IsDue(now) }), nil
}

func (r *MemoryScheduledMessageRepository) ListPending(_ context.Context) ([]model.ScheduledMessage, error) {
	return r.filter(func(m model.ScheduledMessage) bool { return m.Status == model.StatusPending }), nil
}

func (r *MemoryScheduledMessageRepository) SetStatus(_ context.Context, id int64, from, to model.MessageStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.msgs[id]
	if !ok || m.Status != from {
		return 0, nil
	}
	m.Status = to
	r.msgs[id] = m
	return 1, nil
}

func (r *MemoryScheduledMessageRepository) filter(keep func(model.ScheduledMessage) bool) []model.ScheduledMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := []model.ScheduledMessage{}
	for _, m := range r.msgs {
		if keep(m) {
			list = append(list, m)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].ScheduledTime != list[j].ScheduledTime {
			return list[i].ScheduledTime < list[j].ScheduledTime
		}
		return list[i].ID < list[j].ID
	})
	return list
}

// Seed inserts m as-is, keeping its id and status. Test helper.
func (r *MemoryScheduledMessageRepository) Seed(m model.ScheduledMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.CreatedAt == 0 {
		m.CreatedAt = time.Now().Unix()
	}
	if m.ID == 0 {
		r.seq++
		m.ID = r.seq
	} else if m.ID > r.seq {
		r.seq = m.ID
	}
	r.msgs[m.ID] = m
}
