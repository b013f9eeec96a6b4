package rpprofile

import (
	"context"
	"sync"

	"alertx/internal/app/domains/entity/etprofile"
	"alertx/internal/app/pkg/errorx"
)

// MemoryProfileRepository 进程内档案，启动时可由配置预置
type MemoryProfileRepository struct {
	mu       sync.RWMutex
	profiles map[string]etprofile.Profile
}

// NewMemoryProfileRepository 创建内存档案仓储
func NewMemoryProfileRepository(seed ...*etprofile.Profile) *MemoryProfileRepository {
	r := &MemoryProfileRepository{profiles: make(map[string]etprofile.Profile, len(seed))}
	for _, p := range seed {
		if p != nil {
			r.profiles[p.RequesterID] = copyProfile(p)
		}
	}
	return r
}

// Save 实现 ProfileRepository
func (r *MemoryProfileRepository) Save(ctx context.Context, profile *etprofile.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[profile.RequesterID] = copyProfile(profile)
	return nil
}

// GetByRequester 实现 ProfileRepository
func (r *MemoryProfileRepository) GetByRequester(ctx context.Context, requesterID string) (*etprofile.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[requesterID]
	if !ok {
		return nil, errorx.ErrProfileNotFound
	}
	cp := copyProfile(&p)
	return &cp, nil
}

func copyProfile(p *etprofile.Profile) etprofile.Profile {
	cp := *p
	cp.KnownConditions = append([]string(nil), p.KnownConditions...)
	cp.Contacts = append([]etprofile.Contact(nil), p.Contacts...)
	return cp
}
