package mdtracking

import (
	"context"
	"sync"

	"go.uber.org/atomic"

	"alertx/internal/app/domains/entity/etcase"
)

const subscriberBuffer = 8

// LocalFeed 进程内 Hub，单实例部署使用
type LocalFeed struct {
	mu   sync.RWMutex
	subs map[string]map[int64]chan *etcase.LocationEvent
	seq  *atomic.Int64
}

// NewLocalFeed 创建进程内 Hub
func NewLocalFeed() *LocalFeed {
	return &LocalFeed{
		subs: make(map[string]map[int64]chan *etcase.LocationEvent),
		seq:  atomic.NewInt64(0),
	}
}

// Publish 实现 Feed
// 订阅者缓冲满时丢弃最旧的一条，位置事件只关心最新值
func (f *LocalFeed) Publish(ctx context.Context, event *etcase.LocationEvent) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, ch := range f.subs[event.CaseID] {
		for {
			select {
			case ch <- event:
			default:
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
	return nil
}

// Subscribe 实现 Feed
func (f *LocalFeed) Subscribe(ctx context.Context, caseID string) (<-chan *etcase.LocationEvent, func(), error) {
	id := f.seq.Inc()
	ch := make(chan *etcase.LocationEvent, subscriberBuffer)

	f.mu.Lock()
	if f.subs[caseID] == nil {
		f.subs[caseID] = make(map[int64]chan *etcase.LocationEvent)
	}
	f.subs[caseID][id] = ch
	f.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.subs[caseID], id)
			if len(f.subs[caseID]) == 0 {
				delete(f.subs, caseID)
			}
			close(ch)
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return ch, cancel, nil
}

// Subscribers 当前订阅数
func (f *LocalFeed) Subscribers(caseID string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs[caseID])
}
