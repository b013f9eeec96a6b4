package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bitleak/lmstfy/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertx/internal/app/pkg/logger"
	"alertx/internal/feed/framework"
	"alertx/internal/feed/lmstfyx"
)

type queueSource struct {
	mu    sync.Mutex
	jobs  map[string][]*framework.Message
	acked map[string]bool
}

func (s *queueSource) Consume(queue string, timeout, ttr time.Duration) (*framework.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.jobs[queue]) == 0 {
		time.Sleep(time.Millisecond)
		return nil, nil
	}
	msg := s.jobs[queue][0]
	s.jobs[queue] = s.jobs[queue][1:]
	return msg, nil
}

func (s *queueSource) Ack(queue, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acked[jobID] = true
	return nil
}

func (s *queueSource) ackCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.acked)
}

func spec(name, queue string) Spec {
	return Spec{
		Name:              name,
		QueueName:         queue,
		SubscriberThreads: 1,
		PollTimeout:       time.Second,
		TTR:               time.Second,
		ProcessorThreads:  2,
		BufferSize:        4,
		ProcessTimeout:    time.Second,
	}
}

func TestManagerRunsUntilCancelled(t *testing.T) {
	src := &queueSource{
		jobs: map[string][]*framework.Message{
			"unit_location": {{ID: "l1", Queue: "unit_location"}, {ID: "l2", Queue: "unit_location"}},
			"unit_status":   {{ID: "s1", Queue: "unit_status"}},
		},
		acked: make(map[string]bool),
	}
	proc := func(ctx context.Context, job *client.Job) *lmstfyx.JobResp { return lmstfyx.Success(nil) }

	m, err := NewManager([]Spec{spec("location", "unit_location"), spec("status", "unit_status")}, src, proc, logger.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()

	require.Eventually(t, func() bool { return src.ackCount() == 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("manager did not stop")
	}

	// 重复调用无副作用
	m.Shutdown()
}

func TestSpecValidate(t *testing.T) {
	s := spec("", "q")
	assert.Error(t, s.Validate())

	s = spec("w", "q")
	s.ProcessorThreads = 0
	assert.Error(t, s.Validate())

	_, err := NewManager([]Spec{s}, &queueSource{}, nil, logger.NewNop())
	assert.Error(t, err)
}
