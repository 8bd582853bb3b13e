package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliyavuz/registrar/internal/allocation"
	"github.com/aliyavuz/registrar/internal/app/models"
	"github.com/aliyavuz/registrar/internal/pkg/apperrors"
)

func TestDispatcherProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	var handled []allocation.PromotionEvent

	handler := func(ctx context.Context, event allocation.PromotionEvent, year int, term models.Term) error {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, event)
		return nil
	}

	d := NewPromotionDispatcher(handler, 8, zerolog.Nop())
	d.Start(context.Background())

	require.NoError(t, d.Enqueue(PromotionJob{
		Event:        allocation.PromotionEvent{CourseCode: "CS101", FreedCount: 1},
		AcademicYear: 2026,
		Term:         models.TermFall,
	}))
	require.NoError(t, d.Enqueue(PromotionJob{
		Event:        allocation.PromotionEvent{CourseCode: "CS201", FreedCount: 2},
		AcademicYear: 2026,
		Term:         models.TermFall,
	}))

	d.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, handled, 2)
	assert.Equal(t, "CS101", handled[0].CourseCode)
	assert.Equal(t, "CS201", handled[1].CourseCode)
}

func TestDispatcherQueueFull(t *testing.T) {
	// Worker not started, so the single slot stays occupied
	handler := func(ctx context.Context, event allocation.PromotionEvent, year int, term models.Term) error {
		return nil
	}

	d := NewPromotionDispatcher(handler, 1, zerolog.Nop())

	require.NoError(t, d.Enqueue(PromotionJob{
		Event: allocation.PromotionEvent{CourseCode: "CS101", FreedCount: 1},
	}))

	err := d.Enqueue(PromotionJob{
		Event: allocation.PromotionEvent{CourseCode: "CS201", FreedCount: 1},
	})
	assert.ErrorIs(t, err, apperrors.ErrPromotionQueueFull)
}

func TestDispatcherStopDrainsQueue(t *testing.T) {
	processed := make(chan string, 4)

	handler := func(ctx context.Context, event allocation.PromotionEvent, year int, term models.Term) error {
		time.Sleep(5 * time.Millisecond)
		processed <- event.CourseCode
		return nil
	}

	d := NewPromotionDispatcher(handler, 4, zerolog.Nop())
	d.Start(context.Background())

	require.NoError(t, d.Enqueue(PromotionJob{Event: allocation.PromotionEvent{CourseCode: "CS101", FreedCount: 1}}))
	require.NoError(t, d.Enqueue(PromotionJob{Event: allocation.PromotionEvent{CourseCode: "CS201", FreedCount: 1}}))
	require.NoError(t, d.Enqueue(PromotionJob{Event: allocation.PromotionEvent{CourseCode: "CS301", FreedCount: 1}}))

	d.Stop()

	assert.Len(t, processed, 3)
}
