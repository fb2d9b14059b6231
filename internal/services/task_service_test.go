package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intihelp/internal/models"
	"intihelp/internal/pricing"
)

func TestCreateTask_PricesFromBands(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, f.taskInput())

	assert.Equal(t, models.StatusRequested, task.Status)
	assert.True(t, money("150").Equal(task.AssistantPrice), task.AssistantPrice.String())
	assert.True(t, money("30").Equal(task.PlatformFee), task.PlatformFee.String())
	assert.True(t, money("180").Equal(task.TotalPrice), task.TotalPrice.String())
	assert.Nil(t, task.CouponCode)
	assert.Equal(t, models.PaymentTypeIndividual, task.PaymentType)
	assert.Equal(t, 1, f.store.CurrentEntries(task.ID))
	assert.Equal(t, []models.TaskStatus{models.StatusRequested}, f.notify.changes())
}

func TestCreateTask_AppliesCoupon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.coupons.Create(ctx, CreateCouponInput{
		Code:          "inti10",
		DiscountType:  models.DiscountPercentage,
		DiscountValue: money("10"),
		ValidUntil:    time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	in := f.taskInput()
	in.CouponCode = " inti10 "
	task := f.createTask(t, in)
	assert.True(t, money("18").Equal(task.Discount), task.Discount.String())
	assert.True(t, money("162").Equal(task.TotalPrice), task.TotalPrice.String())
	require.NotNil(t, task.CouponCode)
	assert.Equal(t, "INTI10", *task.CouponCode)

	in.CouponCode = "NOPE"
	_, _, err = f.tasks.Create(ctx, f.student, in)
	assert.ErrorIs(t, err, pricing.ErrCouponInvalid)
}

func TestCreateTask_IdempotencyKeyReplays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := f.taskInput()
	in.IdempotencyKey = "retry-1"

	first, created, err := f.tasks.Create(ctx, f.student, in)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := f.tasks.Create(ctx, f.student, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	tasks, err := f.tasks.List(ctx, f.student, nil)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
	assert.Len(t, f.notify.changes(), 1)
}

func TestCreateTask_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.tasks.Create(ctx, f.assistant, f.taskInput())
	assert.ErrorIs(t, err, ErrForbidden)

	in := f.taskInput()
	in.DueDate = time.Now().Add(-time.Hour)
	_, _, err = f.tasks.Create(ctx, f.student, in)
	assert.ErrorIs(t, err, ErrInvalidInput)

	in = f.taskInput()
	in.Title = "   "
	_, _, err = f.tasks.Create(ctx, f.student, in)
	assert.ErrorIs(t, err, ErrInvalidInput)

	in = f.taskInput()
	in.PaymentType = models.PaymentTypeGroup
	in.Members = []string{" ", ""}
	_, _, err = f.tasks.Create(ctx, f.student, in)
	assert.ErrorIs(t, err, ErrInvalidInput)

	in = f.taskInput()
	in.AssistantID = f.assistant2.UserID
	_, _, err = f.tasks.Create(ctx, f.student, in)
	assert.ErrorIs(t, err, ErrAssistantNoPrice)

	other := f.upload(t, f.student2, models.UploadRequirement)
	in = f.taskInput()
	in.FileIDs = []int64{other.ID}
	_, _, err = f.tasks.Create(ctx, f.student, in)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreateTask_GroupSplitsShares(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := f.taskInput()
	in.PaymentType = models.PaymentTypeGroup
	in.Members = []string{"Ana", "Luis", "Rosa", "Jorge", "Carla", "Diego", "Eva"}

	task := f.createTask(t, in)
	require.NotNil(t, task.GroupID)

	detail, err := f.tasks.Get(ctx, f.student, task.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Group)
	assert.Equal(t, in.Title, detail.Group.Name)
	require.Len(t, detail.Group.Members, 7)

	sum := money("0")
	for i, m := range detail.Group.Members {
		assert.Equal(t, models.MemberPending, m.PaymentStatus)
		if i < 3 {
			assert.True(t, money("25.72").Equal(m.ShareAmount), m.ShareAmount.String())
		} else {
			assert.True(t, money("25.71").Equal(m.ShareAmount), m.ShareAmount.String())
		}
		sum = sum.Add(m.ShareAmount)
	}
	assert.True(t, task.TotalPrice.Equal(sum), sum.String())
}

func TestTaskLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	requirement := f.upload(t, f.student, models.UploadRequirement)
	in := f.taskInput()
	in.FileIDs = []int64{requirement.ID}
	task := f.createTask(t, in)

	task, err := f.tasks.Accept(ctx, f.assistant, task.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusAccepted, task.Status)

	p, err := f.payments.Submit(ctx, f.student, f.paymentInput(t, f.student, task.ID))
	require.NoError(t, err)
	_, err = f.payments.Verify(ctx, f.admin, p.ID)
	require.NoError(t, err)

	task, err = f.tasks.Start(ctx, f.assistant, task.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusStarted, task.Status)

	progress := f.upload(t, f.assistant, models.UploadUpdates)
	task, err = f.tasks.SendProgress(ctx, f.assistant, task.ID, []int64{progress.ID}, "primer borrador")
	require.NoError(t, err)
	task, err = f.tasks.SendProgress(ctx, f.assistant, task.ID, nil, "")
	require.NoError(t, err)
	require.Equal(t, models.StatusProgressSent, task.Status)

	final := f.upload(t, f.assistant, models.UploadFinal)
	task, err = f.tasks.Deliver(ctx, f.assistant, task.ID, []int64{final.ID}, "")
	require.NoError(t, err)
	task, err = f.tasks.Approve(ctx, f.student, task.ID)
	require.NoError(t, err)
	task, err = f.tasks.Rate(ctx, f.student, task.ID, RateInput{Rating: 5, Review: "excelente"})
	require.NoError(t, err)
	task, err = f.tasks.Payout(ctx, f.admin, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssistantPaid, task.Status)

	detail, err := f.tasks.Get(ctx, f.assistant, task.ID)
	require.NoError(t, err)
	var statuses []models.TaskStatus
	current := 0
	for _, e := range detail.Timeline {
		statuses = append(statuses, e.Status)
		if e.IsCurrent {
			current++
			assert.Equal(t, models.StatusAssistantPaid, e.Status)
		}
	}
	assert.Equal(t, 1, current)
	assert.Equal(t, []models.TaskStatus{
		models.StatusRequested,
		models.StatusAccepted,
		models.StatusPaid,
		models.StatusStarted,
		models.StatusProgressSent,
		models.StatusProgressSent,
		models.StatusCompleted,
		models.StatusApproved,
		models.StatusRated,
		models.StatusAssistantPaid,
	}, statuses)

	kinds := map[int64]models.UploadContext{}
	for _, tf := range detail.Files {
		kinds[tf.FileID] = tf.UploadType
	}
	assert.Equal(t, models.UploadRequirement, kinds[requirement.ID])
	assert.Equal(t, models.UploadUpdates, kinds[progress.ID])
	assert.Equal(t, models.UploadFinal, kinds[final.ID])

	stats, err := f.dashboard.Assistant(ctx, f.assistant)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalTasks)
	assert.True(t, money("150").Equal(stats.TotalIncome), stats.TotalIncome.String())
	assert.InDelta(t, 5.0, stats.AvgRating, 0.001)
	assert.Empty(t, stats.ActiveTasks)
}

func TestTransition_RefusesIllegalMoves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, f.taskInput())

	_, err := f.tasks.Accept(ctx, f.student, task.ID)
	assert.ErrorIs(t, err, ErrTransitionForbidden)

	_, err = f.tasks.Start(ctx, f.assistant, task.ID)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	var terr *TransitionError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, models.StatusRequested, terr.From)
	assert.Equal(t, models.StatusStarted, terr.To)

	_, err = f.tasks.Accept(ctx, f.assistant2, task.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.tasks.Transition(ctx, f.admin, task.ID, models.StatusPaid, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.tasks.Transition(ctx, f.student, task.ID, models.TaskStatus("Tarea Perdida"), "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.tasks.Accept(ctx, f.assistant, 999)
	assert.Error(t, err)

	// Refusals leave the task untouched.
	detail, err := f.tasks.Get(ctx, f.student, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRequested, detail.Status)
	assert.Len(t, detail.Timeline, 1)
}

func TestTransition_GenericUsesCustomTitle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, f.taskInput())

	task, err := f.tasks.Transition(ctx, f.student, task.ID, models.StatusCancelled, "Ya no la necesito")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, task.Status)

	detail, err := f.tasks.Get(ctx, f.student, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ya no la necesito", detail.Timeline[len(detail.Timeline)-1].Title)

	_, err = f.tasks.Accept(ctx, f.assistant, task.ID)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestTransition_ConcurrentAcceptOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, f.taskInput())

	const n = 16
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		wins   int
		others []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.tasks.Accept(context.Background(), f.assistant, task.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
				return
			}
			others = append(others, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	for _, err := range others {
		assert.ErrorIs(t, err, ErrIllegalTransition)
	}
	assert.Equal(t, 1, f.store.CurrentEntries(task.ID))

	detail, err := f.tasks.Get(context.Background(), f.student, task.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Timeline, 2)
}

func TestDispute_AdminResolves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.completedTask(t)

	_, err := f.tasks.Dispute(ctx, f.student, task.ID, "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	task, err = f.tasks.Dispute(ctx, f.student, task.ID, "faltan las referencias")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDisputed, task.Status)

	_, err = f.tasks.Resolve(ctx, f.student, task.ID, models.StatusApproved, "")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.tasks.Resolve(ctx, f.admin, task.ID, models.StatusRated, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	task, err = f.tasks.Resolve(ctx, f.admin, task.ID, models.StatusStarted, "rehacer la bibliografía")
	require.NoError(t, err)
	assert.Equal(t, models.StatusStarted, task.Status)

	_, err = f.tasks.Resolve(ctx, f.admin, task.ID, models.StatusApproved, "")
	assert.ErrorIs(t, err, ErrIllegalTransition)

	detail, err := f.tasks.Get(ctx, f.student, task.ID)
	require.NoError(t, err)
	last := detail.Timeline[len(detail.Timeline)-1]
	assert.Contains(t, last.Title, "rehacer la bibliografía")
}

func TestDeliver_RequiresOwnFinalFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.paidTask(t)
	_, err := f.tasks.Start(ctx, f.assistant, task.ID)
	require.NoError(t, err)

	_, err = f.tasks.Deliver(ctx, f.assistant, task.ID, nil, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	progress := f.upload(t, f.assistant, models.UploadUpdates)
	_, err = f.tasks.Deliver(ctx, f.assistant, task.ID, []int64{progress.ID}, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	requirement := f.upload(t, f.student, models.UploadRequirement)
	_, err = f.tasks.Deliver(ctx, f.assistant, task.ID, []int64{requirement.ID}, "")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.tasks.Deliver(ctx, f.student, task.ID, []int64{requirement.ID}, "")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRate_OncePerTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.completedTask(t)
	_, err := f.tasks.Approve(ctx, f.student, task.ID)
	require.NoError(t, err)

	_, err = f.tasks.Rate(ctx, f.student, task.ID, RateInput{Rating: 6})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.tasks.Rate(ctx, f.student, task.ID, RateInput{Rating: 0})
	assert.ErrorIs(t, err, ErrInvalidInput)

	task, err = f.tasks.Rate(ctx, f.student, task.ID, RateInput{Rating: 4})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRated, task.Status)

	_, err = f.tasks.Rate(ctx, f.student, task.ID, RateInput{Rating: 5})
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, err = f.tasks.Transition(ctx, f.student, task.ID, models.StatusRated, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestListAndGet_ScopedToParticipants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.createTask(t, f.taskInput())

	mine, err := f.tasks.List(ctx, f.student, nil)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := f.tasks.List(ctx, f.student2, nil)
	require.NoError(t, err)
	assert.NotNil(t, theirs)
	assert.Empty(t, theirs)

	assigned, err := f.tasks.List(ctx, f.assistant, []models.TaskStatus{models.StatusRequested})
	require.NoError(t, err)
	assert.Len(t, assigned, 1)

	none, err := f.tasks.List(ctx, f.assistant, []models.TaskStatus{models.StatusPaid})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.tasks.List(ctx, f.admin, []models.TaskStatus{"nope"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.tasks.Get(ctx, f.student2, task.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.tasks.Get(ctx, f.admin, task.ID)
	assert.NoError(t, err)
}

func TestDashboard_AssistantOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.acceptedTask(t)

	_, err := f.dashboard.Assistant(ctx, f.student)
	assert.ErrorIs(t, err, ErrForbidden)

	stats, err := f.dashboard.Assistant(ctx, f.assistant)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalTasks)
	assert.True(t, money("150").Equal(stats.PendingIncome), stats.PendingIncome.String())
	assert.Len(t, stats.ActiveTasks, 1)

	empty, err := f.dashboard.Assistant(ctx, f.assistant2)
	require.NoError(t, err)
	assert.NotNil(t, empty.ActiveTasks)
	assert.Zero(t, empty.TotalTasks)
}
