package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReminder_FiresOncePerTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	soon := f.taskInput()
	soon.DueDate = time.Now().Add(6 * time.Hour)
	dueSoon := f.createTask(t, soon)
	_, err := f.tasks.Accept(ctx, f.assistant, dueSoon.ID)
	require.NoError(t, err)
	p, err := f.payments.Submit(ctx, f.student, f.paymentInput(t, f.student, dueSoon.ID))
	require.NoError(t, err)
	_, err = f.payments.Verify(ctx, f.admin, p.ID)
	require.NoError(t, err)

	// Due later than the window.
	f.paidTask(t)

	// Due soon but not yet paid.
	unpaid := f.taskInput()
	unpaid.DueDate = time.Now().Add(2 * time.Hour)
	f.createTask(t, unpaid)

	reminders := NewReminderService(f.store.Tasks(), f.notify, 24*time.Hour, 0)

	sent, err := reminders.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []int64{dueSoon.ID}, f.notify.due)

	sent, err = reminders.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Len(t, f.notify.due, 1)
}

func TestReminder_RetriesAfterDeliveryFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := f.taskInput()
	in.DueDate = time.Now().Add(time.Hour)
	task := f.createTask(t, in)
	_, err := f.tasks.Accept(ctx, f.assistant, task.ID)
	require.NoError(t, err)
	p, err := f.payments.Submit(ctx, f.student, f.paymentInput(t, f.student, task.ID))
	require.NoError(t, err)
	_, err = f.payments.Verify(ctx, f.admin, p.ID)
	require.NoError(t, err)

	reminders := NewReminderService(f.store.Tasks(), f.notify, 24*time.Hour, 10)

	f.notify.dueErr = errors.New("smtp down")
	sent, err := reminders.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)

	f.notify.dueErr = nil
	sent, err = reminders.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}
