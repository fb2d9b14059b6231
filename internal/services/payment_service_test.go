package services

import (
	"bytes"
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intihelp/internal/models"
	"intihelp/internal/repositories"
)

func (f *fixture) groupTask(t *testing.T, members ...string) (*models.Task, *models.PaymentGroup) {
	t.Helper()
	ctx := context.Background()
	in := f.taskInput()
	in.PaymentType = models.PaymentTypeGroup
	in.GroupName = "Grupo de historia"
	in.Members = members
	task := f.createTask(t, in)
	task, err := f.tasks.Accept(ctx, f.assistant, task.ID)
	require.NoError(t, err)
	g, err := f.payments.Group(ctx, f.student2, *task.GroupID)
	require.NoError(t, err)
	require.Len(t, g.Members, len(members))
	return task, g
}

func (f *fixture) taskStatus(t *testing.T, id int64) models.TaskStatus {
	t.Helper()
	detail, err := f.tasks.Get(context.Background(), f.admin, id)
	require.NoError(t, err)
	return detail.Status
}

func TestGroupPayment_TaskPaidOnLastVerification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task, g := f.groupTask(t, "Ana", "Rosa")
	assert.Equal(t, "/groups/"+itoa(g.ID), g.GroupLink)

	in := f.paymentInput(t, f.student, task.ID)
	in.MemberID = &g.Members[0].ID
	first, err := f.payments.Submit(ctx, f.student, in)
	require.NoError(t, err)
	assert.True(t, money("90").Equal(first.Amount), first.Amount.String())
	assert.Equal(t, models.PaymentPending, first.Status)

	in = f.paymentInput(t, f.student2, task.ID)
	in.MemberID = &g.Members[1].ID
	second, err := f.payments.Submit(ctx, f.student2, in)
	require.NoError(t, err)

	g, err = f.payments.Group(ctx, f.admin, g.ID)
	require.NoError(t, err)
	for _, m := range g.Members {
		assert.Equal(t, models.MemberSent, m.PaymentStatus)
	}

	_, err = f.payments.Verify(ctx, f.admin, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, f.taskStatus(t, task.ID))

	verified, err := f.payments.Verify(ctx, f.admin, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentVerified, verified.Status)
	assert.Equal(t, models.StatusPaid, f.taskStatus(t, task.ID))
	assert.Equal(t, 1, f.store.CurrentEntries(task.ID))

	assert.Contains(t, f.notify.changes(), models.StatusPaid)
	assert.Equal(t, []models.PaymentStatus{models.PaymentVerified, models.PaymentVerified}, f.notify.reviewed)
}

func TestGroupPayment_MemberChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task, g := f.groupTask(t, "Ana", "Rosa")

	in := f.paymentInput(t, f.student, task.ID)
	_, err := f.payments.Submit(ctx, f.student, in)
	assert.ErrorIs(t, err, ErrInvalidInput, "member_id is required")

	missing := int64(999)
	in.MemberID = &missing
	_, err = f.payments.Submit(ctx, f.student, in)
	assert.ErrorIs(t, err, ErrInvalidInput)

	in.MemberID = &g.Members[0].ID
	_, err = f.payments.Submit(ctx, f.student, in)
	require.NoError(t, err)

	// The share is now claimed by the first payer.
	other := f.paymentInput(t, f.student2, task.ID)
	other.MemberID = &g.Members[0].ID
	_, err = f.payments.Submit(ctx, f.student2, other)
	assert.ErrorIs(t, err, ErrForbidden)

	again := f.paymentInput(t, f.student, task.ID)
	again.MemberID = &g.Members[0].ID
	_, err = f.payments.Submit(ctx, f.student, again)
	assert.ErrorIs(t, err, repositories.ErrMemberNotPayable)
}

func TestPayment_RejectThenResubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.acceptedTask(t)

	p, err := f.payments.Submit(ctx, f.student, f.paymentInput(t, f.student, task.ID))
	require.NoError(t, err)
	assert.True(t, task.TotalPrice.Equal(p.Amount))

	_, err = f.payments.Submit(ctx, f.student, f.paymentInput(t, f.student, task.ID))
	assert.ErrorIs(t, err, repositories.ErrPaymentExists)

	_, err = f.payments.Reject(ctx, f.admin, p.ID, " ")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.payments.Reject(ctx, f.student, p.ID, "ilegible")
	assert.ErrorIs(t, err, ErrForbidden)

	rejected, err := f.payments.Reject(ctx, f.admin, p.ID, "comprobante ilegible")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRejected, rejected.Status)
	assert.Equal(t, "comprobante ilegible", rejected.RejectionReason)
	assert.Equal(t, models.StatusAccepted, f.taskStatus(t, task.ID))

	_, err = f.payments.Verify(ctx, f.admin, p.ID)
	assert.ErrorIs(t, err, repositories.ErrPaymentNotPending)

	p2, err := f.payments.Submit(ctx, f.student, f.paymentInput(t, f.student, task.ID))
	require.NoError(t, err)
	_, err = f.payments.Verify(ctx, f.student, p2.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.payments.Verify(ctx, f.admin, p2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, f.taskStatus(t, task.ID))
}

func TestPayment_SubmitValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	requested := f.createTask(t, f.taskInput())
	_, err := f.payments.Submit(ctx, f.student, f.paymentInput(t, f.student, requested.ID))
	assert.ErrorIs(t, err, ErrPaymentNotAllowed)

	task := f.acceptedTask(t)

	in := f.paymentInput(t, f.student, task.ID)
	in.TransferDate = time.Now().Add(48 * time.Hour)
	_, err = f.payments.Submit(ctx, f.student, in)
	assert.ErrorIs(t, err, ErrInvalidInput)

	in = f.paymentInput(t, f.student, task.ID)
	in.SenderBank = ""
	_, err = f.payments.Submit(ctx, f.student, in)
	assert.ErrorIs(t, err, ErrInvalidInput)

	in = f.paymentInput(t, f.student, task.ID)
	in.ReceiptFileID = 0
	_, err = f.payments.Submit(ctx, f.student, in)
	assert.ErrorIs(t, err, ErrInvalidInput)

	in = f.paymentInput(t, f.student, task.ID)
	in.ReceiptFileID = f.upload(t, f.student2, models.UploadPaymentReceipt).ID
	_, err = f.payments.Submit(ctx, f.student, in)
	assert.ErrorIs(t, err, ErrForbidden)

	in = f.paymentInput(t, f.student, task.ID)
	in.ReceiptFileID = f.upload(t, f.student, models.UploadRequirement).ID
	_, err = f.payments.Submit(ctx, f.student, in)
	assert.ErrorIs(t, err, ErrInvalidInput)

	in = f.paymentInput(t, f.student, task.ID)
	member := int64(1)
	in.MemberID = &member
	_, err = f.payments.Submit(ctx, f.student, in)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.payments.Submit(ctx, f.student2, f.paymentInput(t, f.student2, task.ID))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.payments.Submit(ctx, f.assistant, in)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestPayment_HistoryAndReceipt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.acceptedTask(t)

	p, err := f.payments.Submit(ctx, f.student, f.paymentInput(t, f.student, task.ID))
	require.NoError(t, err)

	var buf bytes.Buffer
	err = f.payments.WriteReceipt(ctx, f.student, p.ID, &buf)
	assert.ErrorIs(t, err, ErrPaymentNotAllowed)

	_, err = f.payments.Verify(ctx, f.admin, p.ID)
	require.NoError(t, err)

	err = f.payments.WriteReceipt(ctx, f.student2, p.ID, &buf)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, f.payments.WriteReceipt(ctx, f.student, p.ID, &buf))
	assert.Equal(t, "%PDF-stub", buf.String())
	data := f.receipts.last
	assert.Equal(t, p.ID, data.PaymentID)
	assert.Equal(t, "ana", data.PayerName)
	assert.Equal(t, "180.00", data.Amount)
	assert.Equal(t, ReceiptCurrency, data.Currency)
	assert.Equal(t, "150.00", data.AssistantPrice)
	assert.Equal(t, "30.00", data.PlatformFee)
	assert.Equal(t, "180.00", data.Total)
	assert.Empty(t, data.Discount)

	mine, err := f.payments.History(ctx, f.student, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	none, err := f.payments.History(ctx, f.student2, 0)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	_, err = f.payments.History(ctx, f.student2, task.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	byTask, err := f.payments.History(ctx, f.assistant, task.ID)
	require.NoError(t, err)
	assert.Len(t, byTask, 1)
}

func TestPaymentGroup_Visibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, g := f.groupTask(t, "Ana")

	_, err := f.payments.Group(ctx, f.assistant2, g.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.payments.Group(ctx, f.assistant, g.ID)
	assert.NoError(t, err)

	_, err = f.payments.Group(ctx, f.admin, 999)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func TestPayment_VerifyRefusedAfterCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.acceptedTask(t)

	p, err := f.payments.Submit(ctx, f.student, f.paymentInput(t, f.student, task.ID))
	require.NoError(t, err)
	_, err = f.tasks.Cancel(ctx, f.student, task.ID, "ya no la necesito")
	require.NoError(t, err)

	_, err = f.payments.Verify(ctx, f.admin, p.ID)
	require.ErrorIs(t, err, ErrPaymentNotAllowed)

	stored, err := f.store.Payments().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, stored.Status)
	assert.Equal(t, models.StatusCancelled, f.taskStatus(t, task.ID))
}

func TestGroupPayment_VerifyRefusedAfterCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task, g := f.groupTask(t, "Ana", "Rosa")

	in := f.paymentInput(t, f.student, task.ID)
	in.MemberID = &g.Members[0].ID
	p, err := f.payments.Submit(ctx, f.student, in)
	require.NoError(t, err)
	_, err = f.tasks.Cancel(ctx, f.student, task.ID, "")
	require.NoError(t, err)

	_, err = f.payments.Verify(ctx, f.admin, p.ID)
	require.ErrorIs(t, err, ErrPaymentNotAllowed)

	g, err = f.payments.Group(ctx, f.admin, g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MemberSent, g.Members[0].PaymentStatus)
}
