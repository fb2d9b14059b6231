//go:build integration

package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intihelp/internal/models"
)

// Run with: INTIHELP_TEST_DSN=postgres://... go test -tags integration ./internal/repositories/
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("INTIHELP_TEST_DSN")
	if dsn == "" {
		t.Skip("INTIHELP_TEST_DSN not set")
	}
	ctx := context.Background()
	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(ctx, db))
	return db
}

type pgFixture struct {
	db        *sql.DB
	student   *models.User
	assistant *models.User
	taskType  int64
}

func newPGFixture(t *testing.T) *pgFixture {
	t.Helper()
	db := openTestDB(t)
	ctx := context.Background()
	suffix := time.Now().UnixNano()
	users := NewUserRepository(db)

	mk := func(name string, role int) *models.User {
		u := &models.User{FullName: name, Email: fmt.Sprintf("%s-%d@intihelp.test", name, suffix), PasswordHash: "x", RoleID: role}
		require.NoError(t, users.Create(ctx, u))
		return u
	}
	types, err := NewCatalogRepository(db).ListTaskTypes(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, types)

	return &pgFixture{db: db, student: mk("ana", 10), assistant: mk("luis", 20), taskType: types[0].ID}
}

func (f *pgFixture) createTask(t *testing.T, paymentType models.PaymentType, members ...string) *models.Task {
	t.Helper()
	total := decimal.NewFromInt(16)
	in := CreateTaskInput{
		Task: &models.Task{
			StudentID:      f.student.ID,
			AssistantID:    &f.assistant.ID,
			TaskTypeID:     f.taskType,
			Title:          "Ensayo",
			PageCount:      5,
			DueDate:        time.Now().Add(48 * time.Hour),
			AssistantPrice: decimal.RequireFromString("13.3333"),
			PlatformFee:    decimal.RequireFromString("2.6667"),
			TotalPrice:     total,
			PaymentType:    paymentType,
		},
		TimelineTitle: "Tarea solicitada",
	}
	if paymentType == models.PaymentTypeGroup {
		in.GroupName = "Grupo"
		in.Members = members
		for range members {
			in.Shares = append(in.Shares, total.Div(decimal.NewFromInt(int64(len(members)))))
		}
	}
	task, created, err := NewTaskRepository(f.db).Create(context.Background(), in)
	require.NoError(t, err)
	require.True(t, created)
	return task
}

func (f *pgFixture) currentEntries(t *testing.T, taskID int64) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM task_status_timeline WHERE task_id=$1 AND is_current`, taskID).Scan(&n))
	return n
}

func (f *pgFixture) receipt(t *testing.T) int64 {
	t.Helper()
	file := &models.File{
		OriginalName: "voucher.pdf", StoredName: "v.pdf", FilePath: "x/v.pdf", FileSize: 10,
		MimeType: "application/pdf", FileExtension: ".pdf", UploadedBy: f.student.ID,
		UploadContext: models.UploadPaymentReceipt,
	}
	require.NoError(t, NewFileRepository(f.db).Create(context.Background(), file))
	return file.ID
}

func TestPostgresTransition_ConcurrentOnlyOneWins(t *testing.T) {
	f := newPGFixture(t)
	tasks := NewTaskRepository(f.db)
	task := f.createTask(t, models.PaymentTypeIndividual)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		wins  int
		stale int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tasks.Transition(context.Background(), TransitionInput{
				TaskID: task.ID, From: models.StatusRequested, To: models.StatusAccepted, ActorID: f.assistant.ID,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case assert.ErrorIs(t, err, ErrStaleStatus):
				stale++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, 9, stale)
	assert.Equal(t, 1, f.currentEntries(t, task.ID))

	timeline, err := tasks.Timeline(context.Background(), task.ID)
	require.NoError(t, err)
	require.Len(t, timeline, 2)
	assert.Equal(t, models.StatusAccepted, timeline[1].Status)
}

func TestPostgresPayment_GroupSettlesOnLastVerification(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	task := f.createTask(t, models.PaymentTypeGroup, "Ana", "Luis")
	_, err := NewTaskRepository(f.db).Transition(ctx, TransitionInput{
		TaskID: task.ID, From: models.StatusRequested, To: models.StatusAccepted, ActorID: f.assistant.ID,
	})
	require.NoError(t, err)

	group, err := NewGroupRepository(f.db).GetByTaskID(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, group.Members, 2)

	payments := NewPaymentRepository(f.db)
	var ids []int64
	for _, m := range group.Members {
		memberID := m.ID
		p := &models.Payment{
			TaskID: task.ID, PayerUserID: f.student.ID, GroupMemberID: &memberID, Amount: m.ShareAmount,
			Method: models.PaymentMethodBankTransfer, SenderName: "Ana", SenderBank: "BCP", RecipientBank: "BBVA",
			TransferDate: time.Now(), ReceiptFileID: f.receipt(t),
		}
		require.NoError(t, payments.Create(ctx, p))
		ids = append(ids, p.ID)
	}

	res, err := payments.Verify(ctx, VerifyPaymentInput{PaymentID: ids[0], VerifierID: f.student.ID})
	require.NoError(t, err)
	assert.Nil(t, res.Task)

	res, err = payments.Verify(ctx, VerifyPaymentInput{PaymentID: ids[1], VerifierID: f.student.ID, PaidTitle: "Pago verificado"})
	require.NoError(t, err)
	require.NotNil(t, res.Task)
	assert.Equal(t, models.StatusPaid, res.Task.Status)
	assert.Equal(t, 1, f.currentEntries(t, task.ID))
}

func TestPostgresPayment_VerifyRefusedAfterCancel(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	tasks := NewTaskRepository(f.db)
	task := f.createTask(t, models.PaymentTypeIndividual)
	_, err := tasks.Transition(ctx, TransitionInput{
		TaskID: task.ID, From: models.StatusRequested, To: models.StatusAccepted, ActorID: f.assistant.ID,
	})
	require.NoError(t, err)

	payments := NewPaymentRepository(f.db)
	p := &models.Payment{
		TaskID: task.ID, PayerUserID: f.student.ID, Amount: task.TotalPrice,
		Method: models.PaymentMethodBankTransfer, SenderName: "Ana", SenderBank: "BCP", RecipientBank: "BBVA",
		TransferDate: time.Now(), ReceiptFileID: f.receipt(t),
	}
	require.NoError(t, payments.Create(ctx, p))

	_, err = tasks.Transition(ctx, TransitionInput{
		TaskID: task.ID, From: models.StatusAccepted, To: models.StatusCancelled, ActorID: f.student.ID,
	})
	require.NoError(t, err)

	_, err = payments.Verify(ctx, VerifyPaymentInput{PaymentID: p.ID, VerifierID: f.student.ID})
	assert.ErrorIs(t, err, ErrStaleStatus)

	stored, err := payments.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, stored.Status)
}
