package services

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"intihelp/internal/authz"
	"intihelp/internal/lock"
	"intihelp/internal/models"
	"intihelp/internal/pdf"
	"intihelp/internal/pricing"
	"intihelp/internal/repositories/memory"
	"intihelp/internal/storage"
)

var pdfContent = append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte{'x'}, 200)...)

type recordingNotifier struct {
	mu       sync.Mutex
	changed  []models.TaskStatus
	reviewed []models.PaymentStatus
	due      []int64
	dueErr   error
}

func (n *recordingNotifier) TaskChanged(_ context.Context, task *models.Task, _ int64, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, task.Status)
}

func (n *recordingNotifier) PaymentReviewed(_ context.Context, p *models.Payment, _ *models.Task) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reviewed = append(n.reviewed, p.Status)
}

func (n *recordingNotifier) DueSoon(_ context.Context, task *models.Task) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.dueErr != nil {
		return n.dueErr
	}
	n.due = append(n.due, task.ID)
	return nil
}

func (n *recordingNotifier) Wait() {}

func (n *recordingNotifier) changes() []models.TaskStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.TaskStatus(nil), n.changed...)
}

type stubReceipts struct {
	last pdf.ReceiptData
}

func (s *stubReceipts) WriteReceipt(w io.Writer, data pdf.ReceiptData) error {
	s.last = data
	_, err := w.Write([]byte("%PDF-stub"))
	return err
}

type fixture struct {
	store    *memory.Store
	disk     *storage.Local
	notify   *recordingNotifier
	receipts *stubReceipts

	files     FileService
	coupons   CouponService
	pricing   PricingService
	tasks     TaskService
	payments  PaymentService
	dashboard DashboardService

	student    authz.Session
	student2   authz.Session
	assistant  authz.Session
	assistant2 authz.Session
	admin      authz.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    memory.New(),
		disk:     storage.NewLocal(t.TempDir(), 1<<20),
		notify:   &recordingNotifier{},
		receipts: &stubReceipts{},
	}
	ctx := context.Background()

	mkUser := func(name string, role int) authz.Session {
		u := &models.User{FullName: name, Email: name + "@intihelp.test", RoleID: role}
		require.NoError(t, f.store.Users().Create(ctx, u))
		return authz.Session{UserID: u.ID, RoleID: role}
	}
	f.student = mkUser("ana", authz.RoleStudent)
	f.assistant = mkUser("luis", authz.RoleAssistant)
	f.admin = mkUser("admin", authz.RoleAdmin)
	f.student2 = mkUser("rosa", authz.RoleStudent)
	f.assistant2 = mkUser("jorge", authz.RoleAssistant)

	locker := lock.NewKeyedMutex()
	f.files = NewFileService(f.store.Files(), f.store.Tasks(), f.store.Groups(), f.store.Users(), f.disk)
	f.coupons = NewCouponService(f.store.Coupons())
	f.pricing = NewPricingService(f.store.Pricing(), f.store.Catalog(), f.coupons, pricing.NewEngine(pricing.DefaultFeeRate))
	f.tasks = NewTaskService(f.store.Tasks(), f.store.Groups(), f.store.Users(), f.pricing, f.files, locker, f.notify)
	f.payments = NewPaymentService(f.store.Payments(), f.store.Tasks(), f.store.Groups(), f.store.Users(), f.files, locker, f.notify, f.receipts)
	f.dashboard = NewDashboardService(f.store.Tasks())

	// 5 pages, 10% AI and 5% plagiarism cost 100 + 20 + 30 = 150, 180 with the fee.
	_, err := f.pricing.SaveService(ctx, f.assistant.UserID, 1, SaveServiceInput{
		IsEnabled: true,
		Bands: []models.PriceBand{
			{Criterion: models.CriterionPages, MinValue: 1, MaxValue: 10, Cost: money("100")},
			{Criterion: models.CriterionPages, MinValue: 11, MaxValue: 30, Cost: money("180")},
			{Criterion: models.CriterionAI, MinValue: 0, MaxValue: 20, Cost: money("20")},
			{Criterion: models.CriterionPlagiarism, MinValue: 0, MaxValue: 10, Cost: money("30")},
		},
	})
	require.NoError(t, err)
	return f
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (f *fixture) taskInput() CreateTaskInput {
	return CreateTaskInput{
		AssistantID:             f.assistant.UserID,
		TaskTypeID:              1,
		Title:                   "Ensayo sobre la conquista",
		PageCount:               5,
		MaxAIPercentage:         10,
		MaxPlagiarismPercentage: 5,
		DueDate:                 time.Now().Add(72 * time.Hour),
	}
}

func (f *fixture) createTask(t *testing.T, in CreateTaskInput) *models.Task {
	t.Helper()
	task, created, err := f.tasks.Create(context.Background(), f.student, in)
	require.NoError(t, err)
	require.True(t, created)
	return task
}

func (f *fixture) upload(t *testing.T, sess authz.Session, uc models.UploadContext) *models.File {
	t.Helper()
	file, err := f.files.Upload(context.Background(), sess, uc, "doc.pdf", bytes.NewReader(pdfContent))
	require.NoError(t, err)
	return file
}

func (f *fixture) paymentInput(t *testing.T, payer authz.Session, taskID int64) SubmitPaymentInput {
	t.Helper()
	return SubmitPaymentInput{
		TaskID:        taskID,
		SenderName:    "Ana Quispe",
		SenderBank:    "BCP",
		RecipientBank: "Interbank",
		TransferDate:  time.Now().Add(-time.Hour),
		ReceiptFileID: f.upload(t, payer, models.UploadPaymentReceipt).ID,
	}
}

// acceptedTask creates an individual task and has the assistant accept it.
func (f *fixture) acceptedTask(t *testing.T) *models.Task {
	t.Helper()
	task := f.createTask(t, f.taskInput())
	task, err := f.tasks.Accept(context.Background(), f.assistant, task.ID)
	require.NoError(t, err)
	return task
}

// paidTask takes an individual task through acceptance and a verified payment.
func (f *fixture) paidTask(t *testing.T) *models.Task {
	t.Helper()
	ctx := context.Background()
	task := f.acceptedTask(t)
	p, err := f.payments.Submit(ctx, f.student, f.paymentInput(t, f.student, task.ID))
	require.NoError(t, err)
	_, err = f.payments.Verify(ctx, f.admin, p.ID)
	require.NoError(t, err)
	detail, err := f.tasks.Get(ctx, f.student, task.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusPaid, detail.Status)
	return &detail.Task
}

// completedTask takes a task up to Tarea Completada.
func (f *fixture) completedTask(t *testing.T) *models.Task {
	t.Helper()
	ctx := context.Background()
	task := f.paidTask(t)
	_, err := f.tasks.Start(ctx, f.assistant, task.ID)
	require.NoError(t, err)
	final := f.upload(t, f.assistant, models.UploadFinal)
	task, err = f.tasks.Deliver(ctx, f.assistant, task.ID, []int64{final.ID}, "")
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, task.Status)
	return task
}
