package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intihelp/internal/models"
	"intihelp/internal/repositories"
	"intihelp/internal/storage"
)

func TestFileUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	file, err := f.files.Upload(ctx, f.student, models.UploadRequirement, "../../consigna.pdf", bytes.NewReader(pdfContent))
	require.NoError(t, err)
	assert.Equal(t, "consigna.pdf", file.OriginalName)
	assert.Equal(t, "application/pdf", file.MimeType)
	assert.Equal(t, f.student.UserID, file.UploadedBy)
	assert.Equal(t, int64(len(pdfContent)), file.FileSize)

	_, err = f.files.Upload(ctx, f.student, models.UploadFinal, "final.pdf", bytes.NewReader(pdfContent))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.files.Upload(ctx, f.student, models.UploadContext("avatar"), "x.pdf", bytes.NewReader(pdfContent))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.files.Upload(ctx, f.student, models.UploadPaymentReceipt, "notes.txt", strings.NewReader("solo texto"))
	assert.ErrorIs(t, err, storage.ErrUnsupportedType)

	_, err = f.files.Upload(ctx, f.student, models.UploadRequirement, "empty.pdf", bytes.NewReader(nil))
	assert.ErrorIs(t, err, storage.ErrEmpty)
}

func TestFileOwned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.upload(t, f.student, models.UploadRequirement)
	b := f.upload(t, f.student, models.UploadRequirement)

	got, err := f.files.Owned(ctx, f.student.UserID, models.UploadRequirement, []int64{a.ID, b.ID, a.ID})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = f.files.Owned(ctx, f.student2.UserID, models.UploadRequirement, []int64{a.ID})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.files.Owned(ctx, f.student.UserID, models.UploadPaymentReceipt, []int64{a.ID})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.files.Owned(ctx, f.student.UserID, models.UploadRequirement, []int64{404})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestFileOpen_AccessFollowsTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	requirement := f.upload(t, f.student, models.UploadRequirement)

	// Before it is attached only the uploader and admins can read it.
	_, _, err := f.files.Open(ctx, f.assistant, requirement.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	in := f.taskInput()
	in.FileIDs = []int64{requirement.ID}
	f.createTask(t, in)

	meta, fh, err := f.files.Open(ctx, f.assistant, requirement.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(fh)
	require.NoError(t, fh.Close())
	require.NoError(t, err)
	assert.Equal(t, pdfContent, data)
	assert.Equal(t, requirement.ID, meta.ID)

	_, _, err = f.files.Open(ctx, f.student2, requirement.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, fh, err = f.files.Open(ctx, f.admin, requirement.ID)
	require.NoError(t, err)
	require.NoError(t, fh.Close())
}

func TestFileOpen_ReceiptVisibleToParticipants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task, g := f.groupTask(t, "Ana", "Rosa")

	in := f.paymentInput(t, f.student2, task.ID)
	in.MemberID = &g.Members[1].ID
	_, err := f.payments.Submit(ctx, f.student2, in)
	require.NoError(t, err)

	_, fh, err := f.files.Open(ctx, f.assistant, in.ReceiptFileID)
	require.NoError(t, err)
	require.NoError(t, fh.Close())

	_, _, err = f.files.Open(ctx, f.assistant2, in.ReceiptFileID)
	assert.ErrorIs(t, err, ErrForbidden)
}

var pngContent = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 64)...)

func assertGone(t *testing.T, f *fixture, file *models.File) {
	t.Helper()
	_, err := f.store.Files().GetByID(context.Background(), file.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	_, err = f.disk.Open(file.FilePath)
	assert.True(t, errors.Is(err, fs.ErrNotExist), "file still on disk: %v", err)
}

func TestFileDiscard_RemovesRowAndContent(t *testing.T) {
	f := newFixture(t)
	a := f.upload(t, f.assistant, models.UploadUpdates)
	b := f.upload(t, f.assistant, models.UploadUpdates)

	f.files.Discard(context.Background(), []int64{a.ID, 9999})

	assertGone(t, f, a)
	_, err := f.store.Files().GetByID(context.Background(), b.ID)
	assert.NoError(t, err)
}

func TestProfilePicture_SetReplaceRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.files.SetProfilePicture(ctx, f.student, "cv.pdf", bytes.NewReader(pdfContent))
	require.ErrorIs(t, err, storage.ErrUnsupportedType)

	user, err := f.files.SetProfilePicture(ctx, f.student, "yo.png", bytes.NewReader(pngContent))
	require.NoError(t, err)
	require.NotNil(t, user.ProfilePictureID)
	first, err := f.store.Files().GetByID(ctx, *user.ProfilePictureID)
	require.NoError(t, err)
	assert.Equal(t, models.UploadProfilePicture, first.UploadContext)

	// Any signed-in user can see it.
	_, fh, err := f.files.Open(ctx, f.assistant2, first.ID)
	require.NoError(t, err)
	require.NoError(t, fh.Close())

	user, err = f.files.SetProfilePicture(ctx, f.student, "nueva.png", bytes.NewReader(pngContent))
	require.NoError(t, err)
	require.NotNil(t, user.ProfilePictureID)
	assert.NotEqual(t, first.ID, *user.ProfilePictureID)
	assertGone(t, f, first)

	stored, err := f.store.Users().GetByID(ctx, f.student.UserID)
	require.NoError(t, err)
	require.NotNil(t, stored.ProfilePictureID)
	second, err := f.store.Files().GetByID(ctx, *stored.ProfilePictureID)
	require.NoError(t, err)

	user, err = f.files.RemoveProfilePicture(ctx, f.student)
	require.NoError(t, err)
	assert.Nil(t, user.ProfilePictureID)
	assertGone(t, f, second)

	user, err = f.files.RemoveProfilePicture(ctx, f.student)
	require.NoError(t, err)
	assert.Nil(t, user.ProfilePictureID)
}
