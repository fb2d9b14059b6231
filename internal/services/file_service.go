package services

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"intihelp/internal/authz"
	"intihelp/internal/logging"
	"intihelp/internal/models"
	"intihelp/internal/repositories"
	"intihelp/internal/storage"
)

type FileService interface {
	Upload(ctx context.Context, sess authz.Session, uc models.UploadContext, originalName string, r io.Reader) (*models.File, error)
	Open(ctx context.Context, sess authz.Session, fileID int64) (*models.File, *os.File, error)
	// Owned loads files and checks they were uploaded by userID for uc.
	Owned(ctx context.Context, userID int64, uc models.UploadContext, ids []int64) ([]*models.File, error)
	// Discard deletes files uploaded for a request that was refused. Errors
	// are logged only.
	Discard(ctx context.Context, ids []int64)
	SetProfilePicture(ctx context.Context, sess authz.Session, originalName string, r io.Reader) (*models.User, error)
	RemoveProfilePicture(ctx context.Context, sess authz.Session) (*models.User, error)
}

type fileService struct {
	repo   repositories.FileRepository
	tasks  repositories.TaskRepository
	groups repositories.GroupRepository
	users  repositories.UserRepository
	store  *storage.Local
}

func NewFileService(repo repositories.FileRepository, tasks repositories.TaskRepository, groups repositories.GroupRepository, users repositories.UserRepository, store *storage.Local) FileService {
	return &fileService{repo: repo, tasks: tasks, groups: groups, users: users, store: store}
}

func allowedTypes(uc models.UploadContext) ([]string, bool) {
	switch uc {
	case models.UploadRequirement, models.UploadUpdates, models.UploadFinal:
		return storage.DocumentTypes, true
	case models.UploadPaymentReceipt:
		return storage.ReceiptTypes, true
	case models.UploadProfilePicture:
		return storage.ImageTypes, true
	}
	return nil, false
}

// Upload stores the content on disk and records it. If the record cannot be
// written the file on disk is removed again.
func (s *fileService) Upload(ctx context.Context, sess authz.Session, uc models.UploadContext, originalName string, r io.Reader) (*models.File, error) {
	allowed, ok := allowedTypes(uc)
	if !ok {
		return nil, invalid("unknown upload context %q", uc)
	}
	if (uc == models.UploadUpdates || uc == models.UploadFinal) && !sess.IsAssistant() {
		return nil, ErrForbidden
	}

	st, err := s.store.Save(sess.UserID, r, allowed)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(strings.TrimSpace(originalName))
	if name == "." || name == string(filepath.Separator) {
		name = st.StoredName
	}
	f := &models.File{
		OriginalName:  name,
		StoredName:    st.StoredName,
		FilePath:      st.Path,
		FileSize:      st.Size,
		MimeType:      st.MimeType,
		FileExtension: st.Extension,
		UploadedBy:    sess.UserID,
		UploadContext: uc,
	}
	if err := s.repo.Create(ctx, f); err != nil {
		if rmErr := s.store.Remove(st.Path); rmErr != nil {
			logging.Error("[file][upload] orphan cleanup failed", "path", st.Path, "error", rmErr)
		}
		return nil, err
	}
	return f, nil
}

func (s *fileService) Owned(ctx context.Context, userID int64, uc models.UploadContext, ids []int64) ([]*models.File, error) {
	out := make([]*models.File, 0, len(ids))
	seen := map[int64]bool{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		f, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, invalid("file %d not found", id)
		}
		if f.UploadedBy != userID {
			return nil, ErrForbidden
		}
		if f.UploadContext != uc {
			return nil, invalid("file %d was uploaded as %s, expected %s", id, f.UploadContext, uc)
		}
		out = append(out, f)
	}
	return out, nil
}

func (s *fileService) Discard(ctx context.Context, ids []int64) {
	ctx = context.WithoutCancel(ctx)
	for _, id := range ids {
		f, err := s.repo.GetByID(ctx, id)
		if err != nil {
			logging.Warn("[file][discard] lookup failed", "file_id", id, "error", err)
			continue
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			logging.Error("[file][discard] delete row failed", "file_id", id, "error", err)
			continue
		}
		if err := s.store.Remove(f.FilePath); err != nil {
			logging.Error("[file][discard] remove failed", "file_id", id, "path", f.FilePath, "error", err)
		}
	}
}

// SetProfilePicture stores a new picture and drops the previous one.
func (s *fileService) SetProfilePicture(ctx context.Context, sess authz.Session, originalName string, r io.Reader) (*models.User, error) {
	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	f, err := s.Upload(ctx, sess, models.UploadProfilePicture, originalName, r)
	if err != nil {
		return nil, err
	}
	previous := user.ProfilePictureID
	user.ProfilePictureID = &f.ID
	if err := s.users.Update(ctx, user); err != nil {
		s.Discard(ctx, []int64{f.ID})
		return nil, err
	}
	if previous != nil {
		s.Discard(ctx, []int64{*previous})
	}
	logging.Info("[file][profile-picture][set]", "user_id", user.ID, "file_id", f.ID)
	return user, nil
}

func (s *fileService) RemoveProfilePicture(ctx context.Context, sess authz.Session) (*models.User, error) {
	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	previous := user.ProfilePictureID
	if previous == nil {
		return user, nil
	}
	user.ProfilePictureID = nil
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	s.Discard(ctx, []int64{*previous})
	return user, nil
}

func (s *fileService) Open(ctx context.Context, sess authz.Session, fileID int64) (*models.File, *os.File, error) {
	f, err := s.repo.GetByID(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}
	if !s.canRead(ctx, sess, f) {
		return nil, nil, ErrForbidden
	}
	fh, err := s.store.Open(f.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, repositories.ErrNotFound
		}
		return nil, nil, err
	}
	return f, fh, nil
}

// canRead allows the uploader, admins and anyone taking part in a task the
// file is attached to. Profile pictures are public to signed-in users.
func (s *fileService) canRead(ctx context.Context, sess authz.Session, f *models.File) bool {
	if sess.IsAdmin() || f.UploadedBy == sess.UserID || f.UploadContext == models.UploadProfilePicture {
		return true
	}
	taskIDs, err := s.repo.LinkedTaskIDs(ctx, f.ID)
	if err != nil {
		logging.Warn("[file][acl] linked tasks lookup failed", "file_id", f.ID, "error", err)
		return false
	}
	for _, id := range taskIDs {
		task, err := s.tasks.GetByID(ctx, id)
		if err != nil {
			continue
		}
		if task.IsParticipant(sess.UserID) {
			return true
		}
		if f.UploadContext != models.UploadPaymentReceipt && isGroupMember(ctx, s.groups, task, sess.UserID) {
			return true
		}
	}
	return false
}

func isGroupMember(ctx context.Context, groups repositories.GroupRepository, task *models.Task, userID int64) bool {
	if task.GroupID == nil {
		return false
	}
	g, err := groups.GetByID(ctx, *task.GroupID)
	if err != nil {
		return false
	}
	for _, m := range g.Members {
		if m.UserID != nil && *m.UserID == userID {
			return true
		}
	}
	return false
}
