package repotest

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/BerniceZTT/pmis_end/models"
	"github.com/BerniceZTT/pmis_end/repository"
)

// FileStore 内存文件存储
type FileStore struct {
	mu    sync.Mutex
	files map[string]storedFile
	// SaveErr 非nil时 Save 直接失败
	SaveErr error
}

type storedFile struct {
	ref  models.FileRef
	data []byte
}

var _ repository.FileStore = (*FileStore)(nil)

// NewFileStore 创建空文件存储
func NewFileStore() *FileStore {
	return &FileStore{files: make(map[string]storedFile)}
}

func (s *FileStore) Save(_ context.Context, ref *models.FileRef, content io.Reader) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	ref.FileSize = int64(len(data))
	ref.UploadedAt = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[ref.StoredName] = storedFile{ref: *ref, data: data}
	return nil
}

func (s *FileStore) Open(_ context.Context, storedName string) (*repository.StoredFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[storedName]
	if !ok {
		return nil, repository.ErrFileNotFound
	}
	return &repository.StoredFile{
		ReadCloser:   io.NopCloser(bytes.NewReader(f.data)),
		StoredName:   storedName,
		OriginalName: f.ref.OriginalName,
		MimeType:     f.ref.MimeType,
		Size:         int64(len(f.data)),
	}, nil
}

func (s *FileStore) Delete(_ context.Context, storedName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[storedName]; !ok {
		return repository.ErrFileNotFound
	}
	delete(s.files, storedName)
	return nil
}

// Names 返回当前保存的文件名，已排序
func (s *FileStore) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UserStore 内存用户存储
type UserStore struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]models.User
}

var _ repository.UserStore = (*UserStore)(nil)

// NewUserStore 创建空用户存储
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[primitive.ObjectID]models.User)}
}

func (s *UserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return repository.ErrDuplicateKey
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	s.users[user.ID] = *user
	return nil
}

func (s *UserStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (s *UserStore) FindByIdentifier(_ context.Context, identifier string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == identifier || u.Email == identifier {
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *UserStore) List(_ context.Context, filter models.UserFilter) ([]models.User, int64, error) {
	s.mu.Lock()
	var matched []models.User
	for _, u := range s.users {
		if filter.Role != "" && string(u.Role) != filter.Role {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		if filter.Search != "" && !containsFold(u.FullName, filter.Search) &&
			!containsFold(u.Username, filter.Search) && !containsFold(u.Email, filter.Search) {
			continue
		}
		u.Password = ""
		matched = append(matched, u)
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := int64(len(matched))
	start, end := window(total, filter.Page, filter.Limit)
	return append([]models.User{}, matched[start:end]...), total, nil
}

func (s *UserStore) Update(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[user.ID]
	if !ok {
		return repository.ErrUserNotFound
	}
	for id, other := range s.users {
		if id != user.ID && other.Email == user.Email {
			return repository.ErrDuplicateKey
		}
	}
	u.FullName = user.FullName
	u.Email = user.Email
	u.Phone = user.Phone
	u.Role = user.Role
	u.Department = user.Department
	u.Designation = user.Designation
	u.IsActive = user.IsActive
	u.UpdatedAt = user.UpdatedAt
	s.users[user.ID] = u
	return nil
}

func (s *UserStore) UpdatePassword(_ context.Context, id primitive.ObjectID, hashed string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Password = hashed
	u.UpdatedAt = now
	s.users[id] = u
	return nil
}

func (s *UserStore) TouchLastLogin(_ context.Context, id primitive.ObjectID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.LastLogin = &at
	s.users[id] = u
	return nil
}

func (s *UserStore) CountByRole(_ context.Context, role models.UserRole) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, u := range s.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

// MeasurementBookStore 内存计量簿存储
type MeasurementBookStore struct {
	mu    sync.Mutex
	books map[primitive.ObjectID]models.MeasurementBook
}

var _ repository.MeasurementBookStore = (*MeasurementBookStore)(nil)

// NewMeasurementBookStore 创建空计量簿存储
func NewMeasurementBookStore() *MeasurementBookStore {
	return &MeasurementBookStore{books: make(map[primitive.ObjectID]models.MeasurementBook)}
}

func (s *MeasurementBookStore) Create(_ context.Context, book *models.MeasurementBook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if book.ID.IsZero() {
		book.ID = primitive.NewObjectID()
	}
	s.books[book.ID] = *book
	return nil
}

func (s *MeasurementBookStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.MeasurementBook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[id]
	if !ok {
		return nil, repository.ErrBookNotFound
	}
	return &b, nil
}

func (s *MeasurementBookStore) List(_ context.Context, filter models.MeasurementBookFilter) ([]models.MeasurementBook, int64, error) {
	s.mu.Lock()
	var matched []models.MeasurementBook
	for _, b := range s.books {
		if filter.Project != nil && b.Project != *filter.Project {
			continue
		}
		if filter.Search != "" && !containsFold(b.Description, filter.Search) &&
			!containsFold(b.ProjectName, filter.Search) && !strings.EqualFold(b.ProjectID, filter.Search) {
			continue
		}
		matched = append(matched, b)
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := int64(len(matched))
	start, end := window(total, filter.Page, filter.Limit)
	return append([]models.MeasurementBook{}, matched[start:end]...), total, nil
}

func (s *MeasurementBookStore) Update(_ context.Context, book *models.MeasurementBook) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[book.ID]
	if !ok {
		return repository.ErrBookNotFound
	}
	b.Description = book.Description
	b.Remarks = book.Remarks
	b.UploadedFile = book.UploadedFile
	b.LastModifiedBy = book.LastModifiedBy
	b.UpdatedAt = book.UpdatedAt
	s.books[book.ID] = b
	return nil
}

func (s *MeasurementBookStore) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[id]; !ok {
		return repository.ErrBookNotFound
	}
	delete(s.books, id)
	return nil
}

// OTPStore 内存验证码存储，Now 可替换以控制过期
type OTPStore struct {
	mu      sync.Mutex
	codes   map[string]repository.OTPRecord
	resends map[string]resendWindow
	Now     func() time.Time
}

type resendWindow struct {
	count     int64
	expiresAt time.Time
}

var _ repository.OTPStore = (*OTPStore)(nil)

// NewOTPStore 创建空验证码存储
func NewOTPStore() *OTPStore {
	return &OTPStore{
		codes:   make(map[string]repository.OTPRecord),
		resends: make(map[string]resendWindow),
		Now:     time.Now,
	}
}

func (s *OTPStore) SaveOTP(_ context.Context, userID string, hash string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[userID] = repository.OTPRecord{Hash: hash, ExpiresAt: s.Now().Add(ttl)}
	return nil
}

func (s *OTPStore) GetOTP(_ context.Context, userID string) (*repository.OTPRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.codes[userID]
	if !ok || !s.Now().Before(rec.ExpiresAt) {
		delete(s.codes, userID)
		return nil, repository.ErrOTPNotFound
	}
	return &rec, nil
}

func (s *OTPStore) IncrementAttempts(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.codes[userID]
	if !ok || !s.Now().Before(rec.ExpiresAt) {
		delete(s.codes, userID)
		return 0, repository.ErrOTPNotFound
	}
	rec.Attempts++
	s.codes[userID] = rec
	return rec.Attempts, nil
}

func (s *OTPStore) DeleteOTP(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, userID)
	return nil
}

func (s *OTPStore) IncrementResend(_ context.Context, userID string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	w, ok := s.resends[userID]
	if !ok || !now.Before(w.expiresAt) {
		w = resendWindow{expiresAt: now.Add(window)}
	}
	w.count++
	s.resends[userID] = w
	return w.count, nil
}

// OperationLogStore 内存操作日志
type OperationLogStore struct {
	mu   sync.Mutex
	Logs []models.OperationLog
}

var _ repository.OperationLogStore = (*OperationLogStore)(nil)

func (s *OperationLogStore) Save(_ context.Context, log *models.OperationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Logs = append(s.Logs, *log)
	return nil
}

// Entries 返回已记录日志的副本
func (s *OperationLogStore) Entries() []models.OperationLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.OperationLog(nil), s.Logs...)
}
