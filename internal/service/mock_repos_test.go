package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/yyw2wyy/workload-system/internal/model"
	"github.com/yyw2wyy/workload-system/internal/repository"
	"github.com/yyw2wyy/workload-system/internal/workflow"
	pkgerrors "github.com/yyw2wyy/workload-system/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[uint]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uint]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uint) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ListByIDs(_ context.Context, ids []uint) ([]model.User, error) {
	var result []model.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			result = append(result, *u)
		}
	}
	return result, nil
}

func (m *mockUserRepo) List(_ context.Context, role *model.Role) ([]model.User, error) {
	var result []model.User
	for _, u := range m.users {
		if role != nil && u.Role != *role {
			continue
		}
		result = append(result, *u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result, nil
}

func (m *mockUserRepo) ref(id *uint) *model.User {
	if id == nil {
		return nil
	}
	if u, ok := m.users[*id]; ok {
		c := *u
		return &c
	}
	return nil
}

// ── Mock WorkloadRepository ──

type mockWorkloadRepo struct {
	users     *mockUserRepo
	projects  *mockProjectRepo
	workloads map[uint]*model.Workload
	shares    map[uint][]model.WorkloadShare
	nextID    uint

	createErr error
	updateErr error
}

func newMockWorkloadRepo(users *mockUserRepo, projects *mockProjectRepo) *mockWorkloadRepo {
	return &mockWorkloadRepo{
		users:     users,
		projects:  projects,
		workloads: make(map[uint]*model.Workload),
		shares:    make(map[uint][]model.WorkloadShare),
		nextID:    1,
	}
}

// put 直接写入一条记录（测试预置数据）
func (m *mockWorkloadRepo) put(w *model.Workload) {
	if w.Version == 0 {
		w.Version = 1
	}
	if w.ID >= m.nextID {
		m.nextID = w.ID + 1
	}
	m.workloads[w.ID] = stripWorkload(w)
}

func stripWorkload(w *model.Workload) *model.Workload {
	c := *w
	c.Submitter, c.MentorReviewer, c.TeacherReviewer, c.Project, c.Shares = nil, nil, nil, nil, nil
	return &c
}

func (m *mockWorkloadRepo) hydrate(w *model.Workload) *model.Workload {
	c := *w
	c.Submitter = m.users.ref(&c.SubmitterID)
	c.MentorReviewer = m.users.ref(c.MentorReviewerID)
	c.TeacherReviewer = m.users.ref(c.TeacherReviewerID)
	if c.ProjectID != nil && m.projects != nil {
		if p, ok := m.projects.projects[*c.ProjectID]; ok {
			pc := *p
			c.Project = &pc
		}
	}
	for _, s := range m.shares[c.ID] {
		s.User = m.users.ref(&s.UserID)
		c.Shares = append(c.Shares, s)
	}
	return &c
}

func (m *mockWorkloadRepo) Create(_ context.Context, w *model.Workload) error {
	if m.createErr != nil {
		return m.createErr
	}
	if w.ID == 0 {
		w.ID = m.nextID
	}
	if _, exists := m.workloads[w.ID]; exists {
		return pkgerrors.ErrIntegrityConflict
	}
	w.CreatedAt = time.Now()
	w.UpdatedAt = w.CreatedAt
	m.put(w)
	return nil
}

func (m *mockWorkloadRepo) GetByID(_ context.Context, id uint) (*model.Workload, error) {
	if w, ok := m.workloads[id]; ok {
		return m.hydrate(w), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockWorkloadRepo) GetForUpdate(_ context.Context, id uint) (*model.Workload, error) {
	if w, ok := m.workloads[id]; ok {
		c := *w
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockWorkloadRepo) Update(_ context.Context, w *model.Workload) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	stored, ok := m.workloads[w.ID]
	if !ok || stored.Version != w.Version {
		return pkgerrors.ErrOptimisticLock
	}
	w.Version++
	w.UpdatedAt = time.Now()
	c := stripWorkload(w)
	c.CreatedAt = stored.CreatedAt
	m.workloads[w.ID] = c
	return nil
}

func (m *mockWorkloadRepo) Delete(_ context.Context, id uint) error {
	if _, ok := m.workloads[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.workloads, id)
	delete(m.shares, id)
	return nil
}

func (m *mockWorkloadRepo) sorted() []*model.Workload {
	list := make([]*model.Workload, 0, len(m.workloads))
	for _, w := range m.workloads {
		list = append(list, m.hydrate(w))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func (m *mockWorkloadRepo) List(_ context.Context, scope workflow.Scope) ([]model.Workload, error) {
	var result []model.Workload
	for _, w := range m.sorted() {
		if scope.MatchWorkload(w, submitterRoleOf(w)) {
			result = append(result, *w)
		}
	}
	return result, nil
}

func (m *mockWorkloadRepo) ListByIDs(_ context.Context, ids []uint, scope workflow.Scope) ([]model.Workload, error) {
	want := make(map[uint]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var result []model.Workload
	for _, w := range m.sorted() {
		if want[w.ID] && scope.MatchWorkload(w, submitterRoleOf(w)) {
			result = append(result, *w)
		}
	}
	return result, nil
}

func (m *mockWorkloadRepo) ListShares(_ context.Context, workloadID uint) ([]model.WorkloadShare, error) {
	return append([]model.WorkloadShare(nil), m.shares[workloadID]...), nil
}

func (m *mockWorkloadRepo) ReplaceShares(_ context.Context, workloadID uint, shares []model.WorkloadShare) error {
	if len(shares) == 0 {
		delete(m.shares, workloadID)
		return nil
	}
	rows := make([]model.WorkloadShare, len(shares))
	for i, s := range shares {
		rows[i] = model.WorkloadShare{ID: uint(i + 1), WorkloadID: workloadID, UserID: s.UserID, Percentage: s.Percentage}
	}
	m.shares[workloadID] = rows
	return nil
}

// ── Mock ProjectRepository ──

type mockProjectRepo struct {
	users    *mockUserRepo
	projects map[uint]*model.Project
	members  map[uint][]uint
	nextID   uint
}

func newMockProjectRepo(users *mockUserRepo) *mockProjectRepo {
	return &mockProjectRepo{
		users:    users,
		projects: make(map[uint]*model.Project),
		members:  make(map[uint][]uint),
		nextID:   1,
	}
}

func (m *mockProjectRepo) put(p *model.Project, members ...uint) {
	if p.Version == 0 {
		p.Version = 1
	}
	if p.ID >= m.nextID {
		m.nextID = p.ID + 1
	}
	c := *p
	c.Submitter, c.TeacherReviewer, c.Shares = nil, nil, nil
	m.projects[p.ID] = &c
	if len(members) > 0 {
		m.members[p.ID] = members
	}
}

func (m *mockProjectRepo) hydrate(p *model.Project) *model.Project {
	c := *p
	c.Submitter = m.users.ref(&c.SubmitterID)
	c.TeacherReviewer = m.users.ref(c.TeacherReviewerID)
	for i, uid := range m.members[c.ID] {
		uid := uid
		c.Shares = append(c.Shares, model.ProjectShare{ID: uint(i + 1), ProjectID: c.ID, UserID: uid, User: m.users.ref(&uid)})
	}
	return &c
}

func (m *mockProjectRepo) Create(_ context.Context, p *model.Project) error {
	if p.ID == 0 {
		p.ID = m.nextID
	}
	if _, exists := m.projects[p.ID]; exists {
		return pkgerrors.ErrIntegrityConflict
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.put(p)
	return nil
}

func (m *mockProjectRepo) GetByID(_ context.Context, id uint) (*model.Project, error) {
	if p, ok := m.projects[id]; ok {
		return m.hydrate(p), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProjectRepo) GetForUpdate(_ context.Context, id uint) (*model.Project, error) {
	if p, ok := m.projects[id]; ok {
		c := *p
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProjectRepo) Update(_ context.Context, p *model.Project) error {
	stored, ok := m.projects[p.ID]
	if !ok || stored.Version != p.Version {
		return pkgerrors.ErrOptimisticLock
	}
	p.Version++
	c := *p
	c.Submitter, c.TeacherReviewer, c.Shares = nil, nil, nil
	c.SubmitterID = stored.SubmitterID
	c.CreatedAt = stored.CreatedAt
	m.projects[p.ID] = &c
	return nil
}

func (m *mockProjectRepo) Delete(_ context.Context, id uint) error {
	if _, ok := m.projects[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.projects, id)
	delete(m.members, id)
	return nil
}

func (m *mockProjectRepo) filter(ids map[uint]bool, scope workflow.Scope) []model.Project {
	keys := make([]uint, 0, len(m.projects))
	for id := range m.projects {
		keys = append(keys, id)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var result []model.Project
	for _, id := range keys {
		if ids != nil && !ids[id] {
			continue
		}
		p := m.hydrate(m.projects[id])
		if scope.MatchProject(p, m.members[id]) {
			result = append(result, *p)
		}
	}
	return result
}

func (m *mockProjectRepo) List(_ context.Context, scope workflow.Scope) ([]model.Project, error) {
	return m.filter(nil, scope), nil
}

func (m *mockProjectRepo) ListByIDs(_ context.Context, ids []uint, scope workflow.Scope) ([]model.Project, error) {
	want := make(map[uint]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return m.filter(want, scope), nil
}

func (m *mockProjectRepo) ListMemberIDs(_ context.Context, projectID uint) ([]uint, error) {
	return append([]uint(nil), m.members[projectID]...), nil
}

func (m *mockProjectRepo) ReplaceShares(_ context.Context, projectID uint, userIDs []uint) error {
	m.members[projectID] = append([]uint(nil), userIDs...)
	return nil
}

// ── Mock AnnouncementRepository ──

type mockAnnouncementRepo struct {
	items []model.Announcement
	calls int
}

func (m *mockAnnouncementRepo) GetByID(_ context.Context, id uint) (*model.Announcement, error) {
	for i := range m.items {
		if m.items[i].ID == id {
			a := m.items[i]
			return &a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAnnouncementRepo) List(_ context.Context, source *model.WorkloadSource) ([]model.Announcement, error) {
	m.calls++
	var result []model.Announcement
	for _, a := range m.items {
		if source != nil && (a.Source == nil || *a.Source != *source) {
			continue
		}
		result = append(result, a)
	}
	return result, nil
}

// ── Fake AttachmentStore ──

type fakeStore struct {
	objects  map[string][]byte
	deleted  []string
	seq      int
	storeErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Store(_ context.Context, filename string, r io.Reader, _ int64, _ string) (string, error) {
	if f.storeErr != nil {
		return "", f.storeErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.seq++
	key := fmt.Sprintf("attachments/%d-%s", f.seq, filename)
	f.objects[key] = data
	return key, nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStore) URL(_ context.Context, key string) (string, error) {
	if _, ok := f.objects[key]; !ok {
		return "", errors.New("对象不存在")
	}
	return "https://files.example.com/" + key, nil
}

// ── Fake Cache ──

type fakeCache struct {
	data map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) GetJSON(_ context.Context, key string, dest interface{}) error {
	raw, ok := c.data[key]
	if !ok {
		return errors.New("cache miss")
	}
	return json.Unmarshal(raw, dest)
}

func (c *fakeCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

// ── 测试夹具 ──

var (
	testNow = time.Date(2025, 3, 20, 10, 0, 0, 0, time.UTC)

	actorStudent  = model.Actor{ID: 1, Role: model.RoleStudent}
	actorMentorA  = model.Actor{ID: 2, Role: model.RoleMentor}
	actorMentorB  = model.Actor{ID: 3, Role: model.RoleMentor}
	actorTeacher  = model.Actor{ID: 4, Role: model.RoleTeacher}
	actorStudent2 = model.Actor{ID: 5, Role: model.RoleStudent}
)

type testEnv struct {
	users         *mockUserRepo
	workloads     *mockWorkloadRepo
	projects      *mockProjectRepo
	announcements *mockAnnouncementRepo
	repo          *repository.Repository
}

func newTestEnv() *testEnv {
	users := newMockUserRepo()
	for _, u := range []model.User{
		{ID: 1, Username: "alice", Email: "alice@example.com", Role: model.RoleStudent},
		{ID: 2, Username: "bob", Email: "bob@example.com", Role: model.RoleMentor},
		{ID: 3, Username: "carol", Email: "carol@example.com", Role: model.RoleMentor},
		{ID: 4, Username: "dave", Email: "dave@example.com", Role: model.RoleTeacher},
		{ID: 5, Username: "erin", Email: "erin@example.com", Role: model.RoleStudent},
	} {
		u := u
		users.users[u.ID] = &u
	}
	projects := newMockProjectRepo(users)
	workloads := newMockWorkloadRepo(users, projects)
	announcements := &mockAnnouncementRepo{}

	return &testEnv{
		users:         users,
		workloads:     workloads,
		projects:      projects,
		announcements: announcements,
		repo: &repository.Repository{
			User:         users,
			Workload:     workloads,
			Project:      projects,
			Announcement: announcements,
		},
	}
}

func strRef(s string) *string { return &s }

func uintRef(v uint) *uint { return &v }

func floatRef(v float64) *float64 { return &v }

func newUpload(name, body string) *Upload {
	return &Upload{
		Filename:    name,
		Size:        int64(len(body)),
		ContentType: "application/pdf",
		Reader:      bytes.NewBufferString(body),
	}
}
