package service

import (
	"context"
	"sync"
	"time"

	"agora/internal/events"
	"agora/internal/models"
	"agora/internal/repository"

	"gorm.io/gorm"
)

type relationRepoStub struct {
	existsFn        func(context.Context, models.RelationKind, uint, uint) (bool, error)
	addFn           func(context.Context, models.RelationKind, uint, uint) (bool, error)
	removeFn        func(context.Context, models.RelationKind, uint, uint) (bool, error)
	listOutgoingFn  func(context.Context, models.RelationKind, uint) ([]uint, error)
	listIncomingFn  func(context.Context, models.RelationKind, uint) ([]uint, error)
	deleteForUserFn func(context.Context, models.RelationKind, uint) (int64, error)
}

func (s *relationRepoStub) WithTx(*gorm.DB) repository.RelationRepository { return s }
func (s *relationRepoStub) Exists(ctx context.Context, kind models.RelationKind, subjectID, objectID uint) (bool, error) {
	return s.existsFn(ctx, kind, subjectID, objectID)
}
func (s *relationRepoStub) Add(ctx context.Context, kind models.RelationKind, subjectID, objectID uint) (bool, error) {
	return s.addFn(ctx, kind, subjectID, objectID)
}
func (s *relationRepoStub) Remove(ctx context.Context, kind models.RelationKind, subjectID, objectID uint) (bool, error) {
	return s.removeFn(ctx, kind, subjectID, objectID)
}
func (s *relationRepoStub) ListOutgoing(ctx context.Context, kind models.RelationKind, subjectID uint) ([]uint, error) {
	return s.listOutgoingFn(ctx, kind, subjectID)
}
func (s *relationRepoStub) ListIncoming(ctx context.Context, kind models.RelationKind, objectID uint) ([]uint, error) {
	return s.listIncomingFn(ctx, kind, objectID)
}
func (s *relationRepoStub) DeleteForUser(ctx context.Context, kind models.RelationKind, userID uint) (int64, error) {
	return s.deleteForUserFn(ctx, kind, userID)
}

type userRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	isAdminFn       func(context.Context, uint) (bool, error)
	createFn        func(context.Context, *models.User) error
	setAdminFn      func(context.Context, uint, bool) error
	listAdminsFn    func(context.Context) ([]models.User, error)
	deleteFn        func(context.Context, uint) error
}

func (s *userRepoStub) WithTx(*gorm.DB) repository.UserRepository { return s }
func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) IsAdmin(ctx context.Context, id uint) (bool, error) {
	return s.isAdminFn(ctx, id)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) SetAdmin(ctx context.Context, id uint, admin bool) error {
	return s.setAdminFn(ctx, id, admin)
}
func (s *userRepoStub) ListAdmins(ctx context.Context) ([]models.User, error) {
	return s.listAdminsFn(ctx)
}
func (s *userRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

type contentRepoStub struct {
	existsFn      func(context.Context, models.TargetType, uint) (bool, error)
	authorOfFn    func(context.Context, models.TargetType, uint) (uint, error)
	setReportedFn func(context.Context, models.TargetType, uint, bool) error
}

func (s *contentRepoStub) WithTx(*gorm.DB) repository.ContentRepository { return s }
func (s *contentRepoStub) Exists(ctx context.Context, targetType models.TargetType, id uint) (bool, error) {
	return s.existsFn(ctx, targetType, id)
}
func (s *contentRepoStub) AuthorOf(ctx context.Context, targetType models.TargetType, id uint) (uint, error) {
	return s.authorOfFn(ctx, targetType, id)
}
func (s *contentRepoStub) SetReported(ctx context.Context, targetType models.TargetType, id uint, reported bool) error {
	return s.setReportedFn(ctx, targetType, id, reported)
}
func (s *contentRepoStub) CreatePost(context.Context, *models.Post) error       { return nil }
func (s *contentRepoStub) CreateComment(context.Context, *models.Comment) error { return nil }
func (s *contentRepoStub) PostIDsByAuthor(context.Context, uint) ([]uint, error) {
	return nil, nil
}
func (s *contentRepoStub) CommentIDsByAuthor(context.Context, uint) ([]uint, error) {
	return nil, nil
}
func (s *contentRepoStub) CommentIDsByPost(context.Context, uint) ([]uint, error) {
	return nil, nil
}
func (s *contentRepoStub) Delete(context.Context, models.TargetType, uint) error { return nil }

type voteRepoStub struct {
	upsertFn func(context.Context, *models.Vote) error
	getFn    func(context.Context, uint, models.TargetType, uint) (int8, error)
	tallyFn  func(context.Context, models.TargetType, uint) (models.VoteTally, error)
}

func (s *voteRepoStub) WithTx(*gorm.DB) repository.VoteRepository { return s }
func (s *voteRepoStub) Upsert(ctx context.Context, vote *models.Vote) error {
	return s.upsertFn(ctx, vote)
}
func (s *voteRepoStub) Get(ctx context.Context, userID uint, targetType models.TargetType, targetID uint) (int8, error) {
	return s.getFn(ctx, userID, targetType, targetID)
}
func (s *voteRepoStub) Tally(ctx context.Context, targetType models.TargetType, targetID uint) (models.VoteTally, error) {
	return s.tallyFn(ctx, targetType, targetID)
}
func (s *voteRepoStub) TallyMany(context.Context, models.TargetType, []uint) (map[uint]models.VoteTally, error) {
	return nil, nil
}
func (s *voteRepoStub) ListByUser(context.Context, uint, int) ([]models.Vote, error) {
	return nil, nil
}
func (s *voteRepoStub) UpvotesReceived(context.Context, uint) (int64, error) { return 0, nil }
func (s *voteRepoStub) TargetsByUser(context.Context, uint) ([]models.VoteTarget, error) {
	return nil, nil
}
func (s *voteRepoStub) DeleteByUser(context.Context, uint) (int64, error) { return 0, nil }
func (s *voteRepoStub) DeleteByTarget(context.Context, models.TargetType, uint) (int64, error) {
	return 0, nil
}

type reportRepoStub struct {
	createFn     func(context.Context, *models.Report) error
	getByIDFn    func(context.Context, uint) (*models.Report, error)
	transitionFn func(context.Context, uint, models.ReportStatus, uint, time.Time) (bool, error)
}

func (s *reportRepoStub) WithTx(*gorm.DB) repository.ReportRepository { return s }
func (s *reportRepoStub) Create(ctx context.Context, report *models.Report) error {
	return s.createFn(ctx, report)
}
func (s *reportRepoStub) GetByID(ctx context.Context, id uint) (*models.Report, error) {
	return s.getByIDFn(ctx, id)
}
func (s *reportRepoStub) Transition(ctx context.Context, id uint, status models.ReportStatus, actorID uint, at time.Time) (bool, error) {
	return s.transitionFn(ctx, id, status, actorID, at)
}
func (s *reportRepoStub) List(context.Context, models.ReportFilter, int, int) ([]models.Report, error) {
	return nil, nil
}
func (s *reportRepoStub) ListPending(context.Context) ([]models.Report, error) { return nil, nil }
func (s *reportRepoStub) CountPending(context.Context) (int64, error)          { return 0, nil }
func (s *reportRepoStub) DeleteByReporter(context.Context, uint) (int64, error) {
	return 0, nil
}
func (s *reportRepoStub) DeleteByTarget(context.Context, models.TargetType, uint) (int64, error) {
	return 0, nil
}

// eventRecorder captures published events.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) Name() string { return "recorder" }
func (r *eventRecorder) Publish(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *eventRecorder) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

// inlineTx runs fn without a database, for stub-backed services.
func inlineTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
