package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/groupware-approval/internal/application/dispatcher"
	"github.com/garyjia/groupware-approval/internal/application/port"
	"github.com/garyjia/groupware-approval/internal/application/workflow"
	"github.com/garyjia/groupware-approval/internal/domain/entity"
	"github.com/garyjia/groupware-approval/internal/domain/event"
)

type mockDocRepo struct {
	createFunc       func(ctx context.Context, doc *entity.ApprovalDocument) error
	getByIDFunc      func(ctx context.Context, id int64) (*entity.ApprovalDocument, error)
	listFunc         func(ctx context.Context, drafter string, limit, offset int) ([]*entity.ApprovalDocument, error)
	updateDraftFunc  func(ctx context.Context, doc *entity.ApprovalDocument) error
	softDeleteFunc   func(ctx context.Context, id int64, expectedVersion int64) error
	softDeleteCalled bool
}

func (m *mockDocRepo) Create(ctx context.Context, doc *entity.ApprovalDocument) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, doc)
	}
	doc.ID = 1
	return nil
}

func (m *mockDocRepo) GetByID(ctx context.Context, id int64) (*entity.ApprovalDocument, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockDocRepo) GetByDocNumber(ctx context.Context, docNumber string) (*entity.ApprovalDocument, error) {
	return nil, nil
}

func (m *mockDocRepo) ListByDrafter(ctx context.Context, drafter string, limit, offset int) ([]*entity.ApprovalDocument, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, drafter, limit, offset)
	}
	return nil, nil
}

func (m *mockDocRepo) UpdateStatus(ctx context.Context, doc *entity.ApprovalDocument, expectedVersion int64) error {
	return nil
}

func (m *mockDocRepo) UpdateDraft(ctx context.Context, doc *entity.ApprovalDocument) error {
	if m.updateDraftFunc != nil {
		return m.updateDraftFunc(ctx, doc)
	}
	return nil
}

func (m *mockDocRepo) SoftDelete(ctx context.Context, id int64, expectedVersion int64) error {
	m.softDeleteCalled = true
	if m.softDeleteFunc != nil {
		return m.softDeleteFunc(ctx, id, expectedVersion)
	}
	return nil
}

type mockLineRepo struct {
	lines         []*entity.ApprovalLine
	created       []*entity.ApprovalLine
	deleted       bool
	delegateFunc  func(ctx context.Context, lineID int64, delegateTo string, until *time.Time) error
	delegatedLine int64
}

func (m *mockLineRepo) CreateBatch(ctx context.Context, lines []*entity.ApprovalLine) error {
	for i, l := range lines {
		l.ID = int64(i + 1)
	}
	m.created = lines
	return nil
}

func (m *mockLineRepo) GetByDocumentID(ctx context.Context, documentID int64) ([]*entity.ApprovalLine, error) {
	return m.lines, nil
}

func (m *mockLineRepo) DeleteByDocumentID(ctx context.Context, documentID int64) error {
	m.deleted = true
	return nil
}

func (m *mockLineRepo) Decide(ctx context.Context, lineID int64, status entity.LineStatus, comment, decidedBy string, decidedAt time.Time) error {
	return nil
}

func (m *mockLineRepo) SkipPending(ctx context.Context, documentID int64, at time.Time) (int64, error) {
	return 0, nil
}

func (m *mockLineRepo) Delegate(ctx context.Context, lineID int64, delegateTo string, until *time.Time) error {
	m.delegatedLine = lineID
	if m.delegateFunc != nil {
		return m.delegateFunc(ctx, lineID, delegateTo, until)
	}
	return nil
}

func (m *mockLineRepo) DocumentIDsAwaiting(ctx context.Context, userID string) ([]int64, error) {
	return nil, nil
}

type mockLeaveRequestRepo struct {
	created *entity.LeaveRequest
	leave   *entity.LeaveRequest
}

func (m *mockLeaveRequestRepo) Create(ctx context.Context, req *entity.LeaveRequest) error {
	m.created = req
	return nil
}

func (m *mockLeaveRequestRepo) GetByDocumentID(ctx context.Context, documentID int64) (*entity.LeaveRequest, error) {
	return m.leave, nil
}

func (m *mockLeaveRequestRepo) SetReservedHours(ctx context.Context, documentID int64, hours decimal.Decimal) error {
	return nil
}

type mockHistoryRepo struct {
	created []*entity.ApprovalHistory
	history []*entity.ApprovalHistory
}

func (m *mockHistoryRepo) Create(ctx context.Context, history *entity.ApprovalHistory) error {
	m.created = append(m.created, history)
	return nil
}

func (m *mockHistoryRepo) GetByDocumentID(ctx context.Context, documentID int64) ([]*entity.ApprovalHistory, error) {
	return m.history, nil
}

type mockEngine struct {
	submitFunc func(ctx context.Context, documentID int64) (*entity.ApprovalDocument, error)
}

func (m *mockEngine) Submit(ctx context.Context, documentID int64) (*entity.ApprovalDocument, error) {
	if m.submitFunc != nil {
		return m.submitFunc(ctx, documentID)
	}
	return &entity.ApprovalDocument{ID: documentID, Status: entity.DocumentStatusPending}, nil
}

func (m *mockEngine) Decide(ctx context.Context, cmd workflow.DecideCommand) (*entity.ApprovalDocument, error) {
	return nil, nil
}

func (m *mockEngine) Cancel(ctx context.Context, documentID int64, callerID string) (*entity.ApprovalDocument, error) {
	return nil, nil
}

func (m *mockEngine) CurrentPendingCount(ctx context.Context, userID string) (int, error) {
	return 0, nil
}

func (m *mockEngine) PendingFor(ctx context.Context, userID string) ([]*entity.ApprovalDocument, error) {
	return nil, nil
}

type mockNotifier struct {
	requests []port.NotificationRequest
	err      error
}

func (m *mockNotifier) Notify(ctx context.Context, req port.NotificationRequest) error {
	m.requests = append(m.requests, req)
	return m.err
}

type mockExporter struct {
	exportDocumentFunc func(doc *entity.ApprovalDocument, history []*entity.ApprovalHistory) ([]byte, error)
	exportReportFunc   func(year int, balances []*entity.AnnualLeave) ([]byte, error)
}

func (m *mockExporter) ExportDocument(doc *entity.ApprovalDocument, history []*entity.ApprovalHistory) ([]byte, error) {
	if m.exportDocumentFunc != nil {
		return m.exportDocumentFunc(doc, history)
	}
	return []byte("xlsx"), nil
}

func (m *mockExporter) ExportLeaveReport(year int, balances []*entity.AnnualLeave) ([]byte, error) {
	if m.exportReportFunc != nil {
		return m.exportReportFunc(year, balances)
	}
	return []byte("xlsx"), nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

type mockNotificationRepo struct {
	mu            sync.Mutex
	notifications map[int64]*entity.Notification
	nextID        int64
	createErr     error
	retryable     []*entity.Notification
	stuckBefore   time.Time
	sent          []int64
	failed        []int64
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{notifications: make(map[int64]*entity.Notification)}
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	n.ID = m.nextID
	cp := *n
	m.notifications[n.ID] = &cp
	return nil
}

func (m *mockNotificationRepo) GetByID(ctx context.Context, id int64) (*entity.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return nil, nil
	}
	cp := *n
	return &cp, nil
}

func (m *mockNotificationRepo) MarkSent(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, id)
	if n, ok := m.notifications[id]; ok {
		n.Status = entity.NotificationStatusSent
		n.Attempts++
	}
	return nil
}

func (m *mockNotificationRepo) MarkFailed(ctx context.Context, id int64, errorMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = append(m.failed, id)
	if n, ok := m.notifications[id]; ok {
		n.Status = entity.NotificationStatusFailed
		n.Attempts++
		n.ErrorMessage = errorMsg
	}
	return nil
}

func (m *mockNotificationRepo) ListRetryable(ctx context.Context, maxAttempts int, stuckBefore time.Time, limit int) ([]*entity.Notification, error) {
	m.stuckBefore = stuckBefore
	return m.retryable, nil
}

type mockSender struct {
	mu       sync.Mutex
	sendFunc func(ctx context.Context, n *entity.Notification) error
	sent     []*entity.Notification
}

func (m *mockSender) Send(ctx context.Context, n *entity.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
	if m.sendFunc != nil {
		return m.sendFunc(ctx, n)
	}
	return nil
}

// syncDispatcher runs async dispatches inline so tests can assert right away
type syncDispatcher struct {
	events  []*event.Event
	handler dispatcher.Handler
}

func (d *syncDispatcher) Subscribe(eventType event.Type, name string, handler dispatcher.Handler) {
	d.handler = handler
}

func (d *syncDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	d.events = append(d.events, evt)
	if d.handler != nil {
		return d.handler(ctx, evt)
	}
	return nil
}

func (d *syncDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	_ = d.Dispatch(ctx, evt)
}

func (d *syncDispatcher) ListHandlers(eventType event.Type) []dispatcher.HandlerInfo {
	return nil
}

func (d *syncDispatcher) Close() error {
	return nil
}

type mockLedger struct {
	grantFunc   func(ctx context.Context, grant port.LeaveGrant) (*entity.AnnualLeave, error)
	balanceFunc func(ctx context.Context, userID string, year int) (*entity.AnnualLeave, error)
}

func (m *mockLedger) Reserve(ctx context.Context, userID string, year int, hours decimal.Decimal, documentID int64) error {
	return nil
}

func (m *mockLedger) Release(ctx context.Context, userID string, year int, hours decimal.Decimal, documentID int64) error {
	return nil
}

func (m *mockLedger) Balance(ctx context.Context, userID string, year int) (*entity.AnnualLeave, error) {
	if m.balanceFunc != nil {
		return m.balanceFunc(ctx, userID, year)
	}
	return nil, nil
}

func (m *mockLedger) Grant(ctx context.Context, grant port.LeaveGrant) (*entity.AnnualLeave, error) {
	if m.grantFunc != nil {
		return m.grantFunc(ctx, grant)
	}
	return &entity.AnnualLeave{UserID: grant.UserID, Year: grant.Year, TotalHours: grant.TotalHours}, nil
}

type mockAnnualLeaveRepo struct {
	balances []*entity.AnnualLeave
}

func (m *mockAnnualLeaveRepo) Get(ctx context.Context, userID string, year int) (*entity.AnnualLeave, error) {
	return nil, nil
}

func (m *mockAnnualLeaveRepo) Upsert(ctx context.Context, leave *entity.AnnualLeave) error {
	return nil
}

func (m *mockAnnualLeaveRepo) UpdateUsed(ctx context.Context, id int64, expectedVersion int64, usedHours decimal.Decimal) error {
	return nil
}

func (m *mockAnnualLeaveRepo) ListByYear(ctx context.Context, year int) ([]*entity.AnnualLeave, error) {
	return m.balances, nil
}

type mockEntryRepo struct {
	entries []*entity.LedgerEntry
}

func (m *mockEntryRepo) Create(ctx context.Context, entry *entity.LedgerEntry) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockEntryRepo) ListByUserYear(ctx context.Context, userID string, year int) ([]*entity.LedgerEntry, error) {
	return m.entries, nil
}

func (m *mockEntryRepo) ListByDocumentID(ctx context.Context, documentID int64) ([]*entity.LedgerEntry, error) {
	return nil, nil
}
