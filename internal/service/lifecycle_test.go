package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testTenantID  = "11111111-1111-4111-8111-111111111111"
	testProjectID = "22222222-2222-4222-8222-222222222222"
	testDocID     = "33333333-3333-4333-8333-333333333333"
	testUserID    = "user-1"
)

func claimedDoc() *domain.Document {
	return &domain.Document{
		ID:           testDocID,
		TenantID:     testTenantID,
		ProjectID:    testProjectID,
		UploadedName: "report.pdf",
		Status:       domain.DocumentStatusQueuedParsing,
		ClaimToken:   "claim-1",
		Attempts:     1,
	}
}

func newLifecycle() (*LifecycleManager, *MockDocumentRepository, *MockDocumentRepository, *MockVectorTextRepository, *testTxRunner) {
	docs := new(MockDocumentRepository)
	txDocs := new(MockDocumentRepository)
	txTexts := new(MockVectorTextRepository)
	runner := &testTxRunner{repos: &testTxRepos{documents: txDocs, vectorTexts: txTexts}}
	return NewLifecycleManager(docs, runner, 0), docs, txDocs, txTexts, runner
}

func TestLifecycleManager_Advance_RejectsInvalidTransition(t *testing.T) {
	m, docs, _, _, _ := newLifecycle()

	ok, err := m.Advance(context.Background(), testTenantID, domain.Transition{
		DocumentID: testDocID,
		From:       domain.DocumentStatusReady,
		To:         domain.DocumentStatusPending,
	})

	assert.False(t, ok)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
	docs.AssertNotCalled(t, "Advance", mock.Anything, mock.Anything, mock.Anything)
}

func TestLifecycleManager_Advance_LostRace(t *testing.T) {
	m, docs, _, _, _ := newLifecycle()
	tr := domain.Transition{
		DocumentID: testDocID,
		From:       domain.DocumentStatusPending,
		To:         domain.DocumentStatusQueuedParsing,
	}
	docs.On("Advance", mock.Anything, testTenantID, tr).Return(false, nil)

	ok, err := m.Advance(context.Background(), testTenantID, tr)

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLifecycleManager_PersistParsed_Success(t *testing.T) {
	m, _, txDocs, txTexts, runner := newLifecycle()
	doc := claimedDoc()
	parsed := &domain.ParsedDocument{
		Text:     "hello world",
		Metadata: map[string]any{domain.MetaDocumentID: testDocID, domain.MetaTitle: "Quarterly"},
	}

	txDocs.On("Advance", mock.Anything, testTenantID, mock.MatchedBy(func(tr domain.Transition) bool {
		return tr.From == domain.DocumentStatusQueuedParsing &&
			tr.To == domain.DocumentStatusQueuedEmbedding &&
			tr.ClaimToken == "claim-1" &&
			tr.ParsedText != nil && *tr.ParsedText == "hello world"
	})).Return(true, nil)
	txTexts.On("Insert", mock.Anything, testTenantID, mock.MatchedBy(func(vt *domain.VectorText) bool {
		return vt.DocumentID == testDocID && vt.Title == "Quarterly" && vt.Text == "hello world"
	})).Return(true, nil)

	ok, err := m.PersistParsed(context.Background(), doc, parsed)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, runner.called)
	txDocs.AssertExpectations(t)
	txTexts.AssertExpectations(t)
}

func TestLifecycleManager_PersistParsed_ClaimLost(t *testing.T) {
	m, _, txDocs, txTexts, _ := newLifecycle()
	parsed := &domain.ParsedDocument{Text: "x", Metadata: map[string]any{domain.MetaDocumentID: testDocID}}
	txDocs.On("Advance", mock.Anything, testTenantID, mock.Anything).Return(false, nil)

	ok, err := m.PersistParsed(context.Background(), claimedDoc(), parsed)

	require.NoError(t, err)
	assert.False(t, ok)
	txTexts.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything)
}

func TestLifecycleManager_PersistParsed_CorrelationMismatch(t *testing.T) {
	m, _, _, _, runner := newLifecycle()
	parsed := &domain.ParsedDocument{Text: "x", Metadata: map[string]any{domain.MetaDocumentID: "someone-else"}}

	ok, err := m.PersistParsed(context.Background(), claimedDoc(), parsed)

	assert.False(t, ok)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCorrelationMismatch))
	assert.True(t, IsIntegrityError(err))
	assert.Zero(t, runner.called)
}

func TestLifecycleManager_PersistParsed_EmptyText(t *testing.T) {
	m, _, _, _, runner := newLifecycle()
	parsed := &domain.ParsedDocument{Text: "  \n ", Metadata: map[string]any{domain.MetaDocumentID: testDocID}}

	_, err := m.PersistParsed(context.Background(), claimedDoc(), parsed)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEmptyDocument))
	assert.Zero(t, runner.called)
}

func TestLifecycleManager_PersistParsed_InsertFailurePropagates(t *testing.T) {
	m, _, txDocs, txTexts, _ := newLifecycle()
	parsed := &domain.ParsedDocument{Text: "x", Metadata: map[string]any{domain.MetaDocumentID: testDocID}}
	txDocs.On("Advance", mock.Anything, testTenantID, mock.Anything).Return(true, nil)
	txTexts.On("Insert", mock.Anything, testTenantID, mock.Anything).Return(false, errors.New("disk full"))

	ok, err := m.PersistParsed(context.Background(), claimedDoc(), parsed)

	assert.False(t, ok)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestLifecycleManager_ResetOnFailure(t *testing.T) {
	m, docs, _, _, _ := newLifecycle()
	docs.On("ResetOnFailure", mock.Anything, testTenantID, testDocID, "claim-1", "parser timeout", DefaultMaxAttempts).
		Return(domain.DocumentStatusPending, true, nil)

	status, err := m.ResetOnFailure(context.Background(), claimedDoc(), errors.New("parser timeout"))

	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusPending, status)
}

func TestLifecycleManager_ResetOnFailure_TruncatesMessage(t *testing.T) {
	m, docs, _, _, _ := newLifecycle()
	long := strings.Repeat("e", maxErrorLength+50)
	docs.On("ResetOnFailure", mock.Anything, testTenantID, testDocID, "claim-1", long[:maxErrorLength], DefaultMaxAttempts).
		Return(domain.DocumentStatusFailed, true, nil)

	status, err := m.ResetOnFailure(context.Background(), claimedDoc(), errors.New(long))

	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusFailed, status)
}

func TestLifecycleManager_ResetOnFailure_KeepsMultibyteMessageValid(t *testing.T) {
	m, docs, _, _, _ := newLifecycle()
	var recorded string
	docs.On("ResetOnFailure", mock.Anything, testTenantID, testDocID, "claim-1", mock.Anything, DefaultMaxAttempts).
		Run(func(args mock.Arguments) { recorded = args.String(4) }).
		Return(domain.DocumentStatusPending, true, nil)

	_, err := m.ResetOnFailure(context.Background(), claimedDoc(), errors.New("x"+strings.Repeat("é", maxErrorLength)))

	require.NoError(t, err)
	assert.True(t, utf8.ValidString(recorded))
	assert.LessOrEqual(t, len(recorded), maxErrorLength)
	assert.Equal(t, "x"+strings.Repeat("é", (maxErrorLength-2)/2), recorded)
}

func TestTruncateError(t *testing.T) {
	tests := []struct {
		name  string
		msg   string
		limit int
		want  string
	}{
		{"short", "parse failed", 20, "parse failed"},
		{"ascii cut", "abcdef", 4, "abcd"},
		{"backs off mid rune", "aé", 2, "a"},
		{"three byte rune", "日本", 5, "日"},
		{"invalid input replaced", "bad\xffbyte", 20, "bad\uFFFDbyte"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateError(tt.msg, tt.limit)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestLifecycleManager_ResetOnFailure_ClaimMovedOn(t *testing.T) {
	m, docs, _, _, _ := newLifecycle()
	docs.On("ResetOnFailure", mock.Anything, testTenantID, testDocID, "claim-1", mock.Anything, DefaultMaxAttempts).
		Return(domain.DocumentStatus(""), false, nil)

	status, err := m.ResetOnFailure(context.Background(), claimedDoc(), errors.New("boom"))

	require.NoError(t, err)
	assert.Empty(t, status)
}

func TestLifecycleManager_Retry_NotFailed(t *testing.T) {
	m, docs, _, _, _ := newLifecycle()
	docs.On("Retry", mock.Anything, testTenantID, testDocID).Return(false, nil)
	docs.On("GetByID", mock.Anything, testTenantID, testDocID).
		Return(&domain.Document{ID: testDocID, Status: domain.DocumentStatusReady}, nil)

	err := m.Retry(context.Background(), testTenantID, testDocID)

	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.ErrCodeInvalidOperation))
}

func TestLifecycleManager_MarkReady(t *testing.T) {
	m, docs, _, _, _ := newLifecycle()
	docs.On("Advance", mock.Anything, testTenantID, domain.Transition{
		DocumentID: testDocID,
		From:       domain.DocumentStatusQueuedEmbedding,
		To:         domain.DocumentStatusReady,
	}).Return(true, nil)

	ok, err := m.MarkReady(context.Background(), testTenantID, testDocID)

	require.NoError(t, err)
	assert.True(t, ok)
}
