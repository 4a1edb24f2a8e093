package postgres

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatekeeper-project/gatekeeper/audit"
)

func TestPostgresProvider_RecordAudit_FirstRow(t *testing.T) {
	p, mock, cleanup := newMockProvider(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT event_hash FROM gatekeeper_audit_log ORDER BY id DESC LIMIT 1")).
		WillReturnRows(sqlmock.NewRows([]string{"event_hash"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO gatekeeper_audit_log")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := p.RecordAudit(context.Background(), audit.Event{
		EventType:     audit.EventSessionCreated,
		SessionID:     "ses_abc",
		Username:      "gk_abc",
		CorrelationID: "corr-1",
		EventData:     map[string]any{"role_pack": "read"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresProvider_RecordAudit_ChainsOntoPreviousHash(t *testing.T) {
	p, mock, cleanup := newMockProvider(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT event_hash FROM gatekeeper_audit_log ORDER BY id DESC LIMIT 1")).
		WillReturnRows(sqlmock.NewRows([]string{"event_hash"}).AddRow("deadbeef"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO gatekeeper_audit_log")).
		WithArgs(sqlmock.AnyArg(), string(audit.EventSessionRevoked), "ses_abc", "gk_abc", "corr-2", sqlmock.AnyArg(), "deadbeef", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := p.RecordAudit(context.Background(), audit.Event{
		EventType:     audit.EventSessionRevoked,
		SessionID:     "ses_abc",
		Username:      "gk_abc",
		CorrelationID: "corr-2",
		EventData:     map[string]any{},
	})
	require.NoError(t, err)
}

func TestPostgresProvider_FindUsernameForSession_Found(t *testing.T) {
	p, mock, cleanup := newMockProvider(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT username FROM gatekeeper_audit_log")).
		WithArgs("ses_abc", string(audit.EventSessionCreated)).
		WillReturnRows(sqlmock.NewRows([]string{"username"}).AddRow("gk_abc"))

	username, found, err := p.FindUsernameForSession(context.Background(), "ses_abc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "gk_abc", username)
}

func TestPostgresProvider_FindUsernameForSession_NotFound(t *testing.T) {
	p, mock, cleanup := newMockProvider(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT username FROM gatekeeper_audit_log")).
		WithArgs("ses_missing", string(audit.EventSessionCreated)).
		WillReturnRows(sqlmock.NewRows([]string{"username"}))

	_, found, err := p.FindUsernameForSession(context.Background(), "ses_missing")
	require.NoError(t, err)
	assert.False(t, found)
}
