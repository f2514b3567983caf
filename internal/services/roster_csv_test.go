package services

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"summitpass/internal/models"
)

func TestImportRoster_HeaderInsensitiveColumns(t *testing.T) {
	env := newTestEnv(t)

	roster := strings.Join([]string{
		"EMAIL, nome completo ,Telefone,empresa",
		"ana@example.com,Ana Silva,912345678,Acme",
	}, "\n")

	count, err := env.events.ImportRoster(env.ctx, strings.NewReader(roster))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	users, err := env.store.SnapshotUsers(env.ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Ana Silva", users[0].Name)
	assert.Equal(t, "ana@example.com", users[0].Email)
	assert.Equal(t, "912345678", users[0].Phone)
	assert.Equal(t, "Acme", users[0].Company)
}

func TestImportRoster_SkipsRowsMissingNameOrEmail(t *testing.T) {
	env := newTestEnv(t)

	roster := strings.Join([]string{
		"Nome Completo,Email",
		",ana@example.com",
		"Bruno Costa,",
		"Carla Dias,carla@example.com",
	}, "\n")

	count, err := env.events.ImportRoster(env.ctx, strings.NewReader(roster))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestImportRoster_SkipsEmailsAlreadyInCache(t *testing.T) {
	env := newTestEnv(t)
	env.insertUser(t, "u-1", "Ana", "ana@example.com", []int{5, 10, 15})
	env.reload(t)

	roster := strings.Join([]string{
		"Nome Completo,Email",
		"Ana Outra,ana@example.com",
		"Bruno Costa,bruno@example.com",
	}, "\n")

	count, err := env.events.ImportRoster(env.ctx, strings.NewReader(roster))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestImportRoster_SnapshotCheckedOncePerBatch(t *testing.T) {
	env := newTestEnv(t)

	// Two rows sharing a new email both insert: the existing-email set is
	// snapshotted at the start of the batch, not re-checked per row.
	roster := strings.Join([]string{
		"Nome Completo,Email",
		"Ana Silva,ana@example.com",
		"Ana Duplicada,ana@example.com",
	}, "\n")

	count, err := env.events.ImportRoster(env.ctx, strings.NewReader(roster))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	users, err := env.store.SnapshotUsers(env.ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestImportRoster_EmptyFile(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.events.ImportRoster(env.ctx, strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyRoster)

	_, err = env.events.ImportRoster(env.ctx, strings.NewReader("Nome Completo,Email\n"))
	assert.ErrorIs(t, err, ErrEmptyRoster)
}

func TestExportRoster_Golden(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.store.InsertUser(env.ctx, models.User{
		ID:               "u-001",
		Name:             "Ana Silva",
		Email:            "ana@example.com",
		Company:          "Acme",
		Phone:            "912345678",
		TicketNumbers:    []int{5, 10, 15},
		CheckedIn:        true,
		RegistrationDate: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		Status:           models.StatusApproved,
		VisitedStands:    []string{"STAND1", "STAND2"},
	}))
	require.NoError(t, env.store.InsertUser(env.ctx, models.User{
		ID:               "u-002",
		Name:             "Bruno Costa",
		Email:            "bruno@example.com",
		Company:          "Globex",
		Phone:            "934567890",
		TicketNumbers:    []int{20, 25, 30},
		RegistrationDate: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Status:           models.StatusPending,
		VisitedStands:    []string{},
	}))
	env.reload(t)

	var buf bytes.Buffer
	require.NoError(t, env.events.ExportRoster(&buf))

	g := goldie.New(t)
	g.Assert(t, "roster_export", buf.Bytes())
}
