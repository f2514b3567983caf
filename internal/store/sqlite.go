package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"summitpass/internal/models"
)

const timeFormat = time.RFC3339Nano

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	company TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	ticket_numbers TEXT NOT NULL,
	checked_in INTEGER NOT NULL DEFAULT 0,
	registration_date TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	visited_stands TEXT NOT NULL DEFAULT '[]'
);
CREATE TABLE IF NOT EXISTS sponsors (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	logo_base64 TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS global_state (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	app_state TEXT NOT NULL,
	lottery_active INTEGER NOT NULL,
	lottery_draw INTEGER NOT NULL,
	lottery_winner INTEGER NOT NULL,
	lottery_is_spinning INTEGER NOT NULL,
	lottery_results TEXT NOT NULL,
	admin_password TEXT NOT NULL,
	event_image_base64 TEXT NOT NULL DEFAULT ''
);
`

// SQLiteStore is the production Store, backed by a single SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	feed *Feed
}

// OpenSQLite opens (creating if needed) the database at path, applies the
// schema and seeds the singleton global row with the given admin password.
func OpenSQLite(path, adminPassword string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("database path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &SQLiteStore{db: db, feed: NewFeed()}
	if err := s.seedGlobal(adminPassword); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed global state: %w", err)
	}
	return s, nil
}

// seedGlobal inserts the global row if it does not exist yet. An existing
// row, including its password, is left untouched.
func (s *SQLiteStore) seedGlobal(adminPassword string) error {
	def := DefaultGlobalState(adminPassword)
	results, err := json.Marshal(def.Lottery.Results)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT OR IGNORE INTO global_state
		(id, app_state, lottery_active, lottery_draw, lottery_winner, lottery_is_spinning, lottery_results, admin_password, event_image_base64)
		VALUES (1, ?, 0, 0, 0, 0, ?, ?, '')`,
		string(def.AppState), string(results), def.AdminPassword)
	return err
}

func (s *SQLiteStore) Feed() *Feed { return s.feed }

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) SnapshotUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, email, company, phone,
		ticket_numbers, checked_in, registration_date, status, visited_stands
		FROM users ORDER BY registration_date`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(r rowScanner) (models.User, error) {
	var (
		u         models.User
		tickets   string
		stands    string
		checkedIn int
		regDate   string
		status    string
	)
	if err := r.Scan(&u.ID, &u.Name, &u.Email, &u.Company, &u.Phone,
		&tickets, &checkedIn, &regDate, &status, &stands); err != nil {
		return models.User{}, fmt.Errorf("scan user: %w", err)
	}
	if err := json.Unmarshal([]byte(tickets), &u.TicketNumbers); err != nil {
		return models.User{}, fmt.Errorf("decode ticket_numbers: %w", err)
	}
	if err := json.Unmarshal([]byte(stands), &u.VisitedStands); err != nil {
		return models.User{}, fmt.Errorf("decode visited_stands: %w", err)
	}
	ts, err := time.Parse(timeFormat, regDate)
	if err != nil {
		return models.User{}, fmt.Errorf("decode registration_date: %w", err)
	}
	u.CheckedIn = checkedIn != 0
	u.RegistrationDate = ts
	u.Status = models.UserStatus(status)
	return u, nil
}

func (s *SQLiteStore) SnapshotSponsors(ctx context.Context) ([]models.Sponsor, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, logo_base64 FROM sponsors`)
	if err != nil {
		return nil, fmt.Errorf("query sponsors: %w", err)
	}
	defer rows.Close()

	var sponsors []models.Sponsor
	for rows.Next() {
		var sp models.Sponsor
		if err := rows.Scan(&sp.ID, &sp.Name, &sp.LogoBase64); err != nil {
			return nil, fmt.Errorf("scan sponsor: %w", err)
		}
		sponsors = append(sponsors, sp)
	}
	return sponsors, rows.Err()
}

func (s *SQLiteStore) SnapshotGlobalState(ctx context.Context) (models.GlobalState, error) {
	var (
		g        models.GlobalState
		appState string
		active   int
		spinning int
		results  string
	)
	row := s.db.QueryRowContext(ctx, `SELECT app_state, lottery_active, lottery_draw,
		lottery_winner, lottery_is_spinning, lottery_results, admin_password, event_image_base64
		FROM global_state WHERE id = 1`)
	err := row.Scan(&appState, &active, &g.Lottery.CurrentDraw, &g.Lottery.Winner,
		&spinning, &results, &g.AdminPassword, &g.EventImageBase64)
	if err != nil {
		return models.GlobalState{}, fmt.Errorf("query global state: %w", err)
	}
	g.AppState = models.AppState(appState)
	g.Lottery.Active = active != 0
	g.Lottery.IsSpinning = spinning != 0
	g.Lottery.Results = map[int]int{}
	var raw map[string]int
	if err := json.Unmarshal([]byte(results), &raw); err != nil {
		return models.GlobalState{}, fmt.Errorf("decode lottery_results: %w", err)
	}
	for k, v := range raw {
		slot, err := strconv.Atoi(k)
		if err != nil {
			return models.GlobalState{}, fmt.Errorf("decode lottery_results slot %q: %w", k, err)
		}
		g.Lottery.Results[slot] = v
	}
	return g, nil
}

func (s *SQLiteStore) InsertUser(ctx context.Context, u models.User) error {
	tickets, err := json.Marshal(u.TicketNumbers)
	if err != nil {
		return err
	}
	stands := u.VisitedStands
	if stands == nil {
		stands = []string{}
	}
	standsJSON, err := json.Marshal(stands)
	if err != nil {
		return err
	}
	checkedIn := 0
	if u.CheckedIn {
		checkedIn = 1
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO users
		(id, name, email, company, phone, ticket_numbers, checked_in, registration_date, status, visited_stands)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.Company, u.Phone, string(tickets), checkedIn,
		u.RegistrationDate.UTC().Format(timeFormat), string(u.Status), string(standsJSON))
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	row := u
	s.feed.Publish(Event{Kind: KindUsers, Op: OpInsert, User: &row})
	return nil
}

func (s *SQLiteStore) SetUserStatus(ctx context.Context, id string, status models.UserStatus) error {
	return s.updateUser(ctx, id, `UPDATE users SET status = ? WHERE id = ?`, string(status), id)
}

func (s *SQLiteStore) CheckInUser(ctx context.Context, id string) error {
	return s.updateUser(ctx, id,
		`UPDATE users SET checked_in = 1, status = ? WHERE id = ?`,
		string(models.StatusApproved), id)
}

func (s *SQLiteStore) SetVisitedStands(ctx context.Context, id string, stands []string) error {
	standsJSON, err := json.Marshal(stands)
	if err != nil {
		return err
	}
	return s.updateUser(ctx, id, `UPDATE users SET visited_stands = ? WHERE id = ?`, string(standsJSON), id)
}

// updateUser runs a targeted update and, if a row changed, re-reads it so
// the published event carries the full authoritative payload.
func (s *SQLiteStore) updateUser(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}

	row := s.db.QueryRowContext(ctx, `SELECT id, name, email, company, phone,
		ticket_numbers, checked_in, registration_date, status, visited_stands
		FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return err
	}
	s.feed.Publish(Event{Kind: KindUsers, Op: OpUpdate, User: &u})
	return nil
}

func (s *SQLiteStore) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.feed.Publish(Event{Kind: KindUsers, Op: OpDelete, ID: id})
	}
	return nil
}

func (s *SQLiteStore) InsertSponsor(ctx context.Context, sp models.Sponsor) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO sponsors (id, name, logo_base64) VALUES (?, ?, ?)`,
		sp.ID, sp.Name, sp.LogoBase64)
	if err != nil {
		return fmt.Errorf("insert sponsor: %w", err)
	}
	row := sp
	s.feed.Publish(Event{Kind: KindSponsors, Op: OpInsert, Sponsor: &row})
	return nil
}

func (s *SQLiteStore) DeleteSponsor(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sponsors WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete sponsor: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.feed.Publish(Event{Kind: KindSponsors, Op: OpDelete, ID: id})
	}
	return nil
}

func (s *SQLiteStore) SetAppState(ctx context.Context, state models.AppState) error {
	return s.updateGlobal(ctx, `UPDATE global_state SET app_state = ? WHERE id = 1`, string(state))
}

func (s *SQLiteStore) SetAdminPassword(ctx context.Context, password string) error {
	return s.updateGlobal(ctx, `UPDATE global_state SET admin_password = ? WHERE id = 1`, password)
}

func (s *SQLiteStore) SetEventImage(ctx context.Context, imageBase64 string) error {
	return s.updateGlobal(ctx, `UPDATE global_state SET event_image_base64 = ? WHERE id = 1`, imageBase64)
}

func (s *SQLiteStore) UpdateLottery(ctx context.Context, lot models.LotteryState) error {
	raw := make(map[string]int, len(lot.Results))
	for slot, ticket := range lot.Results {
		raw[strconv.Itoa(slot)] = ticket
	}
	results, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	active, spinning := 0, 0
	if lot.Active {
		active = 1
	}
	if lot.IsSpinning {
		spinning = 1
	}
	return s.updateGlobal(ctx, `UPDATE global_state SET lottery_active = ?, lottery_draw = ?,
		lottery_winner = ?, lottery_is_spinning = ?, lottery_results = ? WHERE id = 1`,
		active, lot.CurrentDraw, lot.Winner, spinning, string(results))
}

// updateGlobal writes the singleton row and publishes the full new row.
func (s *SQLiteStore) updateGlobal(ctx context.Context, query string, args ...any) error {
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update global state: %w", err)
	}
	g, err := s.SnapshotGlobalState(ctx)
	if err != nil {
		return err
	}
	s.feed.Publish(Event{Kind: KindGlobal, Op: OpUpdate, Global: &g})
	return nil
}
