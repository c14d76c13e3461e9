package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/xaenox/focusguard/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the key/value connection string understood by lib/pq.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dsnValue(c.Host), c.Port, dsnValue(c.User), dsnValue(c.Password), dsnValue(c.DBName), dsnValue(c.SSLMode))
}

var dsnEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// dsnValue quotes values that are empty or contain blanks, quotes or
// backslashes.
func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " \t\n'\\") {
		return v
	}
	return "'" + dsnEscaper.Replace(v) + "'"
}

type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStorage(ctx context.Context, config DatabaseConfig, logger *zap.Logger) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	storage := &PostgresStorage{db: db, logger: logger}

	// Initialize database schema
	if err := storage.initializeSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	logger.Info("Connected to PostgreSQL",
		zap.String("host", config.Host),
		zap.String("database", config.DBName))
	return storage, nil
}

func (s *PostgresStorage) initializeSchema(ctx context.Context) error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}
	return nil
}

func (s *PostgresStorage) GetOrCreateUser(ctx context.Context, username string) (*models.User, error) {
	query := `
		INSERT INTO users (id, username, created_at, last_active)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (username) DO UPDATE SET last_active = NOW()
		RETURNING id, username, custom_alert_url, created_at, last_active`

	user := &models.User{}
	err := s.db.QueryRowContext(ctx, query, uuid.New().String(), username).Scan(
		&user.ID,
		&user.Username,
		&user.CustomAlertURL,
		&user.CreatedAt,
		&user.LastActive,
	)
	if err != nil {
		return nil, fmt.Errorf("error upserting user: %w", err)
	}
	return user, nil
}

func (s *PostgresStorage) GetUser(ctx context.Context, username string) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, custom_alert_url, created_at, last_active FROM users WHERE username = $1`, username).Scan(
		&user.ID,
		&user.Username,
		&user.CustomAlertURL,
		&user.CreatedAt,
		&user.LastActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying user: %w", err)
	}
	return user, nil
}

func (s *PostgresStorage) SetCustomAlert(ctx context.Context, username, url string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET custom_alert_url = $1 WHERE username = $2`, url, username)
	if err != nil {
		return fmt.Errorf("error updating custom alert: %w", err)
	}
	return expectOneRow(result)
}

func (s *PostgresStorage) CustomAlertURL(ctx context.Context, username string) (string, error) {
	var url string
	err := s.db.QueryRowContext(ctx,
		`SELECT custom_alert_url FROM users WHERE username = $1`, username).Scan(&url)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("error querying custom alert: %w", err)
	}
	return url, nil
}

func (s *PostgresStorage) CreateSession(ctx context.Context, session *models.FocusSession) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	query := `
		INSERT INTO focus_sessions
			(id, username, task_description, keywords, duration_minutes, start_time, completed, distraction_count, productivity_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.db.ExecContext(ctx, query,
		session.ID,
		session.Username,
		session.TaskDescription,
		pq.Array(session.Keywords),
		session.DurationMinutes,
		session.StartTime,
		session.Completed,
		session.DistractionCount,
		session.ProductivityScore,
	)
	if err != nil {
		return fmt.Errorf("error creating session: %w", err)
	}
	return nil
}

const sessionColumns = `id, username, task_description, keywords, duration_minutes, start_time, end_time,
		       completed, distraction_count, productivity_score`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*models.FocusSession, error) {
	session := &models.FocusSession{}
	var endTime sql.NullTime
	err := row.Scan(
		&session.ID,
		&session.Username,
		&session.TaskDescription,
		pq.Array(&session.Keywords),
		&session.DurationMinutes,
		&session.StartTime,
		&endTime,
		&session.Completed,
		&session.DistractionCount,
		&session.ProductivityScore,
	)
	if err != nil {
		return nil, err
	}
	if endTime.Valid {
		session.EndTime = &endTime.Time
	}
	return session, nil
}

func (s *PostgresStorage) GetSession(ctx context.Context, id string) (*models.FocusSession, error) {
	query := `SELECT ` + sessionColumns + `
		FROM focus_sessions
		WHERE id = $1`

	session, err := scanSession(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying session: %w", err)
	}
	return session, nil
}

func (s *PostgresStorage) ListSessions(ctx context.Context, username string, limit int) ([]*models.FocusSession, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + sessionColumns + `
		FROM focus_sessions
		WHERE username = $1
		ORDER BY start_time DESC
		LIMIT $2`

	return s.querySessions(ctx, query, username, limit)
}

func (s *PostgresStorage) SessionsBetween(ctx context.Context, username string, from, to time.Time) ([]*models.FocusSession, error) {
	query := `SELECT ` + sessionColumns + `
		FROM focus_sessions
		WHERE username = $1 AND start_time >= $2 AND start_time < $3
		ORDER BY start_time`

	return s.querySessions(ctx, query, username, from, to)
}

func (s *PostgresStorage) querySessions(ctx context.Context, query string, args ...interface{}) ([]*models.FocusSession, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.FocusSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (s *PostgresStorage) UpdateSession(ctx context.Context, id string, update models.SessionUpdate) (*models.FocusSession, error) {
	query := `
		UPDATE focus_sessions SET
			completed = COALESCE($2, completed),
			distraction_count = COALESCE($3, distraction_count),
			productivity_score = COALESCE($4, productivity_score),
			end_time = COALESCE($5, end_time)
		WHERE id = $1
		RETURNING ` + sessionColumns

	session, err := scanSession(s.db.QueryRowContext(ctx, query,
		id,
		update.Completed,
		update.DistractionCount,
		update.ProductivityScore,
		update.EndTime,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error updating session: %w", err)
	}
	return session, nil
}

func (s *PostgresStorage) CompleteSession(ctx context.Context, id string, endedAt time.Time, productivityScore float64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE focus_sessions SET completed = TRUE, end_time = $1, productivity_score = $2 WHERE id = $3`,
		endedAt, productivityScore, id)
	if err != nil {
		return fmt.Errorf("error completing session: %w", err)
	}
	return expectOneRow(result)
}

func (s *PostgresStorage) IncrementDistractions(ctx context.Context, sessionID string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE focus_sessions SET distraction_count = distraction_count + 1 WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("error incrementing distractions: %w", err)
	}
	return expectOneRow(result)
}

func (s *PostgresStorage) SaveActivity(ctx context.Context, activity *models.ActivityLog) error {
	if activity.ID == "" {
		activity.ID = uuid.New().String()
	}
	query := `
		INSERT INTO activity_logs
			(id, username, session_id, window_title, category, confidence, is_distraction, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, query,
		activity.ID,
		activity.Username,
		activity.SessionID,
		activity.WindowTitle,
		string(activity.Category),
		activity.Confidence,
		activity.IsDistraction,
		activity.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("error saving activity: %w", err)
	}
	return nil
}

func (s *PostgresStorage) ActivityCounts(ctx context.Context, username string, from, to time.Time) (map[models.Category]int, error) {
	query := `
		SELECT category, COUNT(*)
		FROM activity_logs
		WHERE username = $1 AND timestamp >= $2 AND timestamp <= $3
		GROUP BY category`

	rows, err := s.db.QueryContext(ctx, query, username, from, to)
	if err != nil {
		return nil, fmt.Errorf("error querying activity counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Category]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("error scanning activity count: %w", err)
		}
		counts[models.Category(category)] = count
	}
	return counts, rows.Err()
}

func (s *PostgresStorage) SaveNotification(ctx context.Context, n *models.NotificationEvent) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	query := `
		INSERT INTO notifications
			(id, username, session_id, message, category, tier, sound_type, custom_audio_url,
			 created_at, window_title, distraction_count, repeated_count, repeated, read)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := s.db.ExecContext(ctx, query,
		n.ID,
		n.Username,
		n.SessionID,
		n.Message,
		n.Category,
		string(n.Tier),
		string(n.SoundType),
		n.CustomAudioURL,
		n.CreatedAt,
		n.WindowTitle,
		n.DistractionCount,
		n.RepeatedCount,
		n.Repeated,
		n.Read,
	)
	if err != nil {
		return fmt.Errorf("error saving notification: %w", err)
	}
	return nil
}

func (s *PostgresStorage) ListNotifications(ctx context.Context, username string, limit int) ([]*models.NotificationEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, username, session_id, message, category, tier, sound_type, custom_audio_url,
		       created_at, window_title, distraction_count, repeated_count, repeated, read
		FROM notifications
		WHERE username = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, username, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*models.NotificationEvent
	for rows.Next() {
		n := &models.NotificationEvent{}
		var tier, sound string
		err := rows.Scan(
			&n.ID,
			&n.Username,
			&n.SessionID,
			&n.Message,
			&n.Category,
			&tier,
			&sound,
			&n.CustomAudioURL,
			&n.CreatedAt,
			&n.WindowTitle,
			&n.DistractionCount,
			&n.RepeatedCount,
			&n.Repeated,
			&n.Read,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning notification: %w", err)
		}
		n.Tier = models.AlertTier(tier)
		n.SoundType = models.SoundType(sound)
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (s *PostgresStorage) MarkNotificationRead(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error marking notification read: %w", err)
	}
	return expectOneRow(result)
}

const planColumns = `id, username, date, plan_text, tasks, reminders, completed, created_at, updated_at`

func scanPlan(row rowScanner) (*models.DailyPlan, error) {
	plan := &models.DailyPlan{}
	var tasks, reminders []byte
	err := row.Scan(
		&plan.ID,
		&plan.Username,
		&plan.Date,
		&plan.PlanText,
		&tasks,
		&reminders,
		&plan.Completed,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tasks, &plan.Tasks); err != nil {
		return nil, fmt.Errorf("error decoding plan tasks: %w", err)
	}
	if err := json.Unmarshal(reminders, &plan.Reminders); err != nil {
		return nil, fmt.Errorf("error decoding plan reminders: %w", err)
	}
	return plan, nil
}

func (s *PostgresStorage) SavePlan(ctx context.Context, plan *models.DailyPlan) error {
	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}
	if plan.UpdatedAt.IsZero() {
		plan.UpdatedAt = plan.CreatedAt
	}
	tasks, err := json.Marshal(nonNilTasks(plan.Tasks))
	if err != nil {
		return fmt.Errorf("error encoding plan tasks: %w", err)
	}
	reminders, err := json.Marshal(nonNilReminders(plan.Reminders))
	if err != nil {
		return fmt.Errorf("error encoding plan reminders: %w", err)
	}

	query := `
		INSERT INTO daily_plans (` + planColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (username, date) DO UPDATE SET
			plan_text = EXCLUDED.plan_text,
			tasks = EXCLUDED.tasks,
			reminders = EXCLUDED.reminders,
			completed = EXCLUDED.completed,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`

	err = s.db.QueryRowContext(ctx, query,
		plan.ID,
		plan.Username,
		plan.Date,
		plan.PlanText,
		string(tasks),
		string(reminders),
		plan.Completed,
		plan.CreatedAt,
		plan.UpdatedAt,
	).Scan(&plan.ID, &plan.CreatedAt)
	if err != nil {
		return fmt.Errorf("error saving plan: %w", err)
	}
	return nil
}

func (s *PostgresStorage) GetPlan(ctx context.Context, username, date string) (*models.DailyPlan, error) {
	query := `SELECT ` + planColumns + ` FROM daily_plans WHERE username = $1 AND date = $2`
	plan, err := scanPlan(s.db.QueryRowContext(ctx, query, username, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying plan: %w", err)
	}
	return plan, nil
}

func (s *PostgresStorage) GetPlanByID(ctx context.Context, id string) (*models.DailyPlan, error) {
	query := `SELECT ` + planColumns + ` FROM daily_plans WHERE id = $1`
	plan, err := scanPlan(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying plan: %w", err)
	}
	return plan, nil
}

func (s *PostgresStorage) ListPlans(ctx context.Context, username string, limit int) ([]*models.DailyPlan, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + planColumns + ` FROM daily_plans WHERE username = $1 ORDER BY date DESC LIMIT $2`
	return s.queryPlans(ctx, query, username, limit)
}

func (s *PostgresStorage) PlansForDate(ctx context.Context, date string) ([]*models.DailyPlan, error) {
	query := `SELECT ` + planColumns + ` FROM daily_plans WHERE date = $1 ORDER BY username`
	return s.queryPlans(ctx, query, date)
}

func (s *PostgresStorage) queryPlans(ctx context.Context, query string, args ...interface{}) ([]*models.DailyPlan, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying plans: %w", err)
	}
	defer rows.Close()

	var plans []*models.DailyPlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning plan: %w", err)
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

func nonNilTasks(tasks []models.TaskItem) []models.TaskItem {
	if tasks == nil {
		return []models.TaskItem{}
	}
	return tasks
}

func nonNilReminders(reminders []models.ReminderItem) []models.ReminderItem {
	if reminders == nil {
		return []models.ReminderItem{}
	}
	return reminders
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

func expectOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
