package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"clinic-assistant/pkg"
)

// ErrNotFound is returned when a patient identifier is unknown.
var ErrNotFound = errors.New("patient not found")

// Repository wraps database operations for patients and chat turns. It works
// against both the sqlite and postgres backends; queries are written with `?`
// placeholders and rebound for postgres.
type Repository struct {
	DB     *sql.DB
	driver string
}

// NewRepository constructs a Repository from an existing sql.DB. The caller
// is responsible for managing the connection lifecycle.
func NewRepository(db *sql.DB, driver string) *Repository {
	return &Repository{DB: db, driver: driver}
}

// bind rewrites `?` placeholders to `$N` when talking to postgres, which is
// the only dialect difference the queries have.
func (r *Repository) bind(query string) string {
	if r.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

// CreatePatient inserts a new patient row and returns it with the assigned
// identifier. Optional fields are stored as NULL when nil.
func (r *Repository) CreatePatient(ctx context.Context, name string, age *int, gender, phone *string) (*pkg.Patient, error) {
	p := pkg.Patient{
		Name:      name,
		Age:       age,
		Gender:    gender,
		Phone:     phone,
		CreatedAt: time.Now().UTC(),
	}
	err := r.DB.QueryRowContext(ctx, r.bind(
		`INSERT INTO patients (name, age, gender, phone, created_at)
         VALUES (?, ?, ?, ?, ?)
         RETURNING id`),
		p.Name, p.Age, p.Gender, p.Phone, p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return nil, fmt.Errorf("insert patient: %w", err)
	}
	return &p, nil
}

// GetPatient loads a patient by identifier.
func (r *Repository) GetPatient(ctx context.Context, id int64) (*pkg.Patient, error) {
	var p pkg.Patient
	err := r.DB.QueryRowContext(ctx, r.bind(
		`SELECT id, name, age, gender, phone, created_at
         FROM patients
         WHERE id = ?`), id,
	).Scan(&p.ID, &p.Name, &p.Age, &p.Gender, &p.Phone, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select patient %d: %w", id, err)
	}
	return &p, nil
}

// ListPatients returns all patients, most recent first.
func (r *Repository) ListPatients(ctx context.Context) ([]pkg.Patient, error) {
	rows, err := r.DB.QueryContext(ctx, r.bind(
		`SELECT id, name, age, gender, phone, created_at
         FROM patients
         ORDER BY created_at DESC, id DESC`))
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var patients []pkg.Patient
	for rows.Next() {
		var p pkg.Patient
		if err := rows.Scan(&p.ID, &p.Name, &p.Age, &p.Gender, &p.Phone, &p.CreatedAt); err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

// AppendTurn stores a chat turn with a server-assigned timestamp. Turns are
// never updated or deleted.
func (r *Repository) AppendTurn(ctx context.Context, patientID int64, role pkg.Role, content string) (*pkg.ChatTurn, error) {
	t := pkg.ChatTurn{
		PatientID: patientID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	err := r.DB.QueryRowContext(ctx, r.bind(
		`INSERT INTO chats (patient_id, role, content, created_at)
         VALUES (?, ?, ?, ?)
         RETURNING id`),
		t.PatientID, t.Role, t.Content, t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		return nil, fmt.Errorf("insert chat turn: %w", err)
	}
	return &t, nil
}

// History returns every turn for a patient in ascending creation order.
func (r *Repository) History(ctx context.Context, patientID int64) ([]pkg.ChatTurn, error) {
	rows, err := r.DB.QueryContext(ctx, r.bind(
		`SELECT id, patient_id, role, content, created_at
         FROM chats
         WHERE patient_id = ?
         ORDER BY created_at ASC, id ASC`), patientID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()
	return scanTurns(rows)
}

// RecentTurns returns at most limit of the newest turns for a patient,
// still in ascending creation order so they can feed the assembler directly.
func (r *Repository) RecentTurns(ctx context.Context, patientID int64, limit int) ([]pkg.ChatTurn, error) {
	rows, err := r.DB.QueryContext(ctx, r.bind(
		`SELECT id, patient_id, role, content, created_at
         FROM chats
         WHERE patient_id = ?
         ORDER BY created_at DESC, id DESC
         LIMIT ?`), patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("load recent turns: %w", err)
	}
	defer rows.Close()

	turns, err := scanTurns(rows)
	if err != nil {
		return nil, err
	}
	// The query walks newest-first; flip back to chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func scanTurns(rows *sql.Rows) ([]pkg.ChatTurn, error) {
	var turns []pkg.ChatTurn
	for rows.Next() {
		var t pkg.ChatTurn
		if err := rows.Scan(&t.ID, &t.PatientID, &t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}
