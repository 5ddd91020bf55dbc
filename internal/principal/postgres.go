package principal

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"hailway.org/internal/ids"
)

// PG implements Store using PostgreSQL. Riders and captains share one table
// with a kind column; vehicle and location columns are null for riders.
type PG struct {
	db *sql.DB
}

var _ Store = (*PG)(nil)

// Open connects to PostgreSQL and returns a store with tuned pool defaults.
func Open(dsn string) (*PG, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &PG{db: db}, nil
}

// NewPG wraps an existing connection pool.
func NewPG(db *sql.DB) *PG { return &PG{db: db} }

func (s *PG) Close() error { return s.db.Close() }

func (s *PG) DB() *sql.DB { return s.db }

const principalColumns = `id, kind, first_name, last_name, email, password_hash, status,
	vehicle_color, vehicle_plate, vehicle_capacity, vehicle_type, lat, lng, created_at, updated_at`

func (s *PG) Create(ctx context.Context, p *Principal) error {
	if p.ID == "" {
		p.ID = ids.New()
	}
	now := time.Now().UTC()
	p.Email = NormalizeEmail(p.Email)
	p.CreatedAt = now
	p.UpdatedAt = now

	var (
		vColor, vPlate, vType sql.NullString
		vCapacity             sql.NullInt64
		lat, lng              sql.NullFloat64
	)
	if p.Vehicle != nil {
		vColor = sql.NullString{String: p.Vehicle.Color, Valid: true}
		vPlate = sql.NullString{String: p.Vehicle.Plate, Valid: true}
		vType = sql.NullString{String: string(p.Vehicle.Type), Valid: true}
		vCapacity = sql.NullInt64{Int64: int64(p.Vehicle.Capacity), Valid: true}
	}
	if p.Location != nil {
		lat = sql.NullFloat64{Float64: p.Location.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: p.Location.Lng, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		insert into principals(id, kind, first_name, last_name, email, password_hash, status,
			vehicle_color, vehicle_plate, vehicle_capacity, vehicle_type, lat, lng, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`, p.ID, p.Kind, p.FirstName, p.LastName, p.Email, p.PasswordHash, p.Status,
		vColor, vPlate, vCapacity, vType, lat, lng, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (s *PG) FindByEmail(ctx context.Context, kind Kind, email string) (*Principal, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+principalColumns+` from principals where kind=$1 and email=$2`,
		kind, NormalizeEmail(email))
	return scanPrincipal(row)
}

func (s *PG) FindByID(ctx context.Context, kind Kind, id string) (*Principal, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+principalColumns+` from principals where kind=$1 and id=$2`,
		kind, id)
	return scanPrincipal(row)
}

func (s *PG) UpdatePresence(ctx context.Context, kind Kind, id string, status Status, loc *Location) error {
	var lat, lng sql.NullFloat64
	if loc != nil {
		lat = sql.NullFloat64{Float64: loc.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: loc.Lng, Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `
		update principals
		set status=$3, lat=coalesce($4, lat), lng=coalesce($5, lng), updated_at=now()
		where kind=$1 and id=$2
	`, kind, id, status, lat, lng)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPrincipal(row *sql.Row) (*Principal, error) {
	var (
		p                     Principal
		vColor, vPlate, vType sql.NullString
		vCapacity             sql.NullInt64
		lat, lng              sql.NullFloat64
	)
	err := row.Scan(&p.ID, &p.Kind, &p.FirstName, &p.LastName, &p.Email, &p.PasswordHash, &p.Status,
		&vColor, &vPlate, &vCapacity, &vType, &lat, &lng, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if vColor.Valid || vPlate.Valid || vType.Valid {
		p.Vehicle = &Vehicle{
			Color:    vColor.String,
			Plate:    vPlate.String,
			Capacity: int(vCapacity.Int64),
			Type:     VehicleType(vType.String),
		}
	}
	if lat.Valid && lng.Valid {
		p.Location = &Location{Lat: lat.Float64, Lng: lng.Float64}
	}
	return &p, nil
}
