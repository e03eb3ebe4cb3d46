package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/seat-reservation-engine/internal/domain"
)

// PostgresInventoryStore keeps one row per show. Seat allocations and locks
// live in jsonb columns of that row, so every seat decision is taken under
// the show's row lock.
type PostgresInventoryStore struct {
	db          *pgxpool.Pool
	lockTimeout time.Duration
}

func NewPostgresInventoryStore(db *pgxpool.Pool, lockTimeout time.Duration) *PostgresInventoryStore {
	return &PostgresInventoryStore{
		db:          db,
		lockTimeout: lockTimeout,
	}
}

const showColumns = `
	id, seat_rows, seat_columns, seat_price, currency, movie_title, theater_name,
	hall_name, starts_at, booked_seats, locks, version, created_at, updated_at`

const bookingColumns = `
	id, show_id, user_id, seats, base_amount, service_charge, total_amount, currency,
	status, payment_status, payment_reference, movie_title, theater_name, hall_name,
	starts_at, booked_at, updated_at`

func (p *PostgresInventoryStore) CreateShow(ctx context.Context, inv *domain.ShowInventory) error {
	booked, err := encodeBookedSeats(inv.BookedSeats)
	if err != nil {
		return err
	}

	locks, err := encodeLocks(inv.Locks)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO show_inventories (
			id, seat_rows, seat_columns, seat_price, currency, movie_title,
			theater_name, hall_name, starts_at, booked_seats, locks)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11::jsonb)
		RETURNING version, created_at, updated_at
	`

	return p.db.QueryRow(
		ctx,
		query,
		inv.ID,
		inv.Rows,
		inv.Columns,
		inv.SeatPrice,
		inv.Currency,
		inv.MovieTitle,
		inv.TheaterName,
		inv.HallName,
		inv.StartsAt,
		booked,
		locks,
	).Scan(&inv.Version, &inv.CreatedAt, &inv.UpdatedAt)
}

func (p *PostgresInventoryStore) GetShow(ctx context.Context, showID uuid.UUID) (*domain.ShowInventory, error) {
	query := `SELECT ` + showColumns + ` FROM show_inventories WHERE id = $1`

	inv, err := scanShow(p.db.QueryRow(ctx, query, showID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrShowNotFound
		}

		return nil, err
	}

	return inv, nil
}

func (p *PostgresInventoryStore) UpdateShow(
	ctx context.Context,
	showID uuid.UUID,
	fn func(inv *domain.ShowInventory) error) error {

	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		inv, err := p.lockShow(ctx, tx, showID)
		if err != nil {
			return err
		}

		err = fn(inv)
		if err != nil {
			return err
		}

		return saveShow(ctx, tx, inv)
	})
}

func (p *PostgresInventoryStore) CreateBooking(
	ctx context.Context,
	showID uuid.UUID,
	fn func(inv *domain.ShowInventory) (*domain.Booking, error)) (*domain.Booking, error) {

	var booking *domain.Booking

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		inv, err := p.lockShow(ctx, tx, showID)
		if err != nil {
			return err
		}

		booking, err = fn(inv)
		if err != nil {
			return err
		}

		if booking != nil {
			err = insertBooking(ctx, tx, booking)
			if err != nil {
				return err
			}
		}

		return saveShow(ctx, tx, inv)
	})
	if err != nil {
		return nil, err
	}

	return booking, nil
}

func (p *PostgresInventoryStore) UpdateBooking(
	ctx context.Context,
	bookingID uuid.UUID,
	fn func(b *domain.Booking, inv *domain.ShowInventory) error) (*domain.Booking, error) {

	var (
		booking   *domain.Booking
		unchanged bool
	)

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		var showID uuid.UUID

		err := tx.QueryRow(ctx, `SELECT show_id FROM bookings WHERE id = $1`, bookingID).Scan(&showID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrBookingNotFound
			}

			return err
		}

		// Show row first, booking row second, the same order CreateBooking uses.
		inv, err := p.lockShow(ctx, tx, showID)
		if err != nil {
			return err
		}

		query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`

		booking, err = scanBooking(tx.QueryRow(ctx, query, bookingID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrBookingNotFound
			}

			return err
		}

		err = fn(booking, inv)
		if errors.Is(err, domain.ErrNoChange) {
			unchanged = true
		}
		if err != nil {
			return err
		}

		err = updateBooking(ctx, tx, booking)
		if err != nil {
			return err
		}

		return saveShow(ctx, tx, inv)
	})
	if err != nil {
		return nil, err
	}

	if unchanged {
		return p.GetBooking(ctx, bookingID)
	}

	return booking, nil
}

func (p *PostgresInventoryStore) GetBooking(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(p.db.QueryRow(ctx, query, bookingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}

		return nil, err
	}

	return booking, nil
}

// SweepExpiredLocks rewrites the locks array of every show that carries at
// least one expired lock. Each row is updated atomically, so a concurrent
// seat operation either sees the row before or after the sweep.
func (p *PostgresInventoryStore) SweepExpiredLocks(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE show_inventories
		SET locks = COALESCE(
				(SELECT jsonb_agg(l)
				 FROM jsonb_array_elements(locks) AS l
				 WHERE (l->>'expires_at_us')::bigint > $1),
				'[]'::jsonb),
			version = version + 1,
			updated_at = NOW()
		WHERE EXISTS (
			SELECT 1
			FROM jsonb_array_elements(locks) AS l
			WHERE (l->>'expires_at_us')::bigint <= $1)
	`

	tag, err := p.db.Exec(ctx, query, now.UnixMicro())
	if err != nil {
		return 0, mapPgError(err)
	}

	return tag.RowsAffected(), nil
}

func (p *PostgresInventoryStore) ListUnpaidBookingsBefore(
	ctx context.Context,
	before time.Time,
	limit int) ([]uuid.UUID, error) {

	query := `
		SELECT id
		FROM bookings
		WHERE status = 'pending' AND payment_status = 'unpaid' AND booked_at < $1
		ORDER BY booked_at
		LIMIT $2
	`

	rows, err := p.db.Query(ctx, query, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)

	for rows.Next() {
		var id uuid.UUID

		err = rows.Scan(&id)
		if err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

func (p *PostgresInventoryStore) lockShow(ctx context.Context, tx pgx.Tx, showID uuid.UUID) (*domain.ShowInventory, error) {
	if p.lockTimeout > 0 {
		timeout := fmt.Sprintf("%dms", p.lockTimeout.Milliseconds())

		_, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, timeout)
		if err != nil {
			return nil, err
		}
	}

	query := `SELECT ` + showColumns + ` FROM show_inventories WHERE id = $1 FOR UPDATE`

	inv, err := scanShow(tx.QueryRow(ctx, query, showID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrShowNotFound
		}

		return nil, err
	}

	return inv, nil
}

func saveShow(ctx context.Context, tx pgx.Tx, inv *domain.ShowInventory) error {
	booked, err := encodeBookedSeats(inv.BookedSeats)
	if err != nil {
		return err
	}

	locks, err := encodeLocks(inv.Locks)
	if err != nil {
		return err
	}

	query := `
		UPDATE show_inventories
		SET booked_seats = $2::jsonb, locks = $3::jsonb, version = version + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING version, updated_at
	`

	return tx.QueryRow(ctx, query, inv.ID, booked, locks).Scan(&inv.Version, &inv.UpdatedAt)
}

func insertBooking(ctx context.Context, tx pgx.Tx, b *domain.Booking) error {
	query := `
		INSERT INTO bookings (
			id, show_id, user_id, seats, base_amount, service_charge, total_amount,
			currency, status, payment_status, payment_reference, movie_title,
			theater_name, hall_name, starts_at, booked_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)
		RETURNING booked_at, updated_at
	`

	return tx.QueryRow(
		ctx,
		query,
		b.ID,
		b.ShowID,
		b.UserID,
		domain.SeatStrings(b.Seats),
		b.BaseAmount,
		b.ServiceCharge,
		b.TotalAmount,
		b.Currency,
		string(b.Status),
		string(b.PaymentStatus),
		b.PaymentReference,
		b.MovieTitle,
		b.TheaterName,
		b.HallName,
		b.StartsAt,
		b.BookedAt,
	).Scan(&b.BookedAt, &b.UpdatedAt)
}

func updateBooking(ctx context.Context, tx pgx.Tx, b *domain.Booking) error {
	query := `
		UPDATE bookings
		SET status = $2, payment_status = $3, payment_reference = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	return tx.QueryRow(
		ctx,
		query,
		b.ID,
		string(b.Status),
		string(b.PaymentStatus),
		b.PaymentReference,
	).Scan(&b.UpdatedAt)
}

func scanShow(row pgx.Row) (*domain.ShowInventory, error) {
	var (
		inv    domain.ShowInventory
		booked []byte
		locks  []byte
	)

	err := row.Scan(
		&inv.ID,
		&inv.Rows,
		&inv.Columns,
		&inv.SeatPrice,
		&inv.Currency,
		&inv.MovieTitle,
		&inv.TheaterName,
		&inv.HallName,
		&inv.StartsAt,
		&booked,
		&locks,
		&inv.Version,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	inv.BookedSeats, err = decodeBookedSeats(booked)
	if err != nil {
		return nil, err
	}

	inv.Locks, err = decodeLocks(locks)
	if err != nil {
		return nil, err
	}

	return &inv, nil
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b             domain.Booking
		seats         []string
		status        string
		paymentStatus string
	)

	err := row.Scan(
		&b.ID,
		&b.ShowID,
		&b.UserID,
		&seats,
		&b.BaseAmount,
		&b.ServiceCharge,
		&b.TotalAmount,
		&b.Currency,
		&status,
		&paymentStatus,
		&b.PaymentReference,
		&b.MovieTitle,
		&b.TheaterName,
		&b.HallName,
		&b.StartsAt,
		&b.BookedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.Seats = domain.SeatIDs(seats)
	b.Status = domain.BookingStatus(status)
	b.PaymentStatus = domain.PaymentStatus(paymentStatus)

	return &b, nil
}
