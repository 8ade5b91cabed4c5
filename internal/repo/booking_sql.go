package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/jmoiron/sqlx"
)

type SQLBookingRepository struct {
	db *sqlx.DB
}

func NewSQLBookingRepository(db *sqlx.DB) *SQLBookingRepository {
	return &SQLBookingRepository{db: db}
}

const bookingColumns = `ID, sourceFile, channel, listing, checkinDate, checkoutDate, nights, guests,
	amountGross, amountNett, amountChannelFee, amountTouristTax, amountVat, guestName, phone,
	reservationCode, reservationDate, status, pricePerNight, daysBeforeReservation, addInfo,
	year, q, m, administration`

func scanBooking(row rowScanner) (models.Booking, error) {
	var b models.Booking
	var source, listing, guest, phone, addInfo sql.NullString
	err := row.Scan(&b.ID, &source, &b.Channel, &listing, &b.CheckinDate, &b.CheckoutDate, &b.Nights, &b.Guests,
		&b.AmountGross, &b.AmountNett, &b.AmountChannelFee, &b.AmountTouristTax, &b.AmountVat, &guest, &phone,
		&b.ReservationCode, &b.ReservationDate, &b.Status, &b.PricePerNight, &b.DaysBeforeReservation, &addInfo,
		&b.Year, &b.Quarter, &b.Month, &b.Administration)
	b.SourceFile, b.Listing, b.GuestName, b.Phone, b.AddInfo = source.String, listing.String, guest.String, phone.String, addInfo.String
	return b, err
}

func bookingArgs(b models.Booking) []any {
	return []any{b.SourceFile, b.Channel, b.Listing, b.CheckinDate, b.CheckoutDate, b.Nights, b.Guests,
		b.AmountGross, b.AmountNett, b.AmountChannelFee, b.AmountTouristTax, b.AmountVat, b.GuestName, b.Phone,
		b.ReservationCode, b.ReservationDate, b.Status, b.PricePerNight, b.DaysBeforeReservation, b.AddInfo,
		b.Year, b.Quarter, b.Month, b.Administration}
}

func (r *SQLBookingRepository) Create(ctx context.Context, b models.Booking) (models.Booking, error) {
	query := `INSERT INTO bnb (sourceFile, channel, listing, checkinDate, checkoutDate, nights, guests,
		amountGross, amountNett, amountChannelFee, amountTouristTax, amountVat, guestName, phone,
		reservationCode, reservationDate, status, pricePerNight, daysBeforeReservation, addInfo,
		year, q, m, administration)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	id, err := insertID(ctx, r.db, query, bookingArgs(b)...)
	if err != nil {
		if isDuplicate(err) {
			return models.Booking{}, ErrDuplicatedValueUnique
		}
		return models.Booking{}, fmt.Errorf("insert booking: %w", err)
	}
	b.ID = id
	return b, nil
}

func (r *SQLBookingRepository) getOne(ctx context.Context, query string, args ...any) (models.Booking, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	b, err := scanBooking(r.db.QueryRowContext(ctx, r.db.Rebind(query), args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Booking{}, ErrBookingNotFound
	}
	return b, err
}

func (r *SQLBookingRepository) GetByID(ctx context.Context, administration string, id int) (models.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bnb WHERE ID = ? AND administration = ?`, id, administration)
}

func (r *SQLBookingRepository) GetByReservation(ctx context.Context, administration, channel, code string) (models.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bnb WHERE administration = ? AND channel = ? AND reservationCode = ?`,
		administration, channel, code)
}

func (r *SQLBookingRepository) Update(ctx context.Context, b models.Booking) (models.Booking, error) {
	query := r.db.Rebind(`UPDATE bnb SET sourceFile = ?, channel = ?, listing = ?, checkinDate = ?, checkoutDate = ?,
		nights = ?, guests = ?, amountGross = ?, amountNett = ?, amountChannelFee = ?, amountTouristTax = ?,
		amountVat = ?, guestName = ?, phone = ?, reservationCode = ?, reservationDate = ?, status = ?,
		pricePerNight = ?, daysBeforeReservation = ?, addInfo = ?, year = ?, q = ?, m = ?
		WHERE administration = ? AND ID = ?`)
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, query, append(bookingArgs(b), b.ID)...)
	if err != nil {
		return models.Booking{}, fmt.Errorf("update booking: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, b.Administration, b.ID); err != nil {
			return models.Booking{}, err
		}
	}
	return b, nil
}

func (r *SQLBookingRepository) Delete(ctx context.Context, administration string, id int) error {
	query := r.db.Rebind(`DELETE FROM bnb WHERE administration = ? AND ID = ?`)
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, query, administration, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func bookingConditions(f BookingFilter) (string, []any) {
	where := " WHERE administration = ?"
	args := []any{f.Administration}

	if f.Year != nil {
		where += " AND year = ?"
		args = append(args, *f.Year)
	}
	if f.Channel != "" {
		where += " AND channel = ?"
		args = append(args, f.Channel)
	}
	if f.Listing != "" {
		where += " AND listing = ?"
		args = append(args, f.Listing)
	}
	if f.Status != "" {
		where += " AND status = ?"
		args = append(args, f.Status)
	}
	if f.From != nil {
		where += " AND checkinDate >= ?"
		args = append(args, *f.From)
	}
	if f.To != nil {
		where += " AND checkinDate <= ?"
		args = append(args, *f.To)
	}
	return where, args
}

func (r *SQLBookingRepository) Filter(ctx context.Context, f BookingFilter) ([]models.Booking, int, error) {
	where, args := bookingConditions(f)
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var total int
	if err := r.db.QueryRowContext(ctx, r.db.Rebind("SELECT COUNT(*) FROM bnb"+where), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	limit, offset := pageBounds(f.Limit, f.Offset)
	if offset >= total {
		return []models.Booking{}, total, nil
	}

	query := "SELECT " + bookingColumns + " FROM bnb" + where + " ORDER BY checkinDate DESC, ID DESC LIMIT ? OFFSET ?"
	bookings, err := r.query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

func (r *SQLBookingRepository) LoadAll(ctx context.Context) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	return r.query(ctx, "SELECT "+bookingColumns+" FROM bnb")
}

func (r *SQLBookingRepository) query(ctx context.Context, query string, args ...any) ([]models.Booking, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	bookings := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
