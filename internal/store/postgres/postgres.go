package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"restopos/backend/internal/domain"
	"restopos/backend/internal/store"
	"restopos/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	if strings.TrimSpace(order.RestaurantID) == "" || len(order.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	if order.ID == "" {
		order.ID = xid.New("ord")
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	order.BillID = ""

	items, err := json.Marshal(order.Items)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orders (id, restaurant_id, table_number, customer_name, customer_mobile, items, bill_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,NULL,$7)
	`, order.ID, order.RestaurantID, order.TableNumber, nullIfEmpty(order.CustomerName), nullIfEmpty(order.CustomerMobile), string(items), order.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	created := order
	return &created, nil
}

const orderColumns = `id, restaurant_id, table_number, COALESCE(customer_name,''), COALESCE(customer_mobile,''), items, COALESCE(bill_id,''), created_at`

func scanOrder(row rowScanner) (domain.Order, error) {
	var order domain.Order
	var items []byte
	if err := row.Scan(&order.ID, &order.RestaurantID, &order.TableNumber, &order.CustomerName, &order.CustomerMobile, &items, &order.BillID, &order.CreatedAt); err != nil {
		return domain.Order{}, err
	}
	if err := json.Unmarshal(items, &order.Items); err != nil {
		return domain.Order{}, fmt.Errorf("decode order %s items: %w", order.ID, err)
	}
	order.CreatedAt = order.CreatedAt.UTC()
	return order, nil
}

// GetOrdersByIDs returns the orders in the order ids were given. Any missing
// id fails the whole lookup.
func (s *Store) GetOrdersByIDs(ctx context.Context, restaurantID string, ids []string) ([]domain.Order, error) {
	if len(ids) == 0 {
		return []domain.Order{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE restaurant_id = $1 AND id = ANY($2)
	`, restaurantID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]domain.Order, len(ids))
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		byID[order.ID] = order
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]domain.Order, 0, len(ids))
	for _, id := range ids {
		order, ok := byID[id]
		if !ok {
			return nil, store.ErrNotFound
		}
		result = append(result, order)
	}
	return result, nil
}

func (s *Store) ListUnbilledOrders(ctx context.Context, restaurantID string, limit int) ([]domain.Order, error) {
	if limit < 1 {
		limit = 200
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE restaurant_id = $1 AND bill_id IS NULL
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`, restaurantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, 16)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Store) CreateBill(ctx context.Context, bill domain.Bill) (*domain.Bill, error) {
	if strings.TrimSpace(bill.RestaurantID) == "" || len(bill.OrderIDs) == 0 {
		return nil, store.ErrInvalidInput
	}
	seen := make(map[string]bool, len(bill.OrderIDs))
	for _, id := range bill.OrderIDs {
		if seen[id] {
			return nil, store.ErrInvalidInput
		}
		seen[id] = true
	}
	if bill.ID == "" {
		bill.ID = xid.New("bill")
	}
	if bill.CreatedAt.IsZero() {
		bill.CreatedAt = time.Now().UTC()
	}
	bill.UpdatedAt = bill.CreatedAt

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	rows, err := pgTx.QueryContext(ctx, `
		SELECT id, restaurant_id, COALESCE(bill_id,'')
		FROM orders
		WHERE id = ANY($1)
		FOR UPDATE
	`, bill.OrderIDs)
	if err != nil {
		return nil, err
	}
	found := 0
	alreadyBilled := false
	for rows.Next() {
		var id, restaurantID, billID string
		if err := rows.Scan(&id, &restaurantID, &billID); err != nil {
			_ = rows.Close()
			return nil, err
		}
		if restaurantID != bill.RestaurantID {
			continue
		}
		found++
		if billID != "" {
			alreadyBilled = true
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	if found != len(bill.OrderIDs) {
		return nil, store.ErrNotFound
	}
	if alreadyBilled {
		return nil, store.ErrOrderAlreadyBilled
	}

	err = pgTx.QueryRowContext(ctx, `
		INSERT INTO bill_sequences (restaurant_id, last_number)
		VALUES ($1, 1)
		ON CONFLICT (restaurant_id)
		DO UPDATE SET last_number = bill_sequences.last_number + 1
		RETURNING last_number
	`, bill.RestaurantID).Scan(&bill.BillNumber)
	if err != nil {
		return nil, err
	}

	orderIDs, err := json.Marshal(bill.OrderIDs)
	if err != nil {
		return nil, err
	}
	items, err := json.Marshal(bill.Items)
	if err != nil {
		return nil, err
	}
	splits, err := marshalSplits(bill.SplitPayments)
	if err != nil {
		return nil, err
	}

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO bills (
			id, restaurant_id, bill_number, table_number, order_ids, order_type, items,
			subtotal, total_item_discount, after_item_discount,
			bill_discount_type, bill_discount_value, bill_discount_amount, discount_preset_id, discount_reason,
			after_all_discounts, service_charge_rate, service_charge_amount, packaging_charge, taxable_amount,
			gst_scheme, cgst_rate, cgst_amount, sgst_rate, sgst_amount, total_tax, round_off, grand_total,
			payment_mode, split_payments, payment_status, paid_amount,
			customer_name, customer_mobile, customer_gstin, notes, created_by,
			cancelled_at, cancel_reason, created_at, updated_at
		)
		VALUES (
			$1,$2,$3,$4,$5,$6,$7,
			$8,$9,$10,
			$11,$12,$13,$14,$15,
			$16,$17,$18,$19,$20,
			$21,$22,$23,$24,$25,$26,$27,$28,
			$29,$30,$31,$32,
			$33,$34,$35,$36,$37,
			$38,$39,$40,$41
		)
	`,
		bill.ID, bill.RestaurantID, bill.BillNumber, bill.TableNumber, string(orderIDs), bill.OrderType, string(items),
		bill.Subtotal, bill.TotalItemDiscount, bill.AfterItemDiscount,
		nullIfEmpty(bill.BillDiscountType), nullDecimal(bill.BillDiscountValue), bill.BillDiscountAmount, nullIfEmpty(bill.DiscountPresetID), nullIfEmpty(bill.DiscountReason),
		bill.AfterAllDiscounts, bill.ServiceChargeRate, bill.ServiceChargeAmount, bill.PackagingCharge, bill.TaxableAmount,
		bill.GSTScheme, bill.CGSTRate, bill.CGSTAmount, bill.SGSTRate, bill.SGSTAmount, bill.TotalTax, bill.RoundOff, bill.GrandTotal,
		bill.PaymentMode, splits, bill.PaymentStatus, bill.PaidAmount,
		nullIfEmpty(bill.CustomerName), nullIfEmpty(bill.CustomerMobile), nullIfEmpty(bill.CustomerGSTIN), nullIfEmpty(bill.Notes), nullIfEmpty(bill.CreatedBy),
		nullTime(bill.CancelledAt), nullIfEmpty(bill.CancelReason), bill.CreatedAt, bill.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	res, err := pgTx.ExecContext(ctx, `
		UPDATE orders
		SET bill_id = $2
		WHERE id = ANY($1) AND bill_id IS NULL
	`, bill.OrderIDs, bill.ID)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected != int64(len(bill.OrderIDs)) {
		return nil, store.ErrOrderAlreadyBilled
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	created := bill
	return &created, nil
}

const billColumns = `
	id, restaurant_id, bill_number, table_number, order_ids, order_type, items,
	subtotal, total_item_discount, after_item_discount,
	COALESCE(bill_discount_type,''), bill_discount_value, bill_discount_amount,
	COALESCE(discount_preset_id,''), COALESCE(discount_reason,''),
	after_all_discounts, service_charge_rate, service_charge_amount, packaging_charge, taxable_amount,
	gst_scheme, cgst_rate, cgst_amount, sgst_rate, sgst_amount, total_tax, round_off, grand_total,
	payment_mode, split_payments, payment_status, paid_amount,
	COALESCE(customer_name,''), COALESCE(customer_mobile,''), COALESCE(customer_gstin,''),
	COALESCE(notes,''), COALESCE(created_by,''),
	cancelled_at, COALESCE(cancel_reason,''), created_at, updated_at`

func scanBill(row rowScanner) (domain.Bill, error) {
	var bill domain.Bill
	var orderIDs, items, splits []byte
	var billDiscountValue decimal.NullDecimal
	var cancelledAt sql.NullTime

	err := row.Scan(
		&bill.ID, &bill.RestaurantID, &bill.BillNumber, &bill.TableNumber, &orderIDs, &bill.OrderType, &items,
		&bill.Subtotal, &bill.TotalItemDiscount, &bill.AfterItemDiscount,
		&bill.BillDiscountType, &billDiscountValue, &bill.BillDiscountAmount,
		&bill.DiscountPresetID, &bill.DiscountReason,
		&bill.AfterAllDiscounts, &bill.ServiceChargeRate, &bill.ServiceChargeAmount, &bill.PackagingCharge, &bill.TaxableAmount,
		&bill.GSTScheme, &bill.CGSTRate, &bill.CGSTAmount, &bill.SGSTRate, &bill.SGSTAmount, &bill.TotalTax, &bill.RoundOff, &bill.GrandTotal,
		&bill.PaymentMode, &splits, &bill.PaymentStatus, &bill.PaidAmount,
		&bill.CustomerName, &bill.CustomerMobile, &bill.CustomerGSTIN,
		&bill.Notes, &bill.CreatedBy,
		&cancelledAt, &bill.CancelReason, &bill.CreatedAt, &bill.UpdatedAt,
	)
	if err != nil {
		return domain.Bill{}, err
	}
	if err := json.Unmarshal(orderIDs, &bill.OrderIDs); err != nil {
		return domain.Bill{}, fmt.Errorf("decode bill %s order ids: %w", bill.ID, err)
	}
	if err := json.Unmarshal(items, &bill.Items); err != nil {
		return domain.Bill{}, fmt.Errorf("decode bill %s items: %w", bill.ID, err)
	}
	if len(splits) > 0 {
		if err := json.Unmarshal(splits, &bill.SplitPayments); err != nil {
			return domain.Bill{}, fmt.Errorf("decode bill %s splits: %w", bill.ID, err)
		}
	}
	if len(bill.SplitPayments) == 0 {
		bill.SplitPayments = nil
	}
	if billDiscountValue.Valid {
		v := billDiscountValue.Decimal
		bill.BillDiscountValue = &v
	}
	if cancelledAt.Valid {
		at := cancelledAt.Time.UTC()
		bill.CancelledAt = &at
	}
	bill.CreatedAt = bill.CreatedAt.UTC()
	bill.UpdatedAt = bill.UpdatedAt.UTC()
	return bill, nil
}

func (s *Store) GetBill(ctx context.Context, restaurantID string, id string) (*domain.Bill, error) {
	bill, err := scanBill(s.db.QueryRowContext(ctx, `
		SELECT `+billColumns+`
		FROM bills
		WHERE restaurant_id = $1 AND id = $2
	`, restaurantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &bill, nil
}

func (s *Store) ListBills(ctx context.Context, filter domain.BillListFilter) ([]domain.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills WHERE restaurant_id = $1`
	args := []any{filter.RestaurantID}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(" AND created_at < $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND payment_status = $%d", len(args))
	}
	query += " ORDER BY bill_number ASC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bills := make([]domain.Bill, 0, 64)
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bills, nil
}

func (s *Store) UpdateBillStatus(ctx context.Context, bill domain.Bill) (*domain.Bill, error) {
	splits, err := marshalSplits(bill.SplitPayments)
	if err != nil {
		return nil, err
	}
	if bill.UpdatedAt.IsZero() {
		bill.UpdatedAt = time.Now().UTC()
	}

	updated, err := scanBill(s.db.QueryRowContext(ctx, `
		UPDATE bills
		SET payment_mode = $3, split_payments = $4, payment_status = $5, paid_amount = $6,
			cancelled_at = $7, cancel_reason = $8, updated_at = $9
		WHERE restaurant_id = $1 AND id = $2 AND payment_status <> 'cancelled'
		RETURNING `+billColumns,
		bill.RestaurantID, bill.ID, bill.PaymentMode, splits, bill.PaymentStatus, bill.PaidAmount,
		nullTime(bill.CancelledAt), nullIfEmpty(bill.CancelReason), bill.UpdatedAt,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.missingOrCancelled(ctx, bill.RestaurantID, bill.ID)
		}
		return nil, err
	}
	return &updated, nil
}

// missingOrCancelled explains why a guarded bill update matched no row.
func (s *Store) missingOrCancelled(ctx context.Context, restaurantID string, id string) error {
	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT payment_status FROM bills WHERE restaurant_id = $1 AND id = $2
	`, restaurantID, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return err
	}
	if status == domain.PaymentStatusCancelled {
		return store.ErrBillCancelled
	}
	return store.ErrNotFound
}

const presetColumns = `
	id, restaurant_id, name, scope, discount_type, discount_value, min_bill_amount, max_discount_amount,
	COALESCE(start_date,''), COALESCE(end_date,''), COALESCE(start_time,''), COALESCE(end_time,''),
	active_days, requires_reason, is_active, auto_suggest, created_at, updated_at`

func scanPreset(row rowScanner) (domain.DiscountPreset, error) {
	var preset domain.DiscountPreset
	var minBill, maxDiscount decimal.NullDecimal
	var activeDays []byte

	err := row.Scan(
		&preset.ID, &preset.RestaurantID, &preset.Name, &preset.Scope, &preset.DiscountType, &preset.DiscountValue,
		&minBill, &maxDiscount,
		&preset.StartDate, &preset.EndDate, &preset.StartTime, &preset.EndTime,
		&activeDays, &preset.RequiresReason, &preset.IsActive, &preset.AutoSuggest, &preset.CreatedAt, &preset.UpdatedAt,
	)
	if err != nil {
		return domain.DiscountPreset{}, err
	}
	if len(activeDays) > 0 {
		if err := json.Unmarshal(activeDays, &preset.ActiveDays); err != nil {
			return domain.DiscountPreset{}, fmt.Errorf("decode preset %s active days: %w", preset.ID, err)
		}
	}
	if len(preset.ActiveDays) == 0 {
		preset.ActiveDays = nil
	}
	if minBill.Valid {
		v := minBill.Decimal
		preset.MinBillAmount = &v
	}
	if maxDiscount.Valid {
		v := maxDiscount.Decimal
		preset.MaxDiscountAmount = &v
	}
	preset.CreatedAt = preset.CreatedAt.UTC()
	preset.UpdatedAt = preset.UpdatedAt.UTC()
	return preset, nil
}

func (s *Store) CreatePreset(ctx context.Context, preset domain.DiscountPreset) (*domain.DiscountPreset, error) {
	if strings.TrimSpace(preset.RestaurantID) == "" || strings.TrimSpace(preset.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	if preset.ID == "" {
		preset.ID = xid.New("preset")
	}
	if preset.CreatedAt.IsZero() {
		preset.CreatedAt = time.Now().UTC()
	}
	preset.UpdatedAt = preset.CreatedAt

	activeDays, err := marshalDays(preset.ActiveDays)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO discount_presets (
			id, restaurant_id, name, scope, discount_type, discount_value, min_bill_amount, max_discount_amount,
			start_date, end_date, start_time, end_time, active_days, requires_reason, is_active, auto_suggest,
			created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`,
		preset.ID, preset.RestaurantID, preset.Name, preset.Scope, preset.DiscountType, preset.DiscountValue,
		nullDecimal(preset.MinBillAmount), nullDecimal(preset.MaxDiscountAmount),
		nullIfEmpty(preset.StartDate), nullIfEmpty(preset.EndDate), nullIfEmpty(preset.StartTime), nullIfEmpty(preset.EndTime),
		activeDays, preset.RequiresReason, preset.IsActive, preset.AutoSuggest, preset.CreatedAt, preset.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	created := preset
	return &created, nil
}

func (s *Store) UpdatePreset(ctx context.Context, preset domain.DiscountPreset) (*domain.DiscountPreset, error) {
	if preset.UpdatedAt.IsZero() {
		preset.UpdatedAt = time.Now().UTC()
	}
	activeDays, err := marshalDays(preset.ActiveDays)
	if err != nil {
		return nil, err
	}

	updated, err := scanPreset(s.db.QueryRowContext(ctx, `
		UPDATE discount_presets
		SET name = $3, scope = $4, discount_type = $5, discount_value = $6,
			min_bill_amount = $7, max_discount_amount = $8,
			start_date = $9, end_date = $10, start_time = $11, end_time = $12, active_days = $13,
			requires_reason = $14, is_active = $15, auto_suggest = $16, updated_at = $17
		WHERE restaurant_id = $1 AND id = $2
		RETURNING `+presetColumns,
		preset.RestaurantID, preset.ID, preset.Name, preset.Scope, preset.DiscountType, preset.DiscountValue,
		nullDecimal(preset.MinBillAmount), nullDecimal(preset.MaxDiscountAmount),
		nullIfEmpty(preset.StartDate), nullIfEmpty(preset.EndDate), nullIfEmpty(preset.StartTime), nullIfEmpty(preset.EndTime),
		activeDays, preset.RequiresReason, preset.IsActive, preset.AutoSuggest, preset.UpdatedAt,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &updated, nil
}

func (s *Store) GetPreset(ctx context.Context, restaurantID string, id string) (*domain.DiscountPreset, error) {
	preset, err := scanPreset(s.db.QueryRowContext(ctx, `
		SELECT `+presetColumns+`
		FROM discount_presets
		WHERE restaurant_id = $1 AND id = $2
	`, restaurantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &preset, nil
}

func (s *Store) ListPresets(ctx context.Context, restaurantID string, includeInactive bool) ([]domain.DiscountPreset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+presetColumns+`
		FROM discount_presets
		WHERE restaurant_id = $1 AND ($2 OR is_active = true)
		ORDER BY name ASC, id ASC
	`, restaurantID, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	presets := make([]domain.DiscountPreset, 0, 16)
	for rows.Next() {
		preset, err := scanPreset(rows)
		if err != nil {
			return nil, err
		}
		presets = append(presets, preset)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return presets, nil
}

func (s *Store) SetPresetActive(ctx context.Context, restaurantID string, id string, active bool, at time.Time) (*domain.DiscountPreset, error) {
	preset, err := scanPreset(s.db.QueryRowContext(ctx, `
		UPDATE discount_presets
		SET is_active = $3, updated_at = $4
		WHERE restaurant_id = $1 AND id = $2
		RETURNING `+presetColumns,
		restaurantID, id, active, at,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &preset, nil
}

func (s *Store) GetSettings(ctx context.Context, restaurantID string) (*domain.Settings, error) {
	var settings domain.Settings
	err := s.db.QueryRowContext(ctx, `
		SELECT restaurant_id, restaurant_name, address, phone, gstin, gst_scheme, gst_rate,
			service_charge_rate, apply_service_charge_to_takeaway, enable_packaging_charge,
			default_packaging_charge, currency, rounding_unit, invoice_footer, updated_at
		FROM restaurant_settings
		WHERE restaurant_id = $1
	`, restaurantID).Scan(
		&settings.RestaurantID,
		&settings.RestaurantName,
		&settings.Address,
		&settings.Phone,
		&settings.GSTIN,
		&settings.GSTScheme,
		&settings.GSTRate,
		&settings.ServiceChargeRate,
		&settings.ApplyServiceChargeToTakeaway,
		&settings.EnablePackagingCharge,
		&settings.DefaultPackagingCharge,
		&settings.Currency,
		&settings.RoundingUnit,
		&settings.InvoiceFooter,
		&settings.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	settings.UpdatedAt = settings.UpdatedAt.UTC()
	return &settings, nil
}

func (s *Store) UpsertSettings(ctx context.Context, settings domain.Settings) (*domain.Settings, error) {
	if strings.TrimSpace(settings.RestaurantID) == "" {
		return nil, store.ErrInvalidInput
	}
	if settings.UpdatedAt.IsZero() {
		settings.UpdatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO restaurant_settings (
			restaurant_id, restaurant_name, address, phone, gstin, gst_scheme, gst_rate,
			service_charge_rate, apply_service_charge_to_takeaway, enable_packaging_charge,
			default_packaging_charge, currency, rounding_unit, invoice_footer, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (restaurant_id)
		DO UPDATE SET
			restaurant_name = EXCLUDED.restaurant_name,
			address = EXCLUDED.address,
			phone = EXCLUDED.phone,
			gstin = EXCLUDED.gstin,
			gst_scheme = EXCLUDED.gst_scheme,
			gst_rate = EXCLUDED.gst_rate,
			service_charge_rate = EXCLUDED.service_charge_rate,
			apply_service_charge_to_takeaway = EXCLUDED.apply_service_charge_to_takeaway,
			enable_packaging_charge = EXCLUDED.enable_packaging_charge,
			default_packaging_charge = EXCLUDED.default_packaging_charge,
			currency = EXCLUDED.currency,
			rounding_unit = EXCLUDED.rounding_unit,
			invoice_footer = EXCLUDED.invoice_footer,
			updated_at = EXCLUDED.updated_at
	`,
		settings.RestaurantID, settings.RestaurantName, settings.Address, settings.Phone, settings.GSTIN,
		settings.GSTScheme, settings.GSTRate, settings.ServiceChargeRate, settings.ApplyServiceChargeToTakeaway,
		settings.EnablePackagingCharge, settings.DefaultPackagingCharge, settings.Currency, settings.RoundingUnit,
		settings.InvoiceFooter, settings.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	saved := settings
	return &saved, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (
			id, restaurant_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.ID, entry.RestaurantID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, restaurantID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, restaurant_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE restaurant_id = $1
			AND created_at >= $2
			AND created_at < $3
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`, restaurantID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.RestaurantID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, restaurant_id, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,true,$5,now())
	`, user.Username, user.Password, user.Role, user.RestaurantID, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, restaurant_id, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.RestaurantID, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func marshalSplits(splits []domain.SplitPayment) (string, error) {
	if splits == nil {
		splits = []domain.SplitPayment{}
	}
	payload, err := json.Marshal(splits)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func marshalDays(days []int) (string, error) {
	if days == nil {
		days = []int{}
	}
	payload, err := json.Marshal(days)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}

func nullDecimal(val *decimal.Decimal) any {
	if val == nil {
		return nil
	}
	return *val
}
