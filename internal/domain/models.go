package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderTypeDineIn   = "dine_in"
	OrderTypeTakeaway = "takeaway"
	OrderTypeDelivery = "delivery"
)

const (
	DiscountTypePercentage    = "percentage"
	DiscountTypeFlat          = "flat"
	DiscountTypeComplimentary = "complimentary"
)

const (
	PresetScopeBill = "bill"
	PresetScopeItem = "item"
)

const (
	GSTSchemeRegular     = "regular"
	GSTSchemeComposition = "composition"
)

const (
	PaymentModeCash  = "cash"
	PaymentModeCard  = "card"
	PaymentModeUPI   = "upi"
	PaymentModeSplit = "split"
)

const (
	PaymentStatusUnpaid        = "unpaid"
	PaymentStatusPartiallyPaid = "partially_paid"
	PaymentStatusPaid          = "paid"
	PaymentStatusCancelled     = "cancelled"
)

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

type OrderItem struct {
	MenuItemID string          `json:"menu_item_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

// Order is written by the ordering flow and consumed once by bill creation.
type Order struct {
	ID             string      `json:"id"`
	RestaurantID   string      `json:"restaurant_id"`
	TableNumber    string      `json:"table_number"`
	CustomerName   string      `json:"customer_name,omitempty"`
	CustomerMobile string      `json:"customer_mobile,omitempty"`
	Items          []OrderItem `json:"items"`
	BillID         string      `json:"bill_id,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

type OrderCreateRequest struct {
	RestaurantID   string      `json:"restaurant_id"`
	TableNumber    string      `json:"table_number" validate:"max=32"`
	CustomerName   string      `json:"customer_name" validate:"max=120"`
	CustomerMobile string      `json:"customer_mobile" validate:"omitempty,max=20"`
	Items          []OrderItem `json:"items" validate:"required,min=1"`
}

type DiscountPreset struct {
	ID                string           `json:"id"`
	RestaurantID      string           `json:"restaurant_id"`
	Name              string           `json:"name"`
	Scope             string           `json:"scope"`
	DiscountType      string           `json:"discount_type"`
	DiscountValue     decimal.Decimal  `json:"discount_value"`
	MinBillAmount     *decimal.Decimal `json:"min_bill_amount,omitempty"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount,omitempty"`
	StartDate         string           `json:"start_date,omitempty"`
	EndDate           string           `json:"end_date,omitempty"`
	StartTime         string           `json:"start_time,omitempty"`
	EndTime           string           `json:"end_time,omitempty"`
	ActiveDays        []int            `json:"active_days,omitempty"`
	RequiresReason    bool             `json:"requires_reason"`
	IsActive          bool             `json:"is_active"`
	AutoSuggest       bool             `json:"auto_suggest"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

type PresetCreateRequest struct {
	RestaurantID      string           `json:"restaurant_id"`
	Name              string           `json:"name"`
	Scope             string           `json:"scope"`
	DiscountType      string           `json:"discount_type"`
	DiscountValue     decimal.Decimal  `json:"discount_value"`
	MinBillAmount     *decimal.Decimal `json:"min_bill_amount,omitempty"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount,omitempty"`
	StartDate         string           `json:"start_date,omitempty"`
	EndDate           string           `json:"end_date,omitempty"`
	StartTime         string           `json:"start_time,omitempty"`
	EndTime           string           `json:"end_time,omitempty"`
	ActiveDays        []int            `json:"active_days,omitempty"`
	RequiresReason    bool             `json:"requires_reason"`
	AutoSuggest       bool             `json:"auto_suggest"`
}

type PresetToggleRequest struct {
	Active bool `json:"active"`
}

// ItemDiscount targets one consolidated line by (menu item, order).
type ItemDiscount struct {
	MenuItemID       string          `json:"menu_item_id"`
	OrderID          string          `json:"order_id"`
	DiscountType     string          `json:"discount_type"`
	DiscountValue    decimal.Decimal `json:"discount_value"`
	DiscountPresetID string          `json:"discount_preset_id,omitempty"`
	Reason           string          `json:"reason,omitempty"`
}

type SplitPayment struct {
	Mode   string          `json:"mode"`
	Amount decimal.Decimal `json:"amount"`
}

type BillItem struct {
	MenuItemID     string           `json:"menu_item_id"`
	OrderID        string           `json:"order_id"`
	Name           string           `json:"name"`
	Quantity       int              `json:"quantity"`
	Price          decimal.Decimal  `json:"price"`
	LineTotal      decimal.Decimal  `json:"line_total"`
	DiscountType   string           `json:"discount_type,omitempty"`
	DiscountValue  *decimal.Decimal `json:"discount_value,omitempty"`
	DiscountAmount decimal.Decimal  `json:"discount_amount"`
	DiscountReason string           `json:"discount_reason,omitempty"`
}

// CalculationResult carries every derived monetary field of a bill.
type CalculationResult struct {
	OrderType           string           `json:"order_type"`
	Items               []BillItem       `json:"items"`
	Subtotal            decimal.Decimal  `json:"subtotal"`
	TotalItemDiscount   decimal.Decimal  `json:"total_item_discount"`
	AfterItemDiscount   decimal.Decimal  `json:"after_item_discount"`
	BillDiscountType    string           `json:"bill_discount_type,omitempty"`
	BillDiscountValue   *decimal.Decimal `json:"bill_discount_value,omitempty"`
	BillDiscountAmount  decimal.Decimal  `json:"bill_discount_amount"`
	DiscountPresetID    string           `json:"discount_preset_id,omitempty"`
	DiscountReason      string           `json:"discount_reason,omitempty"`
	AfterAllDiscounts   decimal.Decimal  `json:"after_all_discounts"`
	ServiceChargeRate   decimal.Decimal  `json:"service_charge_rate"`
	ServiceChargeAmount decimal.Decimal  `json:"service_charge_amount"`
	PackagingCharge     decimal.Decimal  `json:"packaging_charge"`
	TaxableAmount       decimal.Decimal  `json:"taxable_amount"`
	GSTScheme           string           `json:"gst_scheme"`
	CGSTRate            decimal.Decimal  `json:"cgst_rate"`
	CGSTAmount          decimal.Decimal  `json:"cgst_amount"`
	SGSTRate            decimal.Decimal  `json:"sgst_rate"`
	SGSTAmount          decimal.Decimal  `json:"sgst_amount"`
	TotalTax            decimal.Decimal  `json:"total_tax"`
	RoundOff            decimal.Decimal  `json:"round_off"`
	GrandTotal          decimal.Decimal  `json:"grand_total"`
}

type Bill struct {
	ID             string    `json:"id"`
	BillNumber     int64     `json:"bill_number"`
	RestaurantID   string    `json:"restaurant_id"`
	TableNumber    string    `json:"table_number"`
	OrderIDs       []string  `json:"order_ids"`
	CreatedBy      string    `json:"created_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	CustomerName   string    `json:"customer_name,omitempty"`
	CustomerMobile string    `json:"customer_mobile,omitempty"`
	CustomerGSTIN  string    `json:"customer_gstin,omitempty"`
	Notes          string    `json:"notes,omitempty"`

	CalculationResult

	PaymentMode   string          `json:"payment_mode"`
	SplitPayments []SplitPayment  `json:"split_payments,omitempty"`
	PaymentStatus string          `json:"payment_status"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`

	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	CancelReason string     `json:"cancel_reason,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (b Bill) IsCancelled() bool {
	return b.PaymentStatus == PaymentStatusCancelled
}

type CalculationRequest struct {
	RestaurantID      string           `json:"restaurant_id"`
	OrderIDs          []string         `json:"order_ids"`
	OrderType         string           `json:"order_type"`
	ItemDiscounts     []ItemDiscount   `json:"item_discounts"`
	BillDiscountType  string           `json:"bill_discount_type,omitempty"`
	BillDiscountValue *decimal.Decimal `json:"bill_discount_value,omitempty"`
	DiscountPresetID  string           `json:"discount_preset_id,omitempty"`
	DiscountReason    string           `json:"discount_reason,omitempty"`
	PackagingCharge   *decimal.Decimal `json:"packaging_charge,omitempty"`
}

type PresetSuggestion struct {
	PresetID       string          `json:"preset_id"`
	Name           string          `json:"name"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

type PreviewResponse struct {
	Result      CalculationResult  `json:"result"`
	Suggested   *PresetSuggestion  `json:"suggested,omitempty"`
	Candidates  []PresetSuggestion `json:"candidates"`
	EvaluatedAt time.Time          `json:"evaluated_at"`
}

type CreateBillRequest struct {
	CalculationRequest
	TableNumber    string         `json:"table_number"`
	PaymentMode    string         `json:"payment_mode"`
	SplitPayments  []SplitPayment `json:"split_payments,omitempty"`
	MarkAsPaid     bool           `json:"mark_as_paid"`
	CustomerName   string         `json:"customer_name,omitempty"`
	CustomerMobile string         `json:"customer_mobile,omitempty"`
	CustomerGSTIN  string         `json:"customer_gstin,omitempty"`
	Notes          string         `json:"notes,omitempty"`
}

type UpdatePaymentRequest struct {
	PaymentMode   string          `json:"payment_mode"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	SplitPayments []SplitPayment  `json:"split_payments,omitempty"`
}

type CancelRequest struct {
	CancelReason string `json:"cancel_reason" validate:"max=500"`
	ManagerPIN   string `json:"manager_pin,omitempty" validate:"omitempty,max=32"`
}

// Settings is the per-restaurant billing configuration.
type Settings struct {
	RestaurantID                 string          `json:"restaurant_id"`
	RestaurantName               string          `json:"restaurant_name"`
	Address                      string          `json:"address,omitempty"`
	Phone                        string          `json:"phone,omitempty"`
	GSTIN                        string          `json:"gstin,omitempty"`
	GSTScheme                    string          `json:"gst_scheme"`
	GSTRate                      decimal.Decimal `json:"gst_rate"`
	ServiceChargeRate            decimal.Decimal `json:"service_charge_rate"`
	ApplyServiceChargeToTakeaway bool            `json:"apply_service_charge_to_takeaway"`
	EnablePackagingCharge        bool            `json:"enable_packaging_charge"`
	DefaultPackagingCharge       decimal.Decimal `json:"default_packaging_charge"`
	Currency                     string          `json:"currency"`
	RoundingUnit                 decimal.Decimal `json:"rounding_unit"`
	InvoiceFooter                string          `json:"invoice_footer,omitempty"`
	UpdatedAt                    time.Time       `json:"updated_at"`
}

type BillListFilter struct {
	RestaurantID string
	From         time.Time
	To           time.Time
	Status       string
	Limit        int
}

type SummaryRequest struct {
	RestaurantID string `json:"restaurant_id"`
	From         string `json:"from"`
	To           string `json:"to"`
}

type SummaryOverview struct {
	ActiveBills        int             `json:"active_bills"`
	CancelledBills     int             `json:"cancelled_bills"`
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	AverageBillValue   decimal.Decimal `json:"average_bill_value"`
	TotalTaxCollected  decimal.Decimal `json:"total_tax_collected"`
	TotalCGST          decimal.Decimal `json:"total_cgst"`
	TotalSGST          decimal.Decimal `json:"total_sgst"`
	TotalServiceCharge decimal.Decimal `json:"total_service_charge"`
	TotalDiscount      decimal.Decimal `json:"total_discount"`
	TotalItemDiscounts decimal.Decimal `json:"total_item_discounts"`
	TotalBillDiscounts decimal.Decimal `json:"total_bill_discounts"`
}

type PaymentBucket struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type PaymentBreakdown struct {
	Cash  PaymentBucket `json:"cash"`
	Card  PaymentBucket `json:"card"`
	UPI   PaymentBucket `json:"upi"`
	Split PaymentBucket `json:"split"`
}

type PresetDiscountBucket struct {
	PresetID      string          `json:"preset_id"`
	Name          string          `json:"name"`
	Count         int             `json:"count"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
}

type DiscountBucket struct {
	Count         int             `json:"count"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
}

type DiscountBreakdown struct {
	Presets         []PresetDiscountBucket `json:"presets"`
	CustomDiscounts DiscountBucket         `json:"custom_discounts"`
}

type UnpaidSummary struct {
	Count    int             `json:"count"`
	TotalDue decimal.Decimal `json:"total_due"`
}

type Summary struct {
	RestaurantID      string            `json:"restaurant_id"`
	From              string            `json:"from"`
	To                string            `json:"to"`
	Overview          SummaryOverview   `json:"overview"`
	PaymentBreakdown  PaymentBreakdown  `json:"payment_breakdown"`
	DiscountBreakdown DiscountBreakdown `json:"discount_breakdown"`
	UnpaidBills       UnpaidSummary     `json:"unpaid_bills"`
	GeneratedAt       time.Time         `json:"generated_at"`
}

type ThermalInvoiceResponse struct {
	BillID       string `json:"bill_id"`
	EscposBase64 string `json:"escpos_base64"`
	PreviewText  string `json:"preview_text"`
	FileName     string `json:"file_name"`
}

type ArchiveResponse struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Bytes       int    `json:"bytes"`
}

const (
	EventBillCreated        = "bill.created"
	EventBillPaymentUpdated = "bill.payment_updated"
	EventBillCancelled      = "bill.cancelled"
)

// BillEvent is published after a bill mutation commits.
type BillEvent struct {
	Type          string          `json:"type"`
	RestaurantID  string          `json:"restaurant_id"`
	BillID        string          `json:"bill_id"`
	BillNumber    int64           `json:"bill_number"`
	PaymentStatus string          `json:"payment_status"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	Actor         string          `json:"actor,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	Role         string `json:"role"`
	RestaurantID string `json:"restaurant_id"`
	ExpiresAt    string `json:"expires_at"`
}

type Actor struct {
	Username     string
	Role         string
	RestaurantID string
}

type CashierCreateRequest struct {
	Username     string `json:"username" validate:"required,min=4,max=64,username"`
	Password     string `json:"password" validate:"required,min=6,max=72"`
	RestaurantID string `json:"restaurant_id" validate:"omitempty,max=64"`
}

type CashierUser struct {
	Username     string    `json:"username"`
	Role         string    `json:"role"`
	RestaurantID string    `json:"restaurant_id"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username     string
	Password     string
	Role         string
	RestaurantID string
	Active       bool
	CreatedAt    time.Time
}

type AuditLog struct {
	ID            string    `json:"id"`
	RestaurantID  string    `json:"restaurant_id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}
