package models

import "time"

type BillStatus string

const (
	BillDraft   BillStatus = "draft"
	BillIssued  BillStatus = "issued"
	BillPartial BillStatus = "partial"
	BillPaid    BillStatus = "paid"
	BillOverdue BillStatus = "overdue"
)

type BillLine struct {
	Date       string   `bson:"date" json:"date"`
	MealType   MealType `bson:"meal_type" json:"mealType"`
	MenuItemID string   `bson:"menu_item_id" json:"menuItemId"`
	Name       string   `bson:"name" json:"name"`
	Quantity   int      `bson:"quantity" json:"quantity"`
	UnitPrice  float64  `bson:"unit_price" json:"unitPrice"`
	Amount     float64  `bson:"amount" json:"amount"`
}

type Bill struct {
	ID          string     `bson:"_id" json:"id"`
	AgencyID    string     `bson:"agency_id" json:"agencyId"`
	HouseID     string     `bson:"house_id" json:"houseId"`
	HouseName   string     `bson:"house_name" json:"houseName"`
	PeriodStart string     `bson:"period_start" json:"periodStart"`
	PeriodEnd   string     `bson:"period_end" json:"periodEnd"`
	OrderIDs    []string   `bson:"order_ids" json:"orderIds"`
	Lines       []BillLine `bson:"lines" json:"lines"`
	TotalAmount float64    `bson:"total_amount" json:"totalAmount"`
	PaidAmount  float64    `bson:"paid_amount" json:"paidAmount"`
	Status      BillStatus `bson:"status" json:"status"`
	DueDate     time.Time  `bson:"due_date" json:"dueDate"`
	IssuedBy    string     `bson:"issued_by" json:"issuedBy"`
	CreatedAt   time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updatedAt"`
}

func (b *Bill) Remaining() float64 {
	r := b.TotalAmount - b.PaidAmount
	if r < 0 {
		return 0
	}
	return r
}

// EffectiveStatus reports overdue for unpaid bills past their due date.
func (b *Bill) EffectiveStatus(now time.Time) BillStatus {
	if (b.Status == BillIssued || b.Status == BillPartial) && !b.DueDate.IsZero() && now.After(b.DueDate) {
		return BillOverdue
	}
	return b.Status
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentConfirmed PaymentStatus = "confirmed"
	PaymentRejected  PaymentStatus = "rejected"
)

type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentUPI          PaymentMethod = "upi"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentOther        PaymentMethod = "other"
)

type Payment struct {
	ID            string        `bson:"_id" json:"id"`
	BillID        string        `bson:"bill_id" json:"billId"`
	AgencyID      string        `bson:"agency_id" json:"agencyId"`
	HouseID       string        `bson:"house_id" json:"houseId"`
	UserID        string        `bson:"user_id" json:"userId"`
	Amount        float64       `bson:"amount" json:"amount"`
	Method        PaymentMethod `bson:"method" json:"method"`
	TransactionID string        `bson:"transaction_id,omitempty" json:"transactionId,omitempty"`
	ScreenshotURL string        `bson:"screenshot_url" json:"screenshotUrl"`
	Notes         string        `bson:"notes,omitempty" json:"notes,omitempty"`
	Status        PaymentStatus `bson:"status" json:"status"`
	RejectReason  string        `bson:"reject_reason,omitempty" json:"rejectReason,omitempty"`
	DecidedBy     string        `bson:"decided_by,omitempty" json:"decidedBy,omitempty"`
	CreatedAt     time.Time     `bson:"created_at" json:"createdAt"`
	DecidedAt     *time.Time    `bson:"decided_at,omitempty" json:"decidedAt,omitempty"`
}
