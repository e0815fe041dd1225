package models

import "time"

type OrderStatus string

const (
	OrderPlaced    OrderStatus = "placed"
	OrderConfirmed OrderStatus = "confirmed"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPlaced:    {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderPreparing, OrderCancelled},
	OrderPreparing: {OrderReady},
	OrderReady:     {OrderDelivered},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	for _, s := range orderTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type OrderType string

const (
	OrderTypeNormal         OrderType = "normal"
	OrderTypeManualApproved OrderType = "manual_approved"
)

type OrderItem struct {
	MenuItemID   string  `bson:"menu_item_id" json:"menuItemId"`
	Name         string  `bson:"name" json:"name"`
	Quantity     int     `bson:"quantity" json:"quantity"`
	PriceAtOrder float64 `bson:"price_at_order" json:"priceAtOrder"`
}

type StatusChange struct {
	Status OrderStatus `bson:"status" json:"status"`
	By     string      `bson:"by" json:"by"`
	At     time.Time   `bson:"at" json:"at"`
}

type Order struct {
	ID           string         `bson:"_id" json:"id"`
	HouseID      string         `bson:"house_id" json:"houseId"`
	AgencyID     string         `bson:"agency_id" json:"agencyId"`
	UserID       string         `bson:"user_id" json:"userId"`
	UserName     string         `bson:"user_name" json:"userName"`
	Date         string         `bson:"date" json:"date"`
	MealType     MealType       `bson:"meal_type" json:"mealType"`
	Items        []OrderItem    `bson:"items" json:"items"`
	Type         OrderType      `bson:"type" json:"type"`
	Status       OrderStatus    `bson:"status" json:"status"`
	Total        float64        `bson:"total" json:"total"`
	CancelReason string         `bson:"cancel_reason,omitempty" json:"cancelReason,omitempty"`
	BillID       string         `bson:"bill_id,omitempty" json:"billId,omitempty"`
	History      []StatusChange `bson:"history" json:"history"`
	CreatedAt    time.Time      `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time      `bson:"updated_at" json:"updatedAt"`
}

// ItemsTotal sums quantity × priceAtOrder.
func ItemsTotal(items []OrderItem) float64 {
	var sum float64
	for _, it := range items {
		sum += float64(it.Quantity) * it.PriceAtOrder
	}
	return sum
}

// OrderFilter narrows order listings. Zero values match everything.
type OrderFilter struct {
	Date     string
	From     string
	To       string
	MealType MealType
	Status   OrderStatus
	Limit    int64
}

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// ManualRequest records consumption outside the normal order flow, pending
// approval by the house admin.
type ManualRequest struct {
	ID           string        `bson:"_id" json:"id"`
	HouseID      string        `bson:"house_id" json:"houseId"`
	AgencyID     string        `bson:"agency_id" json:"agencyId"`
	UserID       string        `bson:"user_id" json:"userId"`
	UserName     string        `bson:"user_name" json:"userName"`
	Date         string        `bson:"date" json:"date"`
	MealType     MealType      `bson:"meal_type" json:"mealType"`
	Items        []OrderItem   `bson:"items" json:"items"`
	Notes        string        `bson:"notes,omitempty" json:"notes,omitempty"`
	Status       RequestStatus `bson:"status" json:"status"`
	RejectReason string        `bson:"reject_reason,omitempty" json:"rejectReason,omitempty"`
	OrderID      string        `bson:"order_id,omitempty" json:"orderId,omitempty"`
	DecidedBy    string        `bson:"decided_by,omitempty" json:"decidedBy,omitempty"`
	CreatedAt    time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time     `bson:"updated_at" json:"updatedAt"`
}
