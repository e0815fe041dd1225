package models

import "time"

type House struct {
	ID              string    `bson:"_id" json:"id"`
	AgencyID        string    `bson:"agency_id" json:"agencyId"`
	Name            string    `bson:"name" json:"name"`
	HouseAdminPhone string    `bson:"house_admin_phone" json:"houseAdminPhone"`
	MemberPhones    []string  `bson:"member_phones" json:"memberPhones"`
	SmallHouseID    string    `bson:"small_house_id,omitempty" json:"smallHouseId,omitempty"`
	Address         string    `bson:"address,omitempty" json:"address,omitempty"`
	CreatedAt       time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `bson:"updated_at" json:"updatedAt"`
}

// HasMember reports whether phone is listed as a member.
func (h *House) HasMember(phone string) bool {
	for _, p := range h.MemberPhones {
		if p == phone {
			return true
		}
	}
	return false
}

type AgencyStatus string

const (
	AgencyStatusPending   AgencyStatus = "pending"
	AgencyStatusActive    AgencyStatus = "active"
	AgencyStatusSuspended AgencyStatus = "suspended"
)

type Agency struct {
	ID            string              `bson:"_id" json:"id"`
	Name          string              `bson:"name" json:"name"`
	OwnerID       string              `bson:"owner_id" json:"ownerId"`
	OwnerPhone    string              `bson:"owner_phone" json:"ownerPhone"`
	Address       string              `bson:"address,omitempty" json:"address,omitempty"`
	Status        AgencyStatus        `bson:"status" json:"status"`
	SuspendReason string              `bson:"suspend_reason,omitempty" json:"suspendReason,omitempty"`
	CutoffTimes   map[MealType]string `bson:"cutoff_times" json:"cutoffTimes"`
	CreatedAt     time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time           `bson:"updated_at" json:"updatedAt"`
}
