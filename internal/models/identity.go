package models

import "time"

type UserStatus string

const (
	UserStatusPending   UserStatus = "pending"
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

// NotificationSettings controls delivery channels beyond the in-app feed.
type NotificationSettings struct {
	SMS bool `bson:"sms" json:"sms"`
}

// Identity is the profile document of a signed-up user.
type Identity struct {
	ID            string               `bson:"_id" json:"id"`
	Phone         string               `bson:"phone" json:"phone"`
	Name          string               `bson:"name" json:"name"`
	Role          RoleName             `bson:"role" json:"role"`
	Status        UserStatus           `bson:"status" json:"status"`
	AgencyID      string               `bson:"agency_id,omitempty" json:"agencyId,omitempty"`
	HouseID       string               `bson:"house_id,omitempty" json:"houseId,omitempty"`
	SmallHouseID  string               `bson:"small_house_id,omitempty" json:"smallHouseId,omitempty"`
	Notifications NotificationSettings `bson:"notifications" json:"notifications"`
	CreatedAt     time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updated_at" json:"updatedAt"`
}

// ResolvedRole parses the stored role name.
func (i *Identity) ResolvedRole() (Role, error) {
	return ParseRole(i.Role)
}

// Credential is the sign-in secret for an identity. It shares the identity id
// but lives in its own collection so a profile can be missing (orphaned
// credential) without losing the ability to sign in.
type Credential struct {
	ID           string    `bson:"_id" json:"id"`
	Identifier   string    `bson:"identifier" json:"identifier"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	CreatedAt    time.Time `bson:"created_at" json:"createdAt"`
}

// AuthTokens is returned to the client on sign-in and refresh.
type AuthTokens struct {
	SessionID        string    `json:"sessionId"`
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
