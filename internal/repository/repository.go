package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fathima-sithara/moms/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
	// ErrConflict means the record changed since it was read.
	ErrConflict = errors.New("record was modified concurrently")
)

type CredentialRepository interface {
	Create(ctx context.Context, c *models.Credential) error
	FindByIdentifier(ctx context.Context, identifier string) (*models.Credential, error)
	FindByID(ctx context.Context, id string) (*models.Credential, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	Delete(ctx context.Context, id string) error
}

type UserRepository interface {
	// Save inserts or replaces the profile keyed by its id.
	Save(ctx context.Context, u *models.Identity) error
	FindByID(ctx context.Context, id string) (*models.Identity, error)
	FindByPhone(ctx context.Context, phone string) (*models.Identity, error)
	ListByHouse(ctx context.Context, houseID string) ([]*models.Identity, error)
	ListByAgency(ctx context.Context, agencyID string, roles ...models.RoleName) ([]*models.Identity, error)
	CountByRole(ctx context.Context) (map[models.RoleName]int64, error)
}

type HouseRepository interface {
	Create(ctx context.Context, h *models.House) error
	Update(ctx context.Context, h *models.House) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*models.House, error)
	FindByMemberPhone(ctx context.Context, phone string) (*models.House, error)
	FindByAdminPhone(ctx context.Context, phone string) (*models.House, error)
	ListByAgency(ctx context.Context, agencyID string) ([]*models.House, error)
	Count(ctx context.Context) (int64, error)
}

type AgencyRepository interface {
	Create(ctx context.Context, a *models.Agency) error
	Update(ctx context.Context, a *models.Agency) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*models.Agency, error)
	FindByOwnerID(ctx context.Context, ownerID string) (*models.Agency, error)
	List(ctx context.Context, status models.AgencyStatus) ([]*models.Agency, error)
}

type CatalogRepository interface {
	Create(ctx context.Context, it *models.CatalogItem) error
	Update(ctx context.Context, it *models.CatalogItem) error
	Delete(ctx context.Context, agencyID, id string) error
	FindByID(ctx context.Context, agencyID, id string) (*models.CatalogItem, error)
	ListByAgency(ctx context.Context, agencyID string) ([]*models.CatalogItem, error)
}

type MenuRepository interface {
	Get(ctx context.Context, agencyID, date string) (*models.DailyMenu, error)
	Save(ctx context.Context, m *models.DailyMenu) error
	ListRange(ctx context.Context, agencyID, from, to string) ([]*models.DailyMenu, error)
}

type OrderRepository interface {
	Create(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	// Replace writes o only if the stored status is still prev.
	Replace(ctx context.Context, o *models.Order, prev models.OrderStatus) error
	ListByHouse(ctx context.Context, houseID string, f models.OrderFilter) ([]*models.Order, error)
	ListByUser(ctx context.Context, userID string, f models.OrderFilter) ([]*models.Order, error)
	ListByAgency(ctx context.Context, agencyID string, f models.OrderFilter) ([]*models.Order, error)
	ListUnbilled(ctx context.Context, houseID, from, to string) ([]*models.Order, error)
	// MarkBilled tags unbilled orders with billID and returns how many changed.
	MarkBilled(ctx context.Context, ids []string, billID string) (int64, error)
	ClearBill(ctx context.Context, billID string) error
}

type RequestRepository interface {
	Create(ctx context.Context, r *models.ManualRequest) error
	FindByID(ctx context.Context, id string) (*models.ManualRequest, error)
	Replace(ctx context.Context, r *models.ManualRequest, prev models.RequestStatus) error
	ListByHouse(ctx context.Context, houseID string, status models.RequestStatus) ([]*models.ManualRequest, error)
	ListByAgency(ctx context.Context, agencyID string, status models.RequestStatus) ([]*models.ManualRequest, error)
}

type BillRepository interface {
	Create(ctx context.Context, b *models.Bill) error
	FindByID(ctx context.Context, id string) (*models.Bill, error)
	Replace(ctx context.Context, b *models.Bill, prev time.Time) error
	ListByHouse(ctx context.Context, houseID string) ([]*models.Bill, error)
	ListByAgency(ctx context.Context, agencyID string) ([]*models.Bill, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, p *models.Payment) error
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	Replace(ctx context.Context, p *models.Payment, prev models.PaymentStatus) error
	ListByBill(ctx context.Context, billID string) ([]*models.Payment, error)
	ListByAgency(ctx context.Context, agencyID string, status models.PaymentStatus) ([]*models.Payment, error)
}

type ChatRepository interface {
	Insert(ctx context.Context, m *models.ChatMessage) error
	List(ctx context.Context, houseID string, limit int64, before time.Time) ([]*models.ChatMessage, error)
}

type NotificationRepository interface {
	// Create returns ErrDuplicate when the user already has a notification
	// for the same event.
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, limit int64) ([]*models.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) error
	CountUnread(ctx context.Context, userID string) (int64, error)
}
