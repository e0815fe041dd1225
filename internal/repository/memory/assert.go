package memory

import "github.com/fathima-sithara/moms/internal/repository"

var (
	_ repository.CredentialRepository   = (*CredentialRepo)(nil)
	_ repository.UserRepository         = (*UserRepo)(nil)
	_ repository.HouseRepository        = (*HouseRepo)(nil)
	_ repository.AgencyRepository       = (*AgencyRepo)(nil)
	_ repository.CatalogRepository      = (*CatalogRepo)(nil)
	_ repository.MenuRepository         = (*MenuRepo)(nil)
	_ repository.OrderRepository        = (*OrderRepo)(nil)
	_ repository.RequestRepository      = (*RequestRepo)(nil)
	_ repository.BillRepository         = (*BillRepo)(nil)
	_ repository.PaymentRepository      = (*PaymentRepo)(nil)
	_ repository.ChatRepository         = (*ChatRepo)(nil)
	_ repository.NotificationRepository = (*NotificationRepo)(nil)
)
