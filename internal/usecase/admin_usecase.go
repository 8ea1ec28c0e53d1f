package usecase

import (
	"context"
	"fmt"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// 管理画面の1行（ユーザーとその注文）
type UserOrders struct {
	User   model.User
	Orders []model.Order
}

type AdminUsecase struct {
	users  repo.UserRepository
	orders repo.OrderRepository
}

func NewAdminUsecase(users repo.UserRepository, orders repo.OrderRepository) *AdminUsecase {
	return &AdminUsecase{users: users, orders: orders}
}

// 全ユーザーと注文。ユーザーはid昇順、注文は新しい順
func (u *AdminUsecase) Dashboard(ctx context.Context, actor *model.User) ([]UserOrders, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	users, err := u.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	out := make([]UserOrders, 0, len(users))
	for _, usr := range users {
		orders, err := u.orders.ListByUserID(ctx, usr.ID)
		if err != nil {
			return nil, fmt.Errorf("list orders of user %d: %w", usr.ID, err)
		}
		out = append(out, UserOrders{User: usr, Orders: orders})
	}
	return out, nil
}
