package service

import (
	"context"
	"fmt"

	config "github.com/codenberg/socialflow/configs"
	"github.com/codenberg/socialflow/internal/models"
	"github.com/codenberg/socialflow/internal/repository"
	"github.com/codenberg/socialflow/internal/transfer"
)

type SubscriptionService interface {
	HandleSubscription(ctx context.Context, payload *transfer.SubscriptionEvent) error
}

type subscriptionService struct {
	cfg config.Config
	u   repository.UserRepository
	s   repository.SubscriptionRepository
}

func NewSubscriptionService(cfg config.Config, u repository.UserRepository, s repository.SubscriptionRepository) SubscriptionService {
	return &subscriptionService{
		cfg: cfg,
		u:   u,
		s:   s,
	}
}

func (s *subscriptionService) HandleSubscription(ctx context.Context, payload *transfer.SubscriptionEvent) error {
	switch payload.EventType {
	case "subscription.paid":
		customerEmail := payload.Object.Customer.Email

		user, isExist, err := s.u.GetByEmail(ctx, customerEmail)
		if err != nil {
			return fmt.Errorf("fetching user by email failed: %w", err)
		}

		subscriptionInfo := &models.Subscription{
			SubscriptionID:      payload.Object.ID,
			SubscriptionEndDate: payload.Object.CurrentPeriodEndDate,
			Status:              payload.Object.Status,
		}

		if !isExist {
			newUser := &models.User{
				Email: customerEmail,
				Name:  payload.Object.Customer.Name,
				Role:  models.UserRoleClient,
			}
			userID, err := s.u.Create(ctx, nil, newUser)
			if err != nil {
				return err
			}

			subscriptionInfo.UserID = userID
			if _, err := s.s.Create(ctx, subscriptionInfo); err != nil {
				return err
			}
		} else {
			subscriptionInfo.UserID = user.ID

			existing, err := s.s.GetByUserID(ctx, user.ID)
			if err != nil {
				return err
			}
			if existing == nil {
				if _, err := s.s.Create(ctx, subscriptionInfo); err != nil {
					return err
				}
			} else if err := s.s.UpdateSubscription(ctx, subscriptionInfo); err != nil {
				return err
			}
		}

	case "subscription.canceled":
		user, isExist, err := s.u.GetByEmail(ctx, payload.Object.Customer.Email)
		if err != nil {
			return fmt.Errorf("fetching user by email failed: %w", err)
		}
		if !isExist {
			return nil
		}

		subscriptionInfo := &models.Subscription{
			UserID:              user.ID,
			SubscriptionID:      payload.Object.ID,
			SubscriptionEndDate: payload.Object.CurrentPeriodEndDate,
			Status:              payload.Object.Status,
		}
		if err := s.s.UpdateSubscription(ctx, subscriptionInfo); err != nil {
			return err
		}
	}

	return nil
}
