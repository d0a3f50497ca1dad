package enrollment

import (
	"context"
	"errors"

	"github.com/ShahriarTWS/TutorHub-Client/internal/apiclient"
	"github.com/ShahriarTWS/TutorHub-Client/internal/entity"
)

type Repository interface {
	FindByEmail(ctx context.Context, email string) ([]entity.Payment, error)
	// CreateFree records an enrollment that needs no payment.
	CreateFree(ctx context.Context, payment *entity.Payment) error
	// CreatePaymentIntent starts a card payment and returns its client secret.
	CreatePaymentIntent(ctx context.Context, amount float64) (string, error)
	StorePayment(ctx context.Context, payment *entity.Payment) error
}

type repository struct {
	client *apiclient.Client
}

func NewRepository(client *apiclient.Client) Repository {
	return &repository{client: client}
}

func (r *repository) FindByEmail(ctx context.Context, email string) ([]entity.Payment, error) {
	var payments []entity.Payment
	if err := r.client.Get(ctx, apiclient.Path("payments", "user", email), &payments); err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []entity.Payment{}
	}
	return payments, nil
}

func (r *repository) CreateFree(ctx context.Context, payment *entity.Payment) error {
	return r.client.Post(ctx, "/payments", payment, nil)
}

func (r *repository) CreatePaymentIntent(ctx context.Context, amount float64) (string, error) {
	var res struct {
		ClientSecret string `json:"clientSecret"`
	}
	if err := r.client.Post(ctx, "/payments/create-payment-intent", map[string]float64{"amount": amount}, &res); err != nil {
		return "", err
	}
	if res.ClientSecret == "" {
		return "", errors.New("payment provider returned no client secret")
	}
	return res.ClientSecret, nil
}

func (r *repository) StorePayment(ctx context.Context, payment *entity.Payment) error {
	return r.client.Post(ctx, "/payments/store-payment", payment, nil)
}
