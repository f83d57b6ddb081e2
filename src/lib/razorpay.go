package lib

import (
	"fmt"
	"log"
	"os"
	"time"
	"wanderlust/src/config"
	"wanderlust/src/types"

	razorpay "github.com/razorpay/razorpay-go"
)

// OrderClient is the slice of the processor API the booking flow consumes.
type OrderClient interface {
	CreateOrder(amountMinor int64, currency string, receipt string) (map[string]any, error)
}

type razorpayOrderClient struct {
	inner *razorpay.Client
}

func (r *razorpayOrderClient) CreateOrder(amountMinor int64, currency string, receipt string) (map[string]any, error) {
	data := map[string]any{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
	}
	return r.inner.Order.Create(data, nil)
}

var orderClient OrderClient

func GetOrderClient() OrderClient {
	if orderClient != nil {
		return orderClient
	}
	keyId := os.Getenv("RAZORPAY_KEY_ID")
	keySecret := os.Getenv("RAZORPAY_KEY_SECRET")
	rc := razorpay.NewClient(keyId, keySecret)
	orderClient = &razorpayOrderClient{inner: rc}
	return orderClient
}

// NewOrderClient Replace processor instance with custom client implementation
func NewOrderClient(c OrderClient) OrderClient {
	orderClient = c
	return orderClient
}

// ToMinorUnits converts an amount in the listing's base currency unit to the
// processor's smallest unit (paise for INR).
func ToMinorUnits(amount int64) int64 {
	return amount * config.MINOR_UNIT_FACTOR
}

// NewReceiptLabel is unique enough for audit display; collisions across
// restarts are acceptable per the processor's receipt semantics.
func NewReceiptLabel() string {
	return fmt.Sprintf("receipt_%d", time.Now().UnixMilli())
}

func CreateOrder(amount int64, currency string) (map[string]any, error) {
	c := GetOrderClient()
	order, err := c.CreateOrder(ToMinorUnits(amount), currency, NewReceiptLabel())
	if err != nil {
		log.Printf("[razorpay] Error creating order: %s\n", err.Error())
		return nil, fmt.Errorf("%w: %s", types.ErrPaymentProvider, err.Error())
	}
	return order, nil
}
