package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cinereserve/booking-engine/internal/repository"
	"github.com/cinereserve/booking-engine/internal/service"
	"github.com/cinereserve/booking-engine/internal/utils"
)

// signatureHeader carries the provider's HMAC-SHA256 signature over
// the raw request body, hex encoded.
const signatureHeader = "X-Webhook-Signature"

// WebhookHandler accepts payment notifications from the payment
// provider. The provider authenticates with a shared-secret signature
// rather than a JWT, and confirms bookings on behalf of their owners.
type WebhookHandler struct {
	secret        string
	bookings      service.BookingStore
	confirmations Confirmer
}

// NewWebhookHandler constructs a WebhookHandler. The secret must be
// non-empty; an unsigned webhook endpoint would let anyone confirm
// bookings without paying.
func NewWebhookHandler(secret string, bookings service.BookingStore, confirmations Confirmer) *WebhookHandler {
	if secret == "" {
		panic("empty secret passed to NewWebhookHandler")
	}
	if bookings == nil || confirmations == nil {
		panic("nil dependency passed to NewWebhookHandler")
	}
	return &WebhookHandler{secret: secret, bookings: bookings, confirmations: confirmations}
}

// webhookBody is the provider's payment notification payload.
type webhookBody struct {
	BookingID     uint64  `json:"booking_id" validate:"required"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	Provider      string  `json:"provider" validate:"required"`
	TransactionID string  `json:"transaction_id" validate:"required"`
}

// HandlePayment handles POST /v1/payments/webhook. The signature is
// verified against the raw body before any parsing. Duplicate
// deliveries return 200 like the first one did; returning an error
// would only make the provider retry forever.
func (h *WebhookHandler) HandlePayment(c echo.Context) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
	}
	if !utils.VerifyWebhookSignature(h.secret, raw, c.Request().Header.Get(signatureHeader)) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid signature"})
	}

	var body webhookBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}
	if err := validate.Struct(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	// The webhook carries no user identity; the booking's recorded
	// owner is the user the payment settles for.
	booking, err := h.bookings.GetByID(c.Request().Context(), body.BookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	res, err := h.confirmations.Confirm(c.Request().Context(), service.ConfirmRequest{
		BookingID:     body.BookingID,
		UserID:        booking.UserID,
		PaidAmount:    body.Amount,
		Provider:      body.Provider,
		TransactionID: body.TransactionID,
	})
	if err != nil {
		return confirmationError(c, err)
	}
	if res.Replayed {
		return c.JSON(http.StatusOK, echo.Map{"booking_id": body.BookingID, "replayed": true})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking_id": res.Booking.ID,
		"status":     res.Booking.Status,
	})
}
