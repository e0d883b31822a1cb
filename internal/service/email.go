package service

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"station-rental-backend/internal/logger"
)

type emailService struct {
	apiKey    string
	fromEmail string
	fromName  string
}

func NewEmailService(apiKey, fromEmail, fromName string) EmailService {
	return &emailService{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (s *emailService) SendBookingConfirmation(ctx context.Context, email, name string, bookingID int32, totalCents, depositCents int64, currency string) error {
	subject := fmt.Sprintf("Booking #%d confirmed", bookingID)
	plainText := fmt.Sprintf(
		"Hi %s,\n\nYour booking #%d is confirmed. Total: %s %s, deposit paid: %s %s.\n\nSee you at the station!",
		name, bookingID, fmtCents(totalCents), currency, fmtCents(depositCents), currency)
	htmlContent := fmt.Sprintf(`
		<html>
			<body>
				<h2>Booking Confirmed</h2>
				<p>Hi %s, your booking <strong>#%d</strong> is confirmed.</p>
				<p>Total: <strong>%s %s</strong><br>Deposit paid: <strong>%s %s</strong></p>
				<p>See you at the station!</p>
			</body>
		</html>
	`, name, bookingID, fmtCents(totalCents), currency, fmtCents(depositCents), currency)

	return s.send(email, name, subject, plainText, htmlContent)
}

func (s *emailService) SendSettlementNotice(ctx context.Context, email, name string, rentalID int32, amountCents int64, direction SettlementDirection, currency string) error {
	subject := fmt.Sprintf("Rental #%d completed", rentalID)

	var line string
	switch direction {
	case DirectionRefundDue:
		line = fmt.Sprintf("Your deposit exceeded the final charges; a refund of %s %s is on its way.", fmtCents(-amountCents), currency)
	default:
		line = "Your charges are fully settled. Thank you for riding with us!"
	}

	plainText := fmt.Sprintf("Hi %s,\n\nYour rental #%d is complete. %s", name, rentalID, line)
	htmlContent := fmt.Sprintf(`
		<html>
			<body>
				<h2>Rental Completed</h2>
				<p>Hi %s, your rental <strong>#%d</strong> is complete.</p>
				<p>%s</p>
			</body>
		</html>
	`, name, rentalID, line)

	return s.send(email, name, subject, plainText, htmlContent)
}

func (s *emailService) send(to, toName, subject, plainText, htmlContent string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail(toName, to)
	message := mail.NewSingleEmail(from, subject, recipient, plainText, htmlContent)

	logger.ExternalServiceCall("sendgrid", "send", "subject", subject)
	client := sendgrid.NewSendClient(s.apiKey)
	response, err := client.Send(message)
	logger.ExternalServiceResult("sendgrid", "send", err, "subject", subject)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	return nil
}
