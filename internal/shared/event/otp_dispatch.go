// Package event holds the message contracts shared between modules.
package event

import "time"

// OTPDispatchTopic carries rendered passcode notifications to the notification module.
const OTPDispatchTopic string = "identity.otp.dispatch"

// OTPDispatchConsumerNotification is the consumer group of the notification module.
const OTPDispatchConsumerNotification string = "identity_otp_dispatch_notification"

// HeaderCorrelationID propagates the request correlation id.
const HeaderCorrelationID string = "cID"

// OTPDispatch is a notification ready to send. Body is already rendered.
type OTPDispatch struct {
	ID        string    `json:"id"`
	Recipient string    `json:"recipient"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
