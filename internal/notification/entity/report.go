package entity

import (
	"time"

	"github.com/shandysiswandi/passgate/internal/pkg/valueobject"
)

type DeliveryStatus string

const (
	DeliveryStatusSuccess DeliveryStatus = "SUCCESS"
	DeliveryStatusFailed  DeliveryStatus = "FAILED"
)

func (s DeliveryStatus) String() string {
	return string(s)
}

// DeliveryReport records the outcome of one outbound message.
type DeliveryReport struct {
	ID        string
	Sender    string
	Recipient string
	Subject   string
	Status    DeliveryStatus
	Error     string
	// Metadata holds the dispatch id, attempt count and correlation id.
	Metadata  valueobject.JSONMap
	CreatedAt time.Time
}
