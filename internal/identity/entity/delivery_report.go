package entity

import (
	"time"

	"github.com/shandysiswandi/passgate/internal/pkg/valueobject"
)

// DeliveryReport is the outcome of one inline SMTP delivery. It lands in the
// same table as the notification module's reports.
type DeliveryReport struct {
	ID        string
	Sender    string
	Recipient string
	Subject   string
	Succeeded bool
	Error     string
	Metadata  valueobject.JSONMap
	CreatedAt time.Time
}

// Status is the stored status column: SUCCESS or FAILED.
func (r DeliveryReport) Status() string {
	if r.Succeeded {
		return "SUCCESS"
	}
	return "FAILED"
}
