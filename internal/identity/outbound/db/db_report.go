package db

import (
	"context"

	"github.com/shandysiswandi/passgate/internal/identity/entity"
)

const queryCreateDeliveryReport = `
INSERT INTO notification_delivery_reports
	(id, sender, recipient, subject, status, error, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

func (s *DB) CreateDeliveryReport(ctx context.Context, r entity.DeliveryReport) (err error) {
	ctx, cancel, span := s.startSpan(ctx, "CreateDeliveryReport")
	defer cancel()
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, queryCreateDeliveryReport,
		r.ID, r.Sender, r.Recipient, r.Subject, r.Status(), r.Error, r.Metadata, r.CreatedAt)

	return err
}
