// api/util/notification_service.go

package util

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	logger "github.com/labops/labportal/api/logging"
	"github.com/labops/labportal/api/model"
)

type NotificationService struct {
	// Dependencies such as a mail client would live here
}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

func (n *NotificationService) NotifyRequestChange(ctx context.Context, changeType string, request model.Request) error {
	switch changeType {
	case "submitted":
		logger.Info("NOTIFICATION: New request submitted",
			zap.String("requestID", request.ID),
			zap.String("kind", string(request.Kind)),
			zap.String("requestedBy", request.RequestedBy))
	case "completed":
		logger.Info("NOTIFICATION: Request completed",
			zap.String("requestID", request.ID),
			zap.String("kind", string(request.Kind)))
	case "failed":
		logger.Info("NOTIFICATION: Request failed",
			zap.String("requestID", request.ID),
			zap.String("reason", request.FailureReason))
	case "cancelled":
		logger.Info("NOTIFICATION: Request cancelled",
			zap.String("requestID", request.ID))
	default:
		return fmt.Errorf("unknown change type: %s", changeType)
	}

	// Here you would implement the actual notification logic
	// This could involve sending messages to a queue, calling an external API, etc.

	return nil
}

func (n *NotificationService) SendEmail(ctx context.Context, recipient, subject, body string) error {
	// Mock email sending
	logger.Info("Sending email",
		zap.String("recipient", recipient),
		zap.String("subject", subject))

	return nil
}

func (n *NotificationService) NotifyAdmins(ctx context.Context, message string) error {
	logger.Info("Notifying admins", zap.String("message", message))
	return nil
}

func (n *NotificationService) NotifySystemChange(ctx context.Context, changeType string, system model.System) error {
	logger.Info("Notifying system change",
		zap.String("changeType", changeType),
		zap.String("systemID", system.ID),
		zap.String("systemName", system.Name))
	return nil
}

func (n *NotificationService) NotifyAccountChange(ctx context.Context, changeType string, account model.Account) error {
	logger.Info("Notifying account change",
		zap.String("changeType", changeType),
		zap.String("accountID", account.ID),
		zap.String("login", account.Login))
	return nil
}

func (n *NotificationService) NotifyJobChange(ctx context.Context, changeType string, job model.Job) error {
	logger.Info("Notifying job change",
		zap.String("changeType", changeType),
		zap.String("jobID", job.ID),
		zap.String("status", string(job.Status)))
	return nil
}

func (n *NotificationService) NotifyPlatformUserChange(ctx context.Context, changeType string, user model.PlatformUser) error {
	logger.Info("Notifying platform user change",
		zap.String("changeType", changeType),
		zap.String("userID", user.ID),
		zap.String("username", user.Username))
	return nil
}
