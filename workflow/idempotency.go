package workflow

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"bitbucket.org/siddhisoft/distbooks_backend/models"
)

var ErrSubmissionInProgress = errors.New("submission in progress")

// staleClaimAge is how long a STARTED claim is trusted before another
// submitter may take it over, covering a crashed instance.
const staleClaimAge = 5 * time.Minute

// BeginSubmission claims the idempotency key for one submission
// attempt. (true, nil) means an identical submission already succeeded
// and the caller must skip without posting again.
func BeginSubmission(tx *gorm.DB, businessId, handlerName, messageId string) (skip bool, err error) {
	key := models.IdempotencyKey{
		BusinessId:  businessId,
		HandlerName: handlerName,
		MessageId:   messageId,
		Status:      models.IdempotencyStatusStarted,
	}
	if err := tx.Create(&key).Error; err == nil {
		return false, nil
	} else if !isDuplicateKeyErr(err) {
		return false, err
	}

	var existing models.IdempotencyKey
	if err := tx.Where("business_id = ? AND handler_name = ? AND message_id = ?", businessId, handlerName, messageId).
		First(&existing).Error; err != nil {
		return false, err
	}

	if existing.Status == models.IdempotencyStatusSucceeded {
		return true, nil
	}
	if existing.Status == models.IdempotencyStatusStarted && time.Since(existing.UpdatedAt) < staleClaimAge {
		// A live submitter holds the claim; the caller should retry later.
		return false, ErrSubmissionInProgress
	}
	// FAILED, or a stale STARTED claim: take it over.
	return false, tx.Model(&models.IdempotencyKey{}).
		Where("id = ?", existing.ID).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusStarted, "last_error": nil}).Error
}

func MarkSubmissionSucceeded(tx *gorm.DB, businessId, handlerName, messageId string) error {
	return tx.Model(&models.IdempotencyKey{}).
		Where("business_id = ? AND handler_name = ? AND message_id = ?", businessId, handlerName, messageId).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusSucceeded, "last_error": nil}).Error
}

func MarkSubmissionFailed(tx *gorm.DB, businessId, handlerName, messageId string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return tx.Model(&models.IdempotencyKey{}).
		Where("business_id = ? AND handler_name = ? AND message_id = ?", businessId, handlerName, messageId).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusFailed, "last_error": &msg}).Error
}
