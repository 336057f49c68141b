package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"gorm.io/gorm"

	"bitbucket.org/siddhisoft/distbooks_backend/config"
)

const submissionLockTTL = 30 * time.Second

// AcquireSubmissionLock serializes voucher submission per business.
// Two layers: a redis lock fences instances early and cheaply, and a
// MySQL advisory lock is the authority since redis may be absent.
// GET_LOCK is connection-scoped, so tx must be the same *gorm.DB that
// runs the submission transaction. The returned release func is safe
// to call once, in a defer.
func AcquireSubmissionLock(ctx context.Context, tx *gorm.DB, businessId string) (func(), error) {
	var redLock *redislock.Lock
	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, "submission:"+businessId, submissionLockTTL, &redislock.Options{
			RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(250*time.Millisecond), 40),
		})
		if err != nil {
			return nil, fmt.Errorf("could not acquire submission lock for business_id=%s: %w", businessId, err)
		}
		redLock = lock
	}

	lockName := fmt.Sprintf("submission:%s", businessId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		releaseRedisLock(ctx, redLock)
		return nil, err
	}
	if ok != 1 {
		releaseRedisLock(ctx, redLock)
		return nil, fmt.Errorf("could not acquire submission lock for business_id=%s", businessId)
	}

	return func() {
		var released int
		_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&released).Error
		releaseRedisLock(ctx, redLock)
	}, nil
}

func releaseRedisLock(ctx context.Context, lock *redislock.Lock) {
	if lock == nil {
		return
	}
	_ = lock.Release(ctx)
}
