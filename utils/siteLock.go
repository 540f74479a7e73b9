package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/capex_backend/config"
	"github.com/bsm/redislock"
)

// SiteLock serializes submission and promotion per site across processes.
// The staging tables are exclusively owned for the duration of one
// transaction; this is the cross-process half of that guarantee.
// Callers must invoke the returned release func on every exit path.
func SiteLock(ctx context.Context, site string, lockType string, moduleName string, functionName string) (func(), error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		// Redis not configured: single-process deployments still work,
		// operations just run without the cross-process lock.
		return func() {}, nil
	}

	lockKey := fmt.Sprintf("%s:%s", lockType, site)
	lock, err := locker.Obtain(ctx, lockKey, 5*time.Minute, nil)
	if err == redislock.ErrNotObtained {
		config.LogError(logger, moduleName, functionName, "Could not obtain lock for site", site, err)
		return nil, errors.New("another submission is in progress for this site")
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "Error obtaining lock for site", site, err)
		return nil, err
	}

	return func() {
		_ = lock.Release(ctx)
	}, nil
}
