package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// TestResultKey is the local fallback copy of a student's result, keyed by testId.
func (r *CacheKeyStruct) TestResultKey(testID, email string) string {
	return fmt.Sprintf("result:%s:%s", testID, email)
}

// LastResultKey points at the most recent result stored for a test on this deployment.
func (r *CacheKeyStruct) LastResultKey(testID string) string {
	return fmt.Sprintf("result:%s:latest", testID)
}

// TestMonitorChannel returns the Redis PubSub channel name for a test monitor
func (r *CacheKeyStruct) TestMonitorChannel(testID string) string {
	return fmt.Sprintf("test:%s:monitor", testID)
}

var CacheKey = NewCacheKeyStruct()
