package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key for a user's login session
func (r *CacheKeyStruct) UserSessionKey(userID int) string {
	return fmt.Sprintf("login:%d", userID)
}

// SessionStartKey returns the cache key for a practice session's start time
func (r *CacheKeyStruct) SessionStartKey(sessionID string) string {
	return fmt.Sprintf("practice:%s:started_at", sessionID)
}

// HistoryKey returns the cache key for a user's bounded result history
func (r *CacheKeyStruct) HistoryKey(userID int) string {
	return fmt.Sprintf("user:%d:history", userID)
}

// WritingDraftKey returns the cache key for a user's autosaved essay draft
func (r *CacheKeyStruct) WritingDraftKey(userID int) string {
	return fmt.Sprintf("user:%d:writing_draft", userID)
}

// PromptKey returns the cache key for the active prompt of an exercise kind
func (r *CacheKeyStruct) PromptKey(kind string) string {
	return fmt.Sprintf("prompt:%s:active", kind)
}

var CacheKey = NewCacheKeyStruct()
