package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/dgnotes/internal/cache"
	appErrors "github.com/charlesng35/dgnotes/pkg/errors"
	"github.com/charlesng35/dgnotes/pkg/response"
)

const (
	sourcePersistent = "persistent"
	sourceTTL        = "ttl"
)

// CacheHandler exposes the persistent and TTL caches over HTTP.
type CacheHandler struct {
	persistent *cache.Persistent
	ttl        *cache.TTL
}

// NewCacheHandler constructs a cache handler.
func NewCacheHandler(persistent *cache.Persistent, ttl *cache.TTL) *CacheHandler {
	return &CacheHandler{persistent: persistent, ttl: ttl}
}

// GetPersistent returns the value stored under :key.
func (h *CacheHandler) GetPersistent(c *gin.Context) {
	key, ok := cacheKey(c)
	if !ok {
		return
	}

	var value json.RawMessage
	found, err := h.persistent.Load(c.Request.Context(), key, &value)
	if err != nil {
		response.Error(c, appErrors.ErrStorageUnavailable.WithInternal(err))
		return
	}
	if !found {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, value, &response.Meta{Source: sourcePersistent})
}

// PutPersistent stores the JSON body under :key.
func (h *CacheHandler) PutPersistent(c *gin.Context) {
	key, ok := cacheKey(c)
	if !ok {
		return
	}
	value, ok := bindRawJSON(c)
	if !ok {
		return
	}

	if err := h.persistent.Store(c.Request.Context(), key, value); err != nil {
		response.Error(c, appErrors.ErrStorageUnavailable.WithInternal(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"key": key})
}

// DeletePersistent removes :key. Removing a missing key succeeds.
func (h *CacheHandler) DeletePersistent(c *gin.Context) {
	key, ok := cacheKey(c)
	if !ok {
		return
	}
	h.persistent.Remove(c.Request.Context(), key)
	response.Success(c, http.StatusOK, gin.H{"key": key, "deleted": true})
}

// GetTTL returns the value under :key when it is fresh for ?ttl_minutes.
func (h *CacheHandler) GetTTL(c *gin.Context) {
	key, ok := cacheKey(c)
	if !ok {
		return
	}
	ttlMinutes := parseIntQuery(c, "ttl_minutes", h.ttl.DefaultTTL())

	var value json.RawMessage
	found, err := h.ttl.Load(c.Request.Context(), key, ttlMinutes, &value)
	if err != nil {
		response.Error(c, appErrors.ErrStorageUnavailable.WithInternal(err))
		return
	}
	if !found {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, value, &response.Meta{Source: sourceTTL, TTLMinutes: ttlMinutes})
}

// PutTTL stores the JSON body under :key stamped with the current time.
func (h *CacheHandler) PutTTL(c *gin.Context) {
	key, ok := cacheKey(c)
	if !ok {
		return
	}
	value, ok := bindRawJSON(c)
	if !ok {
		return
	}

	if err := h.ttl.Store(c.Request.Context(), key, value); err != nil {
		response.Error(c, appErrors.ErrStorageUnavailable.WithInternal(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"key": key})
}

// PatchTTL merges the JSON object body into the fresh object under :key.
func (h *CacheHandler) PatchTTL(c *gin.Context) {
	key, ok := cacheKey(c)
	if !ok {
		return
	}
	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil || patch == nil {
		response.Error(c, appErrors.NewBadRequest("body must be a JSON object"))
		return
	}
	ttlMinutes := parseIntQuery(c, "ttl_minutes", h.ttl.DefaultTTL())

	if err := h.ttl.Merge(c.Request.Context(), key, ttlMinutes, patch); err != nil {
		response.Error(c, appErrors.ErrStorageUnavailable.WithInternal(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"key": key})
}

func cacheKey(c *gin.Context) (string, bool) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		response.Error(c, appErrors.NewBadRequest("key is required"))
		return "", false
	}
	return key, true
}

func bindRawJSON(c *gin.Context) (json.RawMessage, bool) {
	var value json.RawMessage
	if err := c.ShouldBindJSON(&value); err != nil || len(value) == 0 {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return nil, false
	}
	return value, true
}
