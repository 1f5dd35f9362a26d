package sources

import (
	"context"
	"encoding/json"

	"github.com/mbaxter/skimmer/internal/cache"
	"github.com/mbaxter/skimmer/internal/logging"
	"github.com/mbaxter/skimmer/internal/models"
	"github.com/mbaxter/skimmer/internal/ratelimit"
)

const detectCachePrefix = "detect:"

// Registry holds the known handlers in specificity order. Specific feed
// families are probed before the generic website fallback, which accepts
// almost any http(s) URL as a last resort.
type Registry struct {
	ordered []Handler
	byType  map[models.SourceType]Handler
	cache   cache.Cache
	logger  *logging.Logger
}

// NewRegistry creates an empty registry. The cache is optional and only
// short-circuits repeat detections of the same URL.
func NewRegistry(c cache.Cache, logger *logging.Logger) *Registry {
	return &Registry{
		byType: make(map[models.SourceType]Handler),
		cache:  c,
		logger: logger,
	}
}

// NewDefaultRegistry returns a registry with the built-in handlers
// registered in specificity order.
func NewDefaultRegistry(limiter *ratelimit.Limiter, cfg HandlerConfig, c cache.Cache, logger *logging.Logger) *Registry {
	r := NewRegistry(c, logger)
	r.Register(NewVideoChannelHandler(limiter, cfg))
	r.Register(NewVideoItemHandler(limiter, cfg))
	r.Register(NewPodcastHandler(limiter, cfg))
	r.Register(NewSyndicationHandler(limiter, cfg))
	r.Register(NewWebsiteHandler(limiter, cfg))
	return r
}

// Register adds a handler at the end of the probe order. Re-registering a
// handler for an existing type replaces it in place, keeping the order.
func (r *Registry) Register(h Handler) {
	if h == nil {
		return
	}
	if _, exists := r.byType[h.Type()]; exists {
		for i, existing := range r.ordered {
			if existing.Type() == h.Type() {
				r.ordered[i] = h
				break
			}
		}
	} else {
		r.ordered = append(r.ordered, h)
	}
	r.byType[h.Type()] = h
}

// Unregister removes the handler owning the given type; unknown types are
// a no-op.
func (r *Registry) Unregister(sourceType models.SourceType) {
	if _, exists := r.byType[sourceType]; !exists {
		return
	}
	delete(r.byType, sourceType)
	for i, h := range r.ordered {
		if h.Type() == sourceType {
			r.ordered = append(r.ordered[:i], r.ordered[i+1:]...)
			break
		}
	}
}

// Detect classifies a URL by probing handlers in order and returning the
// first positive result. A handler error never aborts the chain: it is
// logged and treated as "not detected".
func (r *Registry) Detect(ctx context.Context, rawURL string) models.DetectionResult {
	if cached, ok := r.cachedDetection(rawURL); ok {
		return cached
	}

	for _, h := range r.ordered {
		result, err := h.DetectURL(ctx, rawURL)
		if err != nil {
			if r.logger != nil {
				r.logger.Debug("Handler detection failed, falling through", logging.WithFields(map[string]interface{}{
					"handler": string(h.Type()),
					"url":     rawURL,
					"error":   err.Error(),
				}))
			}
			continue
		}
		if result.Detected {
			if result.SourceType == "" {
				result.SourceType = h.Type()
			}
			r.cacheDetection(rawURL, result)
			return result
		}
	}

	return models.DetectionResult{Detected: false}
}

// HandlerFor returns the handler owning a source type
func (r *Registry) HandlerFor(sourceType models.SourceType) (Handler, bool) {
	h, ok := r.byType[sourceType]
	return h, ok
}

// SupportedTypes lists owned types in probe order
func (r *Registry) SupportedTypes() []models.SourceType {
	types := make([]models.SourceType, 0, len(r.ordered))
	for _, h := range r.ordered {
		types = append(types, h.Type())
	}
	return types
}

// IsTypeSupported reports whether any handler owns the type
func (r *Registry) IsTypeSupported(sourceType models.SourceType) bool {
	_, ok := r.byType[sourceType]
	return ok
}

// FaviconURL resolves and caches a source icon through the owning handler
func (r *Registry) FaviconURL(ctx context.Context, sourceType models.SourceType, rawURL string) string {
	key := "favicon:" + models.NormalizeKey(rawURL)
	if r.cache != nil {
		if cached, ok := r.cache.Get(key); ok {
			if s, ok := cached.(string); ok {
				return s
			}
		}
	}

	h, ok := r.byType[sourceType]
	if !ok {
		return ""
	}
	icon := h.FaviconURL(ctx, rawURL)
	if icon != "" && r.cache != nil {
		r.cache.Set(key, icon)
	}
	return icon
}

func (r *Registry) cachedDetection(rawURL string) (models.DetectionResult, bool) {
	if r.cache == nil {
		return models.DetectionResult{}, false
	}
	cached, ok := r.cache.Get(detectCachePrefix + models.NormalizeKey(rawURL))
	if !ok || cached == nil {
		return models.DetectionResult{}, false
	}

	if result, ok := cached.(models.DetectionResult); ok {
		return result, true
	}

	// Redis round-trips values as generic JSON; re-decode into the result.
	raw, err := json.Marshal(cached)
	if err != nil {
		return models.DetectionResult{}, false
	}
	var result models.DetectionResult
	if err := json.Unmarshal(raw, &result); err != nil || !result.Detected {
		return models.DetectionResult{}, false
	}
	return result, true
}

func (r *Registry) cacheDetection(rawURL string, result models.DetectionResult) {
	if r.cache == nil {
		return
	}
	r.cache.Set(detectCachePrefix+models.NormalizeKey(rawURL), result)
}
