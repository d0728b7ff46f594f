package model

import "time"

// ResourceClass identifies one independently metered trial resource.
type ResourceClass string

const (
	ResourceArticles ResourceClass = "articles"
	ResourceTopics   ResourceClass = "topics"
	ResourceImages   ResourceClass = "images"
)

// UsageRecord holds the per-token consumption counters. Counters only move
// up except on an explicit reset.
type UsageRecord struct {
	ArticlesGenerated  int        `json:"articles_generated"`
	TopicDiscoveryRuns int        `json:"topic_discovery_runs"`
	ImagesGenerated    int        `json:"images_generated"`
	LastReset          *time.Time `json:"last_reset,omitempty"`
}

func (r *UsageRecord) Count(class ResourceClass) int {
	switch class {
	case ResourceArticles:
		return r.ArticlesGenerated
	case ResourceTopics:
		return r.TopicDiscoveryRuns
	case ResourceImages:
		return r.ImagesGenerated
	}
	return 0
}

func (r *UsageRecord) Add(class ResourceClass, units int) {
	switch class {
	case ResourceArticles:
		r.ArticlesGenerated += units
	case ResourceTopics:
		r.TopicDiscoveryRuns += units
	case ResourceImages:
		r.ImagesGenerated += units
	}
}
