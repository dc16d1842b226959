// Package cache is the sharded read-through cache layer in front of the per-shard article stores
// and the comment store. State lives in Redis:
//
//	article:{shard}:{id}     JSON ArticleEntry, TTL
//	article:{shard}:recent   sorted set, member=id score=publish unix seconds
//	comments:article:{id}    JSON []CommentEntry (whole list, newest first), TTL
//	comments:lru             sorted set, member=article id score=last touch unix millis
//
// Every cache has a Redis implementation and a NoOp implementation selected once at startup.
// Misses, corruption and refusals are reported through Lookup and Status, never as errors;
// errors always mean the store itself could not be reached or answered badly.
package cache
