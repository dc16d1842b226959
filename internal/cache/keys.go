package cache

import (
	"strconv"

	"github.com/happyheadlines/headlines-backend/internal/models"
)

// CommentLRUKey is the single LRU touch index shared by all comment lists.
const CommentLRUKey = "comments:lru"

// CommentLRUSeqKey holds the counter that scores CommentLRUKey touches.
const CommentLRUSeqKey = "comments:lru:seq"

// ArticleKey is the key of one cached article in a shard.
func ArticleKey(shard models.Shard, id int64) string {
	return articleKey(shard, strconv.FormatInt(id, 10))
}

// ArticleRecentKey is the key of a shard's recency index.
func ArticleRecentKey(shard models.Shard) string {
	return "article:" + shard.Name() + ":recent"
}

// CommentKey is the key of an article's cached comment list.
func CommentKey(articleID int64) string {
	return commentKey(strconv.FormatInt(articleID, 10))
}

func articleKey(shard models.Shard, member string) string {
	return "article:" + shard.Name() + ":" + member
}

func commentKey(member string) string {
	return "comments:article:" + member
}

func member(id int64) string {
	return strconv.FormatInt(id, 10)
}
