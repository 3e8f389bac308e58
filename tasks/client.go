package tasks

import (
	"text2phenotype.com/psyctx/redis"
	"fmt"
)

type Client struct {
	Documents DocumentTasks
	Chunks    ChunkTasks
	Jobs      JobTasks
}

// NewClient opens one Redis connection per task database.
func NewClient() (Client, error) {
	clients := make(map[redis.DB]*redis.Client, 3)
	for _, db := range []redis.DB{DocumentsDB, JobsDB, ChunksDB} {
		client, err := redis.NewClient(db)
		if err != nil {
			for _, opened := range clients {
				_ = opened.Close()
			}
			return Client{}, fmt.Errorf("redis db %d: %w", db, err)
		}
		clients[db] = &client
	}
	return Client{
		Documents: DocumentTasks{client: clients[DocumentsDB]},
		Jobs:      JobTasks{client: clients[JobsDB]},
		Chunks:    ChunkTasks{client: clients[ChunksDB]},
	}, nil
}

func (client *Client) Close() {
	_ = client.Chunks.client.Close()
	_ = client.Documents.client.Close()
	_ = client.Jobs.client.Close()
}

func cachedPropertiesKey(redisKey string) string {
	return fmt.Sprintf("%s-cached-properties", redisKey)
}
