package parse

import (
	"text2phenotype.com/psyctx/redis"
	"text2phenotype.com/psyctx/types"
	"encoding/json"
	"errors"
	"fmt"
)

// ParsesDB holds the docs written by the parser service.
const ParsesDB redis.DB = 3

type byteGetter interface {
	GetBytes(key string) ([]byte, error)
}

// RedisStore reads docs that the upstream parser stored under Key(text).
type RedisStore struct {
	client byteGetter
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (store *RedisStore) Parse(text string) (*types.Sentence, error) {
	b, err := store.client.GetBytes(Key(text))
	if errors.Is(err, redis.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrNotParsed, text)
	}
	if err != nil {
		return nil, err
	}
	var doc Doc
	if err = json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("malformed parse for %q: %w", text, err)
	}
	if doc.Text == "" {
		doc.Text = text
	}
	return Build(doc)
}
