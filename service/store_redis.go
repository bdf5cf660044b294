package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/Srijanomar3094/parser-server/model"
)

const contractKeyPrefix = "contract:"

// RedisStore keeps each contract record as a JSON value. Records are
// kept without expiry; failed records stay queryable.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(ctx context.Context, rdb *redis.Client) (*RedisStore, error) {
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) Create(ctx context.Context, contract *model.Contract) error {
	return s.set(ctx, contract)
}

func (s *RedisStore) Update(ctx context.Context, contract *model.Contract) error {
	exists, err := s.rdb.Exists(ctx, contractKey(contract.ID)).Result()
	if err != nil {
		return fmt.Errorf("check contract: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	return s.set(ctx, contract)
}

func (s *RedisStore) Get(ctx context.Context, id string) (*model.Contract, error) {
	data, err := s.rdb.Get(ctx, contractKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get contract: %w", err)
	}

	var contract model.Contract
	if err := json.Unmarshal(data, &contract); err != nil {
		return nil, fmt.Errorf("decode contract: %w", err)
	}
	return &contract, nil
}

func (s *RedisStore) List(ctx context.Context, status model.Status, offset, limit int) ([]*model.Contract, error) {
	matched, err := s.matching(ctx, status)
	if err != nil {
		return nil, err
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UploadedAt.After(matched[j].UploadedAt)
	})

	if offset >= len(matched) {
		return []*model.Contract{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (s *RedisStore) Count(ctx context.Context, status model.Status) (int, error) {
	matched, err := s.matching(ctx, status)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

func (s *RedisStore) set(ctx context.Context, contract *model.Contract) error {
	payload, err := json.Marshal(contract)
	if err != nil {
		return fmt.Errorf("encode contract: %w", err)
	}
	if err := s.rdb.Set(ctx, contractKey(contract.ID), payload, 0).Err(); err != nil {
		return fmt.Errorf("set contract: %w", err)
	}
	return nil
}

func (s *RedisStore) matching(ctx context.Context, status model.Status) ([]*model.Contract, error) {
	matched := make([]*model.Contract, 0)

	iter := s.rdb.Scan(ctx, 0, contractKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		data, err := s.rdb.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return nil, fmt.Errorf("get contract: %w", err)
		}
		var contract model.Contract
		if err := json.Unmarshal(data, &contract); err != nil {
			return nil, fmt.Errorf("decode contract: %w", err)
		}
		if status != "" && contract.Status != status {
			continue
		}
		matched = append(matched, &contract)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan contracts: %w", err)
	}
	return matched, nil
}

func contractKey(id string) string {
	return contractKeyPrefix + id
}
