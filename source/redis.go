package source

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mediocregopher/radix/v3"
)

// Configuration for the redis source
type RedisConfig struct {
	// Connection to redis
	Connection *radix.Pool

	// Key prefix to be used in redis keys
	KeyPrefix string

	// Redis set that indexes every key held by this source, it is what makes
	// bulk listings possible. Leave empty to disable FetchAll
	IndexKey string

	// The duration seeded entities are kept, set 0 to disable expiration
	Retention time.Duration
}

// RedisGob is a redis-backed source with gob encoded values. Batches become
// a single MGET round-trip and a companion index set lets it enumerate its
// keys for bulk listings
type RedisGob[TKey comparable, TValue any] struct {
	config RedisConfig
}

// Create a new redis-backed source
func NewRedisGob[TKey comparable, TValue any](config RedisConfig) *RedisGob[TKey, TValue] {
	return &RedisGob[TKey, TValue]{config: config}
}

// Unique identifier for this source used for logging and metric purposes
func (s *RedisGob[TKey, TValue]) Identifier() string { return "redis" }

// Fetch the entities for the given keys with one MGET round-trip, keys with
// no value in redis are left out of the result
func (s *RedisGob[TKey, TValue]) FetchByKeys(ctx context.Context, keys []TKey) (map[TKey]TValue, error) {
	if len(keys) == 0 {
		return map[TKey]TValue{}, nil
	}

	buffers := make([][]byte, len(keys))
	if err := s.config.Connection.Do(radix.Cmd(&buffers, "MGET", stringifyKeys(keys, s.config.KeyPrefix)...)); err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	result := make(map[TKey]TValue, len(keys))
	for i, key := range keys {
		if buffers[i] == nil {
			continue
		}
		var value TValue
		if err := gob.NewDecoder(bytes.NewBuffer(buffers[i])).Decode(&value); err != nil {
			return nil, fmt.Errorf("redis decode %v: %w", key, err)
		}
		result[key] = value
	}
	return result, nil
}

// Fetch every entity registered on the index set. Keys that expired after
// they were indexed are skipped
func (s *RedisGob[TKey, TValue]) FetchAll(ctx context.Context) ([]TValue, error) {
	if s.config.IndexKey == "" {
		return nil, errors.New("redis source has no index set configured")
	}

	var members []string
	if err := s.config.Connection.Do(radix.Cmd(&members, "SMEMBERS", s.config.IndexKey)); err != nil {
		return nil, fmt.Errorf("redis smembers: %w", err)
	}
	if len(members) == 0 {
		return []TValue{}, nil
	}

	buffers := make([][]byte, len(members))
	if err := s.config.Connection.Do(radix.Cmd(&buffers, "MGET", members...)); err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	result := make([]TValue, 0, len(members))
	for i, member := range members {
		if buffers[i] == nil {
			continue
		}
		var value TValue
		if err := gob.NewDecoder(bytes.NewBuffer(buffers[i])).Decode(&value); err != nil {
			return nil, fmt.Errorf("redis decode %v: %w", member, err)
		}
		result = append(result, value)
	}
	return result, nil
}

// Seed stores the given entities and registers their keys on the index set
// in one pipeline
func (s *RedisGob[TKey, TValue]) Seed(entities map[TKey]TValue) error {
	if len(entities) == 0 {
		return nil
	}

	keys := make([]TKey, 0, len(entities))
	for key := range entities {
		keys = append(keys, key)
	}
	keysString := stringifyKeys(keys, s.config.KeyPrefix)

	// prepare batch SET commands using MSET
	arguments := make([]string, 0, 2*len(keys))
	for i, key := range keys {
		b := bytes.Buffer{}
		if err := gob.NewEncoder(&b).Encode(entities[key]); err != nil {
			return fmt.Errorf("redis encode %v: %w", key, err)
		}
		arguments = append(arguments, keysString[i], b.String())
	}

	commands := make([]radix.CmdAction, 0, 2+len(keys))
	commands = append(commands, radix.Cmd(nil, "MSET", arguments...))
	if s.config.IndexKey != "" {
		commands = append(commands, radix.Cmd(nil, "SADD", append([]string{s.config.IndexKey}, keysString...)...))
	}

	// prepare EXPIRE commands
	if s.config.Retention > 0 {
		retention := strconv.FormatInt(int64(s.config.Retention.Seconds()), 10)
		for _, key := range keysString {
			commands = append(commands, radix.Cmd(nil, "EXPIRE", key, retention))
		}
	}

	if err := s.config.Connection.Do(radix.Pipeline(commands...)); err != nil {
		return fmt.Errorf("redis seed: %w", err)
	}
	return nil
}

func stringifyKeys[TKey comparable](keys []TKey, prefix string) []string {
	return mapFn(keys, func(input TKey) string {
		return fmt.Sprintf("%s%v", prefix, input)
	})
}

func mapFn[T1 any, T2 any](arr []T1, fn func(input T1) T2) []T2 {
	newArr := make([]T2, len(arr))
	for i, v := range arr {
		newArr[i] = fn(v)
	}
	return newArr
}
