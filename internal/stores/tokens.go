package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultTokenPrefix     = "gct"
	tokenRecordVersionV1   = 1
	maxTokenUserIDBytes    = 1<<16 - 1
	tokenRecordFixedHeader = 1 + 8 + 2
)

var (
	ErrTokenNotFound         = errors.New("token record not found")
	ErrTokenRedisUnavailable = errors.New("token redis unavailable")
	ErrTokenRecordCorrupt    = errors.New("token record corrupt")
)

// TokenRecord is the stored half of a single-use token.
type TokenRecord struct {
	UserID    string
	CreatedAt time.Time
}

// TokenStore keeps token records in Redis.
type TokenStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewTokenStore(redisClient redis.UniversalClient, prefix string) *TokenStore {
	if prefix == "" {
		prefix = defaultTokenPrefix
	}
	return &TokenStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *TokenStore) key(namespace, hash string) string {
	return s.prefix + ":" + namespace + ":" + hash
}

// Save writes the record under namespace/hash. A zero ttl keeps it forever.
func (s *TokenStore) Save(ctx context.Context, namespace, hash string, record *TokenRecord, ttl time.Duration) error {
	encoded, err := encodeTokenRecord(record)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(namespace, hash), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTokenRedisUnavailable, err)
	}
	return nil
}

func (s *TokenStore) Get(ctx context.Context, namespace, hash string) (*TokenRecord, error) {
	data, err := s.redis.Get(ctx, s.key(namespace, hash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenRedisUnavailable, err)
	}

	record, err := decodeTokenRecord(data)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Delete removes the record and reports whether this call removed it.
func (s *TokenStore) Delete(ctx context.Context, namespace, hash string) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(namespace, hash)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrTokenRedisUnavailable, err)
	}
	return n == 1, nil
}

// Layout: version(1) createdAt unix nanos(8) userIDLen(2) userID.
func encodeTokenRecord(record *TokenRecord) ([]byte, error) {
	if record == nil {
		return nil, errors.New("token record is nil")
	}
	if len(record.UserID) > maxTokenUserIDBytes {
		return nil, errors.New("token record user id too long")
	}

	var buf bytes.Buffer
	buf.Grow(tokenRecordFixedHeader + len(record.UserID))
	buf.WriteByte(tokenRecordVersionV1)

	if err := binary.Write(&buf, binary.BigEndian, record.CreatedAt.UnixNano()); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.UserID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.UserID)

	return buf.Bytes(), nil
}

func decodeTokenRecord(data []byte) (*TokenRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenRecordCorrupt, err)
	}
	if version != tokenRecordVersionV1 {
		return nil, fmt.Errorf("%w: version %d", ErrTokenRecordCorrupt, version)
	}

	var createdAt int64
	if err := binary.Read(reader, binary.BigEndian, &createdAt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenRecordCorrupt, err)
	}

	var userIDLen uint16
	if err := binary.Read(reader, binary.BigEndian, &userIDLen); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenRecordCorrupt, err)
	}
	userID := make([]byte, userIDLen)
	if _, err := io.ReadFull(reader, userID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenRecordCorrupt, err)
	}

	return &TokenRecord{
		UserID:    string(userID),
		CreatedAt: time.Unix(0, createdAt).UTC(),
	}, nil
}
