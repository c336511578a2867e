// api/db/redis.go
package db

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	logger "github.com/labops/labportal/api/logging"
	"github.com/labops/labportal/api/model"
)

var (
	RedisClient   *redis.Client
	encryptionKey []byte
)

func InitRedis() error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:         viper.GetString("redis.addr"),
		Password:     viper.GetString("redis.password"),
		DB:           viper.GetInt("redis.db"),
		DialTimeout:  viper.GetDuration("redis.dialTimeout"),
		ReadTimeout:  viper.GetDuration("redis.readTimeout"),
		WriteTimeout: viper.GetDuration("redis.writeTimeout"),
		PoolSize:     viper.GetInt("redis.poolSize"),
		PoolTimeout:  viper.GetDuration("redis.poolTimeout"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	encryptionKey = []byte(viper.GetString("redis.encryptionKey"))
	if len(encryptionKey) != 32 {
		return fmt.Errorf("invalid encryption key length: must be 32 bytes")
	}

	logger.Info("Successfully connected to Redis")
	return nil
}

func CloseRedis() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logger.Error("Error closing Redis connection", zap.Error(err))
		}
	}
}

func encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decrypt(ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

// Requests carry personal data in their payloads, so the cached form is
// encrypted at rest.
func CacheRequest(ctx context.Context, request *model.Request) error {
	requestJSON, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	encryptedRequest, err := encrypt(requestJSON)
	if err != nil {
		return fmt.Errorf("failed to encrypt request: %w", err)
	}

	key := fmt.Sprintf("request:%s", request.ID)
	defaultTTL := viper.GetDuration("redis.defaultCacheTTL")
	err = RedisClient.Set(ctx, key, base64.StdEncoding.EncodeToString(encryptedRequest), defaultTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to cache request: %w", err)
	}

	logger.Debug("Request cached successfully", zap.String("requestID", request.ID))
	return nil
}

func GetCachedRequest(ctx context.Context, requestID string) (*model.Request, error) {
	key := fmt.Sprintf("request:%s", requestID)
	encryptedRequestStr, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		logger.Debug("Request not found in cache", zap.String("requestID", requestID))
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get request from cache: %w", err)
	}

	encryptedRequest, err := base64.StdEncoding.DecodeString(encryptedRequestStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}

	requestJSON, err := decrypt(encryptedRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt request: %w", err)
	}

	var request model.Request
	err = json.Unmarshal(requestJSON, &request)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal request: %w", err)
	}

	logger.Debug("Request retrieved from cache", zap.String("requestID", requestID))
	return &request, nil
}

func DeleteCachedRequest(ctx context.Context, requestID string) error {
	key := fmt.Sprintf("request:%s", requestID)
	err := RedisClient.Del(ctx, key).Err()
	if err != nil {
		return fmt.Errorf("failed to delete request from cache: %w", err)
	}
	logger.Debug("Request deleted from cache", zap.String("requestID", requestID))
	return nil
}

func CacheAccount(ctx context.Context, account *model.Account) error {
	accountJSON, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}

	key := fmt.Sprintf("account:%s", account.ID)
	defaultTTL := viper.GetDuration("redis.defaultCacheTTL")
	err = RedisClient.Set(ctx, key, accountJSON, defaultTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to cache account: %w", err)
	}

	logger.Debug("Account cached successfully", zap.String("accountID", account.ID))
	return nil
}

func DeleteCachedAccount(ctx context.Context, accountID string) error {
	key := fmt.Sprintf("account:%s", accountID)
	err := RedisClient.Del(ctx, key).Err()
	if err != nil {
		return fmt.Errorf("failed to delete account from cache: %w", err)
	}
	logger.Debug("Account deleted from cache", zap.String("accountID", accountID))
	return nil
}

func GetCachedAccount(ctx context.Context, accountID string) (*model.Account, error) {
	key := fmt.Sprintf("account:%s", accountID)
	accountJSON, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		logger.Debug("Account not found in cache", zap.String("accountID", accountID))
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get account from cache: %w", err)
	}

	var account model.Account
	err = json.Unmarshal([]byte(accountJSON), &account)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}

	logger.Debug("Account retrieved from cache", zap.String("accountID", accountID))
	return &account, nil
}

func CacheSystem(ctx context.Context, system *model.System) error {
	systemJSON, err := json.Marshal(system)
	if err != nil {
		return fmt.Errorf("failed to marshal system: %w", err)
	}

	key := fmt.Sprintf("system:%s", system.ID)
	defaultTTL := viper.GetDuration("redis.defaultCacheTTL")
	err = RedisClient.Set(ctx, key, systemJSON, defaultTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to cache system: %w", err)
	}

	logger.Debug("System cached successfully", zap.String("systemID", system.ID))
	return nil
}

func DeleteCachedSystem(ctx context.Context, systemID string) error {
	key := fmt.Sprintf("system:%s", systemID)
	err := RedisClient.Del(ctx, key).Err()
	if err != nil {
		return fmt.Errorf("failed to delete system from cache: %w", err)
	}
	logger.Debug("System deleted from cache", zap.String("systemID", systemID))
	return nil
}

func GetCachedSystem(ctx context.Context, systemID string) (*model.System, error) {
	key := fmt.Sprintf("system:%s", systemID)
	systemJSON, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		logger.Debug("System not found in cache", zap.String("systemID", systemID))
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get system from cache: %w", err)
	}

	var system model.System
	err = json.Unmarshal([]byte(systemJSON), &system)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal system: %w", err)
	}

	logger.Debug("System retrieved from cache", zap.String("systemID", systemID))
	return &system, nil
}

func CacheScript(ctx context.Context, script *model.Script) error {
	scriptJSON, err := json.Marshal(script)
	if err != nil {
		return fmt.Errorf("failed to marshal script: %w", err)
	}

	key := fmt.Sprintf("script:%s", script.ID)
	defaultTTL := viper.GetDuration("redis.defaultCacheTTL")
	err = RedisClient.Set(ctx, key, scriptJSON, defaultTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to cache script: %w", err)
	}

	logger.Debug("Script cached successfully", zap.String("scriptID", script.ID))
	return nil
}

func DeleteCachedScript(ctx context.Context, scriptID string) error {
	key := fmt.Sprintf("script:%s", scriptID)
	err := RedisClient.Del(ctx, key).Err()
	if err != nil {
		return fmt.Errorf("failed to delete script from cache: %w", err)
	}
	logger.Debug("Script deleted from cache", zap.String("scriptID", scriptID))
	return nil
}

func GetCachedScript(ctx context.Context, scriptID string) (*model.Script, error) {
	key := fmt.Sprintf("script:%s", scriptID)
	scriptJSON, err := RedisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		logger.Debug("Script not found in cache", zap.String("scriptID", scriptID))
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get script from cache: %w", err)
	}

	var script model.Script
	err = json.Unmarshal([]byte(scriptJSON), &script)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal script: %w", err)
	}

	logger.Debug("Script retrieved from cache", zap.String("scriptID", scriptID))
	return &script, nil
}

func RateLimit(ctx context.Context, key string, limit int, per time.Duration) (bool, error) {
	pipe := RedisClient.Pipeline()
	now := time.Now().UnixNano()
	key = fmt.Sprintf("ratelimit:%s", key)

	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", now-(per.Nanoseconds())))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: now})
	pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, per)

	cmds, err := pipe.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to execute rate limit commands: %w", err)
	}

	count := cmds[2].(*redis.IntCmd).Val()
	allowed := count <= int64(limit)
	logger.Debug("Rate limit check",
		zap.String("key", key),
		zap.Int64("count", count),
		zap.Int("limit", limit),
		zap.Bool("allowed", allowed))
	return allowed, nil
}

func LockResource(ctx context.Context, resourceName string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:%s", resourceName)
	locked, err := RedisClient.SetNX(ctx, key, "locked", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	logger.Debug("Lock acquisition attempt",
		zap.String("resource", resourceName),
		zap.Bool("locked", locked))
	return locked, nil
}

func UnlockResource(ctx context.Context, resourceName string) error {
	key := fmt.Sprintf("lock:%s", resourceName)
	err := RedisClient.Del(ctx, key).Err()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	logger.Debug("Lock released", zap.String("resource", resourceName))
	return nil
}
