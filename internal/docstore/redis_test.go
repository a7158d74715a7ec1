package docstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// newTestRedisStore connects to CADENCE_TEST_REDIS_ADDR (default
// localhost:6379) and skips the test when no server answers.
func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("CADENCE_TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	s, err := NewRedisStore(ctx, RedisOptions{
		Addr:   addr,
		Prefix: "cadence-test:" + uuid.NewString() + ":",
	})
	if err != nil {
		t.Skipf("redis not available at %s: %v", addr, err)
	}
	t.Cleanup(func() {
		for _, k := range []string{KeyGoals, KeyRewards, KeyLifetimePoints} {
			s.rdb.Del(context.Background(), s.key(k))
		}
		s.Close()
	})
	return s
}

func TestRedisStore_Contract(t *testing.T) {
	runStoreContract(t, newTestRedisStore(t))
}

func TestRedisStore_PrefixesKeys(t *testing.T) {
	s := &RedisStore{prefix: "p:"}
	require.Equal(t, "p:goals", s.key(KeyGoals))
}
