package store

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    redis "github.com/redis/go-redis/v9"

    "github.com/local/filemend/internal/compress"
)

// Redis keeps each job in a hash (<ns>:job:<id>) and orders ids in a sorted
// set (<ns>:jobs) scored by creation time.
type Redis struct {
    client *redis.Client
    keyNS  string
    ttl    time.Duration
}

func NewRedis(ctx context.Context, redisURL, namespace string, ttl time.Duration) (*Redis, error) {
    opt, err := redis.ParseURL(redisURL)
    if err != nil { return nil, fmt.Errorf("parse redis url: %w", err) }
    c := redis.NewClient(opt)
    if err := c.Ping(ctx).Err(); err != nil {
        _ = c.Close()
        return nil, fmt.Errorf("redis ping: %w", err)
    }
    if namespace == "" { namespace = "filemend" }
    return &Redis{client: c, keyNS: namespace, ttl: ttl}, nil
}

func (s *Redis) key(id string) string { return fmt.Sprintf("%s:job:%s", s.keyNS, id) }
func (s *Redis) index() string        { return s.keyNS + ":jobs" }

func (s *Redis) Put(ctx context.Context, job compress.FileJob) error {
    if job.ID == "" { return errors.New("job id is required") }
    b, err := json.Marshal(strip(job))
    if err != nil { return fmt.Errorf("encode job: %w", err) }
    m := map[string]interface{}{
        "status":   string(job.Status),
        "progress": job.Progress,
        "name":     job.Name,
        "record":   string(b),
    }
    pipe := s.client.TxPipeline()
    pipe.HSet(ctx, s.key(job.ID), m)
    if s.ttl > 0 { pipe.Expire(ctx, s.key(job.ID), s.ttl) }
    pipe.ZAddNX(ctx, s.index(), redis.Z{Score: float64(job.CreatedAt.UnixNano()), Member: job.ID})
    _, err = pipe.Exec(ctx)
    return err
}

func (s *Redis) Get(ctx context.Context, id string) (compress.FileJob, error) {
    raw, err := s.client.HGet(ctx, s.key(id), "record").Result()
    if errors.Is(err, redis.Nil) { return compress.FileJob{}, ErrNotFound }
    if err != nil { return compress.FileJob{}, err }
    return decode(raw)
}

// List reads the index in order. Ids whose hash expired are pruned from it.
func (s *Redis) List(ctx context.Context) ([]compress.FileJob, error) {
    ids, err := s.client.ZRange(ctx, s.index(), 0, -1).Result()
    if err != nil { return nil, err }
    if len(ids) == 0 { return nil, nil }

    pipe := s.client.Pipeline()
    cmds := make([]*redis.StringCmd, len(ids))
    for i, id := range ids {
        cmds[i] = pipe.HGet(ctx, s.key(id), "record")
    }
    if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) { return nil, err }

    out := make([]compress.FileJob, 0, len(ids))
    var stale []interface{}
    for i, cmd := range cmds {
        raw, err := cmd.Result()
        if errors.Is(err, redis.Nil) {
            stale = append(stale, ids[i])
            continue
        }
        if err != nil { return nil, err }
        j, err := decode(raw)
        if err != nil { return nil, fmt.Errorf("job %s: %w", ids[i], err) }
        out = append(out, j)
    }
    if len(stale) > 0 { _ = s.client.ZRem(ctx, s.index(), stale...).Err() }
    return out, nil
}

func (s *Redis) Delete(ctx context.Context, id string) (bool, error) {
    pipe := s.client.TxPipeline()
    del := pipe.Del(ctx, s.key(id))
    pipe.ZRem(ctx, s.index(), id)
    if _, err := pipe.Exec(ctx); err != nil { return false, err }
    return del.Val() > 0, nil
}

func (s *Redis) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func (s *Redis) Close() error { return s.client.Close() }

func decode(raw string) (compress.FileJob, error) {
    var j compress.FileJob
    if err := json.Unmarshal([]byte(raw), &j); err != nil { return compress.FileJob{}, fmt.Errorf("decode job: %w", err) }
    return j, nil
}
